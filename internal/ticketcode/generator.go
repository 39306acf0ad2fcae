// Package ticketcode produces the short human-readable codes stamped on
// tickets: a 2-letter type prefix followed by a 2-digit sequence (TC01,
// SV99). Sequence numbers are per prefix, not global.
package ticketcode

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/utils"
)

var codePattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}$`)

var ErrInvalidCode = errors.New("ticketcode: code must be 2 letters + 2 digits")

// Validate rejects anything not in WW00 form. Creation paths call this
// before persisting so a malformed code never reaches the store.
func Validate(code string) error {
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return nil
}

// PrefixFor maps a ticket type to its 2-letter code prefix. Unknown types
// fall back to the generic ticket prefix.
func PrefixFor(ticketType string) string {
	switch ticketType {
	case models.TicketTypeService:
		return "SV"
	case models.TicketTypeAMC:
		return "AM"
	case models.TicketTypeComplaint:
		return "CM"
	default:
		return "TC"
	}
}

// TicketSource lists tickets, optionally bypassing any cache so the
// generator sees the latest issued codes.
type TicketSource interface {
	Tickets(ctx context.Context, forceRefresh bool) ([]models.Ticket, error)
}

type Generator struct {
	Source TicketSource
	Logger zerolog.Logger
}

// Generate returns the next code for the given ticket type: highest
// existing 2-digit suffix for the prefix plus one, wrapping to 01 above
// 99. The wrap can re-issue a code still attached to a live ticket of the
// same prefix; that collision risk is accepted for now rather than doing
// a liveness scan here. When the ticket list cannot be read, a
// best-effort TC code with a time-derived suffix is returned instead of
// failing ticket creation.
func (g *Generator) Generate(ctx context.Context, ticketType string) string {
	tickets, err := g.Source.Tickets(ctx, true)
	if err != nil {
		return g.fallback(err)
	}

	prefix := PrefixFor(ticketType)
	highest := 0
	for _, t := range tickets {
		if Validate(t.TicketCode) != nil {
			continue
		}
		if t.TicketCode[:2] != prefix {
			continue
		}
		n, err := strconv.Atoi(t.TicketCode[2:])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}

	next := highest + 1
	if next > 99 {
		next = 1
	}
	return fmt.Sprintf("%s%02d", prefix, next)
}

// fallback codes are not uniqueness-checked; they only keep ticket
// creation alive while the store is unreachable.
func (g *Generator) fallback(cause error) string {
	n := utils.HashStringToUint64(time.Now().String())%99 + 1
	code := fmt.Sprintf("TC%02d", n)
	g.Logger.Warn().Err(cause).Str("code", code).
		Msg("ticket list unavailable, using fallback ticket code")
	return code
}
