// Package notify is the push-notification boundary. Delivery mechanics
// live outside this system; in-process we only need an interface and a
// logging implementation for local runs and tests.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

type Transport interface {
	Send(ctx context.Context, technicianID, title, body string, data map[string]string) error
}

type LogTransport struct {
	Logger zerolog.Logger
}

func (t LogTransport) Send(ctx context.Context, technicianID, title, body string, data map[string]string) error {
	t.Logger.Info().
		Str("technician_id", technicianID).
		Str("title", title).
		Str("body", body).
		Msg("notification")
	return nil
}
