package amc

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/cache"
	"github.com/fieldserve/backend/internal/models"
)

// Monitor owns the only managed AMC status transition: Active to Inactive.
// The way back to Active is the renewal workflow, which is outside this
// component.
type Monitor struct {
	Data   *cache.Store
	Audit  *audit.Logger
	Logger zerolog.Logger
	Now    func() time.Time
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Monitor) today() string {
	return m.now().Format(models.DateLayout)
}

type StatusResult struct {
	StatusChanged bool   `json:"statusChanged"`
	OldStatus     string `json:"oldStatus,omitempty"`
	NewStatus     string `json:"newStatus,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// CustomerServices returns the contract-generated visits for one customer.
func (m *Monitor) CustomerServices(ctx context.Context, customerID string) ([]models.ServiceVisit, error) {
	all, err := m.Data.Services(ctx, false)
	if err != nil {
		return nil, err
	}
	out := []models.ServiceVisit{}
	for _, v := range all {
		if v.CustomerID == customerID && v.AMCGenerated {
			out = append(out, v)
		}
	}
	return out, nil
}

// CheckAndUpdateStatus is the per-customer primitive. The transition fires
// when the contract end date has passed today, or when four contract
// visits are completed. Already-Inactive customers are a no-op, which
// makes repeated runs safe.
func (m *Monitor) CheckAndUpdateStatus(ctx context.Context, customerID string) (StatusResult, error) {
	customer, err := m.Data.Customer(ctx, customerID)
	if err != nil {
		return StatusResult{}, err
	}
	if customer.CustomerType != models.CustomerTypeAMC || customer.AMC == nil {
		return StatusResult{Reason: "Not an AMC customer"}, nil
	}
	if customer.AMCStatus == models.AMCStatusInactive {
		return StatusResult{}, nil
	}

	today := m.today()
	expired := customer.AMC.EndDate != "" && customer.AMC.EndDate < today

	services, err := m.CustomerServices(ctx, customerID)
	if err != nil {
		return StatusResult{}, err
	}
	completed := 0
	for _, v := range services {
		if v.Status == models.TicketStatusCompleted {
			completed++
		}
	}

	if !expired && completed < 4 {
		return StatusResult{}, nil
	}

	reason := "AMC end date reached without renewal"
	if completed >= 4 {
		reason = "4 services completed, renewal required"
	}

	partial := map[string]any{
		"amcStatus":          models.AMCStatusInactive,
		"amcStatusReason":    reason,
		"amcStatusUpdatedAt": m.now().UTC().Format(time.RFC3339),
	}
	if err := m.Data.UpdateCustomer(ctx, customerID, partial); err != nil {
		return StatusResult{}, err
	}

	m.Audit.Log("customer", customerID, audit.Entry{
		Before: map[string]any{"amcStatus": customer.AMCStatus},
		After:  map[string]any{"amcStatus": models.AMCStatusInactive},
		Reason: reason,
	})
	m.Logger.Info().Str("customer_id", customerID).Str("reason", reason).
		Msg("AMC status set to Inactive")

	return StatusResult{
		StatusChanged: true,
		OldStatus:     customer.AMCStatus,
		NewStatus:     models.AMCStatusInactive,
		Reason:        reason,
	}, nil
}

type CustomerError struct {
	CustomerID string `json:"customerId"`
	Error      string `json:"error"`
}

type MonitorSummary struct {
	Processed int             `json:"processed"`
	Updated   int             `json:"updated"`
	Errors    []CustomerError `json:"errors"`
}

// MonitorAll sweeps every AMC customer. One bad record never aborts the
// batch: its error is collected and the sweep continues.
func (m *Monitor) MonitorAll(ctx context.Context) (MonitorSummary, error) {
	customers, err := m.Data.Customers(ctx, false)
	if err != nil {
		return MonitorSummary{Errors: []CustomerError{}}, err
	}

	summary := MonitorSummary{Errors: []CustomerError{}}
	for _, c := range customers {
		if c.CustomerType != models.CustomerTypeAMC {
			continue
		}
		summary.Processed++
		result, err := m.CheckAndUpdateStatus(ctx, c.ID)
		if err != nil {
			summary.Errors = append(summary.Errors, CustomerError{CustomerID: c.ID, Error: err.Error()})
			continue
		}
		if result.StatusChanged {
			summary.Updated++
		}
	}

	m.Logger.Info().
		Int("processed", summary.Processed).
		Int("updated", summary.Updated).
		Int("errors", len(summary.Errors)).
		Msg("AMC monitoring sweep complete")
	return summary, nil
}

type LastServiceResult struct {
	IsLastService       bool   `json:"isLastService"`
	ShouldPromptRenewal bool   `json:"shouldPromptRenewal"`
	Message             string `json:"message,omitempty"`
}

// CheckLastServiceCompleted reports whether the given visit was the fourth
// of the contract, and whether all four are now done so renewal should be
// prompted.
func (m *Monitor) CheckLastServiceCompleted(ctx context.Context, customerID, serviceID string) (LastServiceResult, error) {
	services, err := m.CustomerServices(ctx, customerID)
	if err != nil {
		return LastServiceResult{}, err
	}

	var completed *models.ServiceVisit
	done := 0
	for i := range services {
		if services[i].ID == serviceID {
			completed = &services[i]
		}
		if services[i].Status == models.TicketStatusCompleted {
			done++
		}
	}
	if completed == nil || completed.AMCServiceNumber != 4 {
		return LastServiceResult{}, nil
	}
	if done >= 4 {
		return LastServiceResult{
			IsLastService:       true,
			ShouldPromptRenewal: true,
			Message:             "All 4 quarterly services completed. Customer should renew AMC to continue coverage.",
		}, nil
	}
	return LastServiceResult{IsLastService: true}, nil
}

type RescheduleCheck struct {
	Valid         bool     `json:"valid"`
	Warnings      []string `json:"warnings"`
	OriginalDate  string   `json:"originalDate,omitempty"`
	ServiceNumber int      `json:"serviceNumber,omitempty"`
}

// ValidateServiceReschedule guards contract integrity when a visit moves:
// the scheduled date may change, amcOriginalDate and the contract end date
// never do. Crossing into another calendar month produces a warning, not
// an error, so drift is visible without blocking the reschedule.
func (m *Monitor) ValidateServiceReschedule(ctx context.Context, serviceID, newDate string) (RescheduleCheck, error) {
	if _, err := time.Parse(models.DateLayout, newDate); err != nil {
		return RescheduleCheck{}, fmt.Errorf("invalid reschedule date %q: %w", newDate, err)
	}

	service, err := m.Data.Service(ctx, serviceID)
	if err != nil {
		return RescheduleCheck{}, err
	}

	check := RescheduleCheck{Valid: true, Warnings: []string{}}
	if !service.AMCGenerated {
		return check, nil
	}

	check.OriginalDate = service.AMCOriginalDate
	check.ServiceNumber = service.AMCServiceNumber

	if service.AMCOriginalDate != "" {
		original, err := time.Parse(models.DateLayout, service.AMCOriginalDate)
		if err == nil {
			moved, _ := time.Parse(models.DateLayout, newDate)
			if original.Month() != moved.Month() || original.Year() != moved.Year() {
				check.Warnings = append(check.Warnings, fmt.Sprintf(
					"service originally scheduled for %s is moving to %s; AMC end date and service sequence remain unchanged",
					original.Month(), moved.Month()))
			}
		}
	}
	return check, nil
}
