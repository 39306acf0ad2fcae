// Package reminder classifies which customer reminders and admin alerts
// are due, given entity snapshots and today's date. Everything here is a
// pure function of its inputs: no I/O, no clocks, so behavior is fully
// table-testable.
package reminder

import (
	"fmt"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/models"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

const (
	TypeAMCService    = "AMC_SERVICE_REMINDER"
	TypeAMCRenewal    = "AMC_RENEWAL"
	TypeService       = "SERVICE_REMINDER"
	AlertAMCRenewal   = "ADMIN_AMC_ALERT"
	AlertUnassigned   = "ADMIN_SERVICE_UNASSIGNED"
	AlertOverdue      = "ADMIN_OVERDUE_TICKETS"
	AlertTechnicians  = "ADMIN_TECHNICIAN_STATUS"
)

// RenewalReminderDays are the exact-day offsets before contract expiry at
// which the automated renewal reminder fires. This is an exact match, not
// a window: the scheduler must run at least daily or a day is skipped.
var RenewalReminderDays = []int{30, 15, 7}

// Reminder is a customer-facing reminder descriptor.
type Reminder struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	CustomerID    string  `json:"customerId,omitempty"`
	CustomerName  string  `json:"customerName,omitempty"`
	CustomerPhone string  `json:"customerPhone,omitempty"`
	TicketID      string  `json:"ticketId,omitempty"`
	ReminderDate  string  `json:"reminderDate,omitempty"`
	DaysLeft      int     `json:"daysLeft,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Message       string  `json:"message"`
}

// Alert is an admin-facing notification.
type Alert struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// PredicateProvider supplies the product-specific due predicates for AMC
// service and renewal reminders.
type PredicateProvider interface {
	ShouldShowServiceReminder(a *models.AMC, today string) bool
	ShouldShowRenewalReminder(a *models.AMC, today string) amc.RenewalCheck
}

// AMCPredicates is the default provider, backed by the amc package.
type AMCPredicates struct{}

func (AMCPredicates) ShouldShowServiceReminder(a *models.AMC, today string) bool {
	return amc.ShouldShowServiceReminder(a, today)
}

func (AMCPredicates) ShouldShowRenewalReminder(a *models.AMC, today string) amc.RenewalCheck {
	return amc.ShouldShowRenewalReminder(a, today)
}

// RenewalDue decides whether the automated renewal reminder fires for this
// customer today: days-until-expiry must equal exactly 30, 15, or 7, and
// the per-cycle dedup flag must not be set yet. The flag is cleared by the
// renewal workflow, not here.
func RenewalDue(c models.Customer, today string) (int, bool) {
	if c.AMC == nil || c.AMC.EndDate == "" {
		return 0, false
	}
	if c.AIReminderSent {
		return 0, false
	}
	daysLeft := amc.DaysBetween(today, c.AMC.EndDate)
	for _, d := range RenewalReminderDays {
		if daysLeft == d {
			return daysLeft, true
		}
	}
	return 0, false
}

type Engine struct {
	Predicates PredicateProvider
}

type Classification struct {
	Reminders []Reminder `json:"reminders"`
	Alerts    []Alert    `json:"alerts"`
}

func (e Engine) predicates() PredicateProvider {
	if e.Predicates != nil {
		return e.Predicates
	}
	return AMCPredicates{}
}

// Classify walks the snapshots and emits every reminder and alert due
// today. Alert priorities: renewal alerts are high within 7 days of
// expiry and medium otherwise; unassigned-service and overdue-ticket
// alerts are always high; technician-status alerts are medium.
func (e Engine) Classify(customers []models.Customer, tickets []models.Ticket, technicians []models.Technician, today string) Classification {
	out := Classification{Reminders: []Reminder{}, Alerts: []Alert{}}
	p := e.predicates()

	for _, c := range customers {
		if c.CustomerType != models.CustomerTypeAMC || c.AMC == nil {
			continue
		}

		if p.ShouldShowServiceReminder(c.AMC, today) {
			out.Reminders = append(out.Reminders, Reminder{
				ID:            "amc-service-" + c.ID,
				Type:          TypeAMCService,
				CustomerID:    c.ID,
				CustomerName:  c.FullName,
				CustomerPhone: c.Phone,
				ReminderDate:  c.AMC.NextServiceDate,
				Message: fmt.Sprintf("AMC service due for %s. Last service: %s, due: %s",
					c.FullName, c.AMC.LastServiceDate, c.AMC.NextServiceDate),
			})
		}

		renewal := p.ShouldShowRenewalReminder(c.AMC, today)
		if renewal.ShouldShow {
			out.Reminders = append(out.Reminders, Reminder{
				ID:            "amc-renewal-" + c.ID,
				Type:          TypeAMCRenewal,
				CustomerID:    c.ID,
				CustomerName:  c.FullName,
				CustomerPhone: c.Phone,
				ReminderDate:  c.AMC.EndDate,
				DaysLeft:      renewal.DaysLeft,
				Amount:        c.AMC.Amount,
				Message: fmt.Sprintf("%s: %s. AMC expires %s",
					renewal.Reason, c.FullName, c.AMC.EndDate),
			})

			priority := PriorityMedium
			if renewal.DaysLeft <= 7 {
				priority = PriorityHigh
			}
			out.Alerts = append(out.Alerts, Alert{
				ID:       "admin-amc-renewal-" + c.ID,
				Type:     AlertAMCRenewal,
				Priority: priority,
				Title:    "AMC action required",
				Message: fmt.Sprintf("%s: %s. Days left: %d",
					c.FullName, renewal.Reason, renewal.DaysLeft),
			})
		}
	}

	for _, c := range customers {
		for _, t := range tickets {
			if t.CustomerID != c.ID || t.ServiceType != "scheduled" || t.AMCGenerated {
				continue
			}
			age := amc.DaysBetween(t.CreatedAt, today)
			if age > 7 || t.Status != models.TicketStatusAssigned {
				continue
			}
			out.Reminders = append(out.Reminders, Reminder{
				ID:            "service-" + t.ID,
				Type:          TypeService,
				CustomerID:    c.ID,
				CustomerName:  c.FullName,
				CustomerPhone: c.Phone,
				TicketID:      t.ID,
				ReminderDate:  firstNonEmpty(t.ScheduledDate, t.CreatedAt),
				Message:       "Service pending: " + c.FullName,
			})
			if t.AssignedTo == "" {
				out.Alerts = append(out.Alerts, Alert{
					ID:       "admin-service-" + t.ID,
					Type:     AlertUnassigned,
					Priority: PriorityHigh,
					Title:    "Unassigned service",
					Message:  fmt.Sprintf("Service for %s needs assignment", c.FullName),
				})
			}
		}
	}

	overdue := 0
	for _, t := range tickets {
		if t.Status != models.TicketStatusOpen && t.Status != models.TicketStatusAssigned {
			continue
		}
		if amc.DaysBetween(t.CreatedAt, today) > 3 {
			overdue++
		}
	}
	if overdue > 0 {
		out.Alerts = append(out.Alerts, Alert{
			ID:       "admin-overdue-tickets",
			Type:     AlertOverdue,
			Priority: PriorityHigh,
			Title:    "Overdue tickets",
			Message:  fmt.Sprintf("%d tickets pending more than 3 days", overdue),
		})
	}

	inactive := 0
	for _, tech := range technicians {
		if tech.Status != models.TechnicianActive {
			inactive++
		}
	}
	if inactive > 0 {
		out.Alerts = append(out.Alerts, Alert{
			ID:       "admin-technicians",
			Type:     AlertTechnicians,
			Priority: PriorityMedium,
			Title:    "Technician status",
			Message:  fmt.Sprintf("%d technician(s) inactive", inactive),
		})
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
