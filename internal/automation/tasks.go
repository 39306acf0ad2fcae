package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/reminder"
)

func failed(res TaskResult, err error) TaskResult {
	res.Success = false
	res.Error = err.Error()
	return res
}

// autoAssign gives every open unassigned ticket to the active technician
// with the fewest assigned tickets. Counts accumulate as the task assigns,
// so a batch of new tickets spreads across the crew instead of piling onto
// whoever started the tick lightest. Ties go to the first technician in
// list order.
func (s *Scheduler) autoAssign(ctx context.Context) TaskResult {
	res := TaskResult{Name: "auto_assign", Details: map[string]any{}}

	tickets, err := s.Data.Tickets(ctx, false)
	if err != nil {
		return failed(res, err)
	}
	technicians, err := s.Data.Technicians(ctx, false)
	if err != nil {
		return failed(res, err)
	}

	var active []models.Technician
	for _, t := range technicians {
		if t.Status == models.TechnicianActive {
			active = append(active, t)
		}
	}

	counts := make(map[string]int, len(active))
	for _, t := range tickets {
		if t.Status == models.TicketStatusAssigned && t.AssignedToID != "" {
			counts[t.AssignedToID]++
		}
	}

	assigned := 0
	for _, t := range tickets {
		if t.Status != models.TicketStatusOpen || t.AssignedTo != "" {
			continue
		}
		if len(active) == 0 {
			break
		}
		best := active[0]
		for _, tech := range active[1:] {
			if counts[tech.ID] < counts[best.ID] {
				best = tech
			}
		}
		err := s.Data.UpdateTicket(ctx, t.ID, map[string]any{
			"assignedTo":     best.Name,
			"assignedToId":   best.ID,
			"assignedAt":     s.today(),
			"status":         models.TicketStatusAssigned,
			"aiAutoAssigned": true,
		})
		if err != nil {
			s.logf("auto-assign: ticket %s: %v", t.TicketCode, err)
			continue
		}
		s.Audit.Log("ticket", t.ID, audit.Entry{
			Before: map[string]any{"status": t.Status, "assignedTo": t.AssignedTo},
			After:  map[string]any{"status": models.TicketStatusAssigned, "assignedTo": best.Name},
			Reason: "auto-assigned to least-loaded technician",
		})
		if err := s.Notify.Send(ctx, best.ID, "New job assigned",
			fmt.Sprintf("Ticket %s (%s) assigned to you", t.TicketCode, t.CustomerName), nil); err != nil {
			s.logf("auto-assign: notify %s: %v", best.ID, err)
		}
		counts[best.ID]++
		assigned++
		s.logf("auto-assigned ticket %s to %s", t.TicketCode, best.Name)
	}

	res.Success = true
	res.Details["assigned"] = assigned
	res.Details["technicians"] = len(active)
	return res
}

// autoReschedule moves tickets that have sat assigned for over a week to a
// fresh slot three days out. The aiAutoRescheduled marker makes this a
// one-shot per ticket; a ticket still stuck after the new date needs a
// human.
func (s *Scheduler) autoReschedule(ctx context.Context) TaskResult {
	res := TaskResult{Name: "auto_reschedule", Details: map[string]any{}}

	tickets, err := s.Data.Tickets(ctx, false)
	if err != nil {
		return failed(res, err)
	}

	today := s.today()
	newDate := s.now().AddDate(0, 0, 3).Format(models.DateLayout)

	rescheduled := 0
	for _, t := range tickets {
		if t.Status != models.TicketStatusAssigned || t.AIAutoRescheduled {
			continue
		}
		if t.CreatedAt == "" || ticketAgeDays(t.CreatedAt, today) <= 7 {
			continue
		}
		history := append(append([]models.Reschedule(nil), t.RescheduleHistory...), models.Reschedule{
			Date:   newDate,
			Time:   "10:00 AM",
			Reason: "Auto-rescheduled: ticket overdue",
		})
		err := s.Data.UpdateTicket(ctx, t.ID, map[string]any{
			"scheduledDate":        newDate,
			"scheduledArrivalTime": "10:00 AM",
			"rescheduleHistory":    history,
			"rescheduleCount":      t.RescheduleCount + 1,
			"rescheduleReason":     "Auto-rescheduled: ticket overdue",
			"aiAutoRescheduled":    true,
		})
		if err != nil {
			s.logf("auto-reschedule: ticket %s: %v", t.TicketCode, err)
			continue
		}
		s.Audit.Log("ticket", t.ID, audit.Entry{
			Before: map[string]any{"scheduledDate": t.ScheduledDate},
			After:  map[string]any{"scheduledDate": newDate},
			Reason: "auto-rescheduled overdue ticket",
		})
		rescheduled++
		s.logf("auto-rescheduled ticket %s to %s", t.TicketCode, newDate)
	}

	res.Success = true
	res.Details["rescheduled"] = rescheduled
	return res
}

// autoRemind sends one renewal reminder per contract cycle, only on the
// exact checkpoint days before expiry.
func (s *Scheduler) autoRemind(ctx context.Context) TaskResult {
	res := TaskResult{Name: "auto_remind", Details: map[string]any{}}

	customers, err := s.Data.Customers(ctx, false)
	if err != nil {
		return failed(res, err)
	}

	today := s.today()
	reminded := 0
	for _, c := range customers {
		daysLeft, due := reminder.RenewalDue(c, today)
		if !due {
			continue
		}
		err := s.Data.UpdateCustomer(ctx, c.ID, map[string]any{
			"aiReminderSent":   true,
			"lastReminderDate": today,
		})
		if err != nil {
			s.logf("auto-remind: customer %s: %v", c.ID, err)
			continue
		}
		s.Audit.Log("customer", c.ID, audit.Entry{
			Before: map[string]any{"aiReminderSent": false},
			After:  map[string]any{"aiReminderSent": true, "lastReminderDate": today},
			Reason: fmt.Sprintf("renewal reminder sent, %d days before expiry", daysLeft),
		})
		reminded++
		s.logf("renewal reminder for %s, %d days left", c.FullName, daysLeft)
	}

	res.Success = true
	res.Details["reminded"] = reminded
	return res
}

// autoComplete closes assigned tickets whose scheduled date has passed and
// that already carry proof of work: completion notes or a collected
// payment. Either alone does not suffice together with a future date;
// both conditions of the conjunction must hold.
func (s *Scheduler) autoComplete(ctx context.Context) TaskResult {
	res := TaskResult{Name: "auto_complete", Details: map[string]any{}}

	tickets, err := s.Data.Tickets(ctx, false)
	if err != nil {
		return failed(res, err)
	}

	today := s.today()
	completed := 0
	for _, t := range tickets {
		if t.Status != models.TicketStatusAssigned || t.AIAutoCompleted {
			continue
		}
		if t.ScheduledDate == "" || t.ScheduledDate >= today {
			continue
		}
		if t.CompletionNotes == "" && !t.PaymentCollected {
			continue
		}
		err := s.Data.UpdateTicket(ctx, t.ID, map[string]any{
			"status":          models.TicketStatusCompleted,
			"completedAt":     today,
			"aiAutoCompleted": true,
		})
		if err != nil {
			s.logf("auto-complete: ticket %s: %v", t.TicketCode, err)
			continue
		}
		s.Audit.Log("ticket", t.ID, audit.Entry{
			Before: map[string]any{"status": t.Status},
			After:  map[string]any{"status": models.TicketStatusCompleted},
			Reason: "auto-completed past-due ticket with completed work evidence",
		})
		completed++
		s.logf("auto-completed ticket %s", t.TicketCode)
	}

	res.Success = true
	res.Details["completed"] = completed
	return res
}

type DailyReport struct {
	Date        string  `json:"date"`
	TotalJobs   int     `json:"totalJobs"`
	Completed   int     `json:"completed"`
	Revenue     float64 `json:"revenue"`
	GeneratedBy string  `json:"generatedBy"`
}

// BuildDailyReport computes today's activity summary from live data. It is
// read-only; the report is returned, not persisted.
func (s *Scheduler) BuildDailyReport(ctx context.Context) (DailyReport, error) {
	tickets, err := s.Data.Tickets(ctx, false)
	if err != nil {
		return DailyReport{}, err
	}
	payments, err := s.Data.Payments(ctx, false)
	if err != nil {
		return DailyReport{}, err
	}

	today := s.today()
	report := DailyReport{Date: today, GeneratedBy: "automation"}
	for _, t := range tickets {
		if t.CreatedAt == today {
			report.TotalJobs++
		}
		if t.CompletedAt == today {
			report.Completed++
		}
	}
	for _, p := range payments {
		if p.Date == today && p.Status == "completed" {
			report.Revenue += p.Amount
		}
	}
	return report, nil
}

func (s *Scheduler) generateReport(ctx context.Context) TaskResult {
	res := TaskResult{Name: "daily_report", Details: map[string]any{}}

	report, err := s.BuildDailyReport(ctx)
	if err != nil {
		return failed(res, err)
	}

	res.Success = true
	res.Details["report"] = report
	s.logf("daily report: %d jobs, %d completed, revenue %.2f",
		report.TotalJobs, report.Completed, report.Revenue)
	return res
}

func (s *Scheduler) backupTask(ctx context.Context) TaskResult {
	res := TaskResult{Name: "backup", Details: map[string]any{}}

	snap, key, err := s.Backup(ctx)
	if err != nil {
		return failed(res, err)
	}

	res.Success = true
	res.Details["key"] = key
	res.Details["totalItems"] = snap.TotalItems
	return res
}

func ticketAgeDays(createdAt, today string) int {
	from, err := time.Parse(models.DateLayout, createdAt)
	if err != nil {
		return 0
	}
	to, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
