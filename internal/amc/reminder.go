// Package amc holds the contract date arithmetic and the status monitor
// for Annual Maintenance Contracts. The rule every function here protects:
// service reminders are driven by the last service date, but the contract
// end date is fixed and never moves because of reschedules or delays.
package amc

import (
	"time"

	"github.com/fieldserve/backend/internal/models"
)

const DefaultIntervalMonths = 3

// AddMonths shifts a YYYY-MM-DD date by whole months, normalizing
// overflow the calendar way (Jan 31 + 1 month lands in early March).
func AddMonths(date string, months int) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, months, 0).Format(models.DateLayout)
}

// NextServiceDate computes the next visit from the last completed one.
func NextServiceDate(lastServiceDate string, intervalMonths int) string {
	if lastServiceDate == "" {
		return ""
	}
	if intervalMonths <= 0 {
		intervalMonths = DefaultIntervalMonths
	}
	return AddMonths(lastServiceDate, intervalMonths)
}

// DaysBetween returns to - from in whole days. Malformed dates yield 0.
func DaysBetween(from, to string) int {
	f, err1 := time.Parse(models.DateLayout, from)
	t, err2 := time.Parse(models.DateLayout, to)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(t.Sub(f).Hours() / 24)
}

// ProcessServiceCompletion records a completed visit: bumps the counter,
// sets the last service date, and recomputes the next one. The end date
// is untouched.
func ProcessServiceCompletion(a models.AMC, completionDate string) models.AMC {
	a.ServicesCompleted++
	a.LastServiceDate = completionDate
	a.NextServiceDate = NextServiceDate(completionDate, a.IntervalMonths)
	return a
}

// ShouldShowServiceReminder reports whether a routine service visit is due:
// the contract is active, a next service date exists, today has reached it,
// and the contract has not ended (after the end date the renewal reminder
// takes over).
func ShouldShowServiceReminder(a *models.AMC, today string) bool {
	if a == nil || !a.IsActive || a.NextServiceDate == "" {
		return false
	}
	if today < a.NextServiceDate {
		return false
	}
	if today > a.EndDate {
		return false
	}
	return true
}

type RenewalCheck struct {
	ShouldShow bool   `json:"shouldShow"`
	DaysLeft   int    `json:"daysLeft"`
	Reason     string `json:"reason"`
}

// ShouldShowRenewalReminder classifies a contract against today. Expired
// contracts report a negative DaysLeft. A contract whose services are all
// used up needs renewal even before its end date.
func ShouldShowRenewalReminder(a *models.AMC, today string) RenewalCheck {
	if a == nil {
		return RenewalCheck{Reason: "No AMC data"}
	}

	if today > a.EndDate {
		overdue := DaysBetween(a.EndDate, today)
		return RenewalCheck{
			ShouldShow: true,
			DaysLeft:   -overdue,
			Reason:     "AMC expired, renewal required",
		}
	}

	daysLeft := DaysBetween(today, a.EndDate)
	if a.TotalServices > 0 && a.ServicesCompleted >= a.TotalServices {
		return RenewalCheck{
			ShouldShow: true,
			DaysLeft:   daysLeft,
			Reason:     "All services completed, renewal required",
		}
	}

	if daysLeft <= 30 {
		return RenewalCheck{
			ShouldShow: true,
			DaysLeft:   daysLeft,
			Reason:     "AMC expiring soon",
		}
	}

	return RenewalCheck{DaysLeft: daysLeft, Reason: "AMC active, no renewal needed yet"}
}

// CheckAndDeactivate flips the contract inactive when either deactivation
// condition holds. It returns the updated record, whether it changed, and
// the human-readable reason.
func CheckAndDeactivate(a models.AMC, today string) (models.AMC, bool, string) {
	if !a.IsActive {
		return a, false, ""
	}
	allDone := a.TotalServices > 0 && a.ServicesCompleted >= a.TotalServices
	expired := today > a.EndDate

	if !allDone && !expired {
		return a, false, ""
	}

	a.IsActive = false
	reason := "AMC end date reached without renewal"
	if allDone {
		reason = "All services completed, renewal required"
	}
	return a, true, reason
}

// ValidateAMC checks structural sanity of a contract record.
func ValidateAMC(a *models.AMC) (errs, warnings []string) {
	if a == nil {
		return []string{"AMC record is missing"}, nil
	}
	if a.StartDate == "" {
		errs = append(errs, "missing startDate")
	}
	if a.EndDate == "" {
		errs = append(errs, "missing endDate")
	}
	if a.IntervalMonths <= 0 {
		errs = append(errs, "intervalMonths must be positive")
	}
	if a.TotalServices <= 0 {
		errs = append(errs, "totalServices must be positive")
	}
	if a.StartDate != "" && a.EndDate != "" && a.StartDate > a.EndDate {
		errs = append(errs, "startDate is after endDate")
	}
	if a.ServicesCompleted > a.TotalServices {
		warnings = append(warnings, "more services completed than the contract total")
	}
	if a.LastServiceDate != "" && a.NextServiceDate != "" && a.NextServiceDate <= a.LastServiceDate {
		warnings = append(warnings, "next service date is not after the last service date")
	}
	return errs, warnings
}
