package amc

import (
	"testing"

	"github.com/fieldserve/backend/internal/models"
)

func TestAddMonths(t *testing.T) {
	if got := AddMonths("2025-01-15", 3); got != "2025-04-15" {
		t.Fatalf("expected 2025-04-15, got %s", got)
	}
	if got := AddMonths("2025-11-20", 3); got != "2026-02-20" {
		t.Fatalf("expected year rollover to 2026-02-20, got %s", got)
	}
	if got := AddMonths("not-a-date", 3); got != "" {
		t.Fatalf("expected empty on malformed date, got %s", got)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween("2025-06-01", "2025-06-08"); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := DaysBetween("2025-06-08", "2025-06-01"); got != -7 {
		t.Fatalf("expected -7, got %d", got)
	}
	if got := DaysBetween("garbage", "2025-06-01"); got != 0 {
		t.Fatalf("expected 0 for malformed input, got %d", got)
	}
}

func TestProcessServiceCompletion(t *testing.T) {
	a := models.AMC{
		StartDate:         "2025-01-01",
		EndDate:           "2025-12-31",
		IntervalMonths:    3,
		TotalServices:     4,
		ServicesCompleted: 1,
		IsActive:          true,
	}
	got := ProcessServiceCompletion(a, "2025-04-10")
	if got.ServicesCompleted != 2 {
		t.Fatalf("expected 2 services completed, got %d", got.ServicesCompleted)
	}
	if got.LastServiceDate != "2025-04-10" {
		t.Fatalf("expected lastServiceDate 2025-04-10, got %s", got.LastServiceDate)
	}
	if got.NextServiceDate != "2025-07-10" {
		t.Fatalf("expected nextServiceDate 2025-07-10, got %s", got.NextServiceDate)
	}
	if got.EndDate != "2025-12-31" {
		t.Fatalf("end date must never move, got %s", got.EndDate)
	}
}

func TestServiceReminderEdges(t *testing.T) {
	a := &models.AMC{
		EndDate:         "2025-12-31",
		NextServiceDate: "2025-06-15",
		IsActive:        true,
	}
	if ShouldShowServiceReminder(a, "2025-06-14") {
		t.Fatalf("must not fire before the due date")
	}
	if !ShouldShowServiceReminder(a, "2025-06-15") {
		t.Fatalf("must fire on the due date")
	}
	if !ShouldShowServiceReminder(a, "2025-07-01") {
		t.Fatalf("must keep firing after the due date")
	}
	if ShouldShowServiceReminder(a, "2026-01-01") {
		t.Fatalf("must not fire after the contract end")
	}

	inactive := *a
	inactive.IsActive = false
	if ShouldShowServiceReminder(&inactive, "2025-06-15") {
		t.Fatalf("inactive contracts get no service reminders")
	}
	if ShouldShowServiceReminder(nil, "2025-06-15") {
		t.Fatalf("nil contract must not fire")
	}
}

func TestRenewalReminderClassification(t *testing.T) {
	base := models.AMC{
		EndDate:           "2025-12-31",
		TotalServices:     4,
		ServicesCompleted: 2,
		IsActive:          true,
	}

	expired := base
	check := ShouldShowRenewalReminder(&expired, "2026-01-05")
	if !check.ShouldShow || check.DaysLeft != -5 || check.Reason != "AMC expired, renewal required" {
		t.Fatalf("expired: unexpected check %+v", check)
	}

	done := base
	done.ServicesCompleted = 4
	check = ShouldShowRenewalReminder(&done, "2025-08-01")
	if !check.ShouldShow || check.Reason != "All services completed, renewal required" {
		t.Fatalf("all services done: unexpected check %+v", check)
	}

	soon := base
	check = ShouldShowRenewalReminder(&soon, "2025-12-10")
	if !check.ShouldShow || check.DaysLeft != 21 || check.Reason != "AMC expiring soon" {
		t.Fatalf("expiring soon: unexpected check %+v", check)
	}

	check = ShouldShowRenewalReminder(&base, "2025-11-01")
	if check.ShouldShow {
		t.Fatalf("31+ days out must not show, got %+v", check)
	}

	check = ShouldShowRenewalReminder(nil, "2025-11-01")
	if check.ShouldShow || check.Reason != "No AMC data" {
		t.Fatalf("nil contract: unexpected check %+v", check)
	}
}

func TestCheckAndDeactivate(t *testing.T) {
	active := models.AMC{
		EndDate:           "2025-12-31",
		TotalServices:     4,
		ServicesCompleted: 2,
		IsActive:          true,
	}

	a, changed, _ := CheckAndDeactivate(active, "2025-06-01")
	if changed || !a.IsActive {
		t.Fatalf("healthy contract must stay active")
	}

	a, changed, reason := CheckAndDeactivate(active, "2026-01-01")
	if !changed || a.IsActive || reason != "AMC end date reached without renewal" {
		t.Fatalf("expired: changed=%v active=%v reason=%q", changed, a.IsActive, reason)
	}

	all := active
	all.ServicesCompleted = 4
	a, changed, reason = CheckAndDeactivate(all, "2025-06-01")
	if !changed || a.IsActive || reason != "All services completed, renewal required" {
		t.Fatalf("exhausted: changed=%v active=%v reason=%q", changed, a.IsActive, reason)
	}

	inactive := active
	inactive.IsActive = false
	if _, changed, _ := CheckAndDeactivate(inactive, "2026-01-01"); changed {
		t.Fatalf("already-inactive contract must not change again")
	}
}

func TestValidateAMC(t *testing.T) {
	errs, _ := ValidateAMC(nil)
	if len(errs) != 1 {
		t.Fatalf("expected one error for missing record, got %v", errs)
	}

	bad := &models.AMC{StartDate: "2025-06-01", EndDate: "2025-01-01"}
	errs, _ = ValidateAMC(bad)
	if len(errs) == 0 {
		t.Fatalf("expected errors for inverted dates and zero interval/services")
	}

	odd := &models.AMC{
		StartDate:         "2025-01-01",
		EndDate:           "2025-12-31",
		IntervalMonths:    3,
		TotalServices:     4,
		ServicesCompleted: 5,
	}
	errs, warnings := ValidateAMC(odd)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected an over-completion warning, got %v", warnings)
	}
}
