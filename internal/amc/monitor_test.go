package amc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/cache"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/store"
)

func newMonitor(t *testing.T) (*Monitor, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	data := cache.New(mem, time.Minute, zerolog.Nop())
	m := &Monitor{
		Data:   data,
		Audit:  &audit.Logger{},
		Logger: zerolog.Nop(),
		Now: func() time.Time {
			return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		},
	}
	return m, mem
}

func seedCustomer(t *testing.T, mem *store.Memory, id string, c models.Customer) {
	t.Helper()
	if err := mem.Set(context.Background(), "customers/"+id, c); err != nil {
		t.Fatalf("seed customer %s: %v", id, err)
	}
}

func seedService(t *testing.T, mem *store.Memory, id string, v models.ServiceVisit) {
	t.Helper()
	if err := mem.Set(context.Background(), "services/"+id, v); err != nil {
		t.Fatalf("seed service %s: %v", id, err)
	}
}

func amcCustomer(endDate string) models.Customer {
	return models.Customer{
		FullName:     "Asha Rao",
		Phone:        "9000000001",
		CustomerType: models.CustomerTypeAMC,
		AMCStatus:    models.AMCStatusActive,
		AMC: &models.AMC{
			StartDate:      "2025-01-01",
			EndDate:        endDate,
			IntervalMonths: 3,
			TotalServices:  4,
			IsActive:       true,
		},
	}
}

func TestStatusTransitionOnExpiry(t *testing.T) {
	m, gw := newMonitor(t)
	ctx := context.Background()
	seedCustomer(t, gw, "c1", amcCustomer("2025-06-01"))

	result, err := m.CheckAndUpdateStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.StatusChanged {
		t.Fatalf("expected a status change, got %+v", result)
	}
	if result.OldStatus != models.AMCStatusActive || result.NewStatus != models.AMCStatusInactive {
		t.Fatalf("expected Active -> Inactive, got %+v", result)
	}
	if result.Reason != "AMC end date reached without renewal" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}

	cust, err := m.Data.Customer(ctx, "c1")
	if err != nil {
		t.Fatalf("reload customer: %v", err)
	}
	if cust.AMCStatus != models.AMCStatusInactive || cust.AMCStatusReason == "" {
		t.Fatalf("customer record not updated: %+v", cust)
	}
	if cust.AMCStatusUpdatedAt != "2025-06-15T12:00:00Z" {
		t.Fatalf("status timestamp must come from the monitor clock, got %q", cust.AMCStatusUpdatedAt)
	}

	// repeated runs are a no-op
	again, err := m.CheckAndUpdateStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if again.StatusChanged {
		t.Fatalf("second run must not change anything, got %+v", again)
	}
}

func TestStatusTransitionOnFourCompletedServices(t *testing.T) {
	m, gw := newMonitor(t)
	ctx := context.Background()

	seedCustomer(t, gw, "c1", amcCustomer("2025-12-31"))
	for i := 1; i <= 4; i++ {
		seedService(t, gw, string(rune('a'+i)), models.ServiceVisit{
			CustomerID:       "c1",
			Status:           models.TicketStatusCompleted,
			AMCGenerated:     true,
			AMCServiceNumber: i,
		})
	}

	result, err := m.CheckAndUpdateStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.StatusChanged || result.Reason != "4 services completed, renewal required" {
		t.Fatalf("expected the four-services transition, got %+v", result)
	}
}

func TestNonAMCCustomerIsNoop(t *testing.T) {
	m, gw := newMonitor(t)
	seedCustomer(t, gw, "c1", models.Customer{
		FullName:     "Walk In",
		Phone:        "9000000002",
		CustomerType: models.CustomerTypeNonAMC,
	})

	result, err := m.CheckAndUpdateStatus(context.Background(), "c1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.StatusChanged || result.Reason != "Not an AMC customer" {
		t.Fatalf("expected a no-op, got %+v", result)
	}
}

func TestMonitorAllSweep(t *testing.T) {
	m, gw := newMonitor(t)

	seedCustomer(t, gw, "c1", amcCustomer("2025-06-01"))
	seedCustomer(t, gw, "c2", amcCustomer("2025-12-31"))
	seedCustomer(t, gw, "c3", models.Customer{
		FullName:     "Walk In",
		Phone:        "9000000003",
		CustomerType: models.CustomerTypeNonAMC,
	})

	summary, err := m.MonitorAll(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected 2 AMC customers processed, got %d", summary.Processed)
	}
	if summary.Updated != 1 {
		t.Fatalf("expected 1 status update, got %d", summary.Updated)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", summary.Errors)
	}
}

func TestMonitorAllIsolatesFailures(t *testing.T) {
	m, gw := newMonitor(t)

	seedCustomer(t, gw, "c1", amcCustomer("2025-06-01"))
	seedCustomer(t, gw, "c2", amcCustomer("2025-05-20"))
	gw.FailWrites = errors.New("write refused")

	summary, err := m.MonitorAll(context.Background())
	if err != nil {
		t.Fatalf("sweep must not abort on per-customer failures: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected both customers processed, got %d", summary.Processed)
	}
	if summary.Updated != 0 {
		t.Fatalf("expected no updates while writes fail, got %d", summary.Updated)
	}
	if len(summary.Errors) != 2 {
		t.Fatalf("expected 2 collected errors, got %v", summary.Errors)
	}
	seen := map[string]bool{}
	for _, ce := range summary.Errors {
		seen[ce.CustomerID] = true
	}
	if !seen["c1"] || !seen["c2"] {
		t.Fatalf("errors must name both customers, got %v", summary.Errors)
	}
}

func TestCheckLastServiceCompleted(t *testing.T) {
	m, gw := newMonitor(t)
	ctx := context.Background()

	seedCustomer(t, gw, "c1", amcCustomer("2025-12-31"))
	for i := 1; i <= 4; i++ {
		seedService(t, gw, string(rune('a'+i)), models.ServiceVisit{
			CustomerID:       "c1",
			Status:           models.TicketStatusCompleted,
			AMCGenerated:     true,
			AMCServiceNumber: i,
		})
	}

	result, err := m.CheckLastServiceCompleted(ctx, "c1", "e")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.IsLastService || !result.ShouldPromptRenewal {
		t.Fatalf("expected renewal prompt after the fourth visit, got %+v", result)
	}

	// third visit completing is not the end of the contract
	result, err = m.CheckLastServiceCompleted(ctx, "c1", "d")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.IsLastService {
		t.Fatalf("service 3 must not report as the last one, got %+v", result)
	}
}

func TestValidateServiceReschedule(t *testing.T) {
	m, gw := newMonitor(t)
	ctx := context.Background()

	seedService(t, gw, "s1", models.ServiceVisit{
		CustomerID:       "c1",
		Status:           "scheduled",
		ScheduledDate:    "2025-06-10",
		AMCGenerated:     true,
		AMCServiceNumber: 2,
		AMCOriginalDate:  "2025-06-10",
	})
	seedService(t, gw, "s2", models.ServiceVisit{
		CustomerID:    "c9",
		Status:        "scheduled",
		ScheduledDate: "2025-06-10",
	})

	check, err := m.ValidateServiceReschedule(ctx, "s1", "2025-06-25")
	if err != nil {
		t.Fatalf("same-month reschedule: %v", err)
	}
	if !check.Valid || len(check.Warnings) != 0 {
		t.Fatalf("same-month reschedule should be clean, got %+v", check)
	}

	check, err = m.ValidateServiceReschedule(ctx, "s1", "2025-07-05")
	if err != nil {
		t.Fatalf("cross-month reschedule: %v", err)
	}
	if !check.Valid || len(check.Warnings) != 1 {
		t.Fatalf("expected one month-boundary warning, got %+v", check)
	}
	if check.OriginalDate != "2025-06-10" || check.ServiceNumber != 2 {
		t.Fatalf("contract context missing from check: %+v", check)
	}

	check, err = m.ValidateServiceReschedule(ctx, "s2", "2025-07-05")
	if err != nil {
		t.Fatalf("ad-hoc reschedule: %v", err)
	}
	if !check.Valid || len(check.Warnings) != 0 {
		t.Fatalf("ad-hoc visits carry no contract warnings, got %+v", check)
	}

	if _, err := m.ValidateServiceReschedule(ctx, "s1", "07/05/2025"); err == nil {
		t.Fatalf("malformed date must be rejected")
	}
}
