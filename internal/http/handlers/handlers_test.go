package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/automation"
	"github.com/fieldserve/backend/internal/cache"
	"github.com/fieldserve/backend/internal/http/middleware"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/notify"
	"github.com/fieldserve/backend/internal/reminder"
	"github.com/fieldserve/backend/internal/store"
	"github.com/fieldserve/backend/internal/ticketcode"
)

func newHandler(t *testing.T) (*Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	data := cache.New(mem, time.Minute, zerolog.Nop())
	auditLog := &audit.Logger{Gateway: mem, Logger: zerolog.Nop(), DefaultActor: "automation"}
	now := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	monitor := &amc.Monitor{Data: data, Audit: auditLog, Logger: zerolog.Nop(), Now: now}
	scheduler := automation.New(data, auditLog, notify.LogTransport{Logger: zerolog.Nop()}, monitor, reminder.Engine{}, zerolog.Nop())
	scheduler.Now = now
	return &Handler{
		Data:      data,
		Codes:     &ticketcode.Generator{Source: data, Logger: zerolog.Nop()},
		Monitor:   monitor,
		Scheduler: scheduler,
		Engine:    reminder.Engine{},
		Audit:     auditLog,
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}, mem
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTicketCreateGeneratesCode(t *testing.T) {
	h, _ := newHandler(t)
	r := gin.New()
	r.POST("/api/tickets", h.TicketCreate)

	w := doJSON(t, r, http.MethodPost, "/api/tickets", map[string]any{
		"type":         "SERVICE",
		"customerName": "Asha Rao",
		"description":  "quarterly check",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Ticket
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.TicketCode != "SV01" {
		t.Fatalf("expected SV01 for the first service ticket, got %s", created.TicketCode)
	}
	if created.Status != models.TicketStatusOpen || created.CreatedAt == "" || created.ID == "" {
		t.Fatalf("incomplete ticket: %+v", created)
	}

	// second create advances the sequence
	w = doJSON(t, r, http.MethodPost, "/api/tickets", map[string]any{
		"type":         "SERVICE",
		"customerName": "Vikram Shah",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.TicketCode != "SV02" {
		t.Fatalf("expected SV02, got %s", created.TicketCode)
	}
}

func TestTicketCreateValidation(t *testing.T) {
	h, _ := newHandler(t)
	r := gin.New()
	r.POST("/api/tickets", h.TicketCreate)

	w := doJSON(t, r, http.MethodPost, "/api/tickets", map[string]any{
		"type": "SERVICE",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing customerName must fail, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/tickets", map[string]any{
		"type":         "NOT_A_TYPE",
		"customerName": "Asha Rao",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown type must fail validation, got %d", w.Code)
	}
}

func TestCustomerCreateWithContract(t *testing.T) {
	h, _ := newHandler(t)
	r := gin.New()
	r.POST("/api/customers", h.CustomerCreate)

	w := doJSON(t, r, http.MethodPost, "/api/customers", map[string]any{
		"fullName":     "Asha Rao",
		"phone":        "9000000001",
		"customerType": "AMC",
		"amc": map[string]any{
			"startDate":     "2025-06-01",
			"endDate":       "2026-05-31",
			"totalServices": 4,
			"amount":        12000,
		},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Customer
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.AMC == nil || created.AMC.IntervalMonths != 3 {
		t.Fatalf("interval must default to quarterly: %+v", created.AMC)
	}
	if created.AMC.NextServiceDate != "2025-09-01" {
		t.Fatalf("first service must fall one interval after start, got %s", created.AMC.NextServiceDate)
	}
	if created.AMCStatus != models.AMCStatusActive || !created.AMC.IsActive {
		t.Fatalf("new contract must start active: %+v", created)
	}

	// AMC customer without a contract is rejected
	w = doJSON(t, r, http.MethodPost, "/api/customers", map[string]any{
		"fullName":     "Vikram Shah",
		"phone":        "9000000002",
		"customerType": "AMC",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("AMC customer without contract must fail, got %d", w.Code)
	}
}

func TestRemindersEndpoint(t *testing.T) {
	h, mem := newHandler(t)
	r := gin.New()
	r.GET("/api/reminders", h.Reminders)

	endDate := time.Now().AddDate(0, 0, 5).Format(models.DateLayout)
	if err := mem.Set(context.Background(), "customers/c1", models.Customer{
		FullName: "Asha Rao", Phone: "9000000001", CustomerType: models.CustomerTypeAMC,
		AMCStatus: models.AMCStatusActive,
		AMC: &models.AMC{
			StartDate: "2024-06-01", EndDate: endDate,
			IntervalMonths: 3, TotalServices: 4, IsActive: true,
		},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/reminders", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var out reminder.Classification
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	foundRenewal := false
	for _, rem := range out.Reminders {
		if rem.Type == reminder.TypeAMCRenewal {
			foundRenewal = true
		}
	}
	if !foundRenewal {
		t.Fatalf("contract expiring in 5 days must produce a renewal reminder: %s", w.Body.String())
	}
	foundAlert := false
	for _, a := range out.Alerts {
		if a.Type == reminder.AlertAMCRenewal && a.Priority == reminder.PriorityHigh {
			foundAlert = true
		}
	}
	if !foundAlert {
		t.Fatalf("renewal within 7 days must raise a high alert: %s", w.Body.String())
	}
}

func TestAdminKeyGuardsMutations(t *testing.T) {
	h, _ := newHandler(t)
	r := gin.New()
	admin := r.Group("/api")
	admin.Use(middleware.AdminKey("secret"))
	admin.POST("/tickets", h.TicketCreate)

	body := map[string]any{"customerName": "Asha Rao"}

	w := doJSON(t, r, http.MethodPost, "/api/tickets", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing admin key must 401, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/tickets", body, map[string]string{"X-Admin-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong admin key must 401, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/tickets", body, map[string]string{"X-Admin-Key": "secret"})
	if w.Code != http.StatusCreated {
		t.Fatalf("valid admin key must pass, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAutomationRunEndpoint(t *testing.T) {
	h, _ := newHandler(t)
	r := gin.New()
	r.POST("/api/automation/run", h.AutomationRun)
	r.GET("/api/automation/status", h.AutomationStatus)

	w := doJSON(t, r, http.MethodPost, "/api/automation/run", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var summary automation.TickSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summary.Results) != 6 || summary.Succeeded != 6 {
		t.Fatalf("expected six successful tasks, got %+v", summary)
	}

	w = doJSON(t, r, http.MethodGet, "/api/automation/status", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats automation.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Running {
		t.Fatalf("scheduler was never started, got %+v", stats)
	}
	if stats.TasksCompleted != 6 {
		t.Fatalf("manual run must count toward stats, got %+v", stats)
	}
}

func TestAMCSummaryEndpoint(t *testing.T) {
	h, mem := newHandler(t)
	r := gin.New()
	r.GET("/api/amc/summary", h.AMCSummary)

	past := time.Now().AddDate(0, 0, -10).Format(models.DateLayout)
	future := time.Now().AddDate(0, 6, 0).Format(models.DateLayout)
	if err := mem.Set(context.Background(), "customers/c1", models.Customer{
		FullName: "Asha Rao", Phone: "9000000001", CustomerType: models.CustomerTypeAMC,
		AMCStatus: models.AMCStatusActive,
		AMC: &models.AMC{
			StartDate: "2025-01-01", EndDate: future,
			IntervalMonths: 3, TotalServices: 4, ServicesCompleted: 1,
			LastServiceDate: past, NextServiceDate: past,
			IsActive: true,
		},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/amc/summary", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out []AMCCustomerSummary
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one AMC customer, got %d", len(out))
	}
	if !out[0].ServiceDue {
		t.Fatalf("overdue next service date must flag serviceDue: %+v", out[0])
	}
	if out[0].RenewalDue {
		t.Fatalf("six months out is not renewal territory: %+v", out[0])
	}
}
