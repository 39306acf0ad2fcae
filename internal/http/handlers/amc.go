package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/store"
)

type AMCCustomerSummary struct {
	CustomerID      string `json:"customerId"`
	FullName        string `json:"fullName"`
	Status          string `json:"status"`
	EndDate         string `json:"endDate,omitempty"`
	NextServiceDate string `json:"nextServiceDate,omitempty"`
	ServicesDone    int    `json:"servicesDone"`
	TotalServices   int    `json:"totalServices"`
	ServiceDue      bool   `json:"serviceDue"`
	RenewalDue      bool   `json:"renewalDue"`
	RenewalReason   string `json:"renewalReason,omitempty"`
	DaysLeft        int    `json:"daysLeft"`
}

// @Summary AMC contract overview
// @Description Per AMC customer: contract progress plus service and renewal due flags for today
// @Tags amc
// @Produce json
// @Success 200 {array} AMCCustomerSummary
// @Router /api/amc/summary [get]
func (h *Handler) AMCSummary(c *gin.Context) {
	customers, err := h.Data.Customers(c.Request.Context(), false)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customers", err.Error())
		return
	}

	day := today()
	summaries := make([]AMCCustomerSummary, 0)
	for _, cust := range customers {
		if cust.CustomerType != models.CustomerTypeAMC || cust.AMC == nil {
			continue
		}
		renewal := amc.ShouldShowRenewalReminder(cust.AMC, day)
		summaries = append(summaries, AMCCustomerSummary{
			CustomerID:      cust.ID,
			FullName:        cust.FullName,
			Status:          cust.AMCStatus,
			EndDate:         cust.AMC.EndDate,
			NextServiceDate: cust.AMC.NextServiceDate,
			ServicesDone:    cust.AMC.ServicesCompleted,
			TotalServices:   cust.AMC.TotalServices,
			ServiceDue:      amc.ShouldShowServiceReminder(cust.AMC, day),
			RenewalDue:      renewal.ShouldShow,
			RenewalReason:   renewal.Reason,
			DaysLeft:        renewal.DaysLeft,
		})
	}
	c.JSON(http.StatusOK, summaries)
}

// @Summary Run the AMC status monitor
// @Description Sweep every customer and deactivate expired or exhausted contracts
// @Tags amc
// @Produce json
// @Success 200 {object} amc.MonitorSummary
// @Router /api/amc/monitor [post]
func (h *Handler) AMCMonitorRun(c *gin.Context) {
	summary, err := h.Monitor.MonitorAll(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Monitor sweep failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) AMCCustomerCheck(c *gin.Context) {
	result, err := h.Monitor.CheckAndUpdateStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Status check failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

type RescheduleValidateRequest struct {
	NewDate string `json:"newDate" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) ServiceRescheduleValidate(c *gin.Context) {
	var req RescheduleValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	check, err := h.Monitor.ValidateServiceReschedule(c.Request.Context(), c.Param("id"), req.NewDate)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Service not found", nil)
			return
		}
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Reschedule rejected", err.Error())
		return
	}
	c.JSON(http.StatusOK, check)
}

// ServiceComplete marks one service visit done and, for AMC-generated
// visits, advances the owning contract: services completed, last and next
// service dates, then the end-of-contract renewal check.
func (h *Handler) ServiceComplete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	visit, err := h.Data.Service(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Service not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load service", err.Error())
		return
	}
	if visit.Status == "completed" {
		writeError(c, http.StatusConflict, "INVALID_STATE", "Service already completed", nil)
		return
	}

	day := today()
	if err := h.Data.UpdateService(ctx, id, map[string]any{
		"status":      "completed",
		"completedAt": day,
	}); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to complete service", err.Error())
		return
	}

	resp := gin.H{"status": "ok"}
	if visit.AMCGenerated && visit.CustomerID != "" {
		cust, err := h.Data.Customer(ctx, visit.CustomerID)
		if err == nil && cust.AMC != nil {
			updated := amc.ProcessServiceCompletion(*cust.AMC, day)
			if err := h.Data.UpdateCustomer(ctx, cust.ID, map[string]any{"amc": updated}); err != nil {
				writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update contract", err.Error())
				return
			}
			h.Audit.Log("customer", cust.ID, audit.Entry{
				Before: map[string]any{"servicesCompleted": cust.AMC.ServicesCompleted},
				After:  map[string]any{"servicesCompleted": updated.ServicesCompleted},
				Actor:  "api",
				Reason: "service completion advanced AMC contract",
			})
			last, err := h.Monitor.CheckLastServiceCompleted(ctx, cust.ID, id)
			if err == nil && last.IsLastService {
				resp["renewalPrompt"] = last
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}
