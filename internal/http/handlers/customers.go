package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/store"
)

func (h *Handler) CustomersList(c *gin.Context) {
	customers, err := h.Data.Customers(c.Request.Context(), c.Query("refresh") == "true")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customers", err.Error())
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) CustomerDetails(c *gin.Context) {
	cust, err := h.Data.Customer(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customer", err.Error())
		return
	}
	c.JSON(http.StatusOK, cust)
}

type CreateCustomerRequest struct {
	FullName     string      `json:"fullName" validate:"required"`
	Phone        string      `json:"phone" validate:"required"`
	Address      string      `json:"address"`
	CustomerType string      `json:"customerType" validate:"required,oneof=AMC NON_AMC"`
	AMC          *models.AMC `json:"amc"`
}

// @Summary Create a customer
// @Description Create a customer, optionally with an AMC contract; the first service falls one interval after the start date
// @Tags customers
// @Accept json
// @Produce json
// @Param request body CreateCustomerRequest true "customer"
// @Success 201 {object} models.Customer
// @Failure 400 {object} map[string]any
// @Router /api/customers [post]
func (h *Handler) CustomerCreate(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if req.CustomerType == models.CustomerTypeAMC && req.AMC == nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "AMC customer requires an amc contract", nil)
		return
	}

	cust := models.Customer{
		FullName:     req.FullName,
		Phone:        req.Phone,
		Address:      req.Address,
		CustomerType: req.CustomerType,
	}
	var warnings []string
	if req.AMC != nil {
		contract := *req.AMC
		if contract.IntervalMonths <= 0 {
			contract.IntervalMonths = amc.DefaultIntervalMonths
		}
		errs, warns := amc.ValidateAMC(&contract)
		if len(errs) > 0 {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid AMC contract", strings.Join(errs, "; "))
			return
		}
		warnings = warns
		if contract.NextServiceDate == "" {
			contract.NextServiceDate = amc.AddMonths(contract.StartDate, contract.IntervalMonths)
		}
		contract.IsActive = true
		cust.AMC = &contract
		cust.AMCStatus = models.AMCStatusActive
	}

	created, err := h.Data.AddCustomer(c.Request.Context(), cust)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create customer", err.Error())
		return
	}
	h.Audit.Log("customer", created.ID, audit.Entry{
		After:  map[string]any{"fullName": created.FullName, "customerType": created.CustomerType},
		Actor:  "api",
		Reason: "customer created",
	})
	if len(warnings) > 0 {
		c.JSON(http.StatusCreated, gin.H{"customer": created, "warnings": warnings})
		return
	}
	c.JSON(http.StatusCreated, created)
}

type UpdateCustomerRequest struct {
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

func (h *Handler) CustomerUpdate(c *gin.Context) {
	id := c.Param("id")
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Data.Customer(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customer", err.Error())
		return
	}
	if err := h.Data.UpdateCustomer(ctx, id, req.Fields); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update customer", err.Error())
		return
	}
	h.Audit.Log("customer", id, audit.Entry{After: req.Fields, Actor: "api", Reason: "customer updated"})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) CustomerDelete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if _, err := h.Data.Customer(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customer", err.Error())
		return
	}
	if err := h.Data.DeleteCustomer(ctx, id, "api"); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete customer", err.Error())
		return
	}
	h.Audit.Log("customer", id, audit.Entry{Actor: "api", Reason: "customer soft-deleted"})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateTechnicianRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

func (h *Handler) TechniciansList(c *gin.Context) {
	technicians, err := h.Data.Technicians(c.Request.Context(), c.Query("refresh") == "true")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load technicians", err.Error())
		return
	}
	c.JSON(http.StatusOK, technicians)
}

func (h *Handler) TechnicianCreate(c *gin.Context) {
	var req CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	created, err := h.Data.AddTechnician(c.Request.Context(), models.Technician{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create technician", err.Error())
		return
	}
	c.JSON(http.StatusCreated, created)
}

type UpdateTechnicianRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (h *Handler) TechnicianUpdate(c *gin.Context) {
	id := c.Param("id")
	var req UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if err := h.Data.UpdateTechnician(c.Request.Context(), id, map[string]any{"status": req.Status}); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update technician", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) TechnicianRemove(c *gin.Context) {
	if err := h.Data.RemoveTechnician(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to remove technician", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
