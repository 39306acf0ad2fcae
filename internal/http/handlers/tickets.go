package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/store"
	"github.com/fieldserve/backend/internal/ticketcode"
)

// @Summary List tickets
// @Tags tickets
// @Produce json
// @Param refresh query bool false "force a cache refresh"
// @Success 200 {array} models.Ticket
// @Router /api/tickets [get]
func (h *Handler) TicketsList(c *gin.Context) {
	tickets, err := h.Data.Tickets(c.Request.Context(), c.Query("refresh") == "true")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load tickets", err.Error())
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *Handler) TicketDetails(c *gin.Context) {
	t, err := h.Data.Ticket(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load ticket", err.Error())
		return
	}
	c.JSON(http.StatusOK, t)
}

type CreateTicketRequest struct {
	Type                 string  `json:"type" validate:"omitempty,oneof=TICKET SERVICE COMPLAINT AMC"`
	CustomerID           string  `json:"customerId"`
	CustomerName         string  `json:"customerName" validate:"required"`
	Description          string  `json:"description"`
	ServiceType          string  `json:"serviceType"`
	ScheduledDate        string  `json:"scheduledDate" validate:"omitempty,datetime=2006-01-02"`
	ScheduledArrivalTime string  `json:"scheduledArrivalTime"`
	TakePayment          bool    `json:"takePayment"`
	PaymentAmount        float64 `json:"paymentAmount" validate:"gte=0"`
}

// @Summary Create a ticket
// @Description Create a ticket with a generated sequential ticket code
// @Tags tickets
// @Accept json
// @Produce json
// @Param request body CreateTicketRequest true "ticket"
// @Success 201 {object} models.Ticket
// @Failure 400 {object} map[string]any
// @Router /api/tickets [post]
func (h *Handler) TicketCreate(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ctx := c.Request.Context()
	if req.Type == "" {
		req.Type = models.TicketTypeTicket
	}
	code := h.Codes.Generate(ctx, req.Type)
	if err := ticketcode.Validate(code); err != nil {
		writeError(c, http.StatusInternalServerError, "CODE_ERROR", "Failed to generate ticket code", err.Error())
		return
	}
	t := models.Ticket{
		TicketCode:           code,
		Type:                 req.Type,
		Status:               models.TicketStatusOpen,
		CustomerID:           req.CustomerID,
		CustomerName:         req.CustomerName,
		Description:          req.Description,
		ServiceType:          req.ServiceType,
		ScheduledDate:        req.ScheduledDate,
		ScheduledArrivalTime: req.ScheduledArrivalTime,
		TakePayment:          req.TakePayment,
		PaymentAmount:        req.PaymentAmount,
		CreatedAt:            today(),
	}

	created, err := h.Data.AddTicket(ctx, t)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create ticket", err.Error())
		return
	}
	h.Audit.Log("ticket", created.ID, audit.Entry{
		After:  map[string]any{"ticketCode": created.TicketCode, "status": created.Status},
		Actor:  "api",
		Reason: "ticket created",
	})
	c.JSON(http.StatusCreated, created)
}

type UpdateTicketRequest struct {
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

func (h *Handler) TicketUpdate(c *gin.Context) {
	id := c.Param("id")
	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ctx := c.Request.Context()
	before, err := h.Data.Ticket(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load ticket", err.Error())
		return
	}
	if err := h.Data.UpdateTicket(ctx, id, req.Fields); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update ticket", err.Error())
		return
	}
	h.Audit.Log("ticket", id, audit.Entry{
		Before: map[string]any{"status": before.Status},
		After:  req.Fields,
		Actor:  "api",
		Reason: "ticket updated",
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) TicketDelete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if _, err := h.Data.Ticket(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load ticket", err.Error())
		return
	}
	if err := h.Data.DeleteTicket(ctx, id, "api"); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete ticket", err.Error())
		return
	}
	h.Audit.Log("ticket", id, audit.Entry{Actor: "api", Reason: "ticket soft-deleted"})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
