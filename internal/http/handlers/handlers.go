package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/automation"
	"github.com/fieldserve/backend/internal/cache"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/reminder"
	"github.com/fieldserve/backend/internal/ticketcode"
)

type Handler struct {
	Data      *cache.Store
	Codes     *ticketcode.Generator
	Monitor   *amc.Monitor
	Scheduler *automation.Scheduler
	Engine    reminder.Engine
	Audit     *audit.Logger
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Data.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Reminder and alert classification
// @Description Classify current customers, tickets and technicians into customer reminders and admin alerts
// @Tags reminders
// @Produce json
// @Success 200 {object} reminder.Classification
// @Router /api/reminders [get]
func (h *Handler) Reminders(c *gin.Context) {
	ctx := c.Request.Context()
	customers, err := h.Data.Customers(ctx, false)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customers", err.Error())
		return
	}
	tickets, err := h.Data.Tickets(ctx, false)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load tickets", err.Error())
		return
	}
	technicians, err := h.Data.Technicians(ctx, false)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load technicians", err.Error())
		return
	}

	result := h.Engine.Classify(customers, tickets, technicians, today())
	c.JSON(http.StatusOK, result)
}

func today() string {
	return time.Now().Format(models.DateLayout)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
