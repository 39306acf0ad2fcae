package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/backend/internal/automation"
)

// @Summary Automation status
// @Tags automation
// @Produce json
// @Success 200 {object} automation.Stats
// @Router /api/automation/status [get]
func (h *Handler) AutomationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Scheduler.Stats())
}

func (h *Handler) AutomationLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, h.Scheduler.Logs(limit))
}

type AutomationStartRequest struct {
	IntervalMinutes int `json:"intervalMinutes" validate:"gte=0"`
}

func (h *Handler) AutomationStart(c *gin.Context) {
	var req AutomationStartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	interval := automation.DefaultInterval
	if req.IntervalMinutes > 0 {
		interval = time.Duration(req.IntervalMinutes) * time.Minute
	}
	// the scheduler outlives this request
	h.Scheduler.Start(context.Background(), interval)
	c.JSON(http.StatusOK, gin.H{"running": h.Scheduler.Running()})
}

func (h *Handler) AutomationStop(c *gin.Context) {
	h.Scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"running": h.Scheduler.Running()})
}

// @Summary Run one automation tick now
// @Tags automation
// @Produce json
// @Success 200 {object} automation.TickSummary
// @Router /api/automation/run [post]
func (h *Handler) AutomationRun(c *gin.Context) {
	c.JSON(http.StatusOK, h.Scheduler.RunTasks(c.Request.Context()))
}

func (h *Handler) AutomationBackups(c *gin.Context) {
	backups, err := h.Scheduler.ListBackups(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list backups", err.Error())
		return
	}
	if backups == nil {
		backups = []automation.BackupInfo{}
	}
	c.JSON(http.StatusOK, backups)
}

func (h *Handler) AutomationBackupDownload(c *gin.Context) {
	raw, err := h.Scheduler.GetBackup(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load backup", err.Error())
		return
	}
	if raw == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Backup not found", nil)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *Handler) AutomationBackupNow(c *gin.Context) {
	snap, key, err := h.Scheduler.Backup(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Backup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "totalItems": snap.TotalItems, "timestamp": snap.Timestamp})
}

// @Summary Today's activity report
// @Tags automation
// @Produce json
// @Success 200 {object} automation.DailyReport
// @Router /api/reports/daily [get]
func (h *Handler) DailyReport(c *gin.Context) {
	report, err := h.Scheduler.BuildDailyReport(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to build report", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}
