package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/automation"
	"github.com/fieldserve/backend/internal/cache"
	"github.com/fieldserve/backend/internal/config"
	"github.com/fieldserve/backend/internal/http/handlers"
	"github.com/fieldserve/backend/internal/http/middleware"
	"github.com/fieldserve/backend/internal/reminder"
	"github.com/fieldserve/backend/internal/ticketcode"

	_ "github.com/fieldserve/backend/docs"
)

func Router(cfg config.Config, data *cache.Store, codes *ticketcode.Generator, monitor *amc.Monitor, scheduler *automation.Scheduler, engine reminder.Engine, auditLog *audit.Logger, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Data:      data,
		Codes:     codes,
		Monitor:   monitor,
		Scheduler: scheduler,
		Engine:    engine,
		Audit:     auditLog,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/tickets", h.TicketsList)
		api.GET("/tickets/:id", h.TicketDetails)
		api.GET("/customers", h.CustomersList)
		api.GET("/customers/:id", h.CustomerDetails)
		api.GET("/technicians", h.TechniciansList)
		api.GET("/reminders", h.Reminders)
		api.GET("/amc/summary", h.AMCSummary)
		api.GET("/automation/status", h.AutomationStatus)
		api.GET("/automation/logs", h.AutomationLogs)
		api.GET("/automation/backups", h.AutomationBackups)
		api.GET("/reports/daily", h.DailyReport)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/tickets", h.TicketCreate)
		admin.PATCH("/tickets/:id", h.TicketUpdate)
		admin.DELETE("/tickets/:id", h.TicketDelete)
		admin.POST("/customers", h.CustomerCreate)
		admin.PATCH("/customers/:id", h.CustomerUpdate)
		admin.DELETE("/customers/:id", h.CustomerDelete)
		admin.POST("/technicians", h.TechnicianCreate)
		admin.PATCH("/technicians/:id", h.TechnicianUpdate)
		admin.DELETE("/technicians/:id", h.TechnicianRemove)
		admin.POST("/amc/monitor", h.AMCMonitorRun)
		admin.POST("/amc/customers/:id/check", h.AMCCustomerCheck)
		admin.POST("/services/:id/reschedule/validate", h.ServiceRescheduleValidate)
		admin.POST("/services/:id/complete", h.ServiceComplete)
		admin.POST("/automation/start", h.AutomationStart)
		admin.POST("/automation/stop", h.AutomationStop)
		admin.POST("/automation/run", h.AutomationRun)
		admin.POST("/automation/backup", h.AutomationBackupNow)
		admin.GET("/automation/backups/:key", h.AutomationBackupDownload)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
