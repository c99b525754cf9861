package registry

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/pkg/response"
)

// GinHandlers contains HTTP handlers for schedule endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// CreateScheduleHandler handles POST requests to create a schedule
// Request body is the full schedule configuration
func (h *GinHandlers) CreateScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var cfg types.ScheduleConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.Create(&cfg); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, cfg)
	}
}

func (h *GinHandlers) ListSchedulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := h.service.List()
		response.Handle(c, configs, err)
	}
}

func (h *GinHandlers) GetScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := h.service.Get(c.Param("schedule_id"))
		response.Handle(c, cfg, err)
	}
}

// UpdateScheduleHandler handles PATCH requests with a partial config;
// omitted fields are left unchanged.
func (h *GinHandlers) UpdateScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch UpdatePatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		cfg, err := h.service.Update(c.Param("schedule_id"), patch)
		response.Handle(c, cfg, err)
	}
}

func (h *GinHandlers) DeleteScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheduleID := c.Param("schedule_id")
		if err := h.service.Delete(scheduleID); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"schedule_id": scheduleID, "deleted": true})
	}
}

func (h *GinHandlers) EnableScheduleHandler() gin.HandlerFunc {
	return h.setEnabledHandler(true)
}

func (h *GinHandlers) DisableScheduleHandler() gin.HandlerFunc {
	return h.setEnabledHandler(false)
}

func (h *GinHandlers) setEnabledHandler(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := h.service.SetEnabled(c.Param("schedule_id"), enabled)
		response.Handle(c, cfg, err)
	}
}

// ExecutionHistoryHandler handles GET requests for run history
// Query parameter: limit (optional)
func (h *GinHandlers) ExecutionHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				response.BadRequest(c, "limit must be a non-negative integer")
				return
			}
			limit = parsed
		}

		logs, err := h.service.GetExecutionHistory(c.Param("schedule_id"), limit)
		response.Handle(c, logs, err)
	}
}

func (h *GinHandlers) ConfidenceReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.GenerateConfidenceReport(c.Param("schedule_id"))
		response.Handle(c, report, err)
	}
}
