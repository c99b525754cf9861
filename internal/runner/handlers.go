package runner

import (
	"github.com/gin-gonic/gin"

	"github.com/ksred/restock-api/pkg/response"
)

// GinHandlers contains HTTP handlers for internal runner endpoints
type GinHandlers struct {
	runner *Runner
}

func NewGinHandlers(runner *Runner) *GinHandlers {
	return &GinHandlers{runner: runner}
}

// RunScheduleHandler triggers an on-demand execution of a schedule.
// Internal-only; the UI exposes it as "run now".
func (h *GinHandlers) RunScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		execLog, err := h.runner.RunSchedule(c.Request.Context(), c.Param("schedule_id"))
		response.Handle(c, execLog, err)
	}
}
