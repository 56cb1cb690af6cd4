package handlers

import (
	"net/http"

	"fastaid/middleware"
	"fastaid/services/stats"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	Stats stats.StatsService
}

func NewStatsHandler(svc stats.StatsService) *StatsHandler {
	return &StatsHandler{Stats: svc}
}

// GetStats returns the dashboard counters; the per-requester count is only
// filled for requesters.
func (h *StatsHandler) GetStats(c *gin.Context) {
	requesterID := ""
	if middleware.Role(c) == utils.RoleRequester {
		requesterID = middleware.Subject(c)
	}
	out, err := h.Stats.Dashboard(c.Request.Context(), requesterID)
	if err != nil {
		utils.RespondError(c, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, out)
}
