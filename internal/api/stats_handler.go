package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"arahkarir/internal/visitor"
)

// StatsHandler serves public usage statistics.
type StatsHandler struct {
	visitors visitor.Store
}

// NewStatsHandler builds the stats handler.
func NewStatsHandler(visitors visitor.Store) *StatsHandler {
	return &StatsHandler{visitors: visitors}
}

// ActiveVisitors returns the number of visitors seen within the activity window.
func (h *StatsHandler) ActiveVisitors(c *gin.Context) {
	count, err := h.visitors.ActiveCount(c.Request.Context())
	if err != nil {
		Internal(c, "failed to count visitors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_visitors": count})
}
