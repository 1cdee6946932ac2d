package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inventory-bot-backend/internal/cycle"
)

type failureResponse struct {
	Unit  string     `json:"unit"`
	Kind  cycle.Kind `json:"kind"`
	Error string     `json:"error"`
}

type cycleResponse struct {
	Monitor   string            `json:"monitor"`
	CycleID   string            `json:"cycleId"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  string            `json:"duration"`
	Scanned   int               `json:"scanned"`
	Actions   int               `json:"actions"`
	Notified  int               `json:"notified"`
	Failures  []failureResponse `json:"failures"`
}

// GetHealth handles GET /api/health. It answers 503 while the last check is failing.
func (h *Handler) GetHealth(c *gin.Context) {
	report, ok := h.status.Health()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "unknown"})
		return
	}

	status, code := "ok", http.StatusOK
	if !report.OK() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "report": report})
}

// GetCycles handles GET /api/cycles with the latest report of every monitor.
func (h *Handler) GetCycles(c *gin.Context) {
	reports := h.status.Reports()
	response := make([]cycleResponse, 0, len(reports))
	for _, r := range reports {
		failures := make([]failureResponse, 0, len(r.Failures))
		for _, f := range r.Failures {
			failures = append(failures, failureResponse{Unit: f.Unit, Kind: f.Kind, Error: f.Err.Error()})
		}
		response = append(response, cycleResponse{
			Monitor:   r.Monitor,
			CycleID:   r.CycleID,
			StartedAt: r.StartedAt,
			Duration:  r.Duration.String(),
			Scanned:   r.Scanned,
			Actions:   r.Actions,
			Notified:  r.Notified,
			Failures:  failures,
		})
	}
	c.JSON(http.StatusOK, response)
}
