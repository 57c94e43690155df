package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habittracker/internal/db"
)

type HealthHandler struct {
	monitor *db.Monitor
}

func NewHealthHandler(monitor *db.Monitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// Status handles GET /api/health. Always 200: the process being able to
// answer is the health signal, store connectivity is reported in the body.
func (h *HealthHandler) Status(c *gin.Context) {
	database := "connected"
	if !h.monitor.Healthy() {
		database = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": database,
	})
}
