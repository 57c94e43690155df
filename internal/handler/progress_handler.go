package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habittracker/internal/repository"
	"habittracker/internal/service"
	"habittracker/pkg/metrics"
)

type ProgressHandler struct {
	progressService *service.ProgressService
	logger          *zap.Logger
}

func NewProgressHandler(progressService *service.ProgressService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		logger:          logger,
	}
}

// Upsert handles POST /api/progress. Responds 201 when a new record was
// inserted and 200 when an existing (habit, date) record was overwritten.
func (h *ProgressHandler) Upsert(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var in service.ProgressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	progress, created, err := h.progressService.Upsert(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	metrics.IncrementProgressUpsert(created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"progress": progress})
}

// List handles GET /api/progress
func (h *ProgressHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	filter := repository.ProgressFilter{
		Date:      c.Query("date"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
	if raw := c.Query("habitId"); raw != "" {
		habitID, err := strconv.Atoi(raw)
		if err != nil || habitID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid habitId"})
			return
		}
		filter.HabitID = habitID
	}

	records, err := h.progressService.Query(c.Request.Context(), userID, filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": records})
}

// ByDate handles GET /api/progress/date/:date
func (h *ProgressHandler) ByDate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	records, err := h.progressService.Query(c.Request.Context(), userID, repository.ProgressFilter{
		Date: c.Param("date"),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": records})
}

// ByHabit handles GET /api/progress/habit/:habitId
func (h *ProgressHandler) ByHabit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	habitID, ok := pathID(c, "habitId")
	if !ok {
		return
	}

	filter := repository.ProgressFilter{
		HabitID:   habitID,
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	records, err := h.progressService.Query(c.Request.Context(), userID, filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": records})
}

// Update handles PUT /api/progress/:id
func (h *ProgressHandler) Update(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in service.ProgressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	progress, err := h.progressService.UpdateByID(c.Request.Context(), userID, id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// Delete handles DELETE /api/progress/:id
func (h *ProgressHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.progressService.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "progress deleted"})
}

// ToggleCompletion handles PATCH /api/progress/:id/toggle-completion
func (h *ProgressHandler) ToggleCompletion(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	progress, err := h.progressService.ToggleCompletion(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// StatsOverview handles GET /api/progress/stats/overview
func (h *ProgressHandler) StatsOverview(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	stats, err := h.progressService.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
