package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habittracker/internal/service"
)

type HabitHandler struct {
	habitService *service.HabitService
	logger       *zap.Logger
}

func NewHabitHandler(habitService *service.HabitService, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
		logger:       logger,
	}
}

// List handles GET /api/habits
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	habits, err := h.habitService.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

// Get handles GET /api/habits/:id
func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	habit, err := h.habitService.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// Create handles POST /api/habits
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var in service.HabitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	habit, err := h.habitService.Create(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

// Update handles PUT /api/habits/:id
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in service.HabitUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	habit, err := h.habitService.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// Delete handles DELETE /api/habits/:id
func (h *HabitHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.habitService.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "habit deleted"})
}

// ToggleStatus handles PATCH /api/habits/:id/toggle-status
func (h *HabitHandler) ToggleStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	habit, err := h.habitService.ToggleActive(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// StatsOverview handles GET /api/habits/stats/overview
func (h *HabitHandler) StatsOverview(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	stats, err := h.habitService.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
