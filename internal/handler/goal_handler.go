package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/middleware"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/service"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/response"
)

// GoalHandler wires group goals and progress recomputation to HTTP routes.
type GoalHandler struct {
	goals *service.GoalService
}

// NewGoalHandler constructs a new GoalHandler.
func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// Create godoc
// @Summary Create a group goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param payload body service.CreateGoalRequest true "Goal payload"
// @Success 201 {object} response.Envelope
// @Router /goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	var req service.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid goal payload"))
		return
	}
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	goal, err := h.goals.CreateGoal(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, goal)
}

// ListByGroup godoc
// @Summary List goals for a group
// @Tags Goals
// @Produce json
// @Param groupId query string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /goals [get]
func (h *GoalHandler) ListByGroup(c *gin.Context) {
	groupID := c.Query("groupId")
	if groupID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "groupId is required"))
		return
	}
	goals, err := h.goals.ListGroupGoals(c.Request.Context(), groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, goals, nil)
}

// Progress godoc
// @Summary List recorded progress for a goal
// @Tags Goals
// @Produce json
// @Param id path string true "Goal ID"
// @Success 200 {object} response.Envelope
// @Router /goals/{id}/progress [get]
func (h *GoalHandler) Progress(c *gin.Context) {
	rows, err := h.goals.GoalProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Recompute godoc
// @Summary Recompute one student's progress toward a goal
// @Tags Goals
// @Produce json
// @Param id path string true "Goal ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /goals/{id}/progress/{studentId}/recompute [post]
func (h *GoalHandler) Recompute(c *gin.Context) {
	result, err := h.goals.Recompute(c.Request.Context(), c.Param("studentId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
