package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/service"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/response"
)

// LessonHandler wires lesson lifecycle operations to HTTP routes.
type LessonHandler struct {
	lessons *service.LessonService
}

// NewLessonHandler constructs a new LessonHandler.
func NewLessonHandler(lessons *service.LessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

// List godoc
// @Summary List lessons
// @Tags Lessons
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param teacherId query string false "Filter by teacher"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	filter := models.LessonFilter{
		StudentID: c.Query("studentId"),
		TeacherID: c.Query("teacherId"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.LessonStatus(raw)
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	lessons, pagination, err := h.lessons.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, pagination)
}

// Get godoc
// @Summary Get lesson detail with its video session
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	detail, err := h.lessons.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Start godoc
// @Summary Move a scheduled lesson into progress
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Router /lessons/{id}/start [post]
func (h *LessonHandler) Start(c *gin.Context) {
	if err := h.lessons.Start(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete a lesson, optionally recording the AI summary
// @Tags Lessons
// @Accept json
// @Param id path string true "Lesson ID"
// @Param payload body service.CompleteLessonRequest false "Completion payload"
// @Success 204
// @Router /lessons/{id}/complete [post]
func (h *LessonHandler) Complete(c *gin.Context) {
	var req service.CompleteLessonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
			return
		}
	}
	if err := h.lessons.Complete(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Cancel godoc
// @Summary Cancel a lesson
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Router /lessons/{id}/cancel [post]
func (h *LessonHandler) Cancel(c *gin.Context) {
	if err := h.lessons.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateVideoLink godoc
// @Summary Replace the meeting link of a video lesson
// @Tags Lessons
// @Accept json
// @Param id path string true "Lesson ID"
// @Param payload body service.UpdateVideoLinkRequest true "Link payload"
// @Success 204
// @Router /lessons/{id}/video-link [put]
func (h *LessonHandler) UpdateVideoLink(c *gin.Context) {
	var req service.UpdateVideoLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid meeting link payload"))
		return
	}
	if err := h.lessons.UpdateVideoLink(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
