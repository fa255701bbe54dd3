package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/service"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/response"
)

// MatchingHandler wires the matching engine to HTTP routes.
type MatchingHandler struct {
	matching *service.MatchingService
}

// NewMatchingHandler constructs a new MatchingHandler.
func NewMatchingHandler(matching *service.MatchingService) *MatchingHandler {
	return &MatchingHandler{matching: matching}
}

// MatchScheduled godoc
// @Summary Match a pending availability request to a teacher
// @Tags Matching
// @Produce json
// @Param id path string true "Availability request ID"
// @Success 201 {object} response.Envelope
// @Router /availability-requests/{id}/match [post]
func (h *MatchingHandler) MatchScheduled(c *gin.Context) {
	result, err := h.matching.MatchScheduled(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// MatchInstant godoc
// @Summary Match a student to a teacher available right now
// @Tags Matching
// @Accept json
// @Produce json
// @Param payload body service.InstantMatchRequest true "Instant match payload"
// @Success 200 {object} response.Envelope
// @Router /matches/instant [post]
func (h *MatchingHandler) MatchInstant(c *gin.Context) {
	var req service.InstantMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instant match payload"))
		return
	}
	result, err := h.matching.MatchInstant(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Available {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}
