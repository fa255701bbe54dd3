package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/service"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/response"
)

// AvailabilityHandler wires slot and request management to HTTP routes.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs a new AvailabilityHandler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// CreateSlot godoc
// @Summary Declare an availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /teachers/{id}/availability [post]
func (h *AvailabilityHandler) CreateSlot(c *gin.Context) {
	var req service.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.availability.CreateSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// ListSlots godoc
// @Summary List a teacher's availability slots
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *AvailabilityHandler) ListSlots(c *gin.Context) {
	slots, err := h.availability.ListSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// DeleteSlot godoc
// @Summary Delete an availability slot
// @Tags Availability
// @Param id path string true "Teacher ID"
// @Param sid path string true "Slot ID"
// @Success 204
// @Router /teachers/{id}/availability/{sid} [delete]
func (h *AvailabilityHandler) DeleteSlot(c *gin.Context) {
	if err := h.availability.DeleteSlot(c.Request.Context(), c.Param("id"), c.Param("sid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateRequest godoc
// @Summary File a student availability request
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.CreateAvailabilityRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /availability-requests [post]
func (h *AvailabilityHandler) CreateRequest(c *gin.Context) {
	var req service.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	record, err := h.availability.CreateRequest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ListRequests godoc
// @Summary List a student's availability requests
// @Tags Availability
// @Produce json
// @Param studentId query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /availability-requests [get]
func (h *AvailabilityHandler) ListRequests(c *gin.Context) {
	studentID := c.Query("studentId")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId is required"))
		return
	}
	requests, err := h.availability.ListRequests(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
