package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dishcovery/api/internal/model"
	"github.com/dishcovery/api/internal/service"
	"github.com/dishcovery/api/internal/session"
	"github.com/dishcovery/api/pkg/response"
)

type SessionHandler struct {
	service   *service.SessionService
	validator *validator.Validate
}

func NewSessionHandler(svc *service.SessionService, v *validator.Validate) *SessionHandler {
	return &SessionHandler{
		service:   svc,
		validator: v,
	}
}

// Get handles GET /api/session/:id
// @Summary      Get session
// @Description  Get the full session view grouped by category
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} model.SessionView
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id} [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sess, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.OK(c, h.service.View(sess))
}

// Swap handles POST /api/session/:id/slots/:slotId/swap
// @Summary      Swap a dish
// @Description  Replace the slot's displayed dish from the local queue or the remote pool. An exhausted pool returns the recovery choices.
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        slotId path string true "Slot ID"
// @Success      200 {object} model.SwapResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id}/slots/{slotId}/swap [post]
func (h *SessionHandler) Swap(c *fiber.Ctx) error {
	result, err := h.service.Swap(c.Context(), c.Params("id"), c.Params("slotId"))
	if err != nil {
		return h.mapError(c, err)
	}
	if result.Exhausted != nil {
		return response.Error(c, fiber.StatusConflict, response.CodePoolExhausted,
			"No more dishes to offer in this category", result.Exhausted)
	}
	return response.OK(c, result)
}

// Keep handles POST /api/session/:id/slots/:slotId/keep
// @Summary      Keep current dish
// @Description  Resolve an exhausted pool by selecting the still-displayed dish
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        slotId path string true "Slot ID"
// @Success      200 {object} model.SlotView
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id}/slots/{slotId}/keep [post]
func (h *SessionHandler) Keep(c *fiber.Ctx) error {
	slot, err := h.service.KeepCurrent(c.Context(), c.Params("id"), c.Params("slotId"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.OK(c, slot)
}

// Restore handles POST /api/session/:id/slots/:slotId/restore
// @Summary      Restore swapped dishes
// @Description  Move the category's swapped-away dishes back into the slot and swap once
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        slotId path string true "Slot ID"
// @Success      200 {object} model.SwapResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id}/slots/{slotId}/restore [post]
func (h *SessionHandler) Restore(c *fiber.Ctx) error {
	result, err := h.service.RestoreSwapped(c.Context(), c.Params("id"), c.Params("slotId"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.OK(c, result)
}

// Toggle handles POST /api/session/:id/toggle
// @Summary      Toggle dish selection
// @Description  Flip a displayed dish between pending and selected
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body model.ToggleRequest true "Toggle request"
// @Success      200 {object} map[string]string
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id}/toggle [post]
func (h *SessionHandler) Toggle(c *fiber.Ctx) error {
	var req model.ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	status, err := h.service.Toggle(c.Context(), c.Params("id"), req.DishName)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.OK(c, fiber.Map{"dishName": req.DishName, "status": status})
}

// AddOn handles POST /api/session/:id/addon
// @Summary      Request add-on dishes
// @Description  Ask for extra dishes in a category, appended as new slots
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body model.AddOnRequest true "Add-on request"
// @Success      200 {array} model.SlotView
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id}/addon [post]
func (h *SessionHandler) AddOn(c *fiber.Ctx) error {
	var req model.AddOnRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	slots, err := h.service.AddOn(c.Context(), c.Params("id"), req.Category, req.Count)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.OK(c, slots)
}

// Totals handles GET /api/session/:id/totals
// @Summary      Get selection totals
// @Description  Get the derived selected total and per-person split
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} model.TotalsResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id}/totals [get]
func (h *SessionHandler) Totals(c *fiber.Ctx) error {
	totals, err := h.service.Totals(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.OK(c, totals)
}

// Finalize handles POST /api/session/:id/finalize
// @Summary      Finalize the session
// @Description  Snapshot the selected dishes into an immutable order and hand off to checkout
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      201 {object} model.FinalOrder
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/session/{id}/finalize [post]
func (h *SessionHandler) Finalize(c *fiber.Ctx) error {
	order, err := h.service.Finalize(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, session.ErrNoSelection) {
			return response.ValidationError(c, "Select at least one dish before finalizing", nil)
		}
		return h.mapError(c, err)
	}
	return response.Created(c, order)
}

// GetOrder handles GET /api/orders/:recommendationId
// @Summary      Get final order
// @Description  Get the persisted final order for the checkout view
// @Tags         Session
// @Produce      json
// @Param        recommendationId path string true "Recommendation ID"
// @Success      200 {object} model.FinalOrder
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/orders/{recommendationId} [get]
func (h *SessionHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetFinalOrder(c.Context(), c.Params("recommendationId"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return response.NotFound(c, "Order not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, order)
}

// mapError translates session and service errors to HTTP responses
func (h *SessionHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return response.NotFound(c, "Session not found")
	case errors.Is(err, session.ErrSlotNotFound):
		return response.NotFound(c, "Slot not found")
	case errors.Is(err, session.ErrDishNotFound):
		return response.NotFound(c, "Dish not found in session")
	case errors.Is(err, session.ErrSwapInFlight):
		return response.Error(c, fiber.StatusConflict, response.CodeSwapInFlight,
			"A swap is already in flight for this slot", nil)
	case errors.Is(err, session.ErrSessionFinalized):
		return response.SessionFinalized(c)
	case errors.Is(err, session.ErrNoHistory):
		return response.ValidationError(c, "No swapped dishes to restore for this category", nil)
	case errors.Is(err, session.ErrDuplicateDish):
		return response.RecommenderError(c, err.Error())
	case errors.Is(err, service.ErrRemoteLookup):
		return response.RecommenderError(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}
