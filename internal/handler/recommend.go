package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dishcovery/api/internal/model"
	"github.com/dishcovery/api/internal/service"
	"github.com/dishcovery/api/pkg/response"
)

type RecommendHandler struct {
	service   *service.RecommendService
	validator *validator.Validate
}

func NewRecommendHandler(svc *service.RecommendService, v *validator.Validate) *RecommendHandler {
	return &RecommendHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/recommend/start
// @Summary      Start recommendation generation
// @Description  Start an asynchronous AI recommendation job for a restaurant
// @Tags         Recommend
// @Accept       json
// @Produce      json
// @Param        request body model.RecommendStartRequest true "Generation request"
// @Success      202 {object} model.RecommendStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recommend/start [post]
func (h *RecommendHandler) Start(c *fiber.Ctx) error {
	var req model.RecommendStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartGeneration(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrMissingRestaurant) {
			return response.ValidationError(c, "Restaurant identifier is required", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/recommend/status/:jobId
// @Summary      Get generation job status
// @Description  Get the current status, progress and phase of a generation job
// @Tags         Recommend
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RecommendStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recommend/status/{jobId} [get]
func (h *RecommendHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/recommend/result/:jobId
// @Summary      Get generation result
// @Description  Get the completed recommendation and the session created from it
// @Tags         Recommend
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RecommendResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recommend/result/{jobId} [get]
func (h *RecommendHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrJobNotCompleted) {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/recommend/cancel/:jobId
// @Summary      Cancel generation job
// @Description  Cancel a running or queued generation job
// @Tags         Recommend
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RecommendCancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recommend/cancel/{jobId} [post]
func (h *RecommendHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrJobAlreadyDone) {
			return response.ValidationError(c, "Job already completed", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
