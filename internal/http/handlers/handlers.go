package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aethersegment/backend/internal/ai"
	"github.com/aethersegment/backend/internal/intent"
	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/query"
	"github.com/aethersegment/backend/internal/service"
	"github.com/aethersegment/backend/internal/store"
)

const (
	defaultCustomersLimit = 100
	maxCustomersLimit     = 10000
)

type Handler struct {
	Segments  *service.SegmentService
	Overview  *service.OverviewService
	Ping      func(ctx context.Context) error
	Validator *validator.Validate
	Logger    zerolog.Logger
}

type AnalyzeRequest struct {
	Objective string `json:"objective" validate:"required,max=4000"`
}

type PreviewFiltersRequest struct {
	CampaignObjective *models.CampaignObjective `json:"campaign_objective_object" validate:"required"`
	NewFilters        models.RefinementFilters  `json:"new_filters"`
	SelectedTrigger   string                    `json:"selected_trigger,omitempty"`
}

type CreateSegmentRequest struct {
	CampaignObjective *models.CampaignObjective `json:"campaign_objective_object" validate:"required"`
	Trigger           string                    `json:"trigger" validate:"required"`
	AdditionalFilters models.RefinementFilters  `json:"additional_filters"`
}

type CustomersResponse struct {
	SegmentID string                  `json:"segment_id"`
	Customers []models.CustomerRecord `json:"customers"`
	Count     int                     `json:"count"`
	Limit     int                     `json:"limit"`
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Warehouse unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Analyze a campaign objective
// @Description Interpret free text, resolve the matching customers and rank triggers
// @Tags campaigns
// @Accept json
// @Produce json
// @Param request body AnalyzeRequest true "Objective"
// @Success 200 {object} models.AnalysisResult
// @Failure 400 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/v1/campaigns/analyze [post]
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	req.Objective = strings.TrimSpace(req.Objective)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	result, err := h.Segments.Analyze(c.Request.Context(), req.Objective)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Preview refinement filters
// @Tags segments
// @Accept json
// @Produce json
// @Param request body PreviewFiltersRequest true "Objective and filters"
// @Success 200 {object} models.RefinementResult
// @Failure 400 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/v1/segments/preview-filters [post]
func (h *Handler) PreviewFilters(c *gin.Context) {
	var req PreviewFiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	result, err := h.Segments.PreviewRefinement(c.Request.Context(), *req.CampaignObjective, req.NewFilters, req.SelectedTrigger)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Create a segment
// @Tags segments
// @Accept json
// @Produce json
// @Param request body CreateSegmentRequest true "Objective, trigger and filters"
// @Success 201 {object} models.Segment
// @Failure 400 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/v1/segments [post]
func (h *Handler) CreateSegment(c *gin.Context) {
	var req CreateSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	req.Trigger = strings.TrimSpace(req.Trigger)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	seg, err := h.Segments.CreateSegment(c.Request.Context(), *req.CampaignObjective, req.Trigger, req.AdditionalFilters)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seg)
}

// @Summary Get a segment
// @Tags segments
// @Produce json
// @Param id path string true "Segment ID"
// @Success 200 {object} models.Segment
// @Failure 404 {object} map[string]any
// @Router /api/v1/segments/{id} [get]
func (h *Handler) GetSegment(c *gin.Context) {
	seg, err := h.Segments.GetSegment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seg)
}

// @Summary List segment customers
// @Tags segments
// @Produce json
// @Param id path string true "Segment ID"
// @Param limit query int false "Max customers (default 100)"
// @Success 200 {object} CustomersResponse
// @Failure 404 {object} map[string]any
// @Router /api/v1/segments/{id}/customers [get]
func (h *Handler) SegmentCustomers(c *gin.Context) {
	limit := defaultCustomersLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxCustomersLimit {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 10000", raw)
			return
		}
		limit = n
	}

	id := c.Param("id")
	customers, err := h.Segments.GetSegmentCustomers(c.Request.Context(), id, limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CustomersResponse{SegmentID: id, Customers: customers, Count: len(customers), Limit: limit})
}

// @Summary Overview statistics
// @Tags overview
// @Produce json
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} models.OverviewStats
// @Router /api/v1/overview/stats [get]
func (h *Handler) OverviewStats(c *gin.Context) {
	refresh := c.Query("refresh")
	stats, err := h.Overview.Stats(c.Request.Context(), refresh == "1" || strings.EqualFold(refresh, "true"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	var (
		parseErr *intent.ParseError
		rateErr  ai.RateLimitError
		dupErr   *query.DuplicateCustomerError
		whErr    *service.WarehouseError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", err.Error())
	case errors.As(err, &parseErr):
		writeError(c, http.StatusUnprocessableEntity, "INTERPRETATION_FAILED", "Could not interpret the objective", gin.H{
			"raw":     parseErr.Raw,
			"cleaned": parseErr.Cleaned,
			"error":   parseErr.Err.Error(),
		})
	case errors.As(err, &rateErr):
		if rateErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds())))
		}
		writeError(c, http.StatusTooManyRequests, "LLM_RATE_LIMITED", "Interpretation service is rate limited", rateErr.Error())
	case errors.As(err, &dupErr):
		h.Logger.Error().Err(err).Msg("population invariant violated")
		writeError(c, http.StatusInternalServerError, "INVARIANT_VIOLATION", "Resolved population is inconsistent", gin.H{"customer_id": dupErr.CustomerID})
	case errors.As(err, &whErr):
		h.Logger.Error().Err(err).Msg("warehouse query failed")
		writeError(c, http.StatusBadGateway, "WAREHOUSE_ERROR", "Warehouse query failed", whErr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Segment not found", nil)
	case errors.Is(err, service.ErrTriggerRequired):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg("request failed")
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Request failed", err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
