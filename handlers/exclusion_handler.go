package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/services/lifecycle"
	"github.com/upb/fraudshield/utils"
	"go.uber.org/zap"
)

const (
	defaultExclusionPageSize = 50
	maxExclusionPageSize     = 200
)

// ExclusionReader reads exclusion records of an organization
type ExclusionReader interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Exclusion, error)
	ListByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Exclusion, error)
}

// LifecycleRecorder records classified lifecycle states
type LifecycleRecorder interface {
	RecordLifecycleState(state string)
}

// ExclusionListResponse is one page of classified exclusions
type ExclusionListResponse struct {
	Exclusions []lifecycle.Classified        `json:"exclusions"`
	Counts     map[models.LifecycleState]int `json:"counts"`
	AsOf       time.Time                     `json:"as_of"`
	Limit      int                           `json:"limit"`
	Offset     int                           `json:"offset"`
}

// ExclusionResponse is one classified exclusion
type ExclusionResponse struct {
	lifecycle.Classified
	AsOf time.Time `json:"as_of"`
}

// ExclusionHandler serves exclusion records with their derived lifecycle state
type ExclusionHandler struct {
	exclusions ExclusionReader
	clock      clockwork.Clock
	recorder   LifecycleRecorder
	logger     *zap.Logger
}

// NewExclusionHandler creates a new ExclusionHandler. recorder may be nil.
func NewExclusionHandler(exclusions ExclusionReader, clock clockwork.Clock, recorder LifecycleRecorder, logger *zap.Logger) *ExclusionHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ExclusionHandler{
		exclusions: exclusions,
		clock:      clock,
		recorder:   recorder,
		logger:     logger,
	}
}

// HandleList handles GET /api/v1/exclusions
func (h *ExclusionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r, defaultExclusionPageSize, maxExclusionPageSize)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	orgID := middleware.GetOrgIDFromContext(r.Context())
	records, err := h.exclusions.ListByOrgID(r.Context(), orgID, limit, offset)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	now := h.clock.Now()
	values := lo.Map(records, func(rec *models.Exclusion, _ int) models.Exclusion { return *rec })
	classified := lifecycle.ClassifyAll(values, now)
	h.record(classified...)

	_ = utils.WriteOK(w, ExclusionListResponse{
		Exclusions: classified,
		Counts:     lifecycle.Counts(values, now),
		AsOf:       now,
		Limit:      limit,
		Offset:     offset,
	})
}

// HandleGet handles GET /api/v1/exclusions/{id}
func (h *ExclusionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	orgID := middleware.GetOrgIDFromContext(r.Context())
	rec, err := h.exclusions.GetByID(r.Context(), orgID, id)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	now := h.clock.Now()
	classified := lifecycle.Classified{Exclusion: *rec, State: lifecycle.Classify(*rec, now)}
	h.record(classified)

	_ = utils.WriteOK(w, ExclusionResponse{Classified: classified, AsOf: now})
}

func (h *ExclusionHandler) record(classified ...lifecycle.Classified) {
	if h.recorder == nil {
		return
	}
	for _, c := range classified {
		h.recorder.RecordLifecycleState(string(c.State))
	}
}

// parsePagination reads limit and offset query parameters
func parsePagination(r *http.Request, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	offset := 0

	query := r.URL.Query()
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, 0, &utils.ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{"limit": "limit must be a positive integer"},
			}
		}
		limit = min(n, maxLimit)
	}
	if raw := query.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, 0, &utils.ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{"offset": "offset must be a non-negative integer"},
			}
		}
		offset = n
	}
	return limit, offset, nil
}
