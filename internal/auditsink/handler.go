package auditsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditlog"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/httputil"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/metrics"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/middleware"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

const (
	defaultListLimit = 50
	maxBodyBytes     = 64 << 10
)

// Store persists received records.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Handler serves the audit log endpoints.
type Handler struct {
	store     Store
	validator middleware.TokenValidator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New constructs a sink handler with its dependencies.
func New(store Store, validator middleware.TokenValidator, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		store:     store,
		validator: validator,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Register mounts the audit log endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBearer(h.validator, h.logger))
		r.Post(auditlog.LogsPath, h.HandleCreate)
		r.Get(auditlog.LogsPath, h.HandleList)
	})
}

type createResponse struct {
	ID string `json:"id"`
}

type listResponse struct {
	Logs []Entry `json:"logs"`
}

// HandleCreate handles POST /api/logs.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimw.GetReqID(ctx)

	var record auditlog.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&record); err != nil {
		h.logger.WarnContext(ctx, "rejected malformed audit record", "request_id", requestID, "error", err)
		httputil.WriteError(w, fmt.Errorf("malformed JSON body: %w", sentinel.ErrInvalidInput))
		return
	}
	if record.Action == "" {
		httputil.WriteError(w, fmt.Errorf("action is required: %w", sentinel.ErrInvalidInput))
		return
	}

	entry := Entry{
		ID:         uuid.NewString(),
		ReceivedAt: h.now().UTC(),
		Subject:    middleware.GetSubject(ctx),
		RequestID:  r.Header.Get("X-Request-ID"),
		Record:     record,
	}
	if err := h.store.Append(ctx, entry); err != nil {
		h.logger.ErrorContext(ctx, "failed to store audit record", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.IncSinkReceived()

	h.logger.InfoContext(ctx, "audit record received",
		"request_id", requestID,
		"action", record.Action,
		"resource", record.Resource,
		"is_screenshot", record.IsScreenshot,
		"subject", entry.Subject,
	)
	httputil.WriteJSON(w, http.StatusCreated, createResponse{ID: entry.ID})
}

// HandleList handles GET /api/logs?limit=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, fmt.Errorf("limit must be a positive integer: %w", sentinel.ErrInvalidInput))
			return
		}
		limit = n
	}

	entries, err := h.store.ListRecent(ctx, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Logs: entries})
}
