package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Runner triggers pipeline runs and manual publications.
type Runner interface {
	Run(ctx context.Context, req usecase.RunRequest) (usecase.RunResult, error)
	PublishArticle(ctx context.Context, req usecase.PublishRequest) (usecase.RunResult, error)
}

// SettingsManager reads and mutates operator settings.
type SettingsManager interface {
	Get(ctx context.Context, operatorID int64) (domain.OperatorSettings, error)
	Update(ctx context.Context, operatorID int64, key domain.SettingKey, raw string) (domain.OperatorSettings, error)
}

// RecordsManager exposes records, drafts, statistics and the action log.
type RecordsManager interface {
	Records(ctx context.Context, operatorID int64, limit int) ([]domain.PublishRecord, error)
	PreviewRecordDeletion(ctx context.Context, operatorID, id int64) (usecase.DeletionPreview, error)
	DeleteRecord(ctx context.Context, operatorID, id int64) (domain.DeletionReport, error)
	SaveDraft(ctx context.Context, operatorID int64, in usecase.DraftInput) (domain.Draft, error)
	Drafts(ctx context.Context, operatorID int64) ([]domain.Draft, error)
	PreviewDraftDeletion(ctx context.Context, operatorID, id int64) (usecase.DeletionPreview, error)
	DeleteDraft(ctx context.Context, operatorID, id int64) error
	PublishDraft(ctx context.Context, operatorID, id int64, dest *domain.DestinationSet) (usecase.RunResult, error)
	Statistics(ctx context.Context, operatorID int64, period string) (domain.Statistics, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	AuditLog(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error)
}

// Translator renders text in the site language.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// Deps wires the control API to the use cases.
type Deps struct {
	Runs       Runner
	Settings   SettingsManager
	Records    RecordsManager
	Translator Translator
	// Token is the bearer token required on /api; empty disables the check.
	Token  string
	Logger *slog.Logger
}

type handler struct {
	runs       Runner
	settings   SettingsManager
	records    RecordsManager
	translator Translator
	log        *slog.Logger
}

// NewRouter builds the control API router.
func NewRouter(deps Deps) http.Handler {
	h := &handler{
		runs:       deps.Runs,
		settings:   deps.Settings,
		records:    deps.Records,
		translator: deps.Translator,
		log:        logging.OrDiscard(deps.Logger).With("component", "httpapi"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(deps.Token))

		r.Get("/categories", h.handleCategories)
		r.Post("/translate", h.handleTranslate)

		r.Route("/operators/{op}", func(r chi.Router) {
			r.Post("/runs", h.handleRun)
			r.Post("/articles", h.handlePublishArticle)

			r.Get("/settings", h.handleGetSettings)
			r.Patch("/settings", h.handleUpdateSettings)

			r.Get("/records", h.handleRecords)
			r.Delete("/records/{id}", h.handleDeleteRecord)

			r.Get("/drafts", h.handleDrafts)
			r.Post("/drafts", h.handleSaveDraft)
			r.Delete("/drafts/{id}", h.handleDeleteDraft)
			r.Post("/drafts/{id}/publish", h.handlePublishDraft)

			r.Get("/audit", h.handleAudit)
			r.Get("/stats", h.handleStats)
		})
	})

	return r
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte("Bearer " + token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownSetting),
		errors.Is(err, domain.ErrInvalidSetting),
		errors.Is(err, domain.ErrMalformedArticle),
		errors.Is(err, domain.ErrNoDestinations),
		errors.Is(err, domain.ErrUnknownPeriod),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func operatorID(r *http.Request) (int64, error) {
	return pathID(r, "op")
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return v, nil
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}
