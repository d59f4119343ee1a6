package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	version      = "1.0.0"
	cacheDomains = "public, max-age=300"
	cacheNone    = "no-cache"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// fail maps service errors onto the JSON error envelope.
func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, h.logger, err)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	requestID := observability.GetRequestID(r.Context())
	if stderrors.Is(err, services.ErrInvalidSelectors) {
		errors.WriteError(w, logger, errors.BadRequestWrap(err, "Invalid filter selection"), requestID)
		return
	}
	errors.WriteError(w, logger, errors.ServiceUnavailableWrap(err, "Sales data is not available"), requestID)
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorsFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	vm, err := h.analytics.Render(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, vm, map[string]string{"Cache-Control": cacheNone})
}

func (h *APIHandlers) HandleDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.analytics.Domains(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, domains, map[string]string{"Cache-Control": cacheDomains})
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorsFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Filter first so a failure can still produce a JSON error.
	if _, err := h.analytics.Filtered(r.Context(), sel); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales_export.csv"`)
	w.Header().Set("Cache-Control", cacheNone)
	if err := h.analytics.Export(r.Context(), sel, w); err != nil {
		observability.RequestLogger(r.Context(), h.logger).Error("export failed", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

// HandleReload drops the cached snapshot and reads the source file again.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.Reload(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}

	observability.RequestLogger(r.Context(), h.logger).Info("dataset reloaded")
	errors.WriteSuccess(w, h.analytics.Stats())
}
