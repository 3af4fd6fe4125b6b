package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/kolna/keysync/internal/errors"
	"github.com/kolna/keysync/internal/httputil"
	"github.com/kolna/keysync/internal/repository"
	syncpkg "github.com/kolna/keysync/internal/sync"
	"github.com/kolna/keysync/internal/util"
)

const (
	statusFailureLimit = 20
	statusCountWindow  = 24 * time.Hour
)

// BulkReconciler runs a full reservation sweep.
type BulkReconciler interface {
	Run(ctx context.Context, from, to string, apply bool) (*syncpkg.Report, error)
}

// AdminHandler exposes the operator endpoints: trigger a bulk sync and read
// recent sync activity. Everything behind it is gated on the admin password.
type AdminHandler struct {
	passwordHash string
	reconciler   BulkReconciler
	syncHistory  repository.SyncHistoryRepository
}

func NewAdminHandler(
	passwordHash string,
	reconciler BulkReconciler,
	syncHistory repository.SyncHistoryRepository,
) *AdminHandler {
	return &AdminHandler{
		passwordHash: passwordHash,
		reconciler:   reconciler,
		syncHistory:  syncHistory,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requireAuth)

	r.Post("/sync", h.TriggerSync)
	r.Get("/status", h.Status)

	return r
}

// requireAuth checks HTTP basic auth against the bcrypt hash from config.
// With no hash configured the admin surface is disabled outright.
func (h *AdminHandler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.passwordHash == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Admin interface is disabled"})
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok || !util.CheckPasswordHash(password, h.passwordHash) {
			log.Warn().Str("ip", r.RemoteAddr).Msg("admin auth failed")
			w.Header().Set("WWW-Authenticate", `Basic realm="keysync admin"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TriggerSync runs the bulk reconciler. Dry-run by default; pass apply=1 to
// mutate.
func (h *AdminHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	apply := q.Get("apply") == "1" || q.Get("apply") == "true"
	from := q.Get("from")
	to := q.Get("to")

	report, err := h.reconciler.Run(r.Context(), from, to, apply)
	if err != nil {
		log.Error().Err(err).Msg("bulk sync failed")
		httputil.WriteError(w, apperrors.External("sync", err))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	failures, err := h.syncHistory.FindRecentFailures(ctx, statusFailureLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load recent failures")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	count, err := h.syncHistory.CountSince(ctx, time.Now().Add(-statusCountWindow))
	if err != nil {
		log.Error().Err(err).Msg("failed to count recent operations")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"operations_24h":  count,
		"recent_failures": failures,
	})
}
