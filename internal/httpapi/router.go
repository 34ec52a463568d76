package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/speakify/backend/internal/eventlog"
	"github.com/speakify/backend/internal/poller"
	"github.com/speakify/backend/internal/quota"
	"github.com/speakify/backend/internal/store"
	"github.com/speakify/backend/internal/synthesis"
	"github.com/speakify/backend/internal/voices"
)

type RouterConfig struct {
	PublicBaseURL string

	// JWT Authentication (tokens issued by the external identity provider)
	JWTSecret string

	// Quota knobs. These default to the same value but are distinct:
	// the anonymous limit is per request, the free limit is per month.
	AnonTokenLimit        int
	FreeMonthlyTokenLimit int
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	store    *store.Store
	eventLog *eventlog.Logger
	synth    synthesis.Client
	quota    *quota.Ledger
	catalog  *voices.Catalog
	poller   *poller.Poller
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, s *store.Store, eventLog *eventlog.Logger,
	synth synthesis.Client, ledger *quota.Ledger, catalog *voices.Catalog, p *poller.Poller) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		eventLog: eventLog,
		synth:    synth,
		quota:    ledger,
		catalog:  catalog,
		poller:   p,
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Conversion workflow (anonymous allowed, identity attached when present)
	r.mux.HandleFunc("POST /api/convert", r.withOptionalAuth(r.handleConvert))
	r.mux.HandleFunc("GET /api/status/{taskId}", r.withOptionalAuth(r.handleStatus))
	r.mux.HandleFunc("GET /api/audio/{filename}", r.handleAudio)
	r.mux.HandleFunc("GET /api/voices", r.withOptionalAuth(r.handleListVoices))

	// Account endpoints (protected)
	r.mux.HandleFunc("GET /api/me", r.withAuth(r.handleGetMe))
	r.mux.HandleFunc("GET /api/usage", r.withAuth(r.handleGetUsage))
	r.mux.HandleFunc("GET /api/conversions", r.withAuth(r.handleListConversions))

	// Billing (protected)
	r.mux.HandleFunc("POST /api/billing/checkout", r.withAuth(r.handleCreateCheckout))

	// Stripe webhook (no auth - signature verified)
	r.mux.HandleFunc("POST /webhooks/stripe", r.handleStripeWebhook)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
