package app

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/speakify/backend/internal/eventlog"
	"github.com/speakify/backend/internal/httpapi"
	"github.com/speakify/backend/internal/poller"
	"github.com/speakify/backend/internal/quota"
	"github.com/speakify/backend/internal/store"
	"github.com/speakify/backend/internal/synthesis"
	"github.com/speakify/backend/internal/voices"
)

// audioPathPrefix is where our own audio relay is mounted; the poller uses
// it to rewrite the provider's output_file into a downloadable URL.
const audioPathPrefix = "/api/audio/"

type App struct {
	cfg        Config
	logger     *log.Logger
	db         *pgxpool.Pool
	store      *store.Store
	eventLog   *eventlog.Logger
	synth      *synthesis.HTTPClient
	quota      *quota.Ledger
	catalog    *voices.Catalog
	poller     *poller.Poller
	httpClient *http.Client // Shared HTTP client with connection pooling for the provider
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := store.New(db)
	el := eventlog.New(db)

	// Migrations are applied externally by the CI deploy job (docker exec psql).
	// No automatic migration runner at startup.

	// Shared HTTP client with connection pooling for the synthesis provider.
	// Keeps TCP connections alive across the convert/status/audio calls that
	// make up a single conversion, and bounds every upstream call.
	httpClient := &http.Client{
		Timeout: cfg.SynthesisTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10, // the provider is a single host
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	synth := synthesis.NewHTTPClient(synthesis.Config{
		BaseURL:    cfg.SynthesisAPIURL,
		Transport:  cfg.SynthesisTransport,
		HTTPClient: httpClient,
	})

	return &App{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		store:      s,
		eventLog:   el,
		synth:      synth,
		quota:      quota.NewLedger(s, cfg.AnonTokenLimit, logger),
		catalog:    voices.NewCatalog(synth.Voices, cfg.VoiceCacheTTL, logger),
		poller:     poller.New(synth, audioPathPrefix, cfg.PollInterval, logger),
		httpClient: httpClient,
	}, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		PublicBaseURL:         a.cfg.PublicBaseURL,
		JWTSecret:             a.cfg.JWTSecret,
		AnonTokenLimit:        a.cfg.AnonTokenLimit,
		FreeMonthlyTokenLimit: a.cfg.FreeMonthlyTokenLimit,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.store, a.eventLog, a.synth, a.quota, a.catalog, a.poller)
}

func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
