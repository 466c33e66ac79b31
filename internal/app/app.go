package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ozfantasy/trade-window/internal/config"
	"github.com/ozfantasy/trade-window/internal/domain/league"
	"github.com/ozfantasy/trade-window/internal/domain/player"
	"github.com/ozfantasy/trade-window/internal/domain/trade"
	"github.com/ozfantasy/trade-window/internal/infrastructure/account/introspect"
	"github.com/ozfantasy/trade-window/internal/infrastructure/notify"
	"github.com/ozfantasy/trade-window/internal/infrastructure/repository/memory"
	"github.com/ozfantasy/trade-window/internal/infrastructure/repository/postgres"
	"github.com/ozfantasy/trade-window/internal/interfaces/httpapi"
	"github.com/ozfantasy/trade-window/internal/platform/cache"
	idgen "github.com/ozfantasy/trade-window/internal/platform/id"
	"github.com/ozfantasy/trade-window/internal/platform/logging"
	"github.com/ozfantasy/trade-window/internal/platform/resilience"
	"github.com/ozfantasy/trade-window/internal/usecase"
)

// App owns the wired HTTP server and the resources behind it.
type App struct {
	Server *http.Server

	db       *sqlx.DB
	notifier *notify.WebhookNotifier
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		leagueRepo league.Repository
		stateRepo  trade.StateRepository
		playerRepo player.Repository
		db         *sqlx.DB
	)

	if cfg.DBURL == "" {
		logger.Info("no DATABASE_URL configured, using in-memory stores with seed data")
		stateStore := memory.NewTradeStateRepository()
		for _, ros := range memory.SeedRosters() {
			stateStore.SeedRoster(ros)
		}
		seededLeagues, err := memory.NewLeagueRepository(memory.SeedLeagueSettings())
		if err != nil {
			return nil, fmt.Errorf("seed league settings: %w", err)
		}
		leagueRepo = seededLeagues
		playerRepo = memory.NewPlayerRepository(memory.SeedPlayers())
		stateRepo = stateStore
	} else {
		opened, err := otelsqlx.Open("postgres", cfg.DBURL,
			otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		leagueRepo = postgres.NewLeagueSettingsRepository(db)
		playerRepo = postgres.NewPlayerRepository(db)
		stateRepo = postgres.NewTradeStateRepository(db)
	}

	tradeSvc := usecase.NewTradeService(
		leagueRepo,
		stateRepo,
		playerRepo,
		idgen.NewPrefixedGenerator("tr"),
		logger,
	)
	tradeSvc.SetWriteRetries(cfg.TradeWriteRetries)
	if cfg.CacheEnabled {
		tradeSvc.SetSettingsCache(cache.NewStore(cfg.CacheTTL))
	}

	var notifier *notify.WebhookNotifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(notify.WebhookConfig{
			URL:     cfg.WebhookURL,
			Token:   cfg.WebhookToken,
			Timeout: cfg.WebhookTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.WebhookCircuitEnabled,
				FailureThreshold: cfg.WebhookCircuitFailureCount,
				OpenTimeout:      cfg.WebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.WebhookCircuitHalfOpenMaxReq,
			},
		}, logger)
		tradeSvc.SetNotifier(notifier)
	}

	rolloverSvc := usecase.NewRolloverService(tradeSvc, logger)

	verifier := introspect.NewClient(
		&http.Client{Timeout: cfg.IntrospectTimeout},
		cfg.IntrospectBaseURL,
		cfg.IntrospectPath,
		logger,
	)

	handler := httpapi.NewHandler(tradeSvc, rolloverSvc, logger)
	handler.SetRolloverWorkerLimit(cfg.RolloverMaxWorkers)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{Server: server, db: db, notifier: notifier}, nil
}

// Close releases the app's resources after the HTTP server has stopped.
func (a *App) Close() error {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	return nil
}
