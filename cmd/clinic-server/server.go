package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Soumo31428/HospitalManagement/internal/config"
	"github.com/Soumo31428/HospitalManagement/internal/domain/availability"
	"github.com/Soumo31428/HospitalManagement/internal/domain/scheduling"
	"github.com/Soumo31428/HospitalManagement/internal/platform/auth"
	"github.com/Soumo31428/HospitalManagement/internal/platform/db"
	"github.com/Soumo31428/HospitalManagement/internal/platform/lock"
	"github.com/Soumo31428/HospitalManagement/internal/platform/memstore"
	"github.com/Soumo31428/HospitalManagement/internal/platform/middleware"
	"github.com/Soumo31428/HospitalManagement/internal/platform/validation"
)

const version = "0.1.0"

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		logger.Warn().Msg("development auth is active: X-Actor-ID/X-Actor-Role headers are trusted and anonymous requests run as admin")
	}

	ctx := context.Background()
	e, cleanup, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	defer cleanup()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.Store).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// stores groups the repositories of whichever backend STORE selects.
type stores struct {
	windows      availability.WindowRepository
	appointments scheduling.AppointmentRepository
	treatments   scheduling.TreatmentRepository
	tx           scheduling.Transactor
	pinger       db.Pinger
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, func(), error) {
	if cfg.Store == config.StoreMemory {
		ms := memstore.New()
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return &stores{
			windows:      ms.Windows(),
			appointments: ms.Appointments(),
			treatments:   ms.Treatments(),
			tx:           ms,
			pinger:       ms,
		}, func() {}, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to database")
	return pgStores(pool), pool.Close, nil
}

func pgStores(pool *pgxpool.Pool) *stores {
	return &stores{
		windows:      availability.NewWindowRepoPG(pool),
		appointments: scheduling.NewAppointmentRepoPG(pool),
		treatments:   scheduling.NewTreatmentRepoPG(pool),
		tx:           db.NewTransactor(pool),
		pinger:       pool,
	}
}

func openLocker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("using redis slot locks")
	return lock.NewRedisLocker(client, cfg.SlotLockTTL, logger), func() { _ = client.Close() }, nil
}

// newServer wires the stores, services and HTTP stack. The returned cleanup
// releases the pool and Redis client.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*echo.Echo, func(), error) {
	st, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	locker, closeLocker, err := openLocker(ctx, cfg, logger)
	if err != nil {
		closeStores()
		return nil, nil, err
	}
	cleanup := func() {
		closeLocker()
		closeStores()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, auth.HeaderActorID, auth.HeaderActorRole},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	jwtCfg := jwtConfig(cfg)
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	apiV1 := e.Group("/api/v1", authMW, middleware.RateLimit(rateLimitCfg), middleware.Audit(logger))

	ledger := availability.NewService(st.windows, logger)
	availability.NewHandler(ledger).RegisterRoutes(apiV1)

	scheduler := scheduling.NewService(ledger, st.appointments, st.treatments, st.tx, locker, logger)
	scheduling.NewHandler(scheduler).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(st.pinger))

	return e, cleanup, nil
}
