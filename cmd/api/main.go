package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mecanomotors/mecano/internal/admin"
	"github.com/mecanomotors/mecano/internal/alerts"
	"github.com/mecanomotors/mecano/internal/auth"
	"github.com/mecanomotors/mecano/internal/cart"
	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/config"
	"github.com/mecanomotors/mecano/internal/db"
	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/logging"
	"github.com/mecanomotors/mecano/internal/marketplace"
	"github.com/mecanomotors/mecano/internal/messaging"
	"github.com/mecanomotors/mecano/internal/metrics"
	appmw "github.com/mecanomotors/mecano/internal/middleware"
	"github.com/mecanomotors/mecano/internal/payment"
	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/store"
	"github.com/mecanomotors/mecano/internal/user"
	"github.com/mecanomotors/mecano/internal/validation"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Development())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped cleanly")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := db.Init(ctx, cfg.DSN()); err != nil {
		return err
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer queue.Close()
	notifier := alerts.NewNotifier(queue, cfg.AppURL)

	tracker := lifecycle.NewTracker(requestStore(cfg, rdb),
		lifecycle.WithObserver(notifier.Observer()),
		lifecycle.WithObserver(metrics.ObserveTransition),
	)

	issuer := session.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	cat := catalog.NewPostgres(db.Conn)
	carts := cart.NewRedisStore(rdb)
	ledger := payment.NewLedger(db.Conn)
	inbox := alerts.NewStore(db.Conn)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.Echo{}
	e.Use(middleware.Recover())
	e.Use(logging.RequestLogger(logger))
	e.Use(echo.WrapMiddleware(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
	}).Handler))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		if err := rdb.Ping(c.Request().Context()).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "redis unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	pub := e.Group("")
	api := e.Group("", appmw.JWT(issuer))

	// Signup and login are rate limited per IP.
	authPub := e.Group("", middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	auth.NewHandler(auth.NewPostgres(db.Conn), issuer, notifier, auth.Options{
		AppURL:          cfg.AppURL,
		ResetTTL:        cfg.PasswordResetTTL,
		BootstrapSecret: cfg.AdminBootstrapSecret,
	}).Register(authPub, api)

	user.NewHandler(user.NewPostgres(db.Conn), cat).Register(pub, api)
	cart.NewHandler(carts, cat).Register(api)
	marketplace.NewHandler(marketplace.Deps{
		Catalog: cat,
		Tracker: tracker,
		Carts:   carts,
		Gateway: payment.NewSimulated(payment.Credentials{
			WaveKey:      cfg.WaveAPIKey,
			WaveSecret:   cfg.WaveAPISecret,
			OrangeKey:    cfg.OrangeMoneyAPIKey,
			OrangeSecret: cfg.OrangeMoneyAPISecret,
		}),
		Ledger:  ledger,
		Reviews: marketplace.NewPostgresReviews(db.Conn),
	}).Register(pub, api)
	messaging.NewHandler(messaging.NewPostgres(db.Conn), messaging.NewHub(), notifier).Register(api)

	api.GET("/payments/transactions", ledger.GetUserTransactions)
	api.GET("/notifications", inbox.ListNotifications)
	api.POST("/notifications/:id/read", inbox.MarkNotificationRead)

	adminGroup := e.Group("/admin", appmw.JWT(issuer))
	admin.NewHandler(admin.NewPostgres(db.Conn), tracker).Register(adminGroup)
	adminGroup.GET("/transactions", ledger.AdminGetAllTransactions)

	worker := alerts.NewWorker(alerts.NewLogSender(logger), inbox, inbox, logger)
	srv := alerts.NewServer(cfg.RedisAddr, cfg.WorkerConcurrency, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("port", cfg.Port), zap.String("request_store", cfg.RequestStore))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.Start(worker.Mux()); err != nil {
			return err
		}
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// requestStore picks where reservations and orders live.
func requestStore(cfg config.Config, rdb *redis.Client) lifecycle.Repository {
	switch cfg.RequestStore {
	case config.StoreRedis:
		return store.NewRedis(rdb)
	case config.StoreMemory:
		zap.L().Warn("requests are kept in memory and lost on restart")
		return store.NewMemory()
	default:
		return store.NewPostgres(db.Conn)
	}
}
