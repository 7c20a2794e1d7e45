package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"mailsink/internal/api"
	"mailsink/internal/broker"
	"mailsink/internal/config"
	"mailsink/internal/constants"
	"mailsink/internal/ingest"
	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
	"mailsink/internal/notifier"
	"mailsink/internal/query"
	"mailsink/internal/tlsconfig"
	"mailsink/pkg/bootstrap"
	"mailsink/pkg/health"
	"mailsink/pkg/metrics"
	"mailsink/pkg/middleware"
	"mailsink/pkg/ratelimit"
	"mailsink/pkg/tracing"
)

type App struct {
	config *config.Config
	logger logger.Logger
	base   *bootstrap.Base

	store      *mailstore.Store
	hub        *notifier.Hub
	forwarder  *broker.Forwarder
	smtpServer *ingest.Server
	whitelist  *ingest.Whitelist
	limiter    *ratelimit.Limiter

	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider

	shutdownOnce sync.Once
	shutdownErr  error
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
		base:   bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.config.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.Register()

	if err := a.base.InitForwarding(ctx); err != nil {
		return fmt.Errorf("failed to initialize forwarding: %w", err)
	}

	if err := a.initStore(); err != nil {
		return err
	}

	if err := a.initSMTP(); err != nil {
		return err
	}

	if err := a.initRouter(); err != nil {
		return err
	}

	return a.initServer()
}

func (a *App) initStore() error {
	a.hub = notifier.NewHub(a.config.Notifier.SubscriberBuffer, a.logger.Named("notifier"))

	opts := []mailstore.Option{
		mailstore.WithListener(a.hub),
		mailstore.WithListener(mailstore.ListenerFunc(recordStoreMetrics)),
	}

	if len(a.base.Publishers) > 0 {
		a.forwarder = broker.NewForwarder(
			a.config.Forwarding,
			a.config.CircuitBreaker,
			a.base.Publishers,
			a.logger.Named("forwarder"),
		)
		opts = append(opts, mailstore.WithListener(a.forwarder))
	}

	store, err := mailstore.New(a.config.Store.Max, opts...)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	a.store = store
	metrics.SetStoreSize(0)
	return nil
}

func recordStoreMetrics(change mailstore.Change) {
	metrics.SetStoreSize(len(change.Snapshot))
	metrics.IncStoreMutation(string(change.Reason))
	if change.Evicted != nil {
		metrics.IncStoreMutation("evict")
	}
}

func (a *App) initSMTP() error {
	smtpCfg := a.config.SMTP

	tlsCfg, err := tlsconfig.Load(smtpCfg.TLS, smtpCfg.Domain)
	if err != nil {
		return fmt.Errorf("failed to load TLS material: %w", err)
	}

	a.whitelist = ingest.NewWhitelist(smtpCfg.Whitelist)
	backend := ingest.NewBackend(a.store, ingest.BackendOptions{
		Whitelist:     a.whitelist,
		MaxRecipients: smtpCfg.MaxRecipients,
		Parse: ingest.ParseOptions{
			RetainRaw:         a.config.Store.RetainRaw,
			RetainAttachments: a.config.Store.RetainAttachments,
		},
	}, a.logger.Named("smtp"))

	a.smtpServer = ingest.NewServer(smtpCfg, backend, tlsCfg, a.logger.Named("smtp"))
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.logger))

	if a.config.RateLimit.Enabled {
		a.limiter = ratelimit.New(ratelimit.Config{
			RPS:             a.config.RateLimit.RPS,
			Burst:           a.config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.RateLimit.MaxAge) * time.Second,
		})
		router.Use(a.limiter.Middleware())
		a.logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", a.config.RateLimit.RPS, "burst", a.config.RateLimit.Burst)
	}

	engine, err := query.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create query engine: %w", err)
	}

	handler := api.NewHandler(a.store, engine, a.hub, api.Options{
		SMTPAddr:     a.smtpServer.Addr(),
		Whitelist:    a.whitelist.Entries(),
		WriteTimeout: a.config.Notifier.WriteTimeout,
		PingInterval: a.config.Notifier.PingInterval,
	}, a.logger.Named("api"))
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewListenerChecker("smtp", dialAddr(a.config.SMTP.Host, a.config.SMTP.Port)))
	if a.base.Redis != nil {
		healthRegistry.RegisterOptional(health.NewRedisChecker(a.base.Redis))
	}
	if a.config.Forwarding.Kafka.Enabled {
		healthRegistry.RegisterOptional(health.NewKafkaChecker(a.config.Forwarding.Kafka.Brokers))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if a.config.Server.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:        net.JoinHostPort(a.config.Server.Host, strconv.Itoa(a.config.Server.Port)),
		Handler:     a.router,
		ReadTimeout: a.config.Server.ReadTimeout,
		// WriteTimeout stays unset: live feeds hold responses open.
	}
	return nil
}

// dialAddr turns a listen address into one the health check can dial.
func dialAddr(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Run serves SMTP and HTTP until ctx is cancelled or either listener fails,
// then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.smtpServer.ListenAndServe(); err != nil {
			return fmt.Errorf("smtp server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.InfowCtx(gctx, "HTTP server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.forwarder != nil {
		g.Go(func() error {
			return a.forwarder.Run(gctx)
		})
	}

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

// Shutdown stops intake first, then disconnects live subscribers so the HTTP
// server can drain, then flushes forwarding. It is safe to call more than
// once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.base.Shutdown(ctx, a.shutdownComponents)
	})
	return a.shutdownErr
}

func (a *App) shutdownComponents(ctx context.Context) []error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.smtpServer != nil {
		if err := a.smtpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("smtp shutdown error: %w", err))
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.forwarder != nil {
		if err := a.forwarder.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("forwarder shutdown error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	return errs
}
