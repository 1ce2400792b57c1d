package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ksaito/mercari-watcher/internal/api/handlers"
	"github.com/ksaito/mercari-watcher/internal/api/middleware"
	"github.com/ksaito/mercari-watcher/internal/config"
	"github.com/ksaito/mercari-watcher/internal/engine"
	"github.com/ksaito/mercari-watcher/internal/line"
	"github.com/ksaito/mercari-watcher/internal/mercari"
	"github.com/ksaito/mercari-watcher/pkg/logger"
	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the watcher service and HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	loc, err := time.LoadLocation(cfg.Display.Timezone)
	if err != nil {
		return fmt.Errorf("loading display timezone %q: %w", cfg.Display.Timezone, err)
	}

	// Mercari search client.
	limiter := mercari.NewRateLimiter(
		cfg.Mercari.RateLimit.PerSecond,
		cfg.Mercari.RateLimit.Burst,
		cfg.Mercari.RateLimit.DailyLimit,
	)
	search := mercari.NewHTTPClient(
		mercari.WithEndpoint(cfg.Mercari.Endpoint),
		mercari.WithPageSize(cfg.Mercari.PageSize),
		mercari.WithHTTPClient(&http.Client{Timeout: cfg.Mercari.Timeout}),
		mercari.WithRateLimiter(limiter),
	)

	// LINE notifier.
	var notifier line.Notifier
	if cfg.Line.ChannelToken != "" {
		notifier = line.NewMessagingClient(
			cfg.Line.ChannelToken,
			line.WithMessagingBaseURL(cfg.Line.BaseURL),
			line.WithMessagingLogger(log),
		)
	} else {
		log.Warn("no LINE channel token configured, notifications will be discarded")
		notifier = line.NewNoOpNotifier(log)
	}

	// Core engine.
	builder := line.NewPayloadBuilder(loc)
	seen := engine.NewSeenSet()
	eng := engine.NewEngine(
		search,
		notifier,
		builder,
		seen,
		domain.FetchRequest{
			Keyword:         cfg.Fetch.Keyword,
			WindowMinutes:   cfg.Fetch.WindowMinutes,
			OverlapMinutes:  cfg.Fetch.OverlapMinutes,
			MaxDisplayItems: cfg.Fetch.MaxDisplayItems,
		},
		engine.WithLogger(log),
		engine.WithRequestTimeout(cfg.Mercari.Timeout),
	)

	// Scheduler. Trimming keeps the dedup set bounded when enabled; by
	// default it is off and the set grows for the life of the process.
	window := time.Duration(cfg.Fetch.WindowMinutes) * time.Minute
	var trimInterval, trimKeep time.Duration
	if cfg.SeenSet.TrimEnabled {
		trimKeep = time.Duration(cfg.SeenSet.TrimKeepWindows) * window
		trimInterval = trimKeep / 2
	}

	sched, err := engine.NewScheduler(eng, cfg.Fetch.Interval, trimInterval, trimKeep, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	// HTTP server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Metrics())

	var started atomic.Bool
	healthH := handlers.NewHealthHandler(started.Load)
	webhookH := handlers.NewWebhookHandler(eng, log)
	triggerH := handlers.NewTriggerHandler(eng, cfg.Server.TriggerSecret, log)

	e.GET("/", healthH.Root)
	e.GET("/healthz", healthH.Healthz)
	e.GET("/readyz", healthH.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/webhook", webhookH.Handle)
	e.GET("/cron", triggerH.Trigger)

	sched.Start()
	started.Store(true)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server",
		"addr", addr,
		"keyword", cfg.Fetch.Keyword,
		"fetch_interval", cfg.Fetch.Interval.String(),
		"window_minutes", cfg.Fetch.WindowMinutes,
	)

	go func() {
		srvErr := e.Start(addr)
		if srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			log.Error("server error", "error", srvErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	// Let in-flight cron jobs drain before stopping the HTTP server so
	// interactive replies in progress can still go out.
	<-sched.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
