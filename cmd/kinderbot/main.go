package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/KinderboT/internal/api"
	"github.com/Kerhoff/KinderboT/internal/config"
	"github.com/Kerhoff/KinderboT/internal/handlers"
	"github.com/Kerhoff/KinderboT/internal/kinderpedia"
	"github.com/Kerhoff/KinderboT/internal/metrics"
	"github.com/Kerhoff/KinderboT/internal/repository"
	"github.com/Kerhoff/KinderboT/internal/repository/file"
	"github.com/Kerhoff/KinderboT/internal/repository/postgres"
	"github.com/Kerhoff/KinderboT/internal/service"
	"github.com/Kerhoff/KinderboT/internal/telegram"
	"github.com/Kerhoff/KinderboT/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting KinderboT...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// History storage
	var repo repository.HistoryRepository
	if cfg.UsesDatabase() {
		db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(cfg.MigrationsPath); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}
		repo = postgres.NewHistoryRepository(db.DB)
	} else {
		repo, err = file.NewHistoryRepository(cfg.HistoryDir)
		if err != nil {
			l.Fatalf("Failed to open history directory: %v", err)
		}
		l.Infof("Storing history in %s", cfg.HistoryDir)
	}

	client := kinderpedia.NewClient(kinderpedia.Options{
		BaseURL:  cfg.KinderpediaBaseURL,
		APIKey:   cfg.KinderpediaAPIKey,
		Email:    cfg.KinderpediaEmail,
		Password: cfg.KinderpediaPassword,
	}, l)
	if err := client.Login(ctx); err != nil {
		if errors.Is(err, kinderpedia.ErrAuth) {
			l.Fatalf("Failed to log in to Kinderpedia: %v", err)
		}
		l.Warnf("Kinderpedia not reachable yet: %v", err)
	}

	m := metrics.New()

	// Service layer
	svc := service.New(client, repo, m, l, service.Options{
		NewsfeedIncludeGallery: cfg.NewsfeedIncludeGallery,
		BackfillDelay:          cfg.BackfillDelay,
		Location:               cfg.Location,
	})

	// A failed first refresh is retried by the scheduler
	if err := svc.Refresh(ctx); err != nil {
		l.Warnf("Initial refresh failed: %v", err)
	}
	svc.StartBackfill(ctx)

	go svc.StartRefreshScheduler(ctx, cfg.RefreshInterval)

	// Telegram bot
	var notify func(string)
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}

		bot.RegisterCommand("start", handlers.NewStartHandler(l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("today", handlers.NewTodayHandler(svc, l))
		bot.RegisterCommand("week", handlers.NewWeekHandler(svc, l))
		bot.RegisterCommand("news", handlers.NewNewsHandler(svc, l))
		bot.RegisterCommand("resync", handlers.NewResyncHandler(ctx, svc, l))
		notify = bot.Notify

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	}

	archiveDone := make(chan struct{})
	go func() {
		defer close(archiveDone)
		if err := svc.StartArchiveScheduler(ctx, cfg.ArchiveSchedule, notify); err != nil {
			l.Errorf("Archive scheduler error: %v", err)
		}
	}()

	// HTTP API
	apiServer := api.NewServer(ctx, svc, cfg, l)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(l, "HTTP server", httpServer)

	// Prometheus
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux(m),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(l, "Metrics server", metricsServer)

	l.Info("KinderboT started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Errorf("Server shutdown error: %v", err)
		}
	}

	select {
	case <-archiveDone:
	case <-shutdownCtx.Done():
		l.Warn("Archive still running at shutdown")
	}

	l.Info("KinderboT stopped")
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	return mux
}

func serve(l *logrus.Logger, name string, srv *http.Server) {
	l.Infof("%s listening on %s", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Errorf("%s error: %v", name, err)
	}
}
