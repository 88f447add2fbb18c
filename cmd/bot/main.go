package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	h "github.com/artemiysm/TG-Video/internal/api/http"
	"github.com/artemiysm/TG-Video/internal/bot"
	cfgpkg "github.com/artemiysm/TG-Video/internal/config"
	"github.com/artemiysm/TG-Video/internal/options"
	"github.com/artemiysm/TG-Video/internal/progress"
	repo "github.com/artemiysm/TG-Video/internal/repository"
	svc "github.com/artemiysm/TG-Video/internal/service"
	"github.com/artemiysm/TG-Video/internal/storage"
	"github.com/artemiysm/TG-Video/internal/transport"
	"github.com/artemiysm/TG-Video/internal/worker"
)

func main() {

	cfg, err := cfgpkg.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfgpkg.SetupLogger(cfg)
	logger.Info("configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.YtdlpAutoInstall {
		logger.Info("installing yt-dlp")
		if err := worker.Install(ctx); err != nil {
			logger.Error("failed to install yt-dlp", "error", err)
			os.Exit(1)
		}
	}

	tg, err := transport.NewTelegram(cfg.BotToken, cfg.UploadTimeout, cfg.BotDebug, logger)
	if err != nil {
		logger.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}

	fileStorage := storage.NewFileStorage(cfg.DownloadDir)
	tracker := progress.NewTracker()
	reporter := progress.NewReporter(tg, tracker, cfg.ProgressInterval, logger)
	builder := options.NewBuilder(reporter, options.LookPathProbe(cfg.Muxer), cfg.ShortVideoHosts)
	engine := worker.NewYtdlpWorker(fileStorage, logger)

	downloadService := svc.NewDownloadService(engine, tg, fileStorage, builder, tracker, cfg.MaxFileSize, logger)
	dispatcher := svc.NewDispatcher(downloadService, repo.NewActiveRequests(), tracker, tg, logger)
	handler := bot.NewHandler(tg, repo.NewPendingActions(), dispatcher, cfg.DirectLinks, cfg.MaxFileSize, logger)

	router := h.NewRouter(dispatcher, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("admin server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return handler.Run(gctx, tg.Updates(gctx))
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			logger.Error("dispatcher shutdown failed", "error", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin server shutdown: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
}
