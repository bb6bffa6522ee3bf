package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/trailcut/trailcut/internal/api"
	"github.com/trailcut/trailcut/internal/backend"
	"github.com/trailcut/trailcut/internal/catalog"
	"github.com/trailcut/trailcut/internal/config"
	"github.com/trailcut/trailcut/internal/db"
	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/logging"
	"github.com/trailcut/trailcut/internal/media"
	"github.com/trailcut/trailcut/internal/playback"
	"github.com/trailcut/trailcut/internal/session"
	"github.com/trailcut/trailcut/internal/telemetry"
	"github.com/trailcut/trailcut/internal/ui"
	"github.com/trailcut/trailcut/internal/watcher"
)

const deviceIDKey = "device_id"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting trailcut", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                     TRAILCUT v%-27s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	tool := newMediaTool(cfg, logger)
	extractor := newExtractor(cfg, logger)

	catalogSvc := catalog.NewService(
		repo,
		telemetry.NewLoader(extractor, logging.WithComponent(logger, "telemetry")),
		tool,
		catalog.Options{
			MergeThreshold:  cfg.MergeThreshold(),
			Scoring:         cfg.Scoring(),
			MaxSuggestions:  cfg.MaxSuggestions(),
			SmoothingWindow: cfg.SmoothingWindow(),
			Resolution:      interest.DefaultResolution,
			Method:          cfg.SuggestMethod(),
			LevelScoring:    cfg.LevelScoring(),
			Finish:          cfg.RenderFinish(),
		},
		logging.WithComponent(logger, "catalog"),
	)

	sessions := session.NewManager(sessionConfig(cfg, catalogSvc, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := catalog.NewRunner(catalogSvc, repo, logging.WithComponent(logger, "runner"))
	go runner.Start(ctx)

	folderWatcher, err := newFolderWatcher(catalogSvc, logging.WithComponent(logger, "watcher"))
	if err != nil {
		logger.Warn("folder watcher unavailable, rescan projects by hand", "error", err)
	} else {
		go folderWatcher.Start(ctx)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Catalog:        catalogSvc,
		Sessions:       sessions,
		PlaybackServer: playback.NewServer(logger),
		Repository:     repo,
		Runner:         runner,
		Media:          tool,
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
		Version:        config.Version,
	})

	if err := apiServer.Listen(); err != nil {
		return err
	}
	go func() {
		if err := apiServer.Serve(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			CatalogService: catalogSvc,
			Runner:         runner,
			Logger:         logger,
			OnRescan: func() error {
				return rescanAll(context.Background(), catalogSvc)
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if err := sessions.CloseAll(shutdownCtx); err != nil {
		logger.Error("failed to flush editing sessions", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newMediaTool falls back to a stub when ffmpeg is missing, so the editor
// still works and only rendering is refused.
func newMediaTool(cfg config.Config, logger *slog.Logger) media.Tool {
	mcfg := media.DefaultConfig(logging.WithComponent(logger, "media"))
	mcfg.FFmpegPath = cfg.FFmpegPath()
	mcfg.FFprobePath = cfg.FFprobePath()

	tool, err := media.NewFFmpeg(mcfg)
	if err != nil {
		logger.Warn("ffmpeg unavailable, rendering disabled", "error", err)
		return media.NewStubTool(logger)
	}
	return tool
}

func newExtractor(cfg config.Config, logger *slog.Logger) telemetry.Extractor {
	if cfg.ExtractorCommand() == "" {
		logger.Info("no telemetry extractor configured, suggestions use cached telemetry only")
		return telemetry.NewNoopExtractor(logger)
	}
	extractor, err := telemetry.NewCommandExtractor(telemetry.ExtractorConfig{
		Command: cfg.ExtractorCommand(),
		Timeout: cfg.ExtractTimeout(),
		WorkDir: filepath.Join(cfg.DataDir(), "extract"),
		Logger:  logging.WithComponent(logger, "extractor"),
	})
	if err != nil {
		logger.Warn("telemetry extractor unavailable", "error", err)
		return telemetry.NewNoopExtractor(logger)
	}
	return extractor
}

// sessionConfig saves editing sessions to the remote backend when one is
// configured, otherwise to the local catalog.
func sessionConfig(cfg config.Config, catalogSvc *catalog.Service, logger *slog.Logger) session.ManagerConfig {
	mcfg := session.ManagerConfig{
		Persister:      catalogSvc,
		Loader:         catalogSvc.SessionLoader(),
		MergeThreshold: cfg.MergeThreshold(),
		Logger:         logging.WithComponent(logger, "session"),
	}
	if cfg.BackendURL() != "" {
		client := backend.New(backend.Config{
			BaseURL: cfg.BackendURL(),
			Token:   cfg.BackendToken(),
			Logger:  logger,
		})
		mcfg.Persister = client
		mcfg.Loader = client.Loader()
		logger.Info("editing sessions use remote backend", "base_url", cfg.BackendURL())
	}
	return mcfg
}

func rescanAll(ctx context.Context, catalogSvc *catalog.Service) error {
	projects, err := catalogSvc.ListProjects(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range projects {
		if _, err := catalogSvc.ScanProject(ctx, p.Slug); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Slug, err))
		}
	}
	return errors.Join(errs...)
}

func ensureDeviceID(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, deviceIDKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, deviceIDKey, deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}

// newFolderWatcher rescans a project when its recordings change and marks it
// missing when its folder goes away.
func newFolderWatcher(svc *catalog.Service, logger *slog.Logger) (*watcher.FolderWatcher, error) {
	w, err := watcher.New(watcher.Config{
		Source: svc.ProjectFolders,
		Filter: catalog.IsVideoFile,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	w.OnChange(func(path string, event watcher.EventType) {
		if err := svc.FolderChanged(context.Background(), path, event == watcher.EventDelete); err != nil {
			logger.Warn("failed to handle folder change", "path", path, "error", err)
		}
	})
	return w, nil
}
