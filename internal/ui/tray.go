// Package ui is the system tray menu: agent status, project count, pausing
// the job runner, rescanning and quitting.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/trailcut/trailcut/internal/catalog"
)

const refreshInterval = 5 * time.Second

type Tray struct {
	catalogSvc *catalog.Service
	runner     *catalog.Runner
	logger     *slog.Logger

	statusItem   *systray.MenuItem
	projectsItem *systray.MenuItem
	pauseItem    *systray.MenuItem

	mu sync.Mutex

	onRescan func() error
	onQuit   func()
	stop     chan struct{}
}

type TrayConfig struct {
	CatalogService *catalog.Service
	Runner         *catalog.Runner
	Logger         *slog.Logger
	OnRescan       func() error
	OnQuit         func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		catalogSvc: cfg.CatalogService,
		runner:     cfg.Runner,
		logger:     cfg.Logger,
		onRescan:   cfg.OnRescan,
		onQuit:     cfg.OnQuit,
		stop:       make(chan struct{}),
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Trailcut")
	systray.SetTooltip("Trailcut")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.projectsItem = systray.AddMenuItem("Projects: 0", "Registered projects")
	t.projectsItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause", "Pause background jobs")
	rescanItem := systray.AddMenuItem("Rescan Projects", "Rescan every project folder")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Trailcut")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-rescanItem.ClickedCh:
				t.handleRescan()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	go t.refreshLoop()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	close(t.stop)
	t.logger.Info("system tray exiting")
}

func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	t.refresh()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.refresh()
		}
	}
}

func (t *Tray) refresh() {
	ctx := context.Background()
	if t.catalogSvc != nil {
		if n, err := t.catalogSvc.CountProjects(ctx); err == nil {
			t.UpdateProjectsCount(n)
		}
	}
	if t.runner != nil {
		t.UpdateStatus(StatusText(t.runner.ActiveJob(ctx)))
	}
}

// StatusText describes what the runner is doing for the status item.
func StatusText(active *catalog.Job) string {
	if active == nil {
		return "Idle"
	}
	switch active.Type {
	case catalog.JobTypeScan:
		return fmt.Sprintf("Scanning (%d%%)", active.Progress)
	case catalog.JobTypeExtract:
		return fmt.Sprintf("Reading telemetry (%d%%)", active.Progress)
	case catalog.JobTypeRender:
		return fmt.Sprintf("Rendering (%d%%)", active.Progress)
	default:
		return "Working"
	}
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) handleRescan() {
	if t.onRescan != nil {
		if err := t.onRescan(); err != nil {
			t.logger.Error("failed to queue rescan", "error", err)
		}
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner != nil && t.runner.IsPaused() {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateProjectsCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.projectsItem.SetTitle(fmt.Sprintf("Projects: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
