// Package internal provides the App struct that wires all components of
// dex together and initializes the CLI layer.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/dexhq/dex/internal/cli"
	"github.com/dexhq/dex/internal/core"
	"github.com/dexhq/dex/internal/integration"
	"github.com/dexhq/dex/internal/observability"
	"github.com/dexhq/dex/internal/storage"
)

// storeDirName is the workspace data directory created by "dex init".
const storeDirName = ".dex"

// App holds all service dependencies for dex.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	TaskStore    storage.TaskStoreManager
	ArchiveStore storage.ArchiveStoreManager
	AuditLog     *storage.AuditLog

	// Core services
	TaskMgr core.TaskManager

	// Integration services
	SyncMgr *integration.IssueSyncManager

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components of dex. basePath is the
// directory containing .dexconfig; the stores live under its .dex/
// subdirectory.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	globalCfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	// --- Storage layer ---
	storeDir := filepath.Join(basePath, storeDirName)
	app.TaskStore = storage.NewTaskStore(storeDir)
	app.ArchiveStore = storage.NewArchiveStore(storeDir)
	app.AuditLog = storage.NewAuditLog(storeDir)

	// --- Observability ---
	eventLogPath := filepath.Join(storeDir, "events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable event logging if the log can't be created.
		app.EventLog = nil
	}
	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}

	// --- Core services ---
	app.TaskMgr = core.NewTaskManager(app.TaskStore, app.ArchiveStore, app.AuditLog, evtAdapter)

	// --- Integration services ---
	if globalCfg.GitHub.Repo != "" {
		token := os.Getenv(globalCfg.GitHub.TokenEnv)
		issues, ghErr := integration.NewGitHubIssues(context.Background(), globalCfg.GitHub.Repo, token)
		if ghErr == nil {
			app.SyncMgr = integration.NewIssueSyncManager(app.TaskStore, issues, evtAdapter, globalCfg.GitHub.Repo)
		}
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.TaskMgr = app.TaskMgr
	cli.ConfigMgr = app.ConfigMgr
	cli.SyncMgr = app.SyncMgr
	cli.ArchiveRd = app.ArchiveStore
	cli.EventLog = app.EventLog
	cli.ArchiveCfg = globalCfg.AutoArchive

	return app, nil
}

// Close releases resources held by the App, such as the event log file
// handle. It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the dex workspace directory. It checks the
// DEX_HOME env var, then walks up from the current directory looking for
// a .dexconfig, falling back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("DEX_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".dexconfig")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time: time.Now().UTC(),
		Type: eventType,
		Data: data,
	})
}
