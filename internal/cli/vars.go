package cli

import (
	"github.com/dexhq/dex/internal/core"
	"github.com/dexhq/dex/internal/integration"
	"github.com/dexhq/dex/internal/observability"
	"github.com/dexhq/dex/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	TaskMgr    core.TaskManager
	ConfigMgr  core.ConfigurationManager
	SyncMgr    *integration.IssueSyncManager
	ArchiveRd  core.ArchiveStore
	EventLog   observability.EventLog
	ArchiveCfg models.AutoArchiveConfig
	BasePath   string
)
