// Package core contains the business logic of tasktimer: the task state
// machine, time accounting, timer sessions, the lifecycle engine, and the
// notification reconciler. It depends only on local interfaces; storage
// and observability are injected by the app layer.
package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// ConfigFileName is the global configuration file looked up in the base path.
const ConfigFileName = ".ttconfig"

// validPrefixPattern matches uppercase alphanumeric prefixes between 1 and 10 characters.
var validPrefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// ConfigurationManager loads and validates the global configuration.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper. Values
// come from, in increasing precedence: defaults, .ttconfig, TT_* env vars.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .ttconfig from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Database: models.DatabaseConfig{
			Path:     "tasktimer.db",
			PoolSize: 4,
		},
		SnapshotDir:  ".local",
		EventLogPath: ".tt_events.jsonl",
		Logging: models.LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Feed: models.FeedConfig{
			PollInterval: "1s",
			BatchSize:    100,
		},
		TaskIDPrefix:   "TASK",
		TaskIDPadWidth: 5,
		Alerts: models.AlertConfig{
			StaleHours: 8,
			QCBacklog:  10,
		},
	}
}

// LoadGlobalConfig reads .ttconfig from the base path. A missing file is
// not an error; defaults and environment overrides still apply. Relative
// paths are resolved against the base path.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	def := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("TT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.pool_size", def.Database.PoolSize)
	v.SetDefault("snapshot.dir", def.SnapshotDir)
	v.SetDefault("eventlog.path", def.EventLogPath)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.max_size_mb", def.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", def.Logging.MaxBackups)
	v.SetDefault("feed.poll_interval", def.Feed.PollInterval)
	v.SetDefault("feed.batch_size", def.Feed.BatchSize)
	v.SetDefault("task_id.prefix", def.TaskIDPrefix)
	v.SetDefault("task_id.pad_width", def.TaskIDPadWidth)
	v.SetDefault("alerts.stale_hours", def.Alerts.StaleHours)
	v.SetDefault("alerts.qc_backlog", def.Alerts.QCBacklog)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.slack.webhook_url", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg := &models.GlobalConfig{
		Database: models.DatabaseConfig{
			Path:     cm.resolve(v.GetString("database.path")),
			PoolSize: v.GetInt("database.pool_size"),
		},
		SnapshotDir:  cm.resolve(v.GetString("snapshot.dir")),
		EventLogPath: cm.resolve(v.GetString("eventlog.path")),
		Logging: models.LoggingConfig{
			Level:      v.GetString("logging.level"),
			Format:     v.GetString("logging.format"),
			File:       v.GetString("logging.file"),
			MaxSizeMB:  v.GetInt("logging.max_size_mb"),
			MaxBackups: v.GetInt("logging.max_backups"),
		},
		Feed: models.FeedConfig{
			PollInterval: v.GetString("feed.poll_interval"),
			BatchSize:    v.GetInt("feed.batch_size"),
		},
		TaskIDPrefix:   v.GetString("task_id.prefix"),
		TaskIDPadWidth: v.GetInt("task_id.pad_width"),
		Alerts: models.AlertConfig{
			StaleHours: v.GetInt("alerts.stale_hours"),
			QCBacklog:  v.GetInt("alerts.qc_backlog"),
		},
		Notifications: models.NotificationsConfig{
			Enabled: v.GetBool("notifications.enabled"),
			Slack: models.SlackConfig{
				WebhookURL: v.GetString("notifications.slack.webhook_url"),
			},
		},
	}
	if cfg.Logging.File != "" {
		cfg.Logging.File = cm.resolve(cfg.Logging.File)
	}
	return cfg, nil
}

func (cm *viperConfigManager) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(cm.basePath, p)
}

// ValidateConfig checks cfg and reports every problem in one error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Database.Path == "" {
		errs = append(errs, "database.path must not be empty")
	}
	if cfg.Database.PoolSize < 1 {
		errs = append(errs, fmt.Sprintf("database.pool_size must be at least 1, got %d", cfg.Database.PoolSize))
	}
	if cfg.SnapshotDir == "" {
		errs = append(errs, "snapshot.dir must not be empty")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is invalid, must be one of: debug, info, warn, error", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q is invalid, must be console or json", cfg.Logging.Format))
	}

	if d, err := time.ParseDuration(cfg.Feed.PollInterval); err != nil || d <= 0 {
		errs = append(errs, fmt.Sprintf("feed.poll_interval %q must be a positive duration", cfg.Feed.PollInterval))
	}
	if cfg.Feed.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("feed.batch_size must be at least 1, got %d", cfg.Feed.BatchSize))
	}

	if cfg.TaskIDPrefix == "" {
		errs = append(errs, "task_id.prefix must not be empty")
	} else if !validPrefixPattern.MatchString(cfg.TaskIDPrefix) {
		errs = append(errs, fmt.Sprintf("task_id.prefix %q is invalid, must match [A-Z0-9]{1,10}", cfg.TaskIDPrefix))
	}
	if cfg.TaskIDPadWidth < 0 || cfg.TaskIDPadWidth > 10 {
		errs = append(errs, fmt.Sprintf("task_id.pad_width %d is invalid, must be between 0 and 10", cfg.TaskIDPadWidth))
	}

	if cfg.Alerts.StaleHours < 1 {
		errs = append(errs, fmt.Sprintf("alerts.stale_hours must be at least 1, got %d", cfg.Alerts.StaleHours))
	}
	if cfg.Alerts.QCBacklog < 0 {
		errs = append(errs, fmt.Sprintf("alerts.qc_backlog must be non-negative, got %d", cfg.Alerts.QCBacklog))
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("global config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// PollInterval parses the feed poll interval, falling back to one second.
func PollInterval(cfg *models.GlobalConfig) time.Duration {
	d, err := time.ParseDuration(cfg.Feed.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
