package models

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	PoolSize int    `yaml:"pool_size" mapstructure:"pool_size"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// FeedConfig controls how change-feed consumers poll the outbox.
type FeedConfig struct {
	PollInterval string `yaml:"poll_interval" mapstructure:"poll_interval"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// AlertConfig holds alert thresholds.
type AlertConfig struct {
	StaleHours int `yaml:"stale_hours" mapstructure:"stale_hours"`
	QCBacklog  int `yaml:"qc_backlog" mapstructure:"qc_backlog"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationsConfig controls outbound alert delivery.
type NotificationsConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// GlobalConfig holds system-wide settings read from .ttconfig via Viper.
type GlobalConfig struct {
	Database       DatabaseConfig      `yaml:"database" mapstructure:"database"`
	SnapshotDir    string              `yaml:"snapshot_dir" mapstructure:"snapshot_dir"`
	EventLogPath   string              `yaml:"eventlog_path" mapstructure:"eventlog_path"`
	Logging        LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	Feed           FeedConfig          `yaml:"feed" mapstructure:"feed"`
	TaskIDPrefix   string              `yaml:"task_id_prefix" mapstructure:"task_id_prefix"`
	TaskIDPadWidth int                 `yaml:"task_id_pad_width" mapstructure:"task_id_pad_width"`
	Alerts         AlertConfig         `yaml:"alerts" mapstructure:"alerts"`
	Notifications  NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
}
