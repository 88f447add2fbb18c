package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"TGV_ENV" default:"development"`

	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	BotDebug bool   `envconfig:"TGV_BOT_DEBUG" default:"false"`

	HTTPPort    int           `envconfig:"TGV_HTTP_PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"TGV_HTTP_TIMEOUT" default:"15s"`

	DownloadDir      string        `envconfig:"TGV_DOWNLOAD_DIR" default:"downloads"`
	MaxFileSize      int64         `envconfig:"TGV_MAX_FILE_SIZE" default:"52428800"`
	ProgressInterval time.Duration `envconfig:"TGV_PROGRESS_INTERVAL" default:"2s"`
	UploadTimeout    time.Duration `envconfig:"TGV_UPLOAD_TIMEOUT" default:"120s"`
	ShortVideoHosts  []string      `envconfig:"TGV_SHORT_VIDEO_HOSTS" default:"tiktok.com"`
	DirectLinks      bool          `envconfig:"TGV_DIRECT_LINKS" default:"true"`

	YtdlpAutoInstall bool   `envconfig:"TGV_YTDLP_AUTO_INSTALL" default:"false"`
	Muxer            string `envconfig:"TGV_MUXER" default:"ffmpeg"`

	ShutdownTimeout time.Duration `envconfig:"TGV_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"TGV_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"TGV_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot token cannot be empty")
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive: %d", c.MaxFileSize)
	}

	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive: %s", c.ProgressInterval)
	}

	if c.UploadTimeout <= 0 {
		return fmt.Errorf("upload timeout must be positive: %s", c.UploadTimeout)
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}

	return nil
}
