// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	BotToken string `env:"BOT_TOKEN,required,notEmpty"`
	// OwnerID 0 means no owner: nobody is quota-exempt and publish failures
	// have no fallback recipient. ChannelID 0 leaves submissions with nowhere
	// to go; the bot still serves downloads and group duties.
	OwnerID      int64 `env:"OWNER_ID"`
	ChannelID    int64 `env:"CHANNEL_ID"`
	LogChannelID int64 `env:"LOG_CHANNEL_ID"`

	DataDir string `env:"DATA_DIR" envDefault:"/app/data"`
	DBPath  string `env:"DB_PATH"`

	LimitDownloads  int `env:"LIMIT_DOWNLOAD" envDefault:"2"`
	LimitMediaPosts int `env:"LIMIT_MENFESS_MEDIA" envDefault:"10"`
	LimitTextPosts  int `env:"LIMIT_MENFESS_TEXT" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8787"`
	DownloadProxy string `env:"DOWNLOAD_PROXY"`
	YtdlpPath     string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "users.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OwnerID < 0 {
		return fmt.Errorf("OWNER_ID must be a Telegram user id, not a chat id")
	}
	// A limit of 0 disables that activity class for everyone but the owner.
	if c.LimitDownloads < 0 || c.LimitMediaPosts < 0 || c.LimitTextPosts < 0 {
		return fmt.Errorf("quota limits must not be negative")
	}
	return nil
}

// TempDir is the scratch space for in-flight download artifacts.
func (c *Config) TempDir() string {
	return filepath.Join(c.DataDir, "tmp")
}
