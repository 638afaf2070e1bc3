package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

// Config keeps runtime settings for the server, scheduler and bot.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Store    StoreConfig    `mapstructure:"store"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Timezone string         `mapstructure:"timezone"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Backend     string `mapstructure:"backend"`
	DatabaseURL string `mapstructure:"database_url"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	TasksTab        string `mapstructure:"tasks_tab"`
	MembersTab      string `mapstructure:"members_tab"`
	CategoriesTab   string `mapstructure:"categories_tab"`
}

// AuthConfig names the headers the auth proxy sets on every request.
type AuthConfig struct {
	EmailHeader  string `mapstructure:"email_header"`
	NameHeader   string `mapstructure:"name_header"`
	AvatarHeader string `mapstructure:"avatar_header"`
}

// ScheduleConfig holds six-field cron specs or daily "HH:MM" times; an empty
// value disables the job.
type ScheduleConfig struct {
	Propagate string `mapstructure:"propagate"`
	Digest    string `mapstructure:"digest"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

var defaults = map[string]any{
	"http.addr":               ":8080",
	"store.backend":           BackendSQLite,
	"store.database_url":      "teamload.db",
	"sheets.spreadsheet_id":   "",
	"sheets.credentials_file": "",
	"sheets.tasks_tab":        "Tasks",
	"sheets.members_tab":      "Members",
	"sheets.categories_tab":   "Categories",
	"auth.email_header":       "X-Auth-Request-Email",
	"auth.name_header":        "X-Auth-Request-User",
	"auth.avatar_header":      "X-Auth-Request-Avatar",
	"timezone":                "Local",
	"schedule.propagate":      "0 5 0 * * MON",
	"schedule.digest":         "0 0 9 * * MON",
	"telegram.token":          "",
	"telegram.chat_id":        0,
	"log.level":               "info",
	"log.development":         false,
}

// Load reads configuration from the file named by TEAMLOAD_CONFIG, if any.
func Load() (Config, error) {
	return LoadFile(os.Getenv("TEAMLOAD_CONFIG"))
}

// LoadFile layers defaults, the optional YAML file at path and the
// environment. A .env file in the working directory is applied first.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("TEAMLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names the bot deployment already uses.
	_ = v.BindEnv("telegram.token", "TEAMLOAD_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("store.database_url", "TEAMLOAD_STORE_DATABASE_URL", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url is required for the sqlite backend")
		}
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required for the sheets backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Auth.EmailHeader == "" {
		return fmt.Errorf("auth.email_header is required")
	}
	if c.Telegram.ChatID != 0 && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.chat_id is set but telegram.token is empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the team time zone used for week keys and schedules.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TelegramEnabled reports whether the bot should run.
func (c Config) TelegramEnabled() bool {
	return c.Telegram.Token != ""
}
