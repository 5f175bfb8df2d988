// Package config loads leadscore settings from config.yaml, a .env file and
// LEADSCORE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Source kinds.
const (
	SourceSheets     = "sheets"
	SourceXLSX       = "xlsx"
	SourceCSV        = "csv"
	SourceNotion     = "notion"
	SourceSalesforce = "salesforce"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Sheets     SheetsConfig     `yaml:"sheets" mapstructure:"sheets"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead database.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns      int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns      int32  `yaml:"min_conns" mapstructure:"min_conns"`
	RetryAttempts int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	Migrate       bool   `yaml:"migrate" mapstructure:"migrate"`
}

// ModelConfig locates the classifier artifact and the feature mapping.
type ModelConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`
	MetadataPath string `yaml:"metadata_path" mapstructure:"metadata_path"`
	MappingPath  string `yaml:"mapping_path" mapstructure:"mapping_path"`
}

// SheetsConfig holds Google Sheets access settings.
type SheetsConfig struct {
	APIKey        string  `yaml:"api_key" mapstructure:"api_key"`
	AccessToken   string  `yaml:"access_token" mapstructure:"access_token"`
	SpreadsheetID string  `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Range         string  `yaml:"range" mapstructure:"range"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
	Status string `yaml:"status" mapstructure:"status"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	LeadWhere string  `yaml:"lead_where" mapstructure:"lead_where"`
	LeadLimit int     `yaml:"lead_limit" mapstructure:"lead_limit"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SourceConfig selects where sync reads rows from. Location is a local
// path or an http(s) or ftp URL for the csv and xlsx kinds.
type SourceConfig struct {
	Kind      string `yaml:"kind" mapstructure:"kind"`
	Location  string `yaml:"location" mapstructure:"location"`
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
}

// SyncConfig configures sync runs. An empty SourceTag tags leads with the
// source name.
type SyncConfig struct {
	SourceTag        string `yaml:"source_tag" mapstructure:"source_tag"`
	Lock             bool   `yaml:"lock" mapstructure:"lock"`
	LockTTLSecs      int    `yaml:"lock_ttl_secs" mapstructure:"lock_ttl_secs"`
	PredictAfterSync bool   `yaml:"predict_after_sync" mapstructure:"predict_after_sync"`
}

// RedisConfig locates the Redis server holding the sync lock.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// BatchConfig configures batch prediction.
type BatchConfig struct {
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Every key gets a default, even an empty one, so AutomaticEnv can
// override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.retry_attempts", 3)
	v.SetDefault("store.migrate", true)

	v.SetDefault("model.path", "models/lead_temperature_model.json")
	v.SetDefault("model.metadata_path", "models/model_metadata.json")
	v.SetDefault("model.mapping_path", "")

	v.SetDefault("sheets.api_key", "")
	v.SetDefault("sheets.access_token", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.range", "Sheet1")
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com/v4")
	v.SetDefault("sheets.rate_limit", 1.0)

	v.SetDefault("notion.token", "")
	v.SetDefault("notion.lead_db", "")
	v.SetDefault("notion.status", "")

	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.lead_where", "IsConverted = false")
	v.SetDefault("salesforce.lead_limit", 0)
	v.SetDefault("salesforce.rate_limit", 5.0)

	v.SetDefault("source.kind", SourceSheets)
	v.SetDefault("source.location", "")
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.delimiter", ",")

	v.SetDefault("sync.source_tag", "")
	v.SetDefault("sync.lock", false)
	v.SetDefault("sync.lock_ttl_secs", 600)
	v.SetDefault("sync.predict_after_sync", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.default_limit", 50)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validation modes, one per kind of command.
const (
	ModeStore = "store"
	ModeSync  = "sync"
	ModeServe = "serve"
)

// Validate checks the settings a command of the given mode needs and
// reports every problem in one error. ModeSync additionally checks the
// configured source, ModeServe the listener.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case ModeStore, ModeSync, ModeServe:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	c.validateStore(add)
	if mode == ModeSync {
		c.validateSource(add)
		if c.Sync.Lock && c.Redis.Addr == "" {
			add("redis.addr is required when sync.lock is enabled")
		}
	}
	if mode == ModeServe {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server.port must be > 0 and <= 65535")
		}
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		add("batch.concurrency must be between 1 and 64")
	}
	if c.Batch.DefaultLimit < 1 || c.Batch.DefaultLimit > 200 {
		add("batch.default_limit must be between 1 and 200")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore(add func(string, ...any)) {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		add("store.driver must be postgres or sqlite, got %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		add("store.database_url is required")
	}
	if c.Store.MinConns > c.Store.MaxConns {
		add("store.min_conns (%d) exceeds store.max_conns (%d)", c.Store.MinConns, c.Store.MaxConns)
	}
}

func (c *Config) validateSource(add func(string, ...any)) {
	switch c.Source.Kind {
	case SourceSheets:
		if c.Sheets.SpreadsheetID == "" {
			add("sheets.spreadsheet_id is required")
		}
		if c.Sheets.APIKey == "" && c.Sheets.AccessToken == "" {
			add("sheets.api_key or sheets.access_token is required")
		}
	case SourceCSV, SourceXLSX:
		if c.Source.Location == "" {
			add("source.location is required for the %s source", c.Source.Kind)
		}
		if len([]rune(c.Source.Delimiter)) > 1 {
			add("source.delimiter must be a single character")
		}
	case SourceNotion:
		if c.Notion.Token == "" {
			add("notion.token is required")
		}
		if c.Notion.LeadDB == "" {
			add("notion.lead_db is required")
		}
	case SourceSalesforce:
		if c.Salesforce.ClientID == "" || c.Salesforce.Username == "" || c.Salesforce.KeyPath == "" {
			add("salesforce.client_id, salesforce.username and salesforce.key_path are required")
		}
	default:
		add("source.kind %q is not one of sheets, xlsx, csv, notion, salesforce", c.Source.Kind)
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
