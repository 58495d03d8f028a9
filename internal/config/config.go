package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // FREEE_TZ must resolve in minimal containers

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Table store backends.
const (
	BackendXLSX     = "xlsx"
	BackendMySQL    = "mysql"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds file- and environment-driven configuration.
type Config struct {
	Toggl struct {
		APIToken    string `yaml:"api_token" env:"TOGGL_API_TOKEN"`
		WorkspaceID int64  `yaml:"workspace_id" env:"TOGGL_WORKSPACE_ID"`
		BaseURL     string `yaml:"base_url" env:"TOGGL_BASE_URL"` // default: https://api.track.toggl.com
	} `yaml:"toggl"`
	Freee struct {
		BaseURL      string    `yaml:"base_url" env:"FREEE_BASE_URL"` // default: https://api.freee.co.jp
		ClientID     string    `yaml:"client_id" env:"FREEE_CLIENT_ID"`
		ClientSecret string    `yaml:"client_secret" env:"FREEE_CLIENT_SECRET"`
		AuthURL      string    `yaml:"auth_url" env:"FREEE_AUTH_URL"`
		TokenURL     string    `yaml:"token_url" env:"FREEE_TOKEN_URL"`
		AccessToken  string    `yaml:"access_token" env:"FREEE_ACCESS_TOKEN"`
		RefreshToken string    `yaml:"refresh_token" env:"FREEE_REFRESH_TOKEN"`
		TokenExpiry  time.Time `yaml:"token_expiry" env:"FREEE_TOKEN_EXPIRY"`
		CompanyID    int64     `yaml:"company_id" env:"FREEE_COMPANY_ID"`
		Timezone     string    `yaml:"timezone" env:"FREEE_TZ"` // workload dates are formatted here
	} `yaml:"freee"`
	Tables struct {
		Backend       string `yaml:"backend" env:"TABLE_BACKEND"` // xlsx, mysql, sqlite, postgres
		XLSXPath      string `yaml:"xlsx_path" env:"TABLE_XLSX_PATH"`
		MySQLDSN      string `yaml:"mysql_dsn" env:"MYSQL_DSN"`
		SQLitePath    string `yaml:"sqlite_path" env:"SQLITE_PATH"`
		PostgresDSN   string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
		CrossMap      string `yaml:"cross_map" env:"TABLE_CROSS_MAP"`
		Report        string `yaml:"report" env:"TABLE_REPORT"`
		Taxonomy      string `yaml:"taxonomy" env:"TABLE_TAXONOMY"`
		TogglTaxonomy string `yaml:"toggl_taxonomy" env:"TABLE_TOGGL_TAXONOMY"`
	} `yaml:"tables"`
	HTTP struct {
		Addr           string   `yaml:"addr" env:"HTTP_ADDR"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"http"`
}

// Default returns the configuration used when neither file nor env set a value.
func Default() Config {
	var cfg Config
	cfg.Toggl.BaseURL = "https://api.track.toggl.com"
	cfg.Freee.BaseURL = "https://api.freee.co.jp"
	cfg.Freee.AuthURL = "https://accounts.secure.freee.co.jp/public_api/authorize"
	cfg.Freee.TokenURL = "https://accounts.secure.freee.co.jp/public_api/token"
	cfg.Freee.Timezone = "Asia/Tokyo"
	cfg.Tables.Backend = BackendXLSX
	cfg.Tables.XLSXPath = "toggl-freee.xlsx"
	cfg.Tables.SQLitePath = "toggl-freee.db"
	cfg.Tables.CrossMap = "TOGGL_FREEE_MAP"
	cfg.Tables.Report = "TOGGL_REPORT"
	cfg.Tables.Taxonomy = "FREEE_PROJECTS_TAGS"
	cfg.Tables.TogglTaxonomy = "TOGGL_PROJECTS_TAGS"
	cfg.HTTP.Addr = "127.0.0.1:8080"
	return cfg
}

// Load reads configuration from the optional YAML file named by
// TOGGL_FREEE_CONFIG, then environment variables, on top of Default.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("TOGGL_FREEE_CONFIG"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (cfg Config) validate() error {
	if cfg.Toggl.APIToken == "" {
		return errors.New("TOGGL_API_TOKEN is required")
	}
	switch cfg.Tables.Backend {
	case BackendXLSX:
		if cfg.Tables.XLSXPath == "" {
			return errors.New("TABLE_XLSX_PATH is required for the xlsx backend")
		}
	case BackendMySQL:
		if cfg.Tables.MySQLDSN == "" {
			return errors.New("MYSQL_DSN is required for the mysql backend")
		}
	case BackendSQLite:
		if cfg.Tables.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if cfg.Tables.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown TABLE_BACKEND %q", cfg.Tables.Backend)
	}
	if _, err := time.LoadLocation(cfg.Freee.Timezone); err != nil {
		return fmt.Errorf("invalid FREEE_TZ %q: %w", cfg.Freee.Timezone, err)
	}
	return nil
}
