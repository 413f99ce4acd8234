package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"minutebook/activity"
	"minutebook/calllog"
	"minutebook/timeline"
)

type BitrixConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	// Users maps Bitrix portal user IDs to employee sheet names.
	Users map[string]string `yaml:"users"`
}

type Config struct {
	Workbook    string `yaml:"workbook"`
	DBPath      string `yaml:"db_path"`
	Inbox       string `yaml:"inbox"`
	LabelHeader string `yaml:"label_header"`

	ExcludeSheets []string          `yaml:"exclude_sheets"`
	SkipCallTypes []string          `yaml:"skip_call_types"`
	Aliases       map[string]string `yaml:"employee_aliases"`

	// SkipActivityUsers drops activity-export users whose name contains any of these.
	SkipActivityUsers []string `yaml:"skip_activity_users"`

	// CompanyUTCOffset and EmployeeUTCOffsets are in hours; calls are moved
	// by the difference so every sheet reads in company time.
	CompanyUTCOffset   int            `yaml:"company_utc_offset"`
	EmployeeUTCOffsets map[string]int `yaml:"employee_utc_offsets"`

	// SettleDelay is how long an inbox file must stay unchanged before it is merged.
	SettleDelay time.Duration `yaml:"settle_delay"`

	Bitrix BitrixConfig `yaml:"bitrix"`
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "minutebook", "config.yaml")
}

func defaultConfig() Config {
	dataDir := filepath.Join(xdg.DataHome, "minutebook")
	return Config{
		Workbook:      filepath.Join(dataDir, "employees.xlsx"),
		DBPath:        filepath.Join(dataDir, "minutebook.db"),
		Inbox:         filepath.Join(dataDir, "inbox"),
		LabelHeader:   timeline.DefaultLabelHeader,
		SkipCallTypes: calllog.DefaultSkipTypes,
		SettleDelay:   2 * time.Second,

		SkipActivityUsers: activity.DefaultSkipEmployees,
	}
}

// LoadConfig reads the YAML file at path, then .env and environment
// overrides. An empty path means the default location, which may be absent.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.Workbook = getenv("MINUTEBOOK_WORKBOOK", cfg.Workbook)
	cfg.DBPath = getenv("MINUTEBOOK_DB", cfg.DBPath)
	cfg.Inbox = getenv("MINUTEBOOK_INBOX", cfg.Inbox)
	cfg.LabelHeader = getenv("MINUTEBOOK_LABEL_HEADER", cfg.LabelHeader)
	cfg.Bitrix.WebhookURL = getenv("BITRIX_WEBHOOK_URL", cfg.Bitrix.WebhookURL)

	if strings.TrimSpace(cfg.LabelHeader) == "" {
		cfg.LabelHeader = timeline.DefaultLabelHeader
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	return cfg, nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// Offsets returns the shift applied to each employee's calls in call-log
// exports. Bitrix24 reports absolute times and is not shifted.
func (c Config) Offsets() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.EmployeeUTCOffsets))
	for name, hours := range c.EmployeeUTCOffsets {
		if d := time.Duration(c.CompanyUTCOffset-hours) * time.Hour; d != 0 {
			out[name] = d
		}
	}
	return out
}

func (c Config) CompanyZone() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.CompanyUTCOffset), c.CompanyUTCOffset*3600)
}

func (c Config) CallLogOptions() calllog.Options {
	return calllog.Options{SkipTypes: c.SkipCallTypes, Aliases: c.Aliases}
}

func (c Config) ActivityOptions() activity.Options {
	return activity.Options{SkipEmployees: c.SkipActivityUsers, Aliases: c.Aliases}
}
