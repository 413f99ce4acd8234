package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `workbook: /data/employees.xlsx
label_header: Звонки
exclude_sheets: [Summary]
skip_call_types: [busy]
employee_aliases:
  "Петров И.": Петров
company_utc_offset: 3
employee_utc_offsets:
  Alice: 5
  Bob: 3
settle_delay: 5s
bitrix:
  webhook_url: https://example.bitrix24.ru/rest/1/secret/
  users:
    "7": Alice
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	t.Setenv("MINUTEBOOK_DB", "/tmp/override.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/employees.xlsx", cfg.Workbook)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, "Звонки", cfg.LabelHeader)
	assert.Equal(t, []string{"Summary"}, cfg.ExcludeSheets)
	assert.Equal(t, 5*time.Second, cfg.SettleDelay)
	assert.Equal(t, "Alice", cfg.Bitrix.Users["7"])

	opts := cfg.CallLogOptions()
	assert.Equal(t, []string{"busy"}, opts.SkipTypes)
	assert.Equal(t, "Петров", opts.Aliases["Петров И."])

	assert.Equal(t, map[string]time.Duration{"Alice": -2 * time.Hour}, cfg.Offsets())

	_, offset := time.Date(2024, 6, 1, 0, 0, 0, 0, cfg.CompanyZone()).Zone()
	assert.Equal(t, 3*3600, offset)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("label_header: \"\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Calls", cfg.LabelHeader)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)
	assert.Equal(t, []string{"missed", "пропущенный"}, cfg.SkipCallTypes)
	assert.Equal(t, []string{"Телефон"}, cfg.ActivityOptions().SkipEmployees)
	assert.Equal(t, "employees.xlsx", filepath.Base(cfg.Workbook))
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workbook: [unterminated"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
