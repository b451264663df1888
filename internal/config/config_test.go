// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mastget/pkg/types"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://mast.stsci.edu", cfg.Archive.BaseURL)
	assert.Equal(t, 10*time.Minute, cfg.Archive.Timeout)
	assert.Equal(t, "mastget/0.1", cfg.Archive.UserAgent)
	assert.Equal(t, 50000, cfg.Archive.PageSize)
	assert.Equal(t, 5, cfg.Archive.MaxRetries)
	assert.Equal(t, time.Second, cfg.Archive.PollInterval)

	assert.Equal(t, ".", cfg.Download.Dest)
	assert.Equal(t, 5, cfg.Download.BatchSize)
	assert.True(t, cfg.Download.Cache)
	assert.Zero(t, cfg.Download.Delay)
	assert.Equal(t, []string{types.ProductScience}, cfg.Download.ProductTypes)
	assert.Equal(t, []int{3}, cfg.Download.CalibLevels)

	assert.True(t, cfg.Ledger.Enabled)
	assert.Equal(t, "mastget.db", cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestSetup_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mastget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
archive:
  timeout: 30s
  page_size: 1000
download:
  dest: /data/mast
  batch_size: 10
  calib_levels: [2, 3]
log:
  format: json
`), 0o644))

	t.Setenv("MASTGET_DOWNLOAD_BATCH_SIZE", "7")
	t.Setenv("MASTGET_ARCHIVE_TOKEN", "tok")

	v := viper.New()
	used, err := Setup(v, path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Archive.Timeout)
	assert.Equal(t, 1000, cfg.Archive.PageSize)
	assert.Equal(t, "tok", cfg.Archive.Token)
	assert.Equal(t, "/data/mast", cfg.Download.Dest)
	assert.Equal(t, 7, cfg.Download.BatchSize, "environment overrides file")
	assert.Equal(t, []int{2, 3}, cfg.Download.CalibLevels)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "mastget/0.1", cfg.Archive.UserAgent, "default kept")
}

func TestSetup_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	_, err := Setup(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() types.Config {
		v := viper.New()
		SetDefaults(v)
		cfg, err := Load(v)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*types.Config)
		wantKey string
	}{
		{"zero batch size", func(c *types.Config) { c.Download.BatchSize = 0 }, "download.batch_size"},
		{"zero page size", func(c *types.Config) { c.Archive.PageSize = 0 }, "archive.page_size"},
		{"bad base url", func(c *types.Config) { c.Archive.BaseURL = "not a url" }, "archive.base_url"},
		{"calib level out of range", func(c *types.Config) { c.Download.CalibLevels = []int{3, 9} }, "download.calib_levels[1]"},
		{"negative timeout", func(c *types.Config) { c.Archive.Timeout = -time.Second }, "archive.timeout"},
		{"bad log format", func(c *types.Config) { c.Log.Format = "xml" }, "log.format"},
		{"ledger without path", func(c *types.Config) { c.Ledger.Path = "" }, "ledger.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}

	t.Run("disabled ledger needs no path", func(t *testing.T) {
		cfg := valid()
		cfg.Ledger = types.LedgerConfig{Enabled: false}
		assert.NoError(t, Validate(cfg))
	})
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "download.batch_size", configKey("Config.download.batch_size"))
	assert.Equal(t, "archive.timeout", configKey("Config.archive.HTTPConfig.timeout"))
	assert.Equal(t, "download.calib_levels[0]", configKey("Config.download.calib_levels[0]"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MASTGET_TEST_DOTENV=from-file\n"), 0o644))

	t.Setenv("MASTGET_TEST_DOTENV", "")
	os.Unsetenv("MASTGET_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("MASTGET_TEST_DOTENV"))
}
