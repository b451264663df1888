package types

import "time"

// HTTPConfig holds shared HTTP settings used for archive requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Large product listings can take
	// minutes on the archive side.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "mastget/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ArchiveConfig holds settings for the archive client.
type ArchiveConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the archive root (default https://mast.stsci.edu).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// Token authorizes access to exclusive-access data. Optional.
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`

	// PageSize is the number of rows requested per invoke page (default 50000).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size" validate:"gt=0"`

	// MaxRetries bounds retries on HTTP 429 and 503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// PollInterval is the wait between polls of a still-executing query (default 1s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval" validate:"gte=0"`
}

// DownloadConfig holds settings for the batched download pipeline.
type DownloadConfig struct {
	// Dest is a directory path or bucket URL (file://, mem://, s3://, gs://).
	Dest string `json:"dest" yaml:"dest" mapstructure:"dest" validate:"required"`

	// BatchSize is the number of observations listed per request (default 5).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size" validate:"gt=0"`

	// Cache skips products already present at the destination with a matching size.
	Cache bool `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Delay is the pause between consecutive batches.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"gte=0"`

	// ProductTypes keeps products whose category is one of these (default SCIENCE).
	ProductTypes []string `json:"product_types" yaml:"product_types" mapstructure:"product_types"`

	// CalibLevels keeps products at one of these calibration levels (default 3).
	CalibLevels []int `json:"calib_levels" yaml:"calib_levels" mapstructure:"calib_levels" validate:"dive,gte=0,lte=4"`

	// MRPOnly keeps only the archive's minimum recommended products.
	MRPOnly bool `json:"mrp_only" yaml:"mrp_only" mapstructure:"mrp_only"`
}

// LedgerConfig holds settings for the download history database.
type LedgerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path" validate:"required_if=Enabled true"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
}

// Config groups all mastget settings.
type Config struct {
	Archive  ArchiveConfig  `json:"archive" yaml:"archive" mapstructure:"archive"`
	Download DownloadConfig `json:"download" yaml:"download" mapstructure:"download"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}
