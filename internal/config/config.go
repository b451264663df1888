// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads mastget settings from defaults, a YAML file, a .env
// file, and MASTGET_* environment variables, then validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/mastget/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. MASTGET_DOWNLOAD_BATCH_SIZE.
const EnvPrefix = "MASTGET"

// FileName is the config file name searched for without extension.
const FileName = "mastget"

// ErrInvalid is returned when loaded settings fail validation.
var ErrInvalid = errors.New("invalid configuration")

// SetDefaults registers every key with its default value. Keys must be known
// to viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("archive.base_url", "https://mast.stsci.edu")
	v.SetDefault("archive.timeout", 10*time.Minute)
	v.SetDefault("archive.user_agent", "mastget/0.1")
	v.SetDefault("archive.page_size", 50000)
	v.SetDefault("archive.max_retries", 5)
	v.SetDefault("archive.poll_interval", time.Second)
	v.SetDefault("archive.token", "")

	v.SetDefault("download.dest", ".")
	v.SetDefault("download.batch_size", 5)
	v.SetDefault("download.cache", true)
	v.SetDefault("download.delay", time.Duration(0))
	v.SetDefault("download.product_types", []string{types.ProductScience})
	v.SetDefault("download.calib_levels", []int{3})
	v.SetDefault("download.mrp_only", false)

	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", "mastget.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Setup points v at the config file and the environment. An explicit
// cfgFile wins over the search path (./mastget.yaml, ~/.config/mastget/).
// It returns the file that was read, or "" when none was found.
func Setup(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored and variables
// already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var (
	vOnce  sync.Once
	vSvc   *validator.Validate
	vTrans ut.Translator
)

func validate() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		vTrans, _ = uni.GetTranslator("en")

		vSvc = validator.New(validator.WithRequiredStructEnabled())

		// report config keys, not Go field names
		vSvc.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			return name
		})
		_ = en_translations.RegisterDefaultTranslations(vSvc, vTrans)
	})
	return vSvc, vTrans
}

// Validate checks cfg against its struct tags. The returned error wraps
// ErrInvalid and lists every failing key.
func Validate(cfg types.Config) error {
	v, trans := validate()
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := configKey(fe.Namespace())
		msg := fe.Translate(trans)
		if fe.Field() != "" && strings.HasPrefix(msg, fe.Field()) {
			msg = key + msg[len(fe.Field()):]
		} else {
			msg = key + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// configKey turns a validator namespace such as "Config.download.batch_size"
// into the dotted config key. Segments named after Go types (the root and
// squashed embedded structs) are not part of the key.
func configKey(ns string) string {
	var keep []string
	for _, p := range strings.Split(ns, ".") {
		if p == "" || unicode.IsUpper(rune(p[0])) {
			continue
		}
		keep = append(keep, p)
	}
	return strings.Join(keep, ".")
}
