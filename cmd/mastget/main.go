// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mastget CLI: search the MAST
// archive, list observation products, and download them in small batches.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mastget/internal/config"
	"github.com/pdiddy/mastget/internal/logging"
	"github.com/pdiddy/mastget/internal/secrets"
	"github.com/pdiddy/mastget/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is the validated configuration of the running command.
var cfg types.Config

// flagKeys maps command-line flags to the config keys they override, per
// command name. Keys under "" apply to every command.
var flagKeys = map[string]map[string]string{
	"": {
		"log-level":  "log.level",
		"log-format": "log.format",
		"base-url":   "archive.base_url",
		"timeout":    "archive.timeout",
	},
	"download": {
		"dest":         "download.dest",
		"batch-size":   "download.batch_size",
		"delay":        "download.delay",
		"product-type": "download.product_types",
		"calib":        "download.calib_levels",
		"mrp-only":     "download.mrp_only",
		"ledger":       "ledger.path",
	},
	"history": {
		"ledger": "ledger.path",
	},
}

var rootCmd = &cobra.Command{
	Use:   "mastget",
	Short: "Search the MAST archive and download observation products in batches",
	Long: `mastget queries the Mikulski Archive for Space Telescopes (MAST) for
observations, lists their data products, and downloads the selected products.

Downloads run in small batches of observations so that each product listing
request stays well below the archive's request timeout. Every run is recorded
in a local SQLite ledger.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mastget.yaml or ~/.config/mastget/mastget.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().String("base-url", "", "archive base URL")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP request timeout")
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	v := viper.GetViper()
	cfgFile, _ := cmd.Flags().GetString("config")
	used, err := config.Setup(v, cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	if cfg, err = config.Load(v); err != nil {
		return err
	}

	log := logging.Init(cfg.Log, os.Stderr)
	if used != "" {
		log.Debug().Str("file", used).Msg("using config file")
	}

	s, err := secrets.Load(secrets.DefaultDir)
	if err != nil {
		return err
	}
	if keys := s.Keys(); len(keys) > 0 {
		log.Debug().Strs("keys", keys).Msg("loaded secrets")
	}
	cfg.Archive.Token = s.Get(secrets.MASTToken, cfg.Archive.Token)
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.Flags()
	for _, keys := range []map[string]string{flagKeys[""], flagKeys[cmd.Name()]} {
		for name, key := range keys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
