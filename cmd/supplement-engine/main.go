// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the supplement-engine CLI and web server.
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/supplement-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/, the environment and
// .env at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

// rootCmd is the base command for the supplement-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "supplement-engine",
	Short: "Evidence summaries for dietary supplements from clinical literature",
	Long: `supplement-engine searches the clinical literature for a supplement, asks a
language model to pick the studies most relevant to a user's age and goal,
and writes a cited plain-language summary.

Run "serve" for the web interface, or "analyze" and "search" from the shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		ctx := logger.WithContext(cmd.Context())
		cmd.SetContext(ctx)

		s, err := secrets.LoadAll(ctx, ".secrets/", ".env")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./supplement-engine.yaml or ~/.config/supplement-engine/supplement-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().Bool("pretty", false, "human-readable console logs instead of JSON")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	setDefaults(viper.GetViper())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("supplement-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "supplement-engine"))
		}
	}

	viper.SetEnvPrefix("SUPPLEMENT_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from --pretty and the log_level setting.
func newLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if name := viper.GetString("log_level"); name != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(name))
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", name, err)
		}
		level = l
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger(), nil
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
