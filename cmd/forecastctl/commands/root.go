// Package commands implements the forecastctl operator CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tableturn/forecaster/common/bootstrap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "forecastctl",
	Short: "Operator tool for the demand forecaster",
	Long: `forecastctl seeds locations with synthetic history, rebuilds hourly rollups,
exports staffing plans and uploads CSV event files to a running forecaster API.

Database settings come from the same environment as the services (POSTGRES_*).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.forecastctl.yaml)")

	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newRecomputeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newUploadCmd())
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newViper layers flags over FORECASTCTL_* env vars over the config file
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".forecastctl")
	}

	v.SetEnvPrefix("FORECASTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// loadOptions decodes a command's flags, env and config into out.
// RFC 3339 strings decode into time.Time fields.
func loadOptions(flags *pflag.FlagSet, out interface{}) error {
	v, err := newViper(flags)
	if err != nil {
		return err
	}

	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := v.Unmarshal(out, decoderConfigOption); err != nil {
		return fmt.Errorf("unable to decode options: %w", err)
	}
	return nil
}

// setupStore bootstraps just the database and logger for offline commands
func setupStore(ctx context.Context) (*bootstrap.Components, error) {
	return bootstrap.Setup(ctx, "forecastctl",
		bootstrap.WithoutQueue(),
		bootstrap.WithoutCache(),
		bootstrap.WithoutTelemetry(),
		bootstrap.WithoutRedis(),
	)
}
