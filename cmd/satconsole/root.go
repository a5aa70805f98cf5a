package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces every environment variable, e.g. SATCONSOLE_HTTP_ADDR.
const envPrefix = "SATCONSOLE"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "satconsole",
		Short: "Satellite data pipeline console",
		Long: `satconsole serves a monitoring console for a simulated satellite data
pipeline: fleet status, processing pipelines, a dataset catalog and a
simulated upload queue.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	root.Version = Version
	root.SetVersionTemplate("satconsole {{.Version}}\n")

	root.AddCommand(newServeCmd(), newFleetCmd(), newVersionCmd())
	return root
}

// newViper returns a viper instance bound to cmd's flags and to
// SATCONSOLE_* environment variables. Explicitly set flags win over env.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

// newLogger builds the JSON logger. Unknown levels fall back to info with a
// warning.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.LevelVar
	err := lvl.UnmarshalText([]byte(level))
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &lvl}))
	if err != nil {
		logger.Warn("invalid log level, using info", "value", level)
	}
	return logger
}
