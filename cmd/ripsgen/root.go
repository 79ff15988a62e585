package main

import (
	"fmt"
	"os"
	"strings"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/YasminGarcia1210/ripsgen/internal/config"
)

type appState struct {
	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	state := &appState{}
	var (
		configFile string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:           "ripsgen",
		Short:         "Genera registros RIPS a partir de facturas electrónicas e historias clínicas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") || logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			state.cfg = cfg
			state.logger = newLogger(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(state.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "ruta al archivo de configuración YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "nivel de log: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "formato de log: json o text")

	cmd.AddCommand(generateCmd(state))
	cmd.AddCommand(batchCmd(state))
	cmd.AddCommand(runsCmd(state))
	return cmd
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
