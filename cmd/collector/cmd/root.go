package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gamestats/cmd/collector/globals"
	"gamestats/internal/components/chrono"
	"gamestats/internal/components/telemetry"
	"gamestats/internal/config"
	"gamestats/lib/configutil"
	"gamestats/lib/serviceutil"
	libtelemetry "gamestats/lib/telemetry"

	"github.com/spf13/cobra"
)

const serviceName = "gamestats-collector"

var configPath string

var (
	logCloser    io.Closer
	exporters    libtelemetry.Telemetry
	shutdownOnce sync.Once
)

// shutdown flushes telemetry and closes the log file, it runs once whether the
// command finishes normally or exits through fatal.
func shutdown() {
	shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := exporters.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err.Error())
		}
		if logCloser != nil {
			logCloser.Close()
		}
	})
}

func fatal(message string, err error) {
	serviceutil.Fatal(message, err, shutdown)
}

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "collector gathers the daily stats of the top Rolimons games.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, cfgErr := configutil.ReadConfig[config.Config](configPath)
		if os.IsNotExist(cfgErr) {
			cfgErr = fmt.Errorf("no config found at %s or %s", configPath, configutil.LocalPath(configPath))
		}

		level, err := libtelemetry.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = slog.LevelInfo
		}
		logger, closer, err := libtelemetry.InitSlog(level, cfg.Logging.File)
		if err != nil {
			fatal("failed to open log file", err)
		}
		logCloser = closer

		if cfgErr == nil {
			exporters, err = libtelemetry.Setup(cmd.Context(), serviceName, cfg.Telemetry)
			if err != nil {
				slog.Warn("failed to setup otel, continuing without it", "err", err.Error())
			}
		}

		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
			Config:    cfg,
			ConfigErr: cfgErr,
			Tel:       telemetry.SlogAPI{Logger: logger},
			Time:      chrono.NewStandardTime(),
		}))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "Path to the configuration file, a .local variant next to it overrides it.")
}

// requireConfig exits when the configuration is unusable.
func requireConfig(g *globals.Value) config.Config {
	if g.ConfigErr != nil {
		fatal("failed to read config", g.ConfigErr)
	}
	return g.Config
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		shutdown()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
