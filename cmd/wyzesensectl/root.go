package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wyzesense/dongled/internal/config"
	"github.com/wyzesense/dongled/internal/logging"
	"github.com/wyzesense/dongled/internal/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	flagDevice         string
	flagConfigPath     string
	flagLogLevel       string
	flagCommandTimeout time.Duration
	flagScanTimeout    time.Duration
)

var cfg *config.Config
var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "wyzesensectl",
	Short: "Control a Wyze Sense USB dongle",
	Long: `wyzesensectl talks to a Wyze Sense bridge dongle over its HID
character device: listing paired sensors, pairing or unpairing one, and
streaming the live alarm/state event feed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfigPath
		var loaded *config.Config
		var err error
		if path != "" {
			loaded, err = config.LoadFrom(path)
		} else {
			loaded, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		levelStr := flagLogLevel
		if levelStr == "" {
			levelStr = cfg.LogLevel
		}
		if levelStr == "" {
			levelStr = "info"
		}
		level, err := logging.ParseLevel(levelStr)
		if err != nil {
			return err
		}
		logger = logging.NewLogger(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDevice, "device", "", "hidraw device path (default: saved config, or /dev/hidraw0)")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default: ~/.wyzesense-bridge/config.json)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: error|warn|info|debug|trace (default: info, or config log_level)")
	rootCmd.PersistentFlags().DurationVar(&flagCommandTimeout, "command-timeout", 0, "command reply timeout (default: 2s, or config)")
	rootCmd.PersistentFlags().DurationVar(&flagScanTimeout, "scan-timeout", 0, "pairing scan timeout (default: 60s, or config)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command, printing any error to stderr and exiting
// non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wyzesensectl: %v\n", err)
		os.Exit(1)
	}
}

// devicePath resolves the dongle character device to open: the --device
// flag, then the saved config default, then a last-resort guess.
func devicePath() string {
	if flagDevice != "" {
		return flagDevice
	}
	if cfg.DefaultDevicePath != "" {
		return cfg.DefaultDevicePath
	}
	return "/dev/hidraw0"
}

// openSession opens the dongle and runs the startup handshake, applying
// whatever timeouts were resolved from flags or saved config.
func openSession(onEvent session.OnEvent) (*session.Handle, error) {
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithCommandTimeout(resolveTimeout(flagCommandTimeout, cfg.CommandTimeout(session.DefaultCommandTimeout))),
		session.WithScanTimeout(resolveTimeout(flagScanTimeout, cfg.ScanTimeout(60*time.Second))),
	}
	return session.Open(devicePath(), onEvent, opts...)
}

// resolveTimeout prefers an explicit flag value over the config-or-default
// fallback.
func resolveTimeout(flagValue, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return fallback
}
