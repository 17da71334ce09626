// Command sxcom is a minimal X11 compositing manager.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/1broseidon/sxcom/internal/config"
	"github.com/1broseidon/sxcom/internal/daemon"
	"github.com/1broseidon/sxcom/internal/logging"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var globalOpts struct {
	configPath string
	display    string
	debug      bool
}

var rootCmd = &cobra.Command{
	Use:   "sxcom",
	Short: "Minimal X11 compositing manager",
	Long: `sxcom redirects every top-level window off-screen and paints the
damaged ones onto the composite overlay window.

Running sxcom without a subcommand starts the compositor in the foreground.
Stop it with SIGINT or SIGTERM.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runCompositor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sxcom %s\n", rootCmd.Version)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the compositor (foreground)",
	Args:  cobra.NoArgs,
	RunE:  runCompositor,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: $XDG_CONFIG_HOME/sxcom/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.display, "display", "d", "",
		"X display to use (overrides config and $DISPLAY)")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.debug, "debug", false,
		"Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sxcom:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.LoadResult, error) {
	if globalOpts.configPath != "" {
		return config.LoadFromPath(globalOpts.configPath)
	}
	return config.Load()
}

func runCompositor(cmd *cobra.Command, args []string) error {
	res, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	if globalOpts.display != "" {
		cfg.Display = globalOpts.display
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if globalOpts.debug {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, level)
	slog.SetDefault(logger)

	if res.File != "" {
		logger.Info("configuration loaded", "file", res.File)
	}

	if err := daemon.Run(context.Background(), cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
	return nil
}
