package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"postharvest/pkg/config"
	"postharvest/pkg/logger"
	"postharvest/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	notifications bool
	quiet         bool
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "postharvest",
	Short: "Harvest a public timeline into a labeled text corpus",
	Long: `postharvest collects the posts of one public account into a
"Author,Text" corpus file and serves an authorship classifier over it.

Features:
  - Waits out anti-automation checkpoints in a real, persistent browser
  - Captures timeline pages while you scroll, then pages on its own
  - Escalating backoff on rate limits and session recovery on errors
  - Resumes from the last cursor after interruptions
  - Reuses stored session cookies across runs
  - Interactive "who wrote it" predictor`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuiet(true)
		}
		switch cmd.Name() {
		case "version", "help", "completion", "predict":
		default:
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.postharvest.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and per-batch output")

	rootCmd.SetVersionTemplate(`postharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the root flags that map onto configuration keys
func globalFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if verbose {
		flags["log-level"] = "debug"
	} else if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications-enabled"] = notifications
	}
	return flags
}

// loadConfig loads configuration with the given command flags layered on
// top and initializes the global logger from it
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// mustLoadConfig is loadConfig for commands that cannot continue without one
func mustLoadConfig(flags map[string]interface{}) *config.Config {
	cfg, err := loadConfig(flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	return cfg
}
