package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"postharvest/pkg/config"
	"postharvest/pkg/ui"
)

const defaultConfigPath = ".postharvest.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage postharvest configuration files.

Configuration is loaded from (highest priority first):
  - Command line flags
  - Environment variables (POSTHARVEST_*)
  - .env files
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.postharvest.yaml' in the current directory unless
a different path is given with --config.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

The classifier API token is masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Required fields
  - Value ranges
  - Output path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# postharvest configuration file
#
# Every option can also be set with an environment variable prefixed with
# POSTHARVEST_, for example POSTHARVEST_TARGET or POSTHARVEST_ACCOUNT_ID.

# Account whose timeline is harvested
source:
  base_url: "https://truthsocial.com"
  # Profile opened while waiting for the checkpoint
  profile_path: "@realDonaldTrump"
  # Numeric account id used by the timeline endpoint
  account_id: "107780257626128497"
  # Label written in the first column of every corpus line
  author: "Trump"
  page_limit: 40

browser:
  # Persistent profile; a solved checkpoint survives restarts here
  user_data_dir: "user_data"
  headless: false
  no_sandbox: true
  stealth: false
  # Stored cookie set injected before navigation (postharvest auth list)
  cookie_account: ""

gatekeeper:
  poll_interval: 2s
  max_wait: 10m
  identity_marker: "Trump"

paginator:
  # Stop once this many posts were written in the run
  target: 10000
  # Rate limit backoff: starts at initial_backoff, doubles up to the ceiling
  # and drops to the floor after a success
  initial_backoff: 10s
  backoff_floor: 5s
  backoff_ceiling: 60s
  # Consecutive transport errors before a session recovery cycle
  error_sleep: 5s
  error_threshold: 5
  cooldown: 30s
  settle_delay: 10s
  # Random pause after every page
  jitter_min: 1s
  jitter_max: 2s
  min_interval: 1s
  # 0 retries recovery forever
  max_degraded_cycles: 0
  # Extra time for manual scrolling after the checkpoint, before paging
  handoff_delay: 0s

output:
  progress_file: "trump_truths_progress.csv"
  cursor_file: "last_id.txt"

classifier:
  endpoint: "https://api-inference.huggingface.co/models"
  model: "dxxrk/BERTweet-tuned-ElonTrumpPrediction"
  # Prefer the HUGGINGFACE_API environment variable over storing the token here
  api_token: ""
  max_length: 128
  timeout: 30s
  max_retries: 3

notifications:
  enabled: true
  on_complete: true
  on_degraded: true

logging:
  # debug, info, warn, error
  level: "info"
  # Optional log file; console output is always written to stderr
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			ui.PrintError("Failed to create configuration directory", err.Error())
			os.Exit(1)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Adjust the account and target in the configuration file")
	fmt.Println("2. Run 'postharvest config validate' to check the configuration")
	fmt.Println("3. Start harvesting with 'postharvest scrape'")
}

// sanitizeConfig returns a copy safe to print
func sanitizeConfig(cfg *config.Config) config.Config {
	out := *cfg
	if token := out.Classifier.APIToken; token != "" {
		if len(token) > 8 {
			out.Classifier.APIToken = token[:4] + "..." + token[len(token)-4:]
		} else {
			out.Classifier.APIToken = "***"
		}
	}
	return out
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig(globalFlags(cmd))

	display := sanitizeConfig(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (POSTHARVEST_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
}

// checkConfig returns problems Validate does not look for. Errors make the
// configuration unusable; warnings are worth a look.
func checkConfig(cfg *config.Config) (warnings, errs []string) {
	for _, path := range []string{cfg.Output.ProgressFile, cfg.Output.CursorFile, cfg.Logging.File} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			errs = append(errs, fmt.Sprintf("Cannot create directory for %s: %v", path, err))
		}
	}

	if cfg.Output.ProgressFile == cfg.Output.CursorFile {
		errs = append(errs, "progress_file and cursor_file must differ")
	}
	if cfg.Classifier.APIToken == "" {
		warnings = append(warnings, "classifier api_token is empty; the hosted model may reject or throttle requests")
	}
	if cfg.Browser.Headless {
		warnings = append(warnings, "headless browsers are more likely to be held at the checkpoint")
	}
	if cfg.Paginator.MaxDegradedCycles == 0 {
		warnings = append(warnings, "max_degraded_cycles is 0; a dead session is retried forever")
	}
	return warnings, errs
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	source := configFile
	if source == "" {
		source = "(default locations)"
	}
	ui.PrintInfo("Validating configuration", source)

	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	warnings, errs := checkConfig(cfg)
	if len(errs) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, e := range errs {
			fmt.Printf("  - %s\n", e)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Profile: %s (account %s)\n", cfg.Source.ProfileURL(), cfg.Source.AccountID)
	fmt.Printf("  Author label: %s\n", cfg.Source.Author)
	fmt.Printf("  Target: %d posts\n", cfg.Paginator.Target)
	fmt.Printf("  Output: %s (cursor %s)\n", cfg.Output.ProgressFile, cfg.Output.CursorFile)
	fmt.Printf("  Backoff: %s to %s\n", cfg.Paginator.InitialBackoff, cfg.Paginator.BackoffCeiling)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
