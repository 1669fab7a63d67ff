package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"postharvest/pkg/auth"
	"postharvest/pkg/logger"
	"postharvest/pkg/scraper"
	"postharvest/pkg/ui"
)

var (
	// Scrape command flags
	target            int
	accountID         string
	author            string
	profile           string
	handoffDelay      time.Duration
	maxWait           time.Duration
	maxDegradedCycles int
	headless          bool
	stealth           bool
	userDataDir       string
	cookieAccount     string
	progressFile      string
	cursorFile        string
	forceRestart      bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Harvest the configured account into the progress file",
	Long: `Open the profile in Chrome, wait until the anti-automation checkpoint
is cleared, then collect posts until the target count is reached.

Solve the checkpoint by hand in the browser window if one appears; the
session is kept in the browser profile and in the cookie vault.

With --handoff-delay, timeline pages loaded while you scroll are captured
for that long before the automatic paginator takes over from the oldest
captured post.

Every page is appended to the progress file and the cursor is saved after
each one, so an interrupted run resumes where it stopped.`,
	Example: `  # Collect 10000 posts with the default account settings
  postharvest scrape

  # Stop after 500 posts and use a stored cookie set
  postharvest scrape --target 500 --cookies main

  # Scroll manually for two minutes before paging
  postharvest scrape --handoff-delay 2m

  # Ignore the saved cursor and start from the newest post
  postharvest scrape --force-restart`,
	Args: cobra.NoArgs,
	Run:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	f := scrapeCmd.Flags()
	f.IntVarP(&target, "target", "t", 0, "number of posts to collect")
	f.StringVar(&accountID, "account-id", "", "numeric id of the account whose timeline is paged")
	f.StringVar(&author, "author", "", "author label written in the first column")
	f.StringVar(&profile, "profile", "", "profile path opened for the checkpoint, e.g. @realDonaldTrump")
	f.DurationVar(&handoffDelay, "handoff-delay", 0, "time to capture manual scrolling before paging")
	f.DurationVar(&maxWait, "max-wait", 0, "maximum time to wait for the checkpoint")
	f.IntVar(&maxDegradedCycles, "max-degraded-cycles", 0, "stop after this many recovery cycles (0 retries forever)")
	f.BoolVar(&headless, "headless", false, "run Chrome without a window")
	f.BoolVar(&stealth, "stealth", false, "inject the stealth evasion script")
	f.StringVar(&userDataDir, "user-data-dir", "", "persistent Chrome profile directory")
	f.StringVar(&cookieAccount, "cookies", "", "stored cookie set to inject (see 'postharvest auth list')")
	f.StringVarP(&progressFile, "output", "o", "", "progress file the corpus is appended to")
	f.StringVar(&cursorFile, "cursor-file", "", "file holding the resume cursor")
	f.BoolVar(&forceRestart, "force-restart", false, "discard the saved cursor and start from the newest post")
}

// scrapeFlags collects the scrape flags the user actually set
func scrapeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := globalFlags(cmd)
	f := cmd.Flags()
	if f.Changed("target") {
		flags["target"] = target
	}
	if f.Changed("account-id") {
		flags["account-id"] = accountID
	}
	if f.Changed("author") {
		flags["author"] = author
	}
	if f.Changed("profile") {
		flags["profile"] = profile
	}
	if f.Changed("handoff-delay") {
		flags["handoff-delay"] = handoffDelay
	}
	if f.Changed("max-wait") {
		flags["max-wait"] = maxWait
	}
	if f.Changed("max-degraded-cycles") {
		flags["max-degraded-cycles"] = maxDegradedCycles
	}
	if f.Changed("headless") {
		flags["headless"] = headless
	}
	if f.Changed("stealth") {
		flags["stealth"] = stealth
	}
	if f.Changed("user-data-dir") {
		flags["user-data-dir"] = userDataDir
	}
	if f.Changed("cookies") {
		flags["cookie-account"] = cookieAccount
	}
	if f.Changed("output") {
		flags["progress-file"] = progressFile
	}
	if f.Changed("cursor-file") {
		flags["cursor-file"] = cursorFile
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig(scrapeFlags(cmd))
	log := logger.GetLogger()
	log.WithField("version", version).Info("postharvest starting")

	ui.PrintInfo("Profile", cfg.Source.ProfileURL())
	ui.PrintInfo("Target", fmt.Sprintf("%d posts", cfg.Paginator.Target))
	ui.PrintInfo("Output", cfg.Output.ProgressFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scraper.New(cfg, scraper.RodLauncher, log).
		WithReporter(ui.NewProgressDisplay(cfg.Source.Author, cfg.Paginator.Target, verbose)).
		WithNotifier(ui.NewNotifier(cfg.Notifications))

	vault, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Cookie vault unavailable, relying on the browser profile")
	} else {
		s.WithVault(vault)
	}

	ui.PrintHighlight("[OPENING BROWSER]")
	report, err := s.Run(ctx, scraper.Options{ForceRestart: forceRestart})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted, progress and cursor are saved", report.Summary.Cursor)
			os.Exit(130)
		}
		log.WithError(err).Error("Scrape failed")
		ui.PrintError("SCRAPE FAILED", err.Error())
		os.Exit(1)
	}

	if report.Session.TimedOut {
		ui.PrintWarning("The checkpoint was never confirmed cleared; results may be partial")
	}
	ui.PrintSuccess(fmt.Sprintf("[%d POSTS WRITTEN TO %s]", report.Summary.Total, cfg.Output.ProgressFile))
}
