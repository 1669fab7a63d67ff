package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"postharvest/pkg/corpus"
	"postharvest/pkg/logger"
	"postharvest/pkg/ui"
)

var (
	// Corpus command flags
	convertOutput string
	convertAuthor string
	convertColumn string
	convertAppend bool
	statsHTML     string
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <export.csv>",
	Short: "Convert a CSV archive export into corpus lines",
	Long: `Read a CSV export with a header row and write one "Author,Text" line
per non-empty text cell, normalized the same way harvested posts are.

Rows the CSV reader cannot parse are skipped and counted.`,
	Example: `  # Convert a tweet archive into musk_tweets.csv
  postharvest convert all_musk_posts.csv -o musk_tweets.csv

  # Append to an existing corpus from a column named "text"
  postharvest convert export.csv -o corpus.csv --column text --append`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <corpus.csv>...",
	Short: "Report per-author volume of corpus files",
	Long: `Count lines per author label over one or more corpus files and report
the mean text length. Lines that are not "Author,Text" are counted as
malformed. With --html an interactive chart page is written as well.`,
	Example: `  postharvest stats trump_truths_progress.csv musk_tweets.csv --html stats.html`,
	Args:    cobra.MinimumNArgs(1),
	Run:     runStats,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(statsCmd)

	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "musk_tweets.csv", "corpus file to write")
	convertCmd.Flags().StringVar(&convertAuthor, "author", "Musk", "author label for every line")
	convertCmd.Flags().StringVar(&convertColumn, "column", corpus.DefaultTextColumn, "name of the text column")
	convertCmd.Flags().BoolVar(&convertAppend, "append", false, "append instead of replacing the output")
	statsCmd.Flags().StringVar(&statsHTML, "html", "", "also write a chart page to this file")
}

func runConvert(cmd *cobra.Command, args []string) {
	if _, err := loadConfig(globalFlags(cmd)); err != nil {
		ui.PrintWarning("Using default logging", err.Error())
	}

	ui.PrintInfo("Input", args[0])
	ui.PrintInfo("Output", convertOutput)

	stats, err := corpus.ConvertFile(args[0], convertOutput, corpus.ConvertOptions{
		Author:     convertAuthor,
		TextColumn: convertColumn,
	}, convertAppend, logger.GetLogger())
	if err != nil {
		ui.PrintError("Conversion failed", err.Error())
		os.Exit(1)
	}

	fmt.Printf("\n  rows:    %d\n  written: %d\n  empty:   %d\n  skipped: %d\n\n",
		stats.Rows, stats.Written, stats.Empty, stats.Skipped)
	ui.PrintSuccess(fmt.Sprintf("Wrote %d lines to %s", stats.Written, convertOutput))
}

func runStats(cmd *cobra.Command, args []string) {
	report, err := corpus.Stats(args...)
	if err != nil {
		ui.PrintError("Failed to read corpus", err.Error())
		os.Exit(1)
	}

	report.WriteText(os.Stdout)

	if statsHTML == "" {
		return
	}
	f, err := os.Create(statsHTML)
	if err != nil {
		ui.PrintError("Failed to create chart page", err.Error())
		os.Exit(1)
	}
	defer f.Close()
	if err := report.RenderHTML(f); err != nil {
		ui.PrintError("Failed to render chart page", err.Error())
		os.Exit(1)
	}
	fmt.Println()
	ui.PrintSuccess("Chart page written: " + statsHTML)
}
