package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"postharvest/pkg/classifier"
	"postharvest/pkg/logger"
	"postharvest/pkg/ui"
	"postharvest/pkg/ui/tui"
)

var predictTimeout time.Duration

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict [text]",
	Short: "Guess who wrote a text",
	Long: `Ask the classifier whether a text reads like Donald Trump or Elon Musk.

With text arguments the prediction is printed once. Without arguments an
interactive predictor opens.`,
	Example: `  # One-shot
  postharvest predict "The media is the enemy of the people!"

  # Interactive
  postharvest predict`,
	Run: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().DurationVar(&predictTimeout, "timeout", 2*time.Minute, "time allowed for loading the model and each prediction")
}

func runPredict(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig(globalFlags(cmd))
	service := classifier.NewInferenceClient(cfg.Classifier, logger.GetLogger())

	if len(args) == 0 {
		// log lines would tear the alternate screen
		logger.SetLogger(logger.NewNopLogger())
		t := tui.NewTUI(service, tui.Options{Timeout: predictTimeout})
		if err := t.Run(cmd.Context()); err != nil {
			ui.PrintError("Predictor failed", err.Error())
			os.Exit(1)
		}
		return
	}

	text := strings.Join(args, " ")
	pred, err := predictOnce(cmd.Context(), service, text, predictTimeout)
	if err != nil {
		ui.PrintError("Prediction failed", err.Error())
		os.Exit(1)
	}
	printPrediction(pred)
}

// predictOnce loads service, predicts text and closes the service
func predictOnce(ctx context.Context, service classifier.Service, text string, timeout time.Duration) (classifier.Prediction, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := service.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	pred, err := service.Predict(ctx, text)
	if cerr := service.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return pred, err
	}
	if pred.IsError() {
		return pred, errors.New("classifier returned the error label")
	}
	return pred, nil
}

func printPrediction(pred classifier.Prediction) {
	top, p := pred.Top()
	fmt.Println()
	for _, label := range pred.Labels() {
		score := pred[label]
		fmt.Printf("  %-14s %s %5.1f%%\n", label, ui.Bar(int(score*1000), 1000, 30), score*100)
	}
	fmt.Println()
	ui.PrintSuccess(fmt.Sprintf("Most likely: %s (%.1f%%)", top, p*100))
}
