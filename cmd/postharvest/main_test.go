package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postharvest/pkg/auth"
	"postharvest/pkg/browser"
	"postharvest/pkg/classifier"
	"postharvest/pkg/config"
)

type stubService struct {
	loadErr error
	pred    classifier.Prediction
	err     error
	closed  bool
}

func (s *stubService) Load(ctx context.Context) error { return s.loadErr }

func (s *stubService) Predict(ctx context.Context, text string) (classifier.Prediction, error) {
	return s.pred, s.err
}

func (s *stubService) Close() error {
	s.closed = true
	return nil
}

func TestScrapeFlagsOnlyChanged(t *testing.T) {
	require.NoError(t, scrapeCmd.Flags().Set("target", "500"))
	require.NoError(t, scrapeCmd.Flags().Set("handoff-delay", "90s"))
	require.NoError(t, scrapeCmd.Flags().Set("cookies", "main"))

	flags := scrapeFlags(scrapeCmd)
	assert.Equal(t, 500, flags["target"])
	assert.Equal(t, 90*time.Second, flags["handoff-delay"])
	assert.Equal(t, "main", flags["cookie-account"])
	assert.NotContains(t, flags, "headless")
	assert.NotContains(t, flags, "progress-file")

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, 500, cfg.Paginator.Target)
	assert.Equal(t, 90*time.Second, cfg.Paginator.HandoffDelay)
	assert.Equal(t, "main", cfg.Browser.CookieAccount)
	assert.False(t, cfg.Browser.Headless)
}

func TestSanitizeConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Classifier.APIToken = "hf_abcdefghijklmnop"

	out := sanitizeConfig(cfg)
	assert.Equal(t, "hf_a...mnop", out.Classifier.APIToken)
	assert.Equal(t, "hf_abcdefghijklmnop", cfg.Classifier.APIToken)

	cfg.Classifier.APIToken = "short"
	assert.Equal(t, "***", sanitizeConfig(cfg).Classifier.APIToken)
}

func TestCheckConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Output.ProgressFile = filepath.Join(dir, "out", "progress.csv")
	cfg.Output.CursorFile = filepath.Join(dir, "out", "last_id.txt")
	cfg.Classifier.APIToken = "token"
	cfg.Paginator.MaxDegradedCycles = 3

	warnings, errs := checkConfig(cfg)
	assert.Empty(t, errs)
	assert.Empty(t, warnings)
	assert.DirExists(t, filepath.Join(dir, "out"))

	cfg.Output.CursorFile = cfg.Output.ProgressFile
	cfg.Classifier.APIToken = ""
	warnings, errs = checkConfig(cfg)
	assert.Len(t, errs, 1)
	assert.Len(t, warnings, 1)
}

func TestPredictOnce(t *testing.T) {
	svc := &stubService{pred: classifier.Prediction{classifier.LabelTrump: 0.9, classifier.LabelMusk: 0.1}}

	pred, err := predictOnce(context.Background(), svc, "Make America Great Again", time.Second)
	require.NoError(t, err)
	top, _ := pred.Top()
	assert.Equal(t, classifier.LabelTrump, top)
	assert.True(t, svc.closed)
}

func TestPredictOnceErrors(t *testing.T) {
	boom := errors.New("model unavailable")
	_, err := predictOnce(context.Background(), &stubService{loadErr: boom}, "x", time.Second)
	assert.ErrorIs(t, err, boom)

	_, err = predictOnce(context.Background(), &stubService{pred: classifier.ErrorPrediction(), err: classifier.ErrEmptyInput}, " ", time.Second)
	assert.ErrorIs(t, err, classifier.ErrEmptyInput)

	_, err = predictOnce(context.Background(), &stubService{pred: classifier.ErrorPrediction()}, "x", time.Second)
	assert.Error(t, err)
}

func TestPrintCookieSetMasksValues(t *testing.T) {
	var buf bytes.Buffer
	set := &auth.CookieSet{
		Name:    "main",
		Cookies: []browser.Cookie{{Name: "_session_id", Value: "0123456789abcdef"}},
	}
	printCookieSet(&buf, auth.SanitizeCookieSet(set))

	assert.Contains(t, buf.String(), "_session_id")
	assert.NotContains(t, buf.String(), "0123456789abcdef")
}
