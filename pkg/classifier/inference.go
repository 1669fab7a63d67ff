package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"postharvest/pkg/config"
	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
	"postharvest/pkg/retry"
)

// InferenceClient runs the fine-tuned model behind a hosted inference API
type InferenceClient struct {
	cfg    config.ClassifierConfig
	http   *resty.Client
	retry  *retry.Config
	logger logger.Logger

	mu     sync.RWMutex
	loaded bool
}

type inferenceRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters inferenceParams  `json:"parameters"`
	Options    inferenceOptions `json:"options"`
}

type inferenceParams struct {
	Truncation bool `json:"truncation"`
	MaxLength  int  `json:"max_length,omitempty"`
	TopK       int  `json:"top_k,omitempty"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type apiError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// NewInferenceClient creates a client for cfg.Model at cfg.Endpoint
func NewInferenceClient(cfg config.ClassifierConfig, log logger.Logger) *InferenceClient {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithFields(map[string]interface{}{
		"component": "classifier",
		"model":     cfg.Model,
	})

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIToken != "" {
		client.SetAuthToken(cfg.APIToken)
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxRetries + 1
	rc.Backoff = &retry.ExponentialBackoff{
		BaseDelay:    2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
	rc.RetryIf = retryable
	rc.Logger = log

	return &InferenceClient{cfg: cfg, http: client, retry: rc, logger: log}
}

// WithSleeper replaces the sleeper used between retries
func (c *InferenceClient) WithSleeper(s retry.Sleeper) *InferenceClient {
	c.retry.Sleep = s
	return c
}

func (c *InferenceClient) modelPath() string {
	return "/" + strings.TrimLeft(c.cfg.Model, "/")
}

// Load checks that the model is reachable, waiting out cold starts
func (c *InferenceClient) Load(ctx context.Context) error {
	start := time.Now()
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.http.R().SetContext(ctx).Get(c.modelPath())
		if err != nil {
			return errors.Wrap(errors.ErrorTypeNetwork, err, "model check failed")
		}
		return statusError(resp)
	}, c.retry)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", c.cfg.Model, err)
	}

	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()

	c.logger.WithField("duration", time.Since(start)).Info("Classifier loaded")
	return nil
}

// Predict returns author probabilities for text. Blank text yields the
// error prediction together with ErrEmptyInput.
func (c *InferenceClient) Predict(ctx context.Context, text string) (Prediction, error) {
	if p, err := checkInput(text); err != nil {
		return p, err
	}

	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}

	body := inferenceRequest{
		Inputs: text,
		Parameters: inferenceParams{
			Truncation: true,
			MaxLength:  c.cfg.MaxLength,
			TopK:       2,
		},
	}

	return retry.DoWithResult(ctx, func(ctx context.Context) (Prediction, error) {
		resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(c.modelPath())
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "inference request failed")
		}
		if err := statusError(resp); err != nil {
			return nil, err
		}
		return decodeScores(resp.Body())
	}, c.retry)
}

// Close releases pooled connections. Predict fails until Load is called again.
func (c *InferenceClient) Close() error {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// statusError converts a non-2xx response into a typed error
func statusError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	code := resp.StatusCode()
	msg := fmt.Sprintf("unexpected status %d", code)
	var apiErr apiError
	if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
		if apiErr.EstimatedTime > 0 {
			msg = fmt.Sprintf("%s (estimated %.0fs)", msg, apiErr.EstimatedTime)
		}
	}
	return errors.New(errors.FromStatus(code), code, msg)
}

// retryable limits retries to cold starts, throttling and dropped connections
func retryable(err error) bool {
	if !retry.DefaultRetryIf(err) {
		return false
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeServerError, errors.ErrorTypeRateLimit, errors.ErrorTypeNetwork:
		return true
	}
	return false
}

// decodeScores accepts both the nested [[...]] and flat [...] response shapes
func decodeScores(body []byte) (Prediction, error) {
	var scores []labelScore
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		scores = nested[0]
	} else if err := json.Unmarshal(body, &scores); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, err, "failed to decode inference response")
	}

	if len(scores) == 0 {
		return nil, errors.New(errors.ErrorTypeParsing, 0, "inference response has no scores")
	}

	p := make(Prediction, len(scores))
	for _, s := range scores {
		p[labelFor(s.Label)] = s.Score
	}
	return p, nil
}

var _ Service = (*InferenceClient)(nil)
