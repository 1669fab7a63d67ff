package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postharvest/pkg/config"
	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
)

const model = "dxxrk/BERTweet-tuned-ElonTrumpPrediction"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*InferenceClient, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig().Classifier
	cfg.Endpoint = server.URL + "/models"
	cfg.APIToken = "hf_test"

	var slept []time.Duration
	c := NewInferenceClient(cfg, logger.NewTestLogger()).WithSleeper(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	})
	return c, &slept
}

func TestPredictMapsLabels(t *testing.T) {
	var got inferenceRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/"+model, r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[[{"label":"LABEL_1","score":0.83},{"label":"LABEL_0","score":0.17}]]`))
	})

	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	defer c.Close()

	p, err := c.Predict(ctx, "The future of humanity depends on becoming a multi-planetary species")
	require.NoError(t, err)

	assert.InDelta(t, 0.83, p[LabelMusk], 1e-9)
	assert.InDelta(t, 0.17, p[LabelTrump], 1e-9)
	label, prob := p.Top()
	assert.Equal(t, LabelMusk, label)
	assert.InDelta(t, 0.83, prob, 1e-9)

	assert.True(t, got.Parameters.Truncation)
	assert.Equal(t, 128, got.Parameters.MaxLength)
}

func TestPredictFlatResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"label":"LABEL_0","score":0.9},{"label":"LABEL_1","score":0.1}]`))
	})
	require.NoError(t, c.Load(context.Background()))

	p, err := c.Predict(context.Background(), "FAKE NEWS!")
	require.NoError(t, err)
	assert.Equal(t, []string{LabelTrump, LabelMusk}, p.Labels())
}

func TestPredictEmptyInput(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, c.Load(context.Background()))

	for _, text := range []string{"", "   ", "\n\t"} {
		p, err := c.Predict(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Equal(t, Prediction{"Error": 1.0}, p)
		assert.True(t, p.IsError())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "only the load check reaches the backend")
}

func TestPredictRequiresLoad(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Predict(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Close())
	_, err = c.Predict(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestPredictRetriesWhileModelLoads(t *testing.T) {
	var posts int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		if atomic.AddInt32(&posts, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20.0}`))
			return
		}
		w.Write([]byte(`[[{"label":"LABEL_0","score":0.6},{"label":"LABEL_1","score":0.4}]]`))
	})
	require.NoError(t, c.Load(context.Background()))

	p, err := c.Predict(context.Background(), "We will make America great again!")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, p[LabelTrump], 1e-9)
	assert.Equal(t, int32(3), atomic.LoadInt32(&posts))
	assert.Len(t, *slept, 2)
}

func TestPredictDoesNotRetryAuthFailure(t *testing.T) {
	var posts int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Invalid credentials in Authorization header"}`))
	})
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Predict(context.Background(), "AI is the biggest existential risk we face as a civilization")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
	assert.Empty(t, *slept)
}

func TestLoadFailsForMissingModel(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Model not found"}`))
	})

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model not found")
}

func TestPredictMalformedResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"unexpected":true}`))
		}
	})
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Predict(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParsing))
}

func TestPredictionHelpers(t *testing.T) {
	p := Prediction{LabelTrump: 0.5, LabelMusk: 0.5}
	label, _ := p.Top()
	assert.Equal(t, LabelTrump, label, "ties break by ascending name")
	assert.Equal(t, []string{LabelTrump, LabelMusk}, p.Labels())
	assert.Equal(t, []string{LabelMusk, LabelTrump}, Prediction{LabelTrump: 0.2, LabelMusk: 0.8}.Labels())
	assert.False(t, p.IsError())

	empty := Prediction{}
	label, prob := empty.Top()
	assert.Empty(t, label)
	assert.Zero(t, prob)

	assert.Equal(t, LabelTrump, labelFor("label_0"))
	assert.Equal(t, LabelMusk, labelFor("1"))
	assert.Equal(t, "other", labelFor("other"))
}
