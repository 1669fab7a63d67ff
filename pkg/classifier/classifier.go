package classifier

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
)

const (
	// LabelTrump is class 0 of the model
	LabelTrump = "Donald Trump"
	// LabelMusk is class 1 of the model
	LabelMusk = "Elon Musk"
	// LabelError is the only key of the prediction returned for empty input
	LabelError = "Error"
)

var (
	// ErrEmptyInput is returned for blank text
	ErrEmptyInput = stderrors.New("input text is empty")
	// ErrNotLoaded is returned when Predict is called before Load or after Close
	ErrNotLoaded = stderrors.New("classifier is not loaded")
)

// Prediction maps each author label to its probability
type Prediction map[string]float64

// Top returns the most probable label and its probability
func (p Prediction) Top() (string, float64) {
	labels := p.Labels()
	if len(labels) == 0 {
		return "", 0
	}
	return labels[0], p[labels[0]]
}

// Labels returns the labels ordered by descending probability, ties by name
func (p Prediction) Labels() []string {
	labels := make([]string, 0, len(p))
	for l := range p {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if p[labels[i]] != p[labels[j]] {
			return p[labels[i]] > p[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}

// IsError reports whether this is the distinguished empty-input prediction
func (p Prediction) IsError() bool {
	_, ok := p[LabelError]
	return ok && len(p) == 1
}

// ErrorPrediction is what Predict returns alongside ErrEmptyInput
func ErrorPrediction() Prediction {
	return Prediction{LabelError: 1.0}
}

// Service predicts the author of a text. Implementations must be loaded
// before use and closed when done.
type Service interface {
	Load(ctx context.Context) error
	Predict(ctx context.Context, text string) (Prediction, error)
	Close() error
}

// checkInput rejects blank text the same way for every implementation
func checkInput(text string) (Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return ErrorPrediction(), ErrEmptyInput
	}
	return nil, nil
}

// labelFor maps a raw model label to an author label
func labelFor(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LABEL_0", "0":
		return LabelTrump
	case "LABEL_1", "1":
		return LabelMusk
	}
	return raw
}
