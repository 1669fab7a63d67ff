package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"postharvest/pkg/classifier"
)

// DefaultExamples are the prompts offered with ctrl+e
var DefaultExamples = []string{
	"We will make America great again!",
	"The future of humanity depends on becoming a multi-planetary species",
	"FAKE NEWS!",
	"AI is the biggest existential risk we face as a civilization",
}

// ServiceState is the lifecycle of the backing classifier
type ServiceState int

const (
	ServiceLoading ServiceState = iota
	ServiceReady
	ServiceFailed
)

func (s ServiceState) String() string {
	switch s {
	case ServiceLoading:
		return "loading"
	case ServiceReady:
		return "ready"
	case ServiceFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is one finished prediction
type Result struct {
	Text       string
	Prediction classifier.Prediction
	Err        error
	Elapsed    time.Duration
	At         time.Time
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Options configures the predictor
type Options struct {
	// Timeout bounds a single Load or Predict call
	Timeout  time.Duration
	Examples []string
}

// Model is the bubbletea model of the predictor
type Model struct {
	service classifier.Service
	timeout time.Duration

	input   textarea.Model
	spinner spinner.Model
	bar     progress.Model

	examples    []string
	nextExample int

	state     ServiceState
	loadErr   error
	busy      bool
	current   *Result
	history   []Result
	predicted int

	maxHistory     int
	logMessages    []LogMessage
	maxLogMessages int

	width    int
	height   int
	showHelp bool
}

// NewModel creates a predictor model around service. The service is loaded
// by Init and must not be loaded by the caller.
func NewModel(service classifier.Service, opts Options) *Model {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if len(opts.Examples) == 0 {
		opts.Examples = DefaultExamples
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	ta := textarea.New()
	ta.Placeholder = "Write something like Trump or Musk would..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 1000
	ta.SetHeight(3)
	ta.Focus()

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40

	return &Model{
		service:        service,
		timeout:        opts.Timeout,
		input:          ta,
		spinner:        s,
		bar:            bar,
		examples:       opts.Examples,
		state:          ServiceLoading,
		maxHistory:     20,
		maxLogMessages: 50,
	}
}

// Init starts loading the classifier
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		loadCmd(m.service, m.timeout),
		m.spinner.Tick,
		textarea.Blink,
	)
}

// State returns the classifier lifecycle state
func (m *Model) State() ServiceState {
	return m.state
}

// Busy reports whether a prediction is in flight
func (m *Model) Busy() bool {
	return m.busy
}

// Current returns the latest result, or nil before the first prediction
func (m *Model) Current() *Result {
	return m.current
}

// History returns past results, newest last
func (m *Model) History() []Result {
	return m.history
}

// Input returns the text currently in the editor
func (m *Model) Input() string {
	return m.input.Value()
}

// SetInput replaces the editor contents
func (m *Model) SetInput(text string) {
	m.input.SetValue(text)
}

// NextExample loads the next example prompt into the editor
func (m *Model) NextExample() string {
	if len(m.examples) == 0 {
		return ""
	}
	text := m.examples[m.nextExample%len(m.examples)]
	m.nextExample = (m.nextExample + 1) % len(m.examples)
	m.input.SetValue(text)
	return text
}

// record stores a finished prediction
func (m *Model) record(r Result) {
	m.busy = false
	m.current = &r
	m.history = append(m.history, r)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
	if r.Err == nil {
		m.predicted++
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = errorRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// FormatProbability renders p as a percentage
func FormatProbability(p float64) string {
	return fmt.Sprintf("%5.1f%%", p*100)
}

// Truncate shortens s to max runes, adding an ellipsis
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
