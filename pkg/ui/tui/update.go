package tui

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"postharvest/pkg/classifier"
)

// Message types for the TUI

// LoadedMsg is sent when the classifier finished loading
type LoadedMsg struct {
	Err     error
	Elapsed time.Duration
}

// PredictionMsg carries a finished prediction
type PredictionMsg struct {
	Result Result
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width - 8)
		m.bar.Width = msg.Width/2 - 30
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != ServiceLoading && !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case LoadedMsg:
		if msg.Err != nil {
			m.state = ServiceFailed
			m.loadErr = msg.Err
			m.AddLogMessage("ERROR", "Model failed to load: "+msg.Err.Error())
			return m, nil
		}
		m.state = ServiceReady
		m.loadErr = nil
		m.AddLogMessage("SUCCESS", fmt.Sprintf("Model ready in %s", msg.Elapsed.Round(time.Millisecond)))
		return m, nil

	case PredictionMsg:
		m.record(msg.Result)
		m.logResult(msg.Result)
		return m, nil

	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) logResult(r Result) {
	switch {
	case stderrors.Is(r.Err, classifier.ErrEmptyInput):
		m.AddLogMessage("WARN", "Nothing to classify")
	case r.Err != nil:
		m.AddLogMessage("ERROR", "Prediction failed: "+r.Err.Error())
	default:
		label, p := r.Prediction.Top()
		m.AddLogMessage("INFO", fmt.Sprintf("%s %s in %s", label, strings.TrimSpace(FormatProbability(p)), r.Elapsed.Round(time.Millisecond)))
	}
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+s", "alt+enter":
		return m, m.submit()

	case "ctrl+e":
		m.NextExample()
		return m, nil

	case "ctrl+r":
		if m.state == ServiceFailed {
			m.state = ServiceLoading
			m.AddLogMessage("INFO", "Retrying model load")
			return m, tea.Batch(loadCmd(m.service, m.timeout), m.spinner.Tick)
		}
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		m.history = nil
		m.current = nil
		return m, nil

	case "f1":
		m.showHelp = !m.showHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a prediction for the editor contents
func (m *Model) submit() tea.Cmd {
	switch {
	case m.busy:
		m.AddLogMessage("WARN", "Prediction already running")
		return nil
	case m.state != ServiceReady:
		m.AddLogMessage("WARN", "Model is "+m.state.String())
		return nil
	}

	m.busy = true
	return tea.Batch(predictCmd(m.service, m.input.Value(), m.timeout), m.spinner.Tick)
}

// Commands

func loadCmd(service classifier.Service, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		err := service.Load(ctx)
		return LoadedMsg{Err: err, Elapsed: time.Since(start)}
	}
}

func predictCmd(service classifier.Service, text string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		prediction, err := service.Predict(ctx, text)
		return PredictionMsg{Result: Result{
			Text:       text,
			Prediction: prediction,
			Err:        err,
			Elapsed:    time.Since(start),
			At:         time.Now(),
		}}
	}
}
