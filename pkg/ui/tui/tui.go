package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"postharvest/pkg/classifier"
)

// TUI runs the interactive predictor
type TUI struct {
	service classifier.Service
	opts    Options
}

// NewTUI creates a predictor over service. Run loads the service and
// closes it on exit.
func NewTUI(service classifier.Service, opts Options) *TUI {
	return &TUI{service: service, opts: opts}
}

// Run blocks until the user quits or ctx is cancelled. The service is
// closed either way.
func (t *TUI) Run(ctx context.Context) error {
	program := tea.NewProgram(NewModel(t.service, t.opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	if cerr := t.service.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close classifier: %w", cerr)
	}
	return err
}
