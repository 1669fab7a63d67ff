package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"postharvest/pkg/classifier"
)

const logo = `
████████╗██████╗ ██╗   ██╗███╗   ███╗██████╗     ██╗   ██╗███████╗    ███╗   ███╗██╗   ██╗███████╗██╗  ██╗
╚══██╔══╝██╔══██╗██║   ██║████╗ ████║██╔══██╗    ██║   ██║██╔════╝    ████╗ ████║██║   ██║██╔════╝██║ ██╔╝
   ██║   ██████╔╝██║   ██║██╔████╔██║██████╔╝    ██║   ██║███████╗    ██╔████╔██║██║   ██║███████╗█████╔╝
   ██║   ██╔══██╗██║   ██║██║╚██╔╝██║██╔═══╝     ╚██╗ ██╔╝╚════██║    ██║╚██╔╝██║██║   ██║╚════██║██╔═██╗
   ██║   ██║  ██║╚██████╔╝██║ ╚═╝ ██║██║          ╚████╔╝ ███████║    ██║ ╚═╝ ██║╚██████╔╝███████║██║  ██╗
   ╚═╝   ╚═╝  ╚═╝ ╚═════╝ ╚═╝     ╚═╝╚═╝           ╚═══╝  ╚══════╝    ╚═╝     ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═╝`

const compactLogo = "TRUMP vs MUSK PREDICTOR"

const description = "BERTweet model fine-tuned to detect whether a text was written by Donald Trump or Elon Musk."

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderLogo())
	sections = append(sections, descriptionStyle.Width(m.width).Render(description))
	sections = append(sections, m.renderInputPanel(m.width-2))

	half := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderResultPanel(half),
		m.renderExamplesPanel(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHistoryPanel(half),
		m.renderLogsPanel(half),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("ctrl+s predict • ctrl+e example • F1 help • esc quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	if m.width < 110 {
		return logoStyle.Width(m.width).Render(compactLogo)
	}
	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderStatus() string {
	switch {
	case m.state == ServiceLoading:
		return m.spinner.View() + warningStyle.Render(" loading model")
	case m.state == ServiceFailed:
		return errorStyle.Render("✗ model unavailable (ctrl+r to retry)")
	case m.busy:
		return m.spinner.View() + valueStyle.Render(" predicting")
	default:
		return successStyle.Render("● ready")
	}
}

func (m *Model) renderInputPanel(width int) string {
	title := titleStyle.Render(" ENTER TEXT ")
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.renderStatus())

	return focusedPanelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, m.input.View()),
	)
}

func (m *Model) renderResultPanel(width int) string {
	title := titleStyle.Render(" PREDICTION ")

	if m.current == nil {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("No prediction yet")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	r := m.current
	var lines []string
	if r.Err != nil && !r.Prediction.IsError() {
		lines = append(lines, errorStyle.Render("✗ "+r.Err.Error()))
	} else {
		lines = append(lines, m.renderPrediction(r.Prediction)...)
	}
	lines = append(lines, "", fmt.Sprintf("%s %s",
		labelStyle.Render("Latency:"), valueStyle.Render(r.Elapsed.Round(time.Millisecond).String())))

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, lines...)...),
	)
}

// renderPrediction draws one bar per label, most probable first
func (m *Model) renderPrediction(p classifier.Prediction) []string {
	top, topP := p.Top()
	lines := []string{
		lipgloss.NewStyle().Foreground(LabelColor(top)).Bold(true).Render(top) +
			" " + ConfidenceStyle(topP).Render(FormatProbability(topP)),
	}
	for _, label := range p.Labels() {
		name := lipgloss.NewStyle().Foreground(LabelColor(label)).Width(14).Render(label)
		lines = append(lines, fmt.Sprintf("%s %s %s", name, m.bar.ViewAs(p[label]), FormatProbability(p[label])))
	}
	return lines
}

func (m *Model) renderExamplesPanel(width int) string {
	title := titleStyle.Render(" EXAMPLES ")

	var items []string
	for i, ex := range m.examples {
		text := fmt.Sprintf("%d. %s", i+1, Truncate(ex, width-8))
		if i == m.nextExample {
			items = append(items, exampleNextStyle.Render("› "+text))
		} else {
			items = append(items, exampleStyle.Render("  "+text))
		}
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, items...)...),
	)
}

func (m *Model) renderHistoryPanel(width int) string {
	title := titleStyle.Render(fmt.Sprintf(" HISTORY (%d) ", m.predicted))

	if len(m.history) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Nothing classified yet")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	start := len(m.history) - 5
	if start < 0 {
		start = 0
	}

	var items []string
	for i := len(m.history) - 1; i >= start; i-- {
		r := m.history[i]
		var tag string
		if r.Err != nil {
			tag = errorStyle.Render("error")
		} else {
			label, p := r.Prediction.Top()
			tag = lipgloss.NewStyle().Foreground(LabelColor(label)).Render(fmt.Sprintf("%s %s", label, strings.TrimSpace(FormatProbability(p))))
		}
		items = append(items, fmt.Sprintf("%s %s", tag, historyStyle.Render(Truncate(r.Text, width-30))))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, items...)...),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 6
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(Truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    ctrl+s / alt+enter  - Classify the text
    ctrl+e              - Load the next example
    ctrl+r              - Retry loading the model
    ctrl+l              - Clear history and logs
    F1                  - Toggle this help
    esc / ctrl+c        - Quit

  Colors:
    ` + lipgloss.NewStyle().Foreground(trumpRed).Render("Red") + `   - Donald Trump
    ` + lipgloss.NewStyle().Foreground(muskBlue).Render("Blue") + `  - Elon Musk
`

	return panelStyle.Width(m.width - 2).Render(help)
}
