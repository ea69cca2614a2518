// Package tui renders the offline filing preview used by the preview
// command. It shows the extracted report and lets the operator confirm or
// abort filing from the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mudlet/bugbot/internal/core/pipeline"
)

var (
	primaryColor = lipgloss.Color("#1f6feb")
	subtleColor  = lipgloss.Color("#626262")
	successColor = lipgloss.Color("#04B575")
	warnColor    = lipgloss.Color("#d29922")
	errorColor   = lipgloss.Color("#FF0000")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	hintStyle = lipgloss.NewStyle().
			Foreground(subtleColor)
)

// FileFunc is called when the operator confirms filing. It returns the
// created issue URL.
type FileFunc func() (string, error)

// FiledMsg reports a completed filing attempt.
type FiledMsg struct {
	URL string
	Err error
}

// Model is the preview/confirm terminal UI.
type Model struct {
	spinner spinner.Model
	preview *pipeline.Preview
	file    FileFunc

	filing   bool
	done     bool
	issueURL string
	err      error
	quitting bool

	// confirmed tracks the extra press needed when a likely duplicate exists.
	confirmed bool
}

// NewModel creates the preview model. A nil file function disables filing
// (dry run).
func NewModel(preview *pipeline.Preview, file FileFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		spinner: s,
		preview: preview,
		file:    file,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key presses and filing results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filing {
			return m, nil
		}
		switch msg.String() {
		case "q", "c", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "f":
			if m.file == nil || (m.done && m.err == nil) {
				return m, nil
			}
			if m.preview.RequiresConfirmation && !m.confirmed {
				m.confirmed = true
				return m, nil
			}
			// A failed attempt can be retried.
			m.done = false
			m.err = nil
			m.filing = true
			return m, m.fileCmd()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case FiledMsg:
		m.filing = false
		m.done = true
		m.issueURL = msg.URL
		m.err = msg.Err
		return m, nil
	}

	return m, nil
}

func (m Model) fileCmd() tea.Cmd {
	return func() tea.Msg {
		url, err := m.file()
		return FiledMsg{URL: url, Err: err}
	}
}

// View renders the preview.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	rep := m.preview.Report

	s.WriteString(titleStyle.Render(rep.Title()))
	s.WriteString("\n")

	section := func(name, value string) {
		s.WriteString(sectionStyle.Render(name) + "\n")
		if strings.TrimSpace(value) == "" {
			value = "N/A"
		}
		s.WriteString(bodyStyle.Render(value) + "\n\n")
	}

	section("Brief summary", rep.Summary)
	section("Steps to reproduce", strings.Join(rep.Steps, "\n"))
	section("Error output", rep.ErrorOutput)
	section("Extra information", rep.ExtraInfo)

	if len(m.preview.Labels) > 0 {
		s.WriteString(sectionStyle.Render("Labels") + "\n")
		s.WriteString(bodyStyle.Render(strings.Join(m.preview.Labels, ", ")) + "\n\n")
	}

	if rep.Confidence != "" {
		s.WriteString(hintStyle.Render("Extraction confidence: "+rep.Confidence) + "\n")
	}
	if rep.MissingInfo != "" {
		s.WriteString(hintStyle.Render("Missing info: "+rep.MissingInfo) + "\n")
	}
	if rep.Confidence != "" || rep.MissingInfo != "" {
		s.WriteString("\n")
	}

	if len(m.preview.Candidates) > 0 {
		s.WriteString(sectionStyle.Render("Possible duplicates") + "\n")
		for _, c := range m.preview.Candidates {
			line := fmt.Sprintf("#%d %s (%s, %.0f%%)", c.Number, c.Title, c.State, c.Score*100)
			if c.HighConfidence {
				s.WriteString(warnStyle.Render(line) + "\n")
			} else {
				s.WriteString(bodyStyle.Render(line) + "\n")
			}
		}
		s.WriteString("\n")
	}

	switch {
	case m.filing:
		s.WriteString(m.spinner.View() + " Filing issue...\n")
	case m.done && m.err != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("Filing failed: %v", m.err)) + "\n")
		s.WriteString(hintStyle.Render("Press f to retry, q to quit\n"))
	case m.done:
		s.WriteString(successStyle.Render("Filed: "+m.issueURL) + "\n")
		s.WriteString(hintStyle.Render("Press q to quit\n"))
	case m.file == nil:
		s.WriteString(hintStyle.Render("Dry run, filing disabled. Press q to quit\n"))
	case m.preview.RequiresConfirmation && m.confirmed:
		s.WriteString(warnStyle.Render("A very similar open issue exists. Press f again to file anyway.") + "\n")
		s.WriteString(hintStyle.Render("Press c to cancel\n"))
	case m.preview.RequiresConfirmation:
		s.WriteString(warnStyle.Render("Likely duplicate detected.") + "\n")
		s.WriteString(hintStyle.Render("Press f to file (confirmation required), c to cancel\n"))
	default:
		s.WriteString(hintStyle.Render("Press f to file, c to cancel\n"))
	}

	return s.String()
}
