package panes

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/ui"
)

// PatternsModel lists mined failure patterns, most frequent first.
type PatternsModel struct {
	patterns      []patterns.Pattern
	selectedIndex int
	focused       bool
	width         int
	height        int
	loading       bool
	err           error
}

// NewPatternsModel creates a pane in the loading state.
func NewPatternsModel() PatternsModel {
	return PatternsModel{loading: true}
}

// SetPatterns replaces the listed patterns and clears any error.
func (m *PatternsModel) SetPatterns(ps []patterns.Pattern) {
	m.patterns = ps
	m.loading = false
	m.err = nil
	if m.selectedIndex >= len(ps) {
		m.selectedIndex = max(len(ps)-1, 0)
	}
}

// SetError shows err in place of the list.
func (m *PatternsModel) SetError(err error) {
	m.loading = false
	m.err = err
}

// SetLoading marks the pane as refreshing.
func (m *PatternsModel) SetLoading() {
	m.loading = true
}

// SetSize updates the pane dimensions.
func (m *PatternsModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetFocused updates the focus state.
func (m *PatternsModel) SetFocused(focused bool) {
	m.focused = focused
}

// MoveUp moves selection up.
func (m *PatternsModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down.
func (m *PatternsModel) MoveDown() {
	if m.selectedIndex < len(m.patterns)-1 {
		m.selectedIndex++
	}
}

// View renders the patterns pane.
func (m PatternsModel) View() string {
	style := ui.PaneStyle(m.width, m.height, m.focused)
	return style.Render(ui.TitleStyle.Render("Failure Patterns") + "\n" + m.ViewContent())
}

// ViewContent renders the list without the pane border.
func (m PatternsModel) ViewContent() string {
	switch {
	case m.err != nil:
		return ui.ErrorStyle.Render(ui.WordWrap(m.err.Error(), max(m.width-6, 20)))
	case m.loading:
		return ui.SubtitleStyle.Render("Loading failure summaries...")
	case len(m.patterns) == 0:
		return ui.SubtitleStyle.Render("No recurring failures in this window")
	}

	nameWidth := max(m.width-14, 16)
	var content strings.Builder
	content.WriteString(ui.TableHeaderStyle.Render(ui.PadRight("  Runs", 8) + "Pattern"))
	content.WriteString("\n")
	for i, p := range m.patterns {
		indicator := "  "
		rowStyle := ui.TableRowStyle
		if i == m.selectedIndex {
			indicator = "> "
			rowStyle = ui.TableSelectedStyle
		}
		row := indicator + ui.PadRight(fmt.Sprint(p.Count()), 6) + ui.TruncateWithEllipsis(p.Name, nameWidth)
		content.WriteString(rowStyle.Render(row))
		if i < len(m.patterns)-1 {
			content.WriteString("\n")
		}
	}
	return content.String()
}

// SelectedPattern returns the highlighted pattern.
func (m PatternsModel) SelectedPattern() *patterns.Pattern {
	if len(m.patterns) == 0 || m.selectedIndex >= len(m.patterns) {
		return nil
	}
	return &m.patterns[m.selectedIndex]
}

// PatternSelectedMsg is sent when a pattern is opened.
type PatternSelectedMsg struct {
	Pattern patterns.Pattern
}

// HandleSelect processes a selection and returns a message.
func (m PatternsModel) HandleSelect() tea.Cmd {
	p := m.SelectedPattern()
	if p == nil {
		return nil
	}
	selected := *p
	return func() tea.Msg {
		return PatternSelectedMsg{Pattern: selected}
	}
}
