package panes

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/ui"
)

// HistoryModel lists recent dispatches for re-running.
type HistoryModel struct {
	entries       []frecency.HistoryEntry
	selectedIndex int
	focused       bool
	width         int
	height        int
	now           func() time.Time
}

// NewHistoryModel creates a new history pane model.
func NewHistoryModel() HistoryModel {
	return HistoryModel{now: time.Now}
}

// SetEntries updates the history entries.
func (m *HistoryModel) SetEntries(entries []frecency.HistoryEntry) {
	m.entries = entries
	if m.selectedIndex >= len(entries) {
		m.selectedIndex = max(len(entries)-1, 0)
	}
}

// SetSize updates the pane dimensions.
func (m *HistoryModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetFocused updates the focus state.
func (m *HistoryModel) SetFocused(focused bool) {
	m.focused = focused
}

// MoveUp moves selection up.
func (m *HistoryModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down.
func (m *HistoryModel) MoveDown() {
	if m.selectedIndex < len(m.entries)-1 {
		m.selectedIndex++
	}
}

// View renders the history pane.
func (m HistoryModel) View() string {
	style := ui.PaneStyle(m.width, m.height, m.focused)
	return style.Render(ui.TitleStyle.Render("Recent Dispatches") + "\n" + m.ViewContent())
}

// ViewContent renders just the list content without the pane border.
func (m HistoryModel) ViewContent() string {
	if len(m.entries) == 0 {
		return ui.SubtitleStyle.Render("No dispatches yet") + "\n\n" +
			ui.NormalStyle.Render("Dispatch a workflow to see it here.")
	}

	var content strings.Builder
	content.WriteString(ui.TableHeaderStyle.Render(
		"  Workflow             Branch       Inputs                 Runs  Time"))
	content.WriteString("\n")

	now := m.now()
	for i, entry := range m.entries {
		name := ui.TruncateWithEllipsis(strings.TrimSuffix(path.Base(entry.Workflow), path.Ext(entry.Workflow)), 19)
		branch := ui.TruncateWithEllipsis(entry.Branch, 11)
		inputs := ui.TruncateWithEllipsis(FormatInputs(entry.Inputs), 21)
		if inputs == "" {
			inputs = "(no inputs)"
		}

		indicator := "  "
		rowStyle := ui.TableRowStyle
		if i == m.selectedIndex {
			indicator = "> "
			rowStyle = ui.TableSelectedStyle
		}

		row := indicator + ui.PadRight(name, 19) + "  " + ui.PadRight(branch, 11) + "  " +
			ui.PadRight(inputs, 21) + "  " + ui.PadRight(fmt.Sprintf("%dx", entry.RunCount), 4) + "  " +
			ui.FormatTimeAgo(entry.LastRunAt, now)
		content.WriteString(rowStyle.Render(row))
		if i < len(m.entries)-1 {
			content.WriteString("\n")
		}
	}
	return content.String()
}

// FormatInputs renders non-empty inputs as sorted key=value pairs.
func FormatInputs(inputs map[string]string) string {
	parts := make([]string, 0, len(inputs))
	for k, v := range inputs {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// SelectedEntry returns the currently selected history entry.
func (m HistoryModel) SelectedEntry() *frecency.HistoryEntry {
	if len(m.entries) == 0 || m.selectedIndex >= len(m.entries) {
		return nil
	}
	return &m.entries[m.selectedIndex]
}

// HistorySelectedMsg is sent when a history entry is selected.
type HistorySelectedMsg struct {
	Entry frecency.HistoryEntry
}

// HandleSelect processes a selection and returns a message.
func (m HistoryModel) HandleSelect() tea.Cmd {
	entry := m.SelectedEntry()
	if entry == nil {
		return nil
	}
	selected := *entry
	return func() tea.Msg {
		return HistorySelectedMsg{Entry: selected}
	}
}
