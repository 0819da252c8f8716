package modal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/ui"
)

// PatternDetailModal shows a pattern's examples and affected runs in a
// scrollable viewport.
type PatternDetailModal struct {
	pattern  patterns.Pattern
	viewport viewport.Model
	selected int
	done     bool
	chosen   bool
	keys     patternDetailKeyMap
}

type patternDetailKeyMap struct {
	Close   key.Binding
	Next    key.Binding
	Prev    key.Binding
	OpenRun key.Binding
}

func defaultPatternDetailKeyMap() patternDetailKeyMap {
	return patternDetailKeyMap{
		Close:   key.NewBinding(key.WithKeys("esc", "q")),
		Next:    key.NewBinding(key.WithKeys("n", "tab")),
		Prev:    key.NewBinding(key.WithKeys("N", "shift+tab")),
		OpenRun: key.NewBinding(key.WithKeys("o", "enter")),
	}
}

// RunChosenResult is the Result when the operator picks an example's run.
type RunChosenResult struct {
	RunID    int64
	Workflow string
}

// NewPatternDetailModal creates a detail view sized for a width x height
// terminal.
func NewPatternDetailModal(p patterns.Pattern, width, height int) *PatternDetailModal {
	m := &PatternDetailModal{
		pattern:  p,
		viewport: viewport.New(max(width-12, 40), max(height-12, 8)),
		keys:     defaultPatternDetailKeyMap(),
	}
	m.refresh()
	return m
}

func (m *PatternDetailModal) refresh() {
	var b strings.Builder
	for i, ex := range m.pattern.Examples {
		marker := "  "
		style := ui.NormalStyle
		if i == m.selected {
			marker = "> "
			style = ui.SelectedStyle
		}
		header := fmt.Sprintf("%srun %d", marker, ex.RunID)
		if ex.Workflow != "" {
			header += " - " + ex.Workflow
		}
		b.WriteString(style.Render(header))
		b.WriteString("\n")
		b.WriteString(ui.NormalStyle.Render(ui.WordWrap(ex.Text, m.viewport.Width-4)))
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
}

// Update handles input for the pattern detail modal.
func (m *PatternDetailModal) Update(msg tea.Msg) (Context, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Close):
			m.done = true
			return m, nil
		case key.Matches(msg, m.keys.Next):
			if m.selected < len(m.pattern.Examples)-1 {
				m.selected++
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			if m.selected > 0 {
				m.selected--
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keys.OpenRun):
			if len(m.pattern.Examples) > 0 {
				m.chosen = true
				m.done = true
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the pattern detail modal.
func (m *PatternDetailModal) View() string {
	var s strings.Builder
	s.WriteString(ui.TitleStyle.Render(m.pattern.Name))
	s.WriteString("\n")
	s.WriteString(ui.SubtitleStyle.Render(fmt.Sprintf("%d runs, %d summaries, rule %s",
		m.pattern.Count(), m.pattern.Records, m.pattern.Rule)))
	if len(m.pattern.Workflows) > 0 {
		s.WriteString("\n")
		s.WriteString(ui.TableDimmedStyle.Render(strings.Join(m.pattern.Workflows, ", ")))
	}
	s.WriteString("\n\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(ui.HelpStyle.Render("[n/N] example  [o] open run  [esc] close"))
	return s.String()
}

// IsDone returns true if the modal is finished.
func (m *PatternDetailModal) IsDone() bool {
	return m.done
}

// Result returns a RunChosenResult if the operator opened a run.
func (m *PatternDetailModal) Result() any {
	if !m.chosen {
		return nil
	}
	ex := m.pattern.Examples[m.selected]
	return RunChosenResult{RunID: ex.RunID, Workflow: ex.Workflow}
}
