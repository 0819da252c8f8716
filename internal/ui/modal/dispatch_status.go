package modal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/ui"
)

// DispatchStatusModal shows the progress and result of a dispatch request.
type DispatchStatusModal struct {
	label   string
	outcome *dispatch.Outcome
	err     error
	done    bool
	open    bool
	keys    dispatchStatusKeyMap
}

type dispatchStatusKeyMap struct {
	Close   key.Binding
	OpenRun key.Binding
}

func defaultDispatchStatusKeyMap() dispatchStatusKeyMap {
	return dispatchStatusKeyMap{
		Close:   key.NewBinding(key.WithKeys("esc", "q")),
		OpenRun: key.NewBinding(key.WithKeys("o")),
	}
}

// OpenRunResult is the modal's Result when the operator asks to open the
// located run.
type OpenRunResult struct {
	URL string
}

// NewDispatchStatusModal creates a modal waiting on the dispatch of label.
func NewDispatchStatusModal(label string) *DispatchStatusModal {
	return &DispatchStatusModal{label: label, keys: defaultDispatchStatusKeyMap()}
}

// SetOutcome records the finished request.
func (m *DispatchStatusModal) SetOutcome(o dispatch.Outcome, err error) {
	m.outcome = &o
	m.err = err
}

// Update handles input for the dispatch status modal.
func (m *DispatchStatusModal) Update(msg tea.Msg) (Context, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Close):
			m.done = true
		case key.Matches(msg, m.keys.OpenRun):
			if m.runURL() != "" {
				m.open = true
				m.done = true
			}
		}
	}
	return m, nil
}

// View renders the dispatch status modal.
func (m *DispatchStatusModal) View() string {
	var s strings.Builder
	s.WriteString(ui.TitleStyle.Render(fmt.Sprintf("Dispatch: %s", m.label)))
	s.WriteString("\n\n")

	if m.outcome == nil {
		s.WriteString(ui.SubtitleStyle.Render("Dispatching and waiting for the run to appear..."))
		s.WriteString("\n\n")
		s.WriteString(ui.HelpStyle.Render("Press Esc or q to close"))
		return s.String()
	}

	for _, state := range m.outcome.Transitions {
		s.WriteString(stateIcon(state) + " " + string(state) + "\n")
	}
	s.WriteString("\n")
	s.WriteString(ui.RenderOutcome(*m.outcome, m.err))
	s.WriteString("\n\n")

	help := "Press Esc or q to close"
	if m.runURL() != "" {
		help = "[o] open run  " + help
	}
	s.WriteString(ui.HelpStyle.Render(help))
	return s.String()
}

// IsDone returns true if the modal is finished.
func (m *DispatchStatusModal) IsDone() bool {
	return m.done
}

// Result returns an OpenRunResult when the operator chose to open the run.
func (m *DispatchStatusModal) Result() any {
	if m.open {
		return OpenRunResult{URL: m.runURL()}
	}
	return nil
}

func (m *DispatchStatusModal) runURL() string {
	if m.outcome == nil || m.outcome.Run == nil {
		return ""
	}
	return m.outcome.Run.HTMLURL
}

func stateIcon(state dispatch.State) string {
	switch state {
	case dispatch.StateDone:
		return "+"
	case dispatch.StateFailed:
		return "x"
	case dispatch.StateAwaitingRunID:
		return "~"
	default:
		return "*"
	}
}
