// Package modal holds overlay dialogs stacked above the main panes.
package modal

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kyleking/gh-lazyqa/internal/ui"
)

// Context is one modal dialog.
type Context interface {
	Update(msg tea.Msg) (Context, tea.Cmd)
	View() string
	IsDone() bool
	Result() any
}

// ClosedMsg is emitted when a modal finishes, carrying its Result.
type ClosedMsg struct {
	Result any
}

// Stack manages nested modals. Only the top one receives input.
type Stack struct {
	modals []Context
	width  int
	height int
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push opens m above the current modals.
func (s *Stack) Push(m Context) {
	s.modals = append(s.modals, m)
}

// HasActive reports whether any modal is open.
func (s *Stack) HasActive() bool {
	return len(s.modals) > 0
}

// Top returns the active modal, or nil.
func (s *Stack) Top() Context {
	if len(s.modals) == 0 {
		return nil
	}
	return s.modals[len(s.modals)-1]
}

// SetSize records the terminal size used to center modals.
func (s *Stack) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Update forwards msg to the top modal and pops it once done.
func (s *Stack) Update(msg tea.Msg) tea.Cmd {
	top := s.Top()
	if top == nil {
		return nil
	}
	next, cmd := top.Update(msg)
	s.modals[len(s.modals)-1] = next
	if !next.IsDone() {
		return cmd
	}

	s.modals = s.modals[:len(s.modals)-1]
	result := next.Result()
	closed := func() tea.Msg { return ClosedMsg{Result: result} }
	return tea.Batch(cmd, closed)
}

// Render draws the top modal centered over the background.
func (s *Stack) Render(background string) string {
	top := s.Top()
	if top == nil {
		return background
	}
	box := ui.ModalStyle.Render(top.View())
	if s.width == 0 || s.height == 0 {
		return box
	}
	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, box)
}
