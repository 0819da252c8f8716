// Package app is the interactive terminal view: recurring failure patterns
// next to the repository's recent dispatches.
package app

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/ui"
	"github.com/kyleking/gh-lazyqa/internal/ui/modal"
	"github.com/kyleking/gh-lazyqa/internal/ui/panes"
)

// FocusedPane represents which pane currently has focus.
type FocusedPane int

const (
	PanePatterns FocusedPane = iota
	PaneHistory
)

const historyLimit = 20

// Backend is what the view needs from the service layer.
type Backend interface {
	FailurePatterns(ctx context.Context, repo string, window time.Duration) (patterns.Report, error)
	History(repo, workflow string, limit int) ([]frecency.HistoryEntry, error)
	Redispatch(ctx context.Context, repo string, entry frecency.HistoryEntry) (dispatch.Outcome, error)
	RunURL(repo string, runID int64) string
}

// Options configures a Model. Open and Copy default to no-ops.
type Options struct {
	Repo   string
	Window time.Duration
	Open   func(url string) error
	Copy   func(text string) error
}

type patternsLoadedMsg struct {
	report patterns.Report
	err    error
}

type dispatchDoneMsg struct {
	outcome dispatch.Outcome
	err     error
}

// Model is the root bubbletea model for the application.
type Model struct {
	ctx     context.Context
	backend Backend
	opts    Options

	focused  FocusedPane
	patterns panes.PatternsModel
	history  panes.HistoryModel
	report   patterns.Report

	modalStack *modal.Stack
	pending    *modal.DispatchStatusModal
	status     string

	width  int
	height int
	keys   KeyMap
}

// New creates the application model and loads the dispatch history.
func New(ctx context.Context, backend Backend, opts Options) Model {
	if opts.Open == nil {
		opts.Open = func(string) error { return nil }
	}
	if opts.Copy == nil {
		opts.Copy = func(string) error { return nil }
	}
	m := Model{
		ctx:        ctx,
		backend:    backend,
		opts:       opts,
		focused:    PanePatterns,
		patterns:   panes.NewPatternsModel(),
		history:    panes.NewHistoryModel(),
		modalStack: modal.NewStack(),
		keys:       DefaultKeyMap(),
	}
	m.patterns.SetFocused(true)
	m.reloadHistory()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadPatterns()
}

func (m Model) loadPatterns() tea.Cmd {
	ctx, backend, repo, window := m.ctx, m.backend, m.opts.Repo, m.opts.Window
	return func() tea.Msg {
		report, err := backend.FailurePatterns(ctx, repo, window)
		return patternsLoadedMsg{report: report, err: err}
	}
}

func (m *Model) reloadHistory() {
	entries, err := m.backend.History(m.opts.Repo, "", historyLimit)
	if err != nil {
		m.status = "history: " + err.Error()
		return
	}
	m.history.SetEntries(entries)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.modalStack.SetSize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case patternsLoadedMsg:
		if msg.err != nil {
			m.patterns.SetError(msg.err)
			return m, nil
		}
		m.report = msg.report
		m.patterns.SetPatterns(msg.report.Patterns)
		m.status = fmt.Sprintf("%d summaries, %d classified, %d discarded",
			msg.report.Total, msg.report.Classified, msg.report.Discarded)
		return m, nil

	case dispatchDoneMsg:
		if m.pending != nil {
			m.pending.SetOutcome(msg.outcome, msg.err)
			m.pending = nil
		}
		if msg.outcome.Dispatched {
			m.reloadHistory()
		}
		return m, nil

	case modal.ClosedMsg:
		return m.handleModalResult(msg.Result)
	}

	if m.modalStack.HasActive() {
		return m, m.modalStack.Update(msg)
	}

	switch msg := msg.(type) {
	case panes.PatternSelectedMsg:
		m.modalStack.Push(modal.NewPatternDetailModal(msg.Pattern, m.width, m.height))
		return m, nil

	case panes.HistorySelectedMsg:
		return m.redispatch(msg.Entry)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.ShiftTab):
		m.focus((m.focused + 1) % 2)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.focused == PanePatterns {
			m.patterns.MoveUp()
		} else {
			m.history.MoveUp()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.focused == PanePatterns {
			m.patterns.MoveDown()
		} else {
			m.history.MoveDown()
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.focused == PanePatterns {
			return m, m.patterns.HandleSelect()
		}
		return m, m.history.HandleSelect()

	case key.Matches(msg, m.keys.Refresh):
		m.patterns.SetLoading()
		m.reloadHistory()
		return m, m.loadPatterns()

	case key.Matches(msg, m.keys.Open):
		if url := m.latestRunURL(); url != "" {
			m.openURL(url)
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		url := m.latestRunURL()
		if url == "" {
			return m, nil
		}
		if err := m.opts.Copy(url); err != nil {
			m.status = "copy failed: " + err.Error()
		} else {
			m.status = "copied " + url
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) focus(p FocusedPane) {
	m.focused = p
	m.patterns.SetFocused(p == PanePatterns)
	m.history.SetFocused(p == PaneHistory)
}

func (m Model) redispatch(entry frecency.HistoryEntry) (tea.Model, tea.Cmd) {
	status := modal.NewDispatchStatusModal(path.Base(entry.Workflow) + " @ " + entry.Branch)
	m.modalStack.Push(status)
	m.pending = status

	ctx, backend, repo := m.ctx, m.backend, m.opts.Repo
	return m, func() tea.Msg {
		out, err := backend.Redispatch(ctx, repo, entry)
		return dispatchDoneMsg{outcome: out, err: err}
	}
}

func (m Model) handleModalResult(result any) (tea.Model, tea.Cmd) {
	switch r := result.(type) {
	case modal.OpenRunResult:
		m.openURL(r.URL)
	case modal.RunChosenResult:
		if url := m.backend.RunURL(m.opts.Repo, r.RunID); url != "" {
			m.openURL(url)
		}
	}
	return m, nil
}

func (m *Model) openURL(url string) {
	if err := m.opts.Open(url); err != nil {
		m.status = "open failed: " + err.Error()
		return
	}
	m.status = "opened " + url
}

// latestRunURL is the newest run of the highlighted pattern.
func (m Model) latestRunURL() string {
	if m.focused != PanePatterns {
		return ""
	}
	p := m.patterns.SelectedPattern()
	if p == nil || len(p.RunIDs) == 0 {
		return ""
	}
	return m.backend.RunURL(m.opts.Repo, p.RunIDs[len(p.RunIDs)-1])
}

func (m *Model) layout() {
	bodyHeight := max(m.height-2, 4)
	leftWidth := (m.width * 11) / 20
	m.patterns.SetSize(leftWidth, bodyHeight)
	m.history.SetSize(m.width-leftWidth, bodyHeight)
}

// Status is the text of the status line.
func (m Model) Status() string {
	return m.status
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, m.patterns.View(), m.history.View())
	help := ui.HelpStyle.Render("[Tab] pane  [Enter] open / re-dispatch  [o] open run  [y] copy URL  [r] refresh  [q] quit")
	status := ui.SubtitleStyle.Render(ui.TruncateWithEllipsis(m.status, max(m.width-2, 10)))
	main := lipgloss.JoinVertical(lipgloss.Left, top, status, help)

	if m.modalStack.HasActive() {
		return m.modalStack.Render(main)
	}
	return main
}
