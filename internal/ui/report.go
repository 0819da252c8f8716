package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

const reportExampleWidth = 100

// RenderReport formats a mined report for the terminal. top <= 0 shows
// every pattern.
func RenderReport(title string, r patterns.Report, top int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d summaries, %d classified, %d discarded",
		r.Total, r.Classified, r.Discarded)))
	b.WriteString("\n\n")

	shown := patterns.Top(r.Patterns, top)
	if len(shown) == 0 {
		b.WriteString(NormalStyle.Render("No recurring failures."))
		return b.String()
	}

	countWidth := len(fmt.Sprint(shown[0].Count()))
	for i, p := range shown {
		header := fmt.Sprintf("%s  %s", PadRight(fmt.Sprint(p.Count()), countWidth), p.Name)
		b.WriteString(SelectedStyle.Render(header))
		if len(p.Workflows) > 0 {
			b.WriteString(TableDimmedStyle.Render("  " + strings.Join(p.Workflows, ", ")))
		}
		b.WriteString("\n")
		for _, ex := range p.Examples {
			line := WordWrap(ex.Text, reportExampleWidth)
			b.WriteString(lipgloss.NewStyle().PaddingLeft(countWidth + 2).Render(
				NormalStyle.Render(line) + TableDimmedStyle.Render(fmt.Sprintf("  (run %d)", ex.RunID))))
			b.WriteString("\n")
		}
		if i < len(shown)-1 {
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderResolution formats a resolved workflow.
func RenderResolution(r resolve.Result) string {
	var b strings.Builder
	b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s (%s)", r.Workflow.Name, r.Workflow.Path)))
	b.WriteString(TableDimmedStyle.Render(fmt.Sprintf("  id %d, matched by %s", r.Workflow.ID, r.Tier)))
	if r.Disabled {
		b.WriteString("\n" + ErrorStyle.Render("workflow is disabled"))
	}
	if len(r.Rejected) > 0 {
		b.WriteString("\n" + SubtitleStyle.Render("rejected: "+strings.Join(r.Rejected, ", ")))
	}
	return b.String()
}

// RenderOutcome formats a dispatch outcome and its error, if any.
func RenderOutcome(o dispatch.Outcome, err error) string {
	var b strings.Builder
	if o.Workflow.Name != "" {
		b.WriteString(TitleStyle.Render(o.Workflow.Name))
		b.WriteString(TableDimmedStyle.Render(fmt.Sprintf("  %s @ %s", o.Tier, o.Ref)))
		b.WriteString("\n")
	}

	states := make([]string, len(o.Transitions))
	for i, s := range o.Transitions {
		states[i] = string(s)
	}
	b.WriteString(SubtitleStyle.Render(strings.Join(states, " -> ")))
	b.WriteString("\n")

	for _, w := range o.Warnings {
		b.WriteString(SelectedStyle.Render("warning: " + w))
		b.WriteString("\n")
	}
	if len(o.DroppedInputs) > 0 {
		b.WriteString(TableDimmedStyle.Render("dropped inputs: " + strings.Join(o.DroppedInputs, ", ")))
		b.WriteString("\n")
	}
	if o.Run != nil {
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("run %d: %s", o.Run.ID, o.Run.HTMLURL)))
		b.WriteString("\n")
	}
	if err != nil {
		b.WriteString(RenderError(err))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderError formats an error, including remediation and candidates for
// dispatch errors.
func RenderError(err error) string {
	var b strings.Builder
	b.WriteString(ErrorStyle.Render("error: " + err.Error()))

	var de *dispatch.Error
	if !errors.As(err, &de) {
		return b.String()
	}
	if de.Remediation != "" {
		b.WriteString("\n" + NormalStyle.Render(de.Remediation))
	}
	if len(de.Suggestions) > 0 {
		b.WriteString("\n" + SubtitleStyle.Render("did you mean: "+strings.Join(de.Suggestions, ", ")))
	}
	if len(de.Available) > 0 {
		b.WriteString("\n" + SubtitleStyle.Render("available: "+strings.Join(de.Available, ", ")))
	}
	return b.String()
}
