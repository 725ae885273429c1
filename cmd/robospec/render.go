package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"robospec/internal/repair"
	"robospec/internal/validator"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func renderVerdict(w io.Writer, name string, v validator.Verdict) {
	status := okStyle.Render("VALID")
	if !v.Valid {
		status = failStyle.Render("INVALID")
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(name), status)
	for _, e := range v.Errors {
		fmt.Fprintf(w, "  %s %s\n", failStyle.Render("error:"), e)
	}
	for _, warn := range v.Warnings {
		fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("warning:"), warn)
	}
}

func renderNotes(w io.Writer, label string, notes []string) {
	for _, n := range notes {
		fmt.Fprintf(w, "  %s %s\n", noteStyle.Render(label+":"), n)
	}
}

func renderOutcome(w io.Writer, name string, out *repair.Outcome) {
	var state string
	switch out.State {
	case repair.StateAccepted:
		state = okStyle.Render(string(out.State))
	case repair.StateBestEffort:
		state = warnStyle.Render(string(out.State))
	default:
		state = failStyle.Render(string(out.State))
	}

	lines := []string{
		fmt.Sprintf("%s  %s", titleStyle.Render(name), state),
		fmt.Sprintf("category: %s   repair requests: %d", out.Category, out.RepairRequests),
		noteStyle.Render("run " + out.RunID),
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))

	renderNotes(w, "fix", out.Fixes)
	renderNotes(w, "correction", out.Corrections)
	renderVerdict(w, "final verdict", out.Verdict)
}
