// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/placement-prep/internal/readiness"
	"github.com/jonathan/placement-prep/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxLinesToShow caps the content lines printed per agent
	maxLinesToShow = 12
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// PrintInput outputs the analysis target.
func (p *Printer) PrintInput(input types.UserInput) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", input.CompanyName))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", input.JobRole))
	sb.WriteString(fmt.Sprintf("JD:       %s\n", presence(input.JobDescription)))
	sb.WriteString(fmt.Sprintf("Resume:   %s", presence(input.ResumeContent)))
	p.printBox("ANALYSIS TARGET", sb.String())
}

func presence(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return fmt.Sprintf("%d characters", utf8.RuneCountInString(s))
}

// PrintAgentResult outputs one agent's result: the head of its content and
// sources, or the error and troubleshooting steps.
func (p *Printer) PrintAgentResult(r types.AgentResult) {
	var sb strings.Builder

	switch {
	case r.Loading:
		sb.WriteString("Still running...")
	case r.Error != "":
		sb.WriteString(fmt.Sprintf("✗ %s\n", r.Error))
		if len(r.Troubleshooting) > 0 {
			sb.WriteString("\nTry:\n")
			for _, step := range r.Troubleshooting {
				sb.WriteString(fmt.Sprintf("  • %s\n", step))
			}
		}
	case r.Content == "":
		sb.WriteString("No result yet")
	default:
		lines := nonBlankLines(r.Content)
		count := min(len(lines), maxLinesToShow)
		for _, line := range lines[:count] {
			sb.WriteString(line + "\n")
		}
		if len(lines) > maxLinesToShow {
			sb.WriteString(fmt.Sprintf("... and %d more lines\n", len(lines)-maxLinesToShow))
		}

		if len(r.Sources) > 0 {
			sb.WriteString(fmt.Sprintf("\nSources (%d):\n", len(r.Sources)))
			shown := min(len(r.Sources), maxItemsToShow)
			for _, s := range r.Sources[:shown] {
				sb.WriteString(fmt.Sprintf("  • %s\n", s.Title))
			}
			if len(r.Sources) > maxItemsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(r.Sources)-maxItemsToShow))
			}
		}
	}

	p.printBox(strings.ToUpper(r.Kind.Meta().Title), strings.TrimSuffix(sb.String(), "\n"))
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimRight(line, " \t\r"))
		}
	}
	return out
}

// PrintReadiness outputs the readiness score, its breakdown and the next step.
func (p *Printer) PrintReadiness(r readiness.Report) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Score: %d/100 (%s)\n\n", r.Score, r.Band))

	for _, c := range r.Categories {
		mark := "○"
		if c.Complete {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("%s %-30s %2d/%2d\n", mark, c.Label, c.Earned, c.Points))
	}

	if r.Suggestion != "" {
		sb.WriteString("\nNext: " + r.Suggestion)
	}

	p.printBox("PLACEMENT READINESS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary outputs a one-line status per agent in display order.
func (p *Printer) PrintSummary(results []types.AgentResult) {
	byKind := make(map[types.AgentKind]types.AgentResult, len(results))
	for _, r := range results {
		byKind[r.Kind] = r
	}

	var sb strings.Builder
	for _, meta := range types.DisplayOrder() {
		r, ok := byKind[meta.Kind]
		if !ok {
			continue
		}
		status := "pending"
		switch {
		case r.Loading:
			status = "running"
		case r.Failed():
			status = "failed"
		case r.Done():
			status = "done"
		}
		sb.WriteString(fmt.Sprintf("%-24s %s\n", meta.Title, status))
	}

	p.printBox("AGENTS", strings.TrimSuffix(sb.String(), "\n"))
}
