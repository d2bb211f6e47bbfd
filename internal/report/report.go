// Package report exports a finished analysis as Markdown, printable HTML or
// PDF.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/placement-prep/internal/results"
	"github.com/jonathan/placement-prep/internal/types"
)

// Export formats.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatPDF      = "pdf"
)

const reportTitle = "Placement Preparation Report"

// Section is one agent's contribution to the report.
type Section struct {
	Kind    types.AgentKind
	Title   string
	Content string
	Sources []types.GroundingSource
}

// Document is the data every export format renders.
type Document struct {
	CompanyName string
	JobRole     string
	Generated   time.Time
	// Agents lists every agent title, in display order.
	Agents   []string
	Sections []Section
}

// NewDocument collects the completed agents of snap in display order. Agents
// without content, and the interactive interviewer, contribute no section.
func NewDocument(input types.UserInput, snap results.Snapshot, now time.Time) Document {
	doc := Document{
		CompanyName: input.CompanyName,
		JobRole:     input.JobRole,
		Generated:   now,
	}
	for _, meta := range types.DisplayOrder() {
		doc.Agents = append(doc.Agents, meta.Title)
		if meta.Kind.Interactive() {
			continue
		}
		r := snap.Get(meta.Kind)
		if r.Content == "" {
			continue
		}
		doc.Sections = append(doc.Sections, Section{
			Kind:    meta.Kind,
			Title:   meta.Title,
			Content: r.Content,
			Sources: r.Sources,
		})
	}
	return doc
}

// Empty reports whether there is nothing to export.
func (d Document) Empty() bool {
	return len(d.Sections) == 0
}

func (d Document) date() string {
	return d.Generated.Format("January 2, 2006")
}

// Markdown renders the report as a Markdown document.
func Markdown(d Document) string {
	var sb strings.Builder
	sb.WriteString("# " + reportTitle + "\n")
	fmt.Fprintf(&sb, "Generated on: %s\n\n", d.date())
	fmt.Fprintf(&sb, "Target Company: %s\n", d.CompanyName)
	fmt.Fprintf(&sb, "This report contains insights from: %s\n\n", strings.Join(d.Agents, ", "))
	sb.WriteString("---\n\n")

	for _, s := range d.Sections {
		fmt.Fprintf(&sb, "# %s\n\n", s.Title)
		fmt.Fprintf(&sb, "%s\n\n", s.Content)
		if len(s.Sources) > 0 {
			sb.WriteString("\n**Sources:**\n")
			for _, src := range s.Sources {
				fmt.Fprintf(&sb, "- [%s](%s)\n", src.Title, src.URI)
			}
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String()
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename names an export: PlacementPrep_<Company>_<YYYY-MM-DD>.<ext>, with
// whitespace in the company name replaced by underscores.
func Filename(company string, date time.Time, ext string) string {
	name := whitespaceRun.ReplaceAllString(company, "_")
	return fmt.Sprintf("PlacementPrep_%s_%s.%s", name, date.Format("2006-01-02"), ext)
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Render produces the export in format.
func Render(d Document, format string) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(d)), nil
	case FormatHTML:
		s, err := HTML(d)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case FormatPDF:
		return PDF(d)
	default:
		return nil, &UnknownFormatError{Format: format}
	}
}

// UnknownFormatError is returned by Render for unsupported formats.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown report format %q (want md, html or pdf)", e.Format)
}
