package report

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

var strict = bluemonday.StrictPolicy()

var printTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Placement Prep Report - {{.CompanyName}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #1a202c; max-width: 800px; margin: 0 auto; padding: 40px; }
h1 { color: #4338ca; border-bottom: 2px solid #e5e7eb; padding-bottom: 12px; margin-bottom: 24px; }
h2 { color: #3730a3; margin-top: 40px; margin-bottom: 16px; font-size: 1.5em; border-left: 4px solid #4f46e5; padding-left: 12px; }
.meta { color: #6b7280; font-size: 0.9em; margin-bottom: 40px; font-style: italic; }
.content { white-space: pre-wrap; background: #f9fafb; padding: 20px; border-radius: 8px; border: 1px solid #e5e7eb; font-size: 0.9em; }
.sources { font-size: 0.85em; }
.agent-section { break-inside: avoid; margin-bottom: 40px; }
@media print {
  body { padding: 0; }
  .content { border: none; padding: 0; }
}
</style>
</head>
<body>
<h1>Placement Preparation Report</h1>
<div class="meta">Target: {{.CompanyName}} | Generated on {{.Date}}</div>
{{range .Sections}}
<div class="agent-section">
<h2>{{.Title}}</h2>
<div class="content">{{.Content}}</div>
{{- if .Sources}}
<ul class="sources">
{{- range .Sources}}
<li><a href="{{.URI}}">{{.Title}}</a></li>
{{- end}}
</ul>
{{- end}}
</div>
{{end}}
</body>
</html>
`))

type htmlSection struct {
	Section
	Content template.HTML
}

// HTML renders a print-formatted page. Agent content is model output, so any
// markup in it is stripped before it reaches the page.
func HTML(d Document) (string, error) {
	data := struct {
		CompanyName string
		Date        string
		Sections    []htmlSection
	}{
		CompanyName: d.CompanyName,
		Date:        d.date(),
	}
	for _, s := range d.Sections {
		data.Sections = append(data.Sections, htmlSection{
			Section: s,
			Content: template.HTML(strict.Sanitize(s.Content)),
		})
	}

	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to render HTML report")
	}
	return buf.String(), nil
}
