package report

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

const (
	pdfMargin     = 15.0
	pdfLineHeight = 5.5
)

// PDF renders the report with the core Helvetica font. Text is translated to
// cp1252; characters outside it are replaced.
func PDF(d Document) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("PDF render panic recover: %v", r)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(reportTitle+" - "+d.CompanyName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(67, 56, 202)
	pdf.CellFormat(0, 10, tr(reportTitle), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 6, tr("Target: "+d.CompanyName+" | Generated on "+d.date()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, s := range d.Sections {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(55, 48, 163)
		pdf.MultiCell(0, 8, tr(s.Title), "", "L", false)
		pdf.Ln(1)

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(26, 32, 44)
		pdf.MultiCell(0, pdfLineHeight, tr(plainText(s.Content)), "", "L", false)

		if len(s.Sources) > 0 {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 9)
			pdf.CellFormat(0, pdfLineHeight, "Sources:", "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(67, 56, 202)
			for _, src := range s.Sources {
				pdf.WriteLinkString(pdfLineHeight, tr("- "+src.Title), src.URI)
				pdf.Ln(pdfLineHeight)
			}
		}
		pdf.Ln(6)
	}

	if err := pdf.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to render PDF report")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to write PDF report")
	}
	return buf.Bytes(), nil
}

var markdownMarks = strings.NewReplacer("**", "", "__", "", "`", "")

// plainText drops the inline markdown emphasis the PDF cannot show and turns
// heading markers into plain lines.
func plainText(md string) string {
	lines := strings.Split(markdownMarks.Replace(md), "\n")
	for i, line := range lines {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "#") {
			lines[i] = strings.ToUpper(strings.TrimLeft(trimmed, "# "))
		}
	}
	return strings.Join(lines, "\n")
}
