package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/placement-prep/internal/report"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcRunner func(ctx context.Context, kind types.AgentKind, input types.UserInput) types.Patch

func (f funcRunner) Invoke(ctx context.Context, kind types.AgentKind, input types.UserInput) types.Patch {
	return f(ctx, kind, input)
}

func TestBuildInput(t *testing.T) {
	dir := t.TempDir()
	jd := filepath.Join(dir, "jd.txt")
	require.NoError(t, os.WriteFile(jd, []byte("Build   APIs\n\n\n\nin Go"), 0o644))
	cv := filepath.Join(dir, "cv.html")
	require.NoError(t, os.WriteFile(cv, []byte("<html><body><h1>Jane</h1><ul><li>Go</li></ul></body></html>"), 0o644))

	input, err := buildInput("  Acme ", "Engineer", jd, cv)
	require.NoError(t, err)
	assert.Equal(t, "Acme", input.CompanyName)
	assert.Equal(t, "Build APIs\n\nin Go", input.JobDescription)
	assert.Contains(t, input.ResumeContent, "# Jane")
	assert.Contains(t, input.ResumeContent, "- Go")

	_, err = buildInput("Acme", " ", "", "")
	assert.Error(t, err)

	_, err = buildInput("Acme", "Engineer", filepath.Join(dir, "missing.txt"), "")
	assert.Error(t, err)
}

func TestReportFormat(t *testing.T) {
	tests := []struct {
		out, format string
		want        string
		wantErr     bool
	}{
		{"", "", report.FormatMarkdown, false},
		{"prep.html", "", report.FormatHTML, false},
		{"prep.PDF", "", report.FormatPDF, false},
		{"prep.markdown", "", report.FormatMarkdown, false},
		{"prep.txt", "pdf", report.FormatPDF, false},
		{"prep.docx", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.out+"|"+tt.format, func(t *testing.T) {
			got, err := reportFormat(tt.out, tt.format)
			if tt.wantErr {
				var unknown *report.UnknownFormatError
				assert.ErrorAs(t, err, &unknown)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunAnalysis_PrintsResultsAndWritesReport(t *testing.T) {
	runner := funcRunner(func(_ context.Context, kind types.AgentKind, input types.UserInput) types.Patch {
		if kind == types.AgentHRAnswers {
			return types.Patch{Content: types.Ptr(""), Error: types.Ptr("Rate limit reached")}
		}
		return types.Patch{Content: types.Ptr("Notes on " + input.CompanyName), Error: types.Ptr("")}
	})
	logger, _ := test.NewNullLogger()
	input := types.UserInput{CompanyName: "Acme Corp", JobRole: "Engineer"}

	var out bytes.Buffer
	snap, err := runAnalysis(context.Background(), runner, input, &out, logrus.NewEntry(logger))
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "COMPANY RESEARCH")
	assert.Contains(t, output, "Notes on Acme Corp")
	assert.Contains(t, output, "Rate limit reached")
	assert.Contains(t, output, "Score: 60/100")
	assert.NotContains(t, output, "MOCK INTERVIEWER")

	path := filepath.Join(t.TempDir(), "prep.md")
	require.NoError(t, writeReport(input, snap, path, report.FormatMarkdown, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Placement Preparation Report")
	assert.Contains(t, string(data), "Notes on Acme Corp")
}

func TestWriteReport_NothingCompleted(t *testing.T) {
	runner := funcRunner(func(context.Context, types.AgentKind, types.UserInput) types.Patch {
		return types.Patch{Content: types.Ptr(""), Error: types.Ptr("down")}
	})
	input := types.UserInput{CompanyName: "Acme", JobRole: "Engineer"}

	var out bytes.Buffer
	snap, err := runAnalysis(context.Background(), runner, input, &out, nil)
	require.NoError(t, err)

	err = writeReport(input, snap, filepath.Join(t.TempDir(), "prep.md"), report.FormatMarkdown, time.Now())
	assert.Error(t, err)
}
