package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/placement-prep/internal/agents"
	"github.com/jonathan/placement-prep/internal/dispatch"
	"github.com/jonathan/placement-prep/internal/ingestion"
	"github.com/jonathan/placement-prep/internal/observability"
	"github.com/jonathan/placement-prep/internal/readiness"
	"github.com/jonathan/placement-prep/internal/report"
	"github.com/jonathan/placement-prep/internal/results"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run every agent for a company and role and print the results",
	Long: `Runs company research, recruitment process, previous questions, resume optimization and HR answers
in parallel, prints each result and the readiness score, and optionally writes the report.

The report format defaults to the --out file extension (md, html or pdf).`,
	RunE: runAnalyze,
}

var (
	analyzeCompany string
	analyzeRole    string
	analyzeJD      string
	analyzeResume  string
	analyzeOut     string
	analyzeFormat  string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeCompany, "company", "c", "", "Target company name (required)")
	analyzeCmd.Flags().StringVarP(&analyzeRole, "role", "r", "", "Target job role (required)")
	analyzeCmd.Flags().StringVar(&analyzeJD, "jd", "", "Path to job description text file")
	analyzeCmd.Flags().StringVar(&analyzeResume, "resume", "", "Path to resume file (text, markdown or HTML)")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Write the report to this file")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "Report format: md, html or pdf")

	_ = analyzeCmd.MarkFlagRequired("company")
	_ = analyzeCmd.MarkFlagRequired("role")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	input, err := buildInput(analyzeCompany, analyzeRole, analyzeJD, analyzeResume)
	if err != nil {
		return err
	}
	format, err := reportFormat(analyzeOut, analyzeFormat)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	snap, err := runAnalysis(cmd.Context(), a.runner, input, out, a.logger.WithField("component", "cli"))
	if err != nil {
		return err
	}

	if analyzeOut == "" {
		return nil
	}
	if err := writeReport(input, snap, analyzeOut, format, time.Now()); err != nil {
		return err
	}
	cmd.Printf("Report written to %s\n", analyzeOut)
	return nil
}

// buildInput assembles the analysis target, reading the optional job
// description and resume files.
func buildInput(company, role, jdPath, resumePath string) (types.UserInput, error) {
	input := types.UserInput{CompanyName: company, JobRole: role}.Normalize()
	if err := input.Validate(); err != nil {
		return types.UserInput{}, errors.Wrap(err, "company and role are required")
	}

	if jdPath != "" {
		data, err := os.ReadFile(jdPath)
		if err != nil {
			return types.UserInput{}, errors.Wrap(err, "failed to read job description")
		}
		input.JobDescription = ingestion.CleanText(string(data))
	}

	if resumePath != "" {
		data, err := os.ReadFile(resumePath)
		if err != nil {
			return types.UserInput{}, errors.Wrap(err, "failed to read resume")
		}
		resume, err := ingestion.IngestResume(filepath.Base(resumePath), data)
		if err != nil {
			return types.UserInput{}, errors.Wrap(err, "failed to ingest resume")
		}
		input.ResumeContent = resume.Text
	}
	return input, nil
}

// reportFormat resolves the export format from the flag or the output
// file's extension.
func reportFormat(out, format string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	if format == "" || format == "markdown" {
		format = report.FormatMarkdown
	}
	switch format {
	case report.FormatMarkdown, report.FormatHTML, report.FormatPDF:
		return format, nil
	default:
		return "", &report.UnknownFormatError{Format: format}
	}
}

// runAnalysis runs every agent to completion and prints the results and the
// readiness report to out.
func runAnalysis(ctx context.Context, runner agents.Runner, input types.UserInput, out io.Writer, log *logrus.Entry) (results.Snapshot, error) {
	coord := dispatch.New(ctx, results.NewTable(), runner, log)
	defer coord.Close()

	printer := observability.NewPrinter(out)
	printer.PrintInput(input)

	if !coord.StartAnalysis(input) {
		return results.Snapshot{}, errors.New("company and role are required")
	}
	coord.Wait()

	snap := coord.Table().Snapshot()
	for _, meta := range types.DisplayOrder() {
		if meta.Kind.Interactive() {
			continue
		}
		printer.PrintAgentResult(snap.Get(meta.Kind))
	}
	printer.PrintSummary(snap.Results())
	printer.PrintReadiness(readiness.Evaluate(snap, 0))
	return snap, nil
}

// writeReport renders the completed sections to path.
func writeReport(input types.UserInput, snap results.Snapshot, path, format string, now time.Time) error {
	doc := report.NewDocument(input, snap, now)
	if doc.Empty() {
		return errors.New("no agent completed; nothing to export")
	}
	data, err := report.Render(doc, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write report to %s", path)
	}
	return nil
}
