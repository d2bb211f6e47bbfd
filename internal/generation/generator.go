// Package generation produces the game's structured artifacts: a company quiz,
// a must-know question checklist and a resume grade. Every failure collapses to
// an empty value so callers can offer a uniform "try again".
package generation

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/placement-prep/internal/llm"
	"github.com/jonathan/placement-prep/internal/prompts"
	"github.com/jonathan/placement-prep/internal/schemas"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/sirupsen/logrus"
)

// Sizes requested from the model.
const (
	QuizSize      = 5
	ChecklistSize = 10
)

// Generator calls the model for game content.
type Generator struct {
	client llm.Client
	log    *logrus.Entry
}

// New creates a Generator. A nil client makes every call return empty.
func New(client llm.Client, log *logrus.Entry) *Generator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Generator{client: client, log: log.WithField("component", "generation")}
}

// Quiz returns multiple-choice questions about the company. Malformed entries
// are dropped.
func (g *Generator) Quiz(ctx context.Context, input types.UserInput) []types.QuizQuestion {
	raw := g.generate(ctx, "quiz", schemas.Quiz, llm.TierLite, map[string]string{
		"CompanyName": input.CompanyName,
		"JobRole":     input.JobRole,
		"Count":       strconv.Itoa(QuizSize),
	})
	if raw == "" {
		return []types.QuizQuestion{}
	}

	var qs []types.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &qs); err != nil {
		g.log.WithError(err).Warn("failed to decode quiz")
		return []types.QuizQuestion{}
	}

	valid := make([]types.QuizQuestion, 0, len(qs))
	for _, q := range qs {
		if q.Valid() {
			valid = append(valid, q)
		}
	}
	return valid
}

// Checklist returns the questions a candidate must be ready for. The
// previous-questions research is used as seed context when available.
func (g *Generator) Checklist(ctx context.Context, input types.UserInput, previousQuestions string) []string {
	seed := strings.TrimSpace(previousQuestions)
	if seed == "" {
		seed = prompts.MustGet(prompts.GameFile, "fallback-previous-questions")
	}
	raw := g.generate(ctx, "checklist", schemas.Checklist, llm.TierLite, map[string]string{
		"CompanyName":       input.CompanyName,
		"JobRole":           input.JobRole,
		"Count":             strconv.Itoa(ChecklistSize),
		"PreviousQuestions": seed,
	})
	if raw == "" {
		return []string{}
	}

	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		g.log.WithError(err).Warn("failed to decode checklist")
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// gradePayload accepts fractional scores; the model does not always round.
type gradePayload struct {
	Score           float64  `json:"score"`
	Feedback        []string `json:"feedback"`
	MissingKeywords []string `json:"missingKeywords"`
}

// GradeResume grades input.ResumeContent against the role. A failed grading is
// the zero grade.
func (g *Generator) GradeResume(ctx context.Context, input types.UserInput) types.ResumeGrade {
	if strings.TrimSpace(input.ResumeContent) == "" {
		return types.ResumeGrade{}
	}
	jd := input.JobDescription
	if strings.TrimSpace(jd) == "" {
		jd = prompts.MustGet(prompts.GameFile, "fallback-jd")
	}
	raw := g.generate(ctx, "grade-resume", schemas.Grade, llm.TierAdvanced, map[string]string{
		"CompanyName":    input.CompanyName,
		"JobRole":        input.JobRole,
		"JobDescription": jd,
		"ResumeContent":  input.ResumeContent,
	})
	if raw == "" {
		return types.ResumeGrade{}
	}

	var p gradePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		g.log.WithError(err).Warn("failed to decode resume grade")
		return types.ResumeGrade{}
	}
	return types.ResumeGrade{
		Score:           int(math.Floor(p.Score + 0.5)),
		Feedback:        nonNil(p.Feedback),
		MissingKeywords: nonNil(p.MissingKeywords),
	}.Clamp()
}

// generate renders the prompt, calls the model and validates the cleaned JSON.
// It returns "" on any failure.
func (g *Generator) generate(ctx context.Context, key, schema string, tier llm.ModelTier, data map[string]string) string {
	log := g.log.WithField("artifact", key)
	if g.client == nil {
		log.Warn("no model client configured")
		return ""
	}

	prompt, err := prompts.Render(prompts.GameFile, key, data)
	if err != nil {
		log.WithError(err).Error("failed to render prompt")
		return ""
	}

	raw, err := g.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		log.WithError(err).Warn("generation failed")
		return ""
	}
	raw = llm.CleanJSONBlock(raw)

	if err := schemas.Validate(schema, raw); err != nil {
		log.WithError(err).Warn("generated JSON failed schema validation")
		return ""
	}
	return raw
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
