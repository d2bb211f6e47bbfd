// Package readiness derives the 0-100 preparation score from a result table
// snapshot and the number of completed mock-interview turns.
package readiness

import (
	"fmt"

	"github.com/jonathan/placement-prep/internal/results"
	"github.com/jonathan/placement-prep/internal/types"
)

// CategoryID identifies a scoring category.
type CategoryID string

// Categories in suggestion order.
const (
	CategoryResume    CategoryID = "resume"
	CategoryResearch  CategoryID = "research"
	CategoryProcess   CategoryID = "process"
	CategoryQuestions CategoryID = "questions"
	CategoryHR        CategoryID = "hr"
	CategoryMock      CategoryID = "mock"
)

// Mock practice earns this many points per turn, up to its category weight.
const (
	pointsPerInteraction = 10
	mockGoal             = 3
)

// Band is a coarse reading of the score.
type Band string

// Bands.
const (
	BandStarting    Band = "starting"
	BandProgressing Band = "progressing"
	BandStrong      Band = "strong"
)

type rule struct {
	id     CategoryID
	label  string
	points int
	kind   types.AgentKind
}

var rules = []rule{
	{CategoryResume, "Resume Optimized", 20, types.AgentResumeOptimization},
	{CategoryResearch, "Company Research", 10, types.AgentCompanyResearch},
	{CategoryProcess, "Recruitment Process Known", 15, types.AgentRecruitmentProcess},
	{CategoryQuestions, "Previous Questions Analyzed", 15, types.AgentPreviousQuestions},
	{CategoryHR, "HR Strategy Prepared", 10, types.AgentHRAnswers},
	{CategoryMock, "Mock Interview Practice", 30, types.AgentMockInterviewer},
}

// Category is one line of the breakdown.
type Category struct {
	ID       CategoryID `json:"id"`
	Label    string     `json:"label"`
	Points   int        `json:"points"`
	Earned   int        `json:"earned"`
	Complete bool       `json:"complete"`
}

// Report is the result of Evaluate.
type Report struct {
	Score      int        `json:"score"`
	Band       Band       `json:"band"`
	Suggestion string     `json:"suggestion"`
	Categories []Category `json:"categories"`
}

// Category returns the breakdown line for id.
func (r Report) Category(id CategoryID) Category {
	for _, c := range r.Categories {
		if c.ID == id {
			return c
		}
	}
	return Category{ID: id}
}

// Evaluate scores a snapshot. It has no side effects.
func Evaluate(snap results.Snapshot, interactions int) Report {
	if interactions < 0 {
		interactions = 0
	}

	report := Report{Categories: make([]Category, 0, len(rules))}
	for _, r := range rules {
		c := Category{ID: r.id, Label: r.label, Points: r.points}
		if r.id == CategoryMock {
			c.Earned = min(interactions*pointsPerInteraction, r.points)
			c.Complete = interactions >= mockGoal
		} else if snap.Get(r.kind).Done() {
			c.Earned = r.points
			c.Complete = true
		}
		report.Score += c.Earned
		report.Categories = append(report.Categories, c)
	}

	report.Suggestion = suggest(report.Categories, interactions)
	report.Band = bandFor(report.Score)
	return report
}

// suggest returns advice for the first incomplete category in rule order.
func suggest(categories []Category, interactions int) string {
	for _, c := range categories {
		if c.Complete {
			continue
		}
		switch c.ID {
		case CategoryMock:
			remaining := mockGoal - interactions
			noun := "answer"
			if remaining > 1 {
				noun = "answers"
			}
			return fmt.Sprintf("Practice %d more mock interview %s to reach 100%% readiness.", remaining, noun)
		case CategoryResume:
			return "Wait for the Resume Optimizer to finish to boost your score."
		default:
			return fmt.Sprintf("Review the %s insights to improve your score.", c.Label)
		}
	}
	return "You are fully prepared! Go smash that interview!"
}

func bandFor(score int) Band {
	switch {
	case score >= 80:
		return BandStrong
	case score >= 50:
		return BandProgressing
	default:
		return BandStarting
	}
}
