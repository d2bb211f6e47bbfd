package game

import "math"

// Game score weights. These are separate from the readiness weights.
const (
	quizPoints      = 20
	resumePoints    = 20
	checklistPoints = 20
	mockPoints      = 40
	mockPerTurn     = 10

	// MockGoal is the number of answered questions that maxes out the mock level.
	MockGoal = 4
)

// Progress is the raw input of the game score.
type Progress struct {
	QuizCorrect      int
	QuizTotal        int
	ResumeScore      int
	ChecklistChecked int
	ChecklistTotal   int
	MockInteractions int
}

// Breakdown is the per-level and total game score.
type Breakdown struct {
	Quiz      int `json:"quiz"`
	Resume    int `json:"resume"`
	Checklist int `json:"checklist"`
	Mock      int `json:"mock"`
	Total     int `json:"total"`
}

// Score computes the game score.
func Score(p Progress) Breakdown {
	b := Breakdown{
		Quiz:      roundHalfUp(float64(p.QuizCorrect) / float64(max(p.QuizTotal, 1)) * quizPoints),
		Resume:    roundHalfUp(float64(p.ResumeScore) * resumePoints / 100),
		Checklist: roundHalfUp(float64(p.ChecklistChecked) / float64(max(p.ChecklistTotal, 1)) * checklistPoints),
		Mock:      min(max(p.MockInteractions, 0)*mockPerTurn, mockPoints),
	}
	b.Total = b.Quiz + b.Resume + b.Checklist + b.Mock
	return b
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
