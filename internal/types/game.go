package types

// QuizQuestion is a multiple-choice question about the target company.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Valid reports whether the question has a prompt, at least two options and an
// answer index that points at one of them.
func (q QuizQuestion) Valid() bool {
	return q.Question != "" && len(q.Options) >= 2 &&
		q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options)
}

// ResumeGrade is the result of grading a resume against a job description.
type ResumeGrade struct {
	Score           int      `json:"score"`
	Feedback        []string `json:"feedback"`
	MissingKeywords []string `json:"missingKeywords"`
}

// IsEmpty reports whether the grade carries no information, which is how a
// failed or unparsable grading is represented.
func (g ResumeGrade) IsEmpty() bool {
	return g.Score == 0 && len(g.Feedback) == 0 && len(g.MissingKeywords) == 0
}

// Clamp returns a copy with the score forced into 0-100.
func (g ResumeGrade) Clamp() ResumeGrade {
	if g.Score < 0 {
		g.Score = 0
	}
	if g.Score > 100 {
		g.Score = 100
	}
	return g
}
