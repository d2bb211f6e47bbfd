// Package game implements the gamified preparation flow: a hub menu with four
// levels (company quiz, resume challenge, revision checklist, mock interview),
// each returning to the menu when done.
package game

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/jonathan/placement-prep/internal/chat"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Level is a state of the game.
type Level int

// Levels.
const (
	LevelMenu Level = iota
	LevelQuiz
	LevelResume
	LevelChecklist
	LevelMock
)

var levelNames = [...]string{"menu", "quiz", "resume", "checklist", "mock"}

func (l Level) String() string {
	if l < LevelMenu || l > LevelMock {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel accepts a level name or its number.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if s == name || s == strconv.Itoa(i) {
			return Level(i), nil
		}
	}
	return LevelMenu, errors.Errorf("unknown level %q", s)
}

// Unanswered marks a quiz question with no selected option.
const Unanswered = -1

// Level-scoped error messages.
const (
	msgQuizLoad      = "Could not load the quiz. Please try again."
	msgChecklistLoad = "Could not load revision questions. Please try again."
	msgEmptyResume   = "Please enter your resume content before analyzing."
	msgResumeFailed  = "Could not analyze resume. Please try again."
)

var (
	// ErrBusy is returned while a load or analysis is in progress.
	ErrBusy = errors.New("game is busy")
	// ErrWrongLevel is returned for actions that belong to another level.
	ErrWrongLevel = errors.New("action not available at the current level")
	// ErrOutOfRange is returned for invalid question or option indexes.
	ErrOutOfRange = errors.New("index out of range")
	// ErrLoadFailed is returned when a level's content could not be generated.
	ErrLoadFailed = errors.New("level content could not be loaded")
	// ErrQuizIncomplete is returned when submitting with unanswered questions.
	ErrQuizIncomplete = errors.New("every question must be answered")
	// ErrEmptyResume is returned when analyzing blank resume text.
	ErrEmptyResume = errors.New("resume text is empty")
	// ErrAnalysisFailed is returned when the resume could not be graded.
	ErrAnalysisFailed = errors.New("resume analysis failed")
	// ErrNoInteraction is returned when finishing the mock level before answering.
	ErrNoInteraction = errors.New("answer at least one question first")
)

// Generator produces level content. *generation.Generator satisfies it.
type Generator interface {
	Quiz(ctx context.Context, input types.UserInput) []types.QuizQuestion
	Checklist(ctx context.Context, input types.UserInput, previousQuestions string) []string
	GradeResume(ctx context.Context, input types.UserInput) types.ResumeGrade
}

// ChatFactory opens the mock-level interview, wiring onInteraction into it.
type ChatFactory func(onInteraction func()) *chat.Session

// Session is one play-through. It is safe for concurrent use.
type Session struct {
	input             types.UserInput
	previousQuestions string
	gen               Generator
	newChat           ChatFactory
	log               *logrus.Entry

	mu      sync.Mutex
	level   Level
	loading bool
	errMsg  string
	// exits counts returns to the menu; a load that straddles one does not
	// move the player.
	exits uint64

	quiz        []types.QuizQuestion
	answers     []int
	quizCorrect int

	resumeText string
	grade      *types.ResumeGrade

	checklist []string
	checked   []bool

	interactions int
	interview    *chat.Session
}

// New starts a game at the menu. previousQuestions seeds the checklist.
func New(input types.UserInput, previousQuestions string, gen Generator, newChat ChatFactory, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		input:             input,
		previousQuestions: previousQuestions,
		gen:               gen,
		newChat:           newChat,
		log:               log.WithField("component", "game"),
		resumeText:        input.ResumeContent,
	}
}

// Enter moves to level. The quiz and checklist are generated on first entry;
// if generation comes back empty the level is not entered and the error is
// recorded for display. Calling Enter again retries. An Exit while content is
// loading keeps the player at the menu once the load finishes.
func (s *Session) Enter(ctx context.Context, level Level) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}

	switch level {
	case LevelMenu:
		s.exitLocked()
		s.mu.Unlock()
		return nil
	case LevelResume:
		s.enterLocked(level)
		s.mu.Unlock()
		return nil
	case LevelMock:
		if s.interview == nil && s.newChat != nil {
			s.interview = s.newChat(s.RecordInteraction)
		}
		s.enterLocked(level)
		s.mu.Unlock()
		return nil
	case LevelQuiz:
		if len(s.quiz) > 0 {
			s.enterLocked(level)
			s.mu.Unlock()
			return nil
		}
	case LevelChecklist:
		if len(s.checklist) > 0 {
			s.enterLocked(level)
			s.mu.Unlock()
			return nil
		}
	default:
		s.mu.Unlock()
		return errors.Wrapf(ErrOutOfRange, "level %d", int(level))
	}

	s.loading = true
	s.errMsg = ""
	exits := s.exits
	s.mu.Unlock()

	log := s.log.WithField("level", level)
	log.Debug("loading level content")

	var (
		quiz      []types.QuizQuestion
		checklist []string
	)
	if level == LevelQuiz {
		quiz = s.gen.Quiz(ctx, s.input)
	} else {
		checklist = s.gen.Checklist(ctx, s.input, s.previousQuestions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	left := s.exits != exits

	if level == LevelQuiz {
		if len(quiz) == 0 {
			if !left {
				s.errMsg = msgQuizLoad
			}
			log.Warn("quiz generation returned nothing")
			return ErrLoadFailed
		}
		s.quiz = quiz
		s.answers = make([]int, len(quiz))
		for i := range s.answers {
			s.answers[i] = Unanswered
		}
	} else {
		if len(checklist) == 0 {
			if !left {
				s.errMsg = msgChecklistLoad
			}
			log.Warn("checklist generation returned nothing")
			return ErrLoadFailed
		}
		s.checklist = checklist
		s.checked = make([]bool, len(checklist))
	}
	if left {
		log.Debug("player left during load; content kept for next entry")
		return nil
	}
	s.enterLocked(level)
	return nil
}

func (s *Session) enterLocked(level Level) {
	s.level = level
	s.errMsg = ""
}

func (s *Session) exitLocked() {
	s.level = LevelMenu
	s.errMsg = ""
	s.exits++
}

// Exit returns to the menu from any level.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitLocked()
}

func (s *Session) requireLocked(level Level) error {
	if s.level != level {
		return errors.Wrapf(ErrWrongLevel, "at %s, need %s", s.level, level)
	}
	if s.loading {
		return ErrBusy
	}
	return nil
}

// AnswerQuiz selects option for question.
func (s *Session) AnswerQuiz(question, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(LevelQuiz); err != nil {
		return err
	}
	if question < 0 || question >= len(s.quiz) {
		return errors.Wrapf(ErrOutOfRange, "question %d", question)
	}
	if option < 0 || option >= len(s.quiz[question].Options) {
		return errors.Wrapf(ErrOutOfRange, "option %d", option)
	}
	s.answers[question] = option
	return nil
}

// SubmitQuiz scores the answers and returns to the menu.
func (s *Session) SubmitQuiz() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(LevelQuiz); err != nil {
		return 0, err
	}
	for _, a := range s.answers {
		if a == Unanswered {
			return 0, ErrQuizIncomplete
		}
	}

	correct := 0
	for i, q := range s.quiz {
		if s.answers[i] == q.CorrectAnswer {
			correct++
		}
	}
	s.quizCorrect = correct
	s.exitLocked()
	return correct, nil
}

// SetResume replaces the working resume text.
func (s *Session) SetResume(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(LevelResume); err != nil {
		return err
	}
	s.resumeText = text
	return nil
}

// AnalyzeResume grades the working resume text. A failure keeps the text and
// any earlier grade; a success replaces the earlier grade.
func (s *Session) AnalyzeResume(ctx context.Context) (types.ResumeGrade, error) {
	s.mu.Lock()
	if err := s.requireLocked(LevelResume); err != nil {
		s.mu.Unlock()
		return types.ResumeGrade{}, err
	}
	if strings.TrimSpace(s.resumeText) == "" {
		s.errMsg = msgEmptyResume
		s.mu.Unlock()
		return types.ResumeGrade{}, ErrEmptyResume
	}
	input := s.input
	input.ResumeContent = s.resumeText
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	grade := s.gen.GradeResume(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if grade.IsEmpty() {
		s.errMsg = msgResumeFailed
		return types.ResumeGrade{}, ErrAnalysisFailed
	}
	s.grade = &grade
	return grade, nil
}

// ToggleChecklist flips the confidence mark of item i.
func (s *Session) ToggleChecklist(i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(LevelChecklist); err != nil {
		return false, err
	}
	if i < 0 || i >= len(s.checked) {
		return false, errors.Wrapf(ErrOutOfRange, "item %d", i)
	}
	s.checked[i] = !s.checked[i]
	return s.checked[i], nil
}

// Interview returns the mock-level chat, or nil before the level was entered.
func (s *Session) Interview() *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interview
}

// RecordInteraction counts one answered mock question.
func (s *Session) RecordInteraction() {
	s.mu.Lock()
	s.interactions++
	s.mu.Unlock()
}

// FinishMock leaves the mock level. At least one answer is required.
func (s *Session) FinishMock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(LevelMock); err != nil {
		return err
	}
	if s.interactions < 1 {
		return ErrNoInteraction
	}
	s.exitLocked()
	return nil
}

// ClearError dismisses the current level error.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// QuizView is the quiz state.
type QuizView struct {
	Questions []types.QuizQuestion `json:"questions"`
	Answers   []int                `json:"answers"`
	Correct   int                  `json:"correct"`
	CanSubmit bool                 `json:"can_submit"`
}

// ResumeView is the resume challenge state.
type ResumeView struct {
	Text       string             `json:"text"`
	Grade      *types.ResumeGrade `json:"grade,omitempty"`
	CanAnalyze bool               `json:"can_analyze"`
}

// ChecklistView is the checklist state.
type ChecklistView struct {
	Items   []string `json:"items"`
	Checked []bool   `json:"checked"`
}

// MockView is the mock interview level state.
type MockView struct {
	Interactions int  `json:"interactions"`
	Remaining    int  `json:"remaining"`
	CanFinish    bool `json:"can_finish"`
	GoalReached  bool `json:"goal_reached"`
}

// View is a read-only snapshot of the game.
type View struct {
	Level     Level         `json:"level"`
	Loading   bool          `json:"loading"`
	Error     string        `json:"error,omitempty"`
	Quiz      QuizView      `json:"quiz"`
	Resume    ResumeView    `json:"resume"`
	Checklist ChecklistView `json:"checklist"`
	Mock      MockView      `json:"mock"`
	Score     Breakdown     `json:"score"`
}

// View returns a snapshot of the game state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Level:   s.level,
		Loading: s.loading,
		Error:   s.errMsg,
		Quiz: QuizView{
			Questions: append([]types.QuizQuestion(nil), s.quiz...),
			Answers:   append([]int(nil), s.answers...),
			Correct:   s.quizCorrect,
			CanSubmit: len(s.answers) > 0,
		},
		Resume: ResumeView{
			Text:       s.resumeText,
			CanAnalyze: strings.TrimSpace(s.resumeText) != "",
		},
		Checklist: ChecklistView{
			Items:   append([]string(nil), s.checklist...),
			Checked: append([]bool(nil), s.checked...),
		},
		Mock: MockView{
			Interactions: s.interactions,
			Remaining:    max(MockGoal-s.interactions, 0),
			CanFinish:    s.interactions >= 1,
			GoalReached:  s.interactions >= MockGoal,
		},
	}
	for _, a := range s.answers {
		if a == Unanswered {
			v.Quiz.CanSubmit = false
			break
		}
	}
	if s.grade != nil {
		g := *s.grade
		v.Resume.Grade = &g
	}

	checked := 0
	for _, c := range s.checked {
		if c {
			checked++
		}
	}
	resumeScore := 0
	if s.grade != nil {
		resumeScore = s.grade.Score
	}
	v.Score = Score(Progress{
		QuizCorrect:      s.quizCorrect,
		QuizTotal:        len(s.quiz),
		ResumeScore:      resumeScore,
		ChecklistChecked: checked,
		ChecklistTotal:   len(s.checklist),
		MockInteractions: s.interactions,
	})
	return v
}
