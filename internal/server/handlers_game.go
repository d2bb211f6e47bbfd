package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/placement-prep/internal/chat"
	"github.com/jonathan/placement-prep/internal/dispatch"
	"github.com/jonathan/placement-prep/internal/game"
	"github.com/pkg/errors"
)

// GameResponse is the game view, plus the mock-level transcript once the
// interview level has been opened.
type GameResponse struct {
	game.View
	Interview *ChatResponse `json:"interview,omitempty"`
}

func gameResponse(g *game.Session) GameResponse {
	resp := GameResponse{View: g.View()}
	if c := g.Interview(); c != nil {
		cr := chatResponse(c)
		resp.Interview = &cr
	}
	return resp
}

// handleStartGame opens a new game at the menu, discarding any earlier one.
func (s *Server) handleStartGame(w http.ResponseWriter, _ *http.Request, sess *Session) {
	if s.generator == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "game content generation is not configured")
		return
	}
	input, ok := sess.Coordinator.Input()
	if !ok {
		s.writeError(w, dispatch.ErrNoAnalysis)
		return
	}

	newChat := func(onInteraction func()) *chat.Session {
		return s.newInterview(sess, input, onInteraction)
	}
	g := game.New(input, sess.PreviousQuestions(), s.generator, newChat, s.log.WithField("session_id", sess.ID))
	sess.SetGame(g)
	s.jsonResponse(w, http.StatusCreated, gameResponse(g))
}

func (s *Server) game(w http.ResponseWriter, sess *Session) (*game.Session, bool) {
	g := sess.Game()
	if g == nil {
		s.writeError(w, &ErrNoGame{})
		return nil, false
	}
	return g, true
}

// gameResult writes err, or the game view on success.
func (s *Server) gameResult(w http.ResponseWriter, g *game.Session, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, gameResponse(g))
}

func pathIndex(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, &ErrValidation{Field: name, Message: "must be an integer"}
	}
	return n, nil
}

func (s *Server) handleGetGame(w http.ResponseWriter, _ *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, gameResponse(g))
}

// handleEnterLevel moves to a level, generating its content on first entry.
// Entering the mock level greets the candidate.
func (s *Server) handleEnterLevel(w http.ResponseWriter, r *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	level, err := game.ParseLevel(r.PathValue("level"))
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "level", Message: err.Error()})
		return
	}
	if err := g.Enter(r.Context(), level); err != nil {
		s.writeError(w, err)
		return
	}
	if level == game.LevelMock {
		if c := g.Interview(); c != nil {
			c.Start(r.Context())
		}
	}
	s.jsonResponse(w, http.StatusOK, gameResponse(g))
}

func (s *Server) handleExitLevel(w http.ResponseWriter, _ *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	g.Exit()
	s.jsonResponse(w, http.StatusOK, gameResponse(g))
}

// AnswerRequest selects an option for a quiz question.
type AnswerRequest struct {
	Option int `json:"option"`
}

func (s *Server) handleAnswerQuiz(w http.ResponseWriter, r *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	q, err := pathIndex(r, "q")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req AnswerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.gameResult(w, g, g.AnswerQuiz(q, req.Option))
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, _ *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	_, err := g.SubmitQuiz()
	s.gameResult(w, g, err)
}

// ResumeRequest replaces the working resume text.
type ResumeRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSetResume(w http.ResponseWriter, r *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	var req ResumeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.gameResult(w, g, g.SetResume(req.Text))
}

func (s *Server) handleAnalyzeResume(w http.ResponseWriter, r *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	_, err := g.AnalyzeResume(r.Context())
	s.gameResult(w, g, err)
}

func (s *Server) handleToggleChecklist(w http.ResponseWriter, r *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	i, err := pathIndex(r, "i")
	if err != nil {
		s.writeError(w, err)
		return
	}
	_, err = g.ToggleChecklist(i)
	s.gameResult(w, g, err)
}

// handleGameMockMessage sends a turn to the mock-level interviewer. Its
// interactions count toward the game score only.
func (s *Server) handleGameMockMessage(w http.ResponseWriter, r *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	c := g.Interview()
	if c == nil || g.View().Level != game.LevelMock {
		s.writeError(w, errors.Wrap(game.ErrWrongLevel, "mock interview level is not open"))
		return
	}
	var req MessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if _, err := c.Send(r.Context(), req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, gameResponse(g))
}

func (s *Server) handleFinishMock(w http.ResponseWriter, _ *http.Request, sess *Session) {
	g, ok := s.game(w, sess)
	if !ok {
		return
	}
	s.gameResult(w, g, g.FinishMock())
}
