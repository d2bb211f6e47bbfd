package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/placement-prep/internal/readiness"
	"github.com/jonathan/placement-prep/internal/report"
	"github.com/jonathan/placement-prep/internal/types"
)

// sseKeepAlive is the interval between comment lines on an idle event stream.
var sseKeepAlive = 15 * time.Second

// SessionResponse describes a session's analysis state.
type SessionResponse struct {
	SessionID    string              `json:"session_id"`
	Token        string              `json:"token,omitempty"`
	Input        *types.UserInput    `json:"input,omitempty"`
	Results      []types.AgentResult `json:"results"`
	Loading      bool                `json:"loading"`
	Readiness    readiness.Report    `json:"readiness"`
	Interactions int                 `json:"interactions"`
}

func (s *Server) sessionResponse(sess *Session) SessionResponse {
	snap := sess.Table().Snapshot()
	resp := SessionResponse{
		SessionID:    sess.ID.String(),
		Results:      snap.Results(),
		Loading:      snap.Loading(),
		Readiness:    sess.Readiness(),
		Interactions: sess.Interactions(),
	}
	if input, ok := sess.Coordinator.Input(); ok {
		resp.Input = &input
	}
	return resp
}

func validateInput(input types.UserInput) error {
	input = input.Normalize()
	if input.CompanyName == "" {
		return &ErrValidation{Field: "company_name", Message: "is required"}
	}
	if input.JobRole == "" {
		return &ErrValidation{Field: "job_role", Message: "is required"}
	}
	return nil
}

// handleCreateSession creates a session, starts its first analysis and issues
// the token that authorizes every later call.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var input types.UserInput
	if !s.decodeJSON(w, r, &input) {
		return
	}
	if err := validateInput(input); err != nil {
		s.writeError(w, err)
		return
	}

	sess := s.store.Create()
	token, err := s.tokens.GenerateToken(sess.ID)
	if err != nil {
		s.store.Delete(sess.ID)
		s.writeError(w, err)
		return
	}
	sess.StartAnalysis(input)

	s.log.WithField("session_id", sess.ID).Info("session created")
	resp := s.sessionResponse(sess)
	resp.Token = token
	s.jsonResponse(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request, sess *Session) {
	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, _ *http.Request, sess *Session) {
	s.store.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleStartAnalysis replaces the session's analysis with a new one.
func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request, sess *Session) {
	var input types.UserInput
	if !s.decodeJSON(w, r, &input) {
		return
	}
	if err := validateInput(input); err != nil {
		s.writeError(w, err)
		return
	}
	sess.StartAnalysis(input)
	s.jsonResponse(w, http.StatusAccepted, s.sessionResponse(sess))
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request, sess *Session) {
	kind, err := types.ParseAgentKind(r.PathValue("kind"))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Table().Snapshot().Get(kind))
}

func (s *Server) handleRetryAgent(w http.ResponseWriter, r *http.Request, sess *Session) {
	kind := types.AgentKind(r.PathValue("kind"))
	if err := sess.Coordinator.Retry(kind); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, sess.Table().Snapshot().Get(kind))
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request, sess *Session) {
	s.jsonResponse(w, http.StatusOK, sess.Readiness())
}

// handleEvents streams the table: a snapshot event first, then one agent
// event per entry change followed by the readiness it implies.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess *Session) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	updates, cancel := sess.Table().Subscribe(types.NumAgentKinds * 4)
	defer cancel()

	w.WriteHeader(http.StatusOK)
	if err := sse.WriteEvent("snapshot", s.sessionResponse(sess)); err != nil {
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case result, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.WriteEvent("agent", result); err != nil {
				return
			}
			if err := sse.WriteEvent("readiness", sess.Readiness()); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := sse.WriteComment("keepalive"); err != nil {
				return
			}
		}
	}
}

// handleReport serves the completed sections in format as an attachment.
func (s *Server) handleReport(format string) sessionHandler {
	return func(w http.ResponseWriter, _ *http.Request, sess *Session) {
		input, ok := sess.Coordinator.Input()
		if !ok {
			s.errorResponse(w, http.StatusConflict, "no analysis has been started")
			return
		}
		now := s.now()
		doc := report.NewDocument(input, sess.Table().Snapshot(), now)
		if doc.Empty() {
			s.errorResponse(w, http.StatusConflict, "no completed results to export yet")
			return
		}

		body, err := report.Render(doc, format)
		if err != nil {
			s.writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", report.ContentType(format))
		w.Header().Set("Content-Disposition",
			`attachment; filename="`+report.Filename(input.CompanyName, now, format)+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
