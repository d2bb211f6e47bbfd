package server

import (
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jonathan/placement-prep/internal/chat"
	"github.com/jonathan/placement-prep/internal/dispatch"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/pkg/errors"
)

// maxAudioBytes caps a recorded answer sent for transcription.
const maxAudioBytes = 10 << 20

// ChatResponse is the interview transcript.
type ChatResponse struct {
	Messages     []types.ChatMessage `json:"messages"`
	Ended        bool                `json:"ended"`
	Busy         bool                `json:"busy"`
	Interactions int                 `json:"interactions"`
}

// MessageRequest carries one user turn.
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse carries the interviewer's reply.
type MessageResponse struct {
	Message      types.ChatMessage `json:"message"`
	Interactions int               `json:"interactions"`
}

func chatResponse(c *chat.Session) ChatResponse {
	return ChatResponse{
		Messages:     c.History(),
		Ended:        c.Ended(),
		Busy:         c.Busy(),
		Interactions: c.Interactions(),
	}
}

// newInterview opens an interviewer for input. onInteraction receives every
// completed turn.
func (s *Server) newInterview(sess *Session, input types.UserInput, onInteraction func()) *chat.Session {
	return chat.New(s.llm, input, sess.PreviousQuestions(), chat.Options{
		OnInteraction: onInteraction,
		Transcriber:   s.llm,
		Logger:        s.log.WithField("session_id", sess.ID),
	})
}

// handleStartChat opens a fresh interview, replacing any previous one, and
// returns the transcript with the interviewer's greeting.
func (s *Server) handleStartChat(w http.ResponseWriter, r *http.Request, sess *Session) {
	input, ok := sess.Coordinator.Input()
	if !ok {
		s.writeError(w, dispatch.ErrNoAnalysis)
		return
	}
	c := sess.OpenInterview(func(onInteraction func()) *chat.Session {
		return s.newInterview(sess, input, onInteraction)
	})
	c.Start(r.Context())
	s.jsonResponse(w, http.StatusCreated, chatResponse(c))
}

func (s *Server) interview(w http.ResponseWriter, sess *Session) (*chat.Session, bool) {
	c := sess.Interview()
	if c == nil {
		s.writeError(w, &ErrNoChat{})
		return nil, false
	}
	return c, true
}

func (s *Server) handleGetChat(w http.ResponseWriter, _ *http.Request, sess *Session) {
	c, ok := s.interview(w, sess)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, chatResponse(c))
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request, sess *Session) {
	c, ok := s.interview(w, sess)
	if !ok {
		return
	}
	var req MessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	msg, err := c.Send(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, MessageResponse{Message: msg, Interactions: sess.Interactions()})
}

func (s *Server) handleEndChat(w http.ResponseWriter, _ *http.Request, sess *Session) {
	c, ok := s.interview(w, sess)
	if !ok {
		return
	}
	c.End()
	s.jsonResponse(w, http.StatusOK, chatResponse(c))
}

// handleTranscribe converts a raw audio body to text. The client decides
// whether to send the text as a turn.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request, sess *Session) {
	c, ok := s.interview(w, sess)
	if !ok {
		return
	}
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBytes))
	if err != nil {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "audio exceeds the upload limit")
		return
	}
	mimeType := r.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	text, err := c.Transcribe(r.Context(), audio, mimeType)
	if err != nil {
		if errors.Is(err, chat.ErrNoAudio) {
			s.writeError(w, err)
			return
		}
		s.log.WithError(err).Warn("transcription failed")
		s.errorResponse(w, http.StatusBadGateway, "Could not transcribe audio. Please try again.")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"text": text})
}

// wsFrame is one WebSocket chat frame. Clients send {"type":"message"}; the
// server answers with "history" on connect, then "reply" or "error".
type wsFrame struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	Message  *types.ChatMessage  `json:"message,omitempty"`
	Messages []types.ChatMessage `json:"messages,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// handleChatSocket drives the open interview over a WebSocket.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request, sess *Session) {
	c, ok := s.interview(w, sess)
	if !ok {
		return
	}
	log := s.log.WithField("session_id", sess.ID)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.WithError(err).Warn("failed to accept websocket")
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "interview closed"); closeErr != nil {
			log.WithError(closeErr).Debug("failed to close websocket")
		}
	}()

	ctx := r.Context()
	if err := wsjson.Write(ctx, ws, wsFrame{Type: "history", Messages: c.History()}); err != nil {
		return
	}

	for {
		var in wsFrame
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				log.WithError(err).Debug("websocket read failed")
			}
			return
		}

		out := wsFrame{Type: "reply"}
		switch in.Type {
		case "message":
			msg, err := c.Send(ctx, in.Text)
			if err != nil {
				out = wsFrame{Type: "error", Error: err.Error()}
			} else {
				out.Message = &msg
			}
		default:
			out = wsFrame{Type: "error", Error: "unknown frame type: " + in.Type}
		}

		if err := wsjson.Write(ctx, ws, out); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return
		}
	}
}
