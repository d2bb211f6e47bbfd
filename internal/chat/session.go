// Package chat implements the mock-interview conversation: an append-only
// transcript over a model chat, one outstanding turn at a time, and a
// permanent end state.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/placement-prep/internal/llm"
	"github.com/jonathan/placement-prep/internal/prompts"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEnded is returned once the interview has been ended.
	ErrEnded = errors.New("interview has ended")
	// ErrBusy is returned while a previous turn is still awaiting its reply.
	ErrBusy = errors.New("a reply is still pending")
	// ErrEmptyMessage is returned for blank user messages.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoAudio is returned when transcription is requested without audio.
	ErrNoAudio = errors.New("no audio provided")
)

// Factory opens model conversations. llm.Client satisfies it.
type Factory interface {
	StartChat(systemInstruction string, tier llm.ModelTier) llm.Chat
}

// Transcriber converts speech to text. llm.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Options configure a Session.
type Options struct {
	// OnInteraction runs once per completed turn. It is called without the
	// session lock held.
	OnInteraction func()
	Transcriber   Transcriber
	Logger        *logrus.Entry
}

// Session is one mock interview.
type Session struct {
	conv          llm.Chat
	onInteraction func()
	transcriber   Transcriber
	log           *logrus.Entry

	mu       sync.Mutex
	history  []types.ChatMessage
	started  bool
	ended    bool
	busy     bool
	turns    int
	starting chan struct{}
}

// SystemInstruction builds the interviewer persona for input, grounded in the
// previous-questions research when there is any.
func SystemInstruction(input types.UserInput, previousQuestions string) string {
	ctxText := strings.TrimSpace(previousQuestions)
	if ctxText == "" {
		ctxText = prompts.MustGet(prompts.ChatFile, "fallback-previous-questions")
	}
	return prompts.Format(prompts.MustGet(prompts.ChatFile, "mock-interviewer"), map[string]string{
		"CompanyName":       input.CompanyName,
		"JobRole":           input.JobRole,
		"PreviousQuestions": ctxText,
	})
}

// New opens a conversation for input. A nil factory yields a session whose
// turns all produce the connection fallback.
func New(factory Factory, input types.UserInput, previousQuestions string, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Session{
		onInteraction: opts.OnInteraction,
		transcriber:   opts.Transcriber,
		log:           log.WithField("component", "chat"),
	}
	if factory != nil {
		s.conv = factory.StartChat(SystemInstruction(input, previousQuestions), llm.TierAdvanced)
	}
	return s
}

// Start sends the opening message and records the interviewer's greeting.
// Later calls return the existing greeting.
func (s *Session) Start(ctx context.Context) types.ChatMessage {
	s.mu.Lock()
	if s.started {
		wait := s.starting
		s.mu.Unlock()
		if wait != nil {
			<-wait
		}
		return s.firstModelMessage()
	}
	s.started = true
	s.busy = true
	s.starting = make(chan struct{})
	s.mu.Unlock()

	reply, err := s.send(ctx, prompts.MustGet(prompts.ChatFile, "opening-message"))
	text := reply
	switch {
	case err != nil:
		s.log.WithError(err).Warn("failed to start interview")
		text = prompts.MustGet(prompts.ChatFile, "fallback-connection")
	case strings.TrimSpace(reply) == "":
		text = prompts.MustGet(prompts.ChatFile, "fallback-greeting")
	}

	msg := types.ChatMessage{Role: types.RoleModel, Text: text}
	s.mu.Lock()
	s.history = append(s.history, msg)
	s.busy = false
	close(s.starting)
	s.starting = nil
	s.mu.Unlock()
	return msg
}

func (s *Session) firstModelMessage() types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.history {
		if m.Role == types.RoleModel {
			return m
		}
	}
	return types.ChatMessage{Role: types.RoleModel}
}

// Send records a user turn and the interviewer's reply. Model failures become a
// fallback reply rather than an error; errors are reserved for refusals.
func (s *Session) Send(ctx context.Context, text string) (types.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	switch {
	case s.ended:
		s.mu.Unlock()
		return types.ChatMessage{}, ErrEnded
	case s.busy:
		s.mu.Unlock()
		return types.ChatMessage{}, ErrBusy
	}
	s.busy = true
	s.history = append(s.history, types.ChatMessage{Role: types.RoleUser, Text: text})
	s.mu.Unlock()

	reply, err := s.send(ctx, text)
	completed := err == nil
	switch {
	case err != nil:
		s.log.WithError(err).Warn("interviewer reply failed")
		reply = prompts.MustGet(prompts.ChatFile, "fallback-error")
	case strings.TrimSpace(reply) == "":
		reply = prompts.MustGet(prompts.ChatFile, "fallback-empty-reply")
	}

	msg := types.ChatMessage{Role: types.RoleModel, Text: reply}
	s.mu.Lock()
	s.history = append(s.history, msg)
	s.busy = false
	if completed {
		s.turns++
	}
	s.mu.Unlock()

	if completed && s.onInteraction != nil {
		s.onInteraction()
	}
	return msg, nil
}

func (s *Session) send(ctx context.Context, text string) (string, error) {
	if s.conv == nil {
		return "", errors.New("no model client configured")
	}
	return s.conv.Send(ctx, text)
}

// End permanently disables sending.
func (s *Session) End() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

// Ended reports whether End was called.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Busy reports whether a turn is awaiting its reply.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Interactions returns the number of completed turns.
func (s *Session) Interactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// History returns a copy of the transcript.
func (s *Session) History() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Transcribe converts a recorded answer to text so it can be sent as a turn.
func (s *Session) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}
	if s.transcriber == nil {
		return "", errors.New("transcription is not configured")
	}
	text, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", errors.Wrap(err, "transcription failed")
	}
	return strings.TrimSpace(text), nil
}
