package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/placement-prep/internal/llm"
	"github.com/jonathan/placement-prep/internal/llm/llmtest"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var acme = types.UserInput{CompanyName: "Acme", JobRole: "Engineer"}

func factoryFor(conv *llmtest.MockChat, gotInstruction *string) *llmtest.MockLLMClient {
	return &llmtest.MockLLMClient{
		StartChatFunc: func(instruction string, _ llm.ModelTier) llm.Chat {
			if gotInstruction != nil {
				*gotInstruction = instruction
			}
			return conv
		},
	}
}

func TestSystemInstruction(t *testing.T) {
	withCtx := SystemInstruction(acme, "1. Two-sum")
	assert.Contains(t, withCtx, `Target Company: "Acme"`)
	assert.Contains(t, withCtx, "1. Two-sum")

	without := SystemInstruction(acme, "   ")
	assert.Contains(t, without, "No specific previous questions found.")
}

func TestStart(t *testing.T) {
	conv := &llmtest.MockChat{SendFunc: func(context.Context, string) (string, error) {
		return "Welcome to Acme. Tell me about yourself.", nil
	}}
	var instruction string
	s := New(factoryFor(conv, &instruction), acme, "", Options{})

	msg := s.Start(context.Background())
	again := s.Start(context.Background())

	assert.Equal(t, types.ChatMessage{Role: types.RoleModel, Text: "Welcome to Acme. Tell me about yourself."}, msg)
	assert.Equal(t, msg, again)
	assert.Equal(t, []string{"Start the interview."}, conv.Sent())
	assert.Len(t, s.History(), 1)
	assert.Contains(t, instruction, "Mock Interviewer")
	assert.Zero(t, s.Interactions(), "the greeting is not a user turn")
}

func TestStart_Fallbacks(t *testing.T) {
	empty := &llmtest.MockChat{SendFunc: func(context.Context, string) (string, error) { return "  ", nil }}
	msg := New(factoryFor(empty, nil), acme, "", Options{}).Start(context.Background())
	assert.Equal(t, "Hello, I am ready to interview you.", msg.Text)

	failing := &llmtest.MockChat{SendFunc: func(context.Context, string) (string, error) { return "", errors.New("dial tcp") }}
	msg = New(factoryFor(failing, nil), acme, "", Options{}).Start(context.Background())
	assert.Equal(t, "I'm having trouble connecting. Please check your API key or internet.", msg.Text)

	msg = New(nil, acme, "", Options{}).Start(context.Background())
	assert.Equal(t, "I'm having trouble connecting. Please check your API key or internet.", msg.Text)
}

func TestSend_CountsCompletedTurns(t *testing.T) {
	var calls int32
	s := New(factoryFor(&llmtest.MockChat{}, nil), acme, "", Options{
		OnInteraction: func() { atomic.AddInt32(&calls, 1) },
	})
	s.Start(context.Background())

	reply, err := s.Send(context.Background(), "  I led a migration  ")
	require.NoError(t, err)
	assert.Equal(t, "echo: I led a migration", reply.Text)

	_, err = s.Send(context.Background(), "second answer")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, s.Interactions())

	h := s.History()
	require.Len(t, h, 5)
	assert.Equal(t, types.RoleModel, h[0].Role)
	assert.Equal(t, types.ChatMessage{Role: types.RoleUser, Text: "I led a migration"}, h[1])
	assert.Equal(t, types.RoleModel, h[2].Role)
}

func TestSend_FailureIsFallbackReplyWithoutInteraction(t *testing.T) {
	var calls int32
	conv := &llmtest.MockChat{SendFunc: func(_ context.Context, text string) (string, error) {
		if text == "Start the interview." {
			return "Hi", nil
		}
		return "", errors.New("500 internal")
	}}
	s := New(factoryFor(conv, nil), acme, "", Options{OnInteraction: func() { atomic.AddInt32(&calls, 1) }})
	s.Start(context.Background())

	reply, err := s.Send(context.Background(), "answer")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, something went wrong. Please try again.", reply.Text)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.False(t, s.Busy())
}

func TestSend_EmptyReply(t *testing.T) {
	conv := &llmtest.MockChat{SendFunc: func(context.Context, string) (string, error) { return "", nil }}
	s := New(factoryFor(conv, nil), acme, "", Options{})

	reply, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "I didn't catch that.", reply.Text)
	assert.Equal(t, 1, s.Interactions())
}

func TestSend_Refusals(t *testing.T) {
	s := New(factoryFor(&llmtest.MockChat{}, nil), acme, "", Options{})

	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	s.End()
	s.End()
	assert.True(t, s.Ended())
	_, err = s.Send(context.Background(), "still here?")
	assert.ErrorIs(t, err, ErrEnded)
	assert.Empty(t, s.History(), "refused turns leave no trace")
}

func TestSend_OneOutstandingTurn(t *testing.T) {
	release := make(chan struct{})
	conv := &llmtest.MockChat{SendFunc: func(context.Context, string) (string, error) {
		<-release
		return "ok", nil
	}}
	s := New(factoryFor(conv, nil), acme, "", Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Send(context.Background(), "first")
	}()
	require.Eventually(t, s.Busy, time.Second, time.Millisecond)

	_, err := s.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	<-done
	assert.Equal(t, 1, s.Interactions())
	assert.Len(t, s.History(), 2)
}

func TestHistory_IsCopy(t *testing.T) {
	s := New(factoryFor(&llmtest.MockChat{}, nil), acme, "", Options{})
	_, _ = s.Send(context.Background(), "hi")

	h := s.History()
	h[0].Text = "rewritten"
	assert.Equal(t, "hi", s.History()[0].Text)
}

func TestTranscribe(t *testing.T) {
	client := &llmtest.MockLLMClient{
		TranscribeFunc: func(_ context.Context, audio []byte, mime string) (string, error) {
			assert.Equal(t, "audio/webm", mime)
			return "  I am a builder.  ", nil
		},
	}
	s := New(client, acme, "", Options{Transcriber: client})

	text, err := s.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "I am a builder.", text)

	_, err = s.Transcribe(context.Background(), nil, "audio/webm")
	assert.ErrorIs(t, err, ErrNoAudio)

	_, err = New(client, acme, "", Options{}).Transcribe(context.Background(), []byte{1}, "audio/webm")
	assert.Error(t, err)
}
