package server

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-prep/internal/chat"
	"github.com/jonathan/placement-prep/internal/llm"
	"github.com/jonathan/placement-prep/internal/llm/llmtest"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_SweepDropsIdleSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st := NewSessionStore(context.Background(), funcRunner(contentRunner), time.Hour, 0, nil)
	st.now = func() time.Time { return now }
	defer st.Close()

	idle := st.Create()
	active := st.Create()

	now = now.Add(45 * time.Minute)
	_, err := st.Get(active.ID)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, st.sweep())
	assert.Equal(t, 1, st.Len())

	_, err = st.Get(idle.ID)
	var notFound *ErrSessionNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, idle.ID, notFound.SessionID)
}

func TestSessionStore_Delete(t *testing.T) {
	st := NewSessionStore(context.Background(), funcRunner(contentRunner), time.Hour, 0, nil)
	defer st.Close()

	sess := st.Create()
	require.True(t, sess.StartAnalysis(acme))
	sess.Coordinator.Wait()

	assert.True(t, st.Delete(sess.ID))
	assert.False(t, st.Delete(sess.ID))
	assert.False(t, st.Delete(uuid.New()))
}

func TestSession_StartAnalysisRejectsBlankInput(t *testing.T) {
	st := NewSessionStore(context.Background(), funcRunner(contentRunner), 0, 0, nil)
	defer st.Close()

	sess := st.Create()
	assert.False(t, sess.StartAnalysis(types.UserInput{CompanyName: "Acme"}))
	_, started := sess.Coordinator.Input()
	assert.False(t, started)
}

func TestSession_PreviousQuestionsAndReadiness(t *testing.T) {
	st := NewSessionStore(context.Background(), funcRunner(contentRunner), 0, 0, nil)
	defer st.Close()

	sess := st.Create()
	require.True(t, sess.StartAnalysis(acme))
	sess.Coordinator.Wait()

	assert.Equal(t, "Previous Questions for Acme Corp", sess.PreviousQuestions())
	assert.Equal(t, 70, sess.Readiness().Score)

	c := openMockInterview(sess, &llmtest.MockChat{})
	for _, text := range []string{"I led the billing migration", "We cut p99 by 40%"} {
		_, err := c.Send(context.Background(), text)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, sess.Interactions())
	assert.Equal(t, 90, sess.Readiness().Score)
}

// openMockInterview installs an interview backed by conv without sending the
// opening message.
func openMockInterview(sess *Session, conv llm.Chat) *chat.Session {
	client := &llmtest.MockLLMClient{
		StartChatFunc: func(string, llm.ModelTier) llm.Chat { return conv },
	}
	return sess.OpenInterview(func(onInteraction func()) *chat.Session {
		return chat.New(client, acme, sess.PreviousQuestions(), chat.Options{OnInteraction: onInteraction})
	})
}

// heldChat blocks every reply until release is closed.
func heldChat() (conv *llmtest.MockChat, started, release chan struct{}) {
	started = make(chan struct{}, 1)
	release = make(chan struct{})
	conv = &llmtest.MockChat{
		SendFunc: func(ctx context.Context, text string) (string, error) {
			started <- struct{}{}
			<-release
			return "Tell me more about that.", nil
		},
	}
	return conv, started, release
}

func TestSession_TurnInFlightAcrossNewAnalysisIsDropped(t *testing.T) {
	st := NewSessionStore(context.Background(), funcRunner(contentRunner), 0, 0, nil)
	defer st.Close()

	sess := st.Create()
	require.True(t, sess.StartAnalysis(acme))
	sess.Coordinator.Wait()

	conv, started, release := heldChat()
	c := openMockInterview(sess, conv)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "I scaled the ledger service")
		done <- err
	}()
	<-started

	require.True(t, sess.StartAnalysis(acme))
	sess.Coordinator.Wait()
	close(release)
	require.NoError(t, <-done)

	assert.Nil(t, sess.Interview())
	assert.Equal(t, 0, sess.Interactions())
	assert.Equal(t, 70, sess.Readiness().Score)
}

func TestSession_ReplacedInterviewTurnIsDropped(t *testing.T) {
	st := NewSessionStore(context.Background(), funcRunner(contentRunner), 0, 0, nil)
	defer st.Close()

	sess := st.Create()
	require.True(t, sess.StartAnalysis(acme))
	sess.Coordinator.Wait()

	conv, started, release := heldChat()
	old := openMockInterview(sess, conv)

	done := make(chan error, 1)
	go func() {
		_, err := old.Send(context.Background(), "My biggest project was")
		done <- err
	}()
	<-started

	fresh := openMockInterview(sess, &llmtest.MockChat{})
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, sess.Interactions())

	_, err := fresh.Send(context.Background(), "Starting over")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Interactions())
	assert.Same(t, fresh, sess.Interview())
}
