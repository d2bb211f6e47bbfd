package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-prep/internal/agents"
	"github.com/jonathan/placement-prep/internal/chat"
	"github.com/jonathan/placement-prep/internal/dispatch"
	"github.com/jonathan/placement-prep/internal/game"
	"github.com/jonathan/placement-prep/internal/readiness"
	"github.com/jonathan/placement-prep/internal/results"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/sirupsen/logrus"
)

// Session is one user's analysis together with its interview and game. The
// mock-interview interaction count feeds the readiness score and is reset by
// every new analysis.
type Session struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Coordinator *dispatch.Coordinator

	mu           sync.Mutex
	interactions int
	interview    *chat.Session
	game         *game.Session
	lastAccess   time.Time
}

// Table returns the session's result table.
func (s *Session) Table() *results.Table {
	return s.Coordinator.Table()
}

// Interactions returns the completed mock-interview turns of this analysis.
func (s *Session) Interactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interactions
}

// recordInteraction counts a turn of c. Turns of an interview that has since
// been replaced or discarded by a new analysis are dropped.
func (s *Session) recordInteraction(c *chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil || s.interview != c {
		return
	}
	s.interactions++
}

// Readiness scores the current table and interaction count.
func (s *Session) Readiness() readiness.Report {
	return readiness.Evaluate(s.Table().Snapshot(), s.Interactions())
}

// StartAnalysis launches a new analysis. The interview, the game and the
// interaction count all belong to the previous analysis and are discarded.
func (s *Session) StartAnalysis(input types.UserInput) bool {
	if !s.Coordinator.StartAnalysis(input) {
		return false
	}
	s.mu.Lock()
	s.interactions = 0
	if s.interview != nil {
		s.interview.End()
	}
	s.interview = nil
	s.game = nil
	s.mu.Unlock()
	return true
}

// Interview returns the open interview, or nil.
func (s *Session) Interview() *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interview
}

// OpenInterview builds an interview with open and installs it, ending the
// previous one. The callback handed to open counts turns toward readiness only
// while the interview it belongs to is still the session's interview.
func (s *Session) OpenInterview(open func(onInteraction func()) *chat.Session) *chat.Session {
	var c *chat.Session
	c = open(func() { s.recordInteraction(c) })
	s.SetInterview(c)
	return c
}

// SetInterview replaces the interview, ending the previous one.
func (s *Session) SetInterview(c *chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interview != nil {
		s.interview.End()
	}
	s.interview = c
}

// Game returns the open game, or nil.
func (s *Session) Game() *game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

// SetGame replaces the game.
func (s *Session) SetGame(g *game.Session) {
	s.mu.Lock()
	s.game = g
	s.mu.Unlock()
}

// PreviousQuestions returns the previous-questions research, which grounds
// the interviewer and the revision checklist.
func (s *Session) PreviousQuestions() string {
	return s.Table().Snapshot().Get(types.AgentPreviousQuestions).Content
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess.Before(cutoff)
}

func (s *Session) close() {
	s.mu.Lock()
	if s.interview != nil {
		s.interview.End()
	}
	s.mu.Unlock()
	s.Coordinator.Close()
}

// SessionStore keeps sessions in memory and drops those idle for longer than
// the TTL.
type SessionStore struct {
	ctx    context.Context
	runner agents.Runner
	ttl    time.Duration
	log    *logrus.Entry
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	sweepTicker *time.Ticker
	sweepStop   chan struct{}
	stopOnce    sync.Once
}

// NewSessionStore creates a store whose coordinators run under ctx. A
// positive sweep interval starts the expiry goroutine.
func NewSessionStore(ctx context.Context, runner agents.Runner, ttl, sweepInterval time.Duration, log *logrus.Entry) *SessionStore {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	st := &SessionStore{
		ctx:      ctx,
		runner:   runner,
		ttl:      ttl,
		log:      log.WithField("component", "sessions"),
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
	if ttl > 0 && sweepInterval > 0 {
		st.sweepTicker = time.NewTicker(sweepInterval)
		st.sweepStop = make(chan struct{})
		go st.sweepLoop()
	}
	return st
}

// Create registers a new session with an empty table.
func (st *SessionStore) Create() *Session {
	id := uuid.New()
	now := st.now()
	sess := &Session{
		ID:          id,
		CreatedAt:   now,
		Coordinator: dispatch.New(st.ctx, results.NewTable(), st.runner, st.log.WithField("session_id", id)),
		lastAccess:  now,
	}

	st.mu.Lock()
	st.sessions[id] = sess
	st.mu.Unlock()

	st.log.WithField("session_id", id).Debug("session created")
	return sess
}

// Get returns the session and refreshes its expiry.
func (st *SessionStore) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, &ErrSessionNotFound{SessionID: id}
	}
	sess.touch(st.now())
	return sess, nil
}

// Delete removes and closes a session.
func (st *SessionStore) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		sess.close()
	}
	return ok
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *SessionStore) sweepLoop() {
	for {
		select {
		case <-st.sweepTicker.C:
			st.sweep()
		case <-st.sweepStop:
			return
		}
	}
}

// sweep drops sessions idle for longer than the TTL.
func (st *SessionStore) sweep() int {
	cutoff := st.now().Add(-st.ttl)

	var expired []*Session
	st.mu.Lock()
	for id, sess := range st.sessions {
		if sess.idleSince(cutoff) {
			expired = append(expired, sess)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	if len(expired) > 0 {
		st.log.WithField("count", len(expired)).Info("expired idle sessions")
	}
	return len(expired)
}

// Close stops the sweeper and closes every session.
func (st *SessionStore) Close() {
	st.stopOnce.Do(func() {
		if st.sweepTicker != nil {
			st.sweepTicker.Stop()
			close(st.sweepStop)
		}
	})

	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[uuid.UUID]*Session)
	st.mu.Unlock()

	for _, sess := range all {
		sess.close()
	}
}
