package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/placement-prep/internal/agents"
	"github.com/jonathan/placement-prep/internal/config"
	"github.com/jonathan/placement-prep/internal/game"
	"github.com/jonathan/placement-prep/internal/llm"
	"github.com/jonathan/placement-prep/internal/report"
	"github.com/jonathan/placement-prep/internal/server/middleware"
	"github.com/jonathan/placement-prep/internal/server/ratelimit"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config holds server configuration.
type Config struct {
	Port          int
	SessionTTL    time.Duration
	SweepInterval time.Duration
	JWT           *config.JWTConfig
	RateLimit     *ratelimit.Config
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	// LLM backs the interviews and transcription. It may be nil, in which case
	// interviews answer with their connection fallback.
	LLM       llm.Client
	Runner    agents.Runner
	Generator game.Generator
	Logger    *logrus.Logger
}

// Server is the HTTP API.
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	store       *SessionStore
	tokens      *TokenService
	rateLimiter *ratelimit.Limiter
	llm         llm.Client
	generator   game.Generator
	log         *logrus.Entry
	now         func() time.Time

	cancel context.CancelFunc
}

// New wires the routes. Sessions live until Shutdown or their TTL.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Runner == nil {
		return nil, errors.New("server: agent runner is required")
	}
	if cfg.JWT == nil {
		jwtConfig, err := config.NewJWTConfig()
		if err != nil {
			return nil, errors.Wrap(err, "failed to create JWT config")
		}
		cfg.JWT = jwtConfig
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = config.DefaultSessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("component", "server")
	if cfg.JWT.Ephemeral {
		log.Warn("JWT_SECRET not set; session tokens will not survive a restart")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:       NewSessionStore(ctx, deps.Runner, cfg.SessionTTL, cfg.SweepInterval, log),
		tokens:      NewTokenService(cfg.JWT),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		llm:         deps.LLM,
		generator:   deps.Generator,
		log:         log,
		now:         time.Now,
		cancel:      cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("POST /resume/upload", s.handleResumeUpload)

	// Session-scoped routes require a token bound to {id}.
	s.route(mux, "GET /sessions/{id}", s.handleGetSession)
	s.route(mux, "DELETE /sessions/{id}", s.handleDeleteSession)
	s.route(mux, "POST /sessions/{id}/analysis", s.handleStartAnalysis)
	s.route(mux, "GET /sessions/{id}/agents/{kind}", s.handleGetAgent)
	s.route(mux, "POST /sessions/{id}/agents/{kind}/retry", s.handleRetryAgent)
	s.route(mux, "GET /sessions/{id}/readiness", s.handleReadiness)
	s.route(mux, "GET /sessions/{id}/events", s.handleEvents)
	s.route(mux, "GET /sessions/{id}/report.md", s.handleReport(report.FormatMarkdown))
	s.route(mux, "GET /sessions/{id}/report.html", s.handleReport(report.FormatHTML))
	s.route(mux, "GET /sessions/{id}/report.pdf", s.handleReport(report.FormatPDF))

	s.route(mux, "POST /sessions/{id}/chat", s.handleStartChat)
	s.route(mux, "GET /sessions/{id}/chat", s.handleGetChat)
	s.route(mux, "POST /sessions/{id}/chat/messages", s.handleChatMessage)
	s.route(mux, "POST /sessions/{id}/chat/end", s.handleEndChat)
	s.route(mux, "POST /sessions/{id}/chat/transcribe", s.handleTranscribe)
	s.route(mux, "GET /sessions/{id}/chat/ws", s.handleChatSocket)

	s.route(mux, "POST /sessions/{id}/game", s.handleStartGame)
	s.route(mux, "GET /sessions/{id}/game", s.handleGetGame)
	s.route(mux, "POST /sessions/{id}/game/levels/{level}", s.handleEnterLevel)
	s.route(mux, "POST /sessions/{id}/game/exit", s.handleExitLevel)
	s.route(mux, "PUT /sessions/{id}/game/quiz/answers/{q}", s.handleAnswerQuiz)
	s.route(mux, "POST /sessions/{id}/game/quiz/submit", s.handleSubmitQuiz)
	s.route(mux, "PUT /sessions/{id}/game/resume", s.handleSetResume)
	s.route(mux, "POST /sessions/{id}/game/resume/analyze", s.handleAnalyzeResume)
	s.route(mux, "POST /sessions/{id}/game/checklist/{i}/toggle", s.handleToggleChecklist)
	s.route(mux, "POST /sessions/{id}/game/mock/messages", s.handleGameMockMessage)
	s.route(mux, "POST /sessions/{id}/game/mock/finish", s.handleFinishMock)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE and WebSocket streams stay open
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// sessionHandler serves a request for an authorized, live session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *Session)

func (s *Server) route(mux *http.ServeMux, pattern string, h sessionHandler) {
	auth := middleware.SessionAuth(s.tokens.AsTokenValidator())
	mux.Handle(pattern, auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := middleware.GetSessionID(r)
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		sess, err := s.store.Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		h(w, r, sess)
	})))
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sessions exposes the session store.
func (s *Server) Sessions() *SessionStore {
	return s.store
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if err != nil {
			return errors.Wrap(err, "server error")
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return errors.Wrap(err, "server shutdown failed")
	}
	s.log.Info("server stopped")
	return nil
}

// Close releases sessions and background goroutines.
func (s *Server) Close() {
	s.store.Close()
	s.rateLimiter.Stop()
	s.cancel()
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their endpoint budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request with its status and duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start).String(),
		}).Info("request completed")
	})
}

// statusRecorder captures the response status. It forwards Flush and
// exposes the underlying writer for streaming handlers and WebSocket hijack.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to its status and writes it. Server errors are logged
// and their detail withheld.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.log.WithError(err).Error("request failed")
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON reads a JSON body of at most 1 MiB into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// extractClientID identifies the client by remote IP.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.log.WithFields(logrus.Fields{
		"limit":    info.Limit,
		"reset_at": info.ResetTime.Format(time.RFC3339),
	}).Warn("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
