// Package server provides the HTTP API for placement preparation sessions.
package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/placement-prep/internal/chat"
	"github.com/jonathan/placement-prep/internal/dispatch"
	"github.com/jonathan/placement-prep/internal/game"
	"github.com/jonathan/placement-prep/internal/ingestion"
	"github.com/jonathan/placement-prep/internal/report"
	"github.com/pkg/errors"
)

// ErrSessionNotFound indicates the session expired or never existed.
type ErrSessionNotFound struct {
	SessionID uuid.UUID
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNoChat indicates a chat route was used before the chat was opened.
type ErrNoChat struct{}

func (e *ErrNoChat) Error() string {
	return "no interview has been started for this session"
}

// ErrNoGame indicates a game route was used before the game was opened.
type ErrNoGame struct{}

func (e *ErrNoGame) Error() string {
	return "no game has been started for this session"
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrSessionNotFound:
		return http.StatusNotFound
	case *ErrValidation, *ingestion.UnsupportedFormatError, *report.UnknownFormatError:
		return http.StatusBadRequest
	case *ErrNoChat, *ErrNoGame:
		return http.StatusConflict
	}

	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, dispatch.ErrUnknownKind),
		errors.Is(err, game.ErrOutOfRange),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrNoAudio),
		errors.Is(err, ingestion.ErrEmptyFile),
		errors.Is(err, game.ErrEmptyResume),
		errors.Is(err, game.ErrQuizIncomplete),
		errors.Is(err, game.ErrNoInteraction):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dispatch.ErrNoAnalysis),
		errors.Is(err, chat.ErrEnded),
		errors.Is(err, chat.ErrBusy),
		errors.Is(err, game.ErrBusy),
		errors.Is(err, game.ErrWrongLevel):
		return http.StatusConflict
	case errors.Is(err, game.ErrLoadFailed),
		errors.Is(err, game.ErrAnalysisFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
