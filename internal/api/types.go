package api

import (
	"github.com/cardkeeper/fivecrowns/internal/game"
	"github.com/cardkeeper/fivecrowns/internal/stats"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation = "validation_error"

	// Lifecycle errors
	ErrTypeState = "state_error"

	// Persistence errors (soft: responses carry them as warnings when the
	// operation itself succeeded)
	ErrTypeStorage = "storage_error"

	// System errors
	ErrTypeNotFound = "not_found"
	ErrTypeInternal = "internal_error"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryState      ErrorCategory = "state"
	CategoryStorage    ErrorCategory = "storage"
	CategorySystem     ErrorCategory = "system"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation:
		return CategoryValidation
	case ErrTypeState:
		return CategoryState
	case ErrTypeStorage:
		return CategoryStorage
	default:
		return CategorySystem
	}
}

// GameView is the presentation contract for one game session.
type GameView struct {
	ID       string         `json:"id"`
	Players  []string       `json:"players"`
	Totals   []float64      `json:"totals"`
	Scores   [][]*float64   `json:"scores"`
	Round    game.RoundInfo `json:"round"`
	Complete bool           `json:"complete"`
	Winner   *game.Winner   `json:"winner"`
}

// CreateGameRequest optionally starts the game immediately.
type CreateGameRequest struct {
	Players []string `json:"players,omitempty"`
}

// GameResponse wraps a game view, with a soft storage warning when the
// snapshot write failed.
type GameResponse struct {
	Game           GameView `json:"game"`
	StorageWarning string   `json:"storage_warning,omitempty"`
}

// AddPlayerRequest adds one player to a setup-phase roster.
type AddPlayerRequest struct {
	Name string `json:"name"`
}

// StartGameRequest starts a game with the supplied names, or with the
// accumulated roster when Players is empty.
type StartGameRequest struct {
	Players []string `json:"players,omitempty"`
}

// SubmitRoundRequest carries one score per player in roster order.
type SubmitRoundRequest struct {
	Scores []float64 `json:"scores"`
}

// SubmitRoundResponse echoes the new state; Record is set when this round
// completed the game and it was handed off to the statistics engine.
type SubmitRoundResponse struct {
	Game           GameView      `json:"game"`
	Complete       bool          `json:"complete"`
	Record         *stats.Record `json:"record,omitempty"`
	StorageWarning string        `json:"storage_warning,omitempty"`
}

// ImportResponse reports a history import merge.
type ImportResponse struct {
	Added          int    `json:"added"`
	StorageWarning string `json:"storage_warning,omitempty"`
}

// StatsOverviewResponse is the full statistics view.
type StatsOverviewResponse struct {
	Overall *stats.OverallStats `json:"overall"`
	Players []string            `json:"players"`
}

// ThemePreference is the presentation-owned display preference stored via
// the persistence port. The core never interprets the value.
type ThemePreference struct {
	Theme string `json:"theme"`
}
