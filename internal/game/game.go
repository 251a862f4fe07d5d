// Package game implements the Five Crowns scorekeeping engine: the player
// roster, the fixed 11-round score matrix, round progression, totals and
// winner selection.
package game

import (
	"log"
	"os"
	"strings"

	"github.com/cardkeeper/fivecrowns/internal/store"
)

// MaxRounds is the fixed number of rounds in a Five Crowns game.
const MaxRounds = 11

// RoundCards lists the number of cards dealt per round. Descriptive only;
// it never enters the scoring math.
var RoundCards = []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}

// Snapshot is the persisted wire shape of a live game. Score cells are nil
// until the round is played.
type Snapshot struct {
	Players      []string     `json:"players"`
	Scores       [][]*float64 `json:"scores"`
	CurrentRound int          `json:"currentRound"`
}

// Winner identifies the winning player of a completed game. Lowest total
// wins; ties go to the lowest player index.
type Winner struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// RoundInfo describes the round currently being played, for display.
type RoundInfo struct {
	Round     int `json:"round"`
	Cards     int `json:"cards"`
	MaxRounds int `json:"maxRounds"`
}

// Engine owns one live game. It is not safe for concurrent use; callers
// serialize access (the API layer holds a lock per session).
//
// Every successful mutation writes the snapshot to the store. A failed
// write never rolls back or fails the mutation: in-memory state stays
// authoritative and the failure is retained as a soft warning.
type Engine struct {
	store  store.Store
	slot   string
	logger *log.Logger

	players      []string
	scores       [][]*float64 // nil until StartNewGame allocates the matrix
	currentRound int

	lastSaveErr error
}

// NewEngine creates an engine persisting to the given slot.
func NewEngine(st store.Store, slot string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stdout, "[GAME] ", log.LstdFlags)
	}
	return &Engine{
		store:        st,
		slot:         slot,
		logger:       logger,
		currentRound: 1,
	}
}

// started reports whether the score matrix has been allocated.
func (e *Engine) started() bool {
	return e.scores != nil
}

// AddPlayer appends a player to the roster during setup.
func (e *Engine) AddPlayer(name string) error {
	if e.started() {
		return newStateError("cannot add players after the game has started")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return newValidationError("player name must not be empty", "name")
	}
	for _, p := range e.players {
		if p == trimmed {
			return newValidationError("player name already taken", "name")
		}
	}
	e.players = append(e.players, trimmed)
	return nil
}

// RemovePlayer removes the roster entry at index during setup. An
// out-of-bounds index is a no-op.
func (e *Engine) RemovePlayer(index int) error {
	if e.started() {
		return newStateError("cannot remove players after the game has started")
	}
	if index < 0 || index >= len(e.players) {
		return nil
	}
	e.players = append(e.players[:index], e.players[index+1:]...)
	return nil
}

// StartNewGame replaces the roster with playerNames, allocates the score
// matrix and resets the round counter.
func (e *Engine) StartNewGame(playerNames []string) error {
	if err := validateRoster(playerNames); err != nil {
		return err
	}

	players := make([]string, len(playerNames))
	for i, name := range playerNames {
		players[i] = strings.TrimSpace(name)
	}

	e.players = players
	e.scores = make([][]*float64, len(players))
	for i := range e.scores {
		e.scores[i] = make([]*float64, MaxRounds)
	}
	e.currentRound = 1
	e.persist()
	return nil
}

// validateRoster checks a proposed roster, collecting every violation.
func validateRoster(playerNames []string) error {
	if len(playerNames) < 2 {
		return newValidationError("at least 2 players are required", "players")
	}
	var fields []string
	seen := make(map[string]bool)
	for i, name := range playerNames {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			fields = append(fields, indexedField("players", i))
			continue
		}
		if seen[trimmed] {
			fields = append(fields, indexedField("players", i))
			continue
		}
		seen[trimmed] = true
	}
	if len(fields) > 0 {
		return newValidationError("player names must be non-empty and unique", fields...)
	}
	return nil
}

// SubmitRound records one score per player for the current round and
// advances the round counter. Returns whether the game is now complete.
// Score values are taken as-is; house-rule variants use negative or
// fractional scores.
func (e *Engine) SubmitRound(roundScores []float64) (bool, error) {
	if !e.started() {
		return false, newStateError("game has not been started")
	}
	if e.IsComplete() {
		return false, newStateError("game is already complete")
	}
	if len(roundScores) != len(e.players) {
		return false, newValidationError("one score per player is required", "scores")
	}

	round := e.currentRound - 1
	for i, score := range roundScores {
		s := score
		e.scores[i][round] = &s
	}
	e.currentRound++
	e.persist()
	return e.IsComplete(), nil
}

// UndoLastRound steps the game back one round, clearing that round's
// scores. Works identically whether or not the game had reached the
// terminal state.
func (e *Engine) UndoLastRound() error {
	if !e.started() || e.currentRound == 1 {
		return newStateError("no round to undo")
	}
	e.currentRound--
	round := e.currentRound - 1
	for i := range e.scores {
		e.scores[i][round] = nil
	}
	e.persist()
	return nil
}

// PlayerTotal sums the player's recorded scores; unplayed rounds count as
// zero. An out-of-range index totals zero.
func (e *Engine) PlayerTotal(index int) float64 {
	if index < 0 || index >= len(e.scores) {
		return 0
	}
	var total float64
	for _, cell := range e.scores[index] {
		if cell != nil {
			total += *cell
		}
	}
	return total
}

// Totals returns every player's running total in roster order.
func (e *Engine) Totals() []float64 {
	totals := make([]float64, len(e.players))
	for i := range e.scores {
		totals[i] = e.PlayerTotal(i)
	}
	return totals
}

// Winner returns nil until the game is complete, then the player with the
// lowest total. Ties resolve to the lowest index.
func (e *Engine) Winner() *Winner {
	if !e.IsComplete() {
		return nil
	}
	winner := Winner{Name: e.players[0], Score: e.PlayerTotal(0), Index: 0}
	for i := 1; i < len(e.players); i++ {
		if total := e.PlayerTotal(i); total < winner.Score {
			winner = Winner{Name: e.players[i], Score: total, Index: i}
		}
	}
	return &winner
}

// IsComplete reports whether all rounds have been submitted.
func (e *Engine) IsComplete() bool {
	return e.started() && e.currentRound > MaxRounds
}

// CurrentRound returns the 1-based round counter; MaxRounds+1 once the
// game is complete.
func (e *Engine) CurrentRound() int {
	return e.currentRound
}

// Players returns the roster in seating order.
func (e *Engine) Players() []string {
	players := make([]string, len(e.players))
	copy(players, e.players)
	return players
}

// RoundInfo describes the round in play. Cards is zero once the game is
// complete.
func (e *Engine) RoundInfo() RoundInfo {
	info := RoundInfo{Round: e.currentRound, MaxRounds: MaxRounds}
	if e.currentRound >= 1 && e.currentRound <= MaxRounds {
		info.Cards = RoundCards[e.currentRound-1]
	}
	return info
}

// Snapshot returns the current wire-shape state. Rows are copied so later
// mutations don't reach into a taken snapshot.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Players:      e.Players(),
		Scores:       make([][]*float64, len(e.scores)),
		CurrentRound: e.currentRound,
	}
	for i, row := range e.scores {
		snap.Scores[i] = make([]*float64, len(row))
		copy(snap.Scores[i], row)
	}
	return snap
}

// Reset discards the live game and its persisted snapshot.
func (e *Engine) Reset() {
	e.players = nil
	e.scores = nil
	e.currentRound = 1
	if err := e.store.Clear(e.slot); err != nil {
		e.lastSaveErr = err
		e.logger.Printf("snapshot_clear_failed slot=%s err=%v", e.slot, err)
		return
	}
	e.lastSaveErr = nil
}

// Restore replaces the live game with a previously persisted snapshot.
func (e *Engine) Restore(snap Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	e.players = snap.Players
	e.scores = snap.Scores
	e.currentRound = snap.CurrentRound
	return nil
}

// LastSaveError returns the failure of the most recent persistence write,
// or nil if it succeeded. Storage failures never fail the operation that
// triggered them.
func (e *Engine) LastSaveError() error {
	return e.lastSaveErr
}

func (e *Engine) persist() {
	if err := e.store.Save(e.slot, e.Snapshot()); err != nil {
		e.lastSaveErr = err
		e.logger.Printf("snapshot_save_failed slot=%s err=%v", e.slot, err)
		return
	}
	e.lastSaveErr = nil
}
