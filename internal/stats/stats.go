// Package stats maintains the bounded history of completed games and the
// aggregate views derived from it.
package stats

import (
	"log"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardkeeper/fivecrowns/internal/game"
	"github.com/cardkeeper/fivecrowns/internal/store"
)

// HistoryCap is the maximum number of completed-game records kept.
// Insertion trims the oldest records beyond the cap.
const HistoryCap = 50

// Record is an immutable snapshot of one completed game.
type Record struct {
	ID          int64        `json:"id"`
	Date        string       `json:"date"`
	Players     []string     `json:"players"`
	Scores      [][]*float64 `json:"scores"`
	Winner      game.Winner  `json:"winner"`
	TotalRounds int          `json:"totalRounds"`
	Timestamp   int64        `json:"timestamp"`
}

// PlayerStats aggregates one player's appearances across the history.
// Players are matched by exact name; reusing a name across games is how
// results attribute to "the same" player.
type PlayerStats struct {
	Name         string  `json:"name"`
	TotalGames   int     `json:"totalGames"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"winRate"`
	AverageScore float64 `json:"averageScore"`
	BestScore    float64 `json:"bestScore"`
	WorstScore   float64 `json:"worstScore"`
}

// BestPlayer identifies the player with the highest win rate.
type BestPlayer struct {
	Name    string  `json:"name"`
	WinRate float64 `json:"winRate"`
}

// OverallStats aggregates the whole history.
type OverallStats struct {
	TotalGames    int        `json:"totalGames"`
	UniquePlayers int        `json:"uniquePlayers"`
	BestPlayer    BestPlayer `json:"bestPlayer"`
	AverageScore  float64    `json:"averageScore"`
}

// Engine owns the history log. Not safe for concurrent use; the API layer
// serializes access behind its stats lock.
type Engine struct {
	store  store.Store
	logger *log.Logger

	records []Record
	lastID  int64

	lastSaveErr error
}

// NewEngine creates a stats engine, loading any persisted history.
// Missing or corrupt stored history degrades to an empty log.
func NewEngine(st store.Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stdout, "[STATS] ", log.LstdFlags)
	}
	e := &Engine{store: st, logger: logger}

	var records []Record
	found, err := st.Load(store.SlotHistory, &records)
	if err != nil {
		logger.Printf("history_load_failed err=%v", err)
	}
	if found {
		e.records = records
		for _, rec := range records {
			if rec.ID > e.lastID {
				e.lastID = rec.ID
			}
		}
	}
	return e
}

// SaveGame derives a completed-game record from the snapshot, prepends it
// to the log and persists. The winner is recomputed from the raw scores
// rather than trusted from the caller.
func (e *Engine) SaveGame(snap game.Snapshot) (*Record, error) {
	if len(snap.Players) == 0 || len(snap.Scores) != len(snap.Players) {
		return nil, &game.ValidationError{Message: "snapshot has no usable players and scores", Fields: []string{"snapshot"}}
	}

	winner := deriveWinner(snap.Players, snap.Scores)

	// Rounds played, derived from the first player's row. Assumes rows
	// share a null-pattern; import validation keeps that true for all
	// supported paths.
	totalRounds := 0
	for _, cell := range snap.Scores[0] {
		if cell != nil {
			totalRounds++
		}
	}

	now := time.Now()
	id := now.UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id

	rec := Record{
		ID:          id,
		Date:        now.UTC().Format(time.RFC3339),
		Players:     snap.Players,
		Scores:      snap.Scores,
		Winner:      winner,
		TotalRounds: totalRounds,
		Timestamp:   id,
	}

	e.records = append([]Record{rec}, e.records...)
	if len(e.records) > HistoryCap {
		e.records = e.records[:HistoryCap]
	}
	e.persist()
	return &rec, nil
}

// deriveWinner applies the lowest-total, first-index rule to raw scores.
func deriveWinner(players []string, scores [][]*float64) game.Winner {
	winner := game.Winner{Name: players[0], Score: rowTotal(scores[0]), Index: 0}
	for i := 1; i < len(players); i++ {
		if total := rowTotal(scores[i]); total < winner.Score {
			winner = game.Winner{Name: players[i], Score: total, Index: i}
		}
	}
	return winner
}

func rowTotal(row []*float64) float64 {
	var total float64
	for _, cell := range row {
		if cell != nil {
			total += *cell
		}
	}
	return total
}

// PlayerStats aggregates the named player's recorded games, or nil if the
// player appears in none.
func (e *Engine) PlayerStats(name string) *PlayerStats {
	stats := PlayerStats{Name: name}
	var totals []float64

	for _, rec := range e.records {
		idx := -1
		for i, p := range rec.Players {
			if p == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		stats.TotalGames++
		if rec.Winner.Name == name {
			stats.Wins++
		}
		totals = append(totals, rowTotal(rec.Scores[idx]))
	}

	if stats.TotalGames == 0 {
		return nil
	}

	stats.Losses = stats.TotalGames - stats.Wins
	stats.WinRate = percent(stats.Wins, stats.TotalGames)

	sum := decimal.Zero
	best, worst := totals[0], totals[0]
	for _, t := range totals {
		sum = sum.Add(decimal.NewFromFloat(t))
		if t < best {
			best = t
		}
		if t > worst {
			worst = t
		}
	}
	stats.AverageScore = sum.Div(decimal.NewFromInt(int64(len(totals)))).Round(1).InexactFloat64()
	stats.BestScore = best
	stats.WorstScore = worst
	return &stats
}

// AllPlayers returns every distinct name in the history, sorted ascending.
// An empty history yields an empty slice, not nil, so the name list always
// serializes as a JSON array.
func (e *Engine) AllPlayers() []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, rec := range e.records {
		for _, p := range rec.Players {
			if !seen[p] {
				seen[p] = true
				names = append(names, p)
			}
		}
	}
	sort.Strings(names)
	return names
}

// OverallStats aggregates the whole history, or nil if it is empty. The
// best player is the highest win rate; ties resolve to the first name in
// sorted order.
func (e *Engine) OverallStats() *OverallStats {
	if len(e.records) == 0 {
		return nil
	}

	players := e.AllPlayers()
	overall := OverallStats{
		TotalGames:    len(e.records),
		UniquePlayers: len(players),
	}

	for _, name := range players {
		ps := e.PlayerStats(name)
		if ps == nil {
			continue
		}
		if overall.BestPlayer.Name == "" || ps.WinRate > overall.BestPlayer.WinRate {
			overall.BestPlayer = BestPlayer{Name: name, WinRate: ps.WinRate}
		}
	}

	// Mean of each game's mean score per player.
	gameMeans := decimal.Zero
	for _, rec := range e.records {
		gameSum := decimal.Zero
		for _, row := range rec.Scores {
			gameSum = gameSum.Add(decimal.NewFromFloat(rowTotal(row)))
		}
		gameMeans = gameMeans.Add(gameSum.Div(decimal.NewFromInt(int64(len(rec.Players)))))
	}
	overall.AverageScore = gameMeans.Div(decimal.NewFromInt(int64(len(e.records)))).Round(1).InexactFloat64()

	return &overall
}

// RecentGames returns the first limit records of the most-recent-first
// log, clamped to the log length.
func (e *Engine) RecentGames(limit int) []Record {
	if limit < 0 {
		limit = 0
	}
	if limit > len(e.records) {
		limit = len(e.records)
	}
	out := make([]Record, limit)
	copy(out, e.records[:limit])
	return out
}

// DeleteGame removes the record with the given id. Removing an unknown id
// is a no-op.
func (e *Engine) DeleteGame(id int64) {
	for i, rec := range e.records {
		if rec.ID == id {
			e.records = append(e.records[:i], e.records[i+1:]...)
			e.persist()
			return
		}
	}
}

// ClearHistory empties the log and persists the empty state.
func (e *Engine) ClearHistory() {
	e.records = nil
	e.persist()
}

// LastSaveError returns the failure of the most recent persistence write,
// or nil if it succeeded.
func (e *Engine) LastSaveError() error {
	return e.lastSaveErr
}

// percent returns wins/games as a percentage rounded to one decimal.
func percent(wins, games int) float64 {
	if games == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(wins * 100)).
		Div(decimal.NewFromInt(int64(games))).
		Round(1).
		InexactFloat64()
}

func (e *Engine) persist() {
	records := e.records
	if records == nil {
		records = []Record{}
	}
	if err := e.store.Save(store.SlotHistory, records); err != nil {
		e.lastSaveErr = err
		e.logger.Printf("history_save_failed err=%v", err)
		return
	}
	e.lastSaveErr = nil
}
