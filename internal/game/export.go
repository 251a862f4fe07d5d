package game

import (
	"encoding/json"
	"strings"
	"time"
)

// ExportVersion is the envelope version written by Export.
const ExportVersion = "1.0"

// ExportedGame is the game payload inside an export envelope. MaxRounds
// and RoundCards are included for display context on the consuming side.
type ExportedGame struct {
	Players      []string     `json:"players"`
	Scores       [][]*float64 `json:"scores"`
	CurrentRound int          `json:"currentRound"`
	MaxRounds    int          `json:"maxRounds"`
	RoundCards   []int        `json:"roundCards"`
}

// ExportEnvelope is the versioned wrapper produced by Export and accepted
// by Import.
type ExportEnvelope struct {
	Version    string       `json:"version"`
	ExportDate string       `json:"exportDate"`
	Game       ExportedGame `json:"game"`
}

// Export produces a versioned snapshot envelope of the live game.
func (e *Engine) Export() ExportEnvelope {
	snap := e.Snapshot()
	return ExportEnvelope{
		Version:    ExportVersion,
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		Game: ExportedGame{
			Players:      snap.Players,
			Scores:       snap.Scores,
			CurrentRound: snap.CurrentRound,
			MaxRounds:    MaxRounds,
			RoundCards:   RoundCards,
		},
	}
}

// ExportJSON serializes the export envelope.
func (e *Engine) ExportJSON() ([]byte, error) {
	return json.Marshal(e.Export())
}

// importEnvelope mirrors ExportEnvelope with a pointer payload so a
// missing "game" key is distinguishable from an empty one.
type importEnvelope struct {
	Version    string        `json:"version"`
	ExportDate string        `json:"exportDate"`
	Game       *ExportedGame `json:"game"`
}

// Import replaces the live game with the state from an export envelope.
// The payload is validated in full before any state changes; a failed
// import leaves the live game untouched.
func (e *Engine) Import(data []byte) error {
	var env importEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return newValidationError("malformed import payload")
	}
	if env.Game == nil {
		return newValidationError("import payload has no game", "game")
	}

	snap := Snapshot{
		Players:      env.Game.Players,
		Scores:       env.Game.Scores,
		CurrentRound: env.Game.CurrentRound,
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	e.players = snap.Players
	e.scores = snap.Scores
	e.currentRound = snap.CurrentRound
	e.persist()
	return nil
}

// validateSnapshot checks a snapshot's shape and internal consistency,
// collecting every violated field. Beyond the roster and matrix shape it
// enforces the prefix rule: in every row, exactly the rounds before
// currentRound are scored and everything after is null. Engine-produced
// snapshots always satisfy this; only tampered payloads are rejected.
func validateSnapshot(snap Snapshot) error {
	if err := validateRoster(snap.Players); err != nil {
		return err
	}
	for i, name := range snap.Players {
		snap.Players[i] = strings.TrimSpace(name)
	}

	var fields []string
	if snap.CurrentRound < 1 || snap.CurrentRound > MaxRounds+1 {
		fields = append(fields, "currentRound")
	}
	if len(snap.Scores) != len(snap.Players) {
		fields = append(fields, "scores")
	} else {
		played := snap.CurrentRound - 1
		for i, row := range snap.Scores {
			if len(row) != MaxRounds {
				fields = append(fields, indexedField("scores", i))
				continue
			}
			if snap.CurrentRound < 1 || snap.CurrentRound > MaxRounds+1 {
				continue
			}
			for r, cell := range row {
				if (r < played) != (cell != nil) {
					fields = append(fields, indexedField("scores", i))
					break
				}
			}
		}
	}
	if len(fields) > 0 {
		return newValidationError("snapshot is inconsistent", fields...)
	}
	return nil
}
