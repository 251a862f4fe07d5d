package stats

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cardkeeper/fivecrowns/internal/game"
)

// ExportHistory serializes the full history log, most recent first.
func (e *Engine) ExportHistory() ([]byte, error) {
	records := e.records
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// importedRecord mirrors Record with pointer fields so missing keys are
// distinguishable from zero values.
type importedRecord struct {
	ID          int64         `json:"id"`
	Date        string        `json:"date"`
	Players     []string      `json:"players"`
	Scores      [][]*float64  `json:"scores"`
	Winner      *game.Winner  `json:"winner"`
	TotalRounds int           `json:"totalRounds"`
	Timestamp   int64         `json:"timestamp"`
}

// ImportHistory merges an exported history payload into the log. Records
// whose id is already present are skipped; the merged log is re-sorted by
// timestamp descending and truncated to the cap. Returns the number of
// records added. The payload is validated in full before any state
// changes.
func (e *Engine) ImportHistory(data []byte) (int, error) {
	var imported []importedRecord
	if err := json.Unmarshal(data, &imported); err != nil {
		return 0, &game.ValidationError{Message: "malformed history payload"}
	}

	var fields []string
	for i, rec := range imported {
		if len(rec.Players) == 0 || rec.Scores == nil || rec.Winner == nil {
			fields = append(fields, historyField(i))
		}
	}
	if len(fields) > 0 {
		return 0, &game.ValidationError{Message: "history records must carry players, scores and winner", Fields: fields}
	}

	existing := make(map[int64]bool, len(e.records))
	for _, rec := range e.records {
		existing[rec.ID] = true
	}

	added := 0
	for _, rec := range imported {
		if existing[rec.ID] {
			continue
		}
		existing[rec.ID] = true
		e.records = append(e.records, Record{
			ID:          rec.ID,
			Date:        rec.Date,
			Players:     rec.Players,
			Scores:      rec.Scores,
			Winner:      *rec.Winner,
			TotalRounds: rec.TotalRounds,
			Timestamp:   rec.Timestamp,
		})
		added++
	}

	sort.SliceStable(e.records, func(i, j int) bool {
		return e.records[i].Timestamp > e.records[j].Timestamp
	})
	if len(e.records) > HistoryCap {
		e.records = e.records[:HistoryCap]
	}

	for _, rec := range e.records {
		if rec.ID > e.lastID {
			e.lastID = rec.ID
		}
	}

	e.persist()
	return added, nil
}

func historyField(index int) string {
	return "records[" + strconv.Itoa(index) + "]"
}
