package stats

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cardkeeper/fivecrowns/internal/game"
	"github.com/cardkeeper/fivecrowns/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewEngine(st, nil), st
}

// completedSnapshot builds a terminal two-player snapshot with the given
// per-round scores applied to every round.
func completedSnapshot(players []string, perRound []float64) game.Snapshot {
	scores := make([][]*float64, len(players))
	for i := range players {
		row := make([]*float64, 11)
		for r := range row {
			v := perRound[i]
			row[r] = &v
		}
		scores[i] = row
	}
	return game.Snapshot{Players: players, Scores: scores, CurrentRound: 12}
}

func saveGame(t *testing.T, e *Engine, players []string, perRound []float64) *Record {
	t.Helper()
	rec, err := e.SaveGame(completedSnapshot(players, perRound))
	if err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	return rec
}

func TestSaveGameDerivesRecord(t *testing.T) {
	e, st := newTestEngine(t)

	rec := saveGame(t, e, []string{"Alice", "Bob"}, []float64{5, 6})

	if rec.ID == 0 || rec.Timestamp != rec.ID {
		t.Errorf("Expected id and timestamp to match, got %+v", rec)
	}
	if rec.Winner.Name != "Alice" || rec.Winner.Index != 0 || rec.Winner.Score != 55 {
		t.Errorf("Unexpected derived winner %+v", rec.Winner)
	}
	if rec.TotalRounds != 11 {
		t.Errorf("Expected 11 total rounds, got %d", rec.TotalRounds)
	}
	if rec.Date == "" {
		t.Error("Expected a non-empty date")
	}

	var persisted []Record
	found, err := st.Load(store.SlotHistory, &persisted)
	if err != nil || !found || len(persisted) != 1 {
		t.Fatalf("Expected one persisted record (found=%v err=%v len=%d)", found, err, len(persisted))
	}
}

func TestSaveGameRejectsBadSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)

	var validationErr *game.ValidationError
	if _, err := e.SaveGame(game.Snapshot{}); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for empty snapshot, got %v", err)
	}

	snap := completedSnapshot([]string{"Alice", "Bob"}, []float64{1, 2})
	snap.Scores = snap.Scores[:1]
	if _, err := e.SaveGame(snap); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for mismatched scores, got %v", err)
	}
}

func TestSaveGameIDsAreMonotonic(t *testing.T) {
	e, _ := newTestEngine(t)

	var last int64
	for i := 0; i < 5; i++ {
		rec := saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})
		if rec.ID <= last {
			t.Fatalf("IDs not strictly increasing: %d after %d", rec.ID, last)
		}
		last = rec.ID
	}
}

func TestHistoryCapTrimsOldest(t *testing.T) {
	e, _ := newTestEngine(t)

	var ids []int64
	for i := 0; i < HistoryCap+5; i++ {
		rec := saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})
		ids = append(ids, rec.ID)
	}

	recent := e.RecentGames(HistoryCap + 5)
	if len(recent) != HistoryCap {
		t.Fatalf("Expected log capped at %d, got %d", HistoryCap, len(recent))
	}
	// Newest first; the oldest five are gone.
	if recent[0].ID != ids[len(ids)-1] {
		t.Errorf("Expected newest record first, got id %d", recent[0].ID)
	}
	for _, rec := range recent {
		for _, dropped := range ids[:5] {
			if rec.ID == dropped {
				t.Errorf("Expected oldest record %d to be trimmed", dropped)
			}
		}
	}
}

func TestPlayerStats(t *testing.T) {
	e, _ := newTestEngine(t)

	// Alice wins two of four; her per-game totals are 11, 22, 33, 44.
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2}) // win, 11
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{2, 1}) // loss, 22
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{3, 4}) // win, 33
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{4, 3}) // loss, 44

	ps := e.PlayerStats("Alice")
	if ps == nil {
		t.Fatal("Expected stats for Alice")
	}
	if ps.TotalGames != 4 || ps.Wins != 2 || ps.Losses != 2 {
		t.Errorf("Unexpected counts %+v", ps)
	}
	if ps.WinRate != 50.0 {
		t.Errorf("Expected win rate exactly 50.0, got %v", ps.WinRate)
	}
	if ps.AverageScore != 27.5 {
		t.Errorf("Expected average 27.5, got %v", ps.AverageScore)
	}
	if ps.BestScore != 11 || ps.WorstScore != 44 {
		t.Errorf("Expected best 11 worst 44, got %v/%v", ps.BestScore, ps.WorstScore)
	}
}

func TestPlayerStatsUnknownPlayer(t *testing.T) {
	e, _ := newTestEngine(t)
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})

	if ps := e.PlayerStats("Nobody"); ps != nil {
		t.Errorf("Expected nil for unknown player, got %+v", ps)
	}
}

func TestWinRateRounding(t *testing.T) {
	e, _ := newTestEngine(t)

	// One win in three games: 33.333...% rounds to 33.3.
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{2, 1})
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{2, 1})

	ps := e.PlayerStats("Alice")
	if ps == nil || ps.WinRate != 33.3 {
		t.Errorf("Expected win rate 33.3, got %+v", ps)
	}
}

func TestAllPlayersEmptyLogIsNonNil(t *testing.T) {
	e, _ := newTestEngine(t)

	names := e.AllPlayers()
	if names == nil {
		t.Fatal("Expected an empty slice, got nil")
	}
	if len(names) != 0 {
		t.Errorf("Expected no names, got %v", names)
	}
}

func TestAllPlayersSorted(t *testing.T) {
	e, _ := newTestEngine(t)
	saveGame(t, e, []string{"Zoe", "Bob"}, []float64{1, 2})
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})

	names := e.AllPlayers()
	want := []string{"Alice", "Bob", "Zoe"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, names)
		}
	}
}

func TestOverallStats(t *testing.T) {
	e, _ := newTestEngine(t)

	if e.OverallStats() != nil {
		t.Error("Expected nil overall stats for empty history")
	}

	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})   // per-player means: (11+22)/2 = 16.5
	saveGame(t, e, []string{"Alice", "Carol"}, []float64{3, 1}) // per-player means: (33+11)/2 = 22

	overall := e.OverallStats()
	if overall == nil {
		t.Fatal("Expected overall stats")
	}
	if overall.TotalGames != 2 || overall.UniquePlayers != 3 {
		t.Errorf("Unexpected counts %+v", overall)
	}
	// Alice and Carol both have a 100%/50% split; Alice won game one,
	// Carol won game two. Alice: 1 of 2 = 50. Carol: 1 of 1 = 100.
	if overall.BestPlayer.Name != "Carol" || overall.BestPlayer.WinRate != 100.0 {
		t.Errorf("Unexpected best player %+v", overall.BestPlayer)
	}
	if overall.AverageScore != 19.3 {
		t.Errorf("Expected average 19.3, got %v", overall.AverageScore)
	}
}

func TestOverallStatsTieBreaksAlphabetically(t *testing.T) {
	e, _ := newTestEngine(t)

	// Both players win once against each other: both at 50%.
	saveGame(t, e, []string{"Zoe", "Bob"}, []float64{1, 2})
	saveGame(t, e, []string{"Zoe", "Bob"}, []float64{2, 1})

	overall := e.OverallStats()
	if overall == nil {
		t.Fatal("Expected overall stats")
	}
	if overall.BestPlayer.Name != "Bob" {
		t.Errorf("Expected tie to resolve to first sorted name, got %+v", overall.BestPlayer)
	}
}

func TestRecentGamesClamps(t *testing.T) {
	e, _ := newTestEngine(t)
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})

	if got := len(e.RecentGames(10)); got != 2 {
		t.Errorf("Expected clamp to 2, got %d", got)
	}
	if got := len(e.RecentGames(1)); got != 1 {
		t.Errorf("Expected 1 record, got %d", got)
	}
	if got := len(e.RecentGames(-3)); got != 0 {
		t.Errorf("Expected 0 records for negative limit, got %d", got)
	}
}

func TestDeleteGame(t *testing.T) {
	e, _ := newTestEngine(t)
	first := saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})

	e.DeleteGame(first.ID)
	if got := len(e.RecentGames(10)); got != 1 {
		t.Errorf("Expected 1 record after delete, got %d", got)
	}

	// Unknown id is a no-op.
	e.DeleteGame(999999)
	if got := len(e.RecentGames(10)); got != 1 {
		t.Errorf("Expected delete of unknown id to be a no-op, got %d records", got)
	}
}

func TestClearHistoryPersistsEmptyLog(t *testing.T) {
	e, st := newTestEngine(t)
	saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})

	e.ClearHistory()

	if got := len(e.RecentGames(10)); got != 0 {
		t.Errorf("Expected empty log, got %d records", got)
	}

	var persisted []Record
	found, err := st.Load(store.SlotHistory, &persisted)
	if err != nil || !found {
		t.Fatalf("Expected persisted empty log (found=%v err=%v)", found, err)
	}
	if len(persisted) != 0 {
		t.Errorf("Expected zero persisted records, got %d", len(persisted))
	}
}

func TestReloadFromStore(t *testing.T) {
	e, st := newTestEngine(t)
	rec := saveGame(t, e, []string{"Alice", "Bob"}, []float64{1, 2})

	reloaded := NewEngine(st, nil)
	recent := reloaded.RecentGames(10)
	if len(recent) != 1 || recent[0].ID != rec.ID {
		t.Fatalf("Expected reloaded history, got %+v", recent)
	}

	// New saves continue above the reloaded high-water mark.
	next := saveGame(t, reloaded, []string{"Alice", "Bob"}, []float64{1, 2})
	if next.ID <= rec.ID {
		t.Errorf("Expected id above %d, got %d", rec.ID, next.ID)
	}
}

func TestCorruptHistoryDegradesToEmpty(t *testing.T) {
	st := store.NewMemoryStore()
	st.SetRaw(store.SlotHistory, `{"this is": "not a record list"}`)

	e := NewEngine(st, nil)
	if got := len(e.RecentGames(10)); got != 0 {
		t.Errorf("Expected empty log for corrupt history, got %d records", got)
	}
}

func TestStorageFailureIsSoft(t *testing.T) {
	e, st := newTestEngine(t)
	st.FailWrites = true

	rec, err := e.SaveGame(completedSnapshot([]string{"Alice", "Bob"}, []float64{1, 2}))
	if err != nil {
		t.Fatalf("SaveGame should not fail on storage errors, got %v", err)
	}
	if rec == nil {
		t.Fatal("Expected a record despite storage failure")
	}
	if e.LastSaveError() == nil {
		t.Error("Expected a soft save error")
	}
	if got := len(e.RecentGames(10)); got != 1 {
		t.Errorf("Expected in-memory record to survive, got %d", got)
	}

	st.FailWrites = false
	e.ClearHistory()
	if e.LastSaveError() != nil {
		t.Errorf("Expected warning to clear, got %v", e.LastSaveError())
	}
}

func TestPercentExactness(t *testing.T) {
	cases := []struct {
		wins, games int
		want        float64
	}{
		{0, 0, 0},
		{1, 2, 50.0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{3, 3, 100.0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_of_%d", tc.wins, tc.games), func(t *testing.T) {
			if got := percent(tc.wins, tc.games); got != tc.want {
				t.Errorf("percent(%d, %d) = %v, want %v", tc.wins, tc.games, got, tc.want)
			}
		})
	}
}
