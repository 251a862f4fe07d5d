// Package store provides named-slot persistence for scorekeeper state.
package store

import "fmt"

// Well-known slots used by the core engines. Additional per-session game
// slots are derived with GameSlot.
const (
	SlotCurrentGame = "current_game"
	SlotHistory     = "history"
	SlotTheme       = "theme"
)

// GameSlot returns the slot name for a game session's snapshot.
func GameSlot(id string) string {
	return "game:" + id
}

// Store is the persistence port consumed by the game and stats engines.
// Save serializes value as JSON under slot. Load deserializes into dest and
// reports whether a usable value was present; missing slots and values that
// fail to deserialize both report false without an error, so stale or
// corrupt state degrades to absence rather than failure.
type Store interface {
	Save(slot string, value any) error
	Load(slot string, dest any) (bool, error)
	Clear(slot string) error
	Exists(slot string) (bool, error)
	Close() error
}

// StorageError wraps a persistence backend failure. Engines treat these as
// non-fatal: in-memory state stays authoritative and the error is surfaced
// as a warning rather than failing the triggering operation.
type StorageError struct {
	Slot string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Slot, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
