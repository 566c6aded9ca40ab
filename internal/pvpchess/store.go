package pvpchess

import (
    "context"
    "strings"
    "time"

    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

// DefaultGameTTL bounds how long an idle game record is kept.
const DefaultGameTTL = 24 * time.Hour

// maxUpdateAttempts is how often Update retries a transaction that lost a race.
const maxUpdateAttempts = 3

// UpdateFunc receives the stored record and returns the record to write. Returning an
// error aborts the update and is passed through unchanged.
type UpdateFunc func(cur *chessdto.GameRecord) (*chessdto.GameRecord, error)

// Store persists game records with optimistic concurrency.
type Store interface {
    // Create writes a new record; it fails if the ID is taken.
    Create(ctx context.Context, rec *chessdto.GameRecord) error
    // Load returns ErrGameNotFound for unknown or expired IDs.
    Load(ctx context.Context, id string) (*chessdto.GameRecord, error)
    // Update applies fn atomically; ErrConcurrentMove when retries are exhausted.
    Update(ctx context.Context, id string, fn UpdateFunc) (*chessdto.GameRecord, error)
    Close() error
}

func gameKey(id string) string { return "pvp:game:" + strings.TrimSpace(id) }
