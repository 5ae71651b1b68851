package signup

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persisted record of entries. Every admission runs inside
// InEvent so the ledger reads and the resulting write share one snapshot.
type Store interface {
	// InEvent runs fn in a single atomic transaction scoped to the event.
	// If fn returns an error nothing it wrote is kept. Implementations may
	// run fn more than once when a serialization conflict forces a retry.
	InEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx Tx) error) error
	// ReadEvent runs fn against a consistent read-only snapshot of the event.
	// It takes no lock that would hold back a concurrent InEvent.
	ReadEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, snap Snapshot) error) error
}

// Snapshot is the read side of one event.
type Snapshot interface {
	// Event loads the event with its rooms and questions, or ErrEventNotFound.
	Event(ctx context.Context) (*Event, error)
	// Entries lists every entry of the event with answers.
	Entries(ctx context.Context) ([]Entry, error)
}

// Tx is the view of one event inside a Store transaction.
type Tx interface {
	Snapshot
	// SaveEntry inserts the entry or updates it when its ID already exists.
	SaveEntry(ctx context.Context, e *Entry) error
	// DeleteEntry removes the entry and its answers.
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	// ReplaceAnswers swaps the entry's whole answer set.
	ReplaceAnswers(ctx context.Context, entryID uuid.UUID, answers []Answer) error
}
