// Package memstore is an in-memory signup.Store and student directory.
//
// Transactions are serialised by a single mutex and each one works on a copy
// of the event's entries that is swapped in only when the callback succeeds,
// which gives the same all-or-nothing behaviour as the PostgreSQL store.
// Reads copy the committed state and never wait for a running transaction.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/AlexTLDR/charter/internal/signup"
	"github.com/AlexTLDR/charter/internal/student"
)

// ErrDuplicateEntry mirrors the unique (event, student) constraint.
var ErrDuplicateEntry = errors.New("duplicate entry for student")

type Store struct {
	txMu     sync.Mutex // serialises InEvent
	mu       sync.Mutex // guards the maps below
	events   map[int64]signup.Event
	entries  map[int64][]signup.Entry
	students map[string]student.Record
	txCount  int
}

func New() *Store {
	return &Store{
		events:   make(map[int64]signup.Event),
		entries:  make(map[int64][]signup.Entry),
		students: make(map[string]student.Record),
	}
}

// AddEvent registers or replaces an event.
func (s *Store) AddEvent(ev signup.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = cloneEvent(ev)
}

// AddStudent registers or replaces a student record.
func (s *Store) AddStudent(rec student.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[rec.NetID] = rec
}

// Student implements the server's student directory.
func (s *Store) Student(ctx context.Context, netID string) (student.Record, error) {
	if err := ctx.Err(); err != nil {
		return student.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.students[netID]
	if !ok {
		return student.Record{}, student.ErrNotFound
	}
	return rec, nil
}

// Entries returns a copy of the committed entries of an event.
func (s *Store) Entries(eventID int64) []signup.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.entries[eventID])
}

// Transactions reports how many transactions have committed.
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (s *Store) InEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx signup.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := s.begin(eventID)
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[eventID] = tx.entries
	s.txCount++
	return nil
}

// ReadEvent runs fn on a copy of the committed state. Nothing is written back.
func (s *Store) ReadEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, snap signup.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, s.begin(eventID))
}

func (s *Store) begin(eventID int64) *memTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	return &memTx{
		event:   cloneEvent(ev),
		found:   ok,
		entries: cloneEntries(s.entries[eventID]),
	}
}

type memTx struct {
	event   signup.Event
	found   bool
	entries []signup.Entry
}

func (t *memTx) Event(ctx context.Context) (*signup.Event, error) {
	if !t.found {
		return nil, signup.ErrEventNotFound
	}
	ev := cloneEvent(t.event)
	return &ev, nil
}

func (t *memTx) Entries(ctx context.Context) ([]signup.Entry, error) {
	if !t.found {
		return nil, signup.ErrEventNotFound
	}
	return cloneEntries(t.entries), nil
}

func (t *memTx) SaveEntry(ctx context.Context, e *signup.Entry) error {
	if !t.found {
		return signup.ErrEventNotFound
	}
	if _, ok := t.event.Room(e.RoomID); !ok {
		return fmt.Errorf("failed to save entry: room %d is not part of event %d", e.RoomID, t.event.ID)
	}
	for _, other := range t.entries {
		if other.NetID == e.NetID && other.ID != e.ID {
			return ErrDuplicateEntry
		}
	}

	row := *e
	row.EventID = t.event.ID
	for i := range t.entries {
		if t.entries[i].ID == e.ID {
			row.Answers = t.entries[i].Answers
			t.entries[i] = row
			return nil
		}
	}
	row.Answers = nil
	t.entries = append(t.entries, row)
	return nil
}

func (t *memTx) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries = slices.Delete(t.entries, i, i+1)
			return nil
		}
	}
	return signup.ErrEntryNotFound
}

func (t *memTx) ReplaceAnswers(ctx context.Context, entryID uuid.UUID, answers []signup.Answer) error {
	for i := range t.entries {
		if t.entries[i].ID == entryID {
			t.entries[i].Answers = slices.Clone(answers)
			return nil
		}
	}
	return signup.ErrEntryNotFound
}

func cloneEvent(ev signup.Event) signup.Event {
	ev.Rooms = slices.Clone(ev.Rooms)
	ev.Questions = slices.Clone(ev.Questions)
	return ev
}

func cloneEntries(entries []signup.Entry) []signup.Entry {
	out := make([]signup.Entry, len(entries))
	for i, e := range entries {
		e.Answers = slices.Clone(e.Answers)
		out[i] = e
	}
	return out
}
