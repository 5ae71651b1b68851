package signup

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlexTLDR/charter/internal/student"
)

// EntryRequest targets an existing entry on behalf of the logged-in student.
type EntryRequest struct {
	Student student.Student
	EventID int64
	EntryID uuid.UUID
}

type AnswersRequest struct {
	EntryRequest
	Answers map[int64]string
}

type GuestRequest struct {
	EntryRequest
	FirstName string
	LastName  string
}

type RoomRequest struct {
	EntryRequest
	RoomID int64
}

// GuestOutcome is the kind of guest change that was applied.
type GuestOutcome string

const (
	GuestRemoved GuestOutcome = "remove"
	GuestSwapped GuestOutcome = "swap"
	GuestAdded   GuestOutcome = "add"
)

// ownedEntry finds the requested entry and checks it belongs to the requester.
func ownedEntry(entries []Entry, req EntryRequest) (*Entry, error) {
	for i := range entries {
		if entries[i].ID != req.EntryID {
			continue
		}
		if entries[i].NetID != req.Student.Ident().NetID {
			return nil, reject(KindPermission, "The student entry does not match the logged in student. Please log in with the student who made the rsvp.")
		}
		entry := entries[i]
		return &entry, nil
	}
	return nil, ErrEntryNotFound
}

// entryOp runs fn against the requested entry inside one event transaction.
func (e *Engine) entryOp(ctx context.Context, name string, req EntryRequest, fn func(ctx context.Context, tx Tx, ev *Event, ledger *Ledger, entry *Entry) error) error {
	netID := req.Student.Ident().NetID
	ctx, span := tracer.Start(ctx, "signup."+name, trace.WithAttributes(
		attribute.Int64("event.id", req.EventID),
		attribute.String("entry.id", req.EntryID.String()),
	))
	defer span.End()

	err := e.store.InEvent(ctx, req.EventID, func(ctx context.Context, tx Tx) error {
		ev, err := tx.Event(ctx)
		if err != nil {
			return err
		}
		entries, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		entry, err := ownedEntry(entries, req)
		if err != nil {
			return err
		}
		return fn(ctx, tx, ev, NewLedger(entries), entry)
	})
	e.finish(span, name, netID, req.EventID, err)
	return err
}

// Delete withdraws the student's entry together with its answers.
func (e *Engine) Delete(ctx context.Context, req EntryRequest) error {
	return e.entryOp(ctx, "delete", req, func(ctx context.Context, tx Tx, _ *Event, _ *Ledger, entry *Entry) error {
		return tx.DeleteEntry(ctx, entry.ID)
	})
}

// ChangeAnswers overwrites the entry's answers. Questions absent from the
// request keep their current text.
func (e *Engine) ChangeAnswers(ctx context.Context, req AnswersRequest) (*Entry, error) {
	var out *Entry
	err := e.entryOp(ctx, "change_answers", req.EntryRequest, func(ctx context.Context, tx Tx, ev *Event, _ *Ledger, entry *Entry) error {
		answers, err := collectAnswers(ev.Questions, entry.Answers, req.Answers)
		if err != nil {
			return err
		}
		entry.UpdatedAt = e.clock.Now()
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.ReplaceAnswers(ctx, entry.ID, answers); err != nil {
			return err
		}
		entry.Answers = answers
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeGuest removes, swaps or adds the entry's guest. Prospectives may only
// remove one.
func (e *Engine) ChangeGuest(ctx context.Context, req GuestRequest) (*Entry, GuestOutcome, error) {
	var (
		out     *Entry
		outcome GuestOutcome
	)
	err := e.entryOp(ctx, "change_guest", req.EntryRequest, func(ctx context.Context, tx Tx, ev *Event, ledger *Ledger, entry *Entry) error {
		name := guestName(req.FirstName, req.LastName)
		current := strings.TrimSpace(entry.Guest)

		switch {
		case name == "":
			outcome = GuestRemoved
		case req.Student.Variant() == student.VariantProspective:
			return reject(KindValidation, "Sorry! Prospectives are not allowed to bring guests.")
		case sameGuest(name, current):
			return reject(KindDuplicate, "You already have %s as your guest for this entry. Please use this form to remove or swap.", name)
		case current != "":
			outcome = GuestSwapped
		default:
			if err := checkGuestLimit(ev, ledger.GuestsOf(entry.NetID)); err != nil {
				return err
			}
			room, _ := ev.Room(entry.RoomID)
			if n := ledger.RoomOccupancy(entry.RoomID); n >= room.Limit {
				return reject(KindCapacity, "We cannot add your guest to the room because it is over capacity %d/%d", n, room.Limit)
			}
			outcome = GuestAdded
		}

		entry.Guest = name
		entry.UpdatedAt = e.clock.Now()
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return out, outcome, nil
}

// ChangeRoom moves the student and every guest on their entries to another
// room of the same event.
func (e *Engine) ChangeRoom(ctx context.Context, req RoomRequest) (*Entry, error) {
	var out *Entry
	err := e.entryOp(ctx, "change_room", req.EntryRequest, func(ctx context.Context, tx Tx, ev *Event, ledger *Ledger, entry *Entry) error {
		if req.RoomID == 0 {
			return reject(KindValidation, "Please choose a room.")
		}
		room, ok := ev.Room(req.RoomID)
		if !ok {
			return reject(KindValidation, "Room %d is not available for %q.", req.RoomID, ev.Title)
		}
		if room.ID == entry.RoomID {
			out = entry
			return nil
		}

		party := append([]string{req.Student.Ident().FullName()}, ledger.GuestsOf(entry.NetID)...)
		occupancy := ledger.RoomOccupancy(room.ID)
		if len(party)+occupancy > room.Limit {
			return reject(KindCapacity, "The room %s has %d/%d people. Cannot add %s to this room.", room.Name, occupancy, room.Limit, strings.Join(party, ", "))
		}

		now := e.clock.Now()
		for _, sibling := range ledger.EntriesOf(entry.NetID) {
			sibling.RoomID = room.ID
			sibling.UpdatedAt = now
			if err := tx.SaveEntry(ctx, &sibling); err != nil {
				return err
			}
			if sibling.ID == entry.ID {
				out = &sibling
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
