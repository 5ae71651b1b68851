package signup

import (
	"context"

	"github.com/AlexTLDR/charter/internal/student"
)

// Overview is what a student sees for one event.
type Overview struct {
	Event            *Event
	Rooms            []RoomUsage
	Occupancy        int
	ProspectiveCount int
	Window           Window
	Entry            *Entry
}

// Overview reads the event as seen by s: room usage, the applicable signup
// window and the student's own entry, if any.
func (e *Engine) Overview(ctx context.Context, eventID int64, s student.Student) (*Overview, error) {
	var out *Overview
	err := e.store.ReadEvent(ctx, eventID, func(ctx context.Context, snap Snapshot) error {
		ev, err := snap.Event(ctx)
		if err != nil {
			return err
		}
		entries, err := snap.Entries(ctx)
		if err != nil {
			return err
		}
		ledger := NewLedger(entries)

		o := &Overview{
			Event:            ev,
			Rooms:            ledger.RoomSummary(ev.Rooms),
			Occupancy:        ledger.Occupancy(),
			ProspectiveCount: ledger.ProspectiveCount(),
			Window:           WindowFor(ev, s.Variant(), e.opts.SophomoreWindow, e.opts.Location),
		}
		if own := ledger.EntriesOf(s.Ident().NetID); len(own) > 0 {
			o.Entry = &own[0]
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Roster lists every entry of an event alongside room usage.
type Roster struct {
	Event   *Event
	Rooms   []RoomUsage
	Entries []Entry
}

// Roster reads the full attendee list of an event.
func (e *Engine) Roster(ctx context.Context, eventID int64) (*Roster, error) {
	var out *Roster
	err := e.store.ReadEvent(ctx, eventID, func(ctx context.Context, snap Snapshot) error {
		ev, err := snap.Event(ctx)
		if err != nil {
			return err
		}
		entries, err := snap.Entries(ctx)
		if err != nil {
			return err
		}
		out = &Roster{
			Event:   ev,
			Rooms:   NewLedger(entries).RoomSummary(ev.Rooms),
			Entries: entries,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
