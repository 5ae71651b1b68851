package signup

import "fmt"

// Ledger is a read-only view of occupancy over one event's entries. It is
// built from the snapshot read inside the same transaction that commits the
// admission, so its counts cannot go stale before the write.
type Ledger struct {
	entries []Entry
}

// NewLedger indexes a snapshot of an event's entries.
func NewLedger(entries []Entry) *Ledger {
	return &Ledger{entries: entries}
}

// EntriesOf returns the student's entries in snapshot order.
func (l *Ledger) EntriesOf(netID string) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.NetID == netID {
			out = append(out, e)
		}
	}
	return out
}

// GuestsOf returns the guest names attached to the student's entries.
func (l *Ledger) GuestsOf(netID string) []string {
	guests := []string{}
	for _, e := range l.EntriesOf(netID) {
		if e.Guest != "" {
			guests = append(guests, e.Guest)
		}
	}
	return guests
}

// HasEntry reports whether the student holds an entry with exactly this guest.
func (l *Ledger) HasEntry(netID, guest string) bool {
	for _, e := range l.EntriesOf(netID) {
		if e.Guest == guest {
			return true
		}
	}
	return false
}

// RoomOccupancy counts entrants and their guests assigned to a room.
func (l *Ledger) RoomOccupancy(roomID int64) int {
	n := 0
	for _, e := range l.entries {
		if e.RoomID == roomID {
			n += e.People()
		}
	}
	return n
}

// Occupancy counts everyone attending the event across all rooms.
func (l *Ledger) Occupancy() int {
	n := 0
	for _, e := range l.entries {
		n += e.People()
	}
	return n
}

// ProspectiveCount counts distinct prospective students holding an entry.
func (l *Ledger) ProspectiveCount() int {
	seen := make(map[string]struct{})
	for _, e := range l.entries {
		if e.Prospective {
			seen[e.NetID] = struct{}{}
		}
	}
	return len(seen)
}

// RoomUsage is the occupancy of one room.
type RoomUsage struct {
	Room      Room
	Occupancy int
}

// Full reports whether no one else fits.
func (u RoomUsage) Full() bool {
	return u.Occupancy >= u.Room.Limit
}

// String renders the usage as "occupancy/limit".
func (u RoomUsage) String() string {
	return fmt.Sprintf("%d/%d", u.Occupancy, u.Room.Limit)
}

// RoomSummary reports the usage of each room in the given order.
func (l *Ledger) RoomSummary(rooms []Room) []RoomUsage {
	out := make([]RoomUsage, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomUsage{Room: r, Occupancy: l.RoomOccupancy(r.ID)})
	}
	return out
}
