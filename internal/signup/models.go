package signup

import (
	"time"

	"github.com/google/uuid"
)

// Event is a scheduled club event with its rooms, questions and signup dates.
//
// The four signup starts and SignupEnd are calendar dates; each is combined
// with the shared SignupTime to form an instant in the reference zone.
type Event struct {
	ID      int64
	Title   string
	Snippet string
	Date    time.Time
	Time    time.Time

	// GuestLimit: 0 = no guests, -1 = unlimited, N = max guests per student.
	GuestLimit       int
	ProspectiveLimit int

	SeniorSignupStart      time.Time
	JuniorSignupStart      time.Time
	SophomoreSignupStart   time.Time
	ProspectiveSignupStart time.Time
	SignupEnd              time.Time
	SignupTime             time.Time

	Rooms     []Room
	Questions []Question
}

// Room returns the event's room with the given id.
func (e *Event) Room(id int64) (Room, bool) {
	for _, r := range e.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

type Room struct {
	ID      int64
	EventID int64
	Name    string
	Limit   int
}

type Question struct {
	ID       int64
	EventID  int64
	Text     string
	HelpText string
	Required bool
	Position int
}

// Entry is one student's committed signup for an event.
type Entry struct {
	ID          uuid.UUID
	EventID     int64
	RoomID      int64
	NetID       string
	StudentName string
	Prospective bool
	Guest       string
	Answers     []Answer
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// People counts the entrant plus their guest, if any.
func (e Entry) People() int {
	if e.Guest != "" {
		return 2
	}
	return 1
}

type Answer struct {
	QuestionID int64
	Text       string
}
