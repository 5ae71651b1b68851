package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AlexTLDR/charter/internal/signup"
	"github.com/AlexTLDR/charter/internal/student"
)

// Server interface defines the methods needed by handlers
type Server interface {
	GetEngine() *signup.Engine
	GetLogger() *slog.Logger
	// CurrentStudent is the student resolved by the auth middleware.
	CurrentStudent(r *http.Request) student.Student
}

type roomView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Limit     int    `json:"limit"`
	Occupancy int    `json:"occupancy"`
	Usage     string `json:"usage"`
	Full      bool   `json:"full"`
}

type questionView struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	HelpText string `json:"help_text,omitempty"`
	Required bool   `json:"required"`
}

type windowView struct {
	Label string    `json:"label"`
	Open  time.Time `json:"open"`
	Close time.Time `json:"close"`
}

type overviewView struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	Snippet          string         `json:"snippet,omitempty"`
	Date             string         `json:"date"`
	Time             string         `json:"time"`
	GuestLimit       int            `json:"guest_limit"`
	ProspectiveLimit int            `json:"prospective_limit"`
	ProspectiveCount int            `json:"prospective_count"`
	Occupancy        int            `json:"occupancy"`
	Rooms            []roomView     `json:"rooms"`
	Questions        []questionView `json:"questions"`
	Window           windowView     `json:"window"`
	Entry            *entryView     `json:"entry"`
}

func newOverviewView(o *signup.Overview) overviewView {
	ev := o.Event
	v := overviewView{
		ID:               ev.ID,
		Title:            ev.Title,
		Snippet:          ev.Snippet,
		Date:             ev.Date.Format("2006-01-02"),
		Time:             ev.Time.Format("15:04"),
		GuestLimit:       ev.GuestLimit,
		ProspectiveLimit: ev.ProspectiveLimit,
		ProspectiveCount: o.ProspectiveCount,
		Occupancy:        o.Occupancy,
		Rooms:            make([]roomView, 0, len(o.Rooms)),
		Questions:        make([]questionView, 0, len(ev.Questions)),
		Window:           windowView{Label: o.Window.Label, Open: o.Window.Open, Close: o.Window.Close},
		Entry:            newEntryView(o.Entry),
	}
	for _, u := range o.Rooms {
		v.Rooms = append(v.Rooms, roomView{
			ID:        u.Room.ID,
			Name:      u.Room.Name,
			Limit:     u.Room.Limit,
			Occupancy: u.Occupancy,
			Usage:     u.String(),
			Full:      u.Full(),
		})
	}
	for _, q := range ev.Questions {
		v.Questions = append(v.Questions, questionView{ID: q.ID, Text: q.Text, HelpText: q.HelpText, Required: q.Required})
	}
	return v
}

// HandleHealth reports liveness.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HandleEventOverview shows the event, room usage and the student's entry.
func HandleEventOverview(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := eventIDFrom(r)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		o, err := s.GetEngine().Overview(r.Context(), eventID, s.CurrentStudent(r))
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		writeJSON(w, http.StatusOK, newOverviewView(o))
	}
}
