package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/AlexTLDR/charter/internal/signup"
)

// escapeCSVField flattens newlines so each entry stays on one spreadsheet row.
func escapeCSVField(field string) string {
	return strings.ReplaceAll(strings.ReplaceAll(field, "\r\n", " "), "\n", " ")
}

// rosterHeader is the fixed columns followed by one column per question.
func rosterHeader(ev *signup.Event) []string {
	header := []string{"Room", "NetID", "Name", "Guest", "Prospective", "Signed up"}
	for _, q := range ev.Questions {
		header = append(header, escapeCSVField(q.Text))
	}
	return header
}

// rosterRow converts an entry to CSV row data
func rosterRow(ev *signup.Event, e signup.Entry) []string {
	room, _ := ev.Room(e.RoomID)
	prospective := "No"
	if e.Prospective {
		prospective = "Yes"
	}
	guest := "-"
	if e.Guest != "" {
		guest = escapeCSVField(e.Guest)
	}

	row := []string{
		room.Name,
		e.NetID,
		escapeCSVField(e.StudentName),
		guest,
		prospective,
		e.CreatedAt.Format("2006-01-02 15:04"),
	}

	answers := make(map[int64]string, len(e.Answers))
	for _, a := range e.Answers {
		answers[a.QuestionID] = a.Text
	}
	for _, q := range ev.Questions {
		row = append(row, escapeCSVField(answers[q.ID]))
	}
	return row
}

// writeCSVHeaders sets HTTP headers for a roster download
func writeCSVHeaders(w http.ResponseWriter, eventID int64) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=roster-%d.csv", eventID))

	// Write UTF-8 BOM for Excel compatibility
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})
}

// HandleRosterCSV exports every entry of an event to CSV
func HandleRosterCSV(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := eventIDFrom(r)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		roster, err := s.GetEngine().Roster(r.Context(), eventID)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		writeCSVHeaders(w, eventID)

		cw := csv.NewWriter(w)
		_ = cw.Write(rosterHeader(roster.Event))
		for _, e := range roster.Entries {
			_ = cw.Write(rosterRow(roster.Event, e))
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			s.GetLogger().ErrorContext(r.Context(), "failed to write roster", "event_id", eventID, "error", err)
		}
	}
}
