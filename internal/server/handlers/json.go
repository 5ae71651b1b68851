package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AlexTLDR/charter/internal/signup"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return NewBadRequestError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// parseID parses an ID string and returns an error if invalid
func parseID(idStr string) (int64, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID format: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid ID: must be positive")
	}
	return id, nil
}

func eventIDFrom(r *http.Request) (int64, error) {
	id, err := parseID(r.PathValue("eventID"))
	if err != nil {
		return 0, NewBadRequestError("eventID", err.Error())
	}
	return id, nil
}

func entryIDFrom(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("entryID"))
	if err != nil {
		return uuid.Nil, NewBadRequestError("entryID", "invalid entry ID")
	}
	return id, nil
}

type answerView struct {
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
}

type entryView struct {
	ID          uuid.UUID    `json:"id"`
	EventID     int64        `json:"event_id"`
	RoomID      int64        `json:"room_id"`
	NetID       string       `json:"netid"`
	StudentName string       `json:"student_name"`
	Prospective bool         `json:"prospective"`
	Guest       string       `json:"guest"`
	Answers     []answerView `json:"answers"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func newEntryView(e *signup.Entry) *entryView {
	if e == nil {
		return nil
	}
	answers := make([]answerView, 0, len(e.Answers))
	for _, a := range e.Answers {
		answers = append(answers, answerView{QuestionID: a.QuestionID, Text: a.Text})
	}
	return &entryView{
		ID:          e.ID,
		EventID:     e.EventID,
		RoomID:      e.RoomID,
		NetID:       e.NetID,
		StudentName: e.StudentName,
		Prospective: e.Prospective,
		Guest:       e.Guest,
		Answers:     answers,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
