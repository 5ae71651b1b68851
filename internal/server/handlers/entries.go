package handlers

import (
	"net/http"

	"github.com/AlexTLDR/charter/internal/signup"
)

// signupBody is the create/modify request; answers are keyed by question ID.
type signupBody struct {
	RoomID         int64            `json:"room_id"`
	Attending      bool             `json:"attending"`
	GuestFirstName string           `json:"guest_first_name"`
	GuestLastName  string           `json:"guest_last_name"`
	Answers        map[int64]string `json:"answers"`
}

type answersBody struct {
	Answers map[int64]string `json:"answers"`
}

type guestBody struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type roomBody struct {
	RoomID int64 `json:"room_id"`
}

type guestResult struct {
	Outcome signup.GuestOutcome `json:"outcome"`
	Entry   *entryView          `json:"entry"`
}

// entryRequest reads the event and entry IDs for the current student.
func entryRequest(s Server, r *http.Request) (signup.EntryRequest, error) {
	eventID, err := eventIDFrom(r)
	if err != nil {
		return signup.EntryRequest{}, err
	}
	entryID, err := entryIDFrom(r)
	if err != nil {
		return signup.EntryRequest{}, err
	}
	return signup.EntryRequest{Student: s.CurrentStudent(r), EventID: eventID, EntryID: entryID}, nil
}

// HandleSignup creates or modifies the current student's entry.
func HandleSignup(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := eventIDFrom(r)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		var body signupBody
		if err := decodeJSON(r, &body); err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		entry, err := s.GetEngine().Signup(r.Context(), signup.SignupRequest{
			Student:        s.CurrentStudent(r),
			EventID:        eventID,
			RoomID:         body.RoomID,
			Attending:      body.Attending,
			GuestFirstName: body.GuestFirstName,
			GuestLastName:  body.GuestLastName,
			Answers:        body.Answers,
		})
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		writeJSON(w, http.StatusCreated, newEntryView(entry))
	}
}

// HandleDeleteEntry withdraws the current student's entry.
func HandleDeleteEntry(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := entryRequest(s, r)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		if err := s.GetEngine().Delete(r.Context(), req); err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleChangeAnswers(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := entryRequest(s, r)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		var body answersBody
		if err := decodeJSON(r, &body); err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		entry, err := s.GetEngine().ChangeAnswers(r.Context(), signup.AnswersRequest{EntryRequest: req, Answers: body.Answers})
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		writeJSON(w, http.StatusOK, newEntryView(entry))
	}
}

// HandleChangeGuest removes, swaps or adds the entry's guest. An empty name
// removes the guest.
func HandleChangeGuest(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := entryRequest(s, r)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		var body guestBody
		if err := decodeJSON(r, &body); err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		entry, outcome, err := s.GetEngine().ChangeGuest(r.Context(), signup.GuestRequest{
			EntryRequest: req,
			FirstName:    body.FirstName,
			LastName:     body.LastName,
		})
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		writeJSON(w, http.StatusOK, guestResult{Outcome: outcome, Entry: newEntryView(entry)})
	}
}

func HandleChangeRoom(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := entryRequest(s, r)
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		var body roomBody
		if err := decodeJSON(r, &body); err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		entry, err := s.GetEngine().ChangeRoom(r.Context(), signup.RoomRequest{EntryRequest: req, RoomID: body.RoomID})
		if err != nil {
			WriteError(w, r, s.GetLogger(), err)
			return
		}

		writeJSON(w, http.StatusOK, newEntryView(entry))
	}
}
