package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/AlexTLDR/charter/internal/server/handlers"
	"github.com/AlexTLDR/charter/internal/student"
)

// sessionName is the cookie written by the club's login service.
const sessionName = "auth-session"

type studentKey struct{}

// sessionNetID returns the netid stored in the session, or "".
func (s *Server) sessionNetID(r *http.Request) string {
	session, _ := s.sessionStore.Get(r, sessionName)
	netID, _ := session.Values["netid"].(string)
	return netID
}

// resolveStudent loads the logged-in student and maps them onto a variant
// for the current senior year.
func (s *Server) resolveStudent(r *http.Request) (student.Student, error) {
	netID := s.sessionNetID(r)
	if netID == "" {
		return nil, handlers.NewUnauthorizedError("Please log in to sign up for events.")
	}

	rec, err := s.directory.Student(r.Context(), netID)
	if errors.Is(err, student.ErrNotFound) {
		return nil, handlers.NewForbiddenError("There is no student record for " + netID + ".")
	}
	if err != nil {
		return nil, err
	}

	return student.Resolve(rec, student.SeniorYear(s.clock.Now())), nil
}

// requireStudent is a middleware that resolves the logged-in student
func (s *Server) requireStudent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.resolveStudent(r)
		if err != nil {
			handlers.WriteError(w, r, s.logger, err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), studentKey{}, st)))
	}
}

// CurrentStudent implements handlers.Server interface
func (s *Server) CurrentStudent(r *http.Request) student.Student {
	st, _ := r.Context().Value(studentKey{}).(student.Student)
	return st
}

// requireAdmin is a middleware that checks the session netid is whitelisted
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		netID := s.sessionNetID(r)
		if netID == "" {
			handlers.WriteError(w, r, s.logger, handlers.NewUnauthorizedError("Please log in."))
			return
		}

		if !s.config.IsAdmin(netID) {
			handlers.WriteError(w, r, s.logger, handlers.NewForbiddenError("Admins only."))
			return
		}

		next(w, r)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values["netid"] = ""
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		handlers.WriteError(w, r, s.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
