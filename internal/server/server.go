package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/AlexTLDR/charter/internal/clock"
	"github.com/AlexTLDR/charter/internal/config"
	"github.com/AlexTLDR/charter/internal/server/handlers"
	"github.com/AlexTLDR/charter/internal/signup"
	"github.com/AlexTLDR/charter/internal/student"
)

// Directory looks up the persisted record of a logged-in student.
type Directory interface {
	Student(ctx context.Context, netID string) (student.Record, error)
}

type Server struct {
	config       *config.Config
	engine       *signup.Engine
	directory    Directory
	clock        clock.Clock
	logger       *slog.Logger
	sessionStore *sessions.CookieStore
	router       *http.ServeMux
}

// GetEngine implements handlers.Server interface
func (s *Server) GetEngine() *signup.Engine {
	return s.engine
}

// GetLogger implements handlers.Server interface
func (s *Server) GetLogger() *slog.Logger {
	return s.logger
}

func New(cfg *config.Config, engine *signup.Engine, directory Directory, clk clock.Clock, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:       cfg,
		engine:       engine,
		directory:    directory,
		clock:        clk,
		logger:       logger,
		sessionStore: sessions.NewCookieStore([]byte(cfg.SessionSecret)),
		router:       http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /healthz", handlers.HandleHealth())

	// Auth routes
	s.router.HandleFunc("POST /auth/logout", s.handleLogout)

	// Student routes
	s.router.HandleFunc("GET /events/{eventID}", s.requireStudent(handlers.HandleEventOverview(s)))
	s.router.HandleFunc("POST /events/{eventID}/entries", s.requireStudent(handlers.HandleSignup(s)))
	s.router.HandleFunc("DELETE /events/{eventID}/entries/{entryID}", s.requireStudent(handlers.HandleDeleteEntry(s)))
	s.router.HandleFunc("PUT /events/{eventID}/entries/{entryID}/answers", s.requireStudent(handlers.HandleChangeAnswers(s)))
	s.router.HandleFunc("PUT /events/{eventID}/entries/{entryID}/guest", s.requireStudent(handlers.HandleChangeGuest(s)))
	s.router.HandleFunc("PUT /events/{eventID}/entries/{entryID}/room", s.requireStudent(handlers.HandleChangeRoom(s)))

	// Admin routes (protected)
	s.router.HandleFunc("GET /admin/events/{eventID}/roster.csv", s.requireAdmin(handlers.HandleRosterCSV(s)))
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.router)
}
