// Package signup is the event-entry admission engine.
//
// The engine decides whether a student may sign up for an event, change their
// guest, change rooms, edit their answers or withdraw. Each operation reads
// the event and its entries through a Store transaction, validates the request
// against the signup windows and the capacity ledger, and only then writes.
// A rejected request returns a *Rejection and leaves the store untouched.
package signup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/AlexTLDR/charter/internal/clock"
	"github.com/AlexTLDR/charter/internal/student"
)

var tracer = otel.Tracer("github.com/AlexTLDR/charter/internal/signup")

// Options tune the engine's window resolution.
type Options struct {
	SophomoreWindow SophomoreWindow
	// Location is the reference zone signup dates are interpreted in.
	Location *time.Location
}

// Engine admits or rejects signup requests.
type Engine struct {
	store  Store
	clock  clock.Clock
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an engine over store. A nil logger discards logs.
func NewEngine(store Store, clk clock.Clock, opts Options, logger *slog.Logger) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SophomoreWindow == "" {
		opts.SophomoreWindow = SophomoreUsesJunior
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: store, clock: clk, opts: opts, logger: logger}
}

// SignupRequest asks to create or modify the student's entry for an event.
type SignupRequest struct {
	Student        student.Student
	EventID        int64
	RoomID         int64
	Attending      bool
	GuestFirstName string
	GuestLastName  string
	// Answers maps question IDs to answer text.
	Answers map[int64]string
}

// GuestName is the trimmed "first last" guest name, or "" for no guest.
func (r SignupRequest) GuestName() string {
	return guestName(r.GuestFirstName, r.GuestLastName)
}

func guestName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// Signup admits a new entry, or modifies the student's existing one.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*Entry, error) {
	netID := req.Student.Ident().NetID
	ctx, span := tracer.Start(ctx, "signup.Signup", trace.WithAttributes(
		attribute.Int64("event.id", req.EventID),
		attribute.String("student.variant", string(req.Student.Variant())),
	))
	defer span.End()

	var saved *Entry
	err := e.store.InEvent(ctx, req.EventID, func(ctx context.Context, tx Tx) error {
		ev, err := tx.Event(ctx)
		if err != nil {
			return err
		}
		entries, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		ledger := NewLedger(entries)

		entry, err := e.admit(ev, ledger, req, e.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.ReplaceAnswers(ctx, entry.ID, entry.Answers); err != nil {
			return err
		}
		removed, err := restoreSingleEntry(ctx, tx, ledger.EntriesOf(netID), entry.ID)
		if err != nil {
			return err
		}
		if removed > 0 {
			e.logger.Info("removed duplicate entries", "event_id", req.EventID, "netid", netID, "count", removed)
		}
		saved = entry
		return nil
	})
	e.finish(span, "signup", netID, req.EventID, err)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// admit runs every signup check in order and returns the entry to persist.
func (e *Engine) admit(ev *Event, ledger *Ledger, req SignupRequest, now time.Time) (*Entry, error) {
	s := req.Student
	netID := s.Ident().NetID

	if req.RoomID == 0 {
		return nil, reject(KindValidation, "Please choose a room.")
	}
	room, ok := ev.Room(req.RoomID)
	if !ok {
		return nil, reject(KindValidation, "Room %d is not available for %q.", req.RoomID, ev.Title)
	}

	if !req.Attending {
		return nil, reject(KindValidation, "Use the delete option to remove your RSVP.")
	}

	if !student.CanRSVP(s) {
		return nil, reject(KindPermission, "You are not allowed to attend events. Sorry :/")
	}

	prior := ledger.EntriesOf(netID)

	if s.Variant() == student.VariantProspective {
		if strings.TrimSpace(req.GuestFirstName) != "" || strings.TrimSpace(req.GuestLastName) != "" {
			return nil, reject(KindValidation, "Sorry! Prospectives are not allowed to bring guests.")
		}
		count := ledger.ProspectiveCount()
		joining := count
		if len(prior) == 0 {
			joining++
		}
		if joining > ev.ProspectiveLimit {
			return nil, reject(KindCapacity, "Sorry! The cap for prospectives (%d/%d) has been reached.", count, ev.ProspectiveLimit)
		}
	}

	if err := ev.CheckWindows(e.opts.Location); err != nil {
		return nil, err
	}
	if err := WindowFor(ev, s.Variant(), e.opts.SophomoreWindow, e.opts.Location).Check(now); err != nil {
		return nil, err
	}

	guest := req.GuestName()
	if ledger.HasEntry(netID, guest) {
		return nil, reject(KindDuplicate, "We already got a submission with this (member, guest) pair. To modify a previous submission, use the modify option.")
	}

	if guest != "" {
		if err := checkGuestLimit(ev, ledger.GuestsOf(netID)); err != nil {
			return nil, err
		}
	}

	var replaced *Entry
	if len(prior) > 0 {
		replaced = &prior[0]
		if replaced.RoomID != room.ID {
			old, _ := ev.Room(replaced.RoomID)
			return nil, reject(KindConsistency, "You must accompany your previous guests in room %s. If you want to change rooms, first choose %s then use the room change option to move yourself and all of your guests.", old.Name, old.Name)
		}
	}

	additional := 1
	if guest != "" {
		additional = 2
	}
	occupancy := ledger.RoomOccupancy(room.ID)
	if replaced != nil {
		occupancy -= replaced.People()
	}
	if additional+occupancy > room.Limit {
		return nil, reject(KindCapacity, "The room %s has %d/%d people. You cannot add %d more people.", room.Name, occupancy, room.Limit, additional)
	}

	answers, err := collectAnswers(ev.Questions, nil, req.Answers)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:          uuid.New(),
		EventID:     ev.ID,
		NetID:       netID,
		StudentName: s.Ident().FullName(),
		Prospective: s.Variant() == student.VariantProspective,
		CreatedAt:   now,
	}
	if replaced != nil {
		*entry = *replaced
	}
	entry.RoomID = room.ID
	entry.Guest = guest
	entry.Answers = answers
	entry.UpdatedAt = now
	return entry, nil
}

// checkGuestLimit rejects one more guest when the student is at the limit.
func checkGuestLimit(ev *Event, guests []string) error {
	switch {
	case ev.GuestLimit < -1:
		return reject(KindValidation, "The guest limit of %q is set to %d, which is not a valid limit.", ev.Title, ev.GuestLimit)
	case ev.GuestLimit == -1:
		return nil
	case len(guests) >= ev.GuestLimit:
		return reject(KindCapacity, "The guest limit is %d. You already have %s as your guests", ev.GuestLimit, quoteAll(guests))
	}
	return nil
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// collectAnswers builds one answer per question in question order. Text from
// updates wins; questions missing from updates keep their current text.
func collectAnswers(questions []Question, current []Answer, updates map[int64]string) ([]Answer, error) {
	existing := make(map[int64]string, len(current))
	for _, a := range current {
		existing[a.QuestionID] = a.Text
	}

	answers := make([]Answer, 0, len(questions))
	for _, q := range questions {
		text, ok := updates[q.ID]
		if !ok {
			text = existing[q.ID]
		}
		text = strings.TrimSpace(text)
		if q.Required && text == "" {
			return nil, reject(KindValidation, "Please answer %q.", q.Text)
		}
		answers = append(answers, Answer{QuestionID: q.ID, Text: text})
	}
	return answers, nil
}

// restoreSingleEntry deletes the student's guest-less sibling entries after
// keep was saved, so the student is left with one entry for the event. It is a
// guard for rows written before entries were unique per student; both shipped
// stores refuse a second entry for the same student, so it finds nothing to
// remove on data they wrote.
func restoreSingleEntry(ctx context.Context, tx Tx, prior []Entry, keep uuid.UUID) (int, error) {
	removed := 0
	for _, sibling := range prior {
		if sibling.ID == keep || sibling.Guest != "" {
			continue
		}
		if err := tx.DeleteEntry(ctx, sibling.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

var fold = cases.Fold()

// sameGuest compares guest names ignoring case and surrounding space.
func sameGuest(a, b string) bool {
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

// finish records the outcome of an operation on its span and in the log.
func (e *Engine) finish(span trace.Span, op, netID string, eventID int64, err error) {
	log := e.logger.With("op", op, "event_id", eventID, "netid", netID)
	if err == nil {
		log.Info("request admitted")
		return
	}
	if r, ok := AsRejection(err); ok {
		span.SetAttributes(attribute.String("signup.rejection", string(r.Kind)))
		log.Info("request rejected", "kind", r.Kind, "reason", r.Message)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrEntryNotFound) {
		log.Debug("request target not found", "error", err)
		return
	}
	log.Error("request failed", "error", err)
}
