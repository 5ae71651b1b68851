package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AlexTLDR/charter/internal/signup"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Event loads the event with its rooms and questions.
func (t *eventTx) Event(ctx context.Context) (*signup.Event, error) {
	ev := &signup.Event{ID: t.eventID}
	err := t.tx.QueryRowContext(ctx,
		`SELECT title, snippet, event_date, event_time, guest_limit, prospective_limit,
		        senior_signup_start, junior_signup_start, sophomore_signup_start,
		        prospective_signup_start, signup_end, signup_time
		 FROM events WHERE id = $1`,
		t.eventID,
	).Scan(&ev.Title, &ev.Snippet, &ev.Date, &ev.Time, &ev.GuestLimit, &ev.ProspectiveLimit,
		&ev.SeniorSignupStart, &ev.JuniorSignupStart, &ev.SophomoreSignupStart,
		&ev.ProspectiveSignupStart, &ev.SignupEnd, &ev.SignupTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, signup.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if ev.Rooms, err = t.rooms(ctx); err != nil {
		return nil, err
	}
	if ev.Questions, err = t.questions(ctx); err != nil {
		return nil, err
	}
	return ev, nil
}

func (t *eventTx) rooms(ctx context.Context) ([]signup.Room, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, name, room_limit FROM rooms WHERE event_id = $1 ORDER BY position, id`,
		t.eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []signup.Room
	for rows.Next() {
		r := signup.Room{EventID: t.eventID}
		if err := rows.Scan(&r.ID, &r.Name, &r.Limit); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (t *eventTx) questions(ctx context.Context) ([]signup.Question, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, text, help_text, required, position
		 FROM questions WHERE event_id = $1 ORDER BY position, id`,
		t.eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []signup.Question
	for rows.Next() {
		q := signup.Question{EventID: t.eventID}
		if err := rows.Scan(&q.ID, &q.Text, &q.HelpText, &q.Required, &q.Position); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateEvent inserts an event with its rooms and questions and fills in the
// generated IDs.
func (db *DB) CreateEvent(ctx context.Context, ev *signup.Event) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (title, snippet, event_date, event_time, guest_limit, prospective_limit,
		                     senior_signup_start, junior_signup_start, sophomore_signup_start,
		                     prospective_signup_start, signup_end, signup_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		ev.Title, ev.Snippet, ev.Date.Format(dateLayout), ev.Time.Format(timeLayout),
		ev.GuestLimit, ev.ProspectiveLimit,
		ev.SeniorSignupStart.Format(dateLayout), ev.JuniorSignupStart.Format(dateLayout),
		ev.SophomoreSignupStart.Format(dateLayout), ev.ProspectiveSignupStart.Format(dateLayout),
		ev.SignupEnd.Format(dateLayout), ev.SignupTime.Format(timeLayout),
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	for i := range ev.Rooms {
		r := &ev.Rooms[i]
		r.EventID = ev.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO rooms (event_id, name, room_limit, position) VALUES ($1, $2, $3, $4) RETURNING id`,
			ev.ID, r.Name, r.Limit, i,
		).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
	}

	for i := range ev.Questions {
		q := &ev.Questions[i]
		q.EventID = ev.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO questions (event_id, text, help_text, required, position)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			ev.ID, q.Text, q.HelpText, q.Required, q.Position,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
