package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AlexTLDR/charter/internal/signup"
)

// Entries lists the event's entries with student details and answers.
func (t *eventTx) Entries(ctx context.Context) ([]signup.Entry, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT e.id, e.room_id, e.student_netid, s.first_name, s.last_name, s.prospective,
		        e.guest, e.created_at, e.updated_at
		 FROM entries e
		 JOIN students s ON s.netid = e.student_netid
		 WHERE e.event_id = $1
		 ORDER BY e.created_at, e.id`,
		t.eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var (
		entries []signup.Entry
		index   = make(map[uuid.UUID]int)
	)
	for rows.Next() {
		var (
			e           = signup.Entry{EventID: t.eventID}
			first, last string
		)
		if err := rows.Scan(&e.ID, &e.RoomID, &e.NetID, &first, &last, &e.Prospective,
			&e.Guest, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.StudentName = fullName(first, last)
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	answers, err := t.tx.QueryContext(ctx,
		`SELECT a.entry_id, a.question_id, a.text
		 FROM answers a
		 JOIN entries e ON e.id = a.entry_id
		 JOIN questions q ON q.id = a.question_id
		 WHERE e.event_id = $1
		 ORDER BY q.position, q.id`,
		t.eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer answers.Close()

	for answers.Next() {
		var (
			entryID uuid.UUID
			a       signup.Answer
		)
		if err := answers.Scan(&entryID, &a.QuestionID, &a.Text); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if i, ok := index[entryID]; ok {
			entries[i].Answers = append(entries[i].Answers, a)
		}
	}
	if err := answers.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate answers: %w", err)
	}
	return entries, nil
}

// SaveEntry inserts the entry or updates its room and guest.
func (t *eventTx) SaveEntry(ctx context.Context, e *signup.Entry) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO entries (id, event_id, room_id, student_netid, guest, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET room_id = EXCLUDED.room_id, guest = EXCLUDED.guest, updated_at = EXCLUDED.updated_at`,
		e.ID, t.eventID, e.RoomID, e.NetID, e.Guest, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// DeleteEntry removes the entry; its answers go with it.
func (t *eventTx) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	result, err := t.tx.ExecContext(ctx,
		`DELETE FROM entries WHERE id = $1 AND event_id = $2`,
		id, t.eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return signup.ErrEntryNotFound
	}
	return nil
}

func (t *eventTx) ReplaceAnswers(ctx context.Context, entryID uuid.UUID, answers []signup.Answer) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM answers WHERE entry_id = $1`, entryID); err != nil {
		return fmt.Errorf("failed to clear answers: %w", err)
	}

	for _, a := range answers {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO answers (entry_id, question_id, text) VALUES ($1, $2, $3)`,
			entryID, a.QuestionID, a.Text,
		)
		if err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
	}
	return nil
}
