package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AlexTLDR/charter/internal/student"
)

// Student looks up a student record by netid.
func (db *DB) Student(ctx context.Context, netID string) (student.Record, error) {
	rec := student.Record{NetID: netID}
	err := db.QueryRowContext(ctx,
		`SELECT first_name, last_name, class_year, prospective, allow_rsvp
		 FROM students WHERE netid = $1`,
		netID,
	).Scan(&rec.FirstName, &rec.LastName, &rec.ClassYear, &rec.Prospective, &rec.AllowRSVP)
	if errors.Is(err, sql.ErrNoRows) {
		return student.Record{}, student.ErrNotFound
	}
	if err != nil {
		return student.Record{}, fmt.Errorf("failed to get student: %w", err)
	}
	return rec, nil
}

// UpsertStudent creates or refreshes a student record.
func (db *DB) UpsertStudent(ctx context.Context, rec student.Record) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO students (netid, first_name, last_name, class_year, prospective, allow_rsvp)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (netid) DO UPDATE
		 SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		     class_year = EXCLUDED.class_year, prospective = EXCLUDED.prospective,
		     allow_rsvp = EXCLUDED.allow_rsvp`,
		rec.NetID, rec.FirstName, rec.LastName, rec.ClassYear, rec.Prospective, rec.AllowRSVP,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
