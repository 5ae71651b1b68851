package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/AlexTLDR/charter/internal/signup"
)

//go:embed migrations/*.sql
var migrations embed.FS

// maxTxAttempts bounds how often a transaction is replayed after a
// serialization failure.
const maxTxAttempts = 5

type DB struct {
	*sql.DB
}

func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close() // Ignore close error, we're already returning ping error
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// InEvent implements signup.Store. The event row is locked for the whole
// serializable transaction; conflicts with concurrent admissions replay fn.
func (db *DB) InEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx signup.Tx) error) error {
	backoff := retry.WithMaxRetries(maxTxAttempts-1, retry.NewExponential(20*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := db.inEvent(ctx, eventID, fn)
		if isSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (db *DB) inEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx signup.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return signup.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock event: %w", err)
	}

	if err := fn(ctx, &eventTx{tx: tx, eventID: eventID}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReadEvent implements signup.Store with a read-only snapshot transaction.
// The event row is not locked, so readers never queue behind admissions.
func (db *DB) ReadEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, snap signup.Snapshot) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &eventTx{tx: tx, eventID: eventID}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit read transaction: %w", err)
	}
	return nil
}

// isSerializationFailure reports SQLSTATE serialization_failure or
// deadlock_detected.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// eventTx implements signup.Tx on top of a *sql.Tx.
type eventTx struct {
	tx      *sql.Tx
	eventID int64
}
