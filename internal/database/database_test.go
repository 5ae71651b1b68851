package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexTLDR/charter/internal/clock"
	"github.com/AlexTLDR/charter/internal/signup"
	"github.com/AlexTLDR/charter/internal/student"
)

// openTestDB connects to CHARTER_TEST_DATABASE_URL, migrates it and returns a
// DB. Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("CHARTER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CHARTER_TEST_DATABASE_URL not set")
	}

	db, err := New(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func seedEvent(t *testing.T, db *DB, roomLimit int) *signup.Event {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC) }
	ev := &signup.Event{
		Title:                  "Spring Formal " + t.Name(),
		Date:                   day(28),
		Time:                   time.Date(0, time.January, 1, 19, 30, 0, 0, time.UTC),
		GuestLimit:             1,
		ProspectiveLimit:       2,
		SeniorSignupStart:      day(1),
		JuniorSignupStart:      day(5),
		SophomoreSignupStart:   day(8),
		ProspectiveSignupStart: day(9),
		SignupEnd:              day(20),
		SignupTime:             time.Date(0, time.January, 1, 10, 0, 0, 0, time.UTC),
		Rooms:                  []signup.Room{{Name: "Library", Limit: roomLimit}},
		Questions:              []signup.Question{{Text: "Dietary restrictions?", Position: 1}},
	}
	require.NoError(t, db.CreateEvent(context.Background(), ev))
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM events WHERE id = $1`, ev.ID)
	})
	return ev
}

func seedStudent(t *testing.T, db *DB, netID string) student.Record {
	t.Helper()
	rec := student.Record{NetID: netID, FirstName: "Ada", LastName: netID, ClassYear: 2026}
	require.NoError(t, db.UpsertStudent(context.Background(), rec))
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM students WHERE netid = $1`, netID)
	})
	return rec
}

func TestEventRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ev := seedEvent(t, db, 3)

	var got *signup.Event
	err := db.InEvent(context.Background(), ev.ID, func(ctx context.Context, tx signup.Tx) error {
		var err error
		got, err = tx.Event(ctx)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, ev.Title, got.Title)
	require.Len(t, got.Rooms, 1)
	assert.Equal(t, 3, got.Rooms[0].Limit)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, 10, got.SignupTime.Hour())
	assert.Equal(t, 20, got.SignupEnd.Day())
}

func TestInEventUnknownEvent(t *testing.T) {
	db := openTestDB(t)

	err := db.InEvent(context.Background(), -1, func(ctx context.Context, tx signup.Tx) error {
		return nil
	})
	assert.ErrorIs(t, err, signup.ErrEventNotFound)
}

func TestReadEventDoesNotWaitForLock(t *testing.T) {
	db := openTestDB(t)
	ev := seedEvent(t, db, 3)

	err := db.InEvent(context.Background(), ev.ID, func(ctx context.Context, tx signup.Tx) error {
		readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.ReadEvent(readCtx, ev.ID, func(ctx context.Context, snap signup.Snapshot) error {
			got, err := snap.Event(ctx)
			if err != nil {
				return err
			}
			assert.Equal(t, ev.Title, got.Title)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestReadEventUnknownEvent(t *testing.T) {
	db := openTestDB(t)

	err := db.ReadEvent(context.Background(), -1, func(ctx context.Context, snap signup.Snapshot) error {
		_, err := snap.Event(ctx)
		return err
	})
	assert.ErrorIs(t, err, signup.ErrEventNotFound)
}

func TestStudentDirectory(t *testing.T) {
	db := openTestDB(t)
	rec := seedStudent(t, db, "dbtest-dir")

	got, err := db.Student(context.Background(), rec.NetID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = db.Student(context.Background(), "dbtest-missing")
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func TestEngineAgainstPostgres(t *testing.T) {
	db := openTestDB(t)
	ev := seedEvent(t, db, 2)
	rec := seedStudent(t, db, "dbtest-s1")

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	engine := signup.NewEngine(db, clock.Fixed(now), signup.Options{}, nil)
	s := student.Resolve(rec, student.SeniorYear(now))
	ctx := context.Background()

	entry, err := engine.Signup(ctx, signup.SignupRequest{
		Student:        s,
		EventID:        ev.ID,
		RoomID:         ev.Rooms[0].ID,
		Attending:      true,
		GuestFirstName: "Bob",
		GuestLastName:  "Smith",
		Answers:        map[int64]string{ev.Questions[0].ID: "none"},
	})
	require.NoError(t, err)

	roster, err := engine.Roster(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, roster.Entries, 1)
	assert.Equal(t, entry.ID, roster.Entries[0].ID)
	assert.Equal(t, "Ada dbtest-s1", roster.Entries[0].StudentName)
	assert.Equal(t, []signup.Answer{{QuestionID: ev.Questions[0].ID, Text: "none"}}, roster.Entries[0].Answers)
	assert.Equal(t, "2/2", roster.Rooms[0].String())

	require.NoError(t, engine.Delete(ctx, signup.EntryRequest{Student: s, EventID: ev.ID, EntryID: entry.ID}))
	roster, err = engine.Roster(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, roster.Entries)
}

func TestConcurrentAdmissionsRespectRoomLimit(t *testing.T) {
	db := openTestDB(t)
	ev := seedEvent(t, db, 3)
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	engine := signup.NewEngine(db, clock.Fixed(now), signup.Options{}, nil)

	netIDs := []string{"dbtest-c1", "dbtest-c2", "dbtest-c3", "dbtest-c4", "dbtest-c5", "dbtest-c6"}
	var wg sync.WaitGroup
	for _, netID := range netIDs {
		rec := seedStudent(t, db, netID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.Signup(context.Background(), signup.SignupRequest{
				Student:   student.Resolve(rec, student.SeniorYear(now)),
				EventID:   ev.ID,
				RoomID:    ev.Rooms[0].ID,
				Attending: true,
			})
		}()
	}
	wg.Wait()

	roster, err := engine.Roster(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, roster.Rooms[0].Occupancy, 3)
}

func TestIsSerializationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "serialization", err: &pq.Error{Code: "40001"}, want: true},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: true},
		{name: "wrapped", err: fmt.Errorf("failed to save entry: %w", &pq.Error{Code: "40001"}), want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSerializationFailure(tt.err))
		})
	}
}
