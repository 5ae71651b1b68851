package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexTLDR/charter/internal/clock"
	"github.com/AlexTLDR/charter/internal/config"
	"github.com/AlexTLDR/charter/internal/signup"
	"github.com/AlexTLDR/charter/internal/student"
	"github.com/AlexTLDR/charter/internal/testing/memstore"
)

const testSecret = "test-session-secret"

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC) }

	store := memstore.New()
	store.AddEvent(signup.Event{
		ID:                     1,
		Title:                  "Spring Formal",
		Date:                   day(28),
		Time:                   time.Date(0, time.January, 1, 19, 30, 0, 0, time.UTC),
		GuestLimit:             1,
		ProspectiveLimit:       5,
		SeniorSignupStart:      day(1),
		JuniorSignupStart:      day(5),
		SophomoreSignupStart:   day(8),
		ProspectiveSignupStart: day(9),
		SignupEnd:              day(20),
		SignupTime:             time.Date(0, time.January, 1, 10, 0, 0, 0, time.UTC),
		Rooms: []signup.Room{
			{ID: 10, EventID: 1, Name: "Library", Limit: 2},
			{ID: 11, EventID: 1, Name: "Dining Room", Limit: 6},
		},
		Questions: []signup.Question{{ID: 100, EventID: 1, Text: "Dietary restrictions?", Position: 1}},
	})
	store.AddStudent(student.Record{NetID: "ada1", FirstName: "Ada", LastName: "Lovelace", ClassYear: 2026})
	store.AddStudent(student.Record{NetID: "gh2", FirstName: "Grace", LastName: "Hopper", ClassYear: 2027})

	cfg := &config.Config{SessionSecret: testSecret, AdminNetIDs: []string{"admin1"}}
	clk := clock.Fixed(testNow)
	engine := signup.NewEngine(store, clk, signup.Options{}, nil)
	return New(cfg, engine, store, clk, slog.New(slog.DiscardHandler)), store
}

// loginCookie forges the session cookie the login service would set.
func loginCookie(t *testing.T, netID string) *http.Cookie {
	t.Helper()
	store := sessions.NewCookieStore([]byte(testSecret))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	session, err := store.Get(req, sessionName)
	require.NoError(t, err)
	session.Values["netid"] = netID
	require.NoError(t, session.Save(req, rec))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func do(t *testing.T, srv *Server, method, path, netID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if netID != "" {
		req.AddCookie(loginCookie(t, netID))
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

type entryJSON struct {
	ID      string `json:"id"`
	RoomID  int64  `json:"room_id"`
	NetID   string `json:"netid"`
	Guest   string `json:"guest"`
	Answers []struct {
		QuestionID int64  `json:"question_id"`
		Text       string `json:"text"`
	} `json:"answers"`
}

type problemJSON struct {
	Status int    `json:"status"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequireStudent(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/events/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = do(t, srv, http.MethodGet, "/events/1", "nobody", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignupFlow(t *testing.T) {
	srv, store := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/events/1/entries", "ada1", map[string]any{
		"room_id":   10,
		"attending": true,
		"answers":   map[string]string{"100": "vegan"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[entryJSON](t, rec)
	assert.Equal(t, "ada1", entry.NetID)
	assert.Equal(t, int64(10), entry.RoomID)
	require.Len(t, entry.Answers, 1)
	assert.Equal(t, "vegan", entry.Answers[0].Text)

	rec = do(t, srv, http.MethodGet, "/events/1", "ada1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[struct {
		Occupancy int `json:"occupancy"`
		Rooms     []struct {
			Usage string `json:"usage"`
		} `json:"rooms"`
		Window struct {
			Label string `json:"label"`
		} `json:"window"`
		Entry *entryJSON `json:"entry"`
	}](t, rec)
	assert.Equal(t, 1, overview.Occupancy)
	assert.Equal(t, "1/2", overview.Rooms[0].Usage)
	assert.Equal(t, "Seniors", overview.Window.Label)
	require.NotNil(t, overview.Entry)
	assert.Equal(t, entry.ID, overview.Entry.ID)

	base := "/events/1/entries/" + entry.ID

	rec = do(t, srv, http.MethodPut, base+"/guest", "ada1", map[string]string{"first_name": "Bob", "last_name": "Smith"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	guest := decode[struct {
		Outcome string    `json:"outcome"`
		Entry   entryJSON `json:"entry"`
	}](t, rec)
	assert.Equal(t, "add", guest.Outcome)
	assert.Equal(t, "Bob Smith", guest.Entry.Guest)

	rec = do(t, srv, http.MethodPut, base+"/room", "ada1", map[string]int{"room_id": 11})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(11), decode[entryJSON](t, rec).RoomID)

	rec = do(t, srv, http.MethodPut, base+"/answers", "ada1", map[string]any{"answers": map[string]string{"100": "none"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "none", decode[entryJSON](t, rec).Answers[0].Text)

	rec = do(t, srv, http.MethodDelete, base, "ada1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.Entries(1))
}

func TestRejectionsAsProblems(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/events/1/entries", "ada1", map[string]any{"room_id": 10, "attending": true, "guest_first_name": "Bob"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[entryJSON](t, rec)

	rec = do(t, srv, http.MethodPost, "/events/1/entries", "gh2", map[string]any{"room_id": 10, "attending": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	p := decode[problemJSON](t, rec)
	assert.Equal(t, "capacity", p.Kind)
	assert.Equal(t, "The room Library has 2/2 people. You cannot add 1 more people.", p.Detail)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, p.Detail, p.Errors[0].Message)

	rec = do(t, srv, http.MethodDelete, "/events/1/entries/"+entry.ID, "gh2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission", decode[problemJSON](t, rec).Kind)

	rec = do(t, srv, http.MethodPost, "/events/1/entries", "gh2", map[string]any{"attending": true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation", decode[problemJSON](t, rec).Kind)
}

func TestBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "event id", method: http.MethodGet, path: "/events/abc", want: http.StatusBadRequest},
		{name: "unknown event", method: http.MethodGet, path: "/events/42", want: http.StatusNotFound},
		{name: "entry id", method: http.MethodDelete, path: "/events/1/entries/not-a-uuid", want: http.StatusBadRequest},
		{name: "unknown entry", method: http.MethodDelete, path: "/events/1/entries/00000000-0000-0000-0000-000000000001", want: http.StatusNotFound},
		{name: "body", method: http.MethodPost, path: "/events/1/entries", body: "not an object", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, "ada1", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRosterCSV(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/events/1/entries", "ada1", map[string]any{
		"room_id":          11,
		"attending":        true,
		"guest_first_name": "Bob",
		"guest_last_name":  "Smith",
		"answers":          map[string]string{"100": "vegan,\nno nuts"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/admin/events/1/roster.csv", "ada1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodGet, "/admin/events/1/roster.csv", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/admin/events/1/roster.csv", "admin1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "roster-1.csv")

	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Room,NetID,Name,Guest,Prospective,Signed up,Dietary restrictions?", lines[0])
	assert.Equal(t, `Dining Room,ada1,Ada Lovelace,Bob Smith,No,2026-03-10 12:00,"vegan, no nuts"`, lines[1])
}

func TestLogout(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/auth/logout", "ada1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
