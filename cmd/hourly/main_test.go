package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/config"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence/sqlite"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence/sqlite/migration"
)

func TestBuildHandlerServesLoginAndCourses(t *testing.T) {
	pool, err := sqlite.NewConnectionPool(migration.DefaultConfig(filepath.Join(t.TempDir(), "hourly.db")))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hash, err := application.CreatePasswordHash("correct horse", application.DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	staff := persistence.Account{
		ID:           "acc-staff",
		Email:        "staff@example.edu",
		DisplayName:  "Staff Member",
		Role:         persistence.RoleStaff,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := sqlite.NewAccountRepository(pool).CreateAccount(ctx, staff); err != nil {
		t.Fatalf("seed staff account: %v", err)
	}

	handler := buildHandler(pool, config.Config{SessionTTL: time.Hour}, nil)

	login := httptest.NewRecorder()
	handler.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/sessions",
		strings.NewReader(`{"email":"staff@example.edu","password":"correct horse"}`)))
	if login.Code != http.StatusCreated {
		t.Fatalf("login status = %d, body %s", login.Code, login.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(login.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if session.Token == "" {
		t.Fatal("login response carries no token")
	}

	courseBody, _ := json.Marshal(map[string]any{
		"name":           "Data Structures",
		"code":           "601.226",
		"timezone":       "America/New_York",
		"slot_durations": []int{15, 30},
	})
	create := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/courses", bytes.NewReader(courseBody))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	handler.ServeHTTP(create, req)
	if create.Code != http.StatusCreated {
		t.Fatalf("create course status = %d, body %s", create.Code, create.Body.String())
	}
	var course struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &course); err != nil {
		t.Fatalf("decode course response: %v", err)
	}

	anonymous := httptest.NewRecorder()
	handler.ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/courses", nil))
	if anonymous.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list status = %d, want 401", anonymous.Code)
	}

	feed := httptest.NewRecorder()
	handler.ServeHTTP(feed, httptest.NewRequest(http.MethodGet, "/courses/"+course.ID+"/calendar.ics", nil))
	if feed.Code != http.StatusOK {
		t.Fatalf("calendar feed status = %d, body %s", feed.Code, feed.Body.String())
	}
	if !strings.Contains(feed.Body.String(), "BEGIN:VCALENDAR") {
		t.Fatalf("calendar feed is not iCalendar: %q", feed.Body.String())
	}
}

func TestRandomHexLengthAndUniqueness(t *testing.T) {
	a := randomHex(32)
	b := randomHex(32)
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("token lengths = %d, %d, want 64", len(a), len(b))
	}
	if a == b {
		t.Fatal("consecutive tokens collide")
	}
}
