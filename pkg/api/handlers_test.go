package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/opsfloor/sophub/pkg/ai"
	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/observability"
)

const testSchema = `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'contributor',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE teams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		department TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE user_teams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		team_id INTEGER NOT NULL,
		UNIQUE(user_id, team_id)
	);
	CREATE TABLE sops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sop_key TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		version INTEGER NOT NULL DEFAULT 1,
		content_md TEXT,
		content_json TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE sop_allowed_teams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sop_id INTEGER NOT NULL,
		team_id INTEGER NOT NULL,
		UNIQUE(sop_id, team_id)
	);
	CREATE TABLE runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sop_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		passed BOOLEAN,
		exception_note TEXT
	);
	CREATE TABLE run_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		step_no INTEGER NOT NULL,
		checked_at TIMESTAMP,
		UNIQUE(run_id, step_no)
	);
	CREATE TABLE suggestions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sop_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		raw_text TEXT NOT NULL,
		ai_summary TEXT,
		ai_changeset_json TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		created_at TIMESTAMP NOT NULL
	);
`

func setupServer(t *testing.T) (*Server, *mux.Router, *sql.DB) {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if _, err := conn.Exec(testSchema); err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	client := ai.NewClient("", "gemini-2.0-flash", time.Second) // not configured
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	server := NewServer(conn, issuer, client, logger)
	return server, server.Router(), conn
}

func seedUser(t *testing.T, s *Server, email string, role auth.Role) (*auth.User, string) {
	t.Helper()
	user, err := s.users.CreateUser(context.Background(), "Test User", email, role)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return user, token
}

func pathf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

func doRequest(t *testing.T, router *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dest); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, router, _ := setupServer(t)

	w := doRequest(t, router, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestLogin_ProvisionsUser(t *testing.T) {
	_, router, _ := setupServer(t)

	w := doRequest(t, router, "POST", "/auth/login", "", map[string]string{
		"email": "new.hire@example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string     `json:"token"`
		User  *auth.User `json:"user"`
	}
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Role != auth.RoleContributor {
		t.Errorf("expected contributor role, got %s", resp.User.Role)
	}
	if resp.User.Name != "new.hire" {
		t.Errorf("expected name from email local part, got %q", resp.User.Name)
	}

	// The token works against /auth/me
	me := doRequest(t, router, "GET", "/auth/me", resp.Token, nil)
	if me.Code != http.StatusOK {
		t.Errorf("expected 200 from /auth/me, got %d", me.Code)
	}
}

func TestLogin_MissingEmail(t *testing.T) {
	_, router, _ := setupServer(t)

	w := doRequest(t, router, "POST", "/auth/login", "", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	_, router, _ := setupServer(t)

	w := doRequest(t, router, "GET", "/sops", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

func TestSopLifecycle(t *testing.T) {
	s, router, _ := setupServer(t)
	_, editorToken := seedUser(t, s, "editor@example.com", auth.RoleEditor)
	_, contribToken := seedUser(t, s, "contrib@example.com", auth.RoleContributor)

	// Contributors cannot create SOPs
	w := doRequest(t, router, "POST", "/sops", contribToken, map[string]string{
		"sop_key": "k1", "title": "T",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for contributor create, got %d", w.Code)
	}

	// Editors can
	w = doRequest(t, router, "POST", "/sops", editorToken, map[string]string{
		"sop_key": "lockout", "title": "Lockout", "content_md": "# Steps",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Duplicate key conflicts
	w = doRequest(t, router, "POST", "/sops", editorToken, map[string]string{
		"sop_key": "lockout", "title": "Again",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate key, got %d", w.Code)
	}

	// Anyone authenticated can read an unrestricted SOP
	w = doRequest(t, router, "GET", "/sops/lockout", contribToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	// Update bumps version
	w = doRequest(t, router, "PUT", "/sops/lockout", editorToken, map[string]string{
		"title": "Lockout v2", "content_md": "# Steps v2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated struct {
		Version int    `json:"version"`
		Status  string `json:"status"`
	}
	decodeBody(t, w, &updated)
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}

	// Publish
	w = doRequest(t, router, "POST", "/sops/lockout/publish", editorToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	decodeBody(t, w, &updated)
	if updated.Status != "published" || updated.Version != 3 {
		t.Errorf("expected published v3, got %s v%d", updated.Status, updated.Version)
	}

	// Editors cannot delete; missing SOP is 404 before any access concern
	w = doRequest(t, router, "DELETE", "/sops/lockout", editorToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for editor delete, got %d", w.Code)
	}
	w = doRequest(t, router, "GET", "/sops/missing", contribToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing key, got %d", w.Code)
	}
}

func TestSopVisibility(t *testing.T) {
	s, router, _ := setupServer(t)
	_, leadToken := seedUser(t, s, "lead@example.com", auth.RoleDeptLead)
	outsider, outsiderToken := seedUser(t, s, "outsider@example.com", auth.RoleContributor)
	_, adminToken := seedUser(t, s, "admin@example.com", auth.RoleAdmin)

	w := doRequest(t, router, "POST", "/sops", leadToken, map[string]string{
		"sop_key": "restricted", "title": "Restricted",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &created)

	// Restrict it to team 1 via the admin surface
	w = doRequest(t, router, "POST", "/teams", adminToken, map[string]string{"name": "ops"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating team, got %d: %s", w.Code, w.Body.String())
	}
	var team struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &team)

	w = doRequest(t, router, "POST",
		pathf("/admin/sops/%d/teams", created.ID), adminToken, map[string]int64{"team_id": team.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 assigning team, got %d: %s", w.Code, w.Body.String())
	}

	// Outsider gets 403 with the canonical message, admin still sees it
	w = doRequest(t, router, "GET", "/sops/restricted", outsiderToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	decodeBody(t, w, &errResp)
	if errResp.Error != "SOP not assigned to your teams" {
		t.Errorf("unexpected error message: %q", errResp.Error)
	}

	w = doRequest(t, router, "GET", "/sops/restricted", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}

	// Membership makes it visible
	w = doRequest(t, router, "POST",
		pathf("/admin/users/%d/teams", outsider.ID), adminToken, map[string]int64{"team_id": team.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 assigning membership, got %d", w.Code)
	}
	w = doRequest(t, router, "GET", "/sops/restricted", outsiderToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 after membership, got %d", w.Code)
	}

	// Listing matches the point reads
	w = doRequest(t, router, "GET", "/sops", outsiderToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []struct {
		SopKey string `json:"sop_key"`
	}
	decodeBody(t, w, &list)
	if len(list) != 1 || list[0].SopKey != "restricted" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestAdminEndpoints_RequireAdmin(t *testing.T) {
	s, router, _ := setupServer(t)
	user, token := seedUser(t, s, "lead@example.com", auth.RoleDeptLead)

	w := doRequest(t, router, "POST",
		pathf("/admin/users/%d/role", user.ID), token, map[string]string{"role": "editor"})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", w.Code)
	}

	w = doRequest(t, router, "POST", "/teams", token, map[string]string{"name": "ops"})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin team create, got %d", w.Code)
	}
}

func TestAdminAssignment_IdempotentAndChecked(t *testing.T) {
	s, router, _ := setupServer(t)
	user, _ := seedUser(t, s, "u@example.com", auth.RoleContributor)
	_, adminToken := seedUser(t, s, "admin@example.com", auth.RoleAdmin)

	w := doRequest(t, router, "POST", "/teams", adminToken, map[string]string{"name": "ops"})
	var team struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &team)

	// Assigning twice is a no-op success
	for i := 0; i < 2; i++ {
		w = doRequest(t, router, "POST",
			pathf("/admin/users/%d/teams", user.ID), adminToken, map[string]int64{"team_id": team.ID})
		if w.Code != http.StatusOK {
			t.Fatalf("assignment %d: expected 200, got %d", i+1, w.Code)
		}
	}

	// Unknown team reads as 404
	w = doRequest(t, router, "POST",
		pathf("/admin/users/%d/teams", user.ID), adminToken, map[string]int64{"team_id": 999})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown team, got %d", w.Code)
	}

	// Unknown user likewise
	w = doRequest(t, router, "POST", "/admin/users/999/teams", adminToken,
		map[string]int64{"team_id": team.ID})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", w.Code)
	}

	// Role assignment validates the role value
	w = doRequest(t, router, "POST",
		pathf("/admin/users/%d/role", user.ID), adminToken, map[string]string{"role": "emperor"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad role, got %d", w.Code)
	}
	w = doRequest(t, router, "POST",
		pathf("/admin/users/%d/role", user.ID), adminToken, map[string]string{"role": "editor"})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRunEndpoints(t *testing.T) {
	s, router, _ := setupServer(t)
	_, editorToken := seedUser(t, s, "editor@example.com", auth.RoleEditor)
	_, runnerToken := seedUser(t, s, "runner@example.com", auth.RoleContributor)

	w := doRequest(t, router, "POST", "/sops", editorToken, map[string]string{
		"sop_key": "checklist", "title": "Checklist",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	// Start a run
	w = doRequest(t, router, "POST", "/runs", runnerToken, map[string]string{"sop_key": "checklist"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var run struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &run)

	// Check a step
	w = doRequest(t, router, "PATCH", pathf("/runs/%d/check", run.ID), runnerToken,
		map[string]int{"step_no": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Zero step is rejected
	w = doRequest(t, router, "PATCH", pathf("/runs/%d/check", run.ID), runnerToken,
		map[string]int{"step_no": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for step_no 0, got %d", w.Code)
	}

	// Complete it
	w = doRequest(t, router, "POST", pathf("/runs/%d/complete", run.ID), runnerToken,
		map[string]interface{}{"passed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var completed struct {
		Passed *bool `json:"passed"`
		Steps  []struct {
			StepNo int `json:"step_no"`
		} `json:"steps"`
	}
	decodeBody(t, w, &completed)
	if completed.Passed == nil || !*completed.Passed {
		t.Error("expected passed=true")
	}
	if len(completed.Steps) != 1 || completed.Steps[0].StepNo != 2 {
		t.Errorf("unexpected steps: %+v", completed.Steps)
	}

	// Completing twice conflicts
	w = doRequest(t, router, "POST", pathf("/runs/%d/complete", run.ID), runnerToken,
		map[string]interface{}{"passed": true})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}

	// Listing includes the run
	w = doRequest(t, router, "GET", "/runs", runnerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &list)
	if len(list) != 1 || list[0].ID != run.ID {
		t.Errorf("unexpected run list: %+v", list)
	}
}

func TestSuggestionEndpoints(t *testing.T) {
	s, router, _ := setupServer(t)
	_, editorToken := seedUser(t, s, "editor@example.com", auth.RoleEditor)
	_, contribToken := seedUser(t, s, "contrib@example.com", auth.RoleContributor)

	w := doRequest(t, router, "POST", "/sops", editorToken, map[string]string{
		"sop_key": "open", "title": "Open",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	// Contributor files a suggestion; AI is unconfigured so it stays queued
	w = doRequest(t, router, "POST", "/suggestions", contribToken, map[string]string{
		"sop_key": "open", "raw_text": "Step 3 is out of date",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, w, &created)
	if created.Status != "queued" {
		t.Errorf("expected queued, got %s", created.Status)
	}

	// Contributors cannot review
	w = doRequest(t, router, "PATCH", pathf("/suggestions/%d/status", created.ID), contribToken,
		map[string]string{"status": "accepted"})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for contributor review, got %d", w.Code)
	}

	// Editors can
	w = doRequest(t, router, "PATCH", pathf("/suggestions/%d/status", created.ID), editorToken,
		map[string]string{"status": "accepted"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Bad status values are rejected
	w = doRequest(t, router, "PATCH", pathf("/suggestions/%d/status", created.ID), editorToken,
		map[string]string{"status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", w.Code)
	}
}

func TestAIEndpoints_NotConfigured(t *testing.T) {
	s, router, _ := setupServer(t)
	_, token := seedUser(t, s, "u@example.com", auth.RoleContributor)

	w := doRequest(t, router, "POST", "/ai/draft", token, map[string]string{
		"title": "New SOP", "department": "ops",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without API key, got %d", w.Code)
	}
}

func TestUserDirectory(t *testing.T) {
	s, router, _ := setupServer(t)
	_, leadToken := seedUser(t, s, "lead@example.com", auth.RoleDeptLead)
	_, adminToken := seedUser(t, s, "admin@example.com", auth.RoleAdmin)

	// The directory is admin-only
	w := doRequest(t, router, "GET", "/users", leadToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin list, got %d", w.Code)
	}

	w = doRequest(t, router, "GET", "/users", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []struct {
		Email string `json:"email"`
	}
	decodeBody(t, w, &list)
	if len(list) != 2 {
		t.Errorf("expected 2 users, got %d", len(list))
	}

	// Pre-provision an account ahead of first login
	w = doRequest(t, router, "POST", "/users", adminToken, map[string]string{
		"name": "Jo", "email": "jo@example.com", "role": "editor",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Role string `json:"role"`
	}
	decodeBody(t, w, &created)
	if created.Role != "editor" {
		t.Errorf("expected editor role, got %s", created.Role)
	}

	// Duplicate email conflicts
	w = doRequest(t, router, "POST", "/users", adminToken, map[string]string{
		"name": "Jo2", "email": "jo@example.com",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", w.Code)
	}

	// Unknown roles are rejected
	w = doRequest(t, router, "POST", "/users", adminToken, map[string]string{
		"name": "X", "email": "x@example.com", "role": "emperor",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad role, got %d", w.Code)
	}
}

func TestRefreshGauges(t *testing.T) {
	s, router, _ := setupServer(t)
	_, editorToken := seedUser(t, s, "editor@example.com", auth.RoleEditor)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	s.WithMetrics(metrics)
	router = s.Router()

	for _, key := range []string{"a", "b"} {
		w := doRequest(t, router, "POST", "/sops", editorToken, map[string]string{
			"sop_key": key, "title": key,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
	}
	w := doRequest(t, router, "POST", "/runs", editorToken, map[string]string{"sop_key": "a"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	if err := s.RefreshGauges(context.Background()); err != nil {
		t.Fatalf("RefreshGauges failed: %v", err)
	}
	if v := testutil.ToFloat64(metrics.SopsTotal); v != 2 {
		t.Errorf("expected 2 SOPs, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.RunsActiveTotal); v != 1 {
		t.Errorf("expected 1 active run, got %v", v)
	}
}
