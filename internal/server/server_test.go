package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"postgate/internal/config"
	"postgate/internal/domain"
	"postgate/internal/executor"
	"postgate/internal/store"
	"postgate/internal/token"
)

type stubStore struct {
	secret  string
	info    *domain.TokenInfo
	db      *domain.DatabaseConfig
	err     error
	dbErr   error
	pingErr error
}

func (s *stubStore) ValidateToken(ctx context.Context, secret string) (*domain.TokenInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	if secret != s.secret {
		return nil, store.ErrTokenNotFound
	}
	return s.info, nil
}

func (s *stubStore) GetDatabase(ctx context.Context, id uuid.UUID) (*domain.DatabaseConfig, error) {
	if s.dbErr != nil {
		return nil, s.dbErr
	}
	if s.db == nil || s.db.ID != id {
		return nil, store.ErrNotFound
	}
	return s.db, nil
}

func (s *stubStore) Ping(ctx context.Context) error {
	return s.pingErr
}

type stubExec struct {
	resp *domain.QueryResponse
	err  error

	gotSQL     string
	gotBackend domain.Backend
	gotMaxRows int
}

func (e *stubExec) Execute(ctx context.Context, databaseID uuid.UUID, backend domain.Backend, req domain.QueryRequest, maxRows int) (*domain.QueryResponse, error) {
	e.gotSQL = req.SQL
	e.gotBackend = backend
	e.gotMaxRows = maxRows
	if e.err != nil {
		return nil, e.err
	}
	return e.resp, nil
}

func newTestServer(t *testing.T, st *stubStore, ex *stubExec) *Server {
	t.Helper()
	if st.secret == "" {
		st.secret = token.Prefix + strings.Repeat("a", 64)
	}
	if st.info == nil {
		dbID := uuid.New()
		st.info = &domain.TokenInfo{
			TokenID:    uuid.New(),
			DatabaseID: dbID,
			Operations: domain.DefaultOperations(),
		}
		st.db = &domain.DatabaseConfig{
			ID:      dbID,
			Name:    "tenant1",
			Backend: domain.SchemaBackend("db_abc_tenant1"),
			MaxRows: 100,
		}
	}
	if ex.resp == nil && ex.err == nil {
		ex.resp = &domain.QueryResponse{Rows: []map[string]any{}, RowCount: 0}
	}
	return New(config.ServerConfig{MaxBodyBytes: 1 << 20}, st, ex, nil, nil)
}

func doQuery(t *testing.T, s *Server, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubStore{pingErr: errors.New("down")}, &stubExec{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	// Health never consults the store.
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestReady(t *testing.T) {
	st := &stubStore{}
	s := newTestServer(t, st, &stubExec{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	st.pingErr = errors.New("down")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestQuery_MissingHeader(t *testing.T) {
	s := newTestServer(t, &stubStore{}, &stubExec{})

	rec := doQuery(t, s, "", `{"sql": "SELECT 1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if env := decodeError(t, rec); env.Code != codeUnauthorized {
		t.Errorf("code = %s, want UNAUTHORIZED", env.Code)
	}
}

func TestQuery_BadTokenFormat(t *testing.T) {
	s := newTestServer(t, &stubStore{}, &stubExec{})

	rec := doQuery(t, s, "Bearer not_a_token", `{"sql": "SELECT 1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestQuery_UnknownToken(t *testing.T) {
	st := &stubStore{}
	s := newTestServer(t, st, &stubExec{})

	other := token.Prefix + strings.Repeat("b", 64)
	rec := doQuery(t, s, "Bearer "+other, `{"sql": "SELECT 1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestQuery_InvalidBody(t *testing.T) {
	st := &stubStore{}
	s := newTestServer(t, st, &stubExec{})

	rec := doQuery(t, s, "Bearer "+st.secret, `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env := decodeError(t, rec); env.Code != codeParseError {
		t.Errorf("code = %s, want PARSE_ERROR", env.Code)
	}
}

func TestQuery_DatabaseGone(t *testing.T) {
	// The token authenticates, but its database row no longer exists.
	// That is a resolution failure, not an auth failure: 404, never 401.
	st := &stubStore{dbErr: store.ErrNotFound}
	s := newTestServer(t, st, &stubExec{})

	rec := doQuery(t, s, "Bearer "+st.secret, `{"sql": "SELECT 1"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env := decodeError(t, rec); env.Code != codeDatabaseNotFound {
		t.Errorf("code = %s, want DATABASE_NOT_FOUND", env.Code)
	}
}

func TestQuery_ValidationFailures(t *testing.T) {
	st := &stubStore{}
	s := newTestServer(t, st, &stubExec{})
	auth := "Bearer " + st.secret

	tests := []struct {
		name string
		sql  string
	}{
		{"stacked statements", "SELECT 1; SELECT 2"},
		{"qualified table", "SELECT * FROM public.users"},
		{"system table", "SELECT * FROM pg_tables"},
		{"unsupported", "SET search_path TO public"},
		{"operation denied", "DROP TABLE users"}, // default set is DML only
		{"syntax error", "SELEKT 1"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]any{"sql": tt.sql})
			rec := doQuery(t, s, auth, string(body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env := decodeError(t, rec); env.Code != codeParseError {
				t.Errorf("code = %s, want PARSE_ERROR", env.Code)
			}
		})
	}
}

func TestQuery_Success(t *testing.T) {
	st := &stubStore{}
	ex := &stubExec{resp: &domain.QueryResponse{
		Rows:     []map[string]any{{"id": float64(1), "name": "ada"}},
		RowCount: 1,
	}}
	s := newTestServer(t, st, ex)

	rec := doQuery(t, s, "Bearer "+st.secret, `{"sql": "SELECT id, name FROM users", "params": []}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp domain.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.RowCount != 1 || resp.Rows[0]["name"] != "ada" {
		t.Errorf("response = %+v", resp)
	}

	if ex.gotSQL != "SELECT id, name FROM users" {
		t.Errorf("executor saw sql %q", ex.gotSQL)
	}
	if ex.gotMaxRows != 100 {
		t.Errorf("executor saw max rows %d, want 100", ex.gotMaxRows)
	}
	if ex.gotBackend.Type != domain.BackendSchema {
		t.Errorf("executor saw backend %+v", ex.gotBackend)
	}
}

func TestQuery_BareTokenAccepted(t *testing.T) {
	st := &stubStore{}
	s := newTestServer(t, st, &stubExec{})

	rec := doQuery(t, s, st.secret, `{"sql": "SELECT 1"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for bare token", rec.Code)
	}
}

func TestQuery_ExecutorErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"row limit", &executor.RowLimitError{Limit: 100}, http.StatusBadRequest, codeRowLimitExceeded},
		{"timeout", executor.ErrTimeout, http.StatusGatewayTimeout, codeTimeout},
		{"bad param", &executor.ParamError{Index: 0, Err: errors.New("bad")}, http.StatusBadRequest, codeParseError},
		{"driver failure", errors.New("connection refused"), http.StatusInternalServerError, codeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &stubStore{}
			s := newTestServer(t, st, &stubExec{err: tt.err})

			rec := doQuery(t, s, "Bearer "+st.secret, `{"sql": "SELECT 1"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			env := decodeError(t, rec)
			if env.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", env.Code, tt.wantCode)
			}
			// Driver details stay out of 500 bodies.
			if tt.wantStatus == http.StatusInternalServerError &&
				strings.Contains(env.Error, "connection refused") {
				t.Errorf("driver detail leaked: %q", env.Error)
			}
		})
	}
}

func TestQuery_BodyTooLarge(t *testing.T) {
	st := &stubStore{}
	ex := &stubExec{}
	s := New(config.ServerConfig{MaxBodyBytes: 64}, st, ex, nil, nil)
	st.secret = token.Prefix + strings.Repeat("a", 64)
	dbID := uuid.New()
	st.info = &domain.TokenInfo{DatabaseID: dbID, Operations: domain.DefaultOperations()}
	st.db = &domain.DatabaseConfig{ID: dbID, Name: "t", Backend: domain.SchemaBackend("s"), MaxRows: 10}

	big := `{"sql": "SELECT '` + strings.Repeat("x", 200) + `'"}`
	rec := doQuery(t, s, "Bearer "+st.secret, big)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized body", rec.Code)
	}
}
