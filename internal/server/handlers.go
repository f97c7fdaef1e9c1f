package server

import (
	"encoding/json"
	"net/http"

	"postgate/internal/domain"
	"postgate/internal/logger"
	"postgate/internal/sqlcheck"
	"postgate/internal/token"
)

// handleHealth reports liveness unconditionally; it never touches the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness: the metadata database must answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQuery is the gateway pipeline: authenticate, resolve the database,
// validate the statement, execute, respond.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	secret, err := token.FromHeader(r.Header.Get("Authorization"))
	if err != nil {
		s.audit.LogAuthFailure(ctx, err.Error())
		writeError(w, err, false)
		return
	}
	actor := secret[:8]

	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			Error: "invalid request body: " + err.Error(),
			Code:  codeParseError,
		})
		return
	}

	principal, err := s.store.ValidateToken(ctx, secret)
	if err != nil {
		s.audit.LogAuthFailure(ctx, err.Error())
		writeError(w, err, false)
		return
	}

	// A token that authenticates but points at a deleted database is a
	// resolution failure (404), not an auth failure.
	db, err := s.store.GetDatabase(ctx, principal.DatabaseID)
	if err != nil {
		writeError(w, err, false)
		return
	}

	parsed, err := sqlcheck.Validate(req.SQL, principal.Operations)
	if err != nil {
		s.audit.LogQuery(ctx, actor, db.Name, "", nil, logger.AuditOutcomeDenied)
		writeError(w, err, false)
		return
	}
	op := parsed.Operation.String()

	resp, err := s.exec.Execute(ctx, principal.DatabaseID, db.Backend, req, db.MaxRows)
	if err != nil {
		queriesTotal.WithLabelValues(op, "error").Inc()
		s.audit.LogQuery(ctx, actor, db.Name, op, parsed.Tables, logger.AuditOutcomeFailure)
		writeError(w, err, true)
		return
	}

	queriesTotal.WithLabelValues(op, "success").Inc()
	s.audit.LogQuery(ctx, actor, db.Name, op, parsed.Tables, logger.AuditOutcomeSuccess)

	s.log.Debug("query executed",
		"database", db.Name,
		"operation", op,
		"rows", resp.RowCount,
	)
	writeJSON(w, http.StatusOK, resp)
}
