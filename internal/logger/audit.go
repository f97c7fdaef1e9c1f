package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditAction classifies an auditable gateway event.
type AuditAction string

const (
	AuditActionQuery       AuditAction = "query"
	AuditActionAuthFailure AuditAction = "auth_failure"
	AuditActionDBCreate    AuditAction = "database_create"
	AuditActionDBDelete    AuditAction = "database_delete"
	AuditActionTokenCreate AuditAction = "token_create"
	AuditActionTokenRevoke AuditAction = "token_revoke"
)

// AuditOutcome is the result of an auditable event.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
	AuditOutcomeDenied  AuditOutcome = "denied"
)

// AuditEvent records one auditable gateway event. Actor identifies the
// caller by token display prefix, never by the full secret.
type AuditEvent struct {
	Action    AuditAction    `json:"action"`
	Actor     string         `json:"actor"`
	Database  string         `json:"database,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Tables    []string       `json:"tables,omitempty"`
	Outcome   AuditOutcome   `json:"outcome"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}

// AuditLogger appends audit events to a dedicated rotated JSON log.
// A nil *AuditLogger is a valid no-op sink.
type AuditLogger struct {
	logger *slog.Logger
	closer *lumberjack.Logger
}

// NewAuditLogger creates an audit logger writing to path. maxAgeDays <= 0
// defaults to one year of retention.
func NewAuditLogger(path string, maxAgeDays int) (*AuditLogger, error) {
	if path == "" {
		return nil, fmt.Errorf("audit path is required")
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 365
	}

	lj := &lumberjack.Logger{
		Filename: path,
		MaxSize:  100,
		MaxAge:   maxAgeDays,
		Compress: true,
	}

	handler := slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: slog.LevelInfo})

	return &AuditLogger{
		logger: slog.New(handler),
		closer: lj,
	}, nil
}

// Log records an audit event.
func (a *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if a == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = RequestIDFrom(ctx)
	}

	attrs := []slog.Attr{
		slog.String("action", string(event.Action)),
		slog.String("actor", event.Actor),
		slog.String("outcome", string(event.Outcome)),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.Database != "" {
		attrs = append(attrs, slog.String("database", event.Database))
	}
	if event.Operation != "" {
		attrs = append(attrs, slog.String("operation", event.Operation))
	}
	if len(event.Tables) > 0 {
		attrs = append(attrs, slog.Any("tables", event.Tables))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

// LogQuery records a tenant query execution.
func (a *AuditLogger) LogQuery(ctx context.Context, actor, database, operation string, tables []string, outcome AuditOutcome) {
	a.Log(ctx, AuditEvent{
		Action:    AuditActionQuery,
		Actor:     actor,
		Database:  database,
		Operation: operation,
		Tables:    tables,
		Outcome:   outcome,
	})
}

// LogAuthFailure records a rejected authentication attempt.
func (a *AuditLogger) LogAuthFailure(ctx context.Context, reason string) {
	a.Log(ctx, AuditEvent{
		Action:   AuditActionAuthFailure,
		Actor:    "unknown",
		Outcome:  AuditOutcomeDenied,
		Metadata: map[string]any{"reason": reason},
	})
}

// Close closes the audit logger.
func (a *AuditLogger) Close() error {
	if a != nil && a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
