package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"postgate/internal/executor"
	"postgate/internal/sqlcheck"
	"postgate/internal/store"
	"postgate/internal/token"
)

// Error codes of the HTTP envelope.
const (
	codeParseError       = "PARSE_ERROR"
	codeRowLimitExceeded = "ROW_LIMIT_EXCEEDED"
	codeTimeout          = "TIMEOUT"
	codeUnauthorized     = "UNAUTHORIZED"
	codeDatabaseNotFound = "DATABASE_NOT_FOUND"
	codeDatabaseError    = "DATABASE_ERROR"
	codeInternalError    = "INTERNAL_ERROR"
)

// errorEnvelope is the single error shape every failure maps to.
type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps err onto the HTTP envelope. Errors are mapped exactly
// once, here at the boundary; everything below propagates them unaltered.
// fromExecutor tells execution-stage driver failures (DATABASE_ERROR) apart
// from internal ones.
func writeError(w http.ResponseWriter, err error, fromExecutor bool) {
	status, code := classifyError(err, fromExecutor)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Driver and internal messages can leak connection details.
		switch code {
		case codeDatabaseError:
			msg = "query execution failed"
		default:
			msg = "internal error"
		}
	}

	writeJSON(w, status, errorEnvelope{Error: msg, Code: code})
}

func classifyError(err error, fromExecutor bool) (int, string) {
	// Auth.
	if errors.Is(err, token.ErrMissingHeader) ||
		errors.Is(err, token.ErrInvalidFormat) ||
		errors.Is(err, store.ErrTokenNotFound) {
		return http.StatusUnauthorized, codeUnauthorized
	}

	// Resolution.
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, codeDatabaseNotFound
	}

	// Validation.
	if isValidationError(err) {
		return http.StatusBadRequest, codeParseError
	}

	// Execution.
	var rle *executor.RowLimitError
	if errors.As(err, &rle) {
		return http.StatusBadRequest, codeRowLimitExceeded
	}
	if errors.Is(err, executor.ErrTimeout) {
		return http.StatusGatewayTimeout, codeTimeout
	}
	var pe *executor.ParamError
	if errors.As(err, &pe) {
		return http.StatusBadRequest, codeParseError
	}

	if fromExecutor {
		return http.StatusInternalServerError, codeDatabaseError
	}
	return http.StatusInternalServerError, codeInternalError
}

func isValidationError(err error) bool {
	if errors.Is(err, sqlcheck.ErrEmptyQuery) ||
		errors.Is(err, sqlcheck.ErrMultipleStatements) ||
		errors.Is(err, sqlcheck.ErrUnsupportedStatement) {
		return true
	}

	var (
		syntaxErr    *sqlcheck.SyntaxError
		opErr        *sqlcheck.OperationNotAllowedError
		qualifiedErr *sqlcheck.QualifiedTableError
		systemErr    *sqlcheck.SystemTableError
		notAllowed   *sqlcheck.TableNotAllowedError
		denied       *sqlcheck.TableDeniedError
	)
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &opErr) ||
		errors.As(err, &qualifiedErr) ||
		errors.As(err, &systemErr) ||
		errors.As(err, &notAllowed) ||
		errors.As(err, &denied)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
