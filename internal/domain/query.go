package domain

import "encoding/json"

// QueryRequest is the body of POST /query. Params are bound positionally as
// $1..$N; they stay raw JSON until the executor converts them per type.
type QueryRequest struct {
	SQL    string            `json:"sql"`
	Params []json.RawMessage `json:"params"`
}

// QueryResponse carries the result rows. Column order inside a row object is
// not meaningful; names are the result-set column names.
type QueryResponse struct {
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}
