package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// bindParams converts raw JSON parameters into values pgx can bind
// positionally as $1..$N:
//
//	null          -> SQL NULL
//	boolean       -> boolean
//	integer       -> int8
//	other number  -> float8, falling back to the literal text
//	string        -> text
//	array/object  -> the raw JSON text, bound as json/jsonb
func bindParams(params []json.RawMessage) ([]any, error) {
	args := make([]any, len(params))
	for i, raw := range params {
		v, err := bindParam(raw)
		if err != nil {
			return nil, &ParamError{Index: i, Err: err}
		}
		args[i] = v
	}
	return args, nil
}

func bindParam(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		if f, err := t.Float64(); err == nil {
			return f, nil
		}
		return t.String(), nil
	case []any, map[string]any:
		// Hand the original JSON text to the driver so json/jsonb
		// columns receive it verbatim.
		return string(raw), nil
	default:
		return nil, fmt.Errorf("unsupported JSON value")
	}
}
