package executor

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestConvertValue_Null(t *testing.T) {
	if got := convertValue(nil, pgtype.Int8OID); got != nil {
		t.Errorf("NULL should map to nil, got %#v", got)
	}
}

func TestConvertValue_Timestamps(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := convertValue(ts, pgtype.TimestamptzOID)
	if got != "2026-03-14T09:26:53Z" {
		t.Errorf("timestamptz = %v, want RFC3339", got)
	}

	got = convertValue(ts, pgtype.TimestampOID)
	if got != "2026-03-14T09:26:53" {
		t.Errorf("timestamp = %v, want zone-free ISO form", got)
	}

	got = convertValue(ts, pgtype.DateOID)
	if got != "2026-03-14" {
		t.Errorf("date = %v, want date only", got)
	}
}

func TestConvertValue_TimeOfDay(t *testing.T) {
	tod := pgtype.Time{Microseconds: (9*3600 + 30*60 + 15) * 1_000_000, Valid: true}
	if got := convertValue(tod, pgtype.TimeOID); got != "09:30:15" {
		t.Errorf("time = %v, want 09:30:15", got)
	}

	tod.Microseconds += 250_000
	if got := convertValue(tod, pgtype.TimeOID); got != "09:30:15.250000" {
		t.Errorf("time with micros = %v", got)
	}
}

func TestConvertValue_UUID(t *testing.T) {
	id := uuid.New()
	b := [16]byte(id)

	if got := convertValue(b, pgtype.UUIDOID); got != id.String() {
		t.Errorf("uuid = %v, want %s", got, id)
	}
}

func TestConvertValue_Floats(t *testing.T) {
	if got := convertValue(2.5, pgtype.Float8OID); got != 2.5 {
		t.Errorf("float = %v, want 2.5", got)
	}
	if got := convertValue(math.NaN(), pgtype.Float8OID); got != nil {
		t.Errorf("NaN should map to nil, got %v", got)
	}
	if got := convertValue(math.Inf(1), pgtype.Float8OID); got != nil {
		t.Errorf("Inf should map to nil, got %v", got)
	}
	if got := convertValue(float32(1.5), pgtype.Float4OID); got != 1.5 {
		t.Errorf("float4 = %v, want 1.5", got)
	}
}

func TestConvertValue_JSON(t *testing.T) {
	decoded := map[string]any{"a": float64(1)}
	got := convertValue(decoded, pgtype.JSONBOID)
	m, ok := got.(map[string]any)
	if !ok || m["a"] != float64(1) {
		t.Errorf("jsonb should pass through decoded value, got %#v", got)
	}
}

func TestConvertValue_Fallback(t *testing.T) {
	if got := convertValue(int64(7), pgtype.Int8OID); got != int64(7) {
		t.Errorf("int8 = %v, want 7", got)
	}
	if got := convertValue("text", pgtype.TextOID); got != "text" {
		t.Errorf("text = %v", got)
	}
	if got := convertValue(true, pgtype.BoolOID); got != true {
		t.Errorf("bool = %v", got)
	}
	if got := convertValue([]byte("raw"), pgtype.ByteaOID); got != "raw" {
		t.Errorf("bytea = %v, want best-effort string", got)
	}
}
