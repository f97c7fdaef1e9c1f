package executor

import (
	"database/sql/driver"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// convertValue maps one decoded column value to a JSON-safe value, keyed by
// the column's type OID. NULL maps to nil in every case; non-finite floats
// map to nil because JSON has no representation for them.
func convertValue(v any, oid uint32) any {
	if v == nil {
		return nil
	}

	switch oid {
	case pgtype.TimestamptzOID:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339Nano)
		}
	case pgtype.TimestampOID:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02T15:04:05.999999999")
		}
	case pgtype.DateOID:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	case pgtype.TimeOID:
		if t, ok := v.(pgtype.Time); ok {
			return formatTimeOfDay(t)
		}
	case pgtype.UUIDOID:
		if b, ok := v.([16]byte); ok {
			return uuid.UUID(b).String()
		}
	case pgtype.Float4OID, pgtype.Float8OID:
		return finiteFloat(v)
	case pgtype.JSONOID, pgtype.JSONBOID:
		// pgx already decoded the JSON payload.
		return v
	}

	return convertFallback(v)
}

// convertFallback handles values whose OID carries no special mapping.
func convertFallback(v any) any {
	switch t := v.(type) {
	case bool, string, int16, int32, int64:
		return t
	case float32, float64:
		return finiteFloat(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(t).String()
	case []byte:
		return string(t)
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil || dv == nil {
			return nil
		}
		return convertFallback(dv)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func finiteFloat(v any) any {
	var f float64
	switch t := v.(type) {
	case float32:
		f = float64(t)
	case float64:
		f = t
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func formatTimeOfDay(t pgtype.Time) string {
	d := time.Duration(t.Microseconds) * time.Microsecond
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	micros := int(d % time.Second / time.Microsecond)
	if micros > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, s, micros)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
