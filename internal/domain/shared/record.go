package shared

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Common record field names
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Record is a schemaless document: field name to value.
// Reference fields hold the referenced record's id.
type Record map[string]any

// ServerTimestampValue is a write-time placeholder that the record store
// replaces with its own clock.
type ServerTimestampValue struct{}

// ServerTimestamp asks the store to stamp the field with "now" at write time
var ServerTimestamp = ServerTimestampValue{}

// ID returns the record id or "" if absent
func (r Record) ID() string {
	return r.String(FieldID)
}

// Has reports whether the field is present with a non-nil value
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// String returns a string field, formatting scalars; "" if missing
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// TrimmedString returns a string field with surrounding whitespace removed
func (r Record) TrimmedString(field string) string {
	return strings.TrimSpace(r.String(field))
}

// Bool returns a boolean field. Strings "true"/"1" and non-zero numbers are true.
func (r Record) Bool(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

// Int returns an integer field; ok is false if missing or not integral
func (r Record) Int(field string) (int64, bool) {
	switch v := r[field].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case float32:
		f := float64(v)
		if f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Float returns a numeric field as float64
func (r Record) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Strings returns a list field as strings, dropping empty entries
func (r Record) Strings(field string) []string {
	var out []string
	switch v := r[field].(type) {
	case []string:
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			if s := fmt.Sprint(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Time returns a time field
func (r Record) Time(field string) (time.Time, bool) {
	t, ok := r[field].(time.Time)
	return t, ok
}

// Clone returns a deep copy of the record. A nil record clones to nil.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Without returns a copy of the record with the given fields removed
func (r Record) Without(fields ...string) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		return map[string]any(Record(x).Clone())
	case Record:
		return x.Clone()
	default:
		return v
	}
}
