package persistence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm/clause"
)

// readValue converts a driver value into the record representation for its kind
func readValue(kind FieldKind, raw any) any {
	if raw == nil {
		if kind == KindList {
			return []string{}
		}
		return nil
	}
	if b, ok := raw.([]byte); ok && kind != KindList {
		raw = string(b)
	}
	switch kind {
	case KindList:
		list, err := models.ParseStringList(raw)
		if err != nil {
			return []string{}
		}
		return []string(list)
	case KindBool:
		return shared.Record{"v": raw}.Bool("v")
	case KindInt:
		if n, ok := (shared.Record{"v": raw}).Int("v"); ok {
			return n
		}
		return nil
	case KindFloat:
		if f, ok := (shared.Record{"v": raw}).Float("v"); ok {
			return f
		}
		return nil
	case KindTime:
		switch v := raw.(type) {
		case time.Time:
			return v
		case string:
			if t, err := parseTime(v); err == nil {
				return t
			}
			return v
		}
		return raw
	default:
		return shared.Record{"v": raw}.String("v")
	}
}

// writeValue converts a record value into a value the store can persist.
// nil becomes the zero value for string, bool and list kinds and NULL
// otherwise. ServerTimestamp is resolved by the caller.
func writeValue(field string, kind FieldKind, v any) (any, error) {
	if v == nil {
		switch kind {
		case KindList:
			return models.StringList{}, nil
		case KindString:
			return "", nil
		case KindBool:
			return false, nil
		}
		return nil, nil
	}
	r := shared.Record{field: v}
	switch kind {
	case KindList:
		return models.StringList(nonNil(r.Strings(field))), nil
	case KindBool:
		return r.Bool(field), nil
	case KindInt:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, nil
		}
		n, ok := r.Int(field)
		if !ok {
			return nil, invalidField(field, "must be a whole number")
		}
		return n, nil
	case KindFloat:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, nil
		}
		f, ok := r.Float(field)
		if !ok {
			return nil, invalidField(field, "must be a number")
		}
		return f, nil
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			parsed, err := parseTime(t)
			if err != nil {
				return nil, invalidField(field, "must be a timestamp")
			}
			return parsed, nil
		}
		return nil, invalidField(field, "must be a timestamp")
	default:
		return r.String(field), nil
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func invalidField(field, msg string) error {
	return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("field %s %s", field, msg))
}

func unknownField(collection, field string) error {
	return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unknown field %s on %s", field, collection))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isServerTimestamp(v any) bool {
	switch v.(type) {
	case shared.ServerTimestampValue, *shared.ServerTimestampValue:
		return true
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// listContains builds a prefilter for a list column holding any of the
// constraint's values. ok is false when the constraint can match nothing.
func listContains(c shared.Constraint) (clause.Expression, bool, error) {
	values := c.Values
	if c.Op == shared.OpEqual {
		values = []string{shared.Record{"v": c.Value}.String("v")}
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	col := clause.Column{Name: c.Field}
	exprs := make([]clause.Expression, 0, len(values))
	for _, v := range values {
		elem, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("encode %s value: %w", c.Field, err)
		}
		exprs = append(exprs, clause.Expr{
			SQL:  "? LIKE ? ESCAPE '\\'",
			Vars: []any{col, "%" + likeEscaper.Replace(string(elem)) + "%"},
		})
	}
	if len(exprs) == 1 {
		return exprs[0], true, nil
	}
	return clause.Or(exprs...), true, nil
}
