package shared

import (
	"context"
	"strings"
)

// DefaultInQueryLimit is the largest id list a single inclusion predicate may carry
const DefaultInQueryLimit = 30

// Operator is a constraint predicate operator
type Operator string

const (
	OpEqual Operator = "=="
	OpIn    Operator = "in"
)

// Constraint is an equality or inclusion predicate over one field
type Constraint struct {
	Field  string
	Op     Operator
	Value  any
	Values []string
}

// Equal builds an equality constraint
func Equal(field string, value any) Constraint {
	return Constraint{Field: field, Op: OpEqual, Value: value}
}

// In builds an inclusion constraint
func In(field string, values []string) Constraint {
	return Constraint{Field: field, Op: OpIn, Values: append([]string(nil), values...)}
}

// Matches evaluates the constraint against a record in memory.
// List-valued fields match when any element matches.
func (c Constraint) Matches(r Record) bool {
	switch c.Op {
	case OpEqual:
		want := stringify(c.Value)
		if isList(r[c.Field]) {
			for _, v := range r.Strings(c.Field) {
				if v == want {
					return true
				}
			}
			return false
		}
		return r.String(c.Field) == want
	case OpIn:
		set := make(map[string]struct{}, len(c.Values))
		for _, v := range c.Values {
			set[v] = struct{}{}
		}
		if isList(r[c.Field]) {
			for _, v := range r.Strings(c.Field) {
				if _, ok := set[v]; ok {
					return true
				}
			}
			return false
		}
		_, ok := set[r.String(c.Field)]
		return ok
	default:
		return false
	}
}

func isList(v any) bool {
	switch v.(type) {
	case []string, []any:
		return true
	}
	return false
}

func stringify(v any) string {
	return Record{"v": v}.String("v")
}

// SortDirection is ASC or DESC
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// OrderBy is one sort key
type OrderBy struct {
	Field     string
	Direction SortDirection
}

// Query is a fetch-by-filter request. At most one constraint may use OpIn.
type Query struct {
	Constraints []Constraint
	OrderBy     []OrderBy
}

// InConstraints returns the inclusion constraints of the query
func (q Query) InConstraints() []Constraint {
	var out []Constraint
	for _, c := range q.Constraints {
		if c.Op == OpIn {
			out = append(out, c)
		}
	}
	return out
}

// Key returns a stable cache key for the query
func (q Query) Key() string {
	var b strings.Builder
	for _, c := range q.Constraints {
		b.WriteString(c.Field)
		b.WriteString(string(c.Op))
		if c.Op == OpIn {
			b.WriteString(strings.Join(c.Values, ","))
		} else {
			b.WriteString(stringify(c.Value))
		}
		b.WriteByte(';')
	}
	b.WriteByte('|')
	for _, o := range q.OrderBy {
		b.WriteString(o.Field)
		b.WriteString(string(o.Direction))
		b.WriteByte(';')
	}
	return b.String()
}

// RecordStore is the document store collaborator.
// FetchByID returns ErrNotFound when the record does not exist.
type RecordStore interface {
	FetchByID(ctx context.Context, collection, id string) (Record, error)
	FetchByFilter(ctx context.Context, collection string, q Query) ([]Record, error)
	Create(ctx context.Context, collection string, data Record) (string, error)
	Update(ctx context.Context, collection, id string, data Record) error
	Delete(ctx context.Context, collection, id string) error
}

// SnapshotStore is a scoped key-value store for opaque state blobs.
// Load returns (nil, nil) when nothing is stored under key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Clear(ctx context.Context, key string) error
}
