package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Item is one listed record with its presentation flags
type Item struct {
	Type   shared.ItemType `json:"type"`
	Record shared.Record   `json:"record"`
	filter.Decoration
}

// Composer turns the selection state into store queries and decorates the
// fetched records
type Composer struct {
	store   shared.RecordStore
	inLimit int
	lang    language.Tag
	logger  *zap.Logger
}

// Option configures a Composer
type Option func(*Composer)

// WithInLimit sets the largest id list sent in one store query
func WithInLimit(limit int) Option {
	return func(c *Composer) {
		if limit > 0 {
			c.inLimit = limit
		}
	}
}

// WithLanguage sets the collation language for name ordering
func WithLanguage(tag language.Tag) Option {
	return func(c *Composer) {
		c.lang = tag
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewComposer creates a composer over store
func NewComposer(store shared.RecordStore, opts ...Option) *Composer {
	c := &Composer{
		store:   store,
		inLimit: shared.DefaultInQueryLimit,
		lang:    language.English,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches the records of one type visible under state, ordered and
// decorated. A disabled plan yields an empty list without touching the store.
func (c *Composer) List(ctx context.Context, itemType shared.ItemType, state filter.State) ([]Item, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "query", "List", telemetry.SpanAttrItemType, string(itemType))
	defer span.End()

	plan, err := BuildPlan(itemType, state, c.inLimit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if plan.Disabled {
		return []Item{}, nil
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCollection, plan.Collection, telemetry.SpanAttrChunks, len(plan.Queries))

	records, err := c.fetch(ctx, plan)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	personsOf := func([]string) []string { return nil }
	if itemType == shared.ItemTypeResult && (len(plan.PersonIDs) > 0 || len(state.SelectedIDs(shared.ItemTypePerson)) > 0) {
		people, err := c.personsByAthlete(ctx, records)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		personsOf = func(athletes []string) []string {
			out := make([]string, 0, len(athletes))
			for _, a := range athletes {
				if p, ok := people[a]; ok {
					out = append(out, p)
				}
			}
			return out
		}
	}

	kept := records[:0]
	for _, rec := range records {
		if !matchesAll(rec, plan.InMemory) {
			continue
		}
		// people are reached through the athletes, so a person
		// super-selection can only narrow here
		if len(plan.PersonIDs) > 0 && filter.Excluded(state, filter.Rel(shared.ItemTypePerson, personsOf(rec.Strings("athletes"))...)) {
			continue
		}
		kept = append(kept, rec)
	}
	c.sortRecords(kept, plan.OrderBy)

	items := make([]Item, 0, len(kept))
	for _, rec := range kept {
		rels := relations(itemType, rec, personsOf)
		items = append(items, Item{
			Type:       itemType,
			Record:     rec,
			Decoration: filter.Decorate(state, itemType, rec.ID(), faded(itemType, state, rels)),
		})
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, len(items))
	c.logger.Debug("list composed",
		zap.String("collection", plan.Collection),
		zap.Int("queries", len(plan.Queries)),
		zap.Int("fetched", len(records)),
		zap.Int("listed", len(items)))
	return items, nil
}

// fetch runs every query of the plan and merges the rows by id
func (c *Composer) fetch(ctx context.Context, plan Plan) ([]shared.Record, error) {
	if len(plan.Queries) == 1 {
		recs, err := c.store.FetchByFilter(ctx, plan.Collection, plan.Queries[0])
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", plan.Collection, err)
		}
		return recs, nil
	}
	seen := make(map[string]struct{})
	var out []shared.Record
	for i, q := range plan.Queries {
		recs, err := c.store.FetchByFilter(ctx, plan.Collection, q)
		if err != nil {
			return nil, fmt.Errorf("fetch %s chunk %d: %w", plan.Collection, i, err)
		}
		for _, rec := range recs {
			if _, dup := seen[rec.ID()]; dup {
				continue
			}
			seen[rec.ID()] = struct{}{}
			out = append(out, rec)
		}
	}
	return out, nil
}

// personsByAthlete resolves the person of every athlete referenced by results
func (c *Composer) personsByAthlete(ctx context.Context, results []shared.Record) (map[string]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, rec := range results {
		for _, a := range rec.Strings("athletes") {
			if _, ok := seen[a]; !ok {
				seen[a] = struct{}{}
				ids = append(ids, a)
			}
		}
	}
	out := make(map[string]string, len(ids))
	for _, part := range chunk(ids, c.inLimit) {
		athletes, err := c.store.FetchByFilter(ctx, "athletes", shared.Query{
			Constraints: []shared.Constraint{shared.In(shared.FieldID, part)},
		})
		if err != nil {
			return nil, fmt.Errorf("resolve athletes: %w", err)
		}
		for _, a := range athletes {
			if p := a.String("person"); p != "" {
				out[a.ID()] = p
			}
		}
	}
	return out, nil
}

// sortRecords orders records by the plan's keys. Strings use locale collation,
// missing values sort last in either direction, ties keep fetch order.
func (c *Composer) sortRecords(records []shared.Record, order []shared.OrderBy) {
	if len(order) == 0 {
		return
	}
	col := collate.New(c.lang, collate.IgnoreCase, collate.Numeric)
	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range order {
			cmp, decided := compare(col, records[i][o.Field], records[j][o.Field])
			if cmp == 0 {
				continue
			}
			if decided || o.Direction != shared.SortDesc {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

// compare orders two field values. decided is true when one side is
// missing, which fixes the order regardless of direction.
func compare(col *collate.Collator, a, b any) (cmp int, decided bool) {
	switch {
	case a == nil && b == nil:
		return 0, false
	case a == nil:
		return 1, true
	case b == nil:
		return -1, true
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return col.CompareString(x, y), false
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, y), false
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y), false
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), false
		}
	case bool:
		if y, ok := b.(bool); ok && x != y {
			if y {
				return -1, false
			}
			return 1, false
		}
		return 0, false
	}
	r := shared.Record{"a": a, "b": b}
	return col.CompareString(r.String("a"), r.String("b")), false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func matchesAll(rec shared.Record, constraints []shared.Constraint) bool {
	for _, c := range constraints {
		if !c.Matches(rec) {
			return false
		}
	}
	return true
}
