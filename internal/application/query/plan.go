package query

import (
	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/shared"
)

// Plan is how one list is fetched: the store queries to run (more than one
// when an id list is chunked), the constraints applied in memory after the
// fetch, and the final ordering.
type Plan struct {
	Collection string
	Queries    []shared.Query
	InMemory   []shared.Constraint
	OrderBy    []shared.OrderBy
	// Disabled plans fetch nothing and list nothing
	Disabled bool
	// PersonIDs restricts results to those with an athlete of one of these people
	PersonIDs []string
}

// resultScopes is the order in which results super-selections are tried
// for the single store-side inclusion predicate
var resultScopes = []struct {
	itemType shared.ItemType
	field    string
}{
	{shared.ItemTypeMeet, "meet"},
	{shared.ItemTypeSeason, "season"},
	{shared.ItemTypeEvent, "event"},
	{shared.ItemTypeTeam, "team"},
}

var orderings = map[shared.ItemType][]shared.OrderBy{
	shared.ItemTypeTeam:    {{Field: "code", Direction: shared.SortAsc}},
	shared.ItemTypeSeason:  {{Field: "end_date", Direction: shared.SortDesc}},
	shared.ItemTypeMeet:    {{Field: "date", Direction: shared.SortDesc}},
	shared.ItemTypeAthlete: {{Field: shared.FieldCreatedAt, Direction: shared.SortDesc}},
	shared.ItemTypePerson:  {{Field: "last_name", Direction: shared.SortAsc}, {Field: "first_name", Direction: shared.SortAsc}},
	shared.ItemTypeEvent:   {{Field: "stroke", Direction: shared.SortAsc}, {Field: "distance", Direction: shared.SortAsc}},
	shared.ItemTypeResult:  {{Field: "result", Direction: shared.SortAsc}},
}

// BuildPlan derives the fetch plan for one list from the selection state.
// Only super-selections narrow what is fetched.
func BuildPlan(itemType shared.ItemType, state filter.State, inLimit int) (Plan, error) {
	collection, ok := itemType.Collection()
	if !ok {
		return Plan{}, shared.NewUnknownItemTypeError(string(itemType))
	}
	if inLimit <= 0 {
		inLimit = shared.DefaultInQueryLimit
	}
	order := orderings[itemType]
	plan := Plan{Collection: collection, OrderBy: order}

	var scope *shared.Constraint
	switch itemType {
	case shared.ItemTypeSeason:
		scope = superIn(state, shared.ItemTypeTeam, "team")

	case shared.ItemTypeMeet, shared.ItemTypeAthlete:
		scope = superIn(state, shared.ItemTypeSeason, "season")
		if scope == nil {
			scope = superIn(state, shared.ItemTypeTeam, "team")
		}
		if itemType == shared.ItemTypeMeet {
			if c := superIn(state, shared.ItemTypeMeet, shared.FieldID); c != nil {
				plan.InMemory = append(plan.InMemory, *c)
			}
		}

	case shared.ItemTypeResult:
		for _, s := range resultScopes {
			c := superIn(state, s.itemType, s.field)
			if c == nil {
				continue
			}
			if scope == nil {
				scope = c
				continue
			}
			plan.InMemory = append(plan.InMemory, *c)
		}
		if scope == nil {
			plan.Disabled = true
			return plan, nil
		}
		if c := superIn(state, shared.ItemTypeAthlete, "athletes"); c != nil {
			plan.InMemory = append(plan.InMemory, *c)
		}
		plan.PersonIDs = state.SuperSelectedIDs(shared.ItemTypePerson)
	}

	if scope == nil {
		plan.Queries = []shared.Query{{OrderBy: order}}
		return plan, nil
	}
	for _, ids := range chunk(scope.Values, inLimit) {
		plan.Queries = append(plan.Queries, shared.Query{
			Constraints: []shared.Constraint{shared.In(scope.Field, ids)},
			OrderBy:     order,
		})
	}
	return plan, nil
}

func superIn(state filter.State, itemType shared.ItemType, field string) *shared.Constraint {
	ids := state.SuperSelectedIDs(itemType)
	if len(ids) == 0 {
		return nil
	}
	c := shared.In(field, ids)
	return &c
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// relations returns the references the fade rule inspects for a record,
// nearest type first
func relations(itemType shared.ItemType, rec shared.Record, personsOf func([]string) []string) []filter.Relation {
	switch itemType {
	case shared.ItemTypeSeason:
		return []filter.Relation{filter.Rel(shared.ItemTypeTeam, rec.String("team"))}
	case shared.ItemTypeMeet:
		return []filter.Relation{
			filter.Rel(shared.ItemTypeMeet, rec.ID()),
			filter.Rel(shared.ItemTypeSeason, rec.String("season")),
			filter.Rel(shared.ItemTypeTeam, rec.String("team")),
		}
	case shared.ItemTypeAthlete:
		return []filter.Relation{
			filter.Rel(shared.ItemTypeSeason, rec.String("season")),
			filter.Rel(shared.ItemTypeTeam, rec.String("team")),
		}
	case shared.ItemTypeResult:
		athletes := rec.Strings("athletes")
		return []filter.Relation{
			filter.Rel(shared.ItemTypeTeam, rec.String("team")),
			filter.Rel(shared.ItemTypeSeason, rec.String("season")),
			filter.Rel(shared.ItemTypeMeet, rec.String("meet")),
			filter.Rel(shared.ItemTypeEvent, rec.String("event")),
			filter.Rel(shared.ItemTypeAthlete, athletes...),
			filter.Rel(shared.ItemTypePerson, personsOf(athletes)...),
		}
	}
	return nil
}

// faded applies the per-type fade rule. Results check every relation
// independently; the other types use the cascading rule.
func faded(itemType shared.ItemType, state filter.State, rels []filter.Relation) bool {
	if itemType == shared.ItemTypeResult {
		return filter.FadedAny(state, rels...)
	}
	return filter.Faded(state, rels...)
}
