package filter

import (
	"slices"

	"github.com/swimteam/backend/internal/domain/shared"
)

// Relation is a record's foreign key(s) into another item type.
// A record relates to a type through zero, one or many ids.
type Relation struct {
	Type shared.ItemType
	IDs  []string
}

// Rel builds a relation, dropping empty ids
func Rel(itemType shared.ItemType, ids ...string) Relation {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return Relation{Type: itemType, IDs: out}
}

func (r Relation) in(ids []string) bool {
	for _, id := range r.IDs {
		if slices.Contains(ids, id) {
			return true
		}
	}
	return false
}

// Faded applies the cascading fade rule. Relations are ordered nearest type
// first (for a meet: season, then team). The first relation whose type has
// any selection decides: a super-selection there means the record already
// passed the query scope and is not faded; a plain selection fades the
// record unless one of its ids is selected. Types with no selection are
// skipped.
func Faded(state State, relations ...Relation) bool {
	for _, rel := range relations {
		if state.HasSuperSelection(rel.Type) {
			return false
		}
		if len(state.Selected[rel.Type]) > 0 {
			return !rel.in(state.Selected[rel.Type])
		}
	}
	return false
}

// FadedAny fades a record if any relation type has a plain selection without
// a super-selection and none of the record's ids for that type is selected.
// Unlike Faded every relation is checked independently.
func FadedAny(state State, relations ...Relation) bool {
	for _, rel := range relations {
		if state.HasSuperSelection(rel.Type) || len(state.Selected[rel.Type]) == 0 {
			continue
		}
		if !rel.in(state.Selected[rel.Type]) {
			return true
		}
	}
	return false
}

// Excluded reports whether a record falls outside an active super-selection:
// some relation type is super-selected and none of the record's ids for it is.
func Excluded(state State, relations ...Relation) bool {
	for _, rel := range relations {
		if !state.HasSuperSelection(rel.Type) {
			continue
		}
		if !rel.in(state.SuperSelected[rel.Type]) {
			return true
		}
	}
	return false
}

// Decoration is how a listed record is presented
type Decoration struct {
	Selected      bool `json:"selected"`
	SuperSelected bool `json:"superSelected"`
	Faded         bool `json:"faded"`
	Clickable     bool `json:"clickable"`
}

// Decorate combines the record's own selection level with a computed fade.
// A selected or super-selected record is never shown faded.
func Decorate(state State, itemType shared.ItemType, id string, faded bool) Decoration {
	level := state.SelectionOf(itemType, id)
	d := Decoration{
		Selected:      level != Unselected,
		SuperSelected: level == SuperSelected,
	}
	d.Faded = faded && level == Unselected
	d.Clickable = !d.Faded
	return d
}
