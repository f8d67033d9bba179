package filter

import (
	"slices"

	"github.com/swimteam/backend/internal/domain/shared"
)

// Selection is the per-id selection level
type Selection int

const (
	Unselected Selection = iota
	Selected
	SuperSelected
)

// String returns the selection level name
func (s Selection) String() string {
	switch s {
	case Selected:
		return "selected"
	case SuperSelected:
		return "super_selected"
	default:
		return "unselected"
	}
}

// State holds the selected and super-selected id sets for every item type.
// Both maps always carry a key for each shared.AllItemTypes entry. Id order is
// insertion order and carries no meaning.
type State struct {
	Selected      map[shared.ItemType][]string `json:"selected"`
	SuperSelected map[shared.ItemType][]string `json:"superSelected"`
}

// NewState returns the empty state with every type key present
func NewState() State {
	s := State{
		Selected:      make(map[shared.ItemType][]string, len(shared.AllItemTypes)),
		SuperSelected: make(map[shared.ItemType][]string, len(shared.AllItemTypes)),
	}
	for _, t := range shared.AllItemTypes {
		s.Selected[t] = []string{}
		s.SuperSelected[t] = []string{}
	}
	return s
}

// Clone returns a deep copy that shares no slices or maps with s
func (s State) Clone() State {
	out := NewState()
	for t, ids := range s.Selected {
		out.Selected[t] = append([]string{}, ids...)
	}
	for t, ids := range s.SuperSelected {
		out.SuperSelected[t] = append([]string{}, ids...)
	}
	return out
}

// SelectionOf returns the selection level of id within itemType
func (s State) SelectionOf(itemType shared.ItemType, id string) Selection {
	if slices.Contains(s.SuperSelected[itemType], id) {
		return SuperSelected
	}
	if slices.Contains(s.Selected[itemType], id) {
		return Selected
	}
	return Unselected
}

// IsSelected reports whether id is in the selected set (super-selected ids included)
func (s State) IsSelected(itemType shared.ItemType, id string) bool {
	return slices.Contains(s.Selected[itemType], id)
}

// IsSuperSelected reports whether id is super-selected
func (s State) IsSuperSelected(itemType shared.ItemType, id string) bool {
	return slices.Contains(s.SuperSelected[itemType], id)
}

// SelectedIDs returns a copy of the selected ids of itemType
func (s State) SelectedIDs(itemType shared.ItemType) []string {
	return append([]string{}, s.Selected[itemType]...)
}

// SuperSelectedIDs returns a copy of the super-selected ids of itemType
func (s State) SuperSelectedIDs(itemType shared.ItemType) []string {
	return append([]string{}, s.SuperSelected[itemType]...)
}

// HasSelection reports whether itemType has any plain or super selection
func (s State) HasSelection(itemType shared.ItemType) bool {
	return len(s.Selected[itemType]) > 0 || len(s.SuperSelected[itemType]) > 0
}

// HasSuperSelection reports whether itemType has any super selection
func (s State) HasSuperSelection(itemType shared.ItemType) bool {
	return len(s.SuperSelected[itemType]) > 0
}

// IsEmpty reports whether no type has any selection
func (s State) IsEmpty() bool {
	for _, t := range shared.AllItemTypes {
		if s.HasSelection(t) {
			return false
		}
	}
	return true
}
