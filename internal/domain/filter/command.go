package filter

import (
	"slices"

	"github.com/swimteam/backend/internal/domain/shared"
)

// Command is a state transition dispatched through Apply
type Command interface {
	commandName() string
}

// ToggleSelection cycles one id: unselected -> selected -> super-selected -> unselected
type ToggleSelection struct {
	ItemType shared.ItemType
	ID       string
}

// ClearSelected empties both sets of one type
type ClearSelected struct {
	ItemType shared.ItemType
}

// ClearSuperSelected empties the super-selected set of one type only
type ClearSuperSelected struct {
	ItemType shared.ItemType
}

// ClearAllType empties both sets of one type
type ClearAllType struct {
	ItemType shared.ItemType
}

// ClearAll resets every type. Callers also discard the persisted snapshot.
type ClearAll struct{}

func (ToggleSelection) commandName() string    { return "TOGGLE_SELECTION" }
func (ClearSelected) commandName() string      { return "CLEAR_SELECTED" }
func (ClearSuperSelected) commandName() string { return "CLEAR_SUPER_SELECTED" }
func (ClearAllType) commandName() string       { return "CLEAR_ALL_TYPE" }
func (ClearAll) commandName() string           { return "CLEAR_ALL" }

// CommandName returns the wire name of cmd, e.g. "TOGGLE_SELECTION"
func CommandName(cmd Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.commandName()
}

// Apply returns the state that results from cmd. The input state is never
// modified. Commands naming an item type outside shared.AllItemTypes leave the
// state unchanged.
func Apply(state State, cmd Command) State {
	switch c := cmd.(type) {
	case ToggleSelection:
		if !c.ItemType.IsValid() || c.ID == "" {
			return state
		}
		next := state.Clone()
		selected := next.Selected[c.ItemType]
		super := next.SuperSelected[c.ItemType]
		switch {
		case slices.Contains(super, c.ID):
			next.Selected[c.ItemType] = without(selected, c.ID)
			next.SuperSelected[c.ItemType] = without(super, c.ID)
		case slices.Contains(selected, c.ID):
			next.SuperSelected[c.ItemType] = append(super, c.ID)
		default:
			next.Selected[c.ItemType] = append(selected, c.ID)
		}
		return next

	case ClearSelected:
		return clearType(state, c.ItemType)

	case ClearAllType:
		return clearType(state, c.ItemType)

	case ClearSuperSelected:
		if !c.ItemType.IsValid() {
			return state
		}
		next := state.Clone()
		next.SuperSelected[c.ItemType] = []string{}
		return next

	case ClearAll:
		return NewState()

	default:
		return state
	}
}

func clearType(state State, itemType shared.ItemType) State {
	if !itemType.IsValid() {
		return state
	}
	next := state.Clone()
	next.Selected[itemType] = []string{}
	next.SuperSelected[itemType] = []string{}
	return next
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
