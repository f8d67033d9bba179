package form

import (
	"github.com/swimteam/backend/internal/domain/shared"
)

// Command is a form transition dispatched through Apply
type Command interface {
	commandName() string
}

// SelectItemForForm binds the form to a record and mode.
// ID is empty when adding a new record.
type SelectItemForForm struct {
	Type shared.ItemType
	ID   string
	Mode Mode
}

// LoadFormDataStart marks a fetch in flight
type LoadFormDataStart struct{}

// LoadFormDataSuccess installs a fetched record as both working copy and revert point
type LoadFormDataSuccess struct {
	Data shared.Record
}

// LoadFormDataError records a failed fetch
type LoadFormDataError struct {
	Message string
}

// UpdateFormData sets one field of the working copy
type UpdateFormData struct {
	Field string
	Value any
}

// RevertFormData restores the working copy from the revert point
type RevertFormData struct{}

// SetSaving toggles the in-flight save flag
type SetSaving struct {
	Saving bool
}

// SetError sets or clears the error message. A nil Message clears it.
type SetError struct {
	Message *string
}

// SaveSuccess switches to view mode and re-baselines the revert point
type SaveSuccess struct{}

// DeleteSuccess resets the form
type DeleteSuccess struct{}

// ClearForm resets the form
type ClearForm struct{}

func (SelectItemForForm) commandName() string   { return "SELECT_ITEM_FOR_FORM" }
func (LoadFormDataStart) commandName() string   { return "LOAD_FORM_DATA_START" }
func (LoadFormDataSuccess) commandName() string { return "LOAD_FORM_DATA_SUCCESS" }
func (LoadFormDataError) commandName() string   { return "LOAD_FORM_DATA_ERROR" }
func (UpdateFormData) commandName() string      { return "UPDATE_FORM_DATA" }
func (RevertFormData) commandName() string      { return "REVERT_FORM_DATA" }
func (SetSaving) commandName() string           { return "SET_SAVING" }
func (SetError) commandName() string            { return "SET_ERROR" }
func (SaveSuccess) commandName() string         { return "SAVE_SUCCESS" }
func (DeleteSuccess) commandName() string       { return "DELETE_SUCCESS" }
func (ClearForm) commandName() string           { return "CLEAR_FORM" }

// CommandName returns the wire name of cmd
func CommandName(cmd Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.commandName()
}

// Errorf is a convenience for building a SetError command
func Errorf(msg string) SetError {
	return SetError{Message: errorPtr(msg)}
}

// Apply returns the state that results from cmd without modifying state.
// Selecting the record and mode that are already current returns state as is.
func Apply(state State, cmd Command) State {
	switch c := cmd.(type) {
	case SelectItemForForm:
		current := state.SelectedItem
		next := SelectedItem{ID: c.ID, Type: c.Type, Mode: c.Mode}
		if current == next {
			return state
		}
		out := state.Clone()
		if !current.SameRecord(next) {
			out.SelectedItem = next
			out.FormData = nil
			out.OriginalFormData = nil
			out.IsLoading = c.ID != "" && c.Mode != ModeAdd
			out.Error = nil
			out.IsSaving = false
			return out
		}
		// same record, mode flip only: keep in-memory data, no reload
		out.SelectedItem.Mode = c.Mode
		out.IsLoading = false
		out.IsSaving = false
		out.Error = nil
		return out

	case LoadFormDataStart:
		out := state.Clone()
		out.IsLoading = true
		out.FormData = nil
		out.OriginalFormData = nil
		out.Error = nil
		return out

	case LoadFormDataSuccess:
		out := state.Clone()
		out.IsLoading = false
		out.FormData = c.Data.Clone()
		out.OriginalFormData = c.Data.Clone()
		out.Error = nil
		return out

	case LoadFormDataError:
		out := state.Clone()
		out.IsLoading = false
		out.FormData = nil
		out.OriginalFormData = nil
		out.Error = errorPtr(c.Message)
		return out

	case UpdateFormData:
		out := state.Clone()
		if out.FormData == nil {
			out.FormData = shared.Record{}
		}
		out.FormData[c.Field] = c.Value
		return out

	case RevertFormData:
		out := state.Clone()
		out.FormData = state.OriginalFormData.Clone()
		out.Error = nil
		return out

	case SetSaving:
		out := state.Clone()
		out.IsSaving = c.Saving
		if c.Saving {
			out.Error = nil
		}
		return out

	case SetError:
		out := state.Clone()
		out.IsSaving = false
		out.Error = nil
		if c.Message != nil {
			out.Error = errorPtr(*c.Message)
		}
		return out

	case SaveSuccess:
		out := state.Clone()
		out.IsSaving = false
		out.Error = nil
		out.SelectedItem.Mode = ModeView
		out.OriginalFormData = state.FormData.Clone()
		return out

	case DeleteSuccess, ClearForm:
		return NewState()

	default:
		return state
	}
}
