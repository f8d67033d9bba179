package form

import (
	"github.com/swimteam/backend/internal/domain/shared"
)

// Mode is the form discriminator. The zero value is the idle mode.
type Mode string

const (
	ModeNone Mode = ""
	ModeView Mode = "view"
	ModeEdit Mode = "edit"
	ModeAdd  Mode = "add"
)

// IsValid reports whether m is a known mode (idle included)
func (m Mode) IsValid() bool {
	switch m {
	case ModeNone, ModeView, ModeEdit, ModeAdd:
		return true
	}
	return false
}

// ParseMode parses a mode name; "" parses to ModeNone
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return ModeNone, shared.NewDomainError(shared.CodeInvalidInput, "unknown form mode: "+s)
	}
	return m, nil
}

// SelectedItem identifies the record the form is bound to.
// ID is empty in add mode and when idle.
type SelectedItem struct {
	ID   string          `json:"id,omitempty"`
	Type shared.ItemType `json:"type,omitempty"`
	Mode Mode            `json:"mode,omitempty"`
}

// SameRecord reports whether two selections point at the same (type, id)
func (s SelectedItem) SameRecord(other SelectedItem) bool {
	return s.ID == other.ID && s.Type == other.Type
}

// State is a single-record edit session.
// FormData is the working copy and OriginalFormData the revert point;
// both are nil until a load succeeds or a field is edited.
type State struct {
	SelectedItem     SelectedItem  `json:"selectedItem"`
	FormData         shared.Record `json:"formData"`
	OriginalFormData shared.Record `json:"originalFormData"`
	IsLoading        bool          `json:"isLoading"`
	IsSaving         bool          `json:"isSaving"`
	Error            *string       `json:"error"`
}

// NewState returns the idle form
func NewState() State {
	return State{}
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	out := s
	out.FormData = s.FormData.Clone()
	out.OriginalFormData = s.OriginalFormData.Clone()
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	return out
}

// ErrorMessage returns the error message or ""
func (s State) ErrorMessage() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

// IsDirty reports whether the working copy differs from the revert point
func (s State) IsDirty() bool {
	if len(s.FormData) != len(s.OriginalFormData) {
		return true
	}
	for k, v := range s.FormData {
		o, ok := s.OriginalFormData[k]
		if !ok || (shared.Record{"v": v}).String("v") != (shared.Record{"v": o}).String("v") {
			return true
		}
	}
	return false
}

func errorPtr(msg string) *string {
	return &msg
}
