package dto

// ToggleSelectionRequest cycles one record's selection level
type ToggleSelectionRequest struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required,max=128"`
}

// Clear scopes
const (
	ClearScopeSelected = "selected"
	ClearScopeSuper    = "super"
	ClearScopeType     = "type"
)

// ClearSelectionRequest clears one type's selections
type ClearSelectionRequest struct {
	Type  string `json:"type" binding:"required"`
	Scope string `json:"scope" binding:"required,oneof=selected super type"`
}

// SelectItemRequest binds the form to a record, or to a new record in add mode
type SelectItemRequest struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"omitempty,max=128"`
	Mode string `json:"mode" binding:"omitempty,oneof=view edit add"`
}

// UpdateFieldRequest sets one working-copy field
type UpdateFieldRequest struct {
	Field string `json:"field" binding:"required,max=64"`
	Value any    `json:"value"`
}

// DeleteQuery carries the client's delete confirmation
type DeleteQuery struct {
	Confirm bool `form:"confirm"`
}

// ListQuery narrows a list to records with one selection level
type ListQuery struct {
	Only string `form:"only" binding:"omitempty,oneof=selected super_selected visible"`
}
