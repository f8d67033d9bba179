package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	formapp "github.com/swimteam/backend/internal/application/form"
	"github.com/swimteam/backend/internal/domain/form"
	"github.com/swimteam/backend/internal/interfaces/http/dto"
)

// FormHandler drives the session's single-record edit form
type FormHandler struct {
	BaseHandler
}

// NewFormHandler creates a new FormHandler
func NewFormHandler() *FormHandler {
	return &FormHandler{}
}

// Get godoc
//
//	@Summary	Get form state
//	@Tags		form
//	@Produce	json
//	@Success	200	{object}	APIResponse[dto.FormResponse]
//	@Router		/form [get]
func (h *FormHandler) Get(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	h.Success(c, formResponse(s.Form.State()))
}

// Select godoc
//
//	@Summary		Bind the form to a record
//	@Description	view and edit load the record; add starts an empty record, prefilled from single super-selected parents.
//	@Description	mode defaults to view with an id and to add without one.
//	@Tags			form
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SelectItemRequest	true	"Type, id and mode"
//	@Success		200		{object}	APIResponse[dto.FormResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/form/select [post]
func (h *FormHandler) Select(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	var req dto.SelectItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	itemType, ok := h.parseItemType(c, req.Type)
	if !ok {
		return
	}
	if req.Mode == "" {
		req.Mode = string(form.ModeView)
		if req.ID == "" {
			req.Mode = string(form.ModeAdd)
		}
	}
	mode, err := form.ParseMode(req.Mode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	state, err := s.Form.Select(c.Request.Context(), itemType, req.ID, mode)
	h.respond(c, state, err)
}

// UpdateField godoc
//
//	@Summary	Set one field of the working copy
//	@Tags		form
//	@Accept		json
//	@Produce	json
//	@Param		request	body		dto.UpdateFieldRequest	true	"Field and value"
//	@Success	200		{object}	APIResponse[dto.FormResponse]
//	@Router		/form/fields [patch]
func (h *FormHandler) UpdateField(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	var req dto.UpdateFieldRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.Success(c, formResponse(s.Form.UpdateField(req.Field, req.Value)))
}

// Revert godoc
//
//	@Summary	Restore the working copy from the last loaded or saved record
//	@Tags		form
//	@Produce	json
//	@Success	200	{object}	APIResponse[dto.FormResponse]
//	@Router		/form/revert [post]
func (h *FormHandler) Revert(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	h.Success(c, formResponse(s.Form.Revert()))
}

// Clear godoc
//
//	@Summary	Unbind the form
//	@Tags		form
//	@Produce	json
//	@Success	200	{object}	APIResponse[dto.FormResponse]
//	@Router		/form/clear [post]
func (h *FormHandler) Clear(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	h.Success(c, formResponse(s.Form.Clear()))
}

// Save godoc
//
//	@Summary		Validate and persist the working copy
//	@Description	add creates the record and reopens it in view mode; edit overwrites it
//	@Tags			form
//	@Produce		json
//	@Success		200	{object}	APIResponse[dto.FormResponse]
//	@Failure		400	{object}	ErrorResponse	"validation failed, the form carries the message"
//	@Failure		422	{object}	ErrorResponse
//	@Router			/form/save [post]
func (h *FormHandler) Save(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	state, err := s.Form.Save(c.Request.Context())
	h.respond(c, state, err)
}

// Delete godoc
//
//	@Summary		Delete the bound record
//	@Description	Requires confirm=true; without it the form is unchanged and the prompt is returned
//	@Tags			form
//	@Produce		json
//	@Param			confirm	query		bool	false	"Confirm the delete"
//	@Success		200		{object}	APIResponse[dto.FormResponse]
//	@Failure		428		{object}	ErrorResponse
//	@Router			/form [delete]
func (h *FormHandler) Delete(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	var q dto.DeleteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "confirm must be true or false")
		return
	}
	confirmer := formapp.ConfirmFunc(func(context.Context, form.SelectedItem, string) bool {
		return q.Confirm
	})
	state, err := s.Form.Delete(c.Request.Context(), confirmer)
	h.respond(c, state, err)
}

func (h *FormHandler) respond(c *gin.Context, state form.State, err error) {
	if err != nil {
		h.HandleErrorWithData(c, err, formResponse(state))
		return
	}
	h.Success(c, formResponse(state))
}

func formResponse(state form.State) dto.FormResponse {
	resp := dto.FormResponse{State: state, Dirty: state.IsDirty()}
	if state.SelectedItem.ID != "" {
		resp.DeletePrompt = formapp.DeletePrompt(state)
	}
	return resp
}
