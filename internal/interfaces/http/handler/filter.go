package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/application/session"
	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/infrastructure/logger"
	"github.com/swimteam/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const msgSelectionNotSaved = "Selection changed but could not be saved."

// FilterHandler serves the session's selection state
type FilterHandler struct {
	BaseHandler
}

// NewFilterHandler creates a new FilterHandler
func NewFilterHandler() *FilterHandler {
	return &FilterHandler{}
}

// Get godoc
//
//	@Summary		Get selection state
//	@Tags			filter
//	@Produce		json
//	@Param			X-Session-ID	header		string	false	"Session id"
//	@Success		200				{object}	APIResponse[dto.FilterResponse]
//	@Router			/filter [get]
func (h *FilterHandler) Get(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	h.Success(c, filterResponse(s, s.Filter.State()))
}

// Toggle godoc
//
//	@Summary		Cycle one record's selection level
//	@Description	unselected, selected, super-selected, then back to unselected
//	@Tags			filter
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ToggleSelectionRequest	true	"Record to toggle"
//	@Success		200		{object}	APIResponse[dto.FilterResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/filter/toggle [post]
func (h *FilterHandler) Toggle(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	var req dto.ToggleSelectionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	itemType, ok := h.parseItemType(c, req.Type)
	if !ok {
		return
	}
	state, err := s.Filter.Toggle(c.Request.Context(), itemType, req.ID)
	h.respond(c, s, state, err)
}

// Clear godoc
//
//	@Summary		Clear one type's selections
//	@Description	scope "selected" clears both levels, "super" only super-selections, "type" both sets
//	@Tags			filter
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ClearSelectionRequest	true	"Type and scope"
//	@Success		200		{object}	APIResponse[dto.FilterResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/filter/clear [post]
func (h *FilterHandler) Clear(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	var req dto.ClearSelectionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	itemType, ok := h.parseItemType(c, req.Type)
	if !ok {
		return
	}

	var cmd filter.Command
	switch req.Scope {
	case dto.ClearScopeSelected:
		cmd = filter.ClearSelected{ItemType: itemType}
	case dto.ClearScopeSuper:
		cmd = filter.ClearSuperSelected{ItemType: itemType}
	default:
		cmd = filter.ClearAllType{ItemType: itemType}
	}
	state, err := s.Filter.Dispatch(c.Request.Context(), cmd)
	h.respond(c, s, state, err)
}

// Reset godoc
//
//	@Summary		Clear every selection and drop the stored snapshot
//	@Tags			filter
//	@Produce		json
//	@Success		200	{object}	APIResponse[dto.FilterResponse]
//	@Router			/filter [delete]
func (h *FilterHandler) Reset(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	state, err := s.Filter.ClearAll(c.Request.Context())
	h.respond(c, s, state, err)
}

// respond answers with the new state. The state is applied in memory even
// when persisting it failed, so that case still carries it.
func (h *FilterHandler) respond(c *gin.Context, s *session.Session, state filter.State, err error) {
	body := filterResponse(s, state)
	if err != nil {
		logger.GetGinLogger(c).Warn("selection not persisted", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithData(
			dto.ErrCodeStoreUnavailable, msgSelectionNotSaved, getRequestID(c), body))
		return
	}
	h.Success(c, body)
}

func filterResponse(s *session.Session, state filter.State) dto.FilterResponse {
	return dto.FilterResponse{SessionID: s.ID, State: state}
}
