package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/application/query"
	"github.com/swimteam/backend/internal/interfaces/http/dto"
	"github.com/swimteam/backend/internal/interfaces/http/middleware"
)

// ListHandler serves the filter-scoped, decorated record lists
type ListHandler struct {
	BaseHandler
	composer *query.Composer
}

// NewListHandler creates a new ListHandler
func NewListHandler(composer *query.Composer) *ListHandler {
	return &ListHandler{composer: composer}
}

// List godoc
//
//	@Summary		List records of one type under the session's selection
//	@Description	Super-selections narrow the fetch; every item carries its selected, faded and clickable flags.
//	@Description	Results stay empty until a team, season, meet or event is super-selected.
//	@Tags			lists
//	@Produce		json
//	@Param			type	path		string	true	"Item type or collection"	Enums(team, season, meet, athlete, person, event, result)
//	@Param			only	query		string	false	"Keep only selected, super_selected or visible items"
//	@Success		200		{object}	APIResponse[[]query.Item]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/lists/{type} [get]
func (h *ListHandler) List(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	itemType, ok := h.parseItemType(c, c.Param("type"))
	if !ok {
		return
	}
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	items, err := h.composer.List(c.Request.Context(), itemType, s.Filter.State())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if q.Only != "" {
		items = keepOnly(items, q.Only)
	}
	h.SuccessList(c, items, len(items))
}

func keepOnly(items []query.Item, only string) []query.Item {
	out := make([]query.Item, 0, len(items))
	for _, it := range items {
		var keep bool
		switch only {
		case "selected":
			keep = it.Selected
		case "super_selected":
			keep = it.SuperSelected
		default:
			keep = !it.Faded
		}
		if keep {
			out = append(out, it)
		}
	}
	return out
}
