package handler

import (
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/domain/shared/valueobject"
	"github.com/swimteam/backend/internal/interfaces/http/dto"
)

// MissingTimePlaceholder is shown for results without a recorded time
const MissingTimePlaceholder = "N/A"

// PublicHandler serves read-only views that need no session
type PublicHandler struct {
	BaseHandler
	store shared.RecordStore
}

// NewPublicHandler creates a new PublicHandler
func NewPublicHandler(store shared.RecordStore) *PublicHandler {
	return &PublicHandler{store: store}
}

// AthleteResults godoc
//
//	@Summary	List an athlete's results with formatted times
//	@Tags		public
//	@Produce	json
//	@Param		athleteID	path		string	true	"Athlete id"
//	@Success	200			{object}	APIResponse[dto.PublicAthleteResults]
//	@Failure	404			{object}	ErrorResponse
//	@Router		/public/results/{athleteID} [get]
func (h *PublicHandler) AthleteResults(c *gin.Context) {
	ctx := c.Request.Context()
	athleteID := c.Param("athleteID")

	if _, err := h.store.FetchByID(ctx, "athletes", athleteID); err != nil {
		h.HandleError(c, err)
		return
	}
	records, err := h.store.FetchByFilter(ctx, "results", shared.Query{
		Constraints: []shared.Constraint{shared.Equal("athletes", athleteID)},
		OrderBy:     []shared.OrderBy{{Field: "result", Direction: shared.SortAsc}},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	results := make([]dto.PublicResult, 0, len(records))
	for _, rec := range records {
		var hundredths *int64
		if v, ok := rec.Int("result"); ok {
			hundredths = &v
		}
		results = append(results, dto.PublicResult{
			ID:       rec.ID(),
			Meet:     rec.String("meet"),
			Event:    rec.String("event"),
			Athletes: rec.Strings("athletes"),
			Relay:    rec.Bool("relay"),
			DQ:       rec.Bool("dq"),
			Time:     valueobject.FormatHundredthsOr(hundredths, MissingTimePlaceholder),
		})
	}
	// timed results first, fastest first; untimed keep store order
	sort.SliceStable(results, func(i, j int) bool {
		ti, tj := results[i].Time != MissingTimePlaceholder, results[j].Time != MissingTimePlaceholder
		if ti != tj {
			return ti
		}
		return false
	})
	h.Success(c, dto.PublicAthleteResults{AthleteID: athleteID, Results: results})
}
