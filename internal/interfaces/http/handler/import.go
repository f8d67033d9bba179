package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/application/importer"
	"github.com/swimteam/backend/internal/infrastructure/sheet"
	"github.com/swimteam/backend/internal/interfaces/http/dto"
)

// DefaultMaxImportFileSize is the upload limit when none is configured (10MB)
const DefaultMaxImportFileSize = 10 * 1024 * 1024

var importContentTypes = map[string]bool{
	"":                         true,
	"text/csv":                 true,
	"text/plain":               true,
	"application/octet-stream": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// ImportHandler accepts result spreadsheets
type ImportHandler struct {
	BaseHandler
	service     *importer.ResultImportService
	maxFileSize int64
}

// NewImportHandler creates a new ImportHandler. A non-positive maxFileSize
// uses DefaultMaxImportFileSize.
func NewImportHandler(service *importer.ResultImportService, maxFileSize int64) *ImportHandler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxImportFileSize
	}
	return &ImportHandler{service: service, maxFileSize: maxFileSize}
}

// ImportResults godoc
//
//	@Summary		Import results from a CSV or XLSX file
//	@Description	Columns: meet, event, athletes, time, and optionally dq, relay.
//	@Description	Rows that fail validation are reported; the others are created.
//	@Tags			import
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV or XLSX file"
//	@Success		200		{object}	APIResponse[importer.ResultImportReport]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		415		{object}	ErrorResponse
//	@Router			/imports/results [post]
func (h *ImportHandler) ImportResults(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
			fmt.Sprintf("file exceeds maximum size of %dMB", h.maxFileSize/(1024*1024)))
		return
	}
	if _, err := sheet.FormatOf(header.Filename); err != nil || !importContentTypes[header.Header.Get("Content-Type")] {
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeValidation, "file must be a .csv or .xlsx spreadsheet")
		return
	}

	report, err := h.service.Import(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
