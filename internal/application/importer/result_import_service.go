package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	formapp "github.com/swimteam/backend/internal/application/form"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/sheet"
	"github.com/swimteam/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Result sheet columns
const (
	ColumnMeet     = "meet"
	ColumnEvent    = "event"
	ColumnAthletes = "athletes"
	ColumnTime     = "time"
	ColumnDQ       = "dq"
	ColumnRelay    = "relay"
	ColumnAge      = "age"
)

// RequiredColumns must be present in the header row
var RequiredColumns = []string{ColumnMeet, ColumnEvent, ColumnAthletes, ColumnTime}

const defaultMaxErrors = 100

// ResultImportReport summarises one import
type ResultImportReport struct {
	FileName     string           `json:"file_name"`
	TotalRows    int              `json:"total_rows"`
	ImportedRows int              `json:"imported_rows"`
	ErrorRows    int              `json:"error_rows"`
	CreatedIDs   []string         `json:"created_ids"`
	Errors       []sheet.RowError `json:"errors,omitempty"`
	IsTruncated  bool             `json:"is_truncated,omitempty"`
	TotalErrors  int              `json:"total_errors,omitempty"`
}

// ResultImportService creates result records from a spreadsheet. Each row
// goes through the same validation as the result form; a failing row is
// reported and the remaining rows are still imported.
type ResultImportService struct {
	store     shared.RecordStore
	validator formapp.Validator
	eventBus  shared.EventPublisher
	maxErrors int
	logger    *zap.Logger
}

// NewResultImportService creates a new ResultImportService
func NewResultImportService(
	store shared.RecordStore,
	validator formapp.Validator,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *ResultImportService {
	if validator == nil {
		validator = formapp.NewRecordValidator(store)
	}
	if eventBus == nil {
		eventBus = shared.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultImportService{
		store:     store,
		validator: validator,
		eventBus:  eventBus,
		maxErrors: defaultMaxErrors,
		logger:    logger,
	}
}

// Import reads fileName's content from r and creates one result per row.
// The returned error is non-nil only when the file itself cannot be read.
func (s *ResultImportService) Import(ctx context.Context, fileName string, r io.Reader) (*ResultImportReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "importer", "ImportResults", "file_name", fileName)
	defer span.End()

	reader, err := sheet.Open(fileName, r)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("cannot read %s: %v", fileName, err))
	}
	defer reader.Close()

	if missing := sheet.MissingHeaders(reader, RequiredColumns); len(missing) > 0 {
		err := shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &ResultImportReport{FileName: fileName, CreatedIDs: []string{}}
	rowErrors := sheet.NewErrorCollection(s.maxErrors)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.ReadRow()
		if err == io.EOF {
			break
		}
		var readErr sheet.RowError
		if errors.As(err, &readErr) {
			report.TotalRows++
			report.ErrorRows++
			rowErrors.Add(readErr)
			continue
		}
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		if row.IsEmpty() {
			continue
		}

		report.TotalRows++
		id, rowErr, err := s.importRow(ctx, row)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if rowErr != nil {
			report.ErrorRows++
			rowErrors.Add(*rowErr)
			continue
		}
		report.ImportedRows++
		report.CreatedIDs = append(report.CreatedIDs, id)
	}

	report.Errors = rowErrors.Errors()
	report.IsTruncated = rowErrors.IsTruncated()
	report.TotalErrors = rowErrors.TotalCount()

	telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, report.TotalRows)
	s.logger.Info("results imported",
		zap.String("file_name", fileName),
		zap.Int("total_rows", report.TotalRows),
		zap.Int("imported_rows", report.ImportedRows),
		zap.Int("error_rows", report.ErrorRows))
	return report, nil
}

// importRow creates one result. A row-level problem is returned as a
// RowError; the error return is reserved for a cancelled context.
func (s *ResultImportService) importRow(ctx context.Context, row *sheet.Row) (string, *sheet.RowError, error) {
	data := RowToResult(row)

	validated, err := s.validator.Validate(ctx, shared.ItemTypeResult, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, ctxErr
		}
		rowErr := sheet.NewRowError(row.LineNumber, "", sheet.ErrCodeValidation, err.Error())
		return "", &rowErr, nil
	}

	validated[shared.FieldCreatedAt] = shared.ServerTimestamp
	validated[shared.FieldUpdatedAt] = shared.ServerTimestamp
	id, err := s.store.Create(ctx, "results", validated)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, ctxErr
		}
		s.logger.Warn("failed to create imported result", zap.Int("row", row.LineNumber), zap.Error(err))
		rowErr := sheet.NewRowError(row.LineNumber, "", sheet.ErrCodeStore, err.Error())
		return "", &rowErr, nil
	}

	event := shared.NewRecordChangedEvent(shared.EventTypeRecordCreated, "results", id)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish record change", zap.String("record_id", id), zap.Error(err))
	}
	return id, nil, nil
}

// RowToResult maps a sheet row onto result form fields. Athlete ids may be
// separated by semicolons, pipes or whitespace.
func RowToResult(row *sheet.Row) shared.Record {
	athletes := strings.FieldsFunc(row.Get(ColumnAthletes), func(r rune) bool {
		return r == ';' || r == '|' || r == ' ' || r == '\t'
	})
	rec := shared.Record{
		"meet":                  row.Get(ColumnMeet),
		"event":                 row.Get(ColumnEvent),
		"athletes":              athletes,
		formapp.FieldResultTime: row.Get(ColumnTime),
		"dq":                    parseFlag(row.Get(ColumnDQ)),
		"relay":                 parseFlag(row.Get(ColumnRelay)),
	}
	if age := row.Get(ColumnAge); age != "" {
		rec["age"] = age
	}
	return rec
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "x":
		return true
	}
	return false
}
