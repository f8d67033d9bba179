package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads one worksheet of an .xlsx workbook. The first row is
// the header row.
type XLSXReader struct {
	file    *excelize.File
	sheet   string
	headers []string
	rows    [][]string
	next    int
}

// NewXLSXReader opens a workbook and reads the named sheet, or the first
// sheet when name is empty
func NewXLSXReader(r io.Reader, name string) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			_ = f.Close()
			return nil, ErrEmptyFile
		}
		name = sheets[0]
	}
	rows, err := f.GetRows(name)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		_ = f.Close()
		return nil, ErrMissingHeader
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = NormaliseHeader(h)
	}
	return &XLSXReader{
		file:    f,
		sheet:   name,
		headers: headers,
		rows:    rows[1:],
	}, nil
}

// Sheet returns the worksheet being read
func (x *XLSXReader) Sheet() string {
	return x.sheet
}

// Headers returns the normalised header names
func (x *XLSXReader) Headers() []string {
	return x.headers
}

// ReadRow returns the next row. Line numbers match the worksheet rows.
func (x *XLSXReader) ReadRow() (*Row, error) {
	if x.next >= len(x.rows) {
		return nil, io.EOF
	}
	fields := x.rows[x.next]
	x.next++
	return rowFromFields(x.next+1, x.headers, fields), nil
}

// Close releases the workbook
func (x *XLSXReader) Close() error {
	return x.file.Close()
}
