package sheet

import (
	"io"
	"path/filepath"
	"strings"
)

// Row is one data row keyed by normalised header name
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[NormaliseHeader(header)]
}

// GetOrDefault returns the value for a column, or defaultVal if blank
func (r *Row) GetOrDefault(header, defaultVal string) string {
	if val := r.Get(header); val != "" {
		return val
	}
	return defaultVal
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Reader yields the data rows of a tabular file after its header row
type Reader interface {
	Headers() []string
	// ReadRow returns io.EOF after the last row
	ReadRow() (*Row, error)
	Close() error
}

// Format is a supported file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf picks the format from a file name's extension
func FormatOf(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// Open returns a reader for r with its header row already parsed
func Open(fileName string, r io.Reader) (Reader, error) {
	format, err := FormatOf(fileName)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return NewXLSXReader(r, "")
	}
	parser, err := NewCSVReader(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	return parser, nil
}

// ReadAll reads the remaining rows, skipping completely empty ones
func ReadAll(r Reader) ([]*Row, error) {
	var rows []*Row
	for {
		row, err := r.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// MissingHeaders returns the required headers absent from r
func MissingHeaders(r Reader, required []string) []string {
	have := make(map[string]struct{}, len(r.Headers()))
	for _, h := range r.Headers() {
		have[h] = struct{}{}
	}
	var missing []string
	for _, h := range required {
		if _, ok := have[NormaliseHeader(h)]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// NormaliseHeader lower-cases a header and trims surrounding whitespace
func NormaliseHeader(h string) string {
	return strings.ToLower(trimSpaces(h))
}

func rowFromFields(line int, headers, fields []string) *Row {
	row := &Row{
		LineNumber: line,
		Data:       make(map[string]string, len(headers)),
	}
	for i, header := range headers {
		if header == "" {
			continue
		}
		value := ""
		if i < len(fields) {
			value = trimSpaces(fields[i])
		}
		row.Data[header] = value
	}
	return row
}
