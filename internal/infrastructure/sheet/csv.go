package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"
)

// CSVReader reads a UTF-8 CSV file with a header row
type CSVReader struct {
	delimiter  rune
	headers    []string
	currentRow int
	reader     *csv.Reader
}

// CSVOption is a functional option for CSVReader configuration
type CSVOption func(*CSVReader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) CSVOption {
	return func(p *CSVReader) {
		p.delimiter = d
	}
}

// NewCSVReader creates a CSV reader. A UTF-8 BOM is stripped and content
// that is not UTF-8 is rejected.
func NewCSVReader(r io.Reader, opts ...CSVOption) (*CSVReader, error) {
	parser := &CSVReader{delimiter: ','}
	for _, opt := range opts {
		opt(parser)
	}

	buf := bufio.NewReader(r)

	content, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	if err := validateUTF8(buf); err != nil {
		return nil, err
	}

	parser.reader = csv.NewReader(buf)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = true
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1

	return parser, nil
}

// NewCSVReaderFromBytes creates a reader over a byte slice
func NewCSVReaderFromBytes(data []byte, opts ...CSVOption) (*CSVReader, error) {
	return NewCSVReader(bytes.NewReader(data), opts...)
}

func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	// a peek may end inside a multi-byte rune
	if len(content) == checkSize {
		for i := 0; i < utf8.UTFMax && len(content) > 0 && !utf8.Valid(content); i++ {
			content = content[:len(content)-1]
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// ParseHeader reads and normalises the header row
func (p *CSVReader) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.headers = make([]string, len(record))
	for i, h := range record {
		p.headers[i] = NormaliseHeader(h)
	}
	p.currentRow = 1
	return nil
}

// Headers returns the normalised header names
func (p *CSVReader) Headers() []string {
	return p.headers
}

// ReadRow reads the next row
func (p *CSVReader) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, NewRowError(p.currentRow, "", ErrCodeMalformedRow, err.Error())
	}
	return rowFromFields(p.currentRow, p.headers, record), nil
}

// CurrentRow returns the current line number (1-indexed, header included)
func (p *CSVReader) CurrentRow() int {
	return p.currentRow
}

// Close implements Reader
func (p *CSVReader) Close() error {
	return nil
}

func trimSpaces(s string) string {
	start := 0
	end := len(s)

	for start < end {
		r, size := utf8.DecodeRuneInString(s[start:])
		if !isWhitespace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(s[:end])
		if !isWhitespace(r) {
			break
		}
		end -= size
	}
	return s[start:end]
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0':
		return true
	}
	return false
}
