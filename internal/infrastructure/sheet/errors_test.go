package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError(t *testing.T) {
	t.Run("Error with column", func(t *testing.T) {
		err := NewRowError(5, "time", ErrCodeInvalidFormat, "invalid time")
		assert.Equal(t, "row 5, column 'time': invalid time", err.Error())
	})

	t.Run("Error without column", func(t *testing.T) {
		err := NewRowError(10, "", ErrCodeMalformedRow, "malformed row")
		assert.Equal(t, "row 10: malformed row", err.Error())
	})

	t.Run("Error with value", func(t *testing.T) {
		err := NewRowErrorWithValue(3, "meet", ErrCodeReferenceMissing, "meet not found", "m9")
		assert.Equal(t, "m9", err.Value)
		assert.Equal(t, 3, err.Row)
	})
}

func TestErrorCollection(t *testing.T) {
	t.Run("Add errors exceeding limit", func(t *testing.T) {
		ec := NewErrorCollection(3)
		for i := 1; i <= 5; i++ {
			ec.AddRequiredError(i, "meet")
		}

		assert.Equal(t, 3, ec.Count())
		assert.Equal(t, 5, ec.TotalCount())
		assert.True(t, ec.IsTruncated())
		assert.Equal(t, map[string]int{ErrCodeRequiredField: 3}, ec.ErrorSummary())
		assert.Contains(t, ec.String(), "5 error(s) found (showing first 3)")
	})

	t.Run("Empty collection", func(t *testing.T) {
		ec := NewErrorCollection(0)
		assert.False(t, ec.HasErrors())
		assert.Equal(t, "no errors", ec.String())
	})

	t.Run("Typed helpers", func(t *testing.T) {
		ec := NewErrorCollection(10)
		ec.AddFormatError(2, "time", "MM:SS.HH or SS.HH", "abc")
		ec.AddReferenceError(3, "meet", "m9", "meet")

		errs := ec.Errors()
		assert.Equal(t, "invalid format, expected MM:SS.HH or SS.HH", errs[0].Message)
		assert.Equal(t, "meet 'm9' not found", errs[1].Message)
	})
}
