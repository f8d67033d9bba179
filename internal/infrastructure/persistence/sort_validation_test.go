package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns ASC", "", "ASC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"DESC uppercase returns DESC", "DESC", "DESC"},
		{"invalid value returns ASC", "INVALID", "ASC"},
		{"sql injection attempt returns ASC", "DESC; DROP TABLE people;--", "ASC"},
		{"whitespace only returns ASC", "   ", "ASC"},
		{"whitespace around desc returns DESC", "  desc  ", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	cs, err := SchemaFor("people")
	require.NoError(t, err)
	allowed := cs.SortFields()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "last_name"},
		{"valid field returns field", "first_name", "first_name"},
		{"id is sortable", "id", "id"},
		{"list fields are not sortable", "emails", "last_name"},
		{"unknown field returns default", "nickname", "last_name"},
		{"case sensitive", "FIRST_NAME", "last_name"},
		{"whitespace around valid field", "  birthday  ", "birthday"},
		{"sql injection attempt returns default", "id; DROP TABLE people;--", "last_name"},
		{"field with quotes returns default", "first_name'--", "last_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, allowed, "last_name"))
		})
	}
}
