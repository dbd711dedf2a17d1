package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSeparators(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1,299.99", "1299.99"},
		{"1.299,99", "1299.99"},
		{"12,99", "12.99"},
		{"4,2", "4.2"},
		{"1,234", "1234"},
		{"1,234,567", "1234567"},
		{"1.234.567", "1234567"},
		{"4.5", "4.5"},
		{"1.234", "1.234"},
		{"12", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSeparators(tt.input))
		})
	}
}

func TestNormalizeCount(t *testing.T) {
	assert.Equal(t, "1234", NormalizeCount("1.234"))
	assert.Equal(t, "1234567", NormalizeCount("1.234.567"))
	assert.Equal(t, "1234", NormalizeCount("1,234"))
	assert.Equal(t, "42", NormalizeCount("42"))
	assert.Equal(t, "4.25", NormalizeCount("4.25"))
}

func TestIsThousandsGrouped(t *testing.T) {
	assert.True(t, IsThousandsGrouped("1,234", ","))
	assert.True(t, IsThousandsGrouped("12.345.678", "."))
	assert.False(t, IsThousandsGrouped("1234,5", ","))
	assert.False(t, IsThousandsGrouped("4,2", ","))
	assert.False(t, IsThousandsGrouped("42", ","))
}
