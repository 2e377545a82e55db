package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.34", "12.34"},
		{"12,34 ", "12.34"},
		{"1 234,56", "1234.56"},
		{"1\u00a0234,56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"-1,234.56", "-1234.56"},
		{"1.234.567", "1234567"},
		{"-0,5", "-0.5"},
		{"42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12,3x"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}
}
