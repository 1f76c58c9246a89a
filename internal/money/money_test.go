package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1"},
		{"237.5", "237.5"},
		{"0.125", "0.13"},
		{"2.675", "2.68"},
		{"-1.005", "-1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, Round(d(tt.in)).Equal(d(tt.want)), "got %s", Round(d(tt.in)))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(d("1050"), d("10")).Equal(d("105")))
	assert.True(t, Percent(d("2500"), d("5")).Equal(d("125")))
	assert.True(t, Percent(d("33.33"), d("7.5")).Equal(d("2.5")))
	assert.True(t, Percent(d("100"), decimal.Zero).IsZero())
}

func TestFloatDriftDoesNotLeak(t *testing.T) {
	total := Sum(d("0.1"), d("0.2"))
	assert.Equal(t, "0.3", total.String())
}

func TestMaxAndValidRate(t *testing.T) {
	assert.True(t, Max(d("-500"), decimal.Zero).IsZero())
	assert.True(t, Max(d("500"), decimal.Zero).Equal(d("500")))

	assert.True(t, ValidRate(decimal.Zero))
	assert.True(t, ValidRate(d("100")))
	assert.False(t, ValidRate(d("100.01")))
	assert.False(t, ValidRate(d("-1")))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "USD 1155.00", Format(d("1155"), "USD"))
	assert.Equal(t, "$0.50", Format(d("0.5"), ""))
}
