package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "1", false},
		{"0.5", "0.5", false},
		{" 1.25 ", "1.25", false},
		{"0.000000000000000001", "0.000000000000000001", false},
		{"", "", true},
		{"abc", "", true},
		{"0", "", true},
		{"-1", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got.String())
	}
}

func TestToSmallestUnit(t *testing.T) {
	tests := []struct {
		human    string
		decimals int32
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"0.5", 18, "500000000000000000"},
		{"1.000000000000000001", 18, "1000000000000000001"},
		{"123.456", 6, "123456000"},
		{"0.0000001", 6, "0"}, // below precision truncates
		{"2500000", 9, "2500000000000000"},
	}

	for _, tt := range tests {
		human, err := decimal.NewFromString(tt.human)
		require.NoError(t, err)
		got := ToSmallestUnit(human, tt.decimals)
		assert.Equal(t, tt.want, got.String(), "%s @ %d decimals", tt.human, tt.decimals)
		assert.NotContains(t, got.String(), "e", "no scientific notation")
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		human    string
		decimals int32
	}{
		{"1", 18},
		{"0.123456", 6},
		{"999999.999999999", 9},
		{"0.000000000000000042", 18},
	}

	for _, tt := range cases {
		human, err := decimal.NewFromString(tt.human)
		require.NoError(t, err)
		raw := ToSmallestUnit(human, tt.decimals)
		back := FromSmallestUnit(raw, tt.decimals)
		assert.True(t, human.Equal(back), "%s @ %d: got %s", tt.human, tt.decimals, back)
	}
}

func TestRate(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	assert.True(t, Rate(d("2"), d("4")).Equal(d("2")))
	assert.True(t, Rate(d("0"), d("4")).IsZero())
	assert.True(t, Rate(d("-1"), d("4")).IsZero())
	assert.True(t, Rate(d("3"), d("1")).Equal(d("1").DivRound(d("3"), 18)))
}
