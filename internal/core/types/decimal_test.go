package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantityString(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"50", 500000},
		{"50.0000", 500000},
		{"-3.5", -35000},
		{"+3.5", 35000},
		{"0.001", 10},
		{".25", 2500},
		{"-.25", -2500},
		{"12.", 120000},
		{"1.23456789", 12345},
		{"0.00009", 0},
		{"922337203685477.5807", 9223372036854775807},
	}

	for _, tc := range cases {
		got, err := parseQuantityString(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, Quantity(tc.want), got, tc.in)
	}
}

func TestParseQuantityString_Exponent(t *testing.T) {
	got, err := parseQuantityString("1.5e2")
	require.NoError(t, err)
	assert.Equal(t, NewQuantityFromFloat64(150), got)
}

func TestParseQuantityString_Rejects(t *testing.T) {
	for _, in := range []string{
		"",
		"-",
		"+",
		".",
		"-.",
		"abc",
		"1.2.3x",
		"922337203685478",
		"2000000000000000",
		"-2000000000000000",
		"1e20",
	} {
		_, err := parseQuantityString(in)
		assert.Error(t, err, in)
	}
}

func TestQuantityUnmarshalJSON(t *testing.T) {
	var q Quantity

	require.NoError(t, json.Unmarshal([]byte(`12.5`), &q))
	assert.Equal(t, Quantity(125000), q)

	require.NoError(t, json.Unmarshal([]byte(`"12.5"`), &q))
	assert.Equal(t, Quantity(125000), q)

	require.NoError(t, json.Unmarshal([]byte(`null`), &q))
	assert.Equal(t, Quantity(0), q)

	assert.Error(t, json.Unmarshal([]byte(`"-"`), &q))
	assert.Error(t, json.Unmarshal([]byte(`"2000000000000000"`), &q))
}

func TestQuantityMarshalJSON(t *testing.T) {
	b, err := json.Marshal(NewQuantityFromFloat64(50))
	require.NoError(t, err)
	assert.Equal(t, "50.0000", string(b))

	b, err = json.Marshal(Quantity(-35000))
	require.NoError(t, err)
	assert.Equal(t, "-3.5000", string(b))
}

func TestNewQuantityFromDecimal(t *testing.T) {
	assert.Equal(t, Quantity(125000), NewQuantityFromDecimal(decimal.RequireFromString("12.5")))
	// Half-up at the fifth digit.
	assert.Equal(t, Quantity(10001), NewQuantityFromDecimal(decimal.RequireFromString("1.00005")))
	assert.Equal(t, Quantity(-35000), NewQuantityFromDecimal(decimal.RequireFromString("-3.5")))
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "50.0000", NewQuantityFromFloat64(50).String())
	assert.Equal(t, "-0.0001", Quantity(-1).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
}
