package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRangeJSON(t *testing.T) {
	start, err := ParseDate("2024-02-01")
	require.NoError(t, err)
	end, err := ParseDate("2024-02-29")
	require.NoError(t, err)

	payload, err := json.Marshal(DateRange{Start: start, End: end})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-02-01","end":"2024-02-29"}`, string(payload))

	var decoded DateRange
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.True(t, decoded.Start.Equal(start))
	assert.True(t, decoded.End.Equal(end))
	assert.Equal(t, 29, decoded.Days())
}

func TestDateRangeContainsIsInclusive(t *testing.T) {
	start, _ := ParseDate("2024-03-04")
	end, _ := ParseDate("2024-03-10")
	r := DateRange{Start: start, End: end}

	for _, raw := range []string{"2024-03-04", "2024-03-07", "2024-03-10"} {
		day, _ := ParseDate(raw)
		assert.True(t, r.Contains(day), raw)
	}
	for _, raw := range []string{"2024-03-03", "2024-03-11"} {
		day, _ := ParseDate(raw)
		assert.False(t, r.Contains(day), raw)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("03/04/2024")
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestMoneySerializesAsNumber(t *testing.T) {
	payload, err := json.Marshal(Transaction{ID: 1, UnitPrice: decimal.RequireFromString("3.5"), Quantity: 2, TotalPrice: decimal.RequireFromString("7")})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"unitPrice":3.5`)
	assert.Contains(t, string(payload), `"totalPrice":7`)
}

func TestSameItemName(t *testing.T) {
	assert.True(t, SameItemName("Coffee", " coffee "))
	assert.False(t, SameItemName("Coffee", "Cocoa"))
}
