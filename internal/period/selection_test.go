package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesjournal/internal/domain"
)

func TestSelectionRetainsAnchorPerKind(t *testing.T) {
	sel := NewSelection(mustDate(t, "2024-03-06"))
	assert.Equal(t, Daily, sel.Kind())
	assert.Equal(t, "2024-03-06", sel.Anchor())

	require.NoError(t, sel.SetAnchor("2024-03-01"))

	require.NoError(t, sel.SetKind(Monthly))
	require.NoError(t, sel.SetAnchor("2024-02"))
	assert.Equal(t, "2024-02-29", sel.Range().End.Format(domain.DateLayout))

	require.NoError(t, sel.SetKind(Weekly))
	assert.Equal(t, "2024-03-04", sel.Range().Start.Format(domain.DateLayout))

	require.NoError(t, sel.SetKind(Daily))
	assert.Equal(t, "2024-03-01", sel.Anchor())
	assert.Equal(t, 1, sel.Range().Days())

	require.NoError(t, sel.SetKind(Monthly))
	assert.Equal(t, "2024-02", sel.Anchor())
}

func TestSelectionRejectedAnchorKeepsState(t *testing.T) {
	sel := NewSelection(mustDate(t, "2024-03-06"))
	require.NoError(t, sel.SetKind(Weekly))

	err := sel.SetAnchor("not-a-date")
	require.ErrorIs(t, err, domain.ErrInvalidDate)
	assert.Equal(t, "2024-03-06", sel.Anchor())
	assert.Equal(t, Weekly, sel.Kind())

	assert.ErrorIs(t, sel.SetKind(Kind("quarterly")), domain.ErrInvalidDate)
	assert.Equal(t, Weekly, sel.Kind())
}

func TestSelectionQuickSelects(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 2024-03-09 23:30 UTC is already Sunday 2024-03-10 in Jakarta.
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC).In(jakarta)

	sel := NewSelection(mustDate(t, "2023-01-01"))
	require.NoError(t, sel.SetKind(Weekly))
	require.NoError(t, sel.SetAnchor("2023-06-01"))

	sel.ThisWeek(now)
	assert.Equal(t, Weekly, sel.Kind())
	assert.Equal(t, "2024-03-04..2024-03-10", sel.Range().String())

	require.NoError(t, sel.Quick("today", now))
	assert.Equal(t, Daily, sel.Kind())
	assert.Equal(t, "2024-03-10..2024-03-10", sel.Range().String())

	require.NoError(t, sel.Quick("this_month", now))
	assert.Equal(t, Monthly, sel.Kind())
	assert.Equal(t, "2024-03-01..2024-03-31", sel.Range().String())

	assert.ErrorIs(t, sel.Quick("last_year", now), domain.ErrInvalidDate)
}

func TestSelectionExplicitRange(t *testing.T) {
	sel := NewSelection(mustDate(t, "2024-03-06"))

	require.NoError(t, sel.SetRange("2024-03-01", "2024-03-15"))
	assert.Equal(t, Range, sel.Kind())
	assert.Equal(t, 15, sel.Range().Days())
	assert.Equal(t, "2024-03-01..2024-03-15", sel.Anchor())

	assert.ErrorIs(t, sel.SetRange("2024-03-15", "2024-03-01"), domain.ErrInvalidDate)
	assert.Equal(t, 15, sel.Range().Days())

	require.NoError(t, sel.SetKind(Daily))
	assert.Equal(t, "2024-03-06", sel.Anchor())
}
