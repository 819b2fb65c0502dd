package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, time.March, 15, 14, 30, 45, 123, time.UTC)
	got := StartOfDay(in)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2026, time.March, 15, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(morning, evening))
	assert.False(t, SameDay(evening, nextDay))
}

func TestSameDay_CrossTimezone(t *testing.T) {
	almaty, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	// 20:00 UTC on March 15 is already March 16 in Almaty (UTC+5).
	utc := time.Date(2026, time.March, 15, 20, 0, 0, 0, time.UTC)
	local := time.Date(2026, time.March, 16, 2, 0, 0, 0, almaty)

	// Compared in UTC's frame both are March 15.
	assert.True(t, SameDay(utc, local))
	// Compared in Almaty's frame both are March 16.
	assert.True(t, SameDay(local, utc))
}

func TestIsPastDay(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsPastDay(now.AddDate(0, 0, -1), now))
	assert.False(t, IsPastDay(now, now), "the current day is not past")
	assert.False(t, IsPastDay(now.Add(-time.Hour), now), "earlier today is not past")
	assert.False(t, IsPastDay(now.AddDate(0, 0, 1), now))
}

func TestNextDay(t *testing.T) {
	in := time.Date(2026, time.March, 15, 18, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), NextDay(in))
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, time.March, 15, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, 1, DaysUntil(now.Add(2*time.Hour), now), "one hour into tomorrow is one day away")
	assert.Equal(t, 7, DaysUntil(now.AddDate(0, 0, 7), now))
	assert.Equal(t, -1, DaysUntil(now.AddDate(0, 0, -1), now))
}

func TestToday(t *testing.T) {
	got := Today(nil)
	assert.Equal(t, time.UTC, got.Location())
	assert.Zero(t, got.Hour())
	assert.Zero(t, got.Minute())
}
