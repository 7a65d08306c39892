package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := NewCalendar(2024, 2027)
	require.NoError(t, err)
	return cal
}

func TestNewCalendar_InvalidRange(t *testing.T) {
	_, err := NewCalendar(2026, 2024)
	assert.Error(t, err)
}

func TestEasterSunday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		day   int
	}{
		{2024, time.March, 31},
		{2025, time.April, 20},
		{2026, time.April, 5},
		{2027, time.March, 28},
	}

	for _, tt := range tests {
		got := easterSunday(tt.year)
		assert.Equal(t, tt.year, got.Year())
		assert.Equal(t, tt.month, got.Month())
		assert.Equal(t, tt.day, got.Day())
	}
}

func TestIsBusinessDay(t *testing.T) {
	cal := mustCalendar(t)

	tests := []struct {
		name     string
		date     time.Time
		business bool
	}{
		{"ordinary weekday", time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), true},
		{"saturday", time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC), false},
		{"new year", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), false},
		{"christmas", time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC), false},
		{"carnival monday 2024", time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC), false},
		{"carnival tuesday 2024", time.Date(2024, time.February, 13, 0, 0, 0, 0, time.UTC), false},
		{"good friday 2024", time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC), false},
		{"corpus christi 2024", time.Date(2024, time.May, 30, 0, 0, 0, 0, time.UTC), false},
		{"good friday 2025", time.Date(2025, time.April, 18, 0, 0, 0, 0, time.UTC), false},
		{"tiradentes 2025", time.Date(2025, time.April, 21, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.IsBusinessDay(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.business, got)
		})
	}
}

func TestIsBusinessDay_OutOfRange(t *testing.T) {
	cal := mustCalendar(t)

	_, err := cal.IsBusinessDay(time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalendarOutOfRange)

	_, err = cal.IsBusinessDay(time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrCalendarOutOfRange)
}

func TestAddBusinessHours(t *testing.T) {
	cal := mustCalendar(t)

	// 2025-03-14 is a Friday with no nearby holidays.
	friday := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		hours int
		want  time.Time
	}{
		{
			name:  "within the same day",
			start: friday,
			hours: 4,
			want:  time.Date(2025, time.March, 14, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "one business day lands monday",
			start: friday,
			hours: 8,
			want:  time.Date(2025, time.March, 17, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "three business days skip the weekend",
			start: friday,
			hours: 24,
			want:  time.Date(2025, time.March, 19, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "six business days skip two weekends",
			start: friday,
			hours: 48,
			want:  time.Date(2025, time.March, 24, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "saturday start lands monday",
			start: time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC),
			hours: 8,
			want:  time.Date(2025, time.March, 17, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "remainder past midnight snaps to next business morning",
			start: time.Date(2025, time.March, 14, 20, 0, 0, 0, time.UTC),
			hours: 6,
			want:  time.Date(2025, time.March, 17, 8, 0, 0, 0, time.UTC),
		},
		{
			name:  "holiday cluster is skipped entirely",
			start: time.Date(2025, time.April, 17, 10, 0, 0, 0, time.UTC), // Thursday before Good Friday + Tiradentes
			hours: 24,
			want:  time.Date(2025, time.April, 24, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.AddBusinessHours(tt.start, tt.hours)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddBusinessHours_Deterministic(t *testing.T) {
	cal := mustCalendar(t)
	start := time.Date(2025, time.June, 11, 9, 30, 0, 0, time.UTC)

	first, err := cal.AddBusinessHours(start, 80)
	require.NoError(t, err)
	second, err := cal.AddBusinessHours(start, 80)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAddBusinessHours_Invalid(t *testing.T) {
	cal := mustCalendar(t)
	start := time.Date(2025, time.June, 11, 9, 0, 0, 0, time.UTC)

	_, err := cal.AddBusinessHours(start, 0)
	assert.Error(t, err)

	_, err = cal.AddBusinessHours(time.Date(2029, time.June, 11, 9, 0, 0, 0, time.UTC), 8)
	assert.ErrorIs(t, err, ErrCalendarOutOfRange)
}

func TestBusinessDaysBetween(t *testing.T) {
	cal := mustCalendar(t)

	monday := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	nextMonday := time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC)

	count, err := cal.BusinessDaysBetween(monday, nextMonday)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	// Order of arguments does not matter.
	swapped, err := cal.BusinessDaysBetween(nextMonday, monday)
	require.NoError(t, err)
	assert.Equal(t, count, swapped)
}
