package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusActive, StatusPaused, true},
		{StatusActive, StatusDisabled, true},
		{StatusPaused, StatusActive, true},
		{StatusPaused, StatusDisabled, true},
		// disabled 是终态，只能显式回 active
		{StatusDisabled, StatusActive, true},
		{StatusDisabled, StatusPaused, false},
		// 自迁移允许（幂等）
		{StatusActive, StatusActive, true},
		{StatusPaused, StatusPaused, true},
		{StatusDisabled, StatusDisabled, true},
		// 非法值
		{"deleted", StatusActive, false},
		{StatusActive, "archived", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusActive))
	assert.True(t, ValidStatus(StatusPaused))
	assert.True(t, ValidStatus(StatusDisabled))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("Active"))
}

func TestHasSkipDate(t *testing.T) {
	s := Schedule{SkipDates: []string{"2026-01-07", "2026-01-14"}}
	assert.True(t, s.HasSkipDate("2026-01-07"))
	assert.False(t, s.HasSkipDate("2026-01-08"))

	var empty Schedule
	assert.False(t, empty.HasSkipDate("2026-01-07"))
}

func TestDayName(t *testing.T) {
	assert.Equal(t, "Monday", (&Schedule{DayOfWeek: 0}).DayName())
	assert.Equal(t, "Sunday", (&Schedule{DayOfWeek: 6}).DayName())
	assert.Equal(t, "", (&Schedule{DayOfWeek: 7}).DayName())
}

func TestEffectiveSheetType(t *testing.T) {
	m := Module{SheetType: "Practical"}
	assert.Equal(t, "Practical", m.EffectiveSheetType())

	m = Module{SheetType: "Custom", CustomSheetType: "Workshop"}
	assert.Equal(t, "Workshop", m.EffectiveSheetType())

	// Custom 但没填自定义名，保持原样
	m = Module{SheetType: "Custom"}
	assert.Equal(t, "Custom", m.EffectiveSheetType())
}
