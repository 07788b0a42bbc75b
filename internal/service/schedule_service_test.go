package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateScheduleParams(t *testing.T) {
	valid := ScheduleParams{
		ModuleID:              uuid.New(),
		DayOfWeek:             2,
		LabTime:               "14:00",
		GenerateBeforeMinutes: 60,
	}
	assert.NoError(t, validateScheduleParams(valid))

	// 提前量允许超过 24 小时
	long := valid
	long.GenerateBeforeMinutes = 25 * 60
	assert.NoError(t, validateScheduleParams(long))

	cases := map[string]func(p *ScheduleParams){
		"day too small":  func(p *ScheduleParams) { p.DayOfWeek = -1 },
		"day too large":  func(p *ScheduleParams) { p.DayOfWeek = 7 },
		"bad lab time":   func(p *ScheduleParams) { p.LabTime = "25:00" },
		"empty lab time": func(p *ScheduleParams) { p.LabTime = "" },
		"negative lead":  func(p *ScheduleParams) { p.GenerateBeforeMinutes = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid
			mutate(&p)
			err := validateScheduleParams(p)
			assert.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
}

func TestHashPassword(t *testing.T) {
	a := HashPassword("hunter2")
	b := HashPassword("hunter2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HashPassword("hunter3"))
	assert.Len(t, a, 64) // sha256 hex
}
