package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

func TestCheckTeacherUnitCap(t *testing.T) {
	v := NewValidator(0, 0)
	require.Equal(t, DefaultUnitCap, v.UnitCap)

	// 16 units carried, 4-credit candidate, 18 cap: over by 2.
	assigned := map[string]int{"cs101": 3, "math201": 4, "phys301": 5, "eng101": 4}
	result := v.CheckTeacherUnitCap(assigned, "chem110", 4)
	assert.False(t, result.OK)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, result.Code)
	assert.NotEmpty(t, result.Reason)

	// Exactly at the cap passes: fails iff load+credits > cap.
	result = v.CheckTeacherUnitCap(assigned, "chem110", 2)
	assert.True(t, result.OK)

	result = v.CheckTeacherUnitCap(assigned, "chem110", 3)
	assert.False(t, result.OK)
}

func TestCheckTeacherUnitCapAlreadyAssigned(t *testing.T) {
	v := NewValidator(18, 7)

	result := v.CheckTeacherUnitCap(map[string]int{"cs101": 3}, "cs101", 3)
	assert.False(t, result.OK)
	assert.Equal(t, appErrors.ErrAlreadyAssigned.Code, result.Code)
}

func TestCheckRoomDailyCap(t *testing.T) {
	v := NewValidator(18, 7)

	var occupied []Interval
	for i := 0; i < 7; i++ {
		occupied = append(occupied, Interval{Day: Monday, Start: (8 + i) * 60, End: (8+i)*60 + 50})
	}
	// Entries on other days do not count against Monday.
	occupied = append(occupied, Interval{Day: Tuesday, Start: 8 * 60, End: 9 * 60})

	result := v.CheckRoomDailyCap("room-101", Monday, occupied)
	assert.False(t, result.OK)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, result.Code)

	result = v.CheckRoomDailyCap("room-101", Tuesday, occupied)
	assert.True(t, result.OK)

	result = v.CheckRoomDailyCap("room-101", Monday, occupied[:6])
	assert.True(t, result.OK)
}

func TestCheckEnrollmentCapacity(t *testing.T) {
	v := NewValidator(18, 7)

	assert.True(t, v.CheckEnrollmentCapacity("cs-1a", 40, 40).OK)

	result := v.CheckEnrollmentCapacity("cs-1a", 41, 40)
	assert.False(t, result.OK)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, result.Code)
}
