package timetable

import (
	"fmt"

	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

// Default load limits; both are inherited from institution policy and can be
// overridden through configuration.
const (
	DefaultUnitCap      = 18
	DefaultRoomDailyCap = 7
)

// CheckResult carries a structured pass/fail with a human-readable reason.
// Validators never return Go errors for a failed check: failing a capacity
// rule is a normal outcome, not an exceptional one.
type CheckResult struct {
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func pass() CheckResult {
	return CheckResult{OK: true}
}

func fail(code, reason string) CheckResult {
	return CheckResult{OK: false, Code: code, Reason: reason}
}

// Validator evaluates aggregate load and capacity constraints. All methods are
// pure predicates over the data handed to them.
type Validator struct {
	UnitCap      int
	RoomDailyCap int
}

// NewValidator builds a validator, substituting defaults for non-positive caps.
func NewValidator(unitCap, roomDailyCap int) *Validator {
	if unitCap <= 0 {
		unitCap = DefaultUnitCap
	}
	if roomDailyCap <= 0 {
		roomDailyCap = DefaultRoomDailyCap
	}
	return &Validator{UnitCap: unitCap, RoomDailyCap: roomDailyCap}
}

// CheckTeacherUnitCap verifies that taking on the candidate subject keeps the
// teacher's total credit load at or under the cap. assigned maps the teacher's
// current subject ids to their credit units. Re-assigning an already assigned
// subject is a no-op failure, not an error.
func (v *Validator) CheckTeacherUnitCap(assigned map[string]int, candidateSubjectID string, candidateCredits int) CheckResult {
	if _, ok := assigned[candidateSubjectID]; ok {
		return fail(appErrors.ErrAlreadyAssigned.Code, fmt.Sprintf("subject %s is already assigned to this teacher", candidateSubjectID))
	}
	load := 0
	for _, credits := range assigned {
		load += credits
	}
	if load+candidateCredits > v.UnitCap {
		return fail(appErrors.ErrCapacityExceeded.Code,
			fmt.Sprintf("assigning %d units on top of the current %d exceeds the %d-unit cap", candidateCredits, load, v.UnitCap))
	}
	return pass()
}

// CheckRoomDailyCap verifies a room can host one more class on the given day.
// occupied holds the room's existing schedule entries for that day.
func (v *Validator) CheckRoomDailyCap(roomID string, day Weekday, occupied []Interval) CheckResult {
	count := 0
	for _, iv := range occupied {
		if iv.Day == day {
			count++
		}
	}
	if count >= v.RoomDailyCap {
		return fail(appErrors.ErrCapacityExceeded.Code,
			fmt.Sprintf("room %s already hosts %d classes on %s, the daily maximum", roomID, count, day))
	}
	return pass()
}

// CheckEnrollmentCapacity verifies the section's enrollment fits the room.
func (v *Validator) CheckEnrollmentCapacity(sectionID string, enrollment, roomCapacity int) CheckResult {
	if enrollment > roomCapacity {
		return fail(appErrors.ErrCapacityExceeded.Code,
			fmt.Sprintf("section %s enrollment %d exceeds room capacity %d", sectionID, enrollment, roomCapacity))
	}
	return pass()
}
