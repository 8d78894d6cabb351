package domain

import (
	"fmt"
	"time"
)

// AttendanceStatusValue attendance day status (attendance_records.status).
type AttendanceStatusValue string

const (
	StatusPresent    AttendanceStatusValue = "PRESENT"
	StatusAbsent     AttendanceStatusValue = "ABSENT"
	StatusLate       AttendanceStatusValue = "LATE"
	StatusEarlyLeave AttendanceStatusValue = "EARLY_LEAVE"
	StatusHalfDay    AttendanceStatusValue = "HALF_DAY"
)

// DayState the per-day check-in/check-out progression for one employee.
// NOT_STARTED --(check-in)--> CHECKED_IN --(check-out)--> COMPLETED
type DayState string

const (
	DayNotStarted DayState = "NOT_STARTED"
	DayCheckedIn  DayState = "CHECKED_IN"
	DayCompleted  DayState = "COMPLETED"
)

// GeoLocation one resolved position. Address is best-effort; coordinates
// are authoritative.
type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// HourBreakdown derived working-hour split for a completed record.
type HourBreakdown struct {
	TotalHours    float64 `json:"totalHours"`
	RegularHours  float64 `json:"regularHours"`
	OvertimeHours float64 `json:"overtimeHours"`
	BreakHours    float64 `json:"breakHours"`
}

// AttendanceRecord one row of attendance_records: one per (employee, date).
// Created on first check-in of the day, mutated once on check-out.
type AttendanceRecord struct {
	ID         string `db:"attendance_id"`
	EmployeeID string `db:"employee_id"`
	Date       string `db:"work_date"` // YYYY-MM-DD, employee-local day

	CheckInAt  *time.Time `db:"check_in_at"`
	CheckOutAt *time.Time `db:"check_out_at"`

	Status   AttendanceStatusValue `db:"status"`
	IsRemote bool                  `db:"is_remote"`
	ShiftID  string                `db:"shift_id"` // optional

	CheckInSelfie  string `db:"check_in_selfie"`  // data URI, optional
	CheckOutSelfie string `db:"check_out_selfie"` // data URI, optional

	CheckInLocation  *GeoLocation `db:"-"`
	CheckOutLocation *GeoLocation `db:"-"`

	Device *DeviceInfo `db:"-"` // captured at check-in only

	Hours HourBreakdown `db:"-"`
	Notes string        `db:"notes"`

	// TrackingActive is true between check-in and either check-out or an
	// explicit tracking stop.
	TrackingActive bool `db:"tracking_active"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DayState derives the per-day progression from the two timestamps.
func (r *AttendanceRecord) DayState() DayState {
	switch {
	case r == nil || r.CheckInAt == nil:
		return DayNotStarted
	case r.CheckOutAt == nil:
		return DayCheckedIn
	default:
		return DayCompleted
	}
}

// Validate enforces the record invariants: no check-out without a check-in,
// and check-out strictly after check-in.
func (r *AttendanceRecord) Validate() error {
	if r.EmployeeID == "" {
		return fmt.Errorf("employee_id is required")
	}
	if r.Date == "" {
		return fmt.Errorf("work_date is required")
	}
	if r.CheckOutAt != nil {
		if r.CheckInAt == nil {
			return fmt.Errorf("check-out without a prior check-in")
		}
		if !r.CheckOutAt.After(*r.CheckInAt) {
			return fmt.Errorf("check-out must be later than check-in")
		}
	}
	return nil
}

// AttendanceStatus the status-gate view for the current employee/day.
type AttendanceStatus struct {
	CanCheckIn  bool `json:"canCheckIn"`
	CanCheckOut bool `json:"canCheckOut"`
	IsCompleted bool `json:"isCompleted"`
}

// StatusForState maps a day state onto gate flags.
func StatusForState(s DayState) AttendanceStatus {
	return AttendanceStatus{
		CanCheckIn:  s == DayNotStarted,
		CanCheckOut: s == DayCheckedIn,
		IsCompleted: s == DayCompleted,
	}
}
