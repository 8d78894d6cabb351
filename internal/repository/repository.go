package repository

import (
	"context"
	"errors"
	"time"

	"attendance-backend/internal/domain"
)

// The one-record-per-(employee, day) and single-check-out invariants are
// ultimately enforced by the database; these sentinels let the service tell
// a lost race apart from a plain failure.
var (
	// ErrDuplicateDay the insert hit the unique (employee, work day)
	// constraint: another check-in for the same day already exists.
	ErrDuplicateDay = errors.New("attendance record already exists for this day")
	// ErrAlreadyClosed the check-out targeted a record that already has one.
	ErrAlreadyClosed = errors.New("attendance record already closed")
)

// AttendanceFilters optional filters for listing attendance records.
type AttendanceFilters struct {
	EmployeeID string
	Status     string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// CheckOut the mutation applied once to close an open attendance record.
type CheckOut struct {
	At       time.Time
	Selfie   string
	Location *domain.GeoLocation
	Notes    string
	Status   domain.AttendanceStatusValue
	Hours    domain.HourBreakdown
}

// AttendanceRepository persistence for attendance_records.
type AttendanceRepository interface {
	GetByID(ctx context.Context, attendanceID string) (*domain.AttendanceRecord, error)
	// GetByEmployeeAndDate returns (nil, nil) when the employee has no record
	// for the given day.
	GetByEmployeeAndDate(ctx context.Context, employeeID, date string) (*domain.AttendanceRecord, error)
	CreateCheckIn(ctx context.Context, record *domain.AttendanceRecord) (string, error)
	ApplyCheckOut(ctx context.Context, attendanceID string, co *CheckOut) error
	List(ctx context.Context, filters *AttendanceFilters, page, size int) ([]*domain.AttendanceRecord, int, error)
	SetTrackingActive(ctx context.Context, attendanceID string, active bool) error
}

// LocationSamplesRepository persistence for location_samples (append-only).
type LocationSamplesRepository interface {
	Insert(ctx context.Context, sample *domain.LocationSample) (string, error)
	ListByAttendance(ctx context.Context, attendanceID string, page, size int) ([]*domain.LocationSample, int, error)
	LatestByAttendance(ctx context.Context, attendanceID string) (*domain.LocationSample, error)
}
