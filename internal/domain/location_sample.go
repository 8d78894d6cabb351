package domain

import "time"

// LocationSample one tick of continuous location tracking, tied 1:N to an
// attendance record. Append-only; never mutated.
type LocationSample struct {
	ID           string    `db:"sample_id" json:"id"`
	AttendanceID string    `db:"attendance_id" json:"attendanceId"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	Accuracy     float64   `db:"accuracy" json:"accuracy,omitempty"`
	Address      string    `db:"address" json:"address,omitempty"` // optional
	CapturedAt   time.Time `db:"captured_at" json:"capturedAt"`
}
