package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"attendance-backend/internal/domain"
)

// PostgresAttendanceRepository attendance_records repository backed by
// database/sql + lib/pq.
type PostgresAttendanceRepository struct {
	db *sql.DB
}

func NewPostgresAttendanceRepository(db *sql.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{db: db}
}

var _ AttendanceRepository = (*PostgresAttendanceRepository)(nil)

const attendanceColumns = `
	attendance_id::text,
	employee_id::text,
	to_char(work_date, 'YYYY-MM-DD'),
	check_in_at,
	check_out_at,
	status,
	is_remote,
	shift_id::text,
	check_in_selfie,
	check_out_selfie,
	check_in_lat,
	check_in_lon,
	check_in_accuracy,
	check_in_address,
	check_out_lat,
	check_out_lon,
	check_out_accuracy,
	check_out_address,
	device_type,
	device_os,
	device_browser,
	device_user_agent,
	total_hours,
	regular_hours,
	overtime_hours,
	break_hours,
	notes,
	tracking_active,
	created_at,
	updated_at`

type attendanceRow struct {
	checkInAt  sql.NullTime
	checkOutAt sql.NullTime
	shiftID    sql.NullString
	inSelfie   sql.NullString
	outSelfie  sql.NullString
	inLat      sql.NullFloat64
	inLon      sql.NullFloat64
	inAcc      sql.NullFloat64
	inAddr     sql.NullString
	outLat     sql.NullFloat64
	outLon     sql.NullFloat64
	outAcc     sql.NullFloat64
	outAddr    sql.NullString
	devType    sql.NullString
	devOS      sql.NullString
	devBrowser sql.NullString
	devUA      sql.NullString
	notes      sql.NullString
}

func scanAttendance(scan func(dest ...any) error) (*domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	var row attendanceRow

	err := scan(
		&rec.ID,
		&rec.EmployeeID,
		&rec.Date,
		&row.checkInAt,
		&row.checkOutAt,
		&rec.Status,
		&rec.IsRemote,
		&row.shiftID,
		&row.inSelfie,
		&row.outSelfie,
		&row.inLat,
		&row.inLon,
		&row.inAcc,
		&row.inAddr,
		&row.outLat,
		&row.outLon,
		&row.outAcc,
		&row.outAddr,
		&row.devType,
		&row.devOS,
		&row.devBrowser,
		&row.devUA,
		&rec.Hours.TotalHours,
		&rec.Hours.RegularHours,
		&rec.Hours.OvertimeHours,
		&rec.Hours.BreakHours,
		&row.notes,
		&rec.TrackingActive,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if row.checkInAt.Valid {
		t := row.checkInAt.Time
		rec.CheckInAt = &t
	}
	if row.checkOutAt.Valid {
		t := row.checkOutAt.Time
		rec.CheckOutAt = &t
	}
	rec.ShiftID = row.shiftID.String
	rec.CheckInSelfie = row.inSelfie.String
	rec.CheckOutSelfie = row.outSelfie.String
	rec.Notes = row.notes.String

	if row.inLat.Valid && row.inLon.Valid {
		rec.CheckInLocation = &domain.GeoLocation{
			Latitude:  row.inLat.Float64,
			Longitude: row.inLon.Float64,
			Accuracy:  row.inAcc.Float64,
			Address:   row.inAddr.String,
		}
	}
	if row.outLat.Valid && row.outLon.Valid {
		rec.CheckOutLocation = &domain.GeoLocation{
			Latitude:  row.outLat.Float64,
			Longitude: row.outLon.Float64,
			Accuracy:  row.outAcc.Float64,
			Address:   row.outAddr.String,
		}
	}
	if row.devUA.Valid || row.devType.Valid {
		rec.Device = &domain.DeviceInfo{
			DeviceType: row.devType.String,
			OS:         row.devOS.String,
			Browser:    row.devBrowser.String,
			UserAgent:  row.devUA.String,
		}
	}

	return &rec, nil
}

// GetByID fetches one attendance record.
func (r *PostgresAttendanceRepository) GetByID(ctx context.Context, attendanceID string) (*domain.AttendanceRecord, error) {
	if attendanceID == "" {
		return nil, fmt.Errorf("attendance_id is required")
	}

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE attendance_id = $1
	`

	rec, err := scanAttendance(func(dest ...any) error {
		return r.db.QueryRowContext(ctx, query, attendanceID).Scan(dest...)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("attendance record not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// GetByEmployeeAndDate fetches the one record per (employee, day), or
// (nil, nil) when the day has not started.
func (r *PostgresAttendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID, date string) (*domain.AttendanceRecord, error) {
	if employeeID == "" || date == "" {
		return nil, fmt.Errorf("employee_id and date are required")
	}

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE employee_id = $1 AND work_date = $2
	`

	rec, err := scanAttendance(func(dest ...any) error {
		return r.db.QueryRowContext(ctx, query, employeeID, date).Scan(dest...)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// CreateCheckIn inserts the record created by the first check-in of the day.
func (r *PostgresAttendanceRepository) CreateCheckIn(ctx context.Context, record *domain.AttendanceRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("record is required")
	}
	if err := record.Validate(); err != nil {
		return "", err
	}
	if record.CheckInAt == nil {
		return "", fmt.Errorf("check_in_at is required")
	}
	if record.Status == "" {
		record.Status = domain.StatusPresent
	}

	query := `
		INSERT INTO attendance_records (
			employee_id,
			work_date,
			check_in_at,
			status,
			is_remote,
			shift_id,
			check_in_selfie,
			check_in_lat,
			check_in_lon,
			check_in_accuracy,
			check_in_address,
			device_type,
			device_os,
			device_browser,
			device_user_agent,
			notes,
			tracking_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING attendance_id::text
	`

	var shiftID, selfie, notes any
	if record.ShiftID != "" {
		shiftID = record.ShiftID
	}
	if record.CheckInSelfie != "" {
		selfie = record.CheckInSelfie
	}
	if record.Notes != "" {
		notes = record.Notes
	}

	var lat, lon, acc, addr any
	if loc := record.CheckInLocation; loc != nil {
		lat = loc.Latitude
		lon = loc.Longitude
		acc = loc.Accuracy
		if loc.Address != "" {
			addr = loc.Address
		}
	}

	var devType, devOS, devBrowser, devUA any
	if d := record.Device; d != nil {
		devType = d.DeviceType
		devOS = d.OS
		devBrowser = d.Browser
		devUA = d.UserAgent
	}

	var attendanceID string
	err := r.db.QueryRowContext(ctx, query,
		record.EmployeeID, record.Date, *record.CheckInAt, record.Status,
		record.IsRemote, shiftID, selfie, lat, lon, acc, addr,
		devType, devOS, devBrowser, devUA, notes, record.TrackingActive,
	).Scan(&attendanceID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return "", ErrDuplicateDay
		}
		return "", fmt.Errorf("failed to create attendance record: %w", err)
	}

	return attendanceID, nil
}

// ApplyCheckOut closes an open record. The WHERE clause only matches records
// that still have no check-out, so a stale second check-out affects zero rows.
func (r *PostgresAttendanceRepository) ApplyCheckOut(ctx context.Context, attendanceID string, co *CheckOut) error {
	if attendanceID == "" {
		return fmt.Errorf("attendance_id is required")
	}
	if co == nil {
		return fmt.Errorf("check-out is required")
	}

	query := `
		UPDATE attendance_records
		SET
			check_out_at = $2,
			check_out_selfie = $3,
			check_out_lat = $4,
			check_out_lon = $5,
			check_out_accuracy = $6,
			check_out_address = $7,
			status = $8,
			total_hours = $9,
			regular_hours = $10,
			overtime_hours = $11,
			break_hours = $12,
			notes = COALESCE(NULLIF($13, ''), notes),
			tracking_active = FALSE,
			updated_at = NOW()
		WHERE attendance_id = $1
		  AND check_in_at IS NOT NULL
		  AND check_out_at IS NULL
	`

	var selfie, lat, lon, acc, addr any
	if co.Selfie != "" {
		selfie = co.Selfie
	}
	if loc := co.Location; loc != nil {
		lat = loc.Latitude
		lon = loc.Longitude
		acc = loc.Accuracy
		if loc.Address != "" {
			addr = loc.Address
		}
	}

	result, err := r.db.ExecContext(ctx, query,
		attendanceID, co.At, selfie, lat, lon, acc, addr,
		co.Status, co.Hours.TotalHours, co.Hours.RegularHours,
		co.Hours.OvertimeHours, co.Hours.BreakHours, co.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to apply check-out: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a lost double-check-out race from a record that never
		// had a check-in.
		rec, readErr := r.GetByID(ctx, attendanceID)
		if readErr == nil && rec.CheckOutAt != nil {
			return ErrAlreadyClosed
		}
		return fmt.Errorf("attendance record not open for check-out")
	}

	return nil
}

// List queries attendance records with filters and pagination.
func (r *PostgresAttendanceRepository) List(ctx context.Context, filters *AttendanceFilters, page, size int) ([]*domain.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters != nil {
		if filters.EmployeeID != "" {
			where = append(where, fmt.Sprintf("employee_id = $%d", argN))
			args = append(args, filters.EmployeeID)
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, filters.Status)
			argN++
		}
		if filters.DateFrom != nil {
			where = append(where, fmt.Sprintf("work_date >= $%d", argN))
			args = append(args, filters.DateFrom.Format("2006-01-02"))
			argN++
		}
		if filters.DateTo != nil {
			where = append(where, fmt.Sprintf("work_date <= $%d", argN))
			args = append(args, filters.DateTo.Format("2006-01-02"))
			argN++
		}
	}

	queryCount := `
		SELECT COUNT(*)
		FROM attendance_records
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	argsList := append(args, size, offset)
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY work_date DESC, check_in_at DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, query, argsList...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []*domain.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, total, nil
}

// SetTrackingActive flips the continuous-tracking flag.
func (r *PostgresAttendanceRepository) SetTrackingActive(ctx context.Context, attendanceID string, active bool) error {
	if attendanceID == "" {
		return fmt.Errorf("attendance_id is required")
	}

	query := `
		UPDATE attendance_records
		SET tracking_active = $2, updated_at = NOW()
		WHERE attendance_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, attendanceID, active)
	if err != nil {
		return fmt.Errorf("failed to set tracking flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("attendance record not found")
	}

	return nil
}
