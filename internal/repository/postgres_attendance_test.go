package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-backend/internal/domain"
)

func setupMockAttendanceDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresAttendanceRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresAttendanceRepository(db)
	return db, mock, repo
}

func attendanceRowColumns() []string {
	return []string{
		"attendance_id", "employee_id", "work_date", "check_in_at", "check_out_at",
		"status", "is_remote", "shift_id", "check_in_selfie", "check_out_selfie",
		"check_in_lat", "check_in_lon", "check_in_accuracy", "check_in_address",
		"check_out_lat", "check_out_lon", "check_out_accuracy", "check_out_address",
		"device_type", "device_os", "device_browser", "device_user_agent",
		"total_hours", "regular_hours", "overtime_hours", "break_hours",
		"notes", "tracking_active", "created_at", "updated_at",
	}
}

func TestGetByID_Success(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	ctx := context.Background()
	attendanceID := uuid.New().String()
	employeeID := uuid.New().String()
	checkIn := time.Now().Add(-8 * time.Hour)
	now := time.Now()

	rows := sqlmock.NewRows(attendanceRowColumns()).AddRow(
		attendanceID, employeeID, "2026-08-28", checkIn, nil,
		"PRESENT", false, nil, "data:image/jpeg;base64,abc", nil,
		1.3521, 103.8198, 12.5, "1 Main St",
		nil, nil, nil, nil,
		"mobile", "Android", "Chrome", "Mozilla/5.0 (Linux; Android 14)",
		0.0, 0.0, 0.0, 0.0,
		nil, true, now, now,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(attendanceID).
		WillReturnRows(rows)

	rec, err := repo.GetByID(ctx, attendanceID)

	require.NoError(t, err)
	assert.Equal(t, attendanceID, rec.ID)
	assert.Equal(t, employeeID, rec.EmployeeID)
	assert.Equal(t, "2026-08-28", rec.Date)
	assert.Equal(t, domain.StatusPresent, rec.Status)
	require.NotNil(t, rec.CheckInAt)
	assert.Nil(t, rec.CheckOutAt)
	assert.Equal(t, domain.DayCheckedIn, rec.DayState())
	require.NotNil(t, rec.CheckInLocation)
	assert.Equal(t, "1 Main St", rec.CheckInLocation.Address)
	require.NotNil(t, rec.Device)
	assert.Equal(t, "Chrome", rec.Device.Browser)
	assert.True(t, rec.TrackingActive)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	attendanceID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(attendanceID).
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.GetByID(context.Background(), attendanceID)

	assert.Error(t, err)
	assert.Nil(t, rec)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmployeeAndDate_NoRecord(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	employeeID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(employeeID, "2026-08-28").
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.GetByEmployeeAndDate(context.Background(), employeeID, "2026-08-28")

	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmployeeAndDate_MissingArgs(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	rec, err := repo.GetByEmployeeAndDate(context.Background(), "", "2026-08-28")

	assert.Error(t, err)
	assert.Nil(t, rec)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckIn_Success(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	ctx := context.Background()
	attendanceID := uuid.New().String()
	employeeID := uuid.New().String()
	checkIn := time.Now()

	record := &domain.AttendanceRecord{
		EmployeeID:    employeeID,
		Date:          "2026-08-28",
		CheckInAt:     &checkIn,
		Status:        domain.StatusPresent,
		IsRemote:      true,
		CheckInSelfie: "data:image/jpeg;base64,abc",
		CheckInLocation: &domain.GeoLocation{
			Latitude:  1.3521,
			Longitude: 103.8198,
			Accuracy:  10,
			Address:   "1 Main St",
		},
		Device: &domain.DeviceInfo{
			DeviceType: "mobile",
			OS:         "Android",
			Browser:    "Chrome",
			UserAgent:  "Mozilla/5.0 (Linux; Android 14)",
		},
		TrackingActive: true,
	}

	mock.ExpectQuery(`INSERT INTO attendance_records`).
		WithArgs(
			employeeID, "2026-08-28", checkIn, "PRESENT", true, nil,
			"data:image/jpeg;base64,abc", 1.3521, 103.8198, 10.0, "1 Main St",
			"mobile", "Android", "Chrome", "Mozilla/5.0 (Linux; Android 14)",
			nil, true,
		).
		WillReturnRows(sqlmock.NewRows([]string{"attendance_id"}).AddRow(attendanceID))

	id, err := repo.CreateCheckIn(ctx, record)

	require.NoError(t, err)
	assert.Equal(t, attendanceID, id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckIn_LostRaceAgainstConcurrentCheckIn(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	checkIn := time.Now()
	record := &domain.AttendanceRecord{
		EmployeeID: uuid.New().String(),
		Date:       "2026-08-28",
		CheckInAt:  &checkIn,
		Status:     domain.StatusPresent,
	}

	// Two requests pass the pre-check; the second insert dies on the unique
	// (employee, work day) constraint.
	mock.ExpectQuery(`INSERT INTO attendance_records`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_attendance_employee_day"})

	_, err := repo.CreateCheckIn(context.Background(), record)

	assert.ErrorIs(t, err, ErrDuplicateDay)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckIn_MissingCheckIn(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	record := &domain.AttendanceRecord{
		EmployeeID: uuid.New().String(),
		Date:       "2026-08-28",
	}

	_, err := repo.CreateCheckIn(context.Background(), record)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "check_in_at is required")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCheckOut_Success(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	attendanceID := uuid.New().String()
	now := time.Now()

	co := &CheckOut{
		At:     now,
		Selfie: "data:image/jpeg;base64,out",
		Location: &domain.GeoLocation{
			Latitude:  1.3,
			Longitude: 103.8,
			Accuracy:  8,
			Address:   "2 Side St",
		},
		Status: domain.StatusPresent,
		Hours: domain.HourBreakdown{
			TotalHours:   9,
			RegularHours: 8,
			BreakHours:   1,
		},
	}

	mock.ExpectExec(`UPDATE attendance_records`).
		WithArgs(
			attendanceID, now, "data:image/jpeg;base64,out",
			1.3, 103.8, 8.0, "2 Side St",
			"PRESENT", 9.0, 8.0, 0.0, 1.0, "",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyCheckOut(context.Background(), attendanceID, co)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCheckOut_NotOpen(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	attendanceID := uuid.New().String()

	mock.ExpectExec(`UPDATE attendance_records`).
		WithArgs(
			attendanceID, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Zero rows triggers a re-read; here the record is gone entirely.
	mock.ExpectQuery(`SELECT`).
		WithArgs(attendanceID).
		WillReturnError(sql.ErrNoRows)

	err := repo.ApplyCheckOut(context.Background(), attendanceID, &CheckOut{At: time.Now(), Status: domain.StatusPresent})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCheckOut_LostRaceAgainstEarlierCheckOut(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	attendanceID := uuid.New().String()
	now := time.Now()

	mock.ExpectExec(`UPDATE attendance_records`).
		WithArgs(
			attendanceID, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// The re-read finds the record already closed by the winning request.
	closedRow := sqlmock.NewRows(attendanceRowColumns()).AddRow(
		attendanceID, uuid.New().String(), "2026-08-28", now.Add(-9*time.Hour), now,
		"PRESENT", false, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		9.0, 8.0, 0.0, 1.0,
		nil, false, now, now,
	)
	mock.ExpectQuery(`SELECT`).
		WithArgs(attendanceID).
		WillReturnRows(closedRow)

	err := repo.ApplyCheckOut(context.Background(), attendanceID, &CheckOut{At: now, Status: domain.StatusPresent})

	assert.ErrorIs(t, err, ErrAlreadyClosed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_WithFilters(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	employeeID := uuid.New().String()
	now := time.Now()

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(employeeID, "LATE").
		WillReturnRows(countRows)

	listRows := sqlmock.NewRows(attendanceRowColumns()).AddRow(
		uuid.New().String(), employeeID, "2026-08-27", now.Add(-26*time.Hour), now.Add(-17*time.Hour),
		"LATE", false, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		9.0, 8.0, 0.0, 1.0,
		"overslept", false, now, now,
	)
	mock.ExpectQuery(`SELECT`).
		WithArgs(employeeID, "LATE", 20, 0).
		WillReturnRows(listRows)

	filters := &AttendanceFilters{EmployeeID: employeeID, Status: "LATE"}
	records, total, err := repo.List(context.Background(), filters, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusLate, records[0].Status)
	assert.Equal(t, "overslept", records[0].Notes)
	assert.Equal(t, domain.DayCompleted, records[0].DayState())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTrackingActive_Success(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	attendanceID := uuid.New().String()

	mock.ExpectExec(`UPDATE attendance_records`).
		WithArgs(attendanceID, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetTrackingActive(context.Background(), attendanceID, false)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTrackingActive_NotFound(t *testing.T) {
	db, mock, repo := setupMockAttendanceDB(t)
	defer db.Close()

	attendanceID := uuid.New().String()

	mock.ExpectExec(`UPDATE attendance_records`).
		WithArgs(attendanceID, true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetTrackingActive(context.Background(), attendanceID, true)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}
