package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attendance-backend/internal/domain"
)

// PostgresLocationSamplesRepository location_samples repository. Samples are
// append-only; there is no update or delete path.
type PostgresLocationSamplesRepository struct {
	db *sql.DB
}

func NewPostgresLocationSamplesRepository(db *sql.DB) *PostgresLocationSamplesRepository {
	return &PostgresLocationSamplesRepository{db: db}
}

var _ LocationSamplesRepository = (*PostgresLocationSamplesRepository)(nil)

// Insert appends one tracking sample.
func (r *PostgresLocationSamplesRepository) Insert(ctx context.Context, sample *domain.LocationSample) (string, error) {
	if sample == nil || sample.AttendanceID == "" {
		return "", fmt.Errorf("attendance_id is required")
	}
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = time.Now()
	}

	query := `
		INSERT INTO location_samples (
			attendance_id,
			latitude,
			longitude,
			accuracy,
			address,
			captured_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING sample_id::text
	`

	var address any
	if sample.Address != "" {
		address = sample.Address
	}

	var sampleID string
	err := r.db.QueryRowContext(ctx, query,
		sample.AttendanceID, sample.Latitude, sample.Longitude,
		sample.Accuracy, address, sample.CapturedAt,
	).Scan(&sampleID)
	if err != nil {
		return "", fmt.Errorf("failed to insert location sample: %w", err)
	}

	return sampleID, nil
}

// ListByAttendance returns the sample sequence for one attendance record,
// oldest first.
func (r *PostgresLocationSamplesRepository) ListByAttendance(ctx context.Context, attendanceID string, page, size int) ([]*domain.LocationSample, int, error) {
	if attendanceID == "" {
		return nil, 0, fmt.Errorf("attendance_id is required")
	}

	queryCount := `
		SELECT COUNT(*)
		FROM location_samples
		WHERE attendance_id = $1
	`
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, attendanceID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count location samples: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 100
	}
	offset := (page - 1) * size

	query := `
		SELECT
			sample_id::text,
			attendance_id::text,
			latitude,
			longitude,
			accuracy,
			address,
			captured_at
		FROM location_samples
		WHERE attendance_id = $1
		ORDER BY captured_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, attendanceID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list location samples: %w", err)
	}
	defer rows.Close()

	var samples []*domain.LocationSample
	for rows.Next() {
		sample, err := scanLocationSample(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan location sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate location samples: %w", err)
	}

	return samples, total, nil
}

// LatestByAttendance returns the most recent sample, or (nil, nil) when the
// record has no samples yet.
func (r *PostgresLocationSamplesRepository) LatestByAttendance(ctx context.Context, attendanceID string) (*domain.LocationSample, error) {
	if attendanceID == "" {
		return nil, fmt.Errorf("attendance_id is required")
	}

	query := `
		SELECT
			sample_id::text,
			attendance_id::text,
			latitude,
			longitude,
			accuracy,
			address,
			captured_at
		FROM location_samples
		WHERE attendance_id = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`

	sample, err := scanLocationSample(func(dest ...any) error {
		return r.db.QueryRowContext(ctx, query, attendanceID).Scan(dest...)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest location sample: %w", err)
	}
	return sample, nil
}

func scanLocationSample(scan func(dest ...any) error) (*domain.LocationSample, error) {
	var sample domain.LocationSample
	var accuracy sql.NullFloat64
	var address sql.NullString

	err := scan(
		&sample.ID,
		&sample.AttendanceID,
		&sample.Latitude,
		&sample.Longitude,
		&accuracy,
		&address,
		&sample.CapturedAt,
	)
	if err != nil {
		return nil, err
	}

	sample.Accuracy = accuracy.Float64
	sample.Address = address.String
	return &sample, nil
}
