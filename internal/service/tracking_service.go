package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"attendance-backend/internal/domain"
	"attendance-backend/internal/events"
	"attendance-backend/internal/repository"
)

// ReverseGeocoder resolves coordinates into an address. Best-effort only.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// TrackingService records the continuous location samples posted while an
// attendance record is open.
type TrackingService struct {
	attendance repository.AttendanceRepository
	samples    repository.LocationSamplesRepository
	geocoder   ReverseGeocoder
	pub        EventPublisher
	logger     *zap.Logger
}

func NewTrackingService(
	attendance repository.AttendanceRepository,
	samples repository.LocationSamplesRepository,
	geocoder ReverseGeocoder,
	pub EventPublisher,
	logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		attendance: attendance,
		samples:    samples,
		geocoder:   geocoder,
		pub:        pub,
		logger:     logger,
	}
}

// RecordSample appends one sample to an open, actively tracked record.
// Samples posted without an address get a best-effort server-side reverse
// geocode; a failed lookup keeps the raw coordinates.
func (s *TrackingService) RecordSample(ctx context.Context, sample *domain.LocationSample) (string, error) {
	if sample == nil || sample.AttendanceID == "" {
		return "", fmt.Errorf("attendance_id is required")
	}

	record, err := s.attendance.GetByID(ctx, sample.AttendanceID)
	if err != nil {
		return "", fmt.Errorf("failed to load attendance record: %w", err)
	}
	if record.DayState() != domain.DayCheckedIn {
		return "", ErrNoActiveCheckIn
	}
	if !record.TrackingActive {
		return "", ErrTrackingInactive
	}

	if sample.Address == "" && s.geocoder != nil {
		if addr, err := s.geocoder.Reverse(ctx, sample.Latitude, sample.Longitude); err == nil {
			sample.Address = addr
		} else {
			s.logger.Debug("Reverse geocoding failed for sample", zap.Error(err))
		}
	}

	id, err := s.samples.Insert(ctx, sample)
	if err != nil {
		return "", fmt.Errorf("failed to record location sample: %w", err)
	}

	s.logger.Debug("Recorded location sample",
		zap.String("attendance_id", sample.AttendanceID),
		zap.String("sample_id", id),
	)

	return id, nil
}

// StopTracking marks the record's tracking as stopped. Stopping an already
// stopped record is a no-op, not an error.
func (s *TrackingService) StopTracking(ctx context.Context, attendanceID string) error {
	if attendanceID == "" {
		return fmt.Errorf("attendance_id is required")
	}

	if err := s.attendance.SetTrackingActive(ctx, attendanceID, false); err != nil {
		return fmt.Errorf("failed to stop tracking: %w", err)
	}

	if s.pub != nil {
		if _, err := s.pub.Publish(ctx, events.EventTrackingStopped, map[string]any{
			"attendance_id": attendanceID,
		}); err != nil {
			s.logger.Warn("Failed to publish tracking stop event", zap.Error(err))
		}
	}

	s.logger.Info("Location tracking stopped", zap.String("attendance_id", attendanceID))
	return nil
}

// ListSamples returns the recorded sequence for one attendance record.
func (s *TrackingService) ListSamples(ctx context.Context, attendanceID string, page, size int) ([]*domain.LocationSample, int, error) {
	return s.samples.ListByAttendance(ctx, attendanceID, page, size)
}
