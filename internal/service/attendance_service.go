package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"attendance-backend/internal/config"
	"attendance-backend/internal/domain"
	"attendance-backend/internal/events"
	"attendance-backend/internal/repository"
	"attendance-backend/internal/store"
)

// Conflict errors. The agent matches on these exact messages, so they are
// part of the API contract.
var (
	ErrAlreadyCheckedIn    = errors.New("already checked in today")
	ErrNoActiveCheckIn     = errors.New("no active check-in")
	ErrAttendanceCompleted = errors.New("attendance already completed")
	ErrTrackingInactive    = errors.New("tracking not active")
)

// EventPublisher decouples the service from the Redis stream publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event string, fields map[string]any) (string, error)
}

// CheckInRequest self-service check-in payload.
type CheckInRequest struct {
	EmployeeID string
	IsRemote   bool
	Notes      string
	Selfie     string
	Location   *domain.GeoLocation
	Device     *domain.DeviceInfo
	ShiftID    string
}

// CheckOutRequest self-service check-out payload. Device info is captured at
// check-in only and not required again.
type CheckOutRequest struct {
	EmployeeID string
	Notes      string
	Selfie     string
	Location   *domain.GeoLocation
}

const statusCacheTTL = 15 * time.Second

// AttendanceService owns the check-in/check-out day state machine:
// NOT_STARTED -> CHECKED_IN -> COMPLETED. The server is the final arbiter of
// conflicting concurrent requests; client-side gating is a UX optimization.
type AttendanceService struct {
	repo    repository.AttendanceRepository
	kv      store.KV
	pub     EventPublisher
	workday config.WorkdayConfig
	logger  *zap.Logger
	nowFn   func() time.Time
}

func NewAttendanceService(
	repo repository.AttendanceRepository,
	kv store.KV,
	pub EventPublisher,
	workday config.WorkdayConfig,
	logger *zap.Logger,
) *AttendanceService {
	return &AttendanceService{
		repo:    repo,
		kv:      kv,
		pub:     pub,
		workday: workday,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (s *AttendanceService) SetNow(now func() time.Time) { s.nowFn = now }

// SelfCheckIn creates today's attendance record. Rejected when the employee
// is already checked in or the day is completed.
func (s *AttendanceService) SelfCheckIn(ctx context.Context, req CheckInRequest) (*domain.AttendanceRecord, error) {
	if req.EmployeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}

	now := s.nowFn()
	date := now.Format("2006-01-02")

	existing, err := s.repo.GetByEmployeeAndDate(ctx, req.EmployeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's attendance: %w", err)
	}
	switch existing.DayState() {
	case domain.DayCheckedIn:
		return nil, ErrAlreadyCheckedIn
	case domain.DayCompleted:
		return nil, ErrAttendanceCompleted
	}

	checkIn := now
	record := &domain.AttendanceRecord{
		EmployeeID:      req.EmployeeID,
		Date:            date,
		CheckInAt:       &checkIn,
		Status:          s.checkInStatus(now, date),
		IsRemote:        req.IsRemote,
		ShiftID:         req.ShiftID,
		CheckInSelfie:   req.Selfie,
		CheckInLocation: req.Location,
		Device:          req.Device,
		Notes:           req.Notes,
		TrackingActive:  true,
	}

	id, err := s.repo.CreateCheckIn(ctx, record)
	if err != nil {
		// The pre-check races with concurrent check-ins; the unique
		// constraint is the final arbiter and the loser gets the same
		// conflict answer as a plain double check-in.
		if errors.Is(err, repository.ErrDuplicateDay) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, fmt.Errorf("failed to check in: %w", err)
	}
	record.ID = id

	s.invalidateStatus(ctx, req.EmployeeID, date)
	s.publish(ctx, events.EventCheckedIn, map[string]any{
		"attendance_id": id,
		"employee_id":   req.EmployeeID,
		"date":          date,
		"status":        string(record.Status),
		"is_remote":     req.IsRemote,
	})

	s.logger.Info("Employee checked in",
		zap.String("attendance_id", id),
		zap.String("employee_id", req.EmployeeID),
		zap.String("status", string(record.Status)),
	)

	return record, nil
}

// SelfCheckOut closes today's open record and derives the final status and
// hour breakdown. Rejected without a prior check-in or after completion.
func (s *AttendanceService) SelfCheckOut(ctx context.Context, req CheckOutRequest) (*domain.AttendanceRecord, error) {
	if req.EmployeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}

	now := s.nowFn()
	date := now.Format("2006-01-02")

	existing, err := s.repo.GetByEmployeeAndDate(ctx, req.EmployeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's attendance: %w", err)
	}
	switch existing.DayState() {
	case domain.DayNotStarted:
		return nil, ErrNoActiveCheckIn
	case domain.DayCompleted:
		return nil, ErrAttendanceCompleted
	}

	if !now.After(*existing.CheckInAt) {
		return nil, fmt.Errorf("check-out must be later than check-in")
	}

	hours := s.computeHours(*existing.CheckInAt, now)
	co := &repository.CheckOut{
		At:       now,
		Selfie:   req.Selfie,
		Location: req.Location,
		Notes:    req.Notes,
		Status:   s.checkOutStatus(existing.Status, now, date, hours),
		Hours:    hours,
	}

	if err := s.repo.ApplyCheckOut(ctx, existing.ID, co); err != nil {
		// A concurrent check-out that won the conditional UPDATE already
		// completed the day.
		if errors.Is(err, repository.ErrAlreadyClosed) {
			return nil, ErrAttendanceCompleted
		}
		return nil, fmt.Errorf("failed to check out: %w", err)
	}

	s.invalidateStatus(ctx, req.EmployeeID, date)
	s.publish(ctx, events.EventCheckedOut, map[string]any{
		"attendance_id": existing.ID,
		"employee_id":   req.EmployeeID,
		"date":          date,
		"status":        string(co.Status),
		"total_hours":   hours.TotalHours,
	})

	s.logger.Info("Employee checked out",
		zap.String("attendance_id", existing.ID),
		zap.String("employee_id", req.EmployeeID),
		zap.Float64("total_hours", hours.TotalHours),
	)

	checkOut := now
	existing.CheckOutAt = &checkOut
	existing.CheckOutSelfie = req.Selfie
	existing.CheckOutLocation = req.Location
	existing.Status = co.Status
	existing.Hours = hours
	existing.TrackingActive = false
	if req.Notes != "" {
		existing.Notes = req.Notes
	}
	return existing, nil
}

// Status returns the gate flags for the employee's current day, cached in
// Redis with a short TTL and invalidated on every mutation.
func (s *AttendanceService) Status(ctx context.Context, employeeID string) (domain.AttendanceStatus, error) {
	if employeeID == "" {
		return domain.AttendanceStatus{}, fmt.Errorf("employee_id is required")
	}

	date := s.nowFn().Format("2006-01-02")
	key := statusKey(employeeID, date)

	if s.kv != nil {
		if raw, err := s.kv.Get(ctx, key); err == nil {
			var st domain.AttendanceStatus
			if err := json.Unmarshal([]byte(raw), &st); err == nil {
				return st, nil
			}
		}
	}

	record, err := s.repo.GetByEmployeeAndDate(ctx, employeeID, date)
	if err != nil {
		return domain.AttendanceStatus{}, fmt.Errorf("failed to load today's attendance: %w", err)
	}
	st := domain.StatusForState(record.DayState())

	if s.kv != nil {
		if raw, err := json.Marshal(st); err == nil {
			if err := s.kv.Set(ctx, key, string(raw), statusCacheTTL); err != nil {
				s.logger.Warn("Failed to cache attendance status", zap.Error(err))
			}
		}
	}

	return st, nil
}

// List exposes the paginated attendance history backing the employee's
// attendance screen.
func (s *AttendanceService) List(ctx context.Context, filters *repository.AttendanceFilters, page, size int) ([]*domain.AttendanceRecord, int, error) {
	return s.repo.List(ctx, filters, page, size)
}

func (s *AttendanceService) checkInStatus(now time.Time, date string) domain.AttendanceStatusValue {
	shiftStart, _ := s.shiftTimes(now, date)
	if now.After(shiftStart.Add(s.workday.LateGrace)) {
		return domain.StatusLate
	}
	return domain.StatusPresent
}

// checkOutStatus derives the final day status. Half-day and early-leave
// override a LATE check-in; the shorter day is the more significant fact for
// payroll.
func (s *AttendanceService) checkOutStatus(current domain.AttendanceStatusValue, now time.Time, date string, hours domain.HourBreakdown) domain.AttendanceStatusValue {
	worked := hours.TotalHours - hours.BreakHours
	if worked < s.workday.HalfDayMaxHours {
		return domain.StatusHalfDay
	}
	_, shiftEnd := s.shiftTimes(now, date)
	if now.Before(shiftEnd) {
		return domain.StatusEarlyLeave
	}
	return current
}

func (s *AttendanceService) computeHours(in, out time.Time) domain.HourBreakdown {
	total := out.Sub(in).Hours()
	breakHours := s.workday.BreakDuration.Hours()
	if breakHours > total {
		breakHours = total
	}
	worked := total - breakHours

	regularCap := 8.0
	if start, end := s.workday.ShiftStart, s.workday.ShiftEnd; start != "" && end != "" {
		ref := time.Now().Format("2006-01-02")
		st, err1 := time.ParseInLocation("2006-01-02 15:04", ref+" "+start, out.Location())
		en, err2 := time.ParseInLocation("2006-01-02 15:04", ref+" "+end, out.Location())
		if err1 == nil && err2 == nil && en.After(st) {
			regularCap = en.Sub(st).Hours() - breakHours
			if regularCap < 0 {
				regularCap = 0
			}
		}
	}

	regular := math.Min(worked, regularCap)
	overtime := worked - regular

	return domain.HourBreakdown{
		TotalHours:    round2(total),
		RegularHours:  round2(regular),
		OvertimeHours: round2(overtime),
		BreakHours:    round2(breakHours),
	}
}

// shiftTimes anchors the configured shift clock times to the given day.
func (s *AttendanceService) shiftTimes(now time.Time, date string) (time.Time, time.Time) {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+s.workday.ShiftStart, now.Location())
	if err != nil {
		start, _ = time.ParseInLocation("2006-01-02 15:04", date+" 09:00", now.Location())
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", date+" "+s.workday.ShiftEnd, now.Location())
	if err != nil {
		end, _ = time.ParseInLocation("2006-01-02 15:04", date+" 18:00", now.Location())
	}
	return start, end
}

func (s *AttendanceService) invalidateStatus(ctx context.Context, employeeID, date string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Del(ctx, statusKey(employeeID, date)); err != nil {
		s.logger.Warn("Failed to invalidate attendance status cache", zap.Error(err))
	}
}

func (s *AttendanceService) publish(ctx context.Context, event string, fields map[string]any) {
	if s.pub == nil {
		return
	}
	if _, err := s.pub.Publish(ctx, event, fields); err != nil {
		s.logger.Warn("Failed to publish attendance event",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func statusKey(employeeID, date string) string {
	return fmt.Sprintf("attendance:status:%s:%s", employeeID, date)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
