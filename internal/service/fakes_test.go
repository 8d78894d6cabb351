package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance-backend/internal/domain"
	"attendance-backend/internal/repository"
	"attendance-backend/internal/store"
)

// fakeAttendanceRepo in-memory AttendanceRepository for service tests.
// createErr/checkOutErr inject write failures (lost races).
type fakeAttendanceRepo struct {
	mu          sync.Mutex
	records     map[string]*domain.AttendanceRecord
	createErr   error
	checkOutErr error
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: make(map[string]*domain.AttendanceRecord)}
}

var _ repository.AttendanceRepository = (*fakeAttendanceRepo)(nil)

func (f *fakeAttendanceRepo) GetByID(_ context.Context, attendanceID string) (*domain.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[attendanceID]
	if !ok {
		return nil, fmt.Errorf("attendance record not found")
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAttendanceRepo) GetByEmployeeAndDate(_ context.Context, employeeID, date string) (*domain.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.EmployeeID == employeeID && rec.Date == date {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAttendanceRepo) CreateCheckIn(_ context.Context, record *domain.AttendanceRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := uuid.New().String()
	cp := *record
	cp.ID = id
	f.records[id] = &cp
	return id, nil
}

func (f *fakeAttendanceRepo) ApplyCheckOut(_ context.Context, attendanceID string, co *repository.CheckOut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkOutErr != nil {
		return f.checkOutErr
	}
	rec, ok := f.records[attendanceID]
	if !ok || rec.CheckInAt == nil || rec.CheckOutAt != nil {
		return fmt.Errorf("attendance record not open for check-out")
	}
	at := co.At
	rec.CheckOutAt = &at
	rec.CheckOutSelfie = co.Selfie
	rec.CheckOutLocation = co.Location
	rec.Status = co.Status
	rec.Hours = co.Hours
	rec.TrackingActive = false
	if co.Notes != "" {
		rec.Notes = co.Notes
	}
	return nil
}

func (f *fakeAttendanceRepo) List(_ context.Context, filters *repository.AttendanceFilters, page, size int) ([]*domain.AttendanceRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AttendanceRecord
	for _, rec := range f.records {
		if filters != nil && filters.EmployeeID != "" && rec.EmployeeID != filters.EmployeeID {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeAttendanceRepo) SetTrackingActive(_ context.Context, attendanceID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[attendanceID]
	if !ok {
		return fmt.Errorf("attendance record not found")
	}
	rec.TrackingActive = active
	return nil
}

// fakeSamplesRepo in-memory LocationSamplesRepository.
type fakeSamplesRepo struct {
	mu      sync.Mutex
	samples []*domain.LocationSample
}

var _ repository.LocationSamplesRepository = (*fakeSamplesRepo)(nil)

func (f *fakeSamplesRepo) Insert(_ context.Context, sample *domain.LocationSample) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sample
	cp.ID = uuid.New().String()
	f.samples = append(f.samples, &cp)
	return cp.ID, nil
}

func (f *fakeSamplesRepo) ListByAttendance(_ context.Context, attendanceID string, _, _ int) ([]*domain.LocationSample, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.LocationSample
	for _, s := range f.samples {
		if s.AttendanceID == attendanceID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (f *fakeSamplesRepo) LatestByAttendance(_ context.Context, attendanceID string) (*domain.LocationSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.samples) - 1; i >= 0; i-- {
		if f.samples[i].AttendanceID == attendanceID {
			return f.samples[i], nil
		}
	}
	return nil, nil
}

// fakeKV in-memory store.KV.
type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string]string)} }

var _ store.KV = (*fakeKV)(nil)

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, event string, _ map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return fmt.Sprintf("%d-0", len(f.events)), nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// fakeGeocoder fixed-answer ReverseGeocoder.
type fakeGeocoder struct {
	addr string
	err  error
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	return f.addr, f.err
}
