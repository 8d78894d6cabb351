package httpapi

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"attendance-backend/internal/domain"
	"attendance-backend/internal/repository"
	"attendance-backend/internal/service"
)

// AttendanceHandler self-service check-in/check-out/status endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	logger     *zap.Logger
}

func NewAttendanceHandler(attendance *service.AttendanceService, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, logger: logger}
}

// checkInRequest wire shape of POST /attendance/self-checkin.
type checkInRequest struct {
	IsRemote        bool                `json:"isRemote"`
	Notes           string              `json:"notes,omitempty"`
	CheckInSelfie   string              `json:"checkInSelfie,omitempty"`
	CheckInLocation *domain.GeoLocation `json:"checkInLocation,omitempty"`
	DeviceInfo      *domain.DeviceInfo  `json:"deviceInfo,omitempty"`
	ShiftID         string              `json:"shiftId,omitempty"`
}

// checkOutRequest wire shape of POST /attendance/self-checkout.
type checkOutRequest struct {
	Notes            string              `json:"notes,omitempty"`
	CheckOutSelfie   string              `json:"checkOutSelfie,omitempty"`
	CheckOutLocation *domain.GeoLocation `json:"checkOutLocation,omitempty"`
}

// attendanceRecordView wire shape of an attendance record.
type attendanceRecordView struct {
	ID               string                `json:"id"`
	EmployeeID       string                `json:"employeeId"`
	Date             string                `json:"date"`
	CheckInAt        *time.Time            `json:"checkInAt,omitempty"`
	CheckOutAt       *time.Time            `json:"checkOutAt,omitempty"`
	Status           string                `json:"status"`
	IsRemote         bool                  `json:"isRemote"`
	ShiftID          string                `json:"shiftId,omitempty"`
	CheckInLocation  *domain.GeoLocation   `json:"checkInLocation,omitempty"`
	CheckOutLocation *domain.GeoLocation   `json:"checkOutLocation,omitempty"`
	DeviceInfo       *domain.DeviceInfo    `json:"deviceInfo,omitempty"`
	Hours            domain.HourBreakdown  `json:"hours"`
	Notes            string                `json:"notes,omitempty"`
	TrackingActive   bool                  `json:"trackingActive"`
}

func recordView(rec *domain.AttendanceRecord) attendanceRecordView {
	return attendanceRecordView{
		ID:               rec.ID,
		EmployeeID:       rec.EmployeeID,
		Date:             rec.Date,
		CheckInAt:        rec.CheckInAt,
		CheckOutAt:       rec.CheckOutAt,
		Status:           string(rec.Status),
		IsRemote:         rec.IsRemote,
		ShiftID:          rec.ShiftID,
		CheckInLocation:  rec.CheckInLocation,
		CheckOutLocation: rec.CheckOutLocation,
		DeviceInfo:       rec.Device,
		Hours:            rec.Hours,
		Notes:            rec.Notes,
		TrackingActive:   rec.TrackingActive,
	}
}

// SelfCheckIn POST /attendance/self-checkin
func (h *AttendanceHandler) SelfCheckIn(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromReq(w, r)
	if !ok {
		return
	}

	var req checkInRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	rec, err := h.attendance.SelfCheckIn(r.Context(), service.CheckInRequest{
		EmployeeID: employeeID,
		IsRemote:   req.IsRemote,
		Notes:      req.Notes,
		Selfie:     req.CheckInSelfie,
		Location:   req.CheckInLocation,
		Device:     req.DeviceInfo,
		ShiftID:    req.ShiftID,
	})
	if err != nil {
		h.writeServiceError(w, r, "self check-in", employeeID, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(recordView(rec)))
}

// SelfCheckOut POST /attendance/self-checkout
func (h *AttendanceHandler) SelfCheckOut(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromReq(w, r)
	if !ok {
		return
	}

	var req checkOutRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	rec, err := h.attendance.SelfCheckOut(r.Context(), service.CheckOutRequest{
		EmployeeID: employeeID,
		Notes:      req.Notes,
		Selfie:     req.CheckOutSelfie,
		Location:   req.CheckOutLocation,
	})
	if err != nil {
		h.writeServiceError(w, r, "self check-out", employeeID, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(recordView(rec)))
}

// Status GET /attendance/status
func (h *AttendanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromReq(w, r)
	if !ok {
		return
	}

	st, err := h.attendance.Status(r.Context(), employeeID)
	if err != nil {
		h.logger.Error("Failed to get attendance status",
			zap.Error(err),
			zap.String("employee_id", employeeID),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(st))
}

// Records GET /attendance/records
func (h *AttendanceHandler) Records(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromReq(w, r)
	if !ok {
		return
	}

	filters := &repository.AttendanceFilters{
		EmployeeID: employeeID,
		Status:     r.URL.Query().Get("status"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filters.DateTo = &t
		}
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 20)

	records, total, err := h.attendance.List(r.Context(), filters, page, size)
	if err != nil {
		h.logger.Error("Failed to list attendance records", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	items := make([]attendanceRecordView, 0, len(records))
	for _, rec := range records {
		items = append(items, recordView(rec))
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"pagination": map[string]any{
			"total": total,
			"page":  page,
			"size":  size,
		},
	}))
}

// writeServiceError keeps conflict outcomes distinguishable: the envelope
// carries the exact sentinel message the agent pattern-matches on.
func (h *AttendanceHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op, employeeID string, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrNoActiveCheckIn),
		errors.Is(err, service.ErrAttendanceCompleted):
		h.logger.Info("Attendance conflict",
			zap.String("op", op),
			zap.String("employee_id", employeeID),
			zap.String("reason", err.Error()),
		)
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	default:
		h.logger.Error("Attendance operation failed",
			zap.String("op", op),
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
	}
}
