package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"attendance-backend/internal/domain"
	"attendance-backend/internal/service"
)

// TrackingHandler continuous location tracking endpoints.
type TrackingHandler struct {
	tracking *service.TrackingService
	logger   *zap.Logger
}

func NewTrackingHandler(tracking *service.TrackingService, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{tracking: tracking, logger: logger}
}

// trackRequest wire shape of POST /location-tracking/track.
type trackRequest struct {
	AttendanceID string  `json:"attendanceId"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Accuracy     float64 `json:"accuracy,omitempty"`
	Address      string  `json:"address,omitempty"`
}

// Track POST /location-tracking/track
func (h *TrackingHandler) Track(w http.ResponseWriter, r *http.Request) {
	if _, ok := employeeIDFromReq(w, r); !ok {
		return
	}

	var req trackRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.AttendanceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("attendanceId is required"))
		return
	}

	id, err := h.tracking.RecordSample(r.Context(), &domain.LocationSample{
		AttendanceID: req.AttendanceID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Accuracy:     req.Accuracy,
		Address:      req.Address,
		CapturedAt:   time.Now(),
	})
	if err != nil {
		if errors.Is(err, service.ErrNoActiveCheckIn) || errors.Is(err, service.ErrTrackingInactive) {
			writeJSON(w, http.StatusConflict, Fail(err.Error()))
			return
		}
		h.logger.Error("Failed to record location sample",
			zap.Error(err),
			zap.String("attendance_id", req.AttendanceID),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"sampleId": id}))
}

// Stop POST /location-tracking/stop/{attendanceId}
func (h *TrackingHandler) Stop(w http.ResponseWriter, r *http.Request, attendanceID string) {
	if _, ok := employeeIDFromReq(w, r); !ok {
		return
	}
	if attendanceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("attendanceId is required"))
		return
	}

	if err := h.tracking.StopTracking(r.Context(), attendanceID); err != nil {
		h.logger.Error("Failed to stop tracking",
			zap.Error(err),
			zap.String("attendance_id", attendanceID),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"stopped": true}))
}

// Samples GET /location-tracking/samples/{attendanceId}
func (h *TrackingHandler) Samples(w http.ResponseWriter, r *http.Request, attendanceID string) {
	if _, ok := employeeIDFromReq(w, r); !ok {
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 100)

	samples, total, err := h.tracking.ListSamples(r.Context(), attendanceID, page, size)
	if err != nil {
		h.logger.Error("Failed to list location samples", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": samples,
		"pagination": map[string]any{
			"total": total,
			"page":  page,
			"size":  size,
		},
	}))
}

// pathSuffix returns the trailing path element after prefix, or "".
func pathSuffix(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
