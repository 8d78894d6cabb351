// Package client is the HTTP client for the attendance backend, used by the
// capture agent. All endpoints answer with the standard result envelope;
// a non-success code surfaces as an error carrying the server message.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"attendance-backend/internal/domain"
)

const resultSuccess = 2000

// envelope the server's result wrapper.
type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

// CheckInPayload body of POST /attendance/self-checkin.
type CheckInPayload struct {
	IsRemote        bool                `json:"isRemote"`
	Notes           string              `json:"notes,omitempty"`
	CheckInSelfie   string              `json:"checkInSelfie,omitempty"`
	CheckInLocation *domain.GeoLocation `json:"checkInLocation,omitempty"`
	DeviceInfo      *domain.DeviceInfo  `json:"deviceInfo,omitempty"`
	ShiftID         string              `json:"shiftId,omitempty"`
}

// CheckOutPayload body of POST /attendance/self-checkout.
type CheckOutPayload struct {
	Notes            string              `json:"notes,omitempty"`
	CheckOutSelfie   string              `json:"checkOutSelfie,omitempty"`
	CheckOutLocation *domain.GeoLocation `json:"checkOutLocation,omitempty"`
}

// RecordResult the attendance record fields the agent reads back.
type RecordResult struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	Date       string     `json:"date"`
	Status     string     `json:"status"`
	CheckInAt  *time.Time `json:"checkInAt"`
	CheckOutAt *time.Time `json:"checkOutAt"`
}

type trackPayload struct {
	AttendanceID string  `json:"attendanceId"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Accuracy     float64 `json:"accuracy,omitempty"`
	Address      string  `json:"address,omitempty"`
}

// Client talks to the attendance backend on behalf of one employee. The
// employee identity rides on every request as the X-Employee-Id header.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func New(baseURL, employeeID string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Employee-Id", employeeID)

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// SelfCheckIn submits a check-in. Conflict messages from the server (already
// checked in, day completed) come back as plain errors with the server text.
func (c *Client) SelfCheckIn(ctx context.Context, payload CheckInPayload) (*RecordResult, error) {
	var out envelope[*RecordResult]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		SetError(&out).
		Post("/attendance/self-checkin")
	if err != nil {
		return nil, fmt.Errorf("failed to call self-checkin: %w", err)
	}
	if err := checkEnvelope(resp, out.Code, out.Message); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// SelfCheckOut submits a check-out for the open record of the day.
func (c *Client) SelfCheckOut(ctx context.Context, payload CheckOutPayload) (*RecordResult, error) {
	var out envelope[*RecordResult]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		SetError(&out).
		Post("/attendance/self-checkout")
	if err != nil {
		return nil, fmt.Errorf("failed to call self-checkout: %w", err)
	}
	if err := checkEnvelope(resp, out.Code, out.Message); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Status fetches the status gate for the employee's current day.
func (c *Client) Status(ctx context.Context) (domain.AttendanceStatus, error) {
	var out envelope[domain.AttendanceStatus]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Get("/attendance/status")
	if err != nil {
		return domain.AttendanceStatus{}, fmt.Errorf("failed to call status: %w", err)
	}
	if err := checkEnvelope(resp, out.Code, out.Message); err != nil {
		return domain.AttendanceStatus{}, err
	}
	return out.Result, nil
}

// PostSample ships one tracking sample.
func (c *Client) PostSample(ctx context.Context, attendanceID string, loc domain.GeoLocation) error {
	var out envelope[map[string]any]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(trackPayload{
			AttendanceID: attendanceID,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Accuracy:     loc.Accuracy,
			Address:      loc.Address,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/location-tracking/track")
	if err != nil {
		return fmt.Errorf("failed to post location sample: %w", err)
	}
	return checkEnvelope(resp, out.Code, out.Message)
}

// StopTracking marks tracking stopped for the record on the server.
func (c *Client) StopTracking(ctx context.Context, attendanceID string) error {
	var out envelope[map[string]any]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Post("/location-tracking/stop/" + attendanceID)
	if err != nil {
		return fmt.Errorf("failed to stop tracking: %w", err)
	}
	return checkEnvelope(resp, out.Code, out.Message)
}

// checkEnvelope turns a non-success envelope into an error carrying the
// server message verbatim, so callers can match on it.
func checkEnvelope(resp *resty.Response, code int, message string) error {
	if code == resultSuccess {
		return nil
	}
	if message != "" {
		return fmt.Errorf("%s", message)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode())
}
