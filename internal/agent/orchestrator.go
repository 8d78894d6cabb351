package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendance-backend/internal/client"
	"attendance-backend/internal/domain"
)

// CaptureState the capture attempt lifecycle.
//
//	Idle -> Capturing -> Ready -> Submitting -> Done
//	                                        \-> Failed
//
// Retake returns Ready/Failed to Capturing; Cancel returns any non-submitting
// state to Idle.
type CaptureState int

const (
	StateIdle CaptureState = iota
	StateCapturing
	StateReady
	StateSubmitting
	StateDone
	StateFailed
)

func (s CaptureState) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Intent which attendance operation the attempt will submit.
type Intent string

const (
	IntentCheckIn  Intent = "check-in"
	IntentCheckOut Intent = "check-out"
)

var (
	ErrDayCompleted      = errors.New("attendance already completed for today")
	ErrStatusUnknown     = errors.New("attendance status not loaded yet")
	ErrAttemptInProgress = errors.New("capture attempt already in progress")
	ErrNotReady          = errors.New("capture attempt is not ready to submit")
)

// AttendanceSubmitter the backend operations the orchestrator submits to.
type AttendanceSubmitter interface {
	SelfCheckIn(ctx context.Context, payload client.CheckInPayload) (*client.RecordResult, error)
	SelfCheckOut(ctx context.Context, payload client.CheckOutPayload) (*client.RecordResult, error)
}

// GateView the status snapshot the orchestrator gates attempts on.
type GateView interface {
	Current() (domain.AttendanceStatus, bool)
	Refresh(ctx context.Context) error
}

// FrameSource the camera surface the orchestrator captures from.
type FrameSource interface {
	CaptureFrame() (string, error)
	Close()
}

// TrackerControl continuous tracking lifecycle, driven by the submit
// outcome.
type TrackerControl interface {
	Start(attendanceID string)
	Stop()
}

// AttemptOptions per-attempt inputs fixed at Begin.
type AttemptOptions struct {
	IsRemote bool
	Notes    string
	ShiftID  string
	Device   *domain.DeviceInfo
}

const (
	autoSubmitBase    = 250 * time.Millisecond
	autoSubmitPerUnit = 100 * time.Millisecond
	autoSubmitUnit    = 64 * 1024
	autoSubmitMax     = 1500 * time.Millisecond
	submitTimeout     = 30 * time.Second
)

// defaultAutoSubmitDelay grows with the selfie payload so large images get a
// moment to settle in the preview before the attempt submits itself.
func defaultAutoSubmitDelay(payloadSize int) time.Duration {
	delay := autoSubmitBase + time.Duration(payloadSize/autoSubmitUnit)*autoSubmitPerUnit
	if delay > autoSubmitMax {
		return autoSubmitMax
	}
	return delay
}

// Orchestrator drives one capture attempt at a time: decide intent from the
// status gate, collect selfie and location in either order, then submit once
// both are held. Submission is automatic after a short delay, or immediate
// on explicit Submit.
type Orchestrator struct {
	submitter AttendanceSubmitter
	gate      GateView
	resolver  LocationResolver
	camera    FrameSource
	tracker   TrackerControl
	logger    *zap.Logger

	mu       sync.Mutex
	state    CaptureState
	intent   Intent
	opts     AttemptOptions
	selfie   string
	location *domain.GeoLocation
	failure  string
	record   *client.RecordResult
	timer    *time.Timer
	delayFn  func(int) time.Duration
}

func NewOrchestrator(
	submitter AttendanceSubmitter,
	gate GateView,
	resolver LocationResolver,
	camera FrameSource,
	tracker TrackerControl,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		submitter: submitter,
		gate:      gate,
		resolver:  resolver,
		camera:    camera,
		tracker:   tracker,
		logger:    logger,
		delayFn:   defaultAutoSubmitDelay,
	}
}

// SetAutoSubmitDelay overrides the delay policy. A nil fn disables
// auto-submit; the attempt then waits for an explicit Submit.
func (o *Orchestrator) SetAutoSubmitDelay(fn func(payloadSize int) time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delayFn = fn
}

func (o *Orchestrator) State() CaptureState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Intent() Intent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.intent
}

// Failure the user-facing message for the last failed attempt.
func (o *Orchestrator) Failure() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failure
}

// Record the server record of the last successful submission.
func (o *Orchestrator) Record() *client.RecordResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.record
}

// Begin opens a capture attempt. The intent is decided by the status gate:
// check-out when a check-in is open, check-in when the day has not started.
// A completed day refuses the attempt.
func (o *Orchestrator) Begin(opts AttemptOptions) (Intent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateIdle, StateDone, StateFailed:
	default:
		return "", ErrAttemptInProgress
	}

	status, known := o.gate.Current()
	if !known {
		return "", ErrStatusUnknown
	}

	var intent Intent
	switch {
	case status.IsCompleted:
		return "", ErrDayCompleted
	case status.CanCheckOut:
		intent = IntentCheckOut
	case status.CanCheckIn:
		intent = IntentCheckIn
	default:
		return "", ErrStatusUnknown
	}

	o.resetLocked()
	o.state = StateCapturing
	o.intent = intent
	o.opts = opts
	o.logger.Info("Capture attempt started", zap.String("intent", string(intent)))
	return intent, nil
}

// CaptureSelfie grabs a frame from the camera and holds it for submission.
func (o *Orchestrator) CaptureSelfie() error {
	o.mu.Lock()
	if o.state != StateCapturing {
		o.mu.Unlock()
		return ErrAttemptInProgress
	}
	o.mu.Unlock()

	selfie, err := o.camera.CaptureFrame()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCapturing {
		return nil
	}
	if err != nil {
		o.state = StateFailed
		o.failure = CameraGuidance(err)
		o.logger.Warn("Capture attempt failed on selfie", zap.Error(err))
		return err
	}
	o.selfie = selfie
	o.maybeReadyLocked()
	return nil
}

// ResolveLocation acquires and holds the position. A resolution failure ends
// the attempt with failure guidance; the employee retries via Retake.
func (o *Orchestrator) ResolveLocation(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateCapturing {
		o.mu.Unlock()
		return ErrAttemptInProgress
	}
	o.mu.Unlock()

	loc, err := o.resolver.CompleteLocation(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCapturing {
		return nil
	}
	if err != nil {
		o.state = StateFailed
		o.failure = Guidance(err)
		o.logger.Warn("Capture attempt failed on location", zap.Error(err))
		return err
	}
	o.location = &loc
	o.maybeReadyLocked()
	return nil
}

// maybeReadyLocked arms auto-submit once both artifacts are held.
func (o *Orchestrator) maybeReadyLocked() {
	if o.state != StateCapturing || o.selfie == "" || o.location == nil {
		return
	}
	o.state = StateReady
	if o.delayFn == nil {
		return
	}
	delay := o.delayFn(len(o.selfie))
	o.timer = time.AfterFunc(delay, o.autoSubmit)
}

func (o *Orchestrator) autoSubmit() {
	o.mu.Lock()
	if o.state != StateReady {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := o.Submit(ctx); err != nil && !errors.Is(err, ErrNotReady) {
		o.logger.Warn("Auto-submit failed", zap.Error(err))
	}
}

// Submit sends the attempt. On check-in success continuous tracking starts;
// on check-out success it stops. The camera is released either way once the
// attempt leaves the capture phase for good.
func (o *Orchestrator) Submit(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateReady {
		o.mu.Unlock()
		return ErrNotReady
	}
	o.stopTimerLocked()
	o.state = StateSubmitting
	intent := o.intent
	opts := o.opts
	selfie := o.selfie
	location := o.location
	o.mu.Unlock()

	var record *client.RecordResult
	var err error
	switch intent {
	case IntentCheckOut:
		record, err = o.submitter.SelfCheckOut(ctx, client.CheckOutPayload{
			Notes:            opts.Notes,
			CheckOutSelfie:   selfie,
			CheckOutLocation: location,
		})
	default:
		record, err = o.submitter.SelfCheckIn(ctx, client.CheckInPayload{
			IsRemote:        opts.IsRemote,
			Notes:           opts.Notes,
			CheckInSelfie:   selfie,
			CheckInLocation: location,
			DeviceInfo:      opts.Device,
			ShiftID:         opts.ShiftID,
		})
	}

	o.mu.Lock()
	if err != nil {
		o.state = StateFailed
		o.failure = serverGuidance(err)
		o.mu.Unlock()
		o.logger.Warn("Attendance submission failed",
			zap.String("intent", string(intent)),
			zap.Error(err),
		)
		return err
	}
	o.state = StateDone
	o.record = record
	o.selfie = ""
	o.location = nil
	o.mu.Unlock()

	o.camera.Close()
	o.afterSubmit(ctx, intent, record)
	return nil
}

func (o *Orchestrator) afterSubmit(ctx context.Context, intent Intent, record *client.RecordResult) {
	if o.tracker != nil {
		switch intent {
		case IntentCheckIn:
			if record != nil && record.ID != "" {
				o.tracker.Start(record.ID)
			}
		case IntentCheckOut:
			o.tracker.Stop()
		}
	}
	if err := o.gate.Refresh(ctx); err != nil {
		o.logger.Debug("Gate refresh after submit failed", zap.Error(err))
	}
	o.logger.Info("Attendance submitted", zap.String("intent", string(intent)))
}

// Retake discards the held selfie and location and returns to capturing.
func (o *Orchestrator) Retake() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateCapturing, StateReady, StateFailed:
	default:
		return ErrAttemptInProgress
	}
	o.stopTimerLocked()
	o.selfie = ""
	o.location = nil
	o.failure = ""
	o.state = StateCapturing
	return nil
}

// Cancel abandons the attempt, discards all held artifacts and releases the
// camera. A submit already in flight cannot be cancelled.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return ErrAttemptInProgress
	}
	o.stopTimerLocked()
	o.resetLocked()
	o.state = StateIdle
	o.mu.Unlock()

	o.camera.Close()
	return nil
}

func (o *Orchestrator) resetLocked() {
	o.stopTimerLocked()
	o.selfie = ""
	o.location = nil
	o.failure = ""
	o.record = nil
	o.intent = ""
}

func (o *Orchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// serverGuidance maps known conflict messages onto actionable guidance. Any
// other failure surfaces the server message as-is.
func serverGuidance(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "already checked in"):
		return "You are already checked in. Please check out instead."
	case strings.Contains(msg, "no active check-in"):
		return "You have not checked in yet. Please check in first."
	case strings.Contains(msg, "already completed"):
		return "Attendance for today is already completed."
	default:
		return msg
	}
}
