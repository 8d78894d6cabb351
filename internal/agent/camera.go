package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"go.uber.org/zap"
)

// Camera failure taxonomy.
var (
	ErrCameraNotSupported     = errors.New("camera is not supported on this device")
	ErrCameraPermissionDenied = errors.New("camera permission denied")
	ErrNoCamera               = errors.New("no camera found")
	ErrCameraBusy             = errors.New("camera is in use by another application")
	ErrCameraNotStreaming     = errors.New("camera is not streaming")
)

// CameraState lifecycle of the camera session.
type CameraState int

const (
	CameraClosed CameraState = iota
	CameraOpening
	CameraStreaming
)

func (s CameraState) String() string {
	switch s {
	case CameraOpening:
		return "opening"
	case CameraStreaming:
		return "streaming"
	default:
		return "closed"
	}
}

// Facing which camera to prefer.
type Facing string

const (
	FacingFront Facing = "user"
	FacingBack  Facing = "environment"
)

func (f Facing) opposite() Facing {
	if f == FacingBack {
		return FacingFront
	}
	return FacingBack
}

// StreamConstraints requested stream properties. Zero width/height means
// unconstrained resolution; empty Facing means any camera.
type StreamConstraints struct {
	Facing Facing
	Width  int
	Height int
}

// MediaTrack one track of an open stream.
type MediaTrack interface {
	Stop()
	Live() bool
}

// MediaStream an open camera stream.
type MediaStream interface {
	Tracks() []MediaTrack
	// Frame returns the current video frame.
	Frame() (image.Image, error)
}

// MediaDevices abstracts the platform camera source. Implementations return
// the sentinel errors above when the failure class is known; any other error
// is treated as a constraint failure eligible for relaxation.
type MediaDevices interface {
	OpenStream(ctx context.Context, c StreamConstraints) (MediaStream, error)
}

const selfieJPEGQuality = 85

// CameraController owns the camera session for selfie capture. Open walks a
// relaxation ladder of constraints so strict devices still produce a stream;
// Close releases every track, and every failed open releases whatever was
// acquired before failing.
type CameraController struct {
	devices MediaDevices
	logger  *zap.Logger

	mu      sync.Mutex
	state   CameraState
	facing  Facing
	stream  MediaStream
	session uint64
}

func NewCameraController(devices MediaDevices, logger *zap.Logger) *CameraController {
	return &CameraController{
		devices: devices,
		logger:  logger,
		facing:  FacingFront,
	}
}

func (c *CameraController) State() CameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *CameraController) Facing() Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// constraintLadder from most to least specific. Resolution first, then
// facing only, then anything that produces video.
func constraintLadder(facing Facing) []StreamConstraints {
	return []StreamConstraints{
		{Facing: facing, Width: 1280, Height: 720},
		{Facing: facing},
		{},
	}
}

// Open acquires a stream for the current facing. Safe to call only from
// the closed state; an already-open session must be closed first.
func (c *CameraController) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.devices == nil {
		c.mu.Unlock()
		return ErrCameraNotSupported
	}
	if c.state != CameraClosed {
		c.mu.Unlock()
		return ErrCameraBusy
	}
	c.state = CameraOpening
	c.session++
	session := c.session
	facing := c.facing
	c.mu.Unlock()

	stream, err := c.acquire(ctx, facing)
	return c.install(stream, err, session)
}

// install finishes an acquire. When the session was closed (or replaced)
// while the platform was still answering, a late stream must not resurrect
// it: its tracks are stopped and the session stays as Close left it.
func (c *CameraController) install(stream MediaStream, err error, session uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CameraOpening || c.session != session {
		stopTracks(stream)
		return err
	}
	if err != nil {
		c.state = CameraClosed
		return err
	}
	c.stream = stream
	c.state = CameraStreaming
	return nil
}

// acquire walks the relaxation ladder. Permission and support failures are
// terminal; relaxing constraints cannot fix them.
func (c *CameraController) acquire(ctx context.Context, facing Facing) (MediaStream, error) {
	var lastErr error
	for _, constraints := range constraintLadder(facing) {
		stream, err := c.devices.OpenStream(ctx, constraints)
		if err == nil {
			return stream, nil
		}
		if errors.Is(err, ErrCameraPermissionDenied) || errors.Is(err, ErrCameraNotSupported) {
			return nil, err
		}
		c.logger.Debug("Camera constraints rejected, relaxing",
			zap.String("facing", string(constraints.Facing)),
			zap.Int("width", constraints.Width),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, fmt.Errorf("failed to open camera: %w", lastErr)
}

// SwitchFacing flips between front and back camera by releasing the current
// stream and reacquiring. On failure the session ends closed, never with a
// leaked track.
func (c *CameraController) SwitchFacing(ctx context.Context) error {
	c.mu.Lock()
	if c.state != CameraStreaming {
		c.mu.Unlock()
		return ErrCameraNotStreaming
	}
	stopTracks(c.stream)
	c.stream = nil
	c.facing = c.facing.opposite()
	c.state = CameraOpening
	c.session++
	session := c.session
	facing := c.facing
	c.mu.Unlock()

	stream, err := c.acquire(ctx, facing)
	return c.install(stream, err, session)
}

// CaptureFrame grabs the current frame as a JPEG data URI. The stream keeps
// running; capture never ends the session.
func (c *CameraController) CaptureFrame() (string, error) {
	c.mu.Lock()
	stream := c.stream
	state := c.state
	c.mu.Unlock()

	if state != CameraStreaming || stream == nil {
		return "", ErrCameraNotStreaming
	}

	frame, err := stream.Frame()
	if err != nil {
		return "", fmt.Errorf("failed to read camera frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: selfieJPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode selfie: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Close releases the stream and stops all tracks. Idempotent.
func (c *CameraController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	stopTracks(c.stream)
	c.stream = nil
	c.state = CameraClosed
}

// CameraGuidance maps a camera failure onto the message shown to the
// employee.
func CameraGuidance(err error) string {
	switch {
	case errors.Is(err, ErrCameraNotSupported):
		return "Camera is not supported on this device. Please use a device with a camera."
	case errors.Is(err, ErrCameraPermissionDenied):
		return "Camera permission was denied. Please allow camera access and try again."
	case errors.Is(err, ErrNoCamera):
		return "No camera was found. Please use a device with a camera."
	case errors.Is(err, ErrCameraBusy):
		return "The camera is in use by another application. Please close it and try again."
	case errors.Is(err, ErrCameraNotStreaming):
		return "The camera is not ready. Please reopen the camera and try again."
	default:
		return "Could not capture a selfie. Please try again."
	}
}

func stopTracks(stream MediaStream) {
	if stream == nil {
		return
	}
	for _, track := range stream.Tracks() {
		track.Stop()
	}
}
