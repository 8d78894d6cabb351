// The attendance agent drives the self-attendance capture flow against the
// backend: check the status gate, collect a selfie and a location, submit,
// and keep posting location samples while checked in. It targets kiosk-style
// deployments, so the position comes from fixed configuration and the selfie
// from whatever camera source the build wires in.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"attendance-backend/internal/agent"
	"attendance-backend/internal/client"
	"attendance-backend/internal/config"
	"attendance-backend/internal/geocode"
	logpkg "attendance-backend/internal/logger"
)

// staticPositionProvider a fixed position for kiosks without GPS.
type staticPositionProvider struct {
	pos agent.Position
}

func (p *staticPositionProvider) CurrentPosition(_ context.Context) (agent.Position, error) {
	return p.pos, nil
}

// kioskTrack a stand-in track for the built-in frame source.
type kioskTrack struct {
	live bool
}

func (t *kioskTrack) Stop()      { t.live = false }
func (t *kioskTrack) Live() bool { return t.live }

type kioskStream struct {
	track *kioskTrack
}

func (s *kioskStream) Tracks() []agent.MediaTrack {
	return []agent.MediaTrack{s.track}
}

func (s *kioskStream) Frame() (image.Image, error) {
	// Placeholder frame until a hardware capture source is wired in.
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 96, A: 255})
		}
	}
	return img, nil
}

// kioskDevices the built-in camera source.
type kioskDevices struct{}

func (kioskDevices) OpenStream(_ context.Context, _ agent.StreamConstraints) (agent.MediaStream, error) {
	return &kioskStream{track: &kioskTrack{live: true}}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Agent.EmployeeID == "" {
		fmt.Fprintln(os.Stderr, "AGENT_EMPLOYEE_ID is required")
		os.Exit(1)
	}

	log, err := logpkg.New(cfg.Log.Level, cfg.Log.Format, "attendance-agent")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	command := "status"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	api := client.New(cfg.Agent.ServerBaseURL, cfg.Agent.EmployeeID, 30*time.Second, log)
	geocoder := geocode.NewNominatimClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout, log)

	provider := &staticPositionProvider{pos: agent.Position{
		Latitude:  envFloat("AGENT_LATITUDE", 0),
		Longitude: envFloat("AGENT_LONGITUDE", 0),
		Accuracy:  envFloat("AGENT_ACCURACY", 50),
	}}
	resolver := agent.NewResolver(provider, geocoder, log)

	gate := agent.NewStatusGate(api, cfg.Agent.StatusPollInterval, log)
	camera := agent.NewCameraController(kioskDevices{}, log)
	tracker := agent.NewLocationTracker(resolver, api, cfg.Agent.TrackInterval, log)
	orch := agent.NewOrchestrator(api, gate, resolver, camera, tracker, log)
	// The CLI submits explicitly once both artifacts are held.
	orch.SetAutoSubmitDelay(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := gate.Refresh(ctx); err != nil {
		log.Fatal("Failed to load attendance status", zap.Error(err))
	}

	switch command {
	case "status":
		status, _ := gate.Current()
		fmt.Printf("canCheckIn=%v canCheckOut=%v isCompleted=%v\n",
			status.CanCheckIn, status.CanCheckOut, status.IsCompleted)

	case "checkin", "checkout":
		intent, err := runAttempt(ctx, orch, camera)
		if err != nil {
			log.Error("Capture attempt failed", zap.Error(err), zap.String("guidance", orch.Failure()))
			os.Exit(1)
		}
		record := orch.Record()
		fmt.Printf("%s submitted: record=%s status=%s\n", intent, record.ID, record.Status)

		// After a check-in the tracker keeps posting samples until the
		// process is told to stop.
		if intent == agent.IntentCheckIn {
			log.Info("Tracking location until interrupted")
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan
			tracker.Stop()
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q (want status, checkin or checkout)\n", command)
		os.Exit(1)
	}

	log.Info("Attendance agent done")
}

func runAttempt(ctx context.Context, orch *agent.Orchestrator, camera *agent.CameraController) (agent.Intent, error) {
	intent, err := orch.Begin(agent.AttemptOptions{
		IsRemote: os.Getenv("AGENT_IS_REMOTE") == "true",
		Notes:    os.Getenv("AGENT_NOTES"),
	})
	if err != nil {
		return "", err
	}

	if err := camera.Open(ctx); err != nil {
		return "", err
	}
	defer camera.Close()

	if err := orch.CaptureSelfie(); err != nil {
		return "", err
	}
	if err := orch.ResolveLocation(ctx); err != nil {
		return "", err
	}
	if err := orch.Submit(ctx); err != nil {
		return "", err
	}
	return intent, nil
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return def
	}
	return f
}
