package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router thin wrapper over the standard library mux; route registration per
// handler group keeps main small.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAttendanceRoutes self-attendance endpoints.
func (r *Router) RegisterAttendanceRoutes(h *AttendanceHandler) {
	r.Handle("/attendance/self-checkin", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SelfCheckIn(w, req)
	})

	r.Handle("/attendance/self-checkout", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SelfCheckOut(w, req)
	})

	r.Handle("/attendance/status", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Status(w, req)
	})

	r.Handle("/attendance/records", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Records(w, req)
	})
}

// RegisterTrackingRoutes continuous location tracking endpoints.
func (r *Router) RegisterTrackingRoutes(h *TrackingHandler) {
	r.Handle("/location-tracking/track", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Track(w, req)
	})

	r.Handle("/location-tracking/stop/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := pathSuffix(req.URL.Path, "/location-tracking/stop/")
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Stop(w, req, id)
	})

	r.Handle("/location-tracking/samples/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := pathSuffix(req.URL.Path, "/location-tracking/samples/")
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Samples(w, req, id)
	})
}

// RegisterHealthRoutes liveness probe.
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "up"}))
	})
}
