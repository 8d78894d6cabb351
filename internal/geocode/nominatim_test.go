package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"attendance-backend/internal/geocode"
)

func TestReverse_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "18", r.URL.Query().Get("zoom"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"1 Main St, Springfield"}`))
	}))
	defer srv.Close()

	c := geocode.NewNominatimClient(srv.URL, "attendance-backend-test", 5*time.Second, zap.NewNop())

	addr, err := c.Reverse(context.Background(), 1.3521, 103.8198)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St, Springfield", addr)
}

func TestReverse_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	c := geocode.NewNominatimClient(srv.URL, "attendance-backend-test", 5*time.Second, zap.NewNop())

	_, err := c.Reverse(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to geocode")
}

func TestReverse_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := geocode.NewNominatimClient(srv.URL, "attendance-backend-test", 5*time.Second, zap.NewNop())

	_, err := c.Reverse(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFormatCoordinates(t *testing.T) {
	assert.Equal(t, "1.352100, 103.819800", geocode.FormatCoordinates(1.3521, 103.8198))
	assert.Equal(t, "-0.000001, 0.000000", geocode.FormatCoordinates(-0.000001, 0))
}
