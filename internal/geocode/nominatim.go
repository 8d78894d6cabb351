package geocode

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// nominatimResponse the subset of the Nominatim reverse answer we read.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// NominatimClient reverse-geocoding client for the public Nominatim service.
// The service is rate-limited and best-effort only; callers must treat a
// failed lookup as degradation, not as an error of the whole operation.
type NominatimClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewNominatimClient creates a reverse-geocoding client. userAgent must be
// descriptive per the Nominatim usage policy.
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *NominatimClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &NominatimClient{
		httpClient: client,
		logger:     logger,
	}
}

// Reverse resolves coordinates into a human-readable address.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	var response nominatimResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":         "json",
			"lat":            strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":            strconv.FormatFloat(lon, 'f', -1, 64),
			"zoom":           "18",
			"addressdetails": "1",
		}).
		SetResult(&response).
		Get("/reverse")
	if err != nil {
		return "", fmt.Errorf("failed to call reverse geocoding: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("reverse geocoding returned status %d", resp.StatusCode())
	}
	if response.Error != "" {
		return "", fmt.Errorf("reverse geocoding error: %s", response.Error)
	}
	if response.DisplayName == "" {
		return "", fmt.Errorf("reverse geocoding returned no address")
	}

	c.logger.Debug("Reverse geocoded position",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
	)

	return response.DisplayName, nil
}

// FormatCoordinates is the fallback address when reverse geocoding fails:
// coordinates fixed to 6 decimals.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lon)
}
