package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
)

// HTTPGeocoderRepository resolves coordinates against a Nominatim-shaped
// reverse geocoding endpoint.
type HTTPGeocoderRepository struct {
	logger  logger.Logger
	baseURL string
	client  *http.Client
}

// NewHTTPGeocoderRepository creates a new reverse geocoder adapter
func NewHTTPGeocoderRepository(logger logger.Logger, baseURL string) repository.GeocoderRepository {
	return &HTTPGeocoderRepository{
		logger:  logger,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ReverseGeocode returns a human-readable address for the coordinates.
// Callers are expected to substitute a fallback string on error.
func (r *HTTPGeocoderRepository) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	url := fmt.Sprintf("%s/reverse?lat=%f&lon=%f&format=jsonv2", r.baseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "taxibot-service")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var response struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.DisplayName == "" {
		return "", fmt.Errorf("geocoder returned empty address")
	}

	return response.DisplayName, nil
}
