package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
)

// DispatchRepository talks to the external taxi-matching network. Auth is
// OAuth2 client credentials; the token source refreshes transparently.
type DispatchRepository struct {
	logger  logger.Logger
	baseURL string
	client  *http.Client
}

// NewDispatchRepository creates a new dispatch provider adapter
func NewDispatchRepository(logger logger.Logger, baseURL, tokenURL, clientID, clientSecret string) repository.DispatchRepository {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	client := cfg.Client(context.Background())
	client.Timeout = 30 * time.Second

	return &DispatchRepository{
		logger:  logger,
		baseURL: baseURL,
		client:  client,
	}
}

type dispatchPlace struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

type dispatchEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Quote requests a distance/duration estimate for a candidate trip. The
// provider price comes along but billing never uses it.
func (r *DispatchRepository) Quote(ctx context.Context, origin, destination entity.Place, category string) (*repository.Quote, error) {
	body := map[string]interface{}{
		"origin":      toDispatchPlace(origin),
		"destination": toDispatchPlace(destination),
		"category":    category,
	}

	var data struct {
		DistanceKm  float64 `json:"distanceKm"`
		DurationMin float64 `json:"durationMin"`
		Price       float64 `json:"price"`
	}
	if err := r.post(ctx, "/v1/quotes", body, &data); err != nil {
		return nil, err
	}

	return &repository.Quote{
		DistanceKm:    data.DistanceKm,
		DurationMin:   data.DurationMin,
		ProviderPrice: data.Price,
	}, nil
}

// CreateRide submits the booking and returns the provider ride id
func (r *DispatchRepository) CreateRide(ctx context.Context, req *repository.CreateRideRequest) (string, error) {
	body := map[string]interface{}{
		"origin":      toDispatchPlace(req.Origin),
		"destination": toDispatchPlace(req.Destination),
		"passenger": map[string]string{
			"name":  req.PassengerName,
			"phone": req.PassengerPhone,
		},
		"category":      req.Category,
		"paymentMethod": req.PaymentMethod,
	}

	var data struct {
		RideID string `json:"rideId"`
	}
	if err := r.post(ctx, "/v1/rides", body, &data); err != nil {
		return "", err
	}
	if data.RideID == "" {
		return "", fmt.Errorf("dispatch provider returned empty ride id")
	}

	r.logger.Info("Ride created at dispatch provider", "providerRideId", data.RideID)
	return data.RideID, nil
}

// CancelRide asks the provider to cancel a dispatched ride
func (r *DispatchRepository) CancelRide(ctx context.Context, providerRideID, reason string) error {
	body := map[string]string{"reason": reason}
	return r.post(ctx, fmt.Sprintf("/v1/rides/%s/cancel", providerRideID), body, nil)
}

// GetStatus polls the provider's view of a ride
func (r *DispatchRepository) GetStatus(ctx context.Context, providerRideID string) (*repository.ProviderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", r.baseURL+"/v1/rides/"+providerRideID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var envelope dispatchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !envelope.Success {
		return nil, fmt.Errorf("dispatch provider returned status %d: %s (code: %s)",
			resp.StatusCode, envelope.Error.Message, envelope.Error.Code)
	}

	var data struct {
		StatusCode int            `json:"statusCode"`
		Driver     *entity.Driver `json:"driver,omitempty"`
		EtaMin     int            `json:"etaMin,omitempty"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode status data: %w", err)
	}

	return &repository.ProviderStatus{
		StatusCode: data.StatusCode,
		Driver:     data.Driver,
		EtaMin:     data.EtaMin,
	}, nil
}

func (r *DispatchRepository) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var envelope dispatchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if (resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated) || !envelope.Success {
		return fmt.Errorf("dispatch provider returned status %d: %s (code: %s)",
			resp.StatusCode, envelope.Error.Message, envelope.Error.Code)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return nil
}

func toDispatchPlace(p entity.Place) dispatchPlace {
	return dispatchPlace{Address: p.Address, Lat: p.Lat, Lon: p.Lon}
}
