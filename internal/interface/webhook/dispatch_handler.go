package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/usecase"
	"taxibot-service/pkg/logger"
)

// DispatchHandler receives asynchronous status pushes from the dispatch
// provider. Unlike the chat webhook, the callback is processed before the
// ack: the provider retries on non-2xx, which is exactly what a transient
// storage failure needs.
type DispatchHandler struct {
	coordinator *usecase.RideCoordinator
	timeout     time.Duration
	logger      logger.Logger
}

// NewDispatchHandler creates the provider callback handler.
func NewDispatchHandler(coordinator *usecase.RideCoordinator, timeout time.Duration, logger logger.Logger) *DispatchHandler {
	return &DispatchHandler{
		coordinator: coordinator,
		timeout:     timeout,
		logger:      logger,
	}
}

type dispatchCallbackPayload struct {
	RideID     string         `json:"rideId"`
	StatusCode int            `json:"statusCode"`
	Driver     *entity.Driver `json:"driver,omitempty"`
	EtaMin     int            `json:"etaMin,omitempty"`
}

func (h *DispatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload dispatchCallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("Unparseable dispatch callback", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if payload.RideID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := contextWithTimeout(h.timeout)
	defer cancel()

	err := h.coordinator.HandleProviderCallback(ctx, &usecase.ProviderCallback{
		ProviderRideID: payload.RideID,
		StatusCode:     payload.StatusCode,
		Driver:         payload.Driver,
		EtaMin:         payload.EtaMin,
	})
	if err != nil {
		h.logger.Error("Failed to handle dispatch callback", "providerRideId", payload.RideID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// contextWithTimeout detaches processing from the incoming request so a
// closed client connection cannot abort mid-flight side effects.
func contextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
