package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/events"
	"taxibot-service/pkg/logger"
	"taxibot-service/pkg/metrics"
	"taxibot-service/templates"
)

// providerStatusByCode maps the dispatch provider's numeric callback codes
// to local ride statuses. Unknown codes are logged and ignored.
var providerStatusByCode = map[int]string{
	1:  entity.RideStatusDistributing,
	2:  entity.RideStatusAwaitingAccept,
	3:  entity.RideStatusPending,
	4:  entity.RideStatusNoDriver,
	5:  entity.RideStatusAccepted,
	6:  entity.RideStatusDriverArriving,
	7:  entity.RideStatusDriverArrived,
	8:  entity.RideStatusInProgress,
	9:  entity.RideStatusCompleted,
	10: entity.RideStatusCancelled,
	11: entity.RideStatusAwaitingPayment,
	12: entity.RideStatusFailed,
}

// ProviderCallback is the parsed asynchronous status push from the
// dispatch provider.
type ProviderCallback struct {
	ProviderRideID string
	StatusCode     int
	Driver         *entity.Driver
	EtaMin         int
}

// RideCoordinator owns every ride status mutation: the create path, the
// provider callback path and the cancellation path.
type RideCoordinator struct {
	rideRepo     repository.RideRepository
	eventRepo    repository.RideEventRepository
	convRepo     repository.ConversationRepository
	contextStore repository.ContextStore
	dispatchRepo repository.DispatchRepository
	notifier     *Notifier
	publisher    events.Publisher
	locks        *KeyedMutex
	logger       logger.Logger
	metrics      *metrics.Metrics
	callTimeout  time.Duration
}

// NewRideCoordinator creates a new ride lifecycle coordinator. The event
// publisher may be nil; publishing is best-effort either way.
func NewRideCoordinator(
	rideRepo repository.RideRepository,
	eventRepo repository.RideEventRepository,
	convRepo repository.ConversationRepository,
	contextStore repository.ContextStore,
	dispatchRepo repository.DispatchRepository,
	notifier *Notifier,
	publisher events.Publisher,
	locks *KeyedMutex,
	logger logger.Logger,
	m *metrics.Metrics,
	callTimeout time.Duration,
) *RideCoordinator {
	return &RideCoordinator{
		rideRepo:     rideRepo,
		eventRepo:    eventRepo,
		convRepo:     convRepo,
		contextStore: contextStore,
		dispatchRepo: dispatchRepo,
		notifier:     notifier,
		publisher:    publisher,
		locks:        locks,
		logger:       logger,
		metrics:      m,
		callTimeout:  callTimeout,
	}
}

// CreateRide executes the dispatch side effect after the customer's
// explicit confirmation. Must be called while holding the conversation
// lock. A ride row is persisted for every attempt, success or not, so each
// attempt is auditable.
func (rc *RideCoordinator) CreateRide(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context) error {
	if !draft.ReadyForDispatch() {
		// hard precondition: never call the provider with incomplete data
		rc.logger.Warn("Ride creation blocked by incomplete draft", "conversationId", conv.ID)
		if draft.Origin == nil || draft.Destination == nil || draft.Origin.Address == "" || draft.Destination.Address == "" {
			rc.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.Apology())
			return rc.convRepo.UpdateState(ctx, conv.ID, entity.StateGreeting, time.Now())
		}
		rc.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.CategoryPrompt(), templates.CategoryButtons())
		return rc.convRepo.UpdateState(ctx, conv.ID, entity.StateAwaitingCategory, time.Now())
	}

	if rc.metrics != nil {
		rc.metrics.RidesCreated.Inc()
	}

	ride := &entity.Ride{
		ID:                   uuid.NewString(),
		ConversationID:       conv.ID,
		CustomerID:           customer.ID,
		Phone:                conv.Phone,
		Origin:               *draft.Origin,
		Destination:          *draft.Destination,
		Category:             draft.Category,
		PaymentMethod:        "CASH",
		EstimatedPrice:       draft.EstimatedPrice,
		EstimatedDistanceKm:  draft.EstimatedDistanceKm,
		EstimatedDurationMin: draft.EstimatedDurationMin,
	}

	callCtx, cancel := context.WithTimeout(ctx, rc.callTimeout)
	providerRideID, createErr := rc.dispatchRepo.CreateRide(callCtx, &repository.CreateRideRequest{
		Origin:         *draft.Origin,
		Destination:    *draft.Destination,
		PassengerName:  customer.Name,
		PassengerPhone: conv.Phone,
		Category:       draft.Category,
		PaymentMethod:  ride.PaymentMethod,
	})
	cancel()

	if createErr != nil {
		ride.Status = entity.RideStatusFailed
	} else {
		ride.Status = entity.RideStatusDistributing
		ride.ProviderRideID = providerRideID
	}

	if err := rc.rideRepo.Create(ctx, ride); err != nil {
		rc.logger.Error("Failed to persist ride", "conversationId", conv.ID, "error", err)
		if rc.metrics != nil {
			rc.metrics.ErrorsCount.WithLabelValues("ride_create").Inc()
		}
		rc.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.CreateFailed(), templates.RetryButtons())
		return rc.convRepo.UpdateState(ctx, conv.ID, entity.StateError, time.Now())
	}

	if createErr != nil {
		rc.logger.Error("Dispatch provider rejected ride creation", "rideId", ride.ID, "error", createErr)
		if rc.metrics != nil {
			rc.metrics.ErrorsCount.WithLabelValues("dispatch_create").Inc()
		}
		rc.appendEvent(ctx, ride.ID, entity.EventError, "Falha ao criar corrida no provedor", createErr.Error(), nil)
		rc.publish(ctx, events.TypeRideFailed, ride)
		rc.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.CreateFailed(), templates.RetryButtons())
		return rc.convRepo.UpdateState(ctx, conv.ID, entity.StateError, time.Now())
	}

	rc.appendEvent(ctx, ride.ID, entity.EventInfo, "Corrida criada", "", map[string]interface{}{
		"providerRideId": providerRideID,
		"category":       ride.Category,
		"estimatedPrice": ride.EstimatedPrice,
	})
	rc.publish(ctx, events.TypeRideCreated, ride)

	rc.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.RideCreated(ride.ShortCode()))
	return rc.convRepo.UpdateState(ctx, conv.ID, entity.StateRideCreated, time.Now())
}

// HandleProviderCallback advances a ride from an asynchronous provider
// status push. A callback for an unknown ride is logged and dropped; it
// must never crash or message the wrong customer.
func (rc *RideCoordinator) HandleProviderCallback(ctx context.Context, cb *ProviderCallback) error {
	if rc.metrics != nil {
		rc.metrics.CallbacksHandled.Inc()
	}

	ride, err := rc.rideRepo.FindByProviderRideID(ctx, cb.ProviderRideID)
	if err != nil {
		return err
	}
	if ride == nil {
		rc.logger.Warn("Callback for unknown ride dropped", "providerRideId", cb.ProviderRideID, "statusCode", cb.StatusCode)
		return nil
	}

	// callbacks share the serialization domain of the conversation
	unlock := rc.locks.Lock(ride.ConversationID)
	defer unlock()

	// re-read under the lock: a racing callback may have advanced the ride
	ride, err = rc.rideRepo.FindByProviderRideID(ctx, cb.ProviderRideID)
	if err != nil || ride == nil {
		return err
	}

	localStatus, known := providerStatusByCode[cb.StatusCode]
	if !known {
		rc.logger.Warn("Unknown provider status code", "rideId", ride.ID, "statusCode", cb.StatusCode)
		rc.appendEvent(ctx, ride.ID, entity.EventWarning, "Código de status desconhecido", "", map[string]interface{}{"statusCode": cb.StatusCode})
		return nil
	}

	now := time.Now()
	if cb.Driver != nil {
		ride.Driver = cb.Driver
	}

	// lifecycle timestamps are set exactly once, on the first matching push
	switch localStatus {
	case entity.RideStatusAccepted:
		if ride.AcceptedAt == nil {
			ride.AcceptedAt = &now
		}
	case entity.RideStatusInProgress:
		if ride.StartedAt == nil {
			ride.StartedAt = &now
		}
	case entity.RideStatusCompleted:
		if ride.CompletedAt == nil {
			ride.CompletedAt = &now
		}
	case entity.RideStatusCancelled:
		if ride.CancelledAt == nil {
			ride.CancelledAt = &now
		}
	}

	changed := false
	if ride.Status != localStatus && entity.CanTransitionStatus(ride.Status, localStatus) {
		ride.Status = localStatus
		changed = true
	}

	if err := rc.rideRepo.Update(ctx, ride); err != nil {
		return err
	}
	rc.appendEvent(ctx, ride.ID, entity.EventInfo, "Status do provedor recebido", "", map[string]interface{}{
		"statusCode": cb.StatusCode,
		"status":     localStatus,
		"applied":    changed,
	})
	rc.publish(ctx, events.TypeRideUpdated, ride)

	if !changed {
		return nil
	}

	// status-specific notification policy; everything else updates silently
	switch localStatus {
	case entity.RideStatusAccepted:
		rc.notifier.SendText(ctx, ride.ConversationID, ride.CustomerID, ride.Phone, templates.DriverAssigned(ride.Driver, cb.EtaMin))
		return rc.convRepo.UpdateState(ctx, ride.ConversationID, entity.StateRideInProgress, now)
	case entity.RideStatusNoDriver:
		rc.notifier.SendButtons(ctx, ride.ConversationID, ride.CustomerID, ride.Phone, templates.NoDriver(), templates.RetryButtons())
		return rc.convRepo.UpdateState(ctx, ride.ConversationID, entity.StateError, now)
	case entity.RideStatusCompleted:
		rc.notifier.SendText(ctx, ride.ConversationID, ride.CustomerID, ride.Phone, templates.RideCompleted(ride.EstimatedPrice))
		return rc.closeConversation(ctx, ride.ConversationID)
	case entity.RideStatusCancelled:
		rc.notifier.SendText(ctx, ride.ConversationID, ride.CustomerID, ride.Phone, templates.RideCancelled())
		return rc.closeConversation(ctx, ride.ConversationID)
	}
	return nil
}

// CancelActiveRide honors the customer's cancellation. The provider call is
// best-effort: local cancellation proceeds even when the provider is
// unreachable. Must be called while holding the conversation lock. Returns
// whether an active ride existed.
func (rc *RideCoordinator) CancelActiveRide(ctx context.Context, conv *entity.Conversation) (bool, error) {
	ride, err := rc.rideRepo.FindActiveByConversation(ctx, conv.ID)
	if err != nil {
		return false, err
	}
	if ride == nil {
		return false, nil
	}

	if ride.ProviderRideID != "" {
		callCtx, cancel := context.WithTimeout(ctx, rc.callTimeout)
		if err := rc.dispatchRepo.CancelRide(callCtx, ride.ProviderRideID, "customer request"); err != nil {
			rc.logger.Warn("Provider cancel failed, cancelling locally anyway", "rideId", ride.ID, "error", err)
			if rc.metrics != nil {
				rc.metrics.ErrorsCount.WithLabelValues("dispatch_cancel").Inc()
			}
		}
		cancel()
	}

	now := time.Now()
	ride.Status = entity.RideStatusCancelled
	if ride.CancelledAt == nil {
		ride.CancelledAt = &now
	}
	if err := rc.rideRepo.Update(ctx, ride); err != nil {
		return true, err
	}
	rc.appendEvent(ctx, ride.ID, entity.EventInfo, "Corrida cancelada pelo cliente", "", nil)
	rc.publish(ctx, events.TypeRideCancelled, ride)

	rc.notifier.SendText(ctx, conv.ID, ride.CustomerID, conv.Phone, templates.CancelConfirmed())
	return true, rc.closeConversation(ctx, conv.ID)
}

func (rc *RideCoordinator) closeConversation(ctx context.Context, conversationID string) error {
	if err := rc.contextStore.Clear(ctx, conversationID); err != nil {
		rc.logger.Warn("Failed to clear conversation context", "conversationId", conversationID, "error", err)
	}
	return rc.convRepo.Deactivate(ctx, conversationID)
}

func (rc *RideCoordinator) appendEvent(ctx context.Context, rideID, severity, title, description string, metadata map[string]interface{}) {
	err := rc.eventRepo.Append(ctx, &entity.RideEvent{
		RideID:      rideID,
		Severity:    severity,
		Title:       title,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		rc.logger.Error("Failed to append ride event", "rideId", rideID, "error", err)
	}
}

func (rc *RideCoordinator) publish(ctx context.Context, eventType string, ride *entity.Ride) {
	if rc.publisher == nil {
		return
	}
	env := events.Envelope{
		Meta: events.Meta{
			Source:        "taxibot-service",
			Type:          eventType,
			CorrelationID: ride.ID,
		},
		Data: ride,
	}
	if err := rc.publisher.Publish(ctx, eventType, env); err != nil {
		rc.logger.Warn("Failed to publish ride event", "rideId", ride.ID, "type", eventType, "error", err)
	}
}
