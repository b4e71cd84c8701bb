package usecase

import (
	"context"
	"strings"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
	"taxibot-service/pkg/metrics"
	"taxibot-service/pkg/utils"
	"taxibot-service/templates"
)

// ConversationProcessor drives the booking dialogue. One inbound chat event
// goes in, the conversation state advances, and the outbound replies go out
// through the notifier. All work for a conversation is serialized under its
// keyed lock, shared with the provider callback path.
type ConversationProcessor struct {
	customerRepo repository.CustomerRepository
	convRepo     repository.ConversationRepository
	contextStore repository.ContextStore
	channel      repository.ChannelRepository
	dispatchRepo repository.DispatchRepository
	geocoderRepo repository.GeocoderRepository
	notifier     *Notifier
	classifier   *Classifier
	coordinator  *RideCoordinator
	rates        map[string]entity.VehicleRate
	locks        *KeyedMutex
	logger       logger.Logger
	metrics      *metrics.Metrics

	convTimeout      time.Duration
	locationFallback time.Duration
	callTimeout      time.Duration
}

// NewConversationProcessor wires the booking state machine.
func NewConversationProcessor(
	customerRepo repository.CustomerRepository,
	convRepo repository.ConversationRepository,
	contextStore repository.ContextStore,
	channel repository.ChannelRepository,
	dispatchRepo repository.DispatchRepository,
	geocoderRepo repository.GeocoderRepository,
	notifier *Notifier,
	classifier *Classifier,
	coordinator *RideCoordinator,
	rates map[string]entity.VehicleRate,
	locks *KeyedMutex,
	logger logger.Logger,
	m *metrics.Metrics,
	convTimeout, locationFallback, callTimeout time.Duration,
) *ConversationProcessor {
	return &ConversationProcessor{
		customerRepo:     customerRepo,
		convRepo:         convRepo,
		contextStore:     contextStore,
		channel:          channel,
		dispatchRepo:     dispatchRepo,
		geocoderRepo:     geocoderRepo,
		notifier:         notifier,
		classifier:       classifier,
		coordinator:      coordinator,
		rates:            rates,
		locks:            locks,
		logger:           logger,
		metrics:          m,
		convTimeout:      convTimeout,
		locationFallback: locationFallback,
		callTimeout:      callTimeout,
	}
}

// ProcessInboundEvent handles one webhook event end to end.
func (p *ConversationProcessor) ProcessInboundEvent(ctx context.Context, evt *entity.InboundEvent) error {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.EventsProcessed.Inc()
		defer func() {
			p.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
		}()
	}

	phone := utils.NormalizePhone(evt.From)
	if phone == "" {
		p.logger.Warn("Inbound event without a usable sender, dropped", "messageId", evt.MessageID)
		return nil
	}

	// serialize per customer before a conversation exists, so two first
	// messages cannot both open a session; provider callbacks contend on
	// the conversation lock below and never take this one
	unlockCustomer := p.locks.Lock("customer:" + phone)
	defer unlockCustomer()

	customer, err := p.resolveCustomer(ctx, phone, evt.ProfileName)
	if err != nil {
		return err
	}

	conv, err := p.resolveConversation(ctx, customer, phone)
	if err != nil {
		return err
	}

	unlock := p.locks.Lock(conv.ID)
	defer unlock()

	if evt.MessageID != "" {
		if err := p.channel.MarkRead(ctx, evt.MessageID); err != nil {
			p.logger.Debug("MarkRead failed", "messageId", evt.MessageID, "error", err)
		}
	}

	p.recordInbound(ctx, conv, customer, evt)

	draft, err := p.contextStore.Load(ctx, conv.ID)
	if err != nil {
		p.logger.Warn("Failed to load conversation context, starting fresh", "conversationId", conv.ID, "error", err)
	}
	if draft == nil {
		draft = &entity.Context{Version: entity.ContextVersion}
	}

	intent := &entity.Intent{}
	if evt.Type == entity.MessageTypeText && evt.Text != "" {
		intent = p.classifier.Classify(ctx, evt.Text, draft)
	}

	// cancellation wins over whatever state the dialogue is in
	if (intent.IsCancellation || evt.ButtonID == templates.ButtonCancelRide) && conv.State != entity.StateGreeting {
		return p.handleCancellation(ctx, conv, customer, draft)
	}

	if evt.Type == entity.MessageTypeAudio {
		p.notifier.SendText(ctx, conv.ID, customer.ID, phone, templates.UnsupportedMedia())
		return p.touch(ctx, conv, draft, conv.State)
	}

	var nextState string
	switch conv.State {
	case entity.StateGreeting:
		nextState, err = p.handleGreeting(ctx, conv, customer, draft, evt, intent)
	case entity.StateRequestingLocation:
		nextState, err = p.handleRequestingLocation(ctx, conv, customer, draft, evt)
	case entity.StateAwaitingOrigin:
		nextState, err = p.handleAwaitingOrigin(ctx, conv, customer, draft, evt)
	case entity.StateConfirmingOrigin:
		nextState, err = p.handleConfirmingOrigin(ctx, conv, customer, draft, evt, intent)
	case entity.StateAwaitingDestination:
		nextState, err = p.handleAwaitingDestination(ctx, conv, customer, draft, evt, intent)
	case entity.StateAwaitingCategory:
		nextState, err = p.handleAwaitingCategory(ctx, conv, customer, draft, evt, intent)
	case entity.StateAwaitingConfirmation:
		nextState, err = p.handleAwaitingConfirmation(ctx, conv, customer, draft, evt, intent)
	case entity.StateCreatingRide, entity.StateRideCreated, entity.StateRideInProgress:
		nextState, err = p.handleActiveRide(ctx, conv, customer, draft)
	case entity.StateError:
		nextState, err = p.handleError(ctx, conv, customer, draft, evt, intent)
	default:
		p.logger.Error("Conversation in unknown state, resetting", "conversationId", conv.ID, "state", conv.State)
		nextState, err = p.handleGreeting(ctx, conv, customer, draft, evt, intent)
	}

	if err != nil {
		p.logger.Error("State handler failed", "conversationId", conv.ID, "state", conv.State, "error", err)
		if p.metrics != nil {
			p.metrics.ErrorsCount.WithLabelValues("state_handler").Inc()
		}
		p.notifier.SendText(ctx, conv.ID, customer.ID, phone, templates.Apology())
		// stay where we are; the customer can simply try again
		return p.touch(ctx, conv, draft, conv.State)
	}

	if nextState == "" {
		// handler closed the conversation or delegated to the coordinator
		return nil
	}
	return p.touch(ctx, conv, draft, nextState)
}

// resolveCustomer finds or creates the customer and backfills a missing
// name from the channel profile.
func (p *ConversationProcessor) resolveCustomer(ctx context.Context, phone, profileName string) (*entity.Customer, error) {
	customer, err := p.customerRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		customer = &entity.Customer{Phone: phone, Name: profileName}
		if err := p.customerRepo.Create(ctx, customer); err != nil {
			return nil, err
		}
		p.logger.Info("New customer registered", "phone", phone)
		return customer, nil
	}
	if customer.Name == "" && profileName != "" {
		if err := p.customerRepo.UpdateName(ctx, customer.ID, profileName); err != nil {
			p.logger.Warn("Failed to backfill customer name", "customerId", customer.ID, "error", err)
		} else {
			customer.Name = profileName
		}
	}
	return customer, nil
}

// resolveConversation returns the active conversation, retiring a stale one
// and opening a fresh session when needed.
func (p *ConversationProcessor) resolveConversation(ctx context.Context, customer *entity.Customer, phone string) (*entity.Conversation, error) {
	conv, err := p.convRepo.FindActiveByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if conv != nil && time.Since(conv.LastMessageAt) > p.convTimeout {
		p.logger.Info("Retiring idle conversation", "conversationId", conv.ID)
		if err := p.convRepo.Deactivate(ctx, conv.ID); err != nil {
			return nil, err
		}
		conv = nil
	}
	if conv == nil {
		conv = &entity.Conversation{
			CustomerID:    customer.ID,
			Phone:         phone,
			State:         entity.StateGreeting,
			IsActive:      true,
			LastMessageAt: time.Now(),
		}
		if err := p.convRepo.Create(ctx, conv); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

func (p *ConversationProcessor) recordInbound(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, evt *entity.InboundEvent) {
	content := evt.Text
	if evt.ButtonID != "" {
		content = evt.ButtonID
	}
	msg := &entity.Message{
		ConversationID: conv.ID,
		CustomerID:     customer.ID,
		Direction:      entity.DirectionInbound,
		Type:           evt.Type,
		Content:        content,
		ProviderMsgID:  evt.MessageID,
		CreatedAt:      time.Now(),
	}
	if evt.Type == entity.MessageTypeLocation {
		msg.Metadata = map[string]interface{}{"lat": evt.Latitude, "lon": evt.Longitude}
	}
	if err := p.notifier.messageRepo.Append(ctx, msg); err != nil {
		p.logger.Warn("Failed to record inbound message", "conversationId", conv.ID, "error", err)
	}
}

// touch persists the draft and the state transition.
func (p *ConversationProcessor) touch(ctx context.Context, conv *entity.Conversation, draft *entity.Context, nextState string) error {
	if err := p.contextStore.Save(ctx, conv.ID, draft); err != nil {
		p.logger.Error("Failed to save conversation context", "conversationId", conv.ID, "error", err)
	}
	return p.convRepo.UpdateState(ctx, conv.ID, nextState, time.Now())
}

func (p *ConversationProcessor) handleCancellation(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context) error {
	had, err := p.coordinator.CancelActiveRide(ctx, conv)
	if err != nil {
		return err
	}
	if had {
		return nil
	}
	// no ride yet, just a booking draft being abandoned
	if draft != nil && draft.FlowStarted {
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.CancelConfirmed())
	} else {
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.NothingToCancel())
	}
	if err := p.contextStore.Clear(ctx, conv.ID); err != nil {
		p.logger.Warn("Failed to clear conversation context", "conversationId", conv.ID, "error", err)
	}
	return p.convRepo.Deactivate(ctx, conv.ID)
}

func (p *ConversationProcessor) handleGreeting(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent, intent *entity.Intent) (string, error) {
	draft.FlowStarted = true
	p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.Greeting(customer.Name))

	// "me leva pra X" in the opening message skips a question later
	if intent.HasDestination && len(strings.TrimSpace(intent.DestinationText)) >= minAddressLength {
		draft.Destination = &entity.Place{Address: strings.TrimSpace(intent.DestinationText)}
	}

	if evt.Type == entity.MessageTypeLocation {
		return p.acceptOrigin(ctx, conv, customer, draft, evt)
	}

	p.notifier.SendLocationRequest(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestLocation())
	now := time.Now()
	draft.LocationRequestSentAt = &now
	return entity.StateRequestingLocation, nil
}

func (p *ConversationProcessor) handleRequestingLocation(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent) (string, error) {
	if evt.Type == entity.MessageTypeLocation {
		return p.acceptOrigin(ctx, conv, customer, draft, evt)
	}

	// GPS first; after the wait window the customer may type the address
	if draft.LocationRequestSentAt != nil && time.Since(*draft.LocationRequestSentAt) > p.locationFallback {
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestOriginText())
		return entity.StateAwaitingOrigin, nil
	}
	p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.LocationOnly())
	return entity.StateRequestingLocation, nil
}

func (p *ConversationProcessor) handleAwaitingOrigin(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent) (string, error) {
	if evt.Type == entity.MessageTypeLocation {
		return p.acceptOrigin(ctx, conv, customer, draft, evt)
	}

	address := strings.TrimSpace(evt.Text)
	if len(address) < minAddressLength {
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestOriginText())
		return entity.StateAwaitingOrigin, nil
	}

	draft.Origin = &entity.Place{Address: address}
	p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.ConfirmOrigin(address))
	return entity.StateConfirmingOrigin, nil
}

func (p *ConversationProcessor) handleConfirmingOrigin(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent, intent *entity.Intent) (string, error) {
	if evt.Type == entity.MessageTypeLocation {
		return p.acceptOrigin(ctx, conv, customer, draft, evt)
	}

	if intent.IsConfirmation {
		return p.afterOrigin(ctx, conv, customer, draft)
	}

	// anything address-shaped replaces the candidate
	address := strings.TrimSpace(evt.Text)
	if len(address) >= minAddressLength {
		draft.Origin = &entity.Place{Address: address}
	}
	if draft.Origin == nil {
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestOriginText())
		return entity.StateAwaitingOrigin, nil
	}
	p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.ConfirmOrigin(draft.Origin.Address))
	return entity.StateConfirmingOrigin, nil
}

func (p *ConversationProcessor) handleAwaitingDestination(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent, intent *entity.Intent) (string, error) {
	if evt.Type == entity.MessageTypeLocation {
		address := p.reverseGeocode(ctx, evt.Latitude, evt.Longitude)
		lat, lon := evt.Latitude, evt.Longitude
		draft.Destination = &entity.Place{Address: address, Lat: &lat, Lon: &lon, AutoDetected: true}
		return p.promptCategory(ctx, conv, customer, draft)
	}

	address := strings.TrimSpace(evt.Text)
	if intent.HasDestination && len(strings.TrimSpace(intent.DestinationText)) >= minAddressLength {
		address = strings.TrimSpace(intent.DestinationText)
	}
	if len(address) < minAddressLength {
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.DestinationTooShort())
		return entity.StateAwaitingDestination, nil
	}

	draft.Destination = &entity.Place{Address: address}
	return p.promptCategory(ctx, conv, customer, draft)
}

func (p *ConversationProcessor) handleAwaitingCategory(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent, intent *entity.Intent) (string, error) {
	// the stored state can outlive the Redis draft (TTL, eviction); rebuild
	// from the step the draft still supports instead of dereferencing it
	if draft.Origin == nil || draft.Destination == nil {
		return p.resume(ctx, conv, customer, draft)
	}

	draft.Category = ResolveCategory(evt.ButtonID, intent.Category, evt.Text)
	p.estimateTrip(ctx, draft)

	p.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.Summary(draft), templates.ConfirmationButtons())
	return entity.StateAwaitingConfirmation, nil
}

func (p *ConversationProcessor) handleAwaitingConfirmation(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent, intent *entity.Intent) (string, error) {
	if draft.Origin == nil || draft.Destination == nil {
		return p.resume(ctx, conv, customer, draft)
	}

	switch {
	case evt.ButtonID == templates.ButtonConfirmRide || intent.IsConfirmation:
		if err := p.touch(ctx, conv, draft, entity.StateCreatingRide); err != nil {
			return "", err
		}
		return "", p.coordinator.CreateRide(ctx, conv, customer, draft)

	case evt.ButtonID == templates.ButtonChangeCategory:
		p.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.CategoryPrompt(), templates.CategoryButtons())
		return entity.StateAwaitingCategory, nil

	case evt.ButtonID == templates.ButtonChangeOrigin:
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestOriginText())
		return entity.StateAwaitingOrigin, nil

	case evt.ButtonID == templates.ButtonChangeDestination:
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestDestination())
		return entity.StateAwaitingDestination, nil

	// "na verdade me leva pro aeroporto": typed corrections re-price the
	// draft and come back to this same checkpoint
	case intent.HasDestination && len(strings.TrimSpace(intent.DestinationText)) >= minAddressLength:
		draft.Destination = &entity.Place{Address: strings.TrimSpace(intent.DestinationText)}
		p.estimateTrip(ctx, draft)

	case intent.Category != "" && intent.Category != draft.Category:
		draft.Category = ResolveCategory("", intent.Category, evt.Text)
		p.estimateTrip(ctx, draft)
	}

	// otherwise show the summary again, nothing is mutated
	p.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.Summary(draft), templates.ConfirmationButtons())
	return entity.StateAwaitingConfirmation, nil
}

// handleActiveRide covers messages that arrive while a ride exists: the
// customer gets a status line, never a restarted flow.
func (p *ConversationProcessor) handleActiveRide(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context) (string, error) {
	ride, err := p.coordinator.rideRepo.FindActiveByConversation(ctx, conv.ID)
	if err != nil {
		return "", err
	}
	if ride == nil {
		// the ride vanished mid-flow; resume at the step the draft
		// supports instead of double-greeting the customer
		return p.resume(ctx, conv, customer, draft)
	}

	status := ride.Status
	driver := ride.Driver
	if ride.ProviderRideID != "" {
		// freshen the answer with a best-effort provider poll; the
		// authoritative transition still comes through the callback
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		if st, pollErr := p.dispatchRepo.GetStatus(callCtx, ride.ProviderRideID); pollErr == nil && st != nil {
			if mapped, ok := providerStatusByCode[st.StatusCode]; ok && entity.CanTransitionStatus(status, mapped) {
				status = mapped
			}
			if st.Driver != nil {
				driver = st.Driver
			}
		}
		cancel()
	}

	p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.StatusLine(status, driver))
	return conv.State, nil
}

func (p *ConversationProcessor) handleError(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent, intent *entity.Intent) (string, error) {
	if evt.ButtonID == templates.ButtonRetryRide || intent.IsConfirmation {
		if draft.ReadyForDispatch() {
			if err := p.touch(ctx, conv, draft, entity.StateCreatingRide); err != nil {
				return "", err
			}
			return "", p.coordinator.CreateRide(ctx, conv, customer, draft)
		}
		// draft is no longer complete, rebuild from the category step
		p.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.CategoryPrompt(), templates.CategoryButtons())
		return entity.StateAwaitingCategory, nil
	}

	p.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.CreateFailed(), templates.RetryButtons())
	return entity.StateError, nil
}

// resume re-enters the flow at the furthest step the draft can support.
func (p *ConversationProcessor) resume(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context) (string, error) {
	switch {
	case draft.ReadyForDispatch():
		p.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.Summary(draft), templates.ConfirmationButtons())
		return entity.StateAwaitingConfirmation, nil
	case draft.Origin != nil && draft.Origin.Address != "" && draft.Destination != nil && draft.Destination.Address != "":
		return p.promptCategory(ctx, conv, customer, draft)
	case draft.Origin != nil && draft.Origin.Address != "":
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestDestination())
		return entity.StateAwaitingDestination, nil
	}
	draft.FlowStarted = true
	p.notifier.SendLocationRequest(ctx, conv.ID, customer.ID, conv.Phone, templates.RequestLocation())
	now := time.Now()
	draft.LocationRequestSentAt = &now
	return entity.StateRequestingLocation, nil
}

// acceptOrigin records a shared GPS position as the pickup point and routes
// to the next missing piece of the draft.
func (p *ConversationProcessor) acceptOrigin(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context, evt *entity.InboundEvent) (string, error) {
	address := p.reverseGeocode(ctx, evt.Latitude, evt.Longitude)
	lat, lon := evt.Latitude, evt.Longitude
	draft.Origin = &entity.Place{Address: address, Lat: &lat, Lon: &lon, AutoDetected: true}
	return p.afterOrigin(ctx, conv, customer, draft)
}

func (p *ConversationProcessor) afterOrigin(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context) (string, error) {
	if draft.Destination != nil && draft.Destination.Address != "" {
		p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.OriginConfirmed(draft.Origin.Address))
		return p.promptCategory(ctx, conv, customer, draft)
	}
	p.notifier.SendText(ctx, conv.ID, customer.ID, conv.Phone, templates.OriginSet(draft.Origin.Address))
	return entity.StateAwaitingDestination, nil
}

func (p *ConversationProcessor) promptCategory(ctx context.Context, conv *entity.Conversation, customer *entity.Customer, draft *entity.Context) (string, error) {
	p.notifier.SendButtons(ctx, conv.ID, customer.ID, conv.Phone, templates.CategoryPrompt(), templates.CategoryButtons())
	return entity.StateAwaitingCategory, nil
}

// estimateTrip fills the draft's distance, duration and price. The provider
// quote supplies distance and duration only; its price is discarded and the
// local fare table decides what the customer pays. A quote failure falls
// back to fixed trip assumptions rather than blocking the dialogue.
func (p *ConversationProcessor) estimateTrip(ctx context.Context, draft *entity.Context) {
	distanceKm := FallbackDistanceKm
	durationMin := FallbackDurationMin

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	quote, err := p.dispatchRepo.Quote(callCtx, *draft.Origin, *draft.Destination, draft.Category)
	cancel()
	if err != nil || quote == nil {
		p.logger.Warn("Quote failed, using fallback trip estimate", "error", err)
		if p.metrics != nil {
			p.metrics.ErrorsCount.WithLabelValues("dispatch_quote").Inc()
		}
	} else {
		if quote.DistanceKm > 0 {
			distanceKm = quote.DistanceKm
		}
		if quote.DurationMin > 0 {
			durationMin = quote.DurationMin
		}
	}

	draft.EstimatedDistanceKm = distanceKm
	draft.EstimatedDurationMin = durationMin
	draft.EstimatedPrice = Estimate(p.rates, draft.Category, distanceKm, durationMin)
}

// reverseGeocode resolves coordinates to an address, degrading to a
// coordinate string when the geocoder is down so the flow keeps moving.
func (p *ConversationProcessor) reverseGeocode(ctx context.Context, lat, lon float64) string {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	address, err := p.geocoderRepo.ReverseGeocode(callCtx, lat, lon)
	if err != nil || address == "" {
		p.logger.Warn("Reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return utils.FormatCoordinates(lat, lon)
	}
	return address
}
