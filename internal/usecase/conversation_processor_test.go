package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
)

type processorFixture struct {
	processor *ConversationProcessor
	customers *fakeCustomerRepo
	convs     *fakeConvRepo
	store     *fakeContextStore
	messages  *fakeMessageRepo
	rides     *fakeRideRepo
	dispatch  *fakeDispatch
	geocoder  *fakeGeocoder
	channel   *fakeChannel
	intent    *fakeIntentRepo
}

func newProcessorFixture() *processorFixture {
	customers := newFakeCustomerRepo()
	convs := newFakeConvRepo()
	store := newFakeContextStore()
	messages := &fakeMessageRepo{}
	rides := newFakeRideRepo()
	dispatch := &fakeDispatch{quote: &repository.Quote{DistanceKm: 3.2, DurationMin: 9}}
	geocoder := &fakeGeocoder{address: "Rua das Flores, 100 - Centro"}
	channel := &fakeChannel{}
	intent := &fakeIntentRepo{err: errors.New("remote off")} // keyword fallback path
	log := noopLogger{}
	locks := NewKeyedMutex()

	notifier := NewNotifier(channel, messages, log)
	classifier := NewClassifier(intent, time.Second, log, nil)
	coordinator := NewRideCoordinator(
		rides, &fakeRideEventRepo{}, convs, store, dispatch, notifier,
		nil, locks, log, nil, time.Second,
	)

	return &processorFixture{
		processor: NewConversationProcessor(
			customers, convs, store, channel, dispatch, geocoder,
			notifier, classifier, coordinator, DefaultRates(), locks, log, nil,
			30*time.Minute, 30*time.Second, time.Second,
		),
		customers: customers,
		convs:     convs,
		store:     store,
		messages:  messages,
		rides:     rides,
		dispatch:  dispatch,
		geocoder:  geocoder,
		channel:   channel,
		intent:    intent,
	}
}

func (f *processorFixture) activeConversation(state string, draft *entity.Context) *entity.Conversation {
	customer := &entity.Customer{Phone: "5511999990000", Name: "Ana"}
	f.customers.Create(context.Background(), customer)
	conv := &entity.Conversation{
		CustomerID:    customer.ID,
		Phone:         customer.Phone,
		State:         state,
		IsActive:      true,
		LastMessageAt: time.Now(),
	}
	f.convs.Create(context.Background(), conv)
	if draft != nil {
		f.store.Save(context.Background(), conv.ID, draft)
	}
	return conv
}

func textEvent(body string) *entity.InboundEvent {
	return &entity.InboundEvent{
		From:      "5511999990000",
		MessageID: "wamid-in-1",
		Type:      entity.MessageTypeText,
		Text:      body,
		Timestamp: time.Now(),
	}
}

func buttonEvent(id, title string) *entity.InboundEvent {
	return &entity.InboundEvent{
		From:      "5511999990000",
		MessageID: "wamid-in-1",
		Type:      entity.MessageTypeInteractive,
		ButtonID:  id,
		Text:      title,
		Timestamp: time.Now(),
	}
}

func locationEvent(lat, lon float64) *entity.InboundEvent {
	return &entity.InboundEvent{
		From:      "5511999990000",
		MessageID: "wamid-in-1",
		Type:      entity.MessageTypeLocation,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.Now(),
	}
}

func TestFirstMessageOpensConversation(t *testing.T) {
	f := newProcessorFixture()

	evt := textEvent("oi")
	evt.ProfileName = "Ana"
	if err := f.processor.ProcessInboundEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	customer := f.customers.byPhone["5511999990000"]
	if customer == nil || customer.Name != "Ana" {
		t.Fatal("customer must be created with the profile name")
	}
	conv, _ := f.convs.FindActiveByCustomer(context.Background(), customer.ID)
	if conv == nil || conv.State != entity.StateRequestingLocation {
		t.Fatalf("expected REQUESTING_LOCATION, got %+v", conv)
	}
	if !f.channel.sentContaining("Ana") {
		t.Fatal("greeting must address the customer by name")
	}
	if len(f.channel.locRequests) != 1 {
		t.Fatal("expected a location request")
	}
	draft := f.store.drafts[conv.ID]
	if draft == nil || !draft.FlowStarted || draft.LocationRequestSentAt == nil {
		t.Fatal("draft must record the flow start and location request time")
	}
	if len(f.messages.messages) == 0 || f.messages.messages[0].Direction != entity.DirectionInbound {
		t.Fatal("inbound turn must be recorded")
	}
}

func TestLocationShareSetsOriginAndAsksDestination(t *testing.T) {
	f := newProcessorFixture()
	sent := time.Now()
	conv := f.activeConversation(entity.StateRequestingLocation, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true, LocationRequestSentAt: &sent,
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), locationEvent(-23.55, -46.63)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.convs.byID[conv.ID].State != entity.StateAwaitingDestination {
		t.Fatalf("expected AWAITING_DESTINATION, got %s", f.convs.byID[conv.ID].State)
	}
	draft := f.store.drafts[conv.ID]
	if draft.Origin == nil || draft.Origin.Address != "Rua das Flores, 100 - Centro" {
		t.Fatal("origin must come from the reverse geocoder")
	}
	if !draft.Origin.AutoDetected || draft.Origin.Lat == nil {
		t.Fatal("GPS origin must keep coordinates and the auto-detected mark")
	}
}

func TestTypedTextBeforeFallbackWindowReprompts(t *testing.T) {
	f := newProcessorFixture()
	sent := time.Now()
	conv := f.activeConversation(entity.StateRequestingLocation, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true, LocationRequestSentAt: &sent,
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("estou na rua x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].State != entity.StateRequestingLocation {
		t.Fatal("GPS-first policy must hold inside the wait window")
	}
	if !f.channel.sentContaining("compartilhar") {
		t.Fatal("expected the location-only re-prompt")
	}
}

func TestTypedOriginAfterFallbackWindow(t *testing.T) {
	f := newProcessorFixture()
	sent := time.Now().Add(-time.Minute)
	conv := f.activeConversation(entity.StateRequestingLocation, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true, LocationRequestSentAt: &sent,
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("nao consigo compartilhar")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingOrigin {
		t.Fatal("after the wait window typed origin entry must open")
	}
}

func TestTypedOriginNeedsConfirmation(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingOrigin, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true,
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("Rua Augusta, 500")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].State != entity.StateConfirmingOrigin {
		t.Fatal("typed origin must be confirmed before use")
	}
	if !f.channel.sentContaining("Rua Augusta, 500") {
		t.Fatal("confirmation prompt must echo the address")
	}

	// "sim" confirms via the keyword fallback
	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("sim")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingDestination {
		t.Fatalf("expected AWAITING_DESTINATION, got %s", f.convs.byID[conv.ID].State)
	}
}

func TestShortDestinationRejected(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingDestination, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true,
		Origin: &entity.Place{Address: "Rua das Flores, 100"},
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("ali")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingDestination {
		t.Fatal("a too-short destination must not advance the flow")
	}
	if draft := f.store.drafts[conv.ID]; draft.Destination != nil {
		t.Fatal("the short text must not be stored as a destination")
	}
}

func TestCategorySelectionQuotesAndSummarizes(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingCategory, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true,
		Origin:      &entity.Place{Address: "Rua das Flores, 100"},
		Destination: &entity.Place{Address: "Av. Paulista, 1500"},
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), buttonEvent(entity.CategoryCarroPequeno, "Carro Pequeno")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	draft := f.store.drafts[conv.ID]
	if draft.Category != entity.CategoryCarroPequeno {
		t.Fatalf("expected CARRO_PEQUENO, got %s", draft.Category)
	}
	if draft.EstimatedPrice != 14.55 {
		t.Fatalf("expected the fare table price 14.55, got %.2f", draft.EstimatedPrice)
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingConfirmation {
		t.Fatal("expected AWAITING_CONFIRMATION")
	}
	if !f.channel.sentContaining("14.55") {
		t.Fatal("summary must show the estimated price")
	}
}

func TestQuoteFailureFallsBackToFixedEstimate(t *testing.T) {
	f := newProcessorFixture()
	f.dispatch.quoteErr = errors.New("provider down")
	conv := f.activeConversation(entity.StateAwaitingCategory, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true,
		Origin:      &entity.Place{Address: "Rua das Flores, 100"},
		Destination: &entity.Place{Address: "Av. Paulista, 1500"},
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), buttonEvent(entity.CategoryCarroPequeno, "Carro Pequeno")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	draft := f.store.drafts[conv.ID]
	if draft.EstimatedDistanceKm != FallbackDistanceKm || draft.EstimatedDurationMin != FallbackDurationMin {
		t.Fatal("quote failure must fall back to the fixed trip assumptions")
	}
	if draft.EstimatedPrice <= 0 {
		t.Fatal("a price must still be produced")
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingConfirmation {
		t.Fatal("the dialogue must keep moving")
	}
}

func TestUnclearReplyNeverDispatches(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingConfirmation, readyDraft())

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("hmm que horas sao")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.dispatch.createCalls != 0 {
		t.Fatal("dispatch requires an explicit confirmation")
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingConfirmation {
		t.Fatal("an unclear reply re-displays the summary without moving")
	}
	if len(f.channel.buttons) == 0 {
		t.Fatal("the summary must be shown again")
	}
}

func TestConfirmButtonCreatesRide(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingConfirmation, readyDraft())

	if err := f.processor.ProcessInboundEvent(context.Background(), buttonEvent("confirm_ride", "Confirmar ✅")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.dispatch.createCalls != 1 {
		t.Fatalf("expected 1 dispatch call, got %d", f.dispatch.createCalls)
	}
	if f.convs.byID[conv.ID].State != entity.StateRideCreated {
		t.Fatalf("expected RIDE_CREATED, got %s", f.convs.byID[conv.ID].State)
	}
	if len(f.rides.byID) != 1 {
		t.Fatal("exactly one ride must exist")
	}
}

func TestGlobalCancelMidFlow(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingDestination, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true,
		Origin: &entity.Place{Address: "Rua das Flores, 100"},
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("quero cancelar tudo")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].IsActive {
		t.Fatal("cancellation must close the conversation from any state")
	}
	if _, ok := f.store.drafts[conv.ID]; ok {
		t.Fatal("the draft must be discarded")
	}
	if !f.channel.sentContaining("cancelada") {
		t.Fatal("expected the cancellation acknowledgement")
	}
}

func TestCancelButtonCancelsActiveRide(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateRideCreated, readyDraft())
	f.rides.Create(context.Background(), &entity.Ride{
		ID: "ride-1", ConversationID: conv.ID, CustomerID: conv.CustomerID,
		Phone: conv.Phone, Status: entity.RideStatusDistributing, ProviderRideID: "prov-1",
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), buttonEvent("cancel_ride", "Cancelar ❌")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.dispatch.cancelCalls != 1 {
		t.Fatal("the provider cancel must be attempted")
	}
	if f.rides.byID["ride-1"].Status != entity.RideStatusCancelled {
		t.Fatal("the ride must be cancelled locally")
	}
	if f.convs.byID[conv.ID].IsActive {
		t.Fatal("conversation must be closed")
	}
}

func TestStaleConversationRestarts(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingDestination, nil)
	f.convs.UpdateState(context.Background(), conv.ID, conv.State, time.Now().Add(-2*time.Hour))

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("oi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.convs.byID[conv.ID].IsActive {
		t.Fatal("the stale conversation must be retired")
	}
	customer := f.customers.byPhone["5511999990000"]
	fresh, _ := f.convs.FindActiveByCustomer(context.Background(), customer.ID)
	if fresh == nil || fresh.ID == conv.ID {
		t.Fatal("a fresh conversation must be opened")
	}
	if fresh.State != entity.StateRequestingLocation {
		t.Fatalf("the fresh session starts from the greeting, got %s", fresh.State)
	}
}

func TestMessageDuringRideGetsStatusNotRestart(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateRideCreated, readyDraft())
	f.rides.Create(context.Background(), &entity.Ride{
		ID: "ride-1", ConversationID: conv.ID, CustomerID: conv.CustomerID,
		Phone: conv.Phone, Status: entity.RideStatusDistributing, ProviderRideID: "prov-1",
	})
	f.dispatch.status = &repository.ProviderStatus{
		StatusCode: 6,
		Driver:     &entity.Driver{Name: "Carlos"},
	}

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("cadê o motorista")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.dispatch.statusCalls != 1 {
		t.Fatal("the provider must be polled for freshness")
	}
	if f.dispatch.createCalls != 0 {
		t.Fatal("a message during a ride must never create another ride")
	}
	if !f.channel.sentContaining("Carlos") {
		t.Fatal("the status answer should use the polled driver")
	}
	if f.convs.byID[conv.ID].State != entity.StateRideCreated {
		t.Fatal("the conversation state is owned by callbacks, not by polling")
	}
}

func TestAudioMessageRejectedGently(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingDestination, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true,
	})

	evt := &entity.InboundEvent{
		From: "5511999990000", MessageID: "wamid-in-1",
		Type: entity.MessageTypeAudio, Timestamp: time.Now(),
	}
	if err := f.processor.ProcessInboundEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingDestination {
		t.Fatal("unsupported media must not move the state")
	}
	if !f.channel.sentContaining("áudios") {
		t.Fatal("expected the unsupported-media reply")
	}
}

func TestRetryAfterFailureRedispatches(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateError, readyDraft())

	if err := f.processor.ProcessInboundEvent(context.Background(), buttonEvent("retry_ride", "Tentar novamente")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.dispatch.createCalls != 1 {
		t.Fatal("retry must re-attempt dispatch")
	}
	if f.convs.byID[conv.ID].State != entity.StateRideCreated {
		t.Fatalf("expected RIDE_CREATED after a successful retry, got %s", f.convs.byID[conv.ID].State)
	}
}

func TestRemoteClassifierPreferredWhenHealthy(t *testing.T) {
	f := newProcessorFixture()
	f.intent.err = nil
	f.intent.intent = &entity.Intent{HasDestination: true, DestinationText: "Aeroporto de Congonhas"}
	conv := f.activeConversation(entity.StateAwaitingDestination, &entity.Context{
		Version: entity.ContextVersion, FlowStarted: true,
		Origin: &entity.Place{Address: "Rua das Flores, 100"},
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("me deixa no aeroporto de congonhas por favor")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.intent.calls != 1 {
		t.Fatal("the remote classifier must be consulted")
	}
	draft := f.store.drafts[conv.ID]
	if draft.Destination == nil || draft.Destination.Address != "Aeroporto de Congonhas" {
		t.Fatalf("the classified destination must win, got %+v", draft.Destination)
	}
}

func TestTypedCorrectionAtConfirmationReprices(t *testing.T) {
	f := newProcessorFixture()
	f.intent.err = nil
	f.intent.intent = &entity.Intent{HasDestination: true, DestinationText: "Terminal Rodoviário"}
	f.dispatch.quote = &repository.Quote{DistanceKm: 10, DurationMin: 20}
	conv := f.activeConversation(entity.StateAwaitingConfirmation, readyDraft())

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("na verdade me leva no terminal rodoviario")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	draft := f.store.drafts[conv.ID]
	if draft.Destination.Address != "Terminal Rodoviário" {
		t.Fatalf("correction must replace the destination, got %q", draft.Destination.Address)
	}
	if draft.EstimatedPrice == 14.55 {
		t.Fatal("correction must re-price the draft")
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingConfirmation {
		t.Fatal("a correction returns to the same checkpoint")
	}
	if f.dispatch.createCalls != 0 {
		t.Fatal("a correction is not a confirmation")
	}
}

func TestVanishedRideResumesAtConfirmation(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateRideCreated, readyDraft())
	// no ride row exists for this conversation

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("e agora?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.convs.byID[conv.ID].State != entity.StateAwaitingConfirmation {
		t.Fatalf("a complete draft must resume at the confirmation step, got %s", f.convs.byID[conv.ID].State)
	}
	if len(f.channel.buttons) == 0 {
		t.Fatal("the summary must be shown again")
	}
}

func TestExpiredDraftAtCategoryStepRestartsGently(t *testing.T) {
	f := newProcessorFixture()
	// the Redis draft expired but Mongo still says AWAITING_CATEGORY
	conv := f.activeConversation(entity.StateAwaitingCategory, nil)

	if err := f.processor.ProcessInboundEvent(context.Background(), buttonEvent(entity.CategoryCarroPequeno, "Carro pequeno")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.convs.byID[conv.ID].State != entity.StateRequestingLocation {
		t.Fatalf("an empty draft must restart at the location request, got %s", f.convs.byID[conv.ID].State)
	}
	if len(f.channel.locRequests) != 1 {
		t.Fatal("expected a location request")
	}
	if f.dispatch.quoteCalls != 0 {
		t.Fatal("no quote may be attempted without addresses")
	}
}

func TestExpiredDraftAtConfirmationStepRestartsGently(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingConfirmation, nil)

	if err := f.processor.ProcessInboundEvent(context.Background(), buttonEvent("confirm_ride", "Confirmar ✅")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.convs.byID[conv.ID].State != entity.StateRequestingLocation {
		t.Fatalf("an empty draft must restart at the location request, got %s", f.convs.byID[conv.ID].State)
	}
	if f.dispatch.createCalls != 0 {
		t.Fatal("no ride may be dispatched from an empty draft")
	}
}

func TestExpiredDraftWithOriginResumesAtDestination(t *testing.T) {
	f := newProcessorFixture()
	conv := f.activeConversation(entity.StateAwaitingConfirmation, &entity.Context{
		Version:     entity.ContextVersion,
		Origin:      &entity.Place{Address: "Rua das Flores, 100"},
		FlowStarted: true,
	})

	if err := f.processor.ProcessInboundEvent(context.Background(), textEvent("sim")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.convs.byID[conv.ID].State != entity.StateAwaitingDestination {
		t.Fatalf("a draft with only an origin must resume at the destination step, got %s", f.convs.byID[conv.ID].State)
	}
	if f.dispatch.createCalls != 0 {
		t.Fatal("no ride may be dispatched from a partial draft")
	}
}

func TestConcurrentFirstMessagesOpenOneConversation(t *testing.T) {
	f := newProcessorFixture()

	var wg sync.WaitGroup
	for _, body := range []string{"oi", "tudo bem?"} {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			if err := f.processor.ProcessInboundEvent(context.Background(), textEvent(body)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(body)
	}
	wg.Wait()

	customer, _ := f.customers.FindByPhone(context.Background(), "5511999990000")
	if customer == nil {
		t.Fatal("customer must exist")
	}
	if got := f.convs.activeCount(customer.ID); got != 1 {
		t.Fatalf("expected exactly one active conversation, got %d", got)
	}
}
