package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
)

// noopLogger satisfies logger.Logger for tests.
type noopLogger struct{}

func (noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (noopLogger) Fatal(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) With(keysAndValues ...interface{}) logger.Logger {
	return n
}

type sentText struct {
	to   string
	body string
}

type sentButtons struct {
	to      string
	body    string
	buttons []repository.ChannelButton
}

// fakeChannel records outbound sends in order. Fakes are locked internally
// so tests can drive the processor and coordinator from multiple goroutines.
type fakeChannel struct {
	mu          sync.Mutex
	texts       []sentText
	buttons     []sentButtons
	locRequests []sentText
	marked      []string
	seq         int
}

func (f *fakeChannel) SendText(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{to, body})
	f.seq++
	return fmt.Sprintf("wamid-%d", f.seq), nil
}

func (f *fakeChannel) SendButtons(ctx context.Context, to, body string, buttons []repository.ChannelButton) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttons = append(f.buttons, sentButtons{to, body, buttons})
	f.seq++
	return fmt.Sprintf("wamid-%d", f.seq), nil
}

func (f *fakeChannel) SendLocationRequest(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locRequests = append(f.locRequests, sentText{to, body})
	f.seq++
	return fmt.Sprintf("wamid-%d", f.seq), nil
}

func (f *fakeChannel) MarkRead(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, messageID)
	return nil
}

func (f *fakeChannel) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1].body
}

func (f *fakeChannel) sentContaining(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.texts {
		if strings.Contains(m.body, substr) {
			return true
		}
	}
	for _, m := range f.buttons {
		if strings.Contains(m.body, substr) {
			return true
		}
	}
	return false
}

type fakeCustomerRepo struct {
	mu      sync.Mutex
	byPhone map[string]*entity.Customer
	seq     int
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{byPhone: make(map[string]*entity.Customer)}
}

func (f *fakeCustomerRepo) FindByPhone(ctx context.Context, phone string) (*entity.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byPhone[phone]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomerRepo) Create(ctx context.Context, customer *entity.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if customer.ID == "" {
		customer.ID = fmt.Sprintf("cust-%d", f.seq)
	}
	customer.CreatedAt = time.Now()
	cp := *customer
	f.byPhone[customer.Phone] = &cp
	return nil
}

func (f *fakeCustomerRepo) UpdateName(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byPhone {
		if c.ID == id {
			c.Name = name
		}
	}
	return nil
}

type fakeConvRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.Conversation
	seq  int
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{byID: make(map[string]*entity.Conversation)}
}

func (f *fakeConvRepo) FindActiveByCustomer(ctx context.Context, customerID string) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.CustomerID == customerID && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConvRepo) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConvRepo) Create(ctx context.Context, conv *entity.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if conv.ID == "" {
		conv.ID = fmt.Sprintf("conv-%d", f.seq)
	}
	conv.CreatedAt = time.Now()
	cp := *conv
	f.byID[conv.ID] = &cp
	return nil
}

func (f *fakeConvRepo) UpdateState(ctx context.Context, id, state string, lastMessageAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byID[id]; ok {
		c.State = state
		c.LastMessageAt = lastMessageAt
	}
	return nil
}

func (f *fakeConvRepo) Deactivate(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byID[id]; ok {
		c.IsActive = false
	}
	return nil
}

func (f *fakeConvRepo) activeCount(customerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.byID {
		if c.CustomerID == customerID && c.IsActive {
			n++
		}
	}
	return n
}

type fakeContextStore struct {
	mu     sync.Mutex
	drafts map[string]*entity.Context
}

func newFakeContextStore() *fakeContextStore {
	return &fakeContextStore{drafts: make(map[string]*entity.Context)}
}

func (f *fakeContextStore) Load(ctx context.Context, conversationID string) (*entity.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[conversationID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeContextStore) Save(ctx context.Context, conversationID string, draft *entity.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *draft
	f.drafts[conversationID] = &cp
	return nil
}

func (f *fakeContextStore) Clear(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, conversationID)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.Message
}

func (f *fakeMessageRepo) Append(ctx context.Context, message *entity.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

type fakeRideRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.Ride
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{byID: make(map[string]*entity.Ride)}
}

func (f *fakeRideRepo) Create(ctx context.Context, ride *entity.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride.CreatedAt = time.Now()
	cp := *ride
	f.byID[ride.ID] = &cp
	return nil
}

func (f *fakeRideRepo) FindByID(ctx context.Context, id string) (*entity.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRideRepo) FindByProviderRideID(ctx context.Context, providerRideID string) (*entity.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.ProviderRideID == providerRideID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRideRepo) FindActiveByConversation(ctx context.Context, conversationID string) (*entity.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.ConversationID == conversationID && !entity.IsTerminalStatus(r.Status) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRideRepo) Update(ctx context.Context, ride *entity.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ride
	cp.UpdatedAt = time.Now()
	f.byID[ride.ID] = &cp
	return nil
}

type fakeRideEventRepo struct {
	mu     sync.Mutex
	events []*entity.RideEvent
}

func (f *fakeRideEventRepo) Append(ctx context.Context, event *entity.RideEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRideEventRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeDispatch struct {
	quote     *repository.Quote
	quoteErr  error
	createID  string
	createErr error
	cancelErr error
	status    *repository.ProviderStatus
	statusErr error

	mu          sync.Mutex
	quoteCalls  int
	createCalls int
	cancelCalls int
	statusCalls int
}

func (f *fakeDispatch) Quote(ctx context.Context, origin, destination entity.Place, category string) (*repository.Quote, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()
	return f.quote, f.quoteErr
}

func (f *fakeDispatch) CreateRide(ctx context.Context, req *repository.CreateRideRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.createID == "" {
		return fmt.Sprintf("prov-%d", f.createCalls), nil
	}
	return f.createID, nil
}

func (f *fakeDispatch) CancelRide(ctx context.Context, providerRideID, reason string) error {
	f.mu.Lock()
	f.cancelCalls++
	f.mu.Unlock()
	return f.cancelErr
}

func (f *fakeDispatch) GetStatus(ctx context.Context, providerRideID string) (*repository.ProviderStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	f.mu.Unlock()
	return f.status, f.statusErr
}

type fakeGeocoder struct {
	address string
	err     error
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	return f.address, f.err
}

type fakeIntentRepo struct {
	intent *entity.Intent
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeIntentRepo) Classify(ctx context.Context, text string, contextJSON string) (*entity.Intent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.intent, f.err
}
