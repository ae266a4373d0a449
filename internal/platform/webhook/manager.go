package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/events"
)

// ErrQueueFull is returned by Publish when deliveries are backed up.
var ErrQueueFull = errors.New("webhook queue full")

// InvalidError reports a rejected endpoint registration or update.
type InvalidError struct {
	Message string
}

func (e *InvalidError) Error() string { return e.Message }

func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(SignPayload(payload, secret)), []byte(strings.TrimPrefix(signature, "sha256=")))
}

// Matches reports whether pattern selects eventType ("entity.action").
func Matches(pattern, eventType string) bool {
	switch {
	case pattern == "*" || pattern == eventType:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(eventType, pattern[1:])
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, pattern[:len(pattern)-1])
	}
	return false
}

func (ep Endpoint) subscribes(eventType string) bool {
	for _, p := range ep.Events {
		if Matches(p, eventType) {
			return true
		}
	}
	return false
}

type Option func(*Manager)

func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithRetryDelays sets the waits between attempts. The number of delays is
// the number of retries.
func WithRetryDelays(d ...time.Duration) Option {
	return func(m *Manager) { m.retryDelays = d }
}

func WithWorkers(n int) Option {
	return func(m *Manager) { m.workers = n }
}

func WithQueueSize(n int) Option {
	return func(m *Manager) { m.queueSize = n }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager registers endpoints and delivers events to them. It implements
// events.Publisher: Publish queues the event and background workers
// deliver it with retries.
type Manager struct {
	store       Store
	client      *http.Client
	retryDelays []time.Duration
	workers     int
	queueSize   int
	logger      zerolog.Logger
	now         func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan events.Event
	stop   chan struct{}
	wg     sync.WaitGroup
}

func NewManager(store Store, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		client:      &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{time.Second, 30 * time.Second, 5 * time.Minute},
		workers:     2,
		queueSize:   256,
		logger:      logger.With().Str("component", "webhook").Logger(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.queue = make(chan events.Event, max(m.queueSize, 1))
	m.stop = make(chan struct{})
	for range max(m.workers, 1) {
		m.wg.Add(1)
		go m.work()
	}
	return m
}

func (m *Manager) Publish(_ context.Context, ev events.Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("webhook manager closed")
	}
	select {
	case m.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, delivers what is queued without further
// retries and waits for the workers.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.stop)
		close(m.queue)
	}
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}

func (m *Manager) work() {
	defer m.wg.Done()
	for ev := range m.queue {
		ctx := context.Background()
		endpoints, err := m.matching(ctx, ev)
		if err != nil {
			m.logger.Error().Err(err).Msg("list webhook endpoints")
			continue
		}
		for _, ep := range endpoints {
			m.deliverWithRetry(ctx, ep, ev)
		}
	}
}

func (m *Manager) matching(ctx context.Context, ev events.Event) ([]Endpoint, error) {
	all, err := m.store.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	eventType := typeOf(ev)
	var out []Endpoint
	for _, ep := range all {
		if ep.Status == StatusActive && ep.subscribes(eventType) {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (m *Manager) deliverWithRetry(ctx context.Context, ep Endpoint, ev events.Event) Delivery {
	d := m.deliver(ctx, ep, ev, 1)
	for i, wait := range m.retryDelays {
		if d.Status == DeliverySuccess {
			break
		}
		select {
		case <-m.stop:
			return d
		case <-time.After(wait):
		}
		d = m.deliver(ctx, ep, ev, i+2)
	}
	if d.Status != DeliverySuccess {
		m.logger.Warn().Str("endpoint", ep.ID).Str("event", typeOf(ev)).Int("attempts", d.Attempt).Str("error", d.Error).Msg("webhook delivery gave up")
	}
	return d
}

// Deliver makes one attempt per matching active endpoint, synchronously.
func (m *Manager) Deliver(ctx context.Context, ev events.Event) ([]Delivery, error) {
	endpoints, err := m.matching(ctx, ev)
	if err != nil {
		return nil, err
	}
	out := make([]Delivery, 0, len(endpoints))
	for _, ep := range endpoints {
		out = append(out, m.deliver(ctx, ep, ev, 1))
	}
	return out, nil
}

func typeOf(ev events.Event) string {
	return ev.Entity + "." + string(ev.Action)
}

func (m *Manager) deliver(ctx context.Context, ep Endpoint, ev events.Event, attempt int) Delivery {
	payload, _ := json.Marshal(ev)
	now := m.now()
	d := Delivery{
		ID:         uuid.NewString(),
		EndpointID: ep.ID,
		EventID:    ev.ID.String(),
		EventType:  typeOf(ev),
		Payload:    payload,
		Signature:  SignPayload(payload, ep.Secret),
		Attempt:    attempt,
		CreatedAt:  now,
	}
	defer func() {
		if err := m.store.RecordDelivery(ctx, d); err != nil {
			m.logger.Error().Err(err).Str("delivery", d.ID).Msg("record webhook delivery")
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		d.Status, d.Error = DeliveryFailed, err.Error()
		return d
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+d.Signature)
	req.Header.Set("X-Webhook-ID", ep.ID)
	req.Header.Set("X-Webhook-Event", d.EventType)
	req.Header.Set("X-Webhook-Timestamp", now.UTC().Format(time.RFC3339))

	start := time.Now()
	resp, err := m.client.Do(req)
	d.Duration = time.Since(start)
	if err != nil {
		d.Status, d.Error = DeliveryFailed, err.Error()
		return d
	}
	defer resp.Body.Close()

	d.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	d.ResponseBody = string(body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.Status = DeliverySuccess
	} else {
		d.Status, d.Error = DeliveryFailed, fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
	}
	return d
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateURL(raw string) error {
	if raw == "" {
		return &InvalidError{Message: "url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return &InvalidError{Message: fmt.Sprintf("invalid url %q", raw)}
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return &InvalidError{Message: fmt.Sprintf("url scheme must be http or https, got %q", u.Scheme)}
	}
	return nil
}

// Register adds an endpoint. An empty secret is replaced with a random one
// and an empty pattern list subscribes to everything.
func (m *Manager) Register(ctx context.Context, rawURL, secret string, patterns []string) (Endpoint, error) {
	if err := validateURL(rawURL); err != nil {
		return Endpoint{}, err
	}
	if secret == "" {
		s, err := generateSecret()
		if err != nil {
			return Endpoint{}, fmt.Errorf("generate secret: %w", err)
		}
		secret = s
	}
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	ep := Endpoint{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Secret:    secret,
		Events:    patterns,
		Status:    StatusActive,
		CreatedAt: m.now(),
	}
	if err := m.store.CreateEndpoint(ctx, ep); err != nil {
		return Endpoint{}, err
	}
	m.logger.Info().Str("endpoint", ep.ID).Str("url", ep.URL).Strs("events", ep.Events).Msg("webhook registered")
	return ep, nil
}

// Update changes the non-empty fields of the request.
func (m *Manager) Update(ctx context.Context, id, rawURL string, patterns []string, status string) (Endpoint, error) {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return Endpoint{}, err
	}
	if rawURL != "" {
		if err := validateURL(rawURL); err != nil {
			return Endpoint{}, err
		}
		ep.URL = rawURL
	}
	if len(patterns) > 0 {
		ep.Events = patterns
	}
	switch status {
	case "":
	case StatusActive, StatusPaused:
		ep.Status = status
	default:
		return Endpoint{}, &InvalidError{Message: fmt.Sprintf("status must be %q or %q", StatusActive, StatusPaused)}
	}
	if err := m.store.UpdateEndpoint(ctx, ep); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

func (m *Manager) SetStatus(ctx context.Context, id, status string) (Endpoint, error) {
	return m.Update(ctx, id, "", nil, status)
}

func (m *Manager) Get(ctx context.Context, id string) (Endpoint, error) {
	return m.store.GetEndpoint(ctx, id)
}

func (m *Manager) List(ctx context.Context) ([]Endpoint, error) {
	return m.store.ListEndpoints(ctx)
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.DeleteEndpoint(ctx, id)
}

func (m *Manager) Deliveries(ctx context.Context, endpointID string) ([]Delivery, error) {
	if _, err := m.store.GetEndpoint(ctx, endpointID); err != nil {
		return nil, err
	}
	return m.store.ListDeliveries(ctx, endpointID)
}

// Retry re-sends the payload of a past delivery as a new attempt.
func (m *Manager) Retry(ctx context.Context, deliveryID string) (Delivery, error) {
	prev, err := m.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return Delivery{}, err
	}
	ep, err := m.store.GetEndpoint(ctx, prev.EndpointID)
	if err != nil {
		return Delivery{}, err
	}
	var ev events.Event
	if err := json.Unmarshal(prev.Payload, &ev); err != nil {
		return Delivery{}, fmt.Errorf("decode delivery payload: %w", err)
	}
	return m.deliver(ctx, ep, ev, prev.Attempt+1), nil
}

// Ping sends a synthetic "webhook.test" event to one endpoint regardless of
// its subscriptions or status.
func (m *Manager) Ping(ctx context.Context, id string) (Delivery, error) {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return Delivery{}, err
	}
	return m.deliver(ctx, ep, events.New("webhook", "test", 0, map[string]string{"endpoint": ep.ID}), 1), nil
}
