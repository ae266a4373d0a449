// Package webhook delivers record events to registered HTTP endpoints.
// Payloads are signed with HMAC-SHA256 using the endpoint's secret.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotFound = errors.New("webhook not found")

// Endpoint statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
)

// Delivery outcomes.
const (
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

// Endpoint is a registered destination. Events holds subscription patterns
// such as "bill.overdue", "bill.*", "*.deleted" or "*".
type Endpoint struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"secret,omitempty"`
	Events    []string  `json:"events"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Delivery records one attempt to hand an event to an endpoint.
type Delivery struct {
	ID           string        `json:"id"`
	EndpointID   string        `json:"endpointId"`
	EventID      string        `json:"eventId"`
	EventType    string        `json:"eventType"`
	Payload      []byte        `json:"payload"`
	Signature    string        `json:"signature"`
	StatusCode   int           `json:"statusCode"`
	ResponseBody string        `json:"responseBody,omitempty"`
	Duration     time.Duration `json:"durationNs"`
	Attempt      int           `json:"attempt"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Store persists endpoints and the delivery log.
type Store interface {
	CreateEndpoint(ctx context.Context, ep Endpoint) error
	GetEndpoint(ctx context.Context, id string) (Endpoint, error)
	ListEndpoints(ctx context.Context) ([]Endpoint, error)
	UpdateEndpoint(ctx context.Context, ep Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) error
	RecordDelivery(ctx context.Context, d Delivery) error
	GetDelivery(ctx context.Context, id string) (Delivery, error)
	ListDeliveries(ctx context.Context, endpointID string) ([]Delivery, error)
}

// MemoryStore keeps endpoints and the most recent deliveries in memory.
type MemoryStore struct {
	mu            sync.RWMutex
	endpoints     map[string]Endpoint
	endpointOrder []string
	deliveries    map[string]Delivery
	deliveryOrder []string
	maxDeliveries int
}

// NewMemoryStore keeps at most maxDeliveries log entries, dropping the
// oldest first. Zero or less means 1000.
func NewMemoryStore(maxDeliveries int) *MemoryStore {
	if maxDeliveries <= 0 {
		maxDeliveries = 1000
	}
	return &MemoryStore{
		endpoints:     make(map[string]Endpoint),
		deliveries:    make(map[string]Delivery),
		maxDeliveries: maxDeliveries,
	}
}

func (s *MemoryStore) CreateEndpoint(_ context.Context, ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[ep.ID] = ep
	s.endpointOrder = append(s.endpointOrder, ep.ID)
	return nil
}

func (s *MemoryStore) GetEndpoint(_ context.Context, id string) (Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[id]
	if !ok {
		return Endpoint{}, fmt.Errorf("endpoint %s: %w", id, ErrNotFound)
	}
	return ep, nil
}

func (s *MemoryStore) ListEndpoints(_ context.Context) ([]Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Endpoint, 0, len(s.endpointOrder))
	for _, id := range s.endpointOrder {
		out = append(out, s.endpoints[id])
	}
	return out, nil
}

func (s *MemoryStore) UpdateEndpoint(_ context.Context, ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[ep.ID]; !ok {
		return fmt.Errorf("endpoint %s: %w", ep.ID, ErrNotFound)
	}
	s.endpoints[ep.ID] = ep
	return nil
}

func (s *MemoryStore) DeleteEndpoint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return fmt.Errorf("endpoint %s: %w", id, ErrNotFound)
	}
	delete(s.endpoints, id)
	for i, eid := range s.endpointOrder {
		if eid == id {
			s.endpointOrder = append(s.endpointOrder[:i], s.endpointOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) RecordDelivery(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; !ok {
		s.deliveryOrder = append(s.deliveryOrder, d.ID)
	}
	s.deliveries[d.ID] = d
	for len(s.deliveryOrder) > s.maxDeliveries {
		delete(s.deliveries, s.deliveryOrder[0])
		s.deliveryOrder = s.deliveryOrder[1:]
	}
	return nil
}

func (s *MemoryStore) GetDelivery(_ context.Context, id string) (Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return Delivery{}, fmt.Errorf("delivery %s: %w", id, ErrNotFound)
	}
	return d, nil
}

// ListDeliveries returns the endpoint's log, newest first.
func (s *MemoryStore) ListDeliveries(_ context.Context, endpointID string) ([]Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Delivery
	for i := len(s.deliveryOrder) - 1; i >= 0; i-- {
		if d := s.deliveries[s.deliveryOrder[i]]; d.EndpointID == endpointID {
			out = append(out, d)
		}
	}
	return out, nil
}
