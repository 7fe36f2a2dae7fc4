package events

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/interfaces"
)

// Service implements EventService with an in-process pub/sub pattern.
type Service struct {
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type. Nil handlers are ignored.
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) {
	if handler == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers[eventType] = append(s.subscribers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")
}

// Publish delivers an event to all subscribers asynchronously. Slow handlers
// never stall the publisher.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) {
	s.mu.RLock()
	handlers := s.subscribers[event.Type]
	s.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	s.logger.Debug().
		Str("event_type", string(event.Type)).
		Int("subscriber_count", len(handlers)).
		Msg("Publishing event")

	for _, handler := range handlers {
		go handler(ctx, event)
	}
}

// Close drops all subscriptions.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	return nil
}
