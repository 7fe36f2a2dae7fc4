package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/interfaces"
)

func TestPublishReachesSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var mu sync.Mutex
	var received []interfaces.Event
	done := make(chan struct{}, 2)

	handler := func(_ context.Context, event interfaces.Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		done <- struct{}{}
	}

	svc.Subscribe(interfaces.EventSlotsFound, handler)
	svc.Subscribe(interfaces.EventSlotsFound, handler)
	svc.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventSlotsFound,
		Payload: map[string]string{"target": "deu"},
	})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 2)
	assert.Equal(t, interfaces.EventSlotsFound, received[0].Type)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	// Must not panic or block
	svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventScanStarted})
}

func TestSubscriberOnlySeesItsType(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	hit := make(chan interfaces.EventType, 1)
	svc.Subscribe(interfaces.EventScanCompleted, func(_ context.Context, event interfaces.Event) {
		hit <- event.Type
	})

	svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventScanStarted})
	svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventScanCompleted})

	select {
	case got := <-hit:
		assert.Equal(t, interfaces.EventScanCompleted, got)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}
