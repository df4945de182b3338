package realtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(webinarID uuid.UUID) *Client {
	return &Client{
		ID:        uuid.New().String(),
		WebinarID: webinarID,
		send:      make(chan WSMessage, 8),
	}
}

func TestHub_BroadcastDelivery(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	roomA := uuid.New()
	roomB := uuid.New()

	a1 := newTestClient(roomA)
	a2 := newTestClient(roomA)
	b1 := newTestClient(roomB)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b1)

	hub.BroadcastToWebinarAndPublish(roomA, EventStatusChanged, map[string]string{"status": "in_progress"})

	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.send:
			assert.Equal(t, EventStatusChanged, msg.Event)
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
	select {
	case <-b1.send:
		t.Fatal("client in another room received the event")
	default:
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	room := uuid.New()
	c := &Client{ID: uuid.New().String(), WebinarID: room, send: make(chan WSMessage)}
	hub.Register(c)

	// Unbuffered channel with no reader. Broadcast must drop, not hang.
	hub.BroadcastToWebinarAndPublish(room, EventCTAActivated, map[string]int{"index": 0})
}

func TestHub_BroadcastDuringChurn(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	room := uuid.New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c := newTestClient(room)
			hub.Register(c)
			hub.Unregister(c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.BroadcastToWebinarAndPublish(room, EventStatusChanged, map[string]int{"seq": i})
		}
	}()
	wg.Wait()

	require.Equal(t, 0, hub.AudienceCount(room))
}

func TestHub_AudienceCount(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	room := uuid.New()
	c1 := newTestClient(room)
	c2 := newTestClient(room)

	hub.Register(c1)
	hub.Register(c2)
	assert.Equal(t, 2, hub.AudienceCount(room))

	hub.Unregister(c1)
	assert.Equal(t, 1, hub.AudienceCount(room))
	hub.Unregister(c2)
	assert.Equal(t, 0, hub.AudienceCount(room))
}
