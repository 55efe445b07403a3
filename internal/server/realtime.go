package server

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/library"
	"github.com/gin-gonic/gin"
)

const (
	RealtimeEventLibraryChanged  = "library-change"
	realtimeEventLibrarySnapshot = "library-snapshot"
	realtimeEventHeartbeat       = "heartbeat"
	realtimeSubscriberBuffer     = 16
)

// RealtimeMessage is one library change addressed to a profile.
type RealtimeMessage struct {
	ProfileID string
	EventType string
	Library   library.UserLibrary
	Timestamp time.Time
}

type realtimeEventPayload struct {
	ProfileID string          `json:"profileId"`
	Library   json.RawMessage `json:"library"`
	Timestamp string          `json:"timestamp"`
}

type heartbeatPayload struct {
	Timestamp string `json:"timestamp"`
}

// RealtimeDispatcher fans library changes out to the open event streams of a profile.
// Subscribers that fall behind miss messages rather than block publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  realtimeSubscriberBuffer,
	}
}

// Subscribe registers a stream for profileID until ctx ends or cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, profileID string) (<-chan RealtimeMessage, func()) {
	if profileID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.register(profileID, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregister(profileID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.ProfileID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, subscriber := range d.subscribers[message.ProfileID] {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the open streams of profileID.
func (d *RealtimeDispatcher) SubscriberCount(profileID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[profileID])
}

func (d *RealtimeDispatcher) register(profileID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	subscriber.id = d.nextID
	if _, ok := d.subscribers[profileID]; !ok {
		d.subscribers[profileID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[profileID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregister(profileID string, subscriberID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subscribers := d.subscribers[profileID]
	if subscribers == nil {
		return
	}
	delete(subscribers, subscriberID)
	if len(subscribers) == 0 {
		delete(d.subscribers, profileID)
	}
}

func newRealtimeEventPayload(profileID string, lib library.UserLibrary, at time.Time) realtimeEventPayload {
	return realtimeEventPayload{
		ProfileID: profileID,
		Library:   json.RawMessage(library.Encode(lib)),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// handleLibraryEvents streams library changes of the authenticated profile as server-sent events.
// The first event carries the current library so clients can render before any change arrives.
func (h *httpHandler) handleLibraryEvents(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	profileID := facade.ProfileID()
	ctx := c.Request.Context()

	stream, cleanup := h.realtime.Subscribe(ctx, profileID)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	snapshot, _ := facade.Current()
	c.SSEvent(realtimeEventLibrarySnapshot, newRealtimeEventPayload(profileID, snapshot, h.clock()))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent(message.EventType, newRealtimeEventPayload(message.ProfileID, message.Library, message.Timestamp))
			return true
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{Timestamp: tick.UTC().Format(time.RFC3339)})
			return true
		}
	})
}
