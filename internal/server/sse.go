package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/kazz187/taskman/internal/event"
)

// Broadcaster mirrors the event stream to connected HTTP clients. It
// subscribes to every event type on the bus and fans messages out to
// per-client buffered channels; a client that cannot keep up is dropped
// rather than blocking the bus.
type Broadcaster struct {
	mu      sync.Mutex
	nextID  int
	clients map[int]chan *event.Message
}

const clientBuffer = 64

// NewBroadcaster registers the fan-out subscriber on the bus. It must be
// called before the bus starts.
func NewBroadcaster(bus *event.Bus) (*Broadcaster, error) {
	b := &Broadcaster{clients: map[int]chan *event.Message{}}
	for _, t := range event.AllTypes() {
		name := fmt.Sprintf("sse_broadcast_%s", t)
		if err := bus.SubscribeAsync(t, name, b.dispatch); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Broadcaster) dispatch(msg *event.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.clients {
		select {
		case ch <- msg:
		default:
			close(ch)
			delete(b.clients, id)
		}
	}
	return nil
}

func (b *Broadcaster) subscribe() (int, <-chan *event.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan *event.Message, clientBuffer)
	b.clients[id] = ch
	return id, ch
}

func (b *Broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
	}
}

// streamEvents serves the event stream as server-sent events. Each message
// is emitted with its event type as the SSE event name and the full
// envelope as JSON data.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, ch := s.broadcaster.subscribe()
	defer s.broadcaster.unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
