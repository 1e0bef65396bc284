package msghub

import (
	"container/ring"
	"context"

	"github.com/mailclean/mailclean/pkg/extension"
	"github.com/mailclean/mailclean/pkg/extension/event"
)

// Length of msghub operation queue
const opChanLen = 100

// Listener receives the contents of the history buffer, followed by new results.
type Listener interface {
	Receive(r event.ResultMetadata) error
	Delete(id string) error
}

// Hub relays stored results on to its listeners.
type Hub struct {
	// history buffer, points next result to write.  Proceeding non-nil entry is oldest result.
	history   *ring.Ring
	listeners map[Listener]struct{} // listeners interested in new results
	opChan    chan func(h *Hub)     // operations queued for this actor
}

// New constructs a new Hub which will cache historyLen results in memory for playback to future
// listeners.  The hub subscribes to result events on extHost; Start must be called to process them.
func New(historyLen int, extHost *extension.Host) *Hub {
	hub := &Hub{
		history:   ring.New(historyLen),
		listeners: make(map[Listener]struct{}),
		opChan:    make(chan func(h *Hub), opChanLen),
	}

	extHost.Events.AfterResultStored.AddListener("msghub", hub.Dispatch)
	extHost.Events.AfterResultDeleted.AddListener("msghub",
		func(r event.ResultMetadata) {
			hub.Delete(r.ID)
		})

	return hub
}

// Start Hub processing loop.
func (hub *Hub) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Shutdown
			return
		case op := <-hub.opChan:
			op(hub)
		}
	}
}

// Dispatch queues a result for broadcast by the hub.  The result will be placed into the history
// buffer and then relayed to all registered listeners.
func (hub *Hub) Dispatch(r event.ResultMetadata) {
	hub.opChan <- func(h *Hub) {
		if h.history != nil {
			// Add to history buffer
			h.history.Value = r
			h.history = h.history.Next()

			// Deliver result to all listeners, removing listeners if they return an error
			for l := range h.listeners {
				if err := l.Receive(r); err != nil {
					delete(h.listeners, l)
				}
			}
		}
	}
}

// Delete removes the identified result from the history buffer and notifies listeners.
func (hub *Hub) Delete(id string) {
	hub.opChan <- func(h *Hub) {
		for i, r := 0, h.history; i < h.history.Len(); i, r = i+1, r.Next() {
			if meta, ok := r.Value.(event.ResultMetadata); ok && meta.ID == id {
				// Leave the slot in place, the ring must keep its length.
				r.Value = nil
			}
		}

		for l := range h.listeners {
			if err := l.Delete(id); err != nil {
				delete(h.listeners, l)
			}
		}
	}
}

// AddListener registers a listener to receive broadcasted results.
func (hub *Hub) AddListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		// Playback log
		h.history.Do(func(v any) {
			if v != nil {
				_ = l.Receive(v.(event.ResultMetadata))
			}
		})

		// Add to listeners
		h.listeners[l] = struct{}{}
	}
}

// RemoveListener deletes a listener registration, it will cease to receive results.
func (hub *Hub) RemoveListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		delete(h.listeners, l)
	}
}

// Sync blocks until the msghub has processed its queue up to this point, useful for unit tests.
func (hub *Hub) Sync() {
	done := make(chan struct{})
	hub.opChan <- func(h *Hub) {
		close(done)
	}
	<-done
}
