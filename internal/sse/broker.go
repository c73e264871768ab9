// Package sse broadcasts content changes to connected pages as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is one message on the stream. Data is encoded as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Content change kinds accepted by PublishContentEvent.
const (
	KindUpdated  = "updated"
	KindDeleted  = "deleted"
	KindReloaded = "reloaded"
)

const (
	clientBuffer     = 64
	defaultHeartbeat = 25 * time.Second
	retryMillis      = 3000
)

// hub is the state owned by the broker loop. Nothing else touches it.
type hub struct {
	clients     map[chan []byte]struct{}
	seq         uint64
	lastChanged time.Time
	// pending is set while a trailing document.changed is scheduled.
	pending bool
}

// Broker fans events out to subscribed clients.
//
// All mutable state lives in a hub owned by one goroutine; callers hand it
// closures over ops and never share memory with it.
type Broker struct {
	throttle  time.Duration
	heartbeat time.Duration

	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that emits at most one document.changed per throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = time.Second
	}
	b := &Broker{
		throttle:  throttle,
		heartbeat: defaultHeartbeat,
		ops:       make(chan func(*hub), 256),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)
	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do runs op on the loop goroutine. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// call runs op on the loop and waits for it to finish.
func (b *Broker) call(op func(*hub)) bool {
	done := make(chan struct{})
	if !b.do(func(h *hub) { op(h); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-b.stopped:
		return false
	}
}

func (h *hub) send(e Event) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	h.seq++
	frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, e.Type, payload))
	for ch := range h.clients {
		select {
		case ch <- frame:
		default: // slow client, drop
		}
	}
}

// Close stops the loop and closes every client channel. Safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed by Unsubscribe
// or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.call(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	var n int
	if !b.call(func(h *hub) { n = len(h.clients) }) {
		return 0
	}
	return n
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.send(event) })
}

// PublishContentEvent announces a change to field and a throttled document.changed.
// field is ignored for KindReloaded; unknown kinds are dropped.
func (b *Broker) PublishContentEvent(kind, field string) {
	var e Event
	switch kind {
	case KindUpdated, KindDeleted:
		e = Event{Type: "content." + kind, Data: map[string]string{"field": field}}
	case KindReloaded:
		e = Event{Type: "content.reloaded", Data: map[string]string{}}
	default:
		return
	}
	b.do(func(h *hub) {
		h.send(e)
		b.changed(h)
	})
}

// changed emits document.changed at most once per throttle window. A change
// inside the window schedules a single trailing event at the window's end so
// the last change is always announced.
func (b *Broker) changed(h *hub) {
	elapsed := time.Since(h.lastChanged)
	if elapsed >= b.throttle {
		h.lastChanged = time.Now()
		h.send(Event{Type: "document.changed", Data: map[string]string{}})
		return
	}
	if h.pending {
		return
	}
	h.pending = true
	time.AfterFunc(b.throttle-elapsed, func() {
		b.do(func(hh *hub) {
			hh.pending = false
			hh.lastChanged = time.Now()
			hh.send(Event{Type: "document.changed", Data: map[string]string{}})
		})
	})
}

// ServeHTTP streams events to one client until it disconnects. A comment line
// is written every heartbeat so idle proxies keep the connection open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	tick := time.NewTicker(b.heartbeat)
	defer tick.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
