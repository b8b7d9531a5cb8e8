package pipeline

import "sync"

// ProgressEvent is emitted on every transition: delivered in stage
// order, with non-decreasing percent within a stage, best-effort (slow
// subscribers may drop events but never observe out-of-order ones).
type ProgressEvent struct {
	SessionID string
	Stage     Stage
	Percent   int
	Note      string
}

// broadcaster fans one session's progress events out to any number of
// subscribers. Each subscriber gets its own buffered channel; a full
// channel drops the new event rather than blocking the publisher, which
// is how best-effort delivery stays safe: a slow subscriber drops
// events but never sees them reordered. Re-subscribing replays the
// latest event per stage seen so far.
type broadcaster struct {
	mu          sync.Mutex
	subscribers map[int]chan ProgressEvent
	nextID      int
	lastByStage map[Stage]ProgressEvent
	stageOrder  []Stage
	closed      bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subscribers: make(map[int]chan ProgressEvent),
		lastByStage: make(map[Stage]ProgressEvent),
	}
}

// Publish records ev as the latest event for its stage and fans it out.
func (b *broadcaster) Publish(ev ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, seen := b.lastByStage[ev.Stage]; !seen {
		b.stageOrder = append(b.stageOrder, ev.Stage)
	}
	b.lastByStage[ev.Stage] = ev
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than block or reorder.
		}
	}
}

// Subscribe returns a channel that replays the latest per-stage event
// seen so far, then receives new events as they're published. The
// returned func unsubscribes and closes the channel.
func (b *broadcaster) Subscribe(buffer int) (<-chan ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ProgressEvent, buffer)
	id := b.nextID
	b.nextID++
	if !b.closed {
		b.subscribers[id] = ch
	}

	for _, stage := range b.stageOrder {
		select {
		case ch <- b.lastByStage[stage]:
		default:
		}
	}
	if b.closed {
		close(ch)
	}

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Close marks the broadcaster terminal and closes every live subscriber
// channel, letting progress_stream's "finite sequence... ending at any
// terminal state" end cleanly.
func (b *broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
