package mqtt

import "log"

// pendingEvent is a formatted system event held while disconnected.
type pendingEvent struct {
	payload  []byte
	qos      byte
	retained bool
}

// eventBuffer keeps the most recent system events published while the
// broker was unreachable. The oldest event is dropped when full.
// Not safe for concurrent use; the publisher holds its lock.
type eventBuffer struct {
	buf     []pendingEvent
	head    int // next write position
	count   int
	dropped int // events lost since the last drain
}

func newEventBuffer(capacity int) *eventBuffer {
	return &eventBuffer{buf: make([]pendingEvent, capacity)}
}

func (b *eventBuffer) push(ev pendingEvent) {
	if b.count == len(b.buf) {
		if b.dropped == 0 {
			log.Printf("mqtt: warning: event buffer full (%d events), dropping oldest", len(b.buf))
		}
		b.dropped++
	} else {
		b.count++
	}
	b.buf[b.head] = ev
	b.head = (b.head + 1) % len(b.buf)
}

// drain returns the buffered events oldest first and empties the buffer.
func (b *eventBuffer) drain() []pendingEvent {
	if b.count == 0 {
		return nil
	}

	out := make([]pendingEvent, 0, b.count)
	start := (b.head - b.count + len(b.buf)) % len(b.buf)
	for i := 0; i < b.count; i++ {
		out = append(out, b.buf[(start+i)%len(b.buf)])
	}

	if b.dropped > 0 {
		log.Printf("mqtt: %d system events were dropped while disconnected", b.dropped)
	}
	b.count = 0
	b.head = 0
	b.dropped = 0
	return out
}

func (b *eventBuffer) len() int {
	return b.count
}
