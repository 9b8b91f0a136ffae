package mqtt

import "log/slog"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool

	// latest marks a message that only matters until a newer one on the
	// same topic is queued. Readings are latest; lifecycle events are not.
	latest bool
}

// ringBuffer is a fixed-capacity FIFO that holds messages while
// disconnected. A latest message replaces the newest queued message when
// that one is latest on the same topic, so a long outage replays one rate
// per gap between lifecycle events rather than every change.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	buf       []bufferedMsg
	head      int // next write position
	count     int
	overflow  bool // a message was dropped since the last drain
	dropped   uint64
	coalesced uint64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) newest() *bufferedMsg {
	if r.count == 0 {
		return nil
	}
	return &r.buf[(r.head-1+len(r.buf))%len(r.buf)]
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if msg.latest {
		if n := r.newest(); n != nil && n.latest && n.topic == msg.topic {
			*n = msg
			r.coalesced++
			return
		}
	}

	if r.count == len(r.buf) {
		if !r.overflow {
			slog.Warn("mqtt: buffer full, dropping oldest", "capacity", len(r.buf))
			r.overflow = true
		}
		r.dropped++
		// head already points at the oldest entry
		r.buf[r.head] = msg
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	r.count++
}

// drainAll returns the queued messages oldest first and empties the buffer.
// The dropped and coalesced totals are kept.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
