package mqtt

import (
	"testing"
)

func event(b byte) bufferedMsg {
	return bufferedMsg{topic: TopicSystem, payload: []byte{b}, qos: 1}
}

func reading(b byte) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte{b}, latest: true}
}

func payloads(msgs []bufferedMsg) []byte {
	out := make([]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.payload[0]
	}
	return out
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferKeepsEventOrder(t *testing.T) {
	rb := newRingBuffer(10)
	for i := 0; i < 5; i++ {
		rb.push(event(byte(i)))
	}

	got := payloads(rb.drainAll())
	if string(got) != string([]byte{0, 1, 2, 3, 4}) {
		t.Errorf("drained %v, want 0..4", got)
	}
	if rb.drainAll() != nil {
		t.Error("second drain should be empty")
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	rb := newRingBuffer(5)
	for i := 0; i < 8; i++ {
		rb.push(event(byte(i)))
	}

	got := payloads(rb.drainAll())
	if string(got) != string([]byte{3, 4, 5, 6, 7}) {
		t.Errorf("drained %v, want 3..7", got)
	}
	if rb.dropped != 3 {
		t.Errorf("dropped: got %d, want 3", rb.dropped)
	}
}

func TestRingBufferCoalescesReadings(t *testing.T) {
	rb := newRingBuffer(3)
	for i := 0; i < 10; i++ {
		rb.push(reading(byte(i)))
	}
	if rb.len() != 1 {
		t.Fatalf("len: got %d, want 1", rb.len())
	}
	if rb.coalesced != 9 || rb.dropped != 0 {
		t.Errorf("coalesced=%d dropped=%d, want 9 and 0", rb.coalesced, rb.dropped)
	}
	if got := payloads(rb.drainAll()); got[0] != 9 {
		t.Errorf("kept reading %d, want 9", got[0])
	}
}

func TestRingBufferEventsSplitReadings(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(reading(1))
	rb.push(reading(2))
	rb.push(event(10)) // RESET
	rb.push(reading(3))
	rb.push(reading(4))

	msgs := rb.drainAll()
	if got := payloads(msgs); string(got) != string([]byte{2, 10, 4}) {
		t.Fatalf("drained %v, want [2 10 4]", got)
	}
	if msgs[1].topic != TopicSystem || msgs[1].qos != 1 {
		t.Errorf("event fields lost: %+v", msgs[1])
	}
}

func TestRingBufferEventsNeverCoalesce(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(event(1))
	rb.push(event(1))
	if rb.len() != 2 || rb.coalesced != 0 {
		t.Errorf("len=%d coalesced=%d, want 2 and 0", rb.len(), rb.coalesced)
	}
}

func TestRingBufferCoalesceAcrossWrap(t *testing.T) {
	rb := newRingBuffer(3)
	rb.push(event(1))
	rb.push(event(2))
	rb.drainAll()

	// head is reset by drain; fill so the newest entry sits at the last slot.
	rb.push(event(3))
	rb.push(event(4))
	rb.push(reading(5))
	rb.push(reading(6))
	if got := payloads(rb.drainAll()); string(got) != string([]byte{3, 4, 6}) {
		t.Errorf("drained %v, want [3 4 6]", got)
	}

	// Overflow so head wraps before coalescing.
	for i := byte(0); i < 4; i++ {
		rb.push(event(i))
	}
	rb.push(reading(7))
	rb.push(reading(8))
	if got := payloads(rb.drainAll()); string(got) != string([]byte{2, 3, 8}) {
		t.Errorf("drained %v, want [2 3 8]", got)
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(bufferedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != TopicSystem || string(got[0].payload) != `{"test":true}` || got[0].qos != 1 || !got[0].retained {
		t.Errorf("fields: %+v", got[0])
	}
}

func TestRingBufferTotalsSurviveDrain(t *testing.T) {
	rb := newRingBuffer(2)
	for i := 0; i < 5; i++ {
		rb.push(event(byte(i)))
	}
	rb.push(reading(1))
	rb.push(reading(2))
	rb.drainAll()
	if rb.dropped != 4 || rb.coalesced != 1 {
		t.Errorf("dropped=%d coalesced=%d, want 4 and 1", rb.dropped, rb.coalesced)
	}
	if rb.len() != 0 {
		t.Errorf("len after drain: %d", rb.len())
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	rb.push(event(1))
	rb.push(event(2))
	if got := payloads(rb.drainAll()); string(got) != string([]byte{2}) {
		t.Errorf("drained %v, want [2]", got)
	}
}
