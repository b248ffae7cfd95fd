package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{
		topic:   Topic,
		payload: []byte(fmt.Sprintf("payload-%d", i)),
		qos:     0,
	}
}

func TestRingBufferEmptyDrain(t *testing.T) {
	r := newRingBuffer(4)
	if got := r.drainAll(); got != nil {
		t.Errorf("drain of empty buffer: got %v, want nil", got)
	}
	if r.len() != 0 {
		t.Errorf("len: got %d, want 0", r.len())
	}
}

func TestRingBufferFIFOOrder(t *testing.T) {
	r := newRingBuffer(4)
	for i := 0; i < 3; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Fatalf("len: got %d, want 3", r.len())
	}

	out := r.drainAll()
	if len(out) != 3 {
		t.Fatalf("drained %d, want 3", len(out))
	}
	for i, m := range out {
		want := fmt.Sprintf("payload-%d", i)
		if string(m.payload) != want {
			t.Errorf("position %d: got %s, want %s", i, m.payload, want)
		}
	}

	if r.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", r.len())
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	r := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Fatalf("len: got %d, want capacity 3", r.len())
	}

	out := r.drainAll()
	want := []string{"payload-2", "payload-3", "payload-4"}
	for i, w := range want {
		if string(out[i].payload) != w {
			t.Errorf("position %d: got %s, want %s", i, out[i].payload, w)
		}
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	r := newRingBuffer(2)
	r.push(msg(0))
	r.push(msg(1))
	r.push(msg(2)) // overflow, drops 0
	r.drainAll()

	r.push(msg(7))
	out := r.drainAll()
	if len(out) != 1 || string(out[0].payload) != "payload-7" {
		t.Errorf("after reuse: got %v", out)
	}
}

func TestRingBufferPreservesQoSAndRetained(t *testing.T) {
	r := newRingBuffer(2)
	r.push(bufferedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	out := r.drainAll()
	if len(out) != 1 {
		t.Fatalf("drained %d, want 1", len(out))
	}
	if out[0].topic != TopicSystem || out[0].qos != 1 || !out[0].retained {
		t.Errorf("message fields lost: %+v", out[0])
	}
}
