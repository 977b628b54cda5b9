package rpc_test

import (
	"sync"
	"testing"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/rpc"
)

type queue struct {
	mu     sync.Mutex
	events []moog.Event
}

func (q *queue) Send(ev moog.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 2 {
		return false
	}
	q.events = append(q.events, ev)
	return true
}

func TestSendReceive(t *testing.T) {
	q := &queue{}
	l, err := rpc.Receiver("127.0.0.1:0", q)
	if err != nil {
		t.Fatalf("rpc.Receiver error: %v", err)
	}
	defer l.Close()
	sender, err := rpc.Dial(l.Addr().String())
	if err != nil {
		t.Fatalf("rpc.Dial error: %v", err)
	}
	defer sender.Close()
	sent := []moog.Event{moog.NoteOn(60, 100), moog.ControlChange(1, 64), moog.PitchBend(0)}
	for i, ev := range sent {
		if got, want := sender.Send(ev), i < 2; got != want {
			t.Fatalf("event %d: accepted %v, expected %v", i, got, want)
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, ev := range q.events {
		if ev != sent[i] {
			t.Fatalf("event %d: got %v, expected %v", i, ev, sent[i])
		}
	}
}
