package session

import (
	"reflect"
	"testing"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
)

func TestRenderAddsThinkingWhileSending(t *testing.T) {
	msgs := []chat.Message{msg("1", "seed", chat.Received), msg("2", "Hello", chat.Sent)}

	idle := Render(msgs, Idle)
	if len(idle) != 2 {
		t.Fatalf("expected 2 entries when idle, got %d", len(idle))
	}

	sending := Render(msgs, Sending)
	if len(sending) != 3 {
		t.Fatalf("expected 3 entries while sending, got %d", len(sending))
	}
	last := sending[2]
	if !last.Pending || last.Text != ThinkingText || last.Sender != chat.Received {
		t.Fatalf("unexpected placeholder %+v", last)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	msgs := []chat.Message{msg("1", "seed", chat.Received)}
	a := Render(msgs, Sending)
	b := Render(msgs, Sending)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("render not idempotent: %+v vs %+v", a, b)
	}
}

func TestAdapterScrollsOnChange(t *testing.T) {
	var scrolled []Entry
	var renders int
	a := NewAdapter(func([]Entry) { renders++ }, func(e Entry) { scrolled = append(scrolled, e) })

	msgs := []chat.Message{msg("1", "seed", chat.Received)}
	a.Observe(Snapshot{Messages: msgs, State: Idle})
	a.Observe(Snapshot{Messages: msgs, State: Idle})
	if len(scrolled) != 1 {
		t.Fatalf("expected a single scroll for unchanged snapshot, got %d", len(scrolled))
	}

	msgs = append(msgs, msg("2", "Hello", chat.Sent))
	a.Observe(Snapshot{Messages: msgs, State: Sending})
	if len(scrolled) != 2 || !scrolled[1].Pending {
		t.Fatalf("expected scroll to thinking placeholder, got %+v", scrolled)
	}

	a.Observe(Snapshot{Messages: msgs, State: Idle})
	if len(scrolled) != 3 || scrolled[2].ID != "2" {
		t.Fatalf("expected scroll back to newest message, got %+v", scrolled)
	}
	if renders != 4 {
		t.Fatalf("expected 4 renders, got %d", renders)
	}
}

func TestAdapterAttachFollowsSession(t *testing.T) {
	svc := &scriptedService{}
	s := newTestSession(svc)

	var scrolls []Entry
	a := NewAdapter(nil, func(e Entry) { scrolls = append(scrolls, e) })
	a.Attach(s)

	wait(t, mustSend(t, s, "Hello"))

	// initial render, sending, idle
	if len(scrolls) != 3 {
		t.Fatalf("expected 3 scrolls, got %d", len(scrolls))
	}
	if scrolls[2].Text != "ok" {
		t.Fatalf("expected final scroll to the reply, got %+v", scrolls[2])
	}
}
