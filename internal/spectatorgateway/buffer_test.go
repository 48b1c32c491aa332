package spectatorgateway

import (
	"testing"

	"board-arena/internal/game/viewmodel"
)

func TestEventBufferOrderAndReplay(t *testing.T) {
	buf := NewEventBuffer(10)
	ev1 := buf.Append("a", "r1", map[string]any{"n": 1})
	ev2 := buf.Append("b", "r1", map[string]any{"n": 2})
	ev3 := buf.Append("c", "r1", map[string]any{"n": 3})

	if ev1.EventID != "1" || ev2.EventID != "2" || ev3.EventID != "3" {
		t.Fatalf("unexpected event ids: %s %s %s", ev1.EventID, ev2.EventID, ev3.EventID)
	}
	replay := buf.ReplayAfter("1")
	if len(replay) != 2 || replay[0].EventID != "2" || replay[1].EventID != "3" {
		t.Fatalf("unexpected replay: %+v", replay)
	}
	if all := buf.ReplayAfter(""); len(all) != 3 {
		t.Fatalf("expected full replay, got %d", len(all))
	}
}

func TestEventBufferTrimsToMax(t *testing.T) {
	buf := NewEventBuffer(2)
	for i := 0; i < 5; i++ {
		buf.Append("e", "r1", i)
	}
	replay := buf.ReplayAfter("")
	if len(replay) != 2 || replay[0].EventID != "4" {
		t.Fatalf("unexpected trimmed replay: %+v", replay)
	}
}

func TestHubEndClosesSubscribers(t *testing.T) {
	hub := NewHub(10)
	hub.Publish("r1", "gameStart", viewmodel.PublicView{RoomID: "r1"})
	ch := hub.buffer("r1").Subscribe()

	hub.Publish("r1", "gameUpdate", viewmodel.PublicView{RoomID: "r1"})
	if ev := <-ch; ev.Event != "gameUpdate" || ev.EventID != "2" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	hub.End("r1")
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after End")
	}
	if hub.Rooms() != 0 {
		t.Fatalf("expected no rooms, got %d", hub.Rooms())
	}
	// publishing after the end starts a fresh buffer and must not panic
	hub.Publish("r1", "gameUpdate", viewmodel.PublicView{})
	hub.End("r1")
}
