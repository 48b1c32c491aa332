package registry

import (
	"encoding/json"
	"sync"
	"testing"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	full   bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(p []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full || c.closed {
		return false
	}
	c.sent = append(c.sent, p)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func TestAttachReplacesAndClosesOld(t *testing.T) {
	r := New()
	a := &fakeConn{id: "c1"}
	b := &fakeConn{id: "c2"}

	if old := r.Attach("u1", a); old != nil {
		t.Fatalf("unexpected replaced conn %v", old)
	}
	if old := r.Attach("u1", b); old != a {
		t.Fatalf("expected c1 to be replaced, got %v", old)
	}
	if !a.closed {
		t.Fatal("old connection should be closed")
	}
	if _, ok := r.UserOf("c1"); ok {
		t.Fatal("old connection should be unmapped")
	}
	if u, ok := r.UserOf("c2"); !ok || u != "u1" {
		t.Fatalf("UserOf(c2) = %q, %v", u, ok)
	}
}

func TestDetachOnlyCurrent(t *testing.T) {
	r := New()
	a := &fakeConn{id: "c1"}
	b := &fakeConn{id: "c2"}
	r.Attach("u1", a)
	r.Attach("u1", b)

	if r.Detach("u1", a) {
		t.Fatal("stale connection must not detach the current one")
	}
	if !r.Connected("u1") {
		t.Fatal("u1 should still be connected")
	}
	if !r.Detach("u1", b) {
		t.Fatal("current connection should detach")
	}
	if r.Connected("u1") {
		t.Fatal("u1 should be gone")
	}
}

func TestSendToAndBroadcast(t *testing.T) {
	r := New()
	a := &fakeConn{id: "c1"}
	b := &fakeConn{id: "c2", full: true}
	r.Attach("u1", a)
	r.Attach("u2", b)

	if !r.SendTo("u1", "gameUpdate", map[string]int{"n": 1}) {
		t.Fatal("send to u1 should succeed")
	}
	if r.SendTo("bot_x", "gameUpdate", nil) {
		t.Fatal("unknown user should not be reachable")
	}
	if n := r.Broadcast("roomsList", []string{}); n != 1 {
		t.Fatalf("broadcast reached %d, want 1", n)
	}

	var env struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(a.sent[0], &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "gameUpdate" || env.Data["n"] != 1 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(r.Users()) != 2 {
		t.Fatalf("users = %v", r.Users())
	}
}
