package registry

import (
	"encoding/json"
	"expvar"
	"sync"

	"github.com/rs/zerolog/log"
)

var metricConnectionsActive = expvar.NewInt("registry_connections_active")

// Conn is a live client connection. Send must not block.
type Conn interface {
	ID() string
	Send(payload []byte) bool
	Close()
}

type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func Encode(msgType string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, Data: data})
}

// Registry maps a user identity to its single attached connection.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[string]string
}

func New() *Registry {
	return &Registry{
		byUser: map[string]Conn{},
		byConn: map[string]string{},
	}
}

// Attach binds c to userID. An older connection for the same user is
// closed and returned.
func (r *Registry) Attach(userID string, c Conn) Conn {
	r.mu.Lock()
	old := r.byUser[userID]
	if old != nil && old.ID() == c.ID() {
		r.mu.Unlock()
		return nil
	}
	if old != nil {
		delete(r.byConn, old.ID())
	} else {
		metricConnectionsActive.Add(1)
	}
	r.byUser[userID] = c
	r.byConn[c.ID()] = userID
	r.mu.Unlock()

	if old != nil {
		log.Info().Str("user_id", userID).Str("old_conn_id", old.ID()).Str("conn_id", c.ID()).Msg("connection replaced")
		old.Close()
	}
	return old
}

// Detach removes the binding only if c is still the current connection.
func (r *Registry) Detach(userID string, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byUser[userID]
	if !ok || cur.ID() != c.ID() {
		return false
	}
	delete(r.byUser, userID)
	delete(r.byConn, c.ID())
	metricConnectionsActive.Add(-1)
	return true
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byConn[connID]
	return u, ok
}

func (r *Registry) Connected(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	return out
}

// SendTo reports whether the message was queued on the user's connection.
func (r *Registry) SendTo(userID, msgType string, data any) bool {
	c, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	payload, err := Encode(msgType, data)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("encode message failed")
		return false
	}
	return c.Send(payload)
}

// Broadcast sends to every attached user and returns how many were reached.
func (r *Registry) Broadcast(msgType string, data any) int {
	payload, err := Encode(msgType, data)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("encode message failed")
		return 0
	}
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.byUser))
	for _, c := range r.byUser {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	n := 0
	for _, c := range conns {
		if c.Send(payload) {
			n++
		}
	}
	return n
}
