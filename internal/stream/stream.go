// Package stream fans investigation events out to the WebSocket viewers of
// a session and tees live events into the persistent event log.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
)

// Conn is one attached viewer. The concrete type wraps a WebSocket; tests
// substitute in-memory fakes.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Persister records live events for later replay.
type Persister interface {
	Append(ctx context.Context, tenderID string, payload []byte) error
}

type binding struct {
	tenderID string
	replay   bool
}

// Registry tracks viewer connections per session and routes emitted events
// to them. The tender binding of a session lives independently of its
// connection set: viewers may come and go while a run keeps recording.
// The registry never reorders deliveries; events from a single emitter
// reach each connection in Emit call order.
type Registry struct {
	mu       sync.Mutex
	conns    map[string][]Conn
	bindings map[string]binding

	persist Persister
	log     *logging.Logger
}

// NewRegistry creates a Registry. persist may be nil, in which case events
// are delivered but never stored.
func NewRegistry(persist Persister, log *logging.Logger) *Registry {
	return &Registry{
		conns:    make(map[string][]Conn),
		bindings: make(map[string]binding),
		persist:  persist,
		log:      log,
	}
}

// Register attaches a connection to a session.
func (r *Registry) Register(sessionID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sessionID] = append(r.conns[sessionID], conn)
	r.log.Debugf("conn_registered session=%s conns=%d", sessionID, len(r.conns[sessionID]))
}

// Unregister detaches a connection. The tender binding survives: a live run
// keeps persisting after its last viewer disconnects. Unknown connections
// are ignored, so double unregistration is safe.
func (r *Registry) Unregister(sessionID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.conns[sessionID]
	if !ok {
		return
	}
	for i, c := range conns {
		if c == conn {
			r.conns[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.conns[sessionID]) == 0 {
		delete(r.conns, sessionID)
		r.log.Debugf("viewers_gone session=%s", sessionID)
	}
}

// BindTender associates a session with a tender. Replay sessions deliver
// events without re-persisting them. The binding holds until Release.
func (r *Registry) BindTender(sessionID, tenderID string, replay bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[sessionID] = binding{tenderID: tenderID, replay: replay}
}

// Release drops the session entirely: its tender binding and any remaining
// connections. Called once the run or replay behind the session finishes.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, sessionID)
	delete(r.conns, sessionID)
	r.log.Debugf("session_released session=%s", sessionID)
}

// ConnCount returns the number of connections attached to a session.
func (r *Registry) ConnCount(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[sessionID])
}

// Emit marshals the observation once, persists it when the session is bound
// to a live (non-replay) tender, and delivers it to every attached viewer.
// A connection that fails to accept the write is closed and dropped; other
// viewers are unaffected. Emit never fails because a viewer went away —
// the investigation outlives its audience.
func (r *Registry) Emit(ctx context.Context, sessionID string, obs model.Observation) error {
	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	return r.EmitRaw(ctx, sessionID, payload)
}

// EmitRaw delivers a pre-marshaled event payload. Replay uses this to send
// stored payloads byte for byte.
func (r *Registry) EmitRaw(ctx context.Context, sessionID string, payload []byte) error {
	r.mu.Lock()
	conns := append([]Conn(nil), r.conns[sessionID]...)
	bind, bound := r.bindings[sessionID]
	r.mu.Unlock()

	if bound && !bind.replay && r.persist != nil {
		if err := r.persist.Append(ctx, bind.tenderID, payload); err != nil {
			r.log.Errorf("persist_event_failed tender=%s error=%v", bind.tenderID, err)
		}
	}

	for _, conn := range conns {
		if err := conn.Send(ctx, payload); err != nil {
			r.log.Warnf("send_failed session=%s error=%v", sessionID, err)
			conn.Close()
			r.Unregister(sessionID, conn)
		}
	}
	return nil
}
