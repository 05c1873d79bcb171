package session

import (
	"fmt"
	"sync"
)

// entry pairs a session's state with its push channel.
type entry struct {
	state  PlayerState
	client Client
}

// Registry tracks all players joined to one room. It is the single source of
// truth for room membership: entries are created exactly on join and removed
// exactly on leave, so the key set always equals the set of connected
// sessions. All methods are safe for concurrent use; every mutation is a
// single atomic read-modify-write on one session's entry.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*entry
}

// NewRegistry creates an empty Registry. One Registry belongs to exactly one
// room and is cleared when the room is disposed.
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*entry),
	}
}

// Add registers a newly joined session with spawn-default state.
//
// Precondition: client must be non-nil with a non-empty session ID.
// Postcondition: Returns the created state, or an error if the session is
// already registered.
func (r *Registry) Add(client Client) (PlayerState, error) {
	sid := client.SessionID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[sid]; exists {
		return PlayerState{}, fmt.Errorf("session %q already joined", sid)
	}

	state := NewPlayerState(sid)
	r.players[sid] = &entry{state: state, client: client}
	return state, nil
}

// Remove deletes a session's entry.
//
// Postcondition: Returns the final state, or an error if the session is not
// registered.
func (r *Registry) Remove(sessionID string) (PlayerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.players[sessionID]
	if !exists {
		return PlayerState{}, fmt.Errorf("session %q not joined", sessionID)
	}
	delete(r.players, sessionID)
	return e.state, nil
}

// Get returns a copy of the session's state. A false result for a session
// that sent a message is a protocol violation and must abort that message's
// handling.
func (r *Registry) Get(sessionID string) (PlayerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.players[sessionID]
	if !ok {
		return PlayerState{}, false
	}
	return e.state, true
}

// Update applies fn to the session's state under the registry lock and
// returns a copy of the result. fn must not block; any call that can suspend
// (chain I/O) belongs outside Update.
//
// Postcondition: Returns (updated state, true), or (zero, false) when the
// session has already left; callers discard late results in that case.
func (r *Registry) Update(sessionID string, fn func(*PlayerState)) (PlayerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.players[sessionID]
	if !ok {
		return PlayerState{}, false
	}
	fn(&e.state)
	return e.state, true
}

// Snapshot returns value copies of all current entries, safe to serialize
// into outbound payloads.
func (r *Registry) Snapshot() map[string]PlayerState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]PlayerState, len(r.players))
	for sid, e := range r.players {
		out[sid] = e.state
	}
	return out
}

// Recipients returns the push channels of all currently joined sessions.
// Fan-out reads this at emission time so a session that left between a
// mutation and its broadcast is simply skipped.
func (r *Registry) Recipients() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Client, 0, len(r.players))
	for _, e := range r.players {
		out = append(out, e.client)
	}
	return out
}

// Client returns the push channel for one session.
func (r *Registry) Client(sessionID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.players[sessionID]
	if !ok {
		return nil, false
	}
	return e.client, true
}

// Len returns the number of joined sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Clear removes all entries. Used on room disposal only; no departure
// notifications are sent.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = make(map[string]*entry)
}
