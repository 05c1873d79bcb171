// Package session provides the in-memory player registry for a room:
// per-session player state plus the push channel used to reach each client.
package session

// Spawn defaults for a newly joined player.
const (
	DefaultMap = "town"
	DefaultX   = 352
	DefaultY   = 1216
)

// PlayerState is one connected session's game state. It is owned by the
// Registry for the session's lifetime; callers receive value copies and
// mutate through Registry.Update.
type PlayerState struct {
	// SessionID is the transport-assigned identity, stable for the connection.
	SessionID string `json:"sessionId"`
	// Map is the current logical zone name.
	Map string `json:"map"`
	// X, Y are the last known position.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// WalletAddress is the linked chain address, empty until wallet connect.
	WalletAddress string `json:"walletAddress"`
	// Authenticated is true once a wallet connect succeeded.
	Authenticated bool `json:"authenticated"`
	// SolBalance and TokenBalance are last-observed caches; they go stale
	// until the next explicit re-fetch.
	SolBalance   float64 `json:"solBalance"`
	TokenBalance float64 `json:"tokenBalance"`
	// BattleWins counts battles won this session.
	BattleWins int `json:"battleWins,omitempty"`
}

// NewPlayerState returns the spawn-default state for a session.
func NewPlayerState(sessionID string) PlayerState {
	return PlayerState{
		SessionID: sessionID,
		Map:       DefaultMap,
		X:         DefaultX,
		Y:         DefaultY,
	}
}

// HasWallet reports whether a wallet has been linked to this session.
func (p PlayerState) HasWallet() bool {
	return p.WalletAddress != ""
}

// Client is the per-session push channel the room uses to reach one player.
// Implementations must be safe for concurrent use and must not block in Send.
type Client interface {
	// SessionID returns the transport-assigned session identity.
	SessionID() string
	// Send enqueues one typed message to the client. A closed or saturated
	// client returns an error; the caller logs and moves on.
	Send(msgType string, payload any) error
}
