package room

import (
	"encoding/json"

	"github.com/hiehoo/pokemmo-server/internal/game/session"
)

// Inbound message types (session → room). Movement and map-change types are
// echoed verbatim on the outbound side.
const (
	MsgWalletConnect       = "WALLET_CONNECT"
	MsgPlayerMoved         = "PLAYER_MOVED"
	MsgPlayerMovementEnded = "PLAYER_MOVEMENT_ENDED"
	MsgPlayerChangedMap    = "PLAYER_CHANGED_MAP"
	MsgBattleWon           = "BATTLE_WON"
	MsgCheckBalance        = "CHECK_BALANCE"
)

// Outbound-only message types (room → sessions).
const (
	MsgWalletConnected       = "WALLET_CONNECTED"
	MsgWalletError           = "WALLET_ERROR"
	MsgPlayerWalletConnected = "PLAYER_WALLET_CONNECTED"
	MsgRewardReceived        = "REWARD_RECEIVED"
	MsgCurrentPlayers        = "CURRENT_PLAYERS"
	MsgBattleError           = "BATTLE_ERROR"
	MsgPlayerWonBattle       = "PLAYER_WON_BATTLE"
	MsgBalanceError          = "BALANCE_ERROR"
	MsgBalanceUpdate         = "BALANCE_UPDATE"
	MsgPlayerJoined          = "PLAYER_JOINED"
	MsgPlayerLeft            = "PLAYER_LEFT"
)

// WalletConnectRequest is the WALLET_CONNECT payload.
type WalletConnectRequest struct {
	WalletAddress string `json:"walletAddress"`
	Token         string `json:"token"`
}

// MoveRequest is the PLAYER_MOVED payload. Position is an opaque client
// animation hint, passed through untouched.
type MoveRequest struct {
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Position json.RawMessage `json:"position,omitempty"`
}

// MovementEndedRequest is the PLAYER_MOVEMENT_ENDED payload.
type MovementEndedRequest struct {
	Position json.RawMessage `json:"position,omitempty"`
}

// ChangeMapRequest is the PLAYER_CHANGED_MAP payload.
type ChangeMapRequest struct {
	Map string `json:"map"`
}

// BattleWonRequest is the BATTLE_WON payload.
type BattleWonRequest struct {
	Opponent string `json:"opponent,omitempty"`
}

// ErrorPayload carries a human-readable error to the originating session only.
type ErrorPayload struct {
	Error string `json:"error"`
}

// WalletConnectedPayload confirms a successful wallet link to the sender.
type WalletConnectedPayload struct {
	WalletAddress string  `json:"walletAddress"`
	SolBalance    float64 `json:"solBalance"`
	TokenBalance  float64 `json:"tokenBalance"`
}

// PlayerWalletConnectedPayload notifies peers that a player linked a wallet.
type PlayerWalletConnectedPayload struct {
	SessionID     string `json:"sessionId"`
	WalletAddress string `json:"walletAddress"`
}

// RewardReceivedPayload is the receipt for one reward transfer.
type RewardReceivedPayload struct {
	Type      string `json:"type"`
	Amount    uint64 `json:"amount"`
	Signature string `json:"signature"`
	NewMap    string `json:"newMap,omitempty"`
	Opponent  string `json:"opponent,omitempty"`
}

// PlayerMovedPayload is the peer broadcast for one movement update.
type PlayerMovedPayload struct {
	session.PlayerState
	Position json.RawMessage `json:"position,omitempty"`
}

// MovementEndedPayload is the peer broadcast for a terminal position.
type MovementEndedPayload struct {
	SessionID string          `json:"sessionId"`
	Map       string          `json:"map"`
	Position  json.RawMessage `json:"position,omitempty"`
}

// CurrentPlayersPayload is the full registry snapshot for client sync.
type CurrentPlayersPayload struct {
	Players map[string]session.PlayerState `json:"players"`
}

// MapChangedPayload is the all-sessions broadcast after a map change. X and Y
// are the server-confirmed spawn coordinates on the new map.
type MapChangedPayload struct {
	SessionID string                         `json:"sessionId"`
	Map       string                         `json:"map"`
	X         float64                        `json:"x"`
	Y         float64                        `json:"y"`
	Players   map[string]session.PlayerState `json:"players"`
}

// BattleWonBroadcast announces a rewarded battle win to all sessions.
type BattleWonBroadcast struct {
	SessionID string `json:"sessionId"`
	Opponent  string `json:"opponent,omitempty"`
	Rewarded  bool   `json:"rewarded"`
}

// BalanceUpdatePayload is the refreshed balance snapshot for the sender.
type BalanceUpdatePayload struct {
	SolBalance    float64 `json:"solBalance"`
	TokenBalance  float64 `json:"tokenBalance"`
	WalletAddress string  `json:"walletAddress"`
}

// PlayerLeftPayload announces a departure to the remaining sessions.
type PlayerLeftPayload struct {
	SessionID     string `json:"sessionId"`
	Map           string `json:"map"`
	WalletAddress string `json:"walletAddress"`
}
