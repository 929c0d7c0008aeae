package game

// EventType identifies a server-to-client game event.
type EventType string

// Event types pushed over the session's transport.
const (
	// EventGameState carries a full per-player snapshot, sent on join,
	// reconnect and game start.
	EventGameState EventType = "gameState"
	// EventGameUpdate carries a snapshot plus the action that caused it.
	EventGameUpdate EventType = "gameUpdate"
	// EventCardOptions asks the acting player to nominate a suit for a
	// pending wildcard play.
	EventCardOptions EventType = "cardOptions"
	// EventBalanceUpdate reports a player's wallet balance after an
	// escrow move. Always private.
	EventBalanceUpdate EventType = "balanceUpdate"
	// EventPayout reports the winner's payout delivery. Private.
	EventPayout EventType = "payout"
	// EventGameOver announces the terminal result to both players.
	EventGameOver EventType = "gameOver"
	// EventGameCancelled announces cancellation or abandonment.
	EventGameCancelled EventType = "gameCancelled"
	// EventGameError reports a rejected intent to its sender. Private.
	EventGameError EventType = "gameError"
	// EventTurnTime carries the remaining seconds of the current turn.
	EventTurnTime EventType = "turnTimeUpdate"
)

// Event is the envelope broadcast to clients.
type Event struct {
	Type    EventType      `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}
