// Package cache publishes per-action audit records to a Redis queue for the
// historian consumer.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ActionQueueKey is the Redis list the historian drains.
const ActionQueueKey = "crazy:game_actions"

// GameActionRecord is one entry of a session's action history.
type GameActionRecord struct {
	GameCode    string         `json:"gameCode"`
	ActionIndex int            `json:"actionIndex"`
	Actor       int            `json:"actor"` // player number; 0 for game events
	ActionType  string         `json:"actionType"`
	Payload     map[string]any `json:"payload"`
	Timestamp   int64          `json:"timestamp"` // unix millis
}

// Publisher pushes action records onto the historian queue.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher wraps an existing Redis client. A nil client yields a
// publisher that drops records, which keeps the game service runnable
// without Redis.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// PublishGameAction appends rec to the action queue.
func (p *Publisher) PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if p.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode action record: %w", err)
	}
	if err := p.rdb.RPush(ctx, ActionQueueKey, raw).Err(); err != nil {
		return fmt.Errorf("publish action record: %w", err)
	}
	return nil
}
