// Package store persists game records and the failed-payout ledger.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kb-solutions/crazy-server/internal/models"
)

// ErrNotFound is returned when no game exists for a code.
var ErrNotFound = errors.New("game not found")

// OpenGame is a listing entry for a joinable session.
type OpenGame struct {
	Code      string          `json:"code"`
	Username  string          `json:"player1_username"`
	Bet       decimal.Decimal `json:"bet"`
	CreatedAt time.Time       `json:"created_at"`
}

// FailedPayout is a durable record of a payout credit that could not be
// delivered and needs manual reconciliation.
type FailedPayout struct {
	GameCode      string
	Winner        string // winner's user id
	Amount        decimal.Decimal
	Error         string
	TransactionID string
	Resolved      bool
}

// GameStore is the persistence collaborator consumed by the game service.
type GameStore interface {
	// GetByCode reads the full game record, or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*models.Game, error)
	// Insert writes a brand-new game record.
	Insert(ctx context.Context, g *models.Game) error
	// Update overwrites the record for g.Code with g's current state.
	Update(ctx context.Context, g *models.Game) error
	// ListOpen returns public waiting games, newest first.
	ListOpen(ctx context.Context) ([]OpenGame, error)
	// InsertFailedPayout appends to the manual-reconciliation ledger.
	InsertFailedPayout(ctx context.Context, fp FailedPayout) error
}
