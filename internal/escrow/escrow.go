// Package escrow moves stake money between the wallet service and game
// sessions: funding on join, winner payout, and refunds on cancellation.
package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kb-solutions/crazy-server/internal/models"
	"github.com/kb-solutions/crazy-server/internal/store"
	"github.com/kb-solutions/crazy-server/internal/wallet"
)

// GameTag identifies this game to the wallet service.
const GameTag = "crazy"

// Winner payout is bet x 1.8; the remaining 0.2 of the doubled pot stays
// with the house.
var (
	payoutMultiplier = decimal.RequireFromString("1.8")
	houseFeeRate     = decimal.RequireFromString("0.2")
)

// ErrFundingFailed wraps a debit rejection during stake funding.
var ErrFundingFailed = errors.New("stake funding failed")

// BalanceUpdate reports a player's wallet balance after an escrow move.
type BalanceUpdate struct {
	Player     int
	NewBalance decimal.Decimal
}

// PayoutResult describes a delivered (or attempted) winner payout.
type PayoutResult struct {
	Amount        decimal.Decimal
	HouseFee      decimal.Decimal
	NewBalance    decimal.Decimal
	TransactionID string
}

// Escrow coordinates wallet operations for staked sessions.
type Escrow struct {
	wallet wallet.Client
	store  store.GameStore
	log    *logrus.Logger
}

// New builds an escrow over the given wallet client and store.
func New(w wallet.Client, s store.GameStore, log *logrus.Logger) *Escrow {
	return &Escrow{wallet: w, store: s, log: log}
}

// FundBets debits both players' stakes when the second player joins.
// Player 1 is debited first; if that fails the game cannot start. If
// player 2's debit then fails, player 1's already-succeeded debit is
// rolled back so neither side ends up charged. Deduction flags and
// transaction ids are recorded on g but not persisted here.
func (e *Escrow) FundBets(ctx context.Context, g *models.Game) ([]BalanceUpdate, error) {
	if !g.HasBet() {
		return nil, nil
	}

	var updates []BalanceUpdate
	for n := 1; n <= 2; n++ {
		slot := g.Player(n)
		if slot.BetDeducted {
			continue
		}
		txID := fmt.Sprintf("CARDS_%s_P%d_BET_%s", g.Code, n, uuid.NewString())
		res, err := e.wallet.Debit(ctx, slot.AuthToken, wallet.Transaction{
			TransactionID: txID,
			RoundID:       g.Code,
			UserID:        slot.Phone,
			Username:      slot.Username,
			Amount:        g.Bet,
			Game:          GameTag,
			Status:        "pending",
		})
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"game":   g.Code,
				"player": n,
				"tx":     txID,
			}).WithError(err).Warn("bet debit failed")
			if n == 2 {
				e.rollbackFunding(ctx, g)
			}
			return nil, fmt.Errorf("%w: player %d: %v", ErrFundingFailed, n, err)
		}
		slot.BetDeducted = true
		slot.BetTransactionID = txID
		updates = append(updates, BalanceUpdate{Player: n, NewBalance: res.NewBalance})
	}
	return updates, nil
}

// rollbackFunding reverses any debit already taken for g. Flags are
// cleared only for players whose rollback succeeded, so a later refund
// pass can still see what remains owed.
func (e *Escrow) rollbackFunding(ctx context.Context, g *models.Game) {
	for n := 1; n <= 2; n++ {
		slot := g.Player(n)
		if !slot.BetDeducted {
			continue
		}
		txID := fmt.Sprintf("ROLLBACK_%s_P%d_%s", g.Code, n, uuid.NewString())
		_, err := e.wallet.CreditRollback(ctx, slot.AuthToken, wallet.Transaction{
			TransactionID: txID,
			RoundID:       g.Code,
			UserID:        slot.Phone,
			Username:      slot.Username,
			Amount:        g.Bet,
			Game:          GameTag,
			Status:        "rollback",
			Metadata:      map[string]any{"original_transaction": slot.BetTransactionID},
		})
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"game":        g.Code,
				"player":      n,
				"original_tx": slot.BetTransactionID,
			}).WithError(err).Error("bet rollback failed, player remains charged")
			continue
		}
		slot.BetDeducted = false
		slot.BetTransactionID = ""
	}
}

// PayoutWinner credits the winning player bet x 1.8 and records the house
// fee on g. A credit failure never blocks game completion: the payout is
// written to the failed-payout ledger for manual reconciliation and the
// returned result still carries the amounts owed.
func (e *Escrow) PayoutWinner(ctx context.Context, g *models.Game, winner int) (PayoutResult, error) {
	out := PayoutResult{
		Amount:   g.Bet.Mul(payoutMultiplier),
		HouseFee: g.Bet.Mul(houseFeeRate),
	}
	if !g.HasBet() {
		return out, nil
	}

	slot := g.Player(winner)
	out.TransactionID = fmt.Sprintf("CARDS_%s_WIN_%s", g.Code, uuid.NewString())
	res, err := e.wallet.Credit(ctx, slot.AuthToken, wallet.Transaction{
		TransactionID: out.TransactionID,
		RoundID:       g.Code,
		UserID:        slot.Phone,
		Username:      slot.Username,
		Amount:        out.Amount,
		Game:          GameTag,
		Status:        "completed",
		Metadata: map[string]any{
			"reason":       "win",
			"original_bet": g.Bet.String(),
			"house_fee":    out.HouseFee.String(),
			"net_winnings": out.Amount.Sub(g.Bet).String(),
		},
	})
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"game":   g.Code,
			"winner": winner,
			"amount": out.Amount,
		}).WithError(err).Error("winner payout failed, recording for reconciliation")
		ledgerErr := e.store.InsertFailedPayout(ctx, store.FailedPayout{
			GameCode:      g.Code,
			Winner:        slot.Phone,
			Amount:        out.Amount,
			Error:         err.Error(),
			TransactionID: out.TransactionID,
		})
		if ledgerErr != nil {
			e.log.WithField("game", g.Code).WithError(ledgerErr).
				Error("failed payout could not be recorded")
		}
		return out, err
	}
	out.NewBalance = res.NewBalance
	return out, nil
}

// RefundBets credits each deducted player their full stake back. Refunds
// are independent: one player's failure does not block the other's. The
// flags of successfully refunded players are cleared on g.
func (e *Escrow) RefundBets(ctx context.Context, g *models.Game, reason string) ([]BalanceUpdate, error) {
	if !g.HasBet() {
		return nil, nil
	}

	var (
		updates []BalanceUpdate
		errs    []error
	)
	for n := 1; n <= 2; n++ {
		slot := g.Player(n)
		if !slot.BetDeducted {
			continue
		}
		txID := "REFUND_" + slot.BetTransactionID
		res, err := e.wallet.Credit(ctx, slot.AuthToken, wallet.Transaction{
			TransactionID: txID,
			RoundID:       g.Code,
			UserID:        slot.Phone,
			Username:      slot.Username,
			Amount:        g.Bet,
			Game:          GameTag,
			Status:        "completed",
			Metadata:      map[string]any{"reason": reason},
		})
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"game":   g.Code,
				"player": n,
				"tx":     txID,
			}).WithError(err).Error("bet refund failed")
			errs = append(errs, fmt.Errorf("refund player %d: %w", n, err))
			continue
		}
		slot.BetDeducted = false
		updates = append(updates, BalanceUpdate{Player: n, NewBalance: res.NewBalance})
	}
	return updates, errors.Join(errs...)
}
