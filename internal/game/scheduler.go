package game

import (
	"context"
	"errors"
	"time"

	"github.com/kb-solutions/crazy-server/internal/engine"
	"github.com/kb-solutions/crazy-server/internal/models"
)

// RunTimeoutScheduler drives the turn clock for every live session until
// ctx is cancelled. One sweep per second.
func (svc *Service) RunTimeoutScheduler(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			svc.SweepTurnClocks(ctx, now)
		}
	}
}

// SweepTurnClocks checks every live session's turn clock once. Sessions
// whose lock is held by an in-flight intent are skipped; the next tick
// catches them up.
func (svc *Service) SweepTurnClocks(ctx context.Context, now time.Time) {
	for _, s := range svc.liveSessions() {
		if !s.mu.TryLock() {
			continue
		}
		svc.tickSessionLocked(ctx, s, now)
		s.mu.Unlock()
	}
}

func (svc *Service) tickSessionLocked(ctx context.Context, s *Session, now time.Time) {
	g := s.game
	if g.Status != models.StatusOngoing {
		return
	}

	remaining := svc.TurnTimeout - now.Sub(g.LastMove)
	if remaining > 0 {
		s.broadcast(Event{
			Type: EventTurnTime,
			Payload: map[string]any{
				"currentPlayer":    g.CurrentPlayer,
				"remainingSeconds": int(remaining.Seconds()),
			},
		})
		return
	}
	svc.enforceTimeoutLocked(ctx, s)
}

// enforceTimeoutLocked punishes an expired turn: the third consecutive
// timeout forfeits the game, otherwise the server draws and passes on the
// player's behalf.
func (svc *Service) enforceTimeoutLocked(ctx context.Context, s *Session) {
	g := s.game
	player := g.CurrentPlayer
	slot := g.Player(player)
	slot.Timeouts++
	svc.logAction(s, player, "turnTimeout", map[string]any{"consecutive": slot.Timeouts})

	if slot.Timeouts >= svc.MaxTimeouts {
		winner := models.OpponentOf(player)
		svc.log.WithField("game", g.Code).WithField("player", player).
			Info("forfeiting on repeated timeouts")
		if err := svc.endGameLocked(ctx, s, winner, models.ResultTimeoutForfeit); err != nil {
			svc.log.WithField("game", g.Code).WithError(err).Error("forfeit settlement failed")
		}
		return
	}

	// Forced move: draw whatever is owed, then pass.
	if !g.HasDrawn {
		if _, err := engine.Draw(g, player); err != nil && !errors.Is(err, engine.ErrNoCardsAvailable) {
			svc.log.WithField("game", g.Code).WithError(err).Error("forced draw failed")
		}
	}
	if err := engine.Pass(g, player); err != nil {
		// No card could be drawn; the turn is skipped outright.
		if err := engine.ForcePass(g, player); err != nil {
			svc.log.WithField("game", g.Code).WithError(err).Error("forced pass failed")
			return
		}
	}

	if out := engine.CheckEnd(g); out.Over {
		if err := svc.endGameLocked(ctx, s, out.Winner, out.Reason); err != nil {
			svc.log.WithField("game", g.Code).WithError(err).Error("end settlement failed")
		}
		return
	}

	svc.persist(ctx, s)
	s.broadcastState(EventGameUpdate, map[string]any{
		"action":   "timeout",
		"by":       player,
		"timeouts": slot.Timeouts,
	})
}
