package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kb-solutions/crazy-server/internal/engine"
	"github.com/kb-solutions/crazy-server/internal/models"
	"github.com/kb-solutions/crazy-server/internal/store"
)

// Lifecycle guard errors, sent back to the offending player.
var (
	ErrGameNotJoinable   = errors.New("game is not open for joining")
	ErrCannotJoinOwnGame = errors.New("cannot join your own game")
	ErrNotGameCreator    = errors.New("only the game creator can cancel")
)

// codeAlphabet omits easily confused characters.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newGameCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// CreateParams identifies the creating player and the session terms.
type CreateParams struct {
	Phone     string
	Username  string
	AuthToken string
	Bet       decimal.Decimal
	IsPrivate bool
}

// CreateGame deals a new session with the creator in seat 1 and registers
// it as waiting for an opponent. No money moves until the opponent joins.
func (svc *Service) CreateGame(ctx context.Context, p CreateParams) (*Session, error) {
	g := engine.NewGame(newGameCode())
	g.Players[0].Phone = p.Phone
	g.Players[0].Username = p.Username
	g.Players[0].AuthToken = p.AuthToken
	g.Bet = p.Bet
	g.IsPrivate = p.IsPrivate

	if err := svc.store.Insert(ctx, g); err != nil {
		return nil, err
	}

	s := &Session{game: g}
	s.connected[0] = true
	svc.register(s)
	svc.logAction(s, 1, "gameCreated", map[string]any{
		"bet":     g.Bet.String(),
		"private": g.IsPrivate,
	})
	svc.log.WithFields(logrus.Fields{
		"game": g.Code,
		"bet":  g.Bet.String(),
	}).Info("game created")
	return s, nil
}

// JoinGame seats the joining player, funds both stakes and starts play.
// If funding fails neither player stays charged and the session is
// cancelled and released; it never reaches ongoing.
func (svc *Service) JoinGame(ctx context.Context, code, phone, username, authToken string) (*Session, error) {
	s, err := svc.sessionOrRehydrate(ctx, code)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	if g.Status != models.StatusWaiting || g.Players[1].Joined() {
		return nil, ErrGameNotJoinable
	}
	if g.Players[0].Phone == phone {
		return nil, ErrCannotJoinOwnGame
	}

	g.Players[1].Phone = phone
	g.Players[1].Username = username
	g.Players[1].AuthToken = authToken

	updates, err := svc.escrow.FundBets(ctx, g)
	if err != nil {
		// Funding aborted and rolled back. The session cannot start and
		// must not stay joinable: tell the room, then release it.
		g.Players[1] = models.PlayerSlot{Cards: g.Players[1].Cards}
		s.broadcast(Event{
			Type:    EventGameError,
			Payload: map[string]any{"message": "bet deduction failed, game cancelled"},
		})
		if cerr := svc.closeLocked(ctx, s, models.StatusCancelled, models.ResultIncompleteBets, "funding failed"); cerr != nil {
			svc.log.WithField("game", g.Code).WithError(cerr).Error("session release failed after funding error")
		}
		return nil, err
	}

	g.Status = models.StatusOngoing
	g.Touch(true)
	s.connected[1] = true
	svc.persist(ctx, s)

	for _, u := range updates {
		s.sendTo(u.Player, Event{
			Type:    EventBalanceUpdate,
			Payload: map[string]any{"balance": u.NewBalance},
		})
	}
	svc.logAction(s, 2, "playerJoined", map[string]any{"username": username})
	s.broadcastState(EventGameState, map[string]any{"action": "start"})
	svc.log.WithField("game", g.Code).Info("game started")
	return s, nil
}

// sessionOrRehydrate returns the live session for code, reloading a
// persisted waiting game into the registry after a restart.
func (svc *Service) sessionOrRehydrate(ctx context.Context, code string) (*Session, error) {
	if s, ok := svc.Session(code); ok {
		return s, nil
	}
	g, err := svc.store.GetByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if g.Status != models.StatusWaiting {
		return nil, ErrGameNotJoinable
	}
	s := &Session{game: g}
	svc.register(s)
	return s, nil
}

// CancelGame lets the creator withdraw a game nobody has joined.
func (svc *Service) CancelGame(ctx context.Context, code string, player int) error {
	s, ok := svc.Session(code)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if player != 1 {
		return ErrNotGameCreator
	}
	if s.game.Status != models.StatusWaiting {
		return ErrGameNotJoinable
	}
	return svc.closeLocked(ctx, s, models.StatusCancelled, models.ResultAbandoned, "cancelled")
}

// Reconnect marks the player connected again and resends their full view.
func (svc *Service) Reconnect(code string, player int) error {
	s, ok := svc.Session(code)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected[player-1] = true
	s.sendTo(player, Event{Type: EventGameState, Payload: s.snapshotFor(player)})
	return nil
}

// HandleDisconnect records a dropped connection. A waiting game dies with
// its creator; an ongoing game survives one absent player (the turn clock
// punishes them) but is abandoned with refunds once both are gone.
func (svc *Service) HandleDisconnect(ctx context.Context, code string, player int) error {
	s, ok := svc.Session(code)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected[player-1] = false
	g := s.game

	switch {
	case g.Status == models.StatusWaiting && player == 1:
		return svc.closeLocked(ctx, s, models.StatusAbandoned, models.ResultAbandoned, "creator left")
	case g.Status == models.StatusOngoing && !s.connected[0] && !s.connected[1]:
		return svc.closeLocked(ctx, s, models.StatusAbandoned, models.ResultAbandoned, "both players left")
	}
	return nil
}

// closeLocked terminates a session without a winner, refunding whatever
// stakes were deducted. Lock must be held.
func (svc *Service) closeLocked(ctx context.Context, s *Session, status models.GameStatus, result, reason string) error {
	g := s.game
	if g.Status.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	g.Status = status
	g.Result = result
	g.EndedAt = &now
	g.Touch(false)

	updates, err := svc.escrow.RefundBets(ctx, g, result)
	for _, u := range updates {
		s.sendTo(u.Player, Event{
			Type:    EventBalanceUpdate,
			Payload: map[string]any{"balance": u.NewBalance},
		})
	}
	if err != nil {
		svc.log.WithField("game", g.Code).WithError(err).Error("refund incomplete on close")
	}

	svc.persist(ctx, s)
	svc.logAction(s, 0, "gameClosed", map[string]any{"status": string(status), "reason": reason})
	s.broadcast(Event{
		Type:    EventGameCancelled,
		Payload: map[string]any{"reason": reason},
	})
	svc.unregister(g.Code)
	svc.log.WithFields(logrus.Fields{"game": g.Code, "reason": reason}).Info("game closed")
	return nil
}

// endGameLocked settles a decided session: marks it finished, pays the
// winner or refunds on a draw, persists and announces the result. Safe to
// call twice; only the first call settles. Lock must be held.
func (svc *Service) endGameLocked(ctx context.Context, s *Session, winner int, result string) error {
	g := s.game
	if g.Status.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	g.Status = models.StatusFinished
	g.Winner = winner
	g.Result = result
	g.EndedAt = &now
	g.Touch(false)

	if g.HasBet() {
		switch {
		case !g.Players[0].BetDeducted || !g.Players[1].BetDeducted:
			// Escrow never completed; nobody can be paid out of it.
			g.Result = models.ResultIncompleteBets
			g.Winner = 0
			updates, err := svc.escrow.RefundBets(ctx, g, models.ResultIncompleteBets)
			for _, u := range updates {
				s.sendTo(u.Player, Event{
					Type:    EventBalanceUpdate,
					Payload: map[string]any{"balance": u.NewBalance},
				})
			}
			if err != nil {
				svc.log.WithField("game", g.Code).WithError(err).Error("incomplete-bet refund failed")
			}

		case winner != 0:
			res, err := svc.escrow.PayoutWinner(ctx, g, winner)
			g.PayoutAmount = res.Amount
			g.HouseFee = res.HouseFee
			if err == nil {
				s.sendTo(winner, Event{
					Type: EventPayout,
					Payload: map[string]any{
						"amount":        res.Amount,
						"transactionId": res.TransactionID,
					},
				})
				s.sendTo(winner, Event{
					Type:    EventBalanceUpdate,
					Payload: map[string]any{"balance": res.NewBalance},
				})
			}

		default:
			updates, err := svc.escrow.RefundBets(ctx, g, models.ResultDraw)
			for _, u := range updates {
				s.sendTo(u.Player, Event{
					Type:    EventBalanceUpdate,
					Payload: map[string]any{"balance": u.NewBalance},
				})
			}
			if err != nil {
				svc.log.WithField("game", g.Code).WithError(err).Error("draw refund failed")
			}
		}
	}

	svc.persist(ctx, s)
	svc.logAction(s, 0, "gameOver", map[string]any{
		"winner": g.Winner,
		"result": g.Result,
	})

	payload := map[string]any{
		"winner": g.Winner,
		"result": g.Result,
	}
	if g.Winner != 0 {
		payload["winnerUsername"] = g.Player(g.Winner).Username
		payload["payoutAmount"] = g.PayoutAmount
	}
	s.broadcast(Event{Type: EventGameOver, Payload: payload})
	svc.unregister(g.Code)
	svc.log.WithFields(logrus.Fields{
		"game":   g.Code,
		"winner": g.Winner,
		"result": g.Result,
	}).Info("game over")
	return nil
}
