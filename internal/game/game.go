// Package game hosts live sessions: it applies player intents through the
// rules engine, enforces the turn clock, settles stakes through escrow and
// persists every state change.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kb-solutions/crazy-server/internal/cache"
	"github.com/kb-solutions/crazy-server/internal/engine"
	"github.com/kb-solutions/crazy-server/internal/escrow"
	"github.com/kb-solutions/crazy-server/internal/models"
	"github.com/kb-solutions/crazy-server/internal/store"
)

const (
	// DefaultTurnTimeout is how long a player has to complete a turn.
	DefaultTurnTimeout = 30 * time.Second
	// MaxConsecutiveTimeouts is the forfeit threshold.
	MaxConsecutiveTimeouts = 3
)

// ErrSessionNotFound is returned for intents against unknown or already
// finished sessions.
var ErrSessionNotFound = errors.New("game session not found")

// Session is one live game. All state access goes through mu; the timeout
// sweeper uses TryLock so it never queues behind a player intent.
type Session struct {
	mu          sync.Mutex
	game        *models.Game
	connected   [2]bool
	actionIndex int

	// BroadcastFn sends an event to both players; BroadcastToPlayerFn to
	// one. Both are set by the transport and may be nil in tests.
	BroadcastFn         func(ev Event)
	BroadcastToPlayerFn func(player int, ev Event)
}

// Game returns the session's game record. The caller must hold the
// session's lock via the owning service.
func (s *Session) Game() *models.Game { return s.game }

func (s *Session) broadcast(ev Event) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
	}
}

func (s *Session) sendTo(player int, ev Event) {
	if s.BroadcastToPlayerFn != nil {
		s.BroadcastToPlayerFn(player, ev)
	}
}

func (s *Session) sendError(player int, err error) {
	s.sendTo(player, Event{
		Type:    EventGameError,
		Payload: map[string]any{"message": err.Error()},
	})
}

// snapshotFor builds the per-player view of the session: the player's own
// hand in full, the opponent reduced to a card count. Lock must be held.
func (s *Session) snapshotFor(player int) map[string]any {
	g := s.game
	opp := models.OpponentOf(player)

	snap := map[string]any{
		"code":              g.Code,
		"status":            g.Status,
		"you":               player,
		"yourCards":         g.Player(player).Cards,
		"opponentUsername":  g.Player(opp).Username,
		"opponentCardCount": len(g.Player(opp).Cards),
		"currentPlayer":     g.CurrentPlayer,
		"currentSuit":       g.CurrentSuit,
		"pendingDraw":       g.PendingDraw,
		"hasDrawn":          g.HasDrawn,
		"deckCount":         len(g.Deck),
		"bet":               g.Bet,
	}
	if top, ok := g.TopDiscard(); ok {
		snap["topCard"] = top
	}
	return snap
}

// broadcastState sends each player their own snapshot merged with extra.
// Lock must be held.
func (s *Session) broadcastState(t EventType, extra map[string]any) {
	for p := 1; p <= 2; p++ {
		payload := s.snapshotFor(p)
		for k, v := range extra {
			payload[k] = v
		}
		s.sendTo(p, Event{Type: t, Payload: payload})
	}
}

// Service owns the session registry and every lifecycle operation.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store   store.GameStore
	escrow  *escrow.Escrow
	history *cache.Publisher
	log     *logrus.Logger

	TurnTimeout time.Duration
	MaxTimeouts int
}

// NewService builds a Service over its collaborators.
func NewService(st store.GameStore, es *escrow.Escrow, hist *cache.Publisher, log *logrus.Logger) *Service {
	return &Service{
		sessions:    make(map[string]*Session),
		store:       st,
		escrow:      es,
		history:     hist,
		log:         log,
		TurnTimeout: DefaultTurnTimeout,
		MaxTimeouts: MaxConsecutiveTimeouts,
	}
}

// Session returns the live session for code, if registered.
func (svc *Service) Session(code string) (*Session, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s, ok := svc.sessions[code]
	return s, ok
}

func (svc *Service) register(s *Session) {
	svc.mu.Lock()
	svc.sessions[s.game.Code] = s
	svc.mu.Unlock()
}

func (svc *Service) unregister(code string) {
	svc.mu.Lock()
	delete(svc.sessions, code)
	svc.mu.Unlock()
}

// liveSessions snapshots the registry for the timeout sweeper.
func (svc *Service) liveSessions() []*Session {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]*Session, 0, len(svc.sessions))
	for _, s := range svc.sessions {
		out = append(out, s)
	}
	return out
}

// logAction queues an audit record for the historian. Lock must be held;
// publishing happens off the session lock.
func (svc *Service) logAction(s *Session, actor int, actionType string, payload map[string]any) {
	if svc.history == nil {
		return
	}
	rec := cache.GameActionRecord{
		GameCode:    s.game.Code,
		ActionIndex: s.actionIndex,
		Actor:       actor,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	s.actionIndex++
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.history.PublishGameAction(ctx, rec); err != nil {
			svc.log.WithField("game", rec.GameCode).WithError(err).
				Warn("action history publish failed")
		}
	}()
}

// persist writes the session's game record, logging instead of failing the
// intent when the write goes wrong; the in-memory session stays
// authoritative.
func (svc *Service) persist(ctx context.Context, s *Session) {
	if err := svc.store.Update(ctx, s.game); err != nil {
		svc.log.WithField("game", s.game.Code).WithError(err).
			Error("game persist failed")
	}
}

// AttachTransport installs the broadcast callbacks for a session. Held
// under the session lock so event emission never races the swap.
func (svc *Service) AttachTransport(code string, broadcast func(Event), sendTo func(int, Event)) error {
	s, ok := svc.Session(code)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BroadcastFn = broadcast
	s.BroadcastToPlayerFn = sendTo
	return nil
}

// PlayerNumber returns the seat (1 or 2) phone occupies in a live session,
// or 0 when the player has no seat.
func (svc *Service) PlayerNumber(code, phone string) int {
	s, ok := svc.Session(code)
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for n := 1; n <= 2; n++ {
		if s.game.Player(n).Joined() && s.game.Player(n).Phone == phone {
			return n
		}
	}
	return 0
}

// HandlePlay applies a card play intent from player.
func (svc *Service) HandlePlay(ctx context.Context, code string, player int, card models.Card, opts models.PlayOptions) error {
	s, ok := svc.Session(code)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := engine.Play(s.game, player, card, opts)
	if err != nil {
		s.sendError(player, err)
		return err
	}

	if res.NeedsSuitChoice {
		// Nothing was mutated; ask the player to resubmit with a suit.
		s.sendTo(player, Event{
			Type: EventCardOptions,
			Payload: map[string]any{
				"card":          res.Played,
				"possibleSuits": res.PossibleSuits,
			},
		})
		return nil
	}

	s.game.Player(player).Timeouts = 0
	svc.logAction(s, player, "playCard", map[string]any{
		"card":    res.Played.Code(),
		"effect":  string(res.Effect),
		"cards":   len(res.Discarded),
		"newSuit": res.NewSuit,
	})

	if out := engine.CheckEnd(s.game); out.Over {
		return svc.endGameLocked(ctx, s, out.Winner, out.Reason)
	}

	svc.persist(ctx, s)
	s.broadcastState(EventGameUpdate, map[string]any{
		"action":  "playCard",
		"by":      player,
		"card":    res.Played,
		"effect":  string(res.Effect),
		"message": playMessage(s.game.Player(player).Username, res),
	})
	return nil
}

// playMessage renders the announcement for an accepted play.
func playMessage(username string, res engine.PlayResult) string {
	switch res.Effect {
	case engine.EffectSkip:
		return fmt.Sprintf("%s played %s and plays again", username, res.Played.Code())
	case engine.EffectMultiDiscard:
		return fmt.Sprintf("%s discarded %d cards on a 7", username, len(res.Discarded))
	case engine.EffectChangeSuit:
		return fmt.Sprintf("%s played %s and changed the suit to %s", username, res.Played.Code(), res.NewSuit)
	case engine.EffectDrawCards:
		return fmt.Sprintf("%s played %s, draw count is now %d", username, res.Played.Code(), res.DrawCards)
	default:
		return fmt.Sprintf("%s played %s", username, res.Played.Code())
	}
}

// HandleDraw applies a draw intent from player.
func (svc *Service) HandleDraw(ctx context.Context, code string, player int) error {
	s, ok := svc.Session(code)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := engine.Draw(s.game, player)
	if err != nil {
		s.sendError(player, err)
		return err
	}

	s.game.Player(player).Timeouts = 0
	svc.logAction(s, player, "drawCard", map[string]any{
		"count":      len(res.Drawn),
		"forced":     res.WasForced,
		"reshuffled": res.Reshuffled,
	})

	if out := engine.CheckEnd(s.game); out.Over {
		return svc.endGameLocked(ctx, s, out.Winner, out.Reason)
	}

	svc.persist(ctx, s)
	s.broadcastState(EventGameUpdate, map[string]any{
		"action":     "drawCard",
		"by":         player,
		"drawnCount": len(res.Drawn),
		"forced":     res.WasForced,
	})
	return nil
}

// HandlePass applies a pass intent from player.
func (svc *Service) HandlePass(ctx context.Context, code string, player int) error {
	s, ok := svc.Session(code)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := engine.Pass(s.game, player); err != nil {
		s.sendError(player, err)
		return err
	}

	s.game.Player(player).Timeouts = 0
	svc.logAction(s, player, "passTurn", nil)

	if out := engine.CheckEnd(s.game); out.Over {
		return svc.endGameLocked(ctx, s, out.Winner, out.Reason)
	}

	svc.persist(ctx, s)
	s.broadcastState(EventGameUpdate, map[string]any{
		"action": "passTurn",
		"by":     player,
	})
	return nil
}
