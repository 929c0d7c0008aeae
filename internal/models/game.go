package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameStatus is the lifecycle state of a session.
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusOngoing   GameStatus = "ongoing"
	StatusFinished  GameStatus = "finished"
	StatusCancelled GameStatus = "cancelled"
	StatusAbandoned GameStatus = "abandoned"
)

// Terminal reports whether the status is write-once final.
func (s GameStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled || s == StatusAbandoned
}

// Result reasons recorded on a terminated game.
const (
	ResultWin            = "win"
	ResultDraw           = "draw"
	ResultTimeoutForfeit = "timeout_forfeit"
	ResultAbandoned      = "abandoned"
	ResultIncompleteBets = "incomplete_bets"
)

// PlayerSlot holds one player's identity, hand and escrow state.
type PlayerSlot struct {
	Phone            string `json:"phone"`
	Username         string `json:"username"`
	AuthToken        string `json:"-"`
	Cards            []Card `json:"cards"`
	BetDeducted      bool   `json:"betDeducted"`
	BetTransactionID string `json:"betTransactionId"`
	Timeouts         int    `json:"timeouts"`
}

// Joined reports whether a player occupies the slot.
func (p *PlayerSlot) Joined() bool { return p.Phone != "" }

// Game is the full record for one session, identified by a short code.
// The slices Players[0].Cards, Players[1].Cards, Deck and Discard always
// partition the 52-card deck.
type Game struct {
	Code    string        // short session code
	Players [2]PlayerSlot // index 0 = player 1, index 1 = player 2

	Deck    []Card // draw pile, top = last element
	Discard []Card // top = last element

	CurrentPlayer int  // 1 or 2
	CurrentSuit   Suit // active suit after wildcard plays; empty before first play
	PendingDraw   int  // accumulated forced-draw chain; 0 = none
	HasDrawn      bool // has the current player already drawn this turn

	Status GameStatus

	Bet       decimal.Decimal // zero = free game
	IsPrivate bool

	Winner       int    // 1 or 2; 0 = none
	Result       string // one of the Result* constants once terminal
	PayoutAmount decimal.Decimal
	HouseFee     decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
	LastMove  time.Time
	EndedAt   *time.Time
}

// Player returns the slot for player n (1 or 2).
func (g *Game) Player(n int) *PlayerSlot {
	return &g.Players[n-1]
}

// OpponentOf returns the other player's number.
func OpponentOf(n int) int {
	if n == 1 {
		return 2
	}
	return 1
}

// TopDiscard returns the top discard card, if any.
func (g *Game) TopDiscard() (Card, bool) {
	if len(g.Discard) == 0 {
		return Card{}, false
	}
	return g.Discard[len(g.Discard)-1], true
}

// HasBet reports whether the session carries a stake.
func (g *Game) HasBet() bool { return g.Bet.IsPositive() }

// Touch stamps updated_at, and last_move_timestamp when move is true.
func (g *Game) Touch(move bool) {
	now := time.Now().UTC()
	g.UpdatedAt = now
	if move {
		g.LastMove = now
	}
}

// PlayOptions carries the optional parameters of a card play.
type PlayOptions struct {
	// PlayAlone turns a 7 into a solo skip instead of a multi-discard.
	PlayAlone bool `json:"playAlone"`
	// AdditionalCards are the extra same-suit cards of a 7 multi-discard.
	AdditionalCards []Card `json:"additionalCards"`
	// NewSuit is the nominated suit for the second phase of an 8/J play.
	NewSuit Suit `json:"newSuit"`
}

// GameAction is an inbound player intent as delivered by the transport.
type GameAction struct {
	Type    string       `json:"type"`
	Card    *Card        `json:"card,omitempty"`
	Options *PlayOptions `json:"options,omitempty"`
}
