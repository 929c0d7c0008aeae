// Package engine implements the Crazy card game rules.
//
// The package is a pure state machine over models.Game: operations validate,
// then mutate the record in place, and report outcomes as typed results or
// sentinel errors. It performs no I/O; persistence and event emission belong
// to the session layer.
package engine

import (
	"math/rand/v2"
	"time"

	"github.com/kb-solutions/crazy-server/internal/models"
)

// HandSize is the number of cards dealt to each player.
const HandSize = 7

// NewDeck returns the full 52-card deck in construction order.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, 52)
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			deck = append(deck, models.Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// Shuffle permutes deck in place with a uniform Fisher–Yates shuffle.
func Shuffle(deck []models.Card) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// NewGame builds a fresh session record for code: shuffled deck, seven cards
// to each player, empty discard pile, player 1 to act, status waiting.
func NewGame(code string) *models.Game {
	deck := NewDeck()
	Shuffle(deck)

	now := time.Now().UTC()
	g := &models.Game{
		Code:          code,
		Deck:          deck,
		Discard:       []models.Card{},
		CurrentPlayer: 1,
		Status:        models.StatusWaiting,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	g.Players[0].Cards = make([]models.Card, 0, HandSize)
	g.Players[1].Cards = make([]models.Card, 0, HandSize)
	for p := 0; p < 2; p++ {
		n := len(g.Deck)
		g.Players[p].Cards = append(g.Players[p].Cards, g.Deck[n-HandSize:]...)
		g.Deck = g.Deck[:n-HandSize]
	}
	return g
}

// Reshuffle rebuilds the draw pile from the discard pile: the top discard
// card is set aside, the remainder is shuffled into a new draw pile, and the
// discard pile is reset to just the set-aside card. Fails with
// ErrInsufficientCards (no state mutated) when the discard pile holds one
// card or fewer.
func Reshuffle(g *models.Game) error {
	if len(g.Discard) <= 1 {
		return ErrInsufficientCards
	}

	top := g.Discard[len(g.Discard)-1]
	deck := make([]models.Card, len(g.Discard)-1)
	copy(deck, g.Discard[:len(g.Discard)-1])
	Shuffle(deck)

	g.Deck = deck
	g.Discard = []models.Card{top}
	g.Touch(false)
	return nil
}
