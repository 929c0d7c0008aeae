package engine

import (
	"github.com/kb-solutions/crazy-server/internal/models"
)

// Effect tags the special behavior of an accepted play.
type Effect string

const (
	EffectNone         Effect = ""
	EffectSkip         Effect = "skip"
	EffectMultiDiscard Effect = "multi_discard"
	EffectChangeSuit   Effect = "change_suit"
	EffectDrawCards    Effect = "draw_cards"
)

// PlayResult reports the outcome of an accepted (or suit-pending) card play.
type PlayResult struct {
	// NeedsSuitChoice is set when an 8/J was submitted without a nominated
	// suit. No state has been mutated; the player must resubmit the same
	// play with one of PossibleSuits.
	NeedsSuitChoice bool
	PossibleSuits   []models.Suit

	Effect     Effect
	Played     models.Card
	Discarded  []models.Card // every card moved to the discard pile
	DrawCards  int           // accumulated forced-draw total after an attack play
	NewSuit    models.Suit   // active suit after the play
	NextPlayer int
}

// DrawResult reports the outcome of an accepted draw.
type DrawResult struct {
	Drawn      []models.Card
	WasForced  bool // the draw resolved a pending forced-draw chain
	Reshuffled bool // the discard pile was reshuffled into the draw pile
}

// Play validates and applies a single card play by player (1 or 2).
//
// Preconditions are checked in order: the session must be ongoing, it must
// be the acting player's turn, and the player must hold the card. Legality
// (suit match against the active suit, or rank match against the top
// discard) is skipped for wildcards (8/J), the ace of spades, and a 2 played
// onto an active forced-draw chain.
//
// Forced-draw chains accumulate strictly: the ace of spades adds 5 and any 2
// adds 2, whatever started the chain. A 2 of spades answering an ace of
// spades therefore continues the chain at 7, never resets it.
func Play(g *models.Game, player int, card models.Card, opts models.PlayOptions) (PlayResult, error) {
	if g.Status != models.StatusOngoing {
		return PlayResult{}, ErrGameNotOngoing
	}
	if g.CurrentPlayer != player {
		return PlayResult{}, ErrNotYourTurn
	}

	hand := g.Player(player).Cards
	if !models.ContainsCard(hand, card) {
		return PlayResult{}, ErrCardNotHeld
	}

	top, hasTop := g.TopDiscard()
	skipLegality := card.IsWildcard() ||
		(card.Rank == models.RankAce && card.Suit == models.Spades) ||
		(card.Rank == models.RankTwo && g.PendingDraw > 0)
	if hasTop && !skipLegality {
		if card.Suit != g.CurrentSuit && card.Rank != top.Rank {
			return PlayResult{}, ErrIllegalCard
		}
	}

	effect := EffectNone
	nextPlayer := models.OpponentOf(player)
	discard := []models.Card{card}
	drawCards := 0
	newSuit := card.Suit

	switch card.Rank {
	case models.RankFive:
		effect = EffectSkip
		nextPlayer = player

	case models.RankSeven:
		if opts.PlayAlone {
			effect = EffectSkip
			nextPlayer = player
			break
		}
		if len(opts.AdditionalCards) == 0 {
			return PlayResult{}, ErrInvalidCardSelection
		}
		seen := map[models.Card]bool{card: true}
		for _, extra := range opts.AdditionalCards {
			if extra.Suit != card.Suit || seen[extra] || !models.ContainsCard(hand, extra) {
				return PlayResult{}, ErrInvalidCardSelection
			}
			seen[extra] = true
			discard = append(discard, extra)
		}
		effect = EffectMultiDiscard

	case models.RankAce:
		if card.Suit == models.Spades {
			drawCards = g.PendingDraw + 5
			effect = EffectDrawCards
		}

	case models.RankTwo:
		drawCards = g.PendingDraw + 2
		effect = EffectDrawCards

	case models.RankEight, models.RankJack:
		if opts.NewSuit == "" {
			return PlayResult{
				NeedsSuitChoice: true,
				Played:          card,
				PossibleSuits:   possibleSuits(card.Suit),
			}, nil
		}
		if !legalSuitChoice(card.Suit, opts.NewSuit) {
			return PlayResult{}, ErrInvalidCardSelection
		}
		effect = EffectChangeSuit
		newSuit = opts.NewSuit
	}

	// Apply: move the discarded cards out of the hand and onto the pile.
	for _, c := range discard {
		g.Player(player).Cards, _ = models.RemoveCard(g.Player(player).Cards, c)
	}
	g.Discard = append(g.Discard, discard...)
	g.CurrentPlayer = nextPlayer
	g.CurrentSuit = newSuit
	g.HasDrawn = false
	if effect == EffectDrawCards {
		g.PendingDraw = drawCards
	}
	g.Touch(true)

	return PlayResult{
		Effect:     effect,
		Played:     card,
		Discarded:  discard,
		DrawCards:  drawCards,
		NewSuit:    newSuit,
		NextPlayer: nextPlayer,
	}, nil
}

// Draw validates and applies a draw by player. The draw count is the pending
// forced-draw total if a chain is active, otherwise one. An empty draw pile
// triggers a reshuffle first; if that fails the draw fails with
// ErrNoCardsAvailable and nothing is mutated.
func Draw(g *models.Game, player int) (DrawResult, error) {
	if g.Status != models.StatusOngoing {
		return DrawResult{}, ErrGameNotOngoing
	}
	if g.CurrentPlayer != player {
		return DrawResult{}, ErrNotYourTurn
	}
	if g.HasDrawn {
		return DrawResult{}, ErrAlreadyDrawn
	}

	res := DrawResult{WasForced: g.PendingDraw > 0}
	count := 1
	if g.PendingDraw > 0 {
		count = g.PendingDraw
	}

	if len(g.Deck) == 0 {
		if err := Reshuffle(g); err != nil {
			return DrawResult{}, ErrNoCardsAvailable
		}
		res.Reshuffled = true
	}

	for i := 0; i < count; i++ {
		if len(g.Deck) == 0 {
			// Chain longer than the rebuilt pile: reshuffle again if
			// possible, otherwise the player takes what there was.
			if err := Reshuffle(g); err != nil {
				break
			}
			res.Reshuffled = true
		}
		n := len(g.Deck)
		drawn := g.Deck[n-1]
		g.Deck = g.Deck[:n-1]
		g.Player(player).Cards = append(g.Player(player).Cards, drawn)
		res.Drawn = append(res.Drawn, drawn)
	}

	g.HasDrawn = true
	g.PendingDraw = 0
	g.Touch(false)
	return res, nil
}

// Pass validates and applies a turn pass. The current player must have drawn
// this turn.
func Pass(g *models.Game, player int) error {
	if g.Status != models.StatusOngoing {
		return ErrGameNotOngoing
	}
	if g.CurrentPlayer != player {
		return ErrNotYourTurn
	}
	if !g.HasDrawn {
		return ErrMustDrawFirst
	}

	g.CurrentPlayer = models.OpponentOf(player)
	g.HasDrawn = false
	g.Touch(true)
	return nil
}

// ForcePass ends the current player's turn without the draw requirement.
// Used by timeout enforcement when no card can be drawn anywhere. Any
// pending forced-draw chain is dropped with the turn: the owing player
// cannot draw it and the opponent never owed it, so carrying it over
// would punish the wrong side.
func ForcePass(g *models.Game, player int) error {
	if g.Status != models.StatusOngoing {
		return ErrGameNotOngoing
	}
	if g.CurrentPlayer != player {
		return ErrNotYourTurn
	}
	g.CurrentPlayer = models.OpponentOf(player)
	g.HasDrawn = false
	g.PendingDraw = 0
	g.Touch(true)
	return nil
}

func possibleSuits(except models.Suit) []models.Suit {
	suits := make([]models.Suit, 0, 3)
	for _, s := range models.Suits {
		if s != except {
			suits = append(suits, s)
		}
	}
	return suits
}

func legalSuitChoice(cardSuit, chosen models.Suit) bool {
	for _, s := range models.Suits {
		if s == chosen && s != cardSuit {
			return true
		}
	}
	return false
}
