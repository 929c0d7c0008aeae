package engine

import "github.com/kb-solutions/crazy-server/internal/models"

// Outcome describes a detected end condition.
type Outcome struct {
	Over   bool
	Winner int    // 1 or 2; 0 for a draw
	Reason string // models.ResultWin or models.ResultDraw
}

// CanPlay reports whether any card in hand is a legal ordinary play against
// the active suit and the top discard's rank.
func CanPlay(hand []models.Card, currentSuit models.Suit, top models.Card) bool {
	for _, c := range hand {
		if c.Suit == currentSuit || c.Rank == top.Rank {
			return true
		}
	}
	return false
}

// HasWildcard reports whether hand holds an 8 or a Jack.
func HasWildcard(hand []models.Card) bool {
	for _, c := range hand {
		if c.IsWildcard() {
			return true
		}
	}
	return false
}

// CheckEnd detects the end conditions for an ongoing session: a win when
// either hand is empty, or a stalemate draw when the draw pile is exhausted
// and neither player has a legal play nor a suit-change wildcard.
func CheckEnd(g *models.Game) Outcome {
	if len(g.Players[0].Cards) == 0 {
		return Outcome{Over: true, Winner: 1, Reason: models.ResultWin}
	}
	if len(g.Players[1].Cards) == 0 {
		return Outcome{Over: true, Winner: 2, Reason: models.ResultWin}
	}

	if len(g.Deck) > 0 {
		return Outcome{}
	}
	top, ok := g.TopDiscard()
	if !ok {
		return Outcome{}
	}
	for p := 0; p < 2; p++ {
		hand := g.Players[p].Cards
		if CanPlay(hand, g.CurrentSuit, top) || HasWildcard(hand) {
			return Outcome{}
		}
	}
	return Outcome{Over: true, Reason: models.ResultDraw}
}
