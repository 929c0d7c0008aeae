package engine

import (
	"testing"

	"github.com/kb-solutions/crazy-server/internal/models"
)

func TestCheckEndWin(t *testing.T) {
	g := ongoingGame()
	g.Players[1].Cards = nil

	out := CheckEnd(g)
	if !out.Over || out.Winner != 2 || out.Reason != models.ResultWin {
		t.Fatalf("outcome = %+v, want player 2 win", out)
	}
}

func TestCheckEndOngoing(t *testing.T) {
	g := ongoingGame()
	if out := CheckEnd(g); out.Over {
		t.Fatalf("outcome = %+v for a live position", out)
	}
}

func TestCheckEndStalemate(t *testing.T) {
	g := ongoingGame()
	g.Deck = nil
	g.CurrentSuit = models.Diamonds
	g.Discard = []models.Card{card(models.Diamonds, models.RankSix)}
	// Neither hand matches diamonds or rank six, and no hand holds an 8/J.
	g.Players[0].Cards = []models.Card{
		card(models.Hearts, models.RankThree),
		card(models.Clubs, models.RankKing),
	}
	g.Players[1].Cards = []models.Card{
		card(models.Spades, models.RankTen),
		card(models.Hearts, models.RankQueen),
	}

	out := CheckEnd(g)
	if !out.Over || out.Winner != 0 || out.Reason != models.ResultDraw {
		t.Fatalf("outcome = %+v, want stalemate draw", out)
	}

	// A single wildcard in either hand keeps the game alive.
	g.Players[1].Cards = append(g.Players[1].Cards, card(models.Hearts, models.RankJack))
	if out := CheckEnd(g); out.Over {
		t.Fatalf("outcome = %+v with a wildcard in hand", out)
	}
}
