package engine

import (
	"errors"
	"testing"

	"github.com/kb-solutions/crazy-server/internal/models"
)

func card(s models.Suit, r models.Rank) models.Card {
	return models.Card{Suit: s, Rank: r}
}

// ongoingGame builds a deterministic two-player position. Player 1 to act,
// hearts active, nine of hearts on top.
func ongoingGame() *models.Game {
	g := &models.Game{
		Code:          "TEST01",
		Status:        models.StatusOngoing,
		CurrentPlayer: 1,
		CurrentSuit:   models.Hearts,
	}
	g.Players[0].Cards = []models.Card{
		card(models.Hearts, models.RankThree),
		card(models.Hearts, models.RankFive),
		card(models.Hearts, models.RankSeven),
		card(models.Clubs, models.RankSeven),
		card(models.Clubs, models.RankEight),
		card(models.Spades, models.RankAce),
		card(models.Diamonds, models.RankTwo),
	}
	g.Players[1].Cards = []models.Card{
		card(models.Diamonds, models.RankFour),
		card(models.Spades, models.RankTwo),
		card(models.Clubs, models.RankKing),
	}
	g.Discard = []models.Card{card(models.Hearts, models.RankNine)}
	g.Deck = []models.Card{
		card(models.Diamonds, models.RankTen),
		card(models.Spades, models.RankSix),
		card(models.Clubs, models.RankQueen),
		card(models.Diamonds, models.RankJack),
		card(models.Spades, models.RankNine),
		card(models.Hearts, models.RankKing),
	}
	return g
}

func TestPlayStandardCardPassesTurn(t *testing.T) {
	g := ongoingGame()
	before := countCards(g)

	res, err := Play(g, 1, card(models.Hearts, models.RankThree), models.PlayOptions{})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if res.NextPlayer != 2 || g.CurrentPlayer != 2 {
		t.Errorf("turn did not pass to player 2")
	}
	if g.CurrentSuit != models.Hearts {
		t.Errorf("CurrentSuit = %s, want hearts", g.CurrentSuit)
	}
	if top, _ := g.TopDiscard(); top != card(models.Hearts, models.RankThree) {
		t.Errorf("top discard = %v", top)
	}
	if countCards(g) != before {
		t.Errorf("card count changed: %d -> %d", before, countCards(g))
	}
}

func TestPlayGuards(t *testing.T) {
	g := ongoingGame()

	if _, err := Play(g, 2, card(models.Diamonds, models.RankFour), models.PlayOptions{}); err != ErrNotYourTurn {
		t.Errorf("out-of-turn err = %v, want ErrNotYourTurn", err)
	}
	if _, err := Play(g, 1, card(models.Diamonds, models.RankFour), models.PlayOptions{}); err != ErrCardNotHeld {
		t.Errorf("unheld card err = %v, want ErrCardNotHeld", err)
	}
	// A two off suit and off rank is only playable onto an active chain.
	if _, err := Play(g, 1, card(models.Diamonds, models.RankTwo), models.PlayOptions{}); err != ErrIllegalCard {
		t.Errorf("off-suit two err = %v, want ErrIllegalCard", err)
	}

	g = ongoingGame()
	g.Status = models.StatusFinished
	if _, err := Play(g, 1, card(models.Hearts, models.RankThree), models.PlayOptions{}); err != ErrGameNotOngoing {
		t.Errorf("finished game err = %v, want ErrGameNotOngoing", err)
	}
}

func TestPlayIllegalCard(t *testing.T) {
	g := ongoingGame()
	g.Players[0].Cards = append(g.Players[0].Cards, card(models.Clubs, models.RankFour))

	_, err := Play(g, 1, card(models.Clubs, models.RankFour), models.PlayOptions{})
	if err != ErrIllegalCard {
		t.Fatalf("err = %v, want ErrIllegalCard", err)
	}
	if g.CurrentPlayer != 1 {
		t.Error("rejected play advanced the turn")
	}
}

func TestPlayFiveKeepsTurn(t *testing.T) {
	g := ongoingGame()

	res, err := Play(g, 1, card(models.Hearts, models.RankFive), models.PlayOptions{})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if res.Effect != EffectSkip {
		t.Errorf("effect = %s, want skip", res.Effect)
	}
	if g.CurrentPlayer != 1 {
		t.Errorf("CurrentPlayer = %d, want 1 (skip keeps turn)", g.CurrentPlayer)
	}
}

func TestPlaySevenAlone(t *testing.T) {
	g := ongoingGame()

	res, err := Play(g, 1, card(models.Hearts, models.RankSeven), models.PlayOptions{PlayAlone: true})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if res.Effect != EffectSkip || g.CurrentPlayer != 1 {
		t.Error("solo seven should keep the turn")
	}
}

func TestPlaySevenMultiDiscard(t *testing.T) {
	g := ongoingGame()
	extras := []models.Card{card(models.Hearts, models.RankThree)}

	res, err := Play(g, 1, card(models.Hearts, models.RankSeven), models.PlayOptions{AdditionalCards: extras})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if res.Effect != EffectMultiDiscard {
		t.Errorf("effect = %s, want multi_discard", res.Effect)
	}
	if len(res.Discarded) != 2 {
		t.Errorf("discarded %d cards, want 2", len(res.Discarded))
	}
	if len(g.Players[0].Cards) != 5 {
		t.Errorf("hand = %d cards, want 5", len(g.Players[0].Cards))
	}
	if g.CurrentPlayer != 2 {
		t.Error("multi-discard should pass the turn")
	}
}

func TestPlaySevenRejectsBadSelection(t *testing.T) {
	g := ongoingGame()

	// No selection at all.
	if _, err := Play(g, 1, card(models.Hearts, models.RankSeven), models.PlayOptions{}); err != ErrInvalidCardSelection {
		t.Errorf("empty selection err = %v, want ErrInvalidCardSelection", err)
	}
	// Off-suit extra.
	opts := models.PlayOptions{AdditionalCards: []models.Card{card(models.Clubs, models.RankEight)}}
	if _, err := Play(g, 1, card(models.Hearts, models.RankSeven), opts); err != ErrInvalidCardSelection {
		t.Errorf("off-suit extra err = %v, want ErrInvalidCardSelection", err)
	}
	// Unheld extra.
	opts = models.PlayOptions{AdditionalCards: []models.Card{card(models.Hearts, models.RankQueen)}}
	if _, err := Play(g, 1, card(models.Hearts, models.RankSeven), opts); err != ErrInvalidCardSelection {
		t.Errorf("unheld extra err = %v, want ErrInvalidCardSelection", err)
	}
	if g.CurrentPlayer != 1 || len(g.Players[0].Cards) != 7 {
		t.Error("rejected seven mutated state")
	}
}

func TestPlayWildcardTwoPhase(t *testing.T) {
	g := ongoingGame()
	eight := card(models.Clubs, models.RankEight)

	res, err := Play(g, 1, eight, models.PlayOptions{})
	if err != nil {
		t.Fatalf("phase one failed: %v", err)
	}
	if !res.NeedsSuitChoice {
		t.Fatal("expected NeedsSuitChoice")
	}
	if len(res.PossibleSuits) != 3 {
		t.Errorf("possible suits = %d, want 3", len(res.PossibleSuits))
	}
	for _, s := range res.PossibleSuits {
		if s == models.Clubs {
			t.Error("card's own suit offered as choice")
		}
	}
	if len(g.Players[0].Cards) != 7 || g.CurrentPlayer != 1 {
		t.Error("phase one mutated state")
	}

	res, err = Play(g, 1, eight, models.PlayOptions{NewSuit: models.Diamonds})
	if err != nil {
		t.Fatalf("phase two failed: %v", err)
	}
	if res.Effect != EffectChangeSuit || g.CurrentSuit != models.Diamonds {
		t.Errorf("suit = %s, want diamonds", g.CurrentSuit)
	}
	if g.CurrentPlayer != 2 {
		t.Error("wildcard should pass the turn")
	}

	// Nominating the card's own suit is rejected.
	g = ongoingGame()
	if _, err := Play(g, 1, eight, models.PlayOptions{NewSuit: models.Clubs}); err != ErrInvalidCardSelection {
		t.Errorf("own-suit nomination err = %v, want ErrInvalidCardSelection", err)
	}
}

func TestForcedDrawChainAccumulates(t *testing.T) {
	g := ongoingGame()
	g.CurrentSuit = models.Spades
	g.Discard = []models.Card{card(models.Spades, models.RankNine)}

	res, err := Play(g, 1, card(models.Spades, models.RankAce), models.PlayOptions{})
	if err != nil {
		t.Fatalf("ace of spades rejected: %v", err)
	}
	if res.DrawCards != 5 || g.PendingDraw != 5 {
		t.Fatalf("pending = %d, want 5", g.PendingDraw)
	}

	// The two of spades stacks on top of the ace, it never resets.
	res, err = Play(g, 2, card(models.Spades, models.RankTwo), models.PlayOptions{})
	if err != nil {
		t.Fatalf("two on active chain rejected: %v", err)
	}
	if res.DrawCards != 7 || g.PendingDraw != 7 {
		t.Fatalf("pending = %d, want 7", g.PendingDraw)
	}
}

func TestDrawResolvesChain(t *testing.T) {
	g := ongoingGame()
	g.PendingDraw = 3
	before := countCards(g)

	res, err := Draw(g, 1)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if !res.WasForced || len(res.Drawn) != 3 {
		t.Errorf("drew %d forced=%v, want 3 forced", len(res.Drawn), res.WasForced)
	}
	if g.PendingDraw != 0 {
		t.Errorf("PendingDraw = %d after draw, want 0", g.PendingDraw)
	}
	if !g.HasDrawn {
		t.Error("HasDrawn not set")
	}
	if g.CurrentPlayer != 1 {
		t.Error("draw should not pass the turn")
	}
	if countCards(g) != before {
		t.Error("draw changed total card count")
	}

	if _, err := Draw(g, 1); err != ErrAlreadyDrawn {
		t.Errorf("second draw err = %v, want ErrAlreadyDrawn", err)
	}
}

func TestDrawReshufflesEmptyDeck(t *testing.T) {
	g := ongoingGame()
	g.Discard = append(g.Discard, g.Deck...)
	g.Deck = nil

	res, err := Draw(g, 1)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if !res.Reshuffled {
		t.Error("expected a reshuffle")
	}
	if len(res.Drawn) != 1 {
		t.Errorf("drew %d, want 1", len(res.Drawn))
	}
}

func TestDrawFailsWhenNoCardsAnywhere(t *testing.T) {
	g := ongoingGame()
	g.Deck = nil
	g.Discard = []models.Card{card(models.Hearts, models.RankNine)}

	_, err := Draw(g, 1)
	if !errors.Is(err, ErrNoCardsAvailable) {
		t.Fatalf("err = %v, want ErrNoCardsAvailable", err)
	}
	if g.HasDrawn {
		t.Error("failed draw mutated state")
	}
}

func TestPassRequiresDraw(t *testing.T) {
	g := ongoingGame()

	if err := Pass(g, 1); err != ErrMustDrawFirst {
		t.Fatalf("err = %v, want ErrMustDrawFirst", err)
	}

	if _, err := Draw(g, 1); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if err := Pass(g, 1); err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if g.CurrentPlayer != 2 || g.HasDrawn {
		t.Error("pass did not hand over a clean turn")
	}
}

func TestForcePassSkipsDrawRequirement(t *testing.T) {
	g := ongoingGame()
	g.PendingDraw = 4

	if err := ForcePass(g, 1); err != nil {
		t.Fatalf("ForcePass failed: %v", err)
	}
	if g.CurrentPlayer != 2 || g.PendingDraw != 0 {
		t.Error("forced pass should hand over a clean turn")
	}
}

func TestFirstPlayOnEmptyDiscard(t *testing.T) {
	g := ongoingGame()
	g.Discard = nil
	g.CurrentSuit = ""

	// Any card is legal when there is no top discard yet.
	if _, err := Play(g, 1, card(models.Clubs, models.RankSeven), models.PlayOptions{PlayAlone: true}); err != nil {
		t.Fatalf("opening play rejected: %v", err)
	}
	if g.CurrentSuit != models.Clubs {
		t.Errorf("CurrentSuit = %s, want clubs", g.CurrentSuit)
	}
}
