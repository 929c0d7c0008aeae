package models

import "fmt"

// Suit is one of the four French suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Suits lists all four suits in deck-construction order.
var Suits = [4]Suit{Hearts, Diamonds, Clubs, Spades}

// Rank is a card rank: "2".."10", "J", "Q", "K", "A".
type Rank string

const (
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankAce   Rank = "A"
)

// Ranks lists all thirteen ranks in deck-construction order.
var Ranks = [13]Rank{
	RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing, RankAce,
}

// Card is an immutable suit/rank pair.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Code returns the short card code, e.g. "AS" for the ace of spades.
func (c Card) Code() string {
	return string(c.Rank) + string(c.Suit[0]-32)
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// IsWildcard reports whether the card lets its player nominate the next suit.
func (c Card) IsWildcard() bool {
	return c.Rank == RankEight || c.Rank == RankJack
}

// IsAttack reports whether playing the card adds to the forced-draw chain.
func (c Card) IsAttack() bool {
	return c.Rank == RankTwo || (c.Rank == RankAce && c.Suit == Spades)
}

// AttackDraw returns the number of cards the card adds to the chain,
// or 0 for non-attack cards.
func (c Card) AttackDraw() int {
	switch {
	case c.Rank == RankAce && c.Suit == Spades:
		return 5
	case c.Rank == RankTwo:
		return 2
	default:
		return 0
	}
}

// ContainsCard reports whether cards holds an exact suit/rank match.
func ContainsCard(cards []Card, target Card) bool {
	for _, c := range cards {
		if c == target {
			return true
		}
	}
	return false
}

// RemoveCard removes the first occurrence of target from cards, returning
// the shrunk slice and whether a card was removed.
func RemoveCard(cards []Card, target Card) ([]Card, bool) {
	for i, c := range cards {
		if c == target {
			return append(cards[:i], cards[i+1:]...), true
		}
	}
	return cards, false
}
