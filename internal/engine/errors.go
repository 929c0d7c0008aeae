package engine

import "errors"

// Validation and rule errors. Callers match these with errors.Is; none of
// them leaves the game state mutated.
var (
	// ErrGameNotOngoing rejects actions on a session that is waiting or terminal.
	ErrGameNotOngoing = errors.New("game is not ongoing")

	// ErrNotYourTurn rejects an action from the non-current player.
	ErrNotYourTurn = errors.New("it's not your turn")

	// ErrCardNotHeld rejects a play of a card the player does not hold.
	ErrCardNotHeld = errors.New("you do not have this card")

	// ErrIllegalCard rejects a card that matches neither the active suit nor
	// the top discard's rank.
	ErrIllegalCard = errors.New("card must match suit or value of the top discard")

	// ErrInvalidCardSelection rejects a 7 multi-discard with a missing or
	// invalid additional-card selection, or an illegal suit nomination.
	ErrInvalidCardSelection = errors.New("invalid card selection")

	// ErrAlreadyDrawn rejects a second draw in the same turn.
	ErrAlreadyDrawn = errors.New("you can only draw once per turn")

	// ErrMustDrawFirst rejects passing before drawing.
	ErrMustDrawFirst = errors.New("you must draw a card before passing")

	// ErrInsufficientCards means the discard pile is too small to reshuffle.
	ErrInsufficientCards = errors.New("not enough cards to reshuffle")

	// ErrNoCardsAvailable means a draw was requested but the draw pile is
	// empty and cannot be rebuilt from the discard pile.
	ErrNoCardsAvailable = errors.New("no cards left to draw and cannot reshuffle")
)
