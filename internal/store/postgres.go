package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kb-solutions/crazy-server/internal/models"
)

// PostgresStore implements GameStore against the cards_game and
// failed_payouts tables. Hands and piles are stored as jsonb.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const gameColumns = `
	code,
	player1_phone, player1_username, player1_auth_token, player1_cards,
	player1_bet_deducted, player1_bet_transaction_id, player1_timeouts,
	player2_phone, player2_username, player2_auth_token, player2_cards,
	player2_bet_deducted, player2_bet_transaction_id, player2_timeouts,
	deck_cards, discard_pile,
	current_player, current_suit, pending_draw, has_drawn,
	status, bet, is_private,
	winner, result, payout_amount, house_fee,
	created_at, updated_at, last_move_timestamp, ended_at`

// GetByCode reads the full game record for code.
func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*models.Game, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM cards_game WHERE code = $1`, code)

	var (
		g                                 models.Game
		p1Cards, p2Cards, deck, discard   []byte
		suit                              *string
		winner                            *int
		result                            *string
	)
	err := row.Scan(
		&g.Code,
		&g.Players[0].Phone, &g.Players[0].Username, &g.Players[0].AuthToken, &p1Cards,
		&g.Players[0].BetDeducted, &g.Players[0].BetTransactionID, &g.Players[0].Timeouts,
		&g.Players[1].Phone, &g.Players[1].Username, &g.Players[1].AuthToken, &p2Cards,
		&g.Players[1].BetDeducted, &g.Players[1].BetTransactionID, &g.Players[1].Timeouts,
		&deck, &discard,
		&g.CurrentPlayer, &suit, &g.PendingDraw, &g.HasDrawn,
		&g.Status, &g.Bet, &g.IsPrivate,
		&winner, &result, &g.PayoutAmount, &g.HouseFee,
		&g.CreatedAt, &g.UpdatedAt, &g.LastMove, &g.EndedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read game %s: %w", code, err)
	}

	if suit != nil {
		g.CurrentSuit = models.Suit(*suit)
	}
	if winner != nil {
		g.Winner = *winner
	}
	if result != nil {
		g.Result = *result
	}
	for _, pair := range []struct {
		raw []byte
		dst *[]models.Card
	}{
		{p1Cards, &g.Players[0].Cards},
		{p2Cards, &g.Players[1].Cards},
		{deck, &g.Deck},
		{discard, &g.Discard},
	} {
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return nil, fmt.Errorf("decode cards for game %s: %w", code, err)
		}
	}
	return &g, nil
}

// Insert writes a new game record.
func (s *PostgresStore) Insert(ctx context.Context, g *models.Game) error {
	p1Cards, p2Cards, deck, discard, err := marshalPiles(g)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO cards_game (`+gameColumns+`) VALUES (
			$1,
			$2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17,
			$18, $19, $20, $21,
			$22, $23, $24,
			$25, $26, $27, $28,
			$29, $30, $31, $32)`,
		g.Code,
		g.Players[0].Phone, g.Players[0].Username, g.Players[0].AuthToken, p1Cards,
		g.Players[0].BetDeducted, g.Players[0].BetTransactionID, g.Players[0].Timeouts,
		g.Players[1].Phone, g.Players[1].Username, g.Players[1].AuthToken, p2Cards,
		g.Players[1].BetDeducted, g.Players[1].BetTransactionID, g.Players[1].Timeouts,
		deck, discard,
		g.CurrentPlayer, nullableSuit(g.CurrentSuit), g.PendingDraw, g.HasDrawn,
		g.Status, g.Bet, g.IsPrivate,
		nullableInt(g.Winner), nullableStr(g.Result), g.PayoutAmount, g.HouseFee,
		g.CreatedAt, g.UpdatedAt, g.LastMove, g.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game %s: %w", g.Code, err)
	}
	return nil
}

// Update overwrites the record for g.Code.
func (s *PostgresStore) Update(ctx context.Context, g *models.Game) error {
	p1Cards, p2Cards, deck, discard, err := marshalPiles(g)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE cards_game SET
			player1_phone = $2, player1_username = $3, player1_auth_token = $4,
			player1_cards = $5, player1_bet_deducted = $6,
			player1_bet_transaction_id = $7, player1_timeouts = $8,
			player2_phone = $9, player2_username = $10, player2_auth_token = $11,
			player2_cards = $12, player2_bet_deducted = $13,
			player2_bet_transaction_id = $14, player2_timeouts = $15,
			deck_cards = $16, discard_pile = $17,
			current_player = $18, current_suit = $19, pending_draw = $20,
			has_drawn = $21, status = $22, bet = $23, is_private = $24,
			winner = $25, result = $26, payout_amount = $27, house_fee = $28,
			created_at = $29, updated_at = $30, last_move_timestamp = $31,
			ended_at = $32
		WHERE code = $1`,
		g.Code,
		g.Players[0].Phone, g.Players[0].Username, g.Players[0].AuthToken, p1Cards,
		g.Players[0].BetDeducted, g.Players[0].BetTransactionID, g.Players[0].Timeouts,
		g.Players[1].Phone, g.Players[1].Username, g.Players[1].AuthToken, p2Cards,
		g.Players[1].BetDeducted, g.Players[1].BetTransactionID, g.Players[1].Timeouts,
		deck, discard,
		g.CurrentPlayer, nullableSuit(g.CurrentSuit), g.PendingDraw, g.HasDrawn,
		g.Status, g.Bet, g.IsPrivate,
		nullableInt(g.Winner), nullableStr(g.Result), g.PayoutAmount, g.HouseFee,
		g.CreatedAt, g.UpdatedAt, g.LastMove, g.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("update game %s: %w", g.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOpen returns public waiting games, newest first.
func (s *PostgresStore) ListOpen(ctx context.Context) ([]OpenGame, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, player1_username, bet, created_at
		 FROM cards_game
		 WHERE status = $1 AND is_private = false
		 ORDER BY created_at DESC`, models.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("list open games: %w", err)
	}
	defer rows.Close()

	var games []OpenGame
	for rows.Next() {
		var og OpenGame
		if err := rows.Scan(&og.Code, &og.Username, &og.Bet, &og.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan open game: %w", err)
		}
		games = append(games, og)
	}
	return games, rows.Err()
}

// InsertFailedPayout appends to the manual-reconciliation ledger.
func (s *PostgresStore) InsertFailedPayout(ctx context.Context, fp FailedPayout) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO failed_payouts (game_code, winner, amount, error, transaction_id, resolved)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		fp.GameCode, fp.Winner, fp.Amount, fp.Error, fp.TransactionID, fp.Resolved)
	if err != nil {
		return fmt.Errorf("insert failed payout for %s: %w", fp.GameCode, err)
	}
	return nil
}

func marshalPiles(g *models.Game) (p1, p2, deck, discard []byte, err error) {
	if p1, err = json.Marshal(g.Players[0].Cards); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode player 1 cards: %w", err)
	}
	if p2, err = json.Marshal(g.Players[1].Cards); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode player 2 cards: %w", err)
	}
	if deck, err = json.Marshal(g.Deck); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode deck: %w", err)
	}
	if discard, err = json.Marshal(g.Discard); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode discard: %w", err)
	}
	return p1, p2, deck, discard, nil
}

func nullableSuit(s models.Suit) *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}

func nullableStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
