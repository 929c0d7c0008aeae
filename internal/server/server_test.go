package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb-solutions/crazy-server/internal/escrow"
	"github.com/kb-solutions/crazy-server/internal/game"
	"github.com/kb-solutions/crazy-server/internal/models"
	"github.com/kb-solutions/crazy-server/internal/store"
	"github.com/kb-solutions/crazy-server/internal/wallet"
)

type stubStore struct {
	mu    sync.Mutex
	games map[string]*models.Game
	open  []store.OpenGame
}

func newStubStore() *stubStore {
	return &stubStore{games: make(map[string]*models.Game)}
}

func (s *stubStore) GetByCode(_ context.Context, code string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *stubStore) Insert(_ context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.games[g.Code] = &cp
	return nil
}

func (s *stubStore) Update(_ context.Context, g *models.Game) error {
	return s.Insert(context.Background(), g)
}

func (s *stubStore) ListOpen(_ context.Context) ([]store.OpenGame, error) {
	return s.open, nil
}

func (s *stubStore) InsertFailedPayout(_ context.Context, _ store.FailedPayout) error {
	return nil
}

type stubWallet struct{}

func (stubWallet) Debit(_ context.Context, _ string, _ wallet.Transaction) (wallet.Result, error) {
	return wallet.Result{NewBalance: decimal.NewFromInt(100)}, nil
}

func (stubWallet) Credit(_ context.Context, _ string, _ wallet.Transaction) (wallet.Result, error) {
	return wallet.Result{NewBalance: decimal.NewFromInt(100)}, nil
}

func (stubWallet) CreditRollback(_ context.Context, _ string, _ wallet.Transaction) (wallet.Result, error) {
	return wallet.Result{NewBalance: decimal.NewFromInt(100)}, nil
}

func newTestServer(st *stubStore) *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := game.NewService(st, escrow.New(stubWallet{}, st, log), nil, log)
	return New(svc, st, log)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(newStubStore())

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateGameEndpoint(t *testing.T) {
	st := newStubStore()
	srv := newTestServer(st)

	body := `{"phone":"p1","username":"alice","authToken":"tok1","bet":"100","isPrivate":false}`
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/games", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Code)

	g, err := st.GetByCode(context.Background(), resp.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, g.Status)
	assert.Equal(t, "alice", g.Players[0].Username)
	assert.True(t, g.Bet.Equal(decimal.NewFromInt(100)))
}

func TestCreateGameValidation(t *testing.T) {
	srv := newTestServer(newStubStore())

	cases := []struct {
		name string
		body string
	}{
		{"missing identity", `{"bet":"10"}`},
		{"negative bet", `{"phone":"p1","username":"a","bet":"-5"}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/games", strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetGameEndpoint(t *testing.T) {
	st := newStubStore()
	g := &models.Game{
		Code:   "AB12CD",
		Status: models.StatusFinished,
		Bet:    decimal.NewFromInt(50),
		Winner: 2,
		Result: models.ResultWin,
	}
	g.Players[0] = models.PlayerSlot{Phone: "p1", Username: "alice", AuthToken: "tok1",
		Cards: []models.Card{{Suit: models.Hearts, Rank: models.RankFour}}}
	g.Players[1] = models.PlayerSlot{Phone: "p2", Username: "bob", AuthToken: "tok2"}
	require.NoError(t, st.Insert(context.Background(), g))
	srv := newTestServer(st)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/AB12CD", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AB12CD", resp["code"])
	assert.Equal(t, "alice", resp["player1"])
	assert.Equal(t, "bob", resp["player2"])
	assert.Equal(t, "bob", resp["winner"])
	assert.Equal(t, models.ResultWin, resp["result"])

	// Hands and wallet tokens never leave the server.
	body := rec.Body.String()
	assert.NotContains(t, body, "tok1")
	assert.NotContains(t, body, "cards")

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/NOSUCH", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOpenGamesEndpoint(t *testing.T) {
	st := newStubStore()
	st.open = []store.OpenGame{
		{Code: "AB12CD", Username: "alice", Bet: decimal.NewFromInt(50)},
	}
	srv := newTestServer(st)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Games []store.OpenGame `json:"games"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Games, 1)
	assert.Equal(t, "AB12CD", resp.Games[0].Code)
}
