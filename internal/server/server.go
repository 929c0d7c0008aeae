// Package server exposes the game service over HTTP and WebSockets.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kb-solutions/crazy-server/internal/game"
	"github.com/kb-solutions/crazy-server/internal/store"
)

// Server routes client traffic to the game service.
type Server struct {
	svc   *game.Service
	store store.GameStore
	log   *logrus.Logger
	rooms *roomRegistry
}

// New builds a Server over the game service and store.
func New(svc *game.Service, st store.GameStore, log *logrus.Logger) *Server {
	return &Server{
		svc:   svc,
		store: st,
		log:   log,
		rooms: newRoomRegistry(),
	}
}

// Routes returns the full HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games", s.handleListOpenGames)
	mux.HandleFunc("GET /api/games/{code}", s.handleGetGame)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createGameRequest struct {
	Phone     string          `json:"phone"`
	Username  string          `json:"username"`
	AuthToken string          `json:"authToken"`
	Bet       decimal.Decimal `json:"bet"`
	IsPrivate bool            `json:"isPrivate"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "phone and username are required")
		return
	}
	if req.Bet.IsNegative() {
		writeError(w, http.StatusBadRequest, "bet cannot be negative")
		return
	}

	sess, err := s.svc.CreateGame(r.Context(), game.CreateParams{
		Phone:     req.Phone,
		Username:  req.Username,
		AuthToken: req.AuthToken,
		Bet:       req.Bet,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		s.log.WithError(err).Error("create game failed")
		writeError(w, http.StatusInternalServerError, "could not create game")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"code": sess.Game().Code,
		"bet":  req.Bet,
	})
}

// handleGetGame returns the public view of one game: no hands, no tokens.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	g, err := s.store.GetByCode(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		s.log.WithField("game", code).WithError(err).Error("get game failed")
		writeError(w, http.StatusInternalServerError, "could not read game")
		return
	}

	resp := map[string]any{
		"code":      g.Code,
		"status":    g.Status,
		"bet":       g.Bet,
		"isPrivate": g.IsPrivate,
		"player1":   g.Players[0].Username,
		"createdAt": g.CreatedAt,
	}
	if g.Players[1].Joined() {
		resp["player2"] = g.Players[1].Username
	}
	if g.Status.Terminal() {
		resp["result"] = g.Result
		if g.Winner != 0 {
			resp["winner"] = g.Player(g.Winner).Username
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOpenGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.store.ListOpen(r.Context())
	if err != nil {
		s.log.WithError(err).Error("list open games failed")
		writeError(w, http.StatusInternalServerError, "could not list games")
		return
	}
	if games == nil {
		games = []store.OpenGame{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
