package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"github.com/kb-solutions/crazy-server/internal/game"
	"github.com/kb-solutions/crazy-server/internal/models"
)

const writeTimeout = 5 * time.Second

// clientMessage is the envelope of every inbound WebSocket message. The
// first message on a connection must be a "join" carrying the player's
// identity; afterwards only intent messages are accepted.
type clientMessage struct {
	Type string `json:"type"`

	Phone     string `json:"phone,omitempty"`
	Username  string `json:"username,omitempty"`
	AuthToken string `json:"authToken,omitempty"`

	Card    *models.Card        `json:"card,omitempty"`
	Options *models.PlayOptions `json:"options,omitempty"`
}

// room holds the live connections of one session and implements its
// broadcast callbacks.
type room struct {
	mu    sync.Mutex
	conns [2]*websocket.Conn
}

func (r *room) set(player int, c *websocket.Conn) {
	r.mu.Lock()
	r.conns[player-1] = c
	r.mu.Unlock()
}

func (r *room) clear(player int, c *websocket.Conn) {
	r.mu.Lock()
	if r.conns[player-1] == c {
		r.conns[player-1] = nil
	}
	r.mu.Unlock()
}

func (r *room) write(c *websocket.Conn, ev game.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, c, ev)
}

func (r *room) broadcast(ev game.Event) {
	r.mu.Lock()
	conns := r.conns
	r.mu.Unlock()
	for _, c := range conns {
		if c != nil {
			r.write(c, ev)
		}
	}
}

func (r *room) sendTo(player int, ev game.Event) {
	r.mu.Lock()
	c := r.conns[player-1]
	r.mu.Unlock()
	if c != nil {
		r.write(c, ev)
	}
}

func (r *room) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[0] == nil && r.conns[1] == nil
}

type roomRegistry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func newRoomRegistry() *roomRegistry {
	return &roomRegistry{rooms: make(map[string]*room)}
}

func (rr *roomRegistry) get(code string) *room {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.rooms[code]
	if !ok {
		r = &room{}
		rr.rooms[code] = r
	}
	return r
}

func (rr *roomRegistry) drop(code string, r *room) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.rooms[code] == r && r.empty() {
		delete(rr.rooms, code)
	}
}

// handleWS runs one player's connection: join handshake, then the intent
// loop until the socket closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing game code")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}

	ctx := r.Context()

	var hello clientMessage
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = wsjson.Read(readCtx, conn, &hello)
	cancel()
	if err != nil || hello.Type != "join" || hello.Phone == "" {
		conn.Close(websocket.StatusPolicyViolation, "expected join message")
		return
	}

	player, err := s.seatPlayer(ctx, code, hello)
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	rm := s.rooms.get(code)
	rm.set(player, conn)
	if err := s.svc.AttachTransport(code, rm.broadcast, rm.sendTo); err != nil {
		rm.clear(player, conn)
		conn.Close(websocket.StatusInternalError, "session lost")
		return
	}
	if err := s.svc.Reconnect(code, player); err != nil {
		s.log.WithField("game", code).WithError(err).Warn("state resend failed")
	}

	s.log.WithFields(logrus.Fields{"game": code, "player": player}).Info("player connected")
	s.readLoop(ctx, conn, code, player)

	rm.clear(player, conn)
	s.rooms.drop(code, rm)
	if err := s.svc.HandleDisconnect(context.Background(), code, player); err != nil {
		s.log.WithField("game", code).WithError(err).Error("disconnect handling failed")
	}
	s.log.WithFields(logrus.Fields{"game": code, "player": player}).Info("player disconnected")
	conn.Close(websocket.StatusNormalClosure, "")
}

// seatPlayer resolves which seat the connecting player takes: their
// existing seat if they already belong to the session, otherwise seat 2
// via a stake-funding join.
func (s *Server) seatPlayer(ctx context.Context, code string, hello clientMessage) (int, error) {
	if n := s.svc.PlayerNumber(code, hello.Phone); n != 0 {
		return n, nil
	}
	if _, err := s.svc.JoinGame(ctx, code, hello.Phone, hello.Username, hello.AuthToken); err != nil {
		return 0, err
	}
	return 2, nil
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, code string, player int) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		s.dispatch(ctx, code, player, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, code string, player int, msg clientMessage) {
	var err error
	switch msg.Type {
	case "playCard", "chooseCardOptions":
		if msg.Card == nil {
			return
		}
		opts := models.PlayOptions{}
		if msg.Options != nil {
			opts = *msg.Options
		}
		err = s.svc.HandlePlay(ctx, code, player, *msg.Card, opts)
	case "drawCard":
		err = s.svc.HandleDraw(ctx, code, player)
	case "passTurn":
		err = s.svc.HandlePass(ctx, code, player)
	case "cancelGame":
		err = s.svc.CancelGame(ctx, code, player)
	default:
		s.log.WithFields(logrus.Fields{"game": code, "type": msg.Type}).
			Debug("unknown intent")
		return
	}
	if err != nil {
		// Rejection events already went to the player; this is just ops
		// visibility.
		s.log.WithFields(logrus.Fields{
			"game":   code,
			"player": player,
			"intent": msg.Type,
		}).WithError(err).Debug("intent rejected")
	}
}
