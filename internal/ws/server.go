package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/registry"
	"board-arena/internal/session"
	"board-arena/internal/store"
	"board-arena/internal/tournament"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
)

type Users interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (*store.User, error)
}

// Rooms is the session manager surface used by connected players.
type Rooms interface {
	CreateRoom(ctx context.Context, user game.Player, kind game.Kind, bet int64) (session.RoomSummary, error)
	QuickJoin(ctx context.Context, user game.Player, kind game.Kind, bet int64) (session.RoomSummary, error)
	JoinRoom(ctx context.Context, user game.Player, roomID string) (session.RoomSummary, error)
	Leave(ctx context.Context, userID, roomID string) error
	HandleMove(ctx context.Context, userID, roomID string, mv game.Move) error
	RollDice(ctx context.Context, userID, roomID string) error
	GetState(userID, roomID string) (viewmodel.PlayerView, error)
	ListRooms() []session.RoomSummary
	JoinMatch(userID, matchID string) (viewmodel.PlayerView, error)
	MatchMove(ctx context.Context, userID, matchID string, mv game.Move) error
	Reconnect(userID string) (viewmodel.PlayerView, bool)
	Disconnect(userID string)
}

type Tournaments interface {
	Register(ctx context.Context, tournamentID string, user game.Player) error
	Withdraw(ctx context.Context, tournamentID, userID string) error
}

type Options struct {
	AllowAnyOrigin bool
	SendBuffer     int
}

type Client struct {
	id     string
	user   game.Player
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
}

func (c *Client) ID() string { return c.id }

// Send queues payload without blocking; a full or closed queue drops it.
func (c *Client) Send(payload []byte) bool {
	return safeSend(c.send, payload)
}

func (c *Client) Close() {
	safeClose(c.send)
	_ = c.conn.Close()
}

type Server struct {
	users    Users
	rooms    Rooms
	tours    Tournaments
	reg      *registry.Registry
	upgrader websocket.Upgrader
	buffer   int
}

func NewServer(users Users, rooms Rooms, tours Tournaments, reg *registry.Registry, opts Options) *Server {
	up := websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}
	if opts.AllowAnyOrigin {
		up.CheckOrigin = func(r *http.Request) bool { return true }
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	return &Server{
		users:    users,
		rooms:    rooms,
		tours:    tours,
		reg:      reg,
		upgrader: up,
		buffer:   opts.SendBuffer,
	}
}

func apiKeyFrom(r *http.Request) string {
	if k := strings.TrimSpace(r.URL.Query().Get("api_key")); k != "" {
		return k
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	key := apiKeyFrom(r)
	if key == "" {
		http.Error(w, "missing_api_key", http.StatusUnauthorized)
		return
	}
	u, err := s.users.GetUserByAPIKey(r.Context(), key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("ws auth lookup failed")
		}
		http.Error(w, "invalid_api_key", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{
		id:     uuid.NewString(),
		user:   game.Player{ID: u.ID, Name: u.Name},
		conn:   conn,
		send:   make(chan []byte, s.buffer),
		closed: make(chan struct{}),
	}
	s.reg.Attach(u.ID, c)
	log.Info().Str("user_id", u.ID).Str("conn_id", c.id).Msg("ws connected")

	go s.writeLoop(c)
	s.greet(c)
	s.readLoop(r.Context(), c)
}

// greet restores a running game and sends the lobby.
func (s *Server) greet(c *Client) {
	if v, ok := s.rooms.Reconnect(c.user.ID); ok {
		s.reply(c, viewType(v, session.MsgGameStart), v)
	}
	s.reply(c, session.MsgRoomsList, s.rooms.ListRooms())
}

func viewType(v viewmodel.PlayerView, base string) string {
	if v.MatchID != "" {
		return session.TournamentType(base)
	}
	return base
}

func (s *Server) readLoop(ctx context.Context, c *Client) {
	defer func() {
		close(c.closed)
		if s.reg.Detach(c.user.ID, c) {
			s.rooms.Disconnect(c.user.ID)
		}
		c.Close()
		log.Info().Str("user_id", c.user.ID).Str("conn_id", c.id).Msg("ws disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in Inbound
		if err := json.Unmarshal(msg, &in); err != nil || in.Type == "" {
			s.replyError(c, session.MsgError, "", "invalid_message")
			continue
		}
		s.dispatch(ctx, c, in)
	}
}

func (s *Server) writeLoop(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (s *Server) reply(c *Client, msgType string, data any) {
	payload, err := registry.Encode(msgType, data)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("encode reply failed")
		return
	}
	safeSend(c.send, payload)
}

func (s *Server) replyError(c *Client, msgType, request, code string) {
	s.reply(c, msgType, ErrorMessage{Message: code, Request: request})
}

func decodeData(in Inbound, v any) error {
	if len(in.Data) == 0 {
		return errInvalidPayload
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		return errInvalidPayload
	}
	return nil
}

var errInvalidPayload = errors.New("invalid_payload")

// dispatch runs one client message. Panics are contained here so a bad
// message never takes down the connection or the process.
func (s *Server) dispatch(ctx context.Context, c *Client, in Inbound) {
	errType := session.MsgError
	if in.Type == TypeJoinTournamentGame || in.Type == TypeTournamentMove {
		errType = TypeTournamentGameError
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("user_id", c.user.ID).Str("type", in.Type).Msg("ws handler panic")
			s.replyError(c, errType, in.Type, "internal_error")
		}
	}()

	if err := s.handle(ctx, c, in); err != nil {
		code := errorCode(err)
		if code == "internal_error" {
			log.Error().Err(err).Str("user_id", c.user.ID).Str("type", in.Type).Msg("ws request failed")
		}
		s.replyError(c, errType, in.Type, code)
	}
}

func (s *Server) handle(ctx context.Context, c *Client, in Inbound) error {
	uid := c.user.ID
	switch in.Type {
	case TypeCreateRoom, TypeQuickJoin:
		var m CreateRoomMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		kind, err := game.ParseKind(string(m.GameType))
		if err != nil {
			return err
		}
		if in.Type == TypeCreateRoom {
			_, err = s.rooms.CreateRoom(ctx, c.user, kind, m.Bet)
		} else {
			_, err = s.rooms.QuickJoin(ctx, c.user, kind, m.Bet)
		}
		return err
	case TypeJoinRoom:
		var m RoomMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		_, err := s.rooms.JoinRoom(ctx, c.user, m.RoomID)
		return err
	case TypeLeaveGame:
		var m RoomMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		return s.rooms.Leave(ctx, uid, m.RoomID)
	case TypePlayerMove:
		var m MoveMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		return s.rooms.HandleMove(ctx, uid, m.RoomID, m.Move)
	case TypeRollDice:
		var m RoomMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		return s.rooms.RollDice(ctx, uid, m.RoomID)
	case TypeGetGameState:
		var m RoomMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		v, err := s.rooms.GetState(uid, m.RoomID)
		if err != nil {
			return err
		}
		s.reply(c, viewType(v, session.MsgGameUpdate), v)
		return nil
	case TypeListRooms:
		s.reply(c, session.MsgRoomsList, s.rooms.ListRooms())
		return nil
	case TypeJoinTournament:
		var m TournamentMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		return s.tours.Register(ctx, m.TournamentID, c.user)
	case TypeLeaveTournament:
		var m TournamentMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		return s.tours.Withdraw(ctx, m.TournamentID, uid)
	case TypeJoinTournamentGame:
		var m MatchMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		v, err := s.rooms.JoinMatch(uid, m.MatchID)
		if err != nil {
			return err
		}
		s.reply(c, session.TournamentType(session.MsgGameStart), v)
		return nil
	case TypeTournamentMove:
		var m MatchMoveMessage
		if err := decodeData(in, &m); err != nil {
			return err
		}
		return s.rooms.MatchMove(ctx, uid, m.MatchID, m.Move)
	default:
		return errUnknownType
	}
}

var errUnknownType = errors.New("unknown_message_type")

var knownErrors = []error{
	errInvalidPayload,
	errUnknownType,
	game.ErrUnknownGame,
	game.ErrNotYourTurn,
	game.ErrGameOver,
	game.ErrInvalidMove,
	game.ErrCellOccupied,
	game.ErrIllegalMove,
	game.ErrWrongPhase,
	game.ErrMustEnterBar,
	game.ErrPointBlocked,
	game.ErrCannotBearOff,
	game.ErrDieUnavailable,
	game.ErrNoPiece,
	game.ErrMustContinue,
	game.ErrCaptureNeeded,
	session.ErrRoomNotFound,
	session.ErrRoomFull,
	session.ErrRoomNotJoinable,
	session.ErrAlreadyInRoom,
	session.ErrNotInRoom,
	session.ErrGameNotActive,
	session.ErrInsufficientBalance,
	session.ErrInvalidBet,
	session.ErrMatchNotFound,
	tournament.ErrNotFound,
	tournament.ErrNotRegistering,
	tournament.ErrTournamentFull,
	tournament.ErrAlreadyRegistered,
	tournament.ErrNotRegistered,
	tournament.ErrMatchNotFound,
	tournament.ErrInsufficientBalance,
}

// errorCode maps an error to the code sent to clients. Anything unexpected
// becomes internal_error.
func errorCode(err error) string {
	for _, k := range knownErrors {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "internal_error"
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
