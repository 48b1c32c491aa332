package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/registry"
	"board-arena/internal/session"
	"board-arena/internal/store"
	"board-arena/internal/tournament"
)

type fakeUsers map[string]store.User

func (f fakeUsers) GetUserByAPIKey(_ context.Context, key string) (*store.User, error) {
	u, ok := f[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

type fakeRooms struct {
	mu           sync.Mutex
	created      []game.Kind
	disconnected []string
	moveErr      error
	matchErr     error
	resume       *viewmodel.PlayerView
}

func (f *fakeRooms) CreateRoom(_ context.Context, _ game.Player, kind game.Kind, bet int64) (session.RoomSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, kind)
	return session.RoomSummary{ID: "r1", GameType: kind, Bet: bet}, nil
}

func (f *fakeRooms) QuickJoin(ctx context.Context, u game.Player, kind game.Kind, bet int64) (session.RoomSummary, error) {
	return f.CreateRoom(ctx, u, kind, bet)
}

func (f *fakeRooms) JoinRoom(context.Context, game.Player, string) (session.RoomSummary, error) {
	return session.RoomSummary{}, session.ErrRoomNotFound
}

func (f *fakeRooms) Leave(context.Context, string, string) error { return nil }

func (f *fakeRooms) HandleMove(_ context.Context, _, roomID string, _ game.Move) error {
	if roomID == "boom" {
		panic("boom")
	}
	return f.moveErr
}

func (f *fakeRooms) RollDice(context.Context, string, string) error { return nil }

func (f *fakeRooms) GetState(_, roomID string) (viewmodel.PlayerView, error) {
	return viewmodel.PlayerView{RoomID: roomID}, nil
}

func (f *fakeRooms) ListRooms() []session.RoomSummary {
	return []session.RoomSummary{{ID: "lobby-1"}}
}

func (f *fakeRooms) JoinMatch(string, string) (viewmodel.PlayerView, error) {
	return viewmodel.PlayerView{}, f.matchErr
}

func (f *fakeRooms) MatchMove(context.Context, string, string, game.Move) error { return f.matchErr }

func (f *fakeRooms) Reconnect(string) (viewmodel.PlayerView, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resume == nil {
		return viewmodel.PlayerView{}, false
	}
	return *f.resume, true
}

func (f *fakeRooms) Disconnect(userID string) {
	f.mu.Lock()
	f.disconnected = append(f.disconnected, userID)
	f.mu.Unlock()
}

func (f *fakeRooms) disconnects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.disconnected...)
}

type fakeTours struct{}

func (fakeTours) Register(context.Context, string, game.Player) error { return tournament.ErrTournamentFull }
func (fakeTours) Withdraw(context.Context, string, string) error      { return nil }

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func setup(t *testing.T, rooms *fakeRooms) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	users := fakeUsers{"key-a": {ID: "alice", Name: "Alice"}}
	srv := NewServer(users, rooms, fakeTours{}, reg, Options{AllowAnyOrigin: true, SendBuffer: 16})
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return ts, reg
}

func dial(t *testing.T, ts *httptest.Server, key string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/?api_key=" + key
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func write(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func errorOf(t *testing.T, env envelope) string {
	t.Helper()
	var e ErrorMessage
	if err := json.Unmarshal(env.Data, &e); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return e.Message
}

func TestRejectsUnknownKey(t *testing.T) {
	ts, _ := setup(t, &fakeRooms{})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/?api_key=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestBearerHeaderAccepted(t *testing.T) {
	ts, _ := setup(t, &fakeRooms{})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	h := http.Header{}
	h.Set("Authorization", "Bearer key-a")
	conn, _, err := websocket.DefaultDialer.Dial(url, h)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if env := read(t, conn); env.Type != session.MsgRoomsList {
		t.Fatalf("first message = %s, want roomsList", env.Type)
	}
}

func TestCreateRoomDispatches(t *testing.T) {
	rooms := &fakeRooms{}
	ts, _ := setup(t, rooms)
	conn := dial(t, ts, "key-a")
	read(t, conn)

	write(t, conn, `{"type":"createRoom","data":{"gameType":"chess","bet":5}}`)
	write(t, conn, `{"type":"listRooms"}`)
	if env := read(t, conn); env.Type != session.MsgRoomsList {
		t.Fatalf("got %s, want roomsList", env.Type)
	}
	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	if len(rooms.created) != 1 || rooms.created[0] != game.KindChess {
		t.Fatalf("created = %v", rooms.created)
	}
}

func TestErrorsAreMapped(t *testing.T) {
	rooms := &fakeRooms{moveErr: game.ErrNotYourTurn, matchErr: session.ErrMatchNotFound}
	ts, _ := setup(t, rooms)
	conn := dial(t, ts, "key-a")
	read(t, conn)

	cases := []struct {
		msg      string
		wantType string
		wantCode string
	}{
		{`{"type":"playerMove","data":{"roomId":"r1","move":{"cell":3}}}`, session.MsgError, "not_your_turn"},
		{`{"type":"tournamentMove","data":{"matchId":"m1","move":{"uci":"e2e4"}}}`, TypeTournamentGameError, "match_not_found"},
		{`{"type":"joinTournament","data":{"tournamentId":"t1"}}`, session.MsgError, "tournament_full"},
		{`{"type":"createRoom","data":{"gameType":"go"}}`, session.MsgError, "unknown_game"},
		{`{"type":"bogus"}`, session.MsgError, "unknown_message_type"},
		{`{"type":"joinRoom"}`, session.MsgError, "invalid_payload"},
		{`not json`, session.MsgError, "invalid_message"},
	}
	for _, tc := range cases {
		write(t, conn, tc.msg)
		env := read(t, conn)
		if env.Type != tc.wantType {
			t.Fatalf("%s: type = %s, want %s", tc.msg, env.Type, tc.wantType)
		}
		if got := errorOf(t, env); got != tc.wantCode {
			t.Fatalf("%s: code = %s, want %s", tc.msg, got, tc.wantCode)
		}
	}
}

func TestPanicIsContained(t *testing.T) {
	ts, _ := setup(t, &fakeRooms{})
	conn := dial(t, ts, "key-a")
	read(t, conn)

	write(t, conn, `{"type":"playerMove","data":{"roomId":"boom","move":{}}}`)
	if got := errorOf(t, read(t, conn)); got != "internal_error" {
		t.Fatalf("code = %s, want internal_error", got)
	}
	write(t, conn, `{"type":"getGameState","data":{"roomId":"r9"}}`)
	if env := read(t, conn); env.Type != session.MsgGameUpdate {
		t.Fatalf("got %s after panic, want gameUpdate", env.Type)
	}
}

func TestReconnectResendsState(t *testing.T) {
	rooms := &fakeRooms{resume: &viewmodel.PlayerView{RoomID: "r1", MatchID: "m1"}}
	ts, _ := setup(t, rooms)
	conn := dial(t, ts, "key-a")
	if env := read(t, conn); env.Type != "tournamentGameStart" {
		t.Fatalf("got %s, want tournamentGameStart", env.Type)
	}
}

func TestReplacedConnectionDoesNotDisconnect(t *testing.T) {
	rooms := &fakeRooms{}
	ts, reg := setup(t, rooms)
	first := dial(t, ts, "key-a")
	read(t, first)
	second := dial(t, ts, "key-a")
	read(t, second)

	time.Sleep(50 * time.Millisecond)
	if got := rooms.disconnects(); len(got) != 0 {
		t.Fatalf("disconnects after replace = %v", got)
	}
	if !reg.Connected("alice") {
		t.Fatal("alice should still be attached")
	}

	_ = second.Close()
	deadline := time.Now().Add(2 * time.Second)
	for len(rooms.disconnects()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("disconnect not reported")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestErrorCodeFallback(t *testing.T) {
	if got := errorCode(context.DeadlineExceeded); got != "internal_error" {
		t.Fatalf("got %s", got)
	}
	if got := errorCode(tournament.ErrAlreadyRegistered); got != "already_registered" {
		t.Fatalf("got %s", got)
	}
}
