package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"board-arena/internal/config"
	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/ids"
	"board-arena/internal/ledger"
	"board-arena/internal/store"
)

type sent struct {
	to   string
	typ  string
	data any
}

type recorder struct {
	mu         sync.Mutex
	msgs       []sent
	broadcasts map[string]int
}

func newRecorder() *recorder {
	return &recorder{broadcasts: map[string]int{}}
}

func (r *recorder) SendTo(userID, msgType string, data any) bool {
	r.mu.Lock()
	r.msgs = append(r.msgs, sent{to: userID, typ: msgType, data: data})
	r.mu.Unlock()
	return true
}

func (r *recorder) Broadcast(msgType string, data any) int {
	r.mu.Lock()
	r.broadcasts[msgType]++
	r.mu.Unlock()
	return 1
}

func (r *recorder) of(userID, msgType string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, m := range r.msgs {
		if m.to == userID && m.typ == msgType {
			out = append(out, m.data)
		}
	}
	return out
}

func (r *recorder) count(userID, msgType string) int {
	return len(r.of(userID, msgType))
}

type fakeWallet struct {
	mu       sync.Mutex
	balances map[string]int64
	settled  []ledger.GameResult
}

func newWallet(balances map[string]int64) *fakeWallet {
	return &fakeWallet{balances: balances}
}

func (w *fakeWallet) HoldStake(_ context.Context, userID, _ string, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[userID] < amount {
		return 0, store.ErrInsufficientBalance
	}
	w.balances[userID] -= amount
	return w.balances[userID], nil
}

func (w *fakeWallet) ReleaseStake(_ context.Context, userID, _ string, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] += amount
	return w.balances[userID], nil
}

func (w *fakeWallet) balance(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

// SettleGame pays held stakes out: the pot to the winner between humans,
// the stake back otherwise.
func (w *fakeWallet) SettleGame(_ context.Context, g ledger.GameResult) []ledger.BalanceChange {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settled = append(w.settled, g)
	bothHuman := !ids.IsBot(g.Players[0]) && !ids.IsBot(g.Players[1])
	var out []ledger.BalanceChange
	for _, uid := range g.Players {
		if uid == "" || ids.IsBot(uid) {
			continue
		}
		var d int64
		pay := g.Stake
		switch {
		case !bothHuman || g.Draw:
		case uid == g.WinnerID:
			d, pay = g.Stake, 2*g.Stake
		default:
			d, pay = -g.Stake, 0
		}
		w.balances[uid] += pay
		out = append(out, ledger.BalanceChange{UserID: uid, Delta: d, Balance: w.balances[uid]})
	}
	return out
}

func (w *fakeWallet) results() []ledger.GameResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]ledger.GameResult(nil), w.settled...)
}

type spectatorLog struct {
	mu     sync.Mutex
	events map[string][]string
	ended  map[string]bool
}

func newSpectatorLog() *spectatorLog {
	return &spectatorLog{events: map[string][]string{}, ended: map[string]bool{}}
}

func (s *spectatorLog) Publish(roomID, event string, _ viewmodel.PublicView) {
	s.mu.Lock()
	s.events[roomID] = append(s.events[roomID], event)
	s.mu.Unlock()
}

func (s *spectatorLog) End(roomID string) {
	s.mu.Lock()
	s.ended[roomID] = true
	s.mu.Unlock()
}

type observerFunc func(ctx context.Context, res MatchResult)

func (f observerFunc) MatchFinished(ctx context.Context, res MatchResult) { f(ctx, res) }

var (
	alice = game.Player{ID: "alice", Name: "Alice"}
	bob   = game.Player{ID: "bob", Name: "Bob"}
)

func testConfig() config.GameplayConfig {
	return config.GameplayConfig{
		BotJoinDelay:    time.Hour,
		BotMoveDelay:    time.Millisecond,
		BotMoveCap:      64,
		DisconnectGrace: time.Hour,
	}
}

type fixture struct {
	m      *Manager
	out    *recorder
	wallet *fakeWallet
	watch  *spectatorLog
}

func newFixture(t *testing.T, cfg config.GameplayConfig) fixture {
	t.Helper()
	f := fixture{
		out:    newRecorder(),
		wallet: newWallet(map[string]int64{"alice": 100, "bob": 100}),
		watch:  newSpectatorLog(),
	}
	f.m = newManager(t, cfg, f.wallet, f.out, f.watch)
	return f
}

func newManager(t *testing.T, cfg config.GameplayConfig, w Wallet, out Sender, sp Spectators) *Manager {
	t.Helper()
	m := NewManager(cfg, Deps{
		Games:      game.NewRegistry(game.Options{}),
		Wallet:     w,
		Out:        out,
		Spectators: sp,
	})
	t.Cleanup(m.Shutdown)
	return m
}

// memAccounts backs a real ledger in memory.
type memAccounts struct {
	mu       sync.Mutex
	balances map[string]int64
	records  []store.GameRecord
}

func (a *memAccounts) GetAccountBalance(_ context.Context, id string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[id], nil
}

func (a *memAccounts) Debit(_ context.Context, id string, amount int64, _, _, _ string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balances[id] < amount {
		return 0, store.ErrInsufficientBalance
	}
	a.balances[id] -= amount
	return a.balances[id], nil
}

func (a *memAccounts) Credit(_ context.Context, id string, amount int64, _, _, _ string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[id] += amount
	return a.balances[id], nil
}

func (a *memAccounts) InsertGameRecord(_ context.Context, r store.GameRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
	return nil
}

func (a *memAccounts) balance(id string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[id]
}

func (a *memAccounts) history() []store.GameRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]store.GameRecord(nil), a.records...)
}

// seatPair puts alice and bob into a fresh tic-tac-toe room, alice first.
func (f fixture) seatPair(t *testing.T, bet int64) string {
	t.Helper()
	sum, err := f.m.CreateRoom(context.Background(), alice, game.KindTicTacToe, bet)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := f.m.JoinRoom(context.Background(), bob, sum.ID); err != nil {
		t.Fatalf("join room: %v", err)
	}
	return sum.ID
}
