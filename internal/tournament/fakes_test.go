package tournament

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"board-arena/internal/config"
	"board-arena/internal/game"
	"board-arena/internal/session"
	"board-arena/internal/store"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string]store.TournamentRecord
}

func (s *memStore) SaveTournament(_ context.Context, r store.TournamentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Doc = append([]byte(nil), r.Doc...)
	r.UpdatedAt = time.Now()
	s.recs[r.ID] = r
	return nil
}

func (s *memStore) GetTournament(_ context.Context, id string) (*store.TournamentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.ID == id || r.Slug == id {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) ListTournaments(_ context.Context, statuses ...string) ([]store.TournamentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.TournamentRecord
	for _, r := range s.recs {
		if len(statuses) == 0 || contains(statuses, r.Status) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

type memWallet struct {
	mu       sync.Mutex
	balances map[string]int64
	prizes   map[string]int64
}

func (w *memWallet) EscrowEntryFee(_ context.Context, userID, _ string, fee int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[userID] < fee {
		return 0, fmt.Errorf("escrow entry fee: %w", store.ErrInsufficientBalance)
	}
	w.balances[userID] -= fee
	return w.balances[userID], nil
}

func (w *memWallet) Refund(_ context.Context, userID, _ string, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] += amount
	return w.balances[userID], nil
}

func (w *memWallet) PayPrize(_ context.Context, userID, _ string, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] += amount
	w.prizes[userID] += amount
	return w.balances[userID], nil
}

func (w *memWallet) balance(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

type fakeSessions struct {
	mu      sync.Mutex
	started []session.MatchSpec
	absent  []string
	live    map[string]string
}

func (s *fakeSessions) StartMatch(_ context.Context, spec session.MatchSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, spec)
	roomID := fmt.Sprintf("room-%d", len(s.started))
	if s.live == nil {
		s.live = map[string]string{}
	}
	s.live[spec.MatchID] = roomID
	return roomID, nil
}

func (s *fakeSessions) MatchRoom(matchID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.live[matchID]
	return roomID, ok
}

func (s *fakeSessions) MarkAbsent(matchID, userID string) {
	s.mu.Lock()
	s.absent = append(s.absent, matchID+"/"+userID)
	s.mu.Unlock()
}

func (s *fakeSessions) specs() []session.MatchSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.MatchSpec(nil), s.started...)
}

func (s *fakeSessions) absentees() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.absent...)
}

type outMsg struct {
	to   string
	typ  string
	data any
}

type fakeOut struct {
	mu      sync.Mutex
	msgs    []outMsg
	offline map[string]bool
}

func (f *fakeOut) SendTo(userID, msgType string, data any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline[userID] {
		return false
	}
	f.msgs = append(f.msgs, outMsg{to: userID, typ: msgType, data: data})
	return true
}

func (f *fakeOut) Broadcast(msgType string, data any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, outMsg{to: "*", typ: msgType, data: data})
	return 1
}

func (f *fakeOut) Connected(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.offline[userID]
}

func (f *fakeOut) of(userID, msgType string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, m := range f.msgs {
		if m.to == userID && m.typ == msgType {
			out = append(out, m.data)
		}
	}
	return out
}

type harness struct {
	o        *Orchestrator
	store    *memStore
	wallet   *memWallet
	sessions *fakeSessions
	out      *fakeOut
}

func testConfig() config.GameplayConfig {
	return config.GameplayConfig{
		TournamentCountdown:      time.Hour,
		TournamentFullStartDelay: time.Hour,
		TournamentWarningLead:    5 * time.Minute,
		TournamentDrawReplays:    2,
		TournamentCommissionPct:  10,
		PayoutTiers:              []int{60, 30, 10},
		MatchReadyRetries:        2,
		MatchReadyRetryInterval:  time.Millisecond,
	}
}

func newHarness(t *testing.T, cfg config.GameplayConfig) harness {
	t.Helper()
	return startHarness(t, cfg,
		&memStore{recs: map[string]store.TournamentRecord{}},
		&memWallet{balances: map[string]int64{}, prizes: map[string]int64{}})
}

func startHarness(t *testing.T, cfg config.GameplayConfig, st *memStore, w *memWallet) harness {
	t.Helper()
	h := harness{
		store:    st,
		wallet:   w,
		sessions: &fakeSessions{},
		out:      &fakeOut{offline: map[string]bool{}},
	}
	h.o = New(cfg, Deps{
		Store:    h.store,
		Wallet:   h.wallet,
		Sessions: h.sessions,
		Out:      h.out,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
	t.Cleanup(h.o.Close)
	return h
}

// restart stops h and boots a fresh orchestrator over the same persisted
// state. Rooms and timers of the old process are gone.
func (h harness) restart(t *testing.T, cfg config.GameplayConfig) harness {
	t.Helper()
	h.o.Close()
	return startHarness(t, cfg, h.store, h.wallet)
}

func (h harness) create(t *testing.T, max int, fee int64) *Tournament {
	t.Helper()
	tr, err := h.o.Create(context.Background(), CreateParams{
		Name:       "Spring Open",
		GameType:   game.KindTicTacToe,
		EntryFee:   fee,
		MaxPlayers: max,
	})
	require.NoError(t, err)
	return tr
}

// register funds and registers n humans named p0..pn-1.
func (h harness) register(t *testing.T, id string, n int, fee int64) []game.Player {
	t.Helper()
	var out []game.Player
	for i := 0; i < n; i++ {
		p := game.Player{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}
		h.wallet.mu.Lock()
		h.wallet.balances[p.ID] = fee * 10
		h.wallet.mu.Unlock()
		require.NoError(t, h.o.Register(context.Background(), id, p))
		out = append(out, p)
	}
	return out
}

func (h harness) get(t *testing.T, id string) *Tournament {
	t.Helper()
	tr, err := h.o.Get(context.Background(), id)
	require.NoError(t, err)
	return tr
}

// resolveRound reports the first player of every open match in the last
// round as the winner.
func (h harness) resolveRound(t *testing.T, id string) {
	t.Helper()
	tr := h.get(t, id)
	last := tr.Bracket[len(tr.Bracket)-1]
	for _, m := range last.Matches {
		if m.Winner != "" {
			continue
		}
		require.NoError(t, h.o.RecordResult(context.Background(), id, m.ID, m.Players[0].ID, false))
	}
}
