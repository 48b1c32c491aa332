package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"board-arena/internal/config"
	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/ids"
	"board-arena/internal/notify"
	"board-arena/internal/store"
	"board-arena/internal/timers"

	"github.com/rs/zerolog/log"
)

type Deps struct {
	Games    *game.Registry
	Wallet   Wallet
	Out      Sender
	Notifier notify.Notifier

	// Spectators is optional.
	Spectators Spectators
}

// Manager owns every live room. Lock order: a room's mu may be held while
// taking m.mu, never the other way round.
type Manager struct {
	cfg      config.GameplayConfig
	games    *game.Registry
	wallet   Wallet
	out      Sender
	notifier notify.Notifier
	watchers Spectators
	timers   *timers.Set

	mu       sync.Mutex
	rooms    map[string]*Room
	byUser   map[string]string
	matches  map[string]string
	lobby    map[string]RoomSummary
	observer MatchObserver
}

func NewManager(cfg config.GameplayConfig, d Deps) *Manager {
	n := d.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	var sp Spectators = noSpectators{}
	if d.Spectators != nil {
		sp = d.Spectators
	}
	return &Manager{
		cfg:      cfg,
		games:    d.Games,
		wallet:   d.Wallet,
		out:      d.Out,
		notifier: n,
		watchers: sp,
		timers:   timers.New(),
		rooms:    map[string]*Room{},
		byUser:   map[string]string{},
		matches:  map[string]string{},
		lobby:    map[string]RoomSummary{},
	}
}

func (m *Manager) SetObserver(o MatchObserver) {
	m.mu.Lock()
	m.observer = o
	m.mu.Unlock()
}

func (m *Manager) room(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id]
}

// holdStake debits a human's stake for roomID. It is given back by
// releaseStake or paid out when the room settles.
func (m *Manager) holdStake(ctx context.Context, userID, roomID string, bet int64) error {
	if bet <= 0 || ids.IsBot(userID) {
		return nil
	}
	if _, err := m.wallet.HoldStake(ctx, userID, roomID, bet); err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("hold stake: %w", err)
	}
	return nil
}

func (m *Manager) releaseStake(ctx context.Context, userID, roomID string, bet int64) {
	if bet <= 0 || ids.IsBot(userID) {
		return
	}
	if _, err := m.wallet.ReleaseStake(ctx, userID, roomID, bet); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("room_id", roomID).Int64("bet", bet).Msg("release stake failed")
	}
}

// claim reserves users for roomID; it fails without side effects if any of
// them already sits in another open room.
func (m *Manager) claim(roomID string, users ...game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range users {
		if u.Bot {
			continue
		}
		if rid, ok := m.byUser[u.ID]; ok && rid != roomID {
			if _, open := m.rooms[rid]; open {
				return ErrAlreadyInRoom
			}
		}
	}
	for _, u := range users {
		if !u.Bot {
			m.byUser[u.ID] = roomID
		}
	}
	return nil
}

func (m *Manager) release(roomID, userID string) {
	m.mu.Lock()
	if m.byUser[userID] == roomID {
		delete(m.byUser, userID)
	}
	m.mu.Unlock()
}

func (m *Manager) add(r *Room) {
	m.mu.Lock()
	m.rooms[r.id] = r
	if r.matchID != "" {
		m.matches[r.matchID] = r.id
	}
	m.mu.Unlock()
	metricRoomsOpen.Add(1)
}

func (m *Manager) forget(r *Room) {
	m.mu.Lock()
	if _, ok := m.rooms[r.id]; ok {
		metricRoomsOpen.Add(-1)
	}
	delete(m.rooms, r.id)
	delete(m.lobby, r.id)
	for _, p := range r.players {
		if m.byUser[p.ID] == r.id {
			delete(m.byUser, p.ID)
		}
	}
	if r.matchID != "" && m.matches[r.matchID] == r.id {
		delete(m.matches, r.matchID)
	}
	m.mu.Unlock()
}

// syncLobby must be called with r.mu held after any change that affects
// whether r is listed.
func (m *Manager) syncLobby(r *Room) {
	m.mu.Lock()
	if r.listed() {
		m.lobby[r.id] = r.summary()
	} else {
		delete(m.lobby, r.id)
	}
	m.mu.Unlock()
}

func (m *Manager) ListRooms() []RoomSummary {
	m.mu.Lock()
	out := make([]RoomSummary, 0, len(m.lobby))
	for _, s := range m.lobby {
		out = append(out, s)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) broadcastLobby() {
	m.out.Broadcast(MsgRoomsList, m.ListRooms())
}

func (m *Manager) CreateRoom(ctx context.Context, user game.Player, kind game.Kind, bet int64) (RoomSummary, error) {
	rules, err := m.games.Rules(kind)
	if err != nil {
		return RoomSummary{}, err
	}
	if bet < 0 {
		return RoomSummary{}, ErrInvalidBet
	}
	r := newRoom(kind, rules, bet)
	r.host, r.hostName = user.ID, user.Name
	r.players = []game.Player{user}
	if err := m.claim(r.id, user); err != nil {
		return RoomSummary{}, err
	}
	if err := m.holdStake(ctx, user.ID, r.id, bet); err != nil {
		m.release(r.id, user.ID)
		return RoomSummary{}, err
	}
	m.add(r)

	r.mu.Lock()
	m.syncLobby(r)
	m.armBotJoin(r)
	sum := r.summary()
	r.mu.Unlock()

	metricRoomsCreated.Add(1)
	log.Info().Str("room_id", r.id).Str("user_id", user.ID).Str("game", string(kind)).Int64("bet", bet).Msg("room created")
	m.out.SendTo(user.ID, MsgRoomCreated, sum)
	m.broadcastLobby()
	return sum, nil
}

// CreateAdminRoom opens a room with up to two pre-seated players.
func (m *Manager) CreateAdminRoom(ctx context.Context, kind game.Kind, bet int64, players []game.Player) (RoomSummary, error) {
	rules, err := m.games.Rules(kind)
	if err != nil {
		return RoomSummary{}, err
	}
	if bet < 0 {
		return RoomSummary{}, ErrInvalidBet
	}
	if len(players) > 2 {
		return RoomSummary{}, ErrRoomFull
	}
	r := newRoom(kind, rules, bet)
	r.admin = true
	r.players = append([]game.Player(nil), players...)
	if len(players) > 0 {
		r.host, r.hostName = players[0].ID, players[0].Name
	}
	if err := m.claim(r.id, players...); err != nil {
		return RoomSummary{}, err
	}
	for i, p := range players {
		if err := m.holdStake(ctx, p.ID, r.id, bet); err != nil {
			for _, held := range players[:i] {
				m.releaseStake(ctx, held.ID, r.id, bet)
			}
			for _, u := range players {
				m.release(r.id, u.ID)
			}
			return RoomSummary{}, fmt.Errorf("%s: %w", p.ID, err)
		}
	}
	m.add(r)

	r.mu.Lock()
	switch len(r.players) {
	case 2:
		m.start(r)
	case 1:
		m.armBotJoin(r)
	}
	m.syncLobby(r)
	sum := r.summary()
	r.mu.Unlock()

	metricRoomsCreated.Add(1)
	log.Info().Str("room_id", r.id).Str("game", string(kind)).Int("seated", len(players)).Msg("admin room created")
	m.broadcastLobby()
	return sum, nil
}

// QuickJoin joins the oldest open room with the same game and bet, or opens
// a new one.
func (m *Manager) QuickJoin(ctx context.Context, user game.Player, kind game.Kind, bet int64) (RoomSummary, error) {
	for _, s := range m.ListRooms() {
		if s.GameType != kind || s.Bet != bet || s.HostID == user.ID {
			continue
		}
		sum, err := m.JoinRoom(ctx, user, s.ID)
		if err == nil {
			return sum, nil
		}
		if err != ErrRoomFull && err != ErrRoomNotJoinable && err != ErrRoomNotFound {
			return RoomSummary{}, err
		}
	}
	return m.CreateRoom(ctx, user, kind, bet)
}

func (m *Manager) JoinRoom(ctx context.Context, user game.Player, roomID string) (RoomSummary, error) {
	r := m.room(roomID)
	if r == nil {
		return RoomSummary{}, ErrRoomNotFound
	}
	r.mu.Lock()
	if r.seat(user.ID) >= 0 {
		m.reconnectLocked(r, user.ID)
		sum := r.summary()
		r.mu.Unlock()
		return sum, nil
	}
	if r.status != StatusWaiting || r.matchID != "" || r.settled {
		r.mu.Unlock()
		return RoomSummary{}, ErrRoomNotJoinable
	}
	if len(r.players) >= 2 {
		r.mu.Unlock()
		return RoomSummary{}, ErrRoomFull
	}
	bet := r.bet
	r.mu.Unlock()

	if err := m.claim(roomID, user); err != nil {
		return RoomSummary{}, err
	}
	if err := m.holdStake(ctx, user.ID, roomID, bet); err != nil {
		m.release(roomID, user.ID)
		return RoomSummary{}, err
	}

	r.mu.Lock()
	if r.status != StatusWaiting || r.settled || len(r.players) >= 2 {
		r.mu.Unlock()
		m.releaseStake(ctx, user.ID, roomID, bet)
		m.release(roomID, user.ID)
		return RoomSummary{}, ErrRoomFull
	}
	r.players = append(r.players, user)
	if r.host == "" {
		r.host, r.hostName = user.ID, user.Name
	}
	if len(r.players) == 2 {
		m.start(r)
	} else {
		m.armBotJoin(r)
	}
	m.syncLobby(r)
	sum := r.summary()
	r.mu.Unlock()

	log.Info().Str("room_id", roomID).Str("user_id", user.ID).Msg("room joined")
	m.broadcastLobby()
	return sum, nil
}

// start requires r.mu and exactly two seated players.
func (m *Manager) start(r *Room) {
	m.timers.Cancel(botJoinKey(r.id))
	r.state = r.rules.InitialState(r.pair())
	r.status = StatusActive
	metricGamesStarted.Add(1)
	log.Info().
		Str("room_id", r.id).
		Str("match_id", r.matchID).
		Str("game", string(r.kind)).
		Str("p0", r.players[0].ID).
		Str("p1", r.players[1].ID).
		Msg("game started")
	if r.matchID == "" {
		m.sendViews(r, MsgGameStart)
	}
	m.armBotMove(r)
}

func (m *Manager) sendViews(r *Room, base string) {
	rv := r.viewRoom()
	for seat, p := range r.players {
		if p.Bot {
			continue
		}
		m.out.SendTo(p.ID, r.msg(base), viewmodel.BuildPlayerView(rv, seat))
	}
	m.watchers.Publish(r.id, base, viewmodel.BuildPublicView(rv))
}

func (m *Manager) sendHumans(r *Room, msgType string, data any) {
	for _, p := range r.players {
		if !p.Bot {
			m.out.SendTo(p.ID, msgType, data)
		}
	}
}

func (m *Manager) HandleMove(ctx context.Context, userID, roomID string, mv game.Move) error {
	r := m.room(roomID)
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seat(userID) < 0 {
		return ErrNotInRoom
	}
	m.reconnectLocked(r, userID)
	if r.status != StatusActive || len(r.players) < 2 {
		return ErrGameNotActive
	}
	if err := m.applyLocked(ctx, r, userID, mv); err != nil {
		return err
	}
	if r.status == StatusActive {
		m.armBotMove(r)
	}
	return nil
}

func (m *Manager) RollDice(ctx context.Context, userID, roomID string) error {
	return m.HandleMove(ctx, userID, roomID, game.Move{Action: game.ActionRoll})
}

// applyLocked runs one move through the rules, broadcasts the new state and
// settles if the game ended.
func (m *Manager) applyLocked(ctx context.Context, r *Room, actorID string, mv game.Move) error {
	res, err := r.rules.ProcessMove(r.state, mv, actorID, r.pair())
	if err != nil {
		metricMovesRejected.Add(1)
		return err
	}
	r.state = res.State
	r.moves++
	metricMoves.Add(1)
	m.sendViews(r, MsgGameUpdate)
	if out := r.rules.CheckEnd(r.state, r.pair()); out.Over {
		m.finishLocked(ctx, r, out, ReasonNormal)
	}
	return nil
}

// GetState returns the caller's view and counts as a reconnect.
func (m *Manager) GetState(userID, roomID string) (viewmodel.PlayerView, error) {
	r := m.room(roomID)
	if r == nil {
		return viewmodel.PlayerView{}, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	seat := r.seat(userID)
	if seat < 0 {
		return viewmodel.PlayerView{}, ErrNotInRoom
	}
	m.reconnectLocked(r, userID)
	return r.view(seat), nil
}

// PublicState is the spectator view of a live room.
func (m *Manager) PublicState(roomID string) (viewmodel.PublicView, error) {
	r := m.room(roomID)
	if r == nil {
		return viewmodel.PublicView{}, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return viewmodel.BuildPublicView(r.viewRoom()), nil
}

// RoomOf returns the open room a user sits in, if any.
func (m *Manager) RoomOf(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rid, ok := m.byUser[userID]
	if !ok {
		return "", false
	}
	_, open := m.rooms[rid]
	return rid, open
}

func (m *Manager) Leave(ctx context.Context, userID, roomID string) error {
	r := m.room(roomID)
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seat(userID) < 0 {
		return ErrNotInRoom
	}
	if r.settled {
		return nil
	}
	switch r.status {
	case StatusWaiting:
		m.discardLocked(r, ReasonLeft)
	case StatusActive:
		opp, _ := r.opponentOf(userID)
		log.Info().Str("room_id", r.id).Str("user_id", userID).Msg("player left active game")
		m.finishLocked(ctx, r, game.Outcome{Over: true, WinnerID: opp.ID}, ReasonLeft)
	}
	return nil
}

// discardLocked drops a room whose game never started and gives back the
// stakes held for it.
func (m *Manager) discardLocked(r *Room, reason string) {
	r.settled = true
	r.status = StatusFinished
	m.cancelTimers(r)
	m.forget(r)
	for _, p := range r.players {
		m.releaseStake(context.Background(), p.ID, r.id, r.bet)
	}
	m.watchers.End(r.id)
	log.Info().Str("room_id", r.id).Str("reason", reason).Msg("room discarded")
	m.broadcastLobby()
}

func (m *Manager) cancelTimers(r *Room) {
	m.timers.Cancel(botJoinKey(r.id))
	m.timers.Cancel(botMoveKey(r.id))
	for _, p := range r.players {
		m.timers.Cancel(graceKey(r.id, p.ID))
	}
}

// finishLocked settles a room exactly once.
func (m *Manager) finishLocked(ctx context.Context, r *Room, out game.Outcome, reason string) {
	if r.settled {
		return
	}
	r.settled = true
	r.status = StatusFinished
	if r.state != nil && !r.state.Common().Over {
		st := r.state.Clone()
		c := st.Common()
		c.Over, c.Winner, c.Draw = true, out.WinnerID, out.Draw
		r.state = st
	}
	m.cancelTimers(r)
	m.forget(r)
	metricGamesFinished.Add(1)
	if reason == ReasonForfeit || reason == ReasonLeft || reason == ReasonNoMoves {
		metricForfeits.Add(1)
	}
	log.Info().
		Str("room_id", r.id).
		Str("match_id", r.matchID).
		Str("winner", out.WinnerID).
		Bool("draw", out.Draw).
		Str("reason", reason).
		Int("moves", r.moves).
		Msg("game finished")

	stake := r.bet
	if r.matchID != "" {
		stake = 0
	}
	changes := m.wallet.SettleGame(ctx, ledgerResult(r, out, stake))
	for _, c := range changes {
		if c.Delta == 0 {
			continue
		}
		upd := BalanceUpdate{RoomID: r.id, Balance: c.Balance, Delta: c.Delta}
		m.out.SendTo(c.UserID, MsgBalanceUpdate, upd)
		if err := m.notifier.Notify(ctx, c.UserID, MsgBalanceUpdate, upd); err != nil {
			log.Warn().Err(err).Str("user_id", c.UserID).Msg("balance notification failed")
		}
	}

	m.sendHumans(r, r.msg(MsgGameEnd), GameEnd{
		RoomID:  r.id,
		MatchID: r.matchID,
		Winner:  out.WinnerID,
		IsDraw:  out.Draw,
		Reason:  reason,
		State:   r.state,
	})
	m.watchers.Publish(r.id, MsgGameEnd, viewmodel.BuildPublicView(r.viewRoom()))
	m.watchers.End(r.id)

	if r.matchID != "" {
		m.mu.Lock()
		obs := m.observer
		m.mu.Unlock()
		if obs != nil {
			res := MatchResult{
				TournamentID: r.tournamentID,
				MatchID:      r.matchID,
				RoomID:       r.id,
				Players:      r.playerIDs(),
				WinnerID:     out.WinnerID,
				Draw:         out.Draw,
			}
			go obs.MatchFinished(context.Background(), res)
		}
		return
	}
	m.broadcastLobby()
}

// Shutdown stops every pending timer. Rooms are left as they are.
func (m *Manager) Shutdown() {
	m.timers.Stop()
}

func newBot() game.Player {
	return game.Player{ID: ids.NewBotID(), Name: ids.BotName(rand.IntN(1 << 16)), Bot: true}
}
