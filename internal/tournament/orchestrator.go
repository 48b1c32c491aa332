package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"board-arena/internal/config"
	"board-arena/internal/game"
	"board-arena/internal/ids"
	"board-arena/internal/session"
	"board-arena/internal/store"
	"board-arena/internal/timers"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
)

// Store persists tournament documents.
type Store interface {
	SaveTournament(ctx context.Context, r store.TournamentRecord) error
	GetTournament(ctx context.Context, id string) (*store.TournamentRecord, error)
	ListTournaments(ctx context.Context, statuses ...string) ([]store.TournamentRecord, error)
}

type Wallet interface {
	EscrowEntryFee(ctx context.Context, userID, tournamentID string, fee int64) (int64, error)
	Refund(ctx context.Context, userID, tournamentID string, amount int64) (int64, error)
	PayPrize(ctx context.Context, userID, tournamentID string, amount int64) (int64, error)
}

// Sessions runs the individual matches.
type Sessions interface {
	StartMatch(ctx context.Context, spec session.MatchSpec) (string, error)
	MatchRoom(matchID string) (string, bool)
	MarkAbsent(matchID, userID string)
}

type Sender interface {
	SendTo(userID, msgType string, data any) bool
	Broadcast(msgType string, data any) int
	Connected(userID string) bool
}

type Deps struct {
	Store    Store
	Wallet   Wallet
	Sessions Sessions
	Out      Sender
	// Rand drives shuffles and bot-only results. Nil means a random seed.
	Rand *rand.Rand
}

// Orchestrator owns tournament documents. Every mutation of a tournament
// runs under that tournament's lock and re-reads the stored document first.
type Orchestrator struct {
	cfg      config.GameplayConfig
	store    Store
	wallet   Wallet
	sessions Sessions
	out      Sender
	timers   *timers.Set

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg config.GameplayConfig, d Deps) *Orchestrator {
	rng := d.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:      cfg,
		store:    d.Store,
		wallet:   d.Wallet,
		sessions: d.Sessions,
		out:      d.Out,
		timers:   timers.New(),
		locks:    map[string]*sync.Mutex{},
		rng:      rng,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close stops countdowns and pending match-ready retries.
func (o *Orchestrator) Close() {
	o.cancel()
	o.timers.Stop()
}

func (o *Orchestrator) lock(id string) func() {
	o.locksMu.Lock()
	mu, ok := o.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		o.locks[id] = mu
	}
	o.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (o *Orchestrator) withRand(fn func(r *rand.Rand)) {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	fn(o.rng)
}

func startKey(id string) string { return "start:" + id }

func decode(rec *store.TournamentRecord) (*Tournament, error) {
	var t Tournament
	if err := json.Unmarshal(rec.Doc, &t); err != nil {
		return nil, fmt.Errorf("decode tournament %s: %w", rec.ID, err)
	}
	return &t, nil
}

func (o *Orchestrator) load(ctx context.Context, id string) (*Tournament, error) {
	rec, err := o.store.GetTournament(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (o *Orchestrator) save(ctx context.Context, t *Tournament) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return o.store.SaveTournament(ctx, store.TournamentRecord{
		ID:       t.ID,
		Slug:     t.Slug,
		GameType: string(t.GameType),
		Status:   string(t.Status),
		StartsAt: t.StartsAt,
		Doc:      doc,
	})
}

func (o *Orchestrator) Get(ctx context.Context, id string) (*Tournament, error) {
	return o.load(ctx, id)
}

// List returns tournaments in the given statuses, or all when none given.
func (o *Orchestrator) List(ctx context.Context, statuses ...Status) ([]Tournament, error) {
	ss := make([]string, 0, len(statuses))
	for _, s := range statuses {
		ss = append(ss, string(s))
	}
	recs, err := o.store.ListTournaments(ctx, ss...)
	if err != nil {
		return nil, err
	}
	out := make([]Tournament, 0, len(recs))
	for i := range recs {
		t, err := decode(&recs[i])
		if err != nil {
			log.Warn().Err(err).Str("tournament_id", recs[i].ID).Msg("skip undecodable tournament")
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

type CreateParams struct {
	Name       string    `json:"name"`
	GameType   game.Kind `json:"gameType"`
	EntryFee   int64     `json:"entryFee"`
	MaxPlayers int       `json:"maxPlayers"`
	StartsAt   time.Time `json:"startsAt"`
}

func (o *Orchestrator) Create(ctx context.Context, p CreateParams) (*Tournament, error) {
	if _, err := game.ParseKind(string(p.GameType)); err != nil {
		return nil, err
	}
	if !validMaxPlayers(p.MaxPlayers) {
		return nil, ErrInvalidMaxPlayers
	}
	if p.EntryFee < 0 {
		return nil, ErrInvalidFee
	}
	id := ids.NewID()
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = fmt.Sprintf("%s cup", p.GameType)
	}
	t := &Tournament{
		ID:            id,
		Name:          name,
		Slug:          slug.Make(name) + "-" + strings.ToLower(id[len(id)-6:]),
		GameType:      p.GameType,
		Status:        StatusRegistering,
		EntryFee:      p.EntryFee,
		CommissionPct: o.cfg.TournamentCommissionPct,
		MaxPlayers:    p.MaxPlayers,
		StartsAt:      p.StartsAt.UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.save(ctx, t); err != nil {
		return nil, fmt.Errorf("save tournament: %w", err)
	}
	metricCreated.Add(1)
	log.Info().Str("tournament_id", t.ID).Str("slug", t.Slug).Str("game", string(t.GameType)).Int("max_players", t.MaxPlayers).Msg("tournament created")
	o.broadcastUpdate(t)
	return t, nil
}

func (o *Orchestrator) broadcastUpdate(t *Tournament) {
	o.out.Broadcast(MsgUpdated, Updated{
		TournamentID: t.ID,
		Status:       t.Status,
		Players:      len(t.Players),
		MaxPlayers:   t.MaxPlayers,
		PrizePool:    t.PrizePool,
	})
}

func (o *Orchestrator) scheduleStart(id string, d time.Duration) {
	o.timers.Schedule(startKey(id), d, func() {
		if err := o.Start(o.ctx, id); err != nil {
			log.Error().Err(err).Str("tournament_id", id).Msg("scheduled tournament start failed")
		}
	})
}

// Register escrows the entry fee and seats user. The first registrant starts
// the countdown; the last one replaces it with a short delayed start.
func (o *Orchestrator) Register(ctx context.Context, tournamentID string, user game.Player) error {
	unlock := o.lock(tournamentID)
	defer unlock()

	t, err := o.load(ctx, tournamentID)
	if err != nil {
		return err
	}
	switch {
	case t.Status != StatusRegistering:
		return ErrNotRegistering
	case t.registered(user.ID):
		return ErrAlreadyRegistered
	case len(t.Players) >= t.MaxPlayers:
		return ErrTournamentFull
	}
	if _, err := o.wallet.EscrowEntryFee(ctx, user.ID, t.ID, t.EntryFee); err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("escrow entry fee: %w", err)
	}

	first := t.FirstRegisteredAt == nil
	if first {
		now := time.Now().UTC()
		t.FirstRegisteredAt = &now
	}
	t.Players = append(t.Players, game.Player{ID: user.ID, Name: user.Name})
	t.recomputePool()
	if err := o.save(ctx, t); err != nil {
		if _, rerr := o.wallet.Refund(ctx, user.ID, t.ID, t.EntryFee); rerr != nil {
			log.Error().Err(rerr).Str("tournament_id", t.ID).Str("user_id", user.ID).Msg("refund after failed registration failed")
		}
		return fmt.Errorf("save tournament: %w", err)
	}

	switch {
	case len(t.Players) == t.MaxPlayers:
		o.scheduleStart(t.ID, o.cfg.TournamentFullStartDelay)
	case first:
		o.scheduleStart(t.ID, o.cfg.TournamentCountdown)
	}
	log.Info().Str("tournament_id", t.ID).Str("user_id", user.ID).Int("players", len(t.Players)).Msg("tournament registration")
	o.broadcastUpdate(t)
	return nil
}

// Withdraw refunds and removes a registrant while registration is open.
func (o *Orchestrator) Withdraw(ctx context.Context, tournamentID, userID string) error {
	unlock := o.lock(tournamentID)
	defer unlock()

	t, err := o.load(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusRegistering {
		return ErrNotRegistering
	}
	if !t.registered(userID) {
		return ErrNotRegistered
	}
	kept := t.Players[:0]
	for _, p := range t.Players {
		if p.ID != userID {
			kept = append(kept, p)
		}
	}
	t.Players = kept
	t.recomputePool()
	if len(t.Players) == 0 {
		t.FirstRegisteredAt = nil
		o.timers.Cancel(startKey(t.ID))
	}
	if err := o.save(ctx, t); err != nil {
		return fmt.Errorf("save tournament: %w", err)
	}
	if _, err := o.wallet.Refund(ctx, userID, t.ID, t.EntryFee); err != nil {
		log.Error().Err(err).Str("tournament_id", t.ID).Str("user_id", userID).Msg("withdraw refund failed")
	}
	log.Info().Str("tournament_id", t.ID).Str("user_id", userID).Msg("tournament withdrawal")
	o.broadcastUpdate(t)
	return nil
}

// Cancel closes registration and refunds every registrant.
func (o *Orchestrator) Cancel(ctx context.Context, tournamentID string) error {
	unlock := o.lock(tournamentID)
	defer unlock()

	t, err := o.load(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusRegistering {
		return ErrNotRegistering
	}
	o.timers.Cancel(startKey(t.ID))
	t.Status = StatusCancelled
	if err := o.save(ctx, t); err != nil {
		return fmt.Errorf("save tournament: %w", err)
	}
	for _, p := range t.Players {
		if _, err := o.wallet.Refund(ctx, p.ID, t.ID, t.EntryFee); err != nil {
			log.Error().Err(err).Str("tournament_id", t.ID).Str("user_id", p.ID).Msg("cancel refund failed")
		}
		o.out.SendTo(p.ID, MsgCancelled, Updated{TournamentID: t.ID, Status: t.Status})
	}
	metricCancelled.Add(1)
	log.Info().Str("tournament_id", t.ID).Int("refunded", len(t.Players)).Msg("tournament cancelled")
	o.broadcastUpdate(t)
	return nil
}

// Start moves a tournament out of registration. Calling it again, or for a
// tournament that already left REGISTERING, does nothing.
func (o *Orchestrator) Start(ctx context.Context, tournamentID string) error {
	unlock := o.lock(tournamentID)
	defer unlock()

	t, err := o.load(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusRegistering {
		return nil
	}
	o.timers.Cancel(startKey(t.ID))

	if len(t.Players) == 0 {
		t.Status = StatusCancelled
		if err := o.save(ctx, t); err != nil {
			return fmt.Errorf("save tournament: %w", err)
		}
		metricCancelled.Add(1)
		log.Info().Str("tournament_id", t.ID).Msg("tournament cancelled, nobody registered")
		o.broadcastUpdate(t)
		return nil
	}

	entrants := fillBots(t.Players, t.MaxPlayers)
	o.withRand(func(r *rand.Rand) { t.Bracket = []Round{firstRound(entrants, r)} })
	t.Status = StatusActive
	metricStarted.Add(1)
	log.Info().Str("tournament_id", t.ID).Int("humans", len(t.Players)).Int("bots", len(entrants)-len(t.Players)).Msg("tournament started")

	eff, err := o.advanceLocked(ctx, t)
	if err != nil {
		return err
	}
	o.broadcastUpdate(t)
	o.apply(ctx, t, eff)
	return nil
}

// MatchFinished records a finished match room.
func (o *Orchestrator) MatchFinished(ctx context.Context, res session.MatchResult) {
	if err := o.RecordResult(ctx, res.TournamentID, res.MatchID, res.WinnerID, res.Draw); err != nil {
		log.Error().Err(err).Str("tournament_id", res.TournamentID).Str("match_id", res.MatchID).Msg("record match result failed")
	}
}

// RecordResult stores a match outcome and advances the bracket. A match that
// already has a winner is left alone. Draws are replayed a bounded number of
// times before a winner is drawn at random.
func (o *Orchestrator) RecordResult(ctx context.Context, tournamentID, matchID, winnerID string, draw bool) error {
	unlock := o.lock(tournamentID)
	defer unlock()

	t, err := o.load(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusActive {
		return nil
	}
	m, ri := t.findMatch(matchID)
	if m == nil {
		return ErrMatchNotFound
	}
	if m.Winner != "" || ri != len(t.Bracket)-1 {
		return nil
	}

	var eff effects
	replay := false
	if draw || !m.has(winnerID) {
		if m.Replays < o.cfg.TournamentDrawReplays {
			replay = true
			m.Replays++
			m.RoomID = ""
			metricReplays.Add(1)
			log.Info().Str("tournament_id", t.ID).Str("match_id", m.ID).Int("replay", m.Replays).Msg("tournament match drawn, replaying")
			for _, p := range m.Players {
				if !p.Bot {
					eff.results = append(eff.results, notice{userID: p.ID, msg: MatchResult{TournamentID: t.ID, MatchID: m.ID, Type: ResultDraw}})
				}
			}
		} else {
			o.withRand(func(r *rand.Rand) { winnerID = m.Players[r.IntN(len(m.Players))].ID })
			log.Info().Str("tournament_id", t.ID).Str("match_id", m.ID).Str("winner", winnerID).Msg("draw replays exhausted, winner drawn")
		}
	}
	if !replay {
		m.Winner = winnerID
		for _, p := range m.Players {
			if p.Bot {
				continue
			}
			typ := ResultEliminated
			if p.ID == winnerID {
				typ = ResultAdvanced
			}
			eff.results = append(eff.results, notice{userID: p.ID, msg: MatchResult{TournamentID: t.ID, MatchID: m.ID, Type: typ, Winner: winnerID}})
		}
		log.Info().Str("tournament_id", t.ID).Str("match_id", m.ID).Str("winner", winnerID).Msg("tournament match resolved")
	}

	more, err := o.advanceLocked(ctx, t)
	if err != nil {
		return err
	}
	more.results = append(eff.results, more.results...)
	o.apply(ctx, t, more)
	return nil
}

type notice struct {
	userID string
	msg    any
}

// effects are the messages and payments that follow a persisted advance.
type effects struct {
	results  []notice
	ready    []readyNotice
	finished bool
}

type readyNotice struct {
	matchID string
	userID  string
	msg     MatchReady
}

// advanceLocked is the single advancement step: resolve bot-only matches,
// append rounds while the current one is complete, persist, then spawn rooms
// for the matches still to be played.
func (o *Orchestrator) advanceLocked(ctx context.Context, t *Tournament) (effects, error) {
	var eff effects
	for t.Status == StatusActive {
		cur := &t.Bracket[len(t.Bracket)-1]
		var n int
		o.withRand(func(r *rand.Rand) { n = resolveBotOnly(cur, r) })
		if n > 0 {
			metricBotOnly.Add(int64(n))
			log.Debug().Str("tournament_id", t.ID).Str("round", cur.Name).Int("matches", n).Msg("bot-only matches resolved")
		}
		if !complete(*cur) {
			break
		}
		if len(cur.Matches) == 1 {
			t.Status = StatusFinished
			t.Winner = cur.Matches[0].Winner
			t.Payouts = payouts(t, o.cfg.PayoutTiers)
			eff.finished = true
			break
		}
		t.Bracket = append(t.Bracket, nextRound(*cur))
	}
	if err := o.save(ctx, t); err != nil {
		return effects{}, fmt.Errorf("save tournament: %w", err)
	}
	if t.Status != StatusActive {
		return eff, nil
	}

	cur := &t.Bracket[len(t.Bracket)-1]
	spawned := false
	for i := range cur.Matches {
		m := &cur.Matches[i]
		if m.Winner != "" || m.RoomID != "" || len(m.Players) != 2 {
			continue
		}
		roomID, err := o.sessions.StartMatch(ctx, session.MatchSpec{
			TournamentID: t.ID,
			MatchID:      m.ID,
			Kind:         t.GameType,
			Players:      [2]game.Player{m.Players[0], m.Players[1]},
		})
		if err != nil {
			log.Error().Err(err).Str("tournament_id", t.ID).Str("match_id", m.ID).Msg("start tournament match failed")
			continue
		}
		m.RoomID = roomID
		spawned = true
		for seat, p := range m.Players {
			if p.Bot {
				continue
			}
			eff.ready = append(eff.ready, readyNotice{
				matchID: m.ID,
				userID:  p.ID,
				msg: MatchReady{
					TournamentID: t.ID,
					MatchID:      m.ID,
					RoomID:       roomID,
					Round:        cur.Name,
					GameType:     t.GameType,
					Opponent:     m.Players[1-seat],
				},
			})
		}
	}
	if spawned {
		if err := o.save(ctx, t); err != nil {
			return effects{}, fmt.Errorf("save tournament: %w", err)
		}
	}
	return eff, nil
}

func (o *Orchestrator) apply(ctx context.Context, t *Tournament, eff effects) {
	for _, n := range eff.results {
		o.out.SendTo(n.userID, MsgMatchResult, n.msg)
	}
	for _, n := range eff.ready {
		go o.deliverReady(n)
	}
	if eff.finished {
		o.complete(ctx, t)
	}
}

// deliverReady retries until the user is reachable, then gives up and lets
// the room's grace timer decide the match.
func (o *Orchestrator) deliverReady(n readyNotice) {
	attempts := o.cfg.MatchReadyRetries + 1
	for i := 0; i < attempts; i++ {
		if o.out.Connected(n.userID) && o.out.SendTo(n.userID, MsgMatchReady, n.msg) {
			return
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-o.ctx.Done():
			return
		case <-time.After(o.cfg.MatchReadyRetryInterval):
		}
	}
	log.Warn().Str("match_id", n.matchID).Str("user_id", n.userID).Msg("match ready undeliverable, marking absent")
	o.sessions.MarkAbsent(n.matchID, n.userID)
}

func (o *Orchestrator) complete(ctx context.Context, t *Tournament) {
	prizes := map[string]int64{}
	for _, p := range t.Payouts {
		if _, err := o.wallet.PayPrize(ctx, p.UserID, t.ID, p.Amount); err != nil {
			log.Error().Err(err).Str("tournament_id", t.ID).Str("user_id", p.UserID).Int64("amount", p.Amount).Msg("pay prize failed")
			continue
		}
		prizes[p.UserID] += p.Amount
	}
	for _, p := range t.Players {
		o.out.SendTo(p.ID, MsgCompleted, Completed{
			TournamentID: t.ID,
			IsWinner:     p.ID == t.Winner,
			Winner:       t.Winner,
			PrizePool:    t.PrizePool,
			Prize:        prizes[p.ID],
		})
	}
	metricFinished.Add(1)
	log.Info().Str("tournament_id", t.ID).Str("winner", t.Winner).Int64("prize_pool", t.PrizePool).Msg("tournament finished")
	o.broadcastUpdate(t)
}

// StartDue starts registering tournaments whose start time or countdown has
// passed and warns registrants of ones starting within the warning lead.
func (o *Orchestrator) StartDue(ctx context.Context, now time.Time) (int, error) {
	due, err := o.List(ctx, StatusRegistering)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, t := range due {
		at, ok := t.dueAt(o.cfg.TournamentCountdown)
		if !ok {
			continue
		}
		if !now.Before(at) {
			if err := o.Start(ctx, t.ID); err != nil {
				log.Error().Err(err).Str("tournament_id", t.ID).Msg("start due tournament failed")
				continue
			}
			started++
			continue
		}
		if !t.WarningSent && !t.StartsAt.IsZero() && t.StartsAt.Sub(now) <= o.cfg.TournamentWarningLead {
			if err := o.warn(ctx, t.ID); err != nil {
				log.Error().Err(err).Str("tournament_id", t.ID).Msg("tournament warning failed")
			}
		}
	}
	return started, nil
}

// Recover rebuilds in-memory state after a restart. Registration countdowns
// are re-armed with whatever time is left, and active tournaments get fresh
// rooms for matches whose rooms died with the previous process.
func (o *Orchestrator) Recover(ctx context.Context) error {
	now := time.Now()
	waiting, err := o.List(ctx, StatusRegistering)
	if err != nil {
		return err
	}
	for _, t := range waiting {
		at, ok := t.dueAt(o.cfg.TournamentCountdown)
		if !ok {
			continue
		}
		if len(t.Players) >= t.MaxPlayers {
			at = now.Add(o.cfg.TournamentFullStartDelay)
		}
		o.scheduleStart(t.ID, max(at.Sub(now), 0))
	}

	active, err := o.List(ctx, StatusActive)
	if err != nil {
		return err
	}
	for _, t := range active {
		if err := o.respawn(ctx, t.ID); err != nil {
			log.Error().Err(err).Str("tournament_id", t.ID).Msg("tournament recovery failed")
		}
	}
	log.Info().Int("registering", len(waiting)).Int("active", len(active)).Msg("tournaments recovered")
	return nil
}

func (o *Orchestrator) respawn(ctx context.Context, tournamentID string) error {
	unlock := o.lock(tournamentID)
	defer unlock()

	t, err := o.load(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusActive {
		return nil
	}
	cur := &t.Bracket[len(t.Bracket)-1]
	lost := 0
	for i := range cur.Matches {
		m := &cur.Matches[i]
		if m.Winner != "" || m.RoomID == "" {
			continue
		}
		if _, live := o.sessions.MatchRoom(m.ID); live {
			continue
		}
		m.RoomID = ""
		lost++
	}
	eff, err := o.advanceLocked(ctx, t)
	if err != nil {
		return err
	}
	if lost > 0 {
		log.Info().Str("tournament_id", t.ID).Int("matches", lost).Msg("tournament match rooms respawned")
	}
	o.apply(ctx, t, eff)
	return nil
}

func (o *Orchestrator) warn(ctx context.Context, tournamentID string) error {
	unlock := o.lock(tournamentID)
	defer unlock()

	t, err := o.load(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusRegistering || t.WarningSent {
		return nil
	}
	t.WarningSent = true
	if err := o.save(ctx, t); err != nil {
		return fmt.Errorf("save tournament: %w", err)
	}
	msg := StartingSoon{TournamentID: t.ID, Name: t.Name, StartsAt: t.StartsAt}
	for _, p := range t.Players {
		o.out.SendTo(p.ID, MsgStartingSoon, msg)
	}
	log.Info().Str("tournament_id", t.ID).Int("players", len(t.Players)).Msg("tournament starting soon")
	return nil
}
