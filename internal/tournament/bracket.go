package tournament

import (
	"math/rand/v2"

	"board-arena/internal/game"
	"board-arena/internal/ids"
)

// fillBots pads players with generated bots up to size.
func fillBots(players []game.Player, size int) []game.Player {
	out := append([]game.Player(nil), players...)
	for i := 0; len(out) < size; i++ {
		out = append(out, game.Player{ID: ids.NewBotID(), Name: ids.BotName(i), Bot: true})
	}
	return out
}

// firstRound shuffles entrants and pairs them in order.
func firstRound(entrants []game.Player, rng *rand.Rand) Round {
	shuffled := append([]game.Player(nil), entrants...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return pairUp(shuffled)
}

func pairUp(players []game.Player) Round {
	r := Round{Name: roundName(len(players) / 2)}
	for i := 0; i+1 < len(players); i += 2 {
		r.Matches = append(r.Matches, Match{
			ID:      ids.NewID(),
			Players: []game.Player{players[i], players[i+1]},
		})
	}
	return r
}

func complete(r Round) bool {
	for _, m := range r.Matches {
		if m.Winner == "" {
			return false
		}
	}
	return true
}

func winnerOf(m Match) (game.Player, bool) {
	for _, p := range m.Players {
		if p.ID == m.Winner {
			return p, true
		}
	}
	return game.Player{}, false
}

func loserOf(m Match) (game.Player, bool) {
	for _, p := range m.Players {
		if p.ID != m.Winner {
			return p, true
		}
	}
	return game.Player{}, false
}

// nextRound pairs the winners of adjacent matches of a completed round.
func nextRound(prev Round) Round {
	winners := make([]game.Player, 0, len(prev.Matches))
	for _, m := range prev.Matches {
		w, _ := winnerOf(m)
		winners = append(winners, w)
	}
	return pairUp(winners)
}

// resolveBotOnly picks random winners for unresolved bot-vs-bot matches and
// returns how many it resolved.
func resolveBotOnly(r *Round, rng *rand.Rand) int {
	n := 0
	for i := range r.Matches {
		m := &r.Matches[i]
		if m.Winner != "" || !m.botOnly() {
			continue
		}
		m.Winner = m.Players[rng.IntN(2)].ID
		n++
	}
	return n
}

// payouts splits the pool by elimination depth: tiers[0] percent to the
// winner, tiers[1] to the runner-up, tiers[2] shared by the semifinal losers
// and so on. Bots are skipped and their share stays unpaid.
func payouts(t *Tournament, tiers []int) []Payout {
	if len(t.Bracket) == 0 || t.PrizePool <= 0 {
		return nil
	}
	final := t.Bracket[len(t.Bracket)-1].Matches[0]
	champ, _ := winnerOf(final)
	groups := [][]game.Player{{champ}}
	for ri := len(t.Bracket) - 1; ri >= 0; ri-- {
		var losers []game.Player
		for _, m := range t.Bracket[ri].Matches {
			if l, ok := loserOf(m); ok {
				losers = append(losers, l)
			}
		}
		groups = append(groups, losers)
	}

	var out []Payout
	for place, pct := range tiers {
		if place >= len(groups) || len(groups[place]) == 0 {
			break
		}
		share := t.PrizePool * int64(pct) / 100 / int64(len(groups[place]))
		if share <= 0 {
			continue
		}
		for _, p := range groups[place] {
			if p.Bot {
				continue
			}
			out = append(out, Payout{UserID: p.ID, Place: place + 1, Amount: share})
		}
	}
	return out
}
