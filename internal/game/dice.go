package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

type Roller interface {
	Roll() (int, int)
}

// RandRoller rolls two six-sided dice from a seeded source. Safe for
// concurrent use.
type RandRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandRoller(seed int64) *RandRoller {
	return &RandRoller{rng: rand.New(rand.NewSource(seed))}
}

// NewSeededRoller seeds from crypto/rand, falling back to a fixed seed if the
// system source is unavailable.
func NewSeededRoller() *RandRoller {
	var b [8]byte
	seed := int64(0x5eed)
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return NewRandRoller(seed)
}

func (r *RandRoller) Roll() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(6) + 1, r.rng.Intn(6) + 1
}

// SeqRoller replays a fixed list of rolls, cycling when exhausted.
type SeqRoller struct {
	mu    sync.Mutex
	rolls [][2]int
	next  int
}

func NewSeqRoller(rolls ...[2]int) *SeqRoller {
	return &SeqRoller{rolls: rolls}
}

func (r *SeqRoller) Roll() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rolls) == 0 {
		return 1, 2
	}
	p := r.rolls[r.next%len(r.rolls)]
	r.next++
	return p[0], p[1]
}

// Budget returns the dice available for a roll: doubles are played four times.
func Budget(d1, d2 int) []int {
	if d1 == d2 {
		return []int{d1, d1, d1, d1}
	}
	return []int{d1, d2}
}
