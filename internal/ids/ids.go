package ids

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// BotPrefix marks synthetic player identities. Bots never hold a balance.
const BotPrefix = "bot_"

var (
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyMu sync.Mutex
)

// NewID returns a lexically sortable unique id.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func NewBotID() string {
	return BotPrefix + strings.ToLower(NewID())
}

func IsBot(id string) bool {
	return strings.HasPrefix(id, BotPrefix)
}
