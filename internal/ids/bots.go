package ids

import "fmt"

var botNames = []string{
	"Ada", "Bishop", "Castle", "Domino", "Echo", "Fianchetto", "Gambit", "Hex",
	"Ivory", "Jumper", "Knight", "Ladder", "Marble", "Nimbus", "Onyx", "Pawnstorm",
}

// BotName returns a display name for the i-th bot, cycling through a fixed pool.
func BotName(i int) string {
	if i < 0 {
		i = -i
	}
	if len(botNames) == 0 {
		return fmt.Sprintf("Bot %d", i)
	}
	return botNames[i%len(botNames)] + " (bot)"
}
