package board

import (
	"math/rand"
	"time"
)

// DefaultGoals is the template pool a fresh board draws from. A board
// needs gridSize²-1 of them; the extra entries add variety between
// freshly created boards.
var DefaultGoals = []string{
	"Cook a new recipe together",
	"Watch a sunrise",
	"Go on a hike",
	"Have a phone-free dinner",
	"Try a new restaurant",
	"Write each other a letter",
	"Plan a weekend trip",
	"Learn a dance move",
	"Visit a museum",
	"Have a picnic",
	"Do a puzzle together",
	"Stargaze for an hour",
	"Take a photo walk",
	"Bake bread from scratch",
	"Go to a farmers market",
	"Have a board game night",
	"Volunteer for an afternoon",
	"Try a workout class",
	"Make homemade pizza",
	"Read the same book",
	"Go bowling",
	"Have a movie marathon",
	"Build a blanket fort",
	"Try rock climbing",
	"Plant something",
	"Go to a concert",
	"Take a day trip somewhere new",
	"Make breakfast in bed",
	"Go ice skating",
	"Do a paint night",
}

// FreeSpaceText is the label on the permanently completed center tile.
const FreeSpaceText = "Free Space"

// NewDeck builds a fresh tile list for a size×size board: template
// goals shuffled into every non-center position and the center marked
// as the always-completed free space. Tile ids match their initial
// positions.
func NewDeck(size int, goals []string) []Tile {
	if size <= 0 {
		size = DefaultGridSize
	}
	if len(goals) == 0 {
		goals = DefaultGoals
	}
	pool := make([]string, len(goals))
	copy(pool, goals)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	total := size * size
	center := CenterIndex(size)
	items := make([]Tile, total)
	next := 0
	for i := 0; i < total; i++ {
		if i == center {
			items[i] = Tile{
				ID:           i,
				Text:         FreeSpaceText,
				IsFreeSpace:  true,
				IsCompleted:  true,
				TargetCount:  1,
				CurrentCount: 1,
			}
			continue
		}
		text := ""
		if next < len(pool) {
			text = pool[next]
			next++
		}
		items[i] = Tile{
			ID:          i,
			Text:        text,
			TargetCount: 1,
		}
	}
	return items
}

// NewState assembles a fresh board document owned by creator.
func NewState(size int, goals []string, creator User, now time.Time) State {
	members := map[string]Role{}
	if creator.ID != "" {
		members[creator.ID] = RoleOwner
	}
	return State{
		GridSize:    size,
		Items:       NewDeck(size, goals),
		Members:     members,
		LastUpdated: now,
		CreatedAt:   now,
	}
}
