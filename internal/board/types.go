package board

import "time"

// Role is a member's permission level on a board.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// MaxProofPhotos is the per-tile cap on attached proof photos.
const MaxProofPhotos = 5

// DefaultGridSize is the classic 5x5 bingo card.
const DefaultGridSize = 5

// User identifies the person performing an action. Authentication
// happens upstream; the board layer only records attribution.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Attribution returns the name stamped on completed tiles.
func (u User) Attribution() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown"
}

// Style holds cosmetic text attributes for a tile. No behavior
// depends on it.
type Style struct {
	Color  string `json:"color,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Size   string `json:"size,omitempty"`
}

// Reaction is a lightweight emoji note left on a tile.
type Reaction struct {
	Emoji       string    `json:"emoji"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	At          time.Time `json:"at"`
}

// Tile is one cell of the grid. Position in the items slice is the
// grid cell (row-major); ID is only a stable render key and no longer
// matches the index once the board has been shuffled.
type Tile struct {
	ID           int        `json:"id"`
	Text         string     `json:"text"`
	IsFreeSpace  bool       `json:"isFreeSpace"`
	IsCompleted  bool       `json:"isCompleted"`
	TargetCount  int        `json:"targetCount"`
	CurrentCount int        `json:"currentCount"`
	CompletedBy  *string    `json:"completedBy"`
	CompletedAt  *time.Time `json:"completedAt"`
	ProofPhotos  []string   `json:"proofPhotos,omitempty"`
	Reactions    []Reaction `json:"reactions,omitempty"`
	Style        *Style     `json:"style,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

// Clone returns a deep copy of the tile. Slices are copied so a
// snapshot never aliases the previous one.
func (t Tile) Clone() Tile {
	c := t
	if t.ProofPhotos != nil {
		c.ProofPhotos = make([]string, len(t.ProofPhotos))
		copy(c.ProofPhotos, t.ProofPhotos)
	}
	if t.Reactions != nil {
		c.Reactions = make([]Reaction, len(t.Reactions))
		copy(c.Reactions, t.Reactions)
	}
	if t.Style != nil {
		s := *t.Style
		c.Style = &s
	}
	return c
}

// CloneTiles deep-copies a tile list.
func CloneTiles(items []Tile) []Tile {
	if items == nil {
		return nil
	}
	out := make([]Tile, len(items))
	for i, t := range items {
		out[i] = t.Clone()
	}
	return out
}

// State is the persisted board document. The JSON field names are a
// wire format shared with every client session that reads the same
// document and must not change.
type State struct {
	Title       string          `json:"title,omitempty"`
	GridSize    int             `json:"gridSize"`
	Items       []Tile          `json:"items"`
	IsLocked    bool            `json:"isLocked"`
	ItemsBackup []Tile          `json:"itemsBackup,omitempty"`
	Members     map[string]Role `json:"members"`
	LastUpdated time.Time       `json:"lastUpdated"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ItemUpdate carries the editable fields of a single tile. Nil fields
// are left untouched.
type ItemUpdate struct {
	Text  *string `json:"text,omitempty"`
	Style *Style  `json:"style,omitempty"`
}

// LockUpdate is a partial write of the lock-related board fields,
// committed as one store update. Nil slices leave the corresponding
// field alone; ClearBackup deletes the backup field.
type LockUpdate struct {
	Items       []Tile
	Backup      []Tile
	ClearBackup bool
	Locked      bool
	When        time.Time
}
