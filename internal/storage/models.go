package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"goalbingo/internal/board"
)

// TileList stores a board's tiles as a single JSONB column so the
// whole list is written atomically, the way the document schema
// expects. A nil list maps to SQL NULL.
type TileList []board.Tile

func (t TileList) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *TileList) Scan(src any) error {
	if src == nil {
		*t = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported tile list source %T", src)
	}
}

// MemberMap stores the userID→role mapping as JSONB.
type MemberMap map[string]board.Role

func (m MemberMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]board.Role{})
	}
	return json.Marshal(m)
}

func (m *MemberMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported member map source %T", src)
	}
}

// Board is the persisted board document. Identity is either the
// well-known legacy key or a generated id.
type Board struct {
	Identity    string `gorm:"primaryKey"`
	Title       string
	GridSize    int
	Items       TileList  `gorm:"type:jsonb"`
	ItemsBackup TileList  `gorm:"type:jsonb"`
	IsLocked    bool      `gorm:"index"`
	Members     MemberMap `gorm:"type:jsonb"`
	LastUpdated time.Time
	CreatedAt   time.Time
}
