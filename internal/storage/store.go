package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"goalbingo/internal/board"
)

// Store wraps a gorm DB instance and implements the board layer's
// persistence contract. All methods are nil-safe so the server can
// run without a database (in-memory boards only).
type Store struct {
	db *gorm.DB
}

// NewStore creates a new store helper from a gorm DB.
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// DB exposes the underlying gorm DB instance.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Load fetches the persisted board document (read-once).
func (s *Store) Load(ctx context.Context, ref board.Ref) (*board.State, error) {
	if s == nil {
		return nil, board.ErrNotFound
	}
	var row Board
	if err := s.db.WithContext(ctx).First(&row, "identity = ?", ref.Key()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, err
	}
	st := rowToState(row)
	return &st, nil
}

// Create inserts a fresh board document. Losing a create race to
// another session is fine; the existing row stays.
func (s *Store) Create(ctx context.Context, ref board.Ref, st board.State) error {
	if s == nil {
		return nil
	}
	row := Board{
		Identity:    ref.Key(),
		Title:       st.Title,
		GridSize:    st.GridSize,
		Items:       TileList(st.Items),
		IsLocked:    st.IsLocked,
		Members:     MemberMap(st.Members),
		LastUpdated: st.LastUpdated,
		CreatedAt:   st.CreatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// SaveItems overwrites the whole tile list together with the update
// timestamp, the minimum write the schema allows.
func (s *Store) SaveItems(ctx context.Context, ref board.Ref, items []board.Tile, when time.Time) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Board{}).Where("identity = ?", ref.Key()).
		Updates(map[string]any{
			"items":        TileList(items),
			"last_updated": when,
		}).Error
}

// SaveLockState commits a lock transition in one write: tile order
// and backup when a shuffle happened, a backup field delete on
// unlock, and the lock flag always.
func (s *Store) SaveLockState(ctx context.Context, ref board.Ref, upd board.LockUpdate) error {
	if s == nil {
		return nil
	}
	updates := map[string]any{
		"is_locked":    upd.Locked,
		"last_updated": upd.When,
	}
	if upd.Items != nil {
		updates["items"] = TileList(upd.Items)
	}
	if upd.Backup != nil {
		updates["items_backup"] = TileList(upd.Backup)
	}
	if upd.ClearBackup {
		updates["items_backup"] = nil
	}
	return s.db.WithContext(ctx).Model(&Board{}).Where("identity = ?", ref.Key()).
		Updates(updates).Error
}

// SaveMember upserts a single member key inside the members map
// without rewriting the rest of it.
func (s *Store) SaveMember(ctx context.Context, ref board.Ref, userID string, role board.Role) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Board{}).Where("identity = ?", ref.Key()).
		Updates(map[string]any{
			"members":      gorm.Expr(`jsonb_set(coalesce(members, '{}'::jsonb), ARRAY[?], to_jsonb(?::text))`, userID, string(role)),
			"last_updated": time.Now(),
		}).Error
}

// RemoveMember deletes a single member key (atomic field delete).
func (s *Store) RemoveMember(ctx context.Context, ref board.Ref, userID string) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Board{}).Where("identity = ?", ref.Key()).
		Updates(map[string]any{
			"members":      gorm.Expr(`coalesce(members, '{}'::jsonb) - ?`, userID),
			"last_updated": time.Now(),
		}).Error
}

// SaveTitle updates the display title.
func (s *Store) SaveTitle(ctx context.Context, ref board.Ref, title string) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Board{}).Where("identity = ?", ref.Key()).
		Updates(map[string]any{
			"title":        title,
			"last_updated": time.Now(),
		}).Error
}

// DeleteBoard removes a board document outright. Used by dashboard
// tooling, not by gameplay.
func (s *Store) DeleteBoard(ctx context.Context, ref board.Ref) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&Board{}, "identity = ?", ref.Key()).Error
}

func rowToState(row Board) board.State {
	return board.State{
		Title:       row.Title,
		GridSize:    row.GridSize,
		Items:       []board.Tile(row.Items),
		IsLocked:    row.IsLocked,
		ItemsBackup: []board.Tile(row.ItemsBackup),
		Members:     map[string]board.Role(row.Members),
		LastUpdated: row.LastUpdated,
		CreatedAt:   row.CreatedAt,
	}
}
