package board

import (
	"context"
	"io"
	"time"
)

// ToggleItem flips progress on the tile at index: one step forward
// when incomplete, one step back when complete. The free-space tile
// is never touched. A forward step that lands on a fresh snapshot
// fires a small cheer effect; attribution is cleared when progress
// returns to zero.
func (s *Session) ToggleItem(index int, user User) {
	var cheer, bingo bool

	s.Mu.Lock()
	if index < 0 || index >= len(s.Items) || s.Items[index].IsFreeSpace {
		s.Mu.Unlock()
		return
	}
	items := CloneTiles(s.Items)
	t := &items[index]
	if t.IsCompleted {
		stepBack(t)
	} else {
		stepForward(t, user, time.Now())
		cheer = true
	}
	s.Items = items
	bingo = s.refreshWinLocked()
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	if cheer {
		s.BroadcastEffect(EffectEvent{Kind: "cheer", Index: index, By: user.Attribution(), At: time.Now().UnixMilli()})
	}
	if bingo {
		s.BroadcastEffect(EffectEvent{Kind: "bingo", By: user.Attribution(), At: time.Now().UnixMilli()})
	}
	s.persistItems(items)
}

// DecrementProgress removes exactly one completion step. No-op on the
// free-space tile and when there is no progress to remove.
func (s *Session) DecrementProgress(index int) {
	s.Mu.Lock()
	if index < 0 || index >= len(s.Items) {
		s.Mu.Unlock()
		return
	}
	if s.Items[index].IsFreeSpace || s.Items[index].CurrentCount == 0 {
		s.Mu.Unlock()
		return
	}
	items := CloneTiles(s.Items)
	stepBack(&items[index])
	s.Items = items
	s.refreshWinLocked()
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	s.persistItems(items)
}

// CompleteWithPhoto uploads a proof photo and, on success, applies
// the same step-forward logic as ToggleItem plus the new photo URL.
// An upload failure propagates and leaves the tile untouched; a tile
// already at the photo cap is rejected before the upload runs.
func (s *Session) CompleteWithPhoto(ctx context.Context, index int, name string, photo io.Reader, user User) (string, error) {
	if s.uploader == nil {
		return "", ErrNoUploader
	}
	s.Mu.Lock()
	if index < 0 || index >= len(s.Items) || s.Items[index].IsFreeSpace {
		s.Mu.Unlock()
		return "", nil
	}
	if len(s.Items[index].ProofPhotos) >= MaxProofPhotos {
		s.Mu.Unlock()
		return "", ErrPhotoLimit
	}
	s.Mu.Unlock()

	url, err := s.uploader.Upload(ctx, name, photo)
	if err != nil {
		return "", err
	}

	var cheer, bingo bool
	s.Mu.Lock()
	if index >= len(s.Items) || s.Items[index].IsFreeSpace {
		s.Mu.Unlock()
		return url, nil
	}
	if len(s.Items[index].ProofPhotos) >= MaxProofPhotos {
		// A concurrent upload filled the tile while ours was in flight.
		s.Mu.Unlock()
		return "", ErrPhotoLimit
	}
	items := CloneTiles(s.Items)
	t := &items[index]
	if !t.IsCompleted {
		stepForward(t, user, time.Now())
		cheer = true
	}
	t.ProofPhotos = append(t.ProofPhotos, url)
	s.Items = items
	bingo = s.refreshWinLocked()
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	if cheer {
		s.BroadcastEffect(EffectEvent{Kind: "cheer", Index: index, By: user.Attribution(), At: time.Now().UnixMilli()})
	}
	if bingo {
		s.BroadcastEffect(EffectEvent{Kind: "bingo", By: user.Attribution(), At: time.Now().UnixMilli()})
	}
	s.persistItems(items)
	return url, nil
}

// AddPhotoToTile attaches a photo without touching progress. The
// photo cap is checked before the upload so a full tile never costs a
// network call; ErrPhotoLimit is returned in that case.
func (s *Session) AddPhotoToTile(ctx context.Context, index int, name string, photo io.Reader) (string, error) {
	if s.uploader == nil {
		return "", ErrNoUploader
	}
	s.Mu.Lock()
	if index < 0 || index >= len(s.Items) {
		s.Mu.Unlock()
		return "", nil
	}
	if len(s.Items[index].ProofPhotos) >= MaxProofPhotos {
		s.Mu.Unlock()
		return "", ErrPhotoLimit
	}
	s.Mu.Unlock()

	url, err := s.uploader.Upload(ctx, name, photo)
	if err != nil {
		return "", err
	}

	s.Mu.Lock()
	if index >= len(s.Items) {
		s.Mu.Unlock()
		return url, nil
	}
	if len(s.Items[index].ProofPhotos) >= MaxProofPhotos {
		// A concurrent upload filled the tile while ours was in flight.
		s.Mu.Unlock()
		return "", ErrPhotoLimit
	}
	items := CloneTiles(s.Items)
	items[index].ProofPhotos = append(items[index].ProofPhotos, url)
	s.Items = items
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	s.persistItems(items)
	return url, nil
}

// DeletePhoto removes one proof photo by position. Progress and
// completion are unaffected.
func (s *Session) DeletePhoto(itemIndex, photoIndex int) {
	s.Mu.Lock()
	if itemIndex < 0 || itemIndex >= len(s.Items) {
		s.Mu.Unlock()
		return
	}
	photos := s.Items[itemIndex].ProofPhotos
	if photoIndex < 0 || photoIndex >= len(photos) {
		s.Mu.Unlock()
		return
	}
	items := CloneTiles(s.Items)
	t := &items[itemIndex]
	t.ProofPhotos = append(t.ProofPhotos[:photoIndex], t.ProofPhotos[photoIndex+1:]...)
	if len(t.ProofPhotos) == 0 {
		t.ProofPhotos = nil
	}
	s.Items = items
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	s.persistItems(items)
}

// AddReaction appends an emoji reaction to the tile. Reactions are
// additive only; nothing in the board layer removes them.
func (s *Session) AddReaction(index int, emoji string, user User) {
	s.Mu.Lock()
	if index < 0 || index >= len(s.Items) {
		s.Mu.Unlock()
		return
	}
	items := CloneTiles(s.Items)
	items[index].Reactions = append(items[index].Reactions, Reaction{
		Emoji:       emoji,
		UserID:      user.ID,
		DisplayName: user.Attribution(),
		At:          time.Now(),
	})
	s.Items = items
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	s.BroadcastEffect(EffectEvent{Kind: "reaction", Index: index, Emoji: emoji, By: user.Attribution(), At: time.Now().UnixMilli()})
	s.persistItems(items)
}

// UpdateItem overwrites the editable fields of one tile (inline edit
// workflow). Completion fields are never touched here.
func (s *Session) UpdateItem(index int, upd ItemUpdate) {
	s.Mu.Lock()
	if index < 0 || index >= len(s.Items) {
		s.Mu.Unlock()
		return
	}
	items := CloneTiles(s.Items)
	if upd.Text != nil {
		items[index].Text = *upd.Text
	}
	if upd.Style != nil {
		st := *upd.Style
		items[index].Style = &st
	}
	s.Items = items
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	s.persistItems(items)
}

// SaveBoard replaces the whole tile list (bulk edit commit). The
// caller is trusted to preserve tile identity and count.
func (s *Session) SaveBoard(newItems []Tile) {
	items := CloneTiles(newItems)

	s.Mu.Lock()
	s.Items = items
	bingo := s.refreshWinLocked()
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	if bingo {
		s.BroadcastEffect(EffectEvent{Kind: "bingo", At: time.Now().UnixMilli()})
	}
	s.persistItems(items)
}

// stepForward adds one completion step, capped at the target, and
// stamps attribution when the step lands.
func stepForward(t *Tile, user User, now time.Time) {
	if t.CurrentCount < t.TargetCount {
		t.CurrentCount++
	}
	t.IsCompleted = t.CurrentCount >= t.TargetCount
	by := user.Attribution()
	t.CompletedBy = &by
	at := now
	t.CompletedAt = &at
}

// stepBack removes one completion step, floored at zero. Attribution
// is cleared when progress returns to zero; proof photos are kept as
// a record even when progress is rolled back.
func stepBack(t *Tile) {
	if t.CurrentCount > 0 {
		t.CurrentCount--
	}
	t.IsCompleted = t.CurrentCount >= t.TargetCount
	if t.CurrentCount == 0 {
		t.CompletedBy = nil
		t.CompletedAt = nil
	}
}
