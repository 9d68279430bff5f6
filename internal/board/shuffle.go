package board

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// JumbleAndLock finalizes the board. With shuffle set, every tile
// except the free-space center is moved to a random position
// (Fisher–Yates) and the pre-shuffle order is kept verbatim as the
// backup; without it only the lock flag transitions. Tile order,
// backup, and lock flag go to the store as one write.
func (s *Session) JumbleAndLock(ctx context.Context, shuffle bool) error {
	s.Mu.Lock()
	upd := LockUpdate{Locked: true, When: time.Now()}
	if shuffle {
		backup := CloneTiles(s.Items)
		shuffled := CloneTiles(s.Items)
		shuffleTiles(shuffled, CenterIndex(s.GridSize))
		s.Items = shuffled
		s.ItemsBackup = backup
		upd.Items = shuffled
		upd.Backup = backup
	}
	s.IsLocked = true
	bingo := s.refreshWinLocked()
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	if bingo {
		s.BroadcastEffect(EffectEvent{Kind: "bingo", At: time.Now().UnixMilli()})
	}

	if s.store == nil {
		return nil
	}
	if err := s.store.SaveLockState(ctx, s.ref, upd); err != nil {
		log.Printf("board %s: lock: %v", s.ref.Key(), err)
		return err
	}
	return nil
}

// UnlockBoard reverses a lock. It reads the persisted document first
// rather than trusting the cached copy, because the backup it needs
// may have been superseded locally. When a backup exists the tile
// order is restored from it and the backup field is deleted.
func (s *Session) UnlockBoard(ctx context.Context) error {
	if s.store == nil {
		s.Mu.Lock()
		if s.ItemsBackup != nil {
			s.Items = s.ItemsBackup
			s.ItemsBackup = nil
		}
		s.IsLocked = false
		bingo := s.refreshWinLocked()
		s.LastSeen = time.Now()
		s.Mu.Unlock()
		s.Broadcast()
		if bingo {
			s.BroadcastEffect(EffectEvent{Kind: "bingo", At: time.Now().UnixMilli()})
		}
		return nil
	}

	st, err := s.store.Load(ctx, s.ref)
	if err != nil {
		log.Printf("board %s: unlock read: %v", s.ref.Key(), err)
		return err
	}

	upd := LockUpdate{Locked: false, When: time.Now()}
	var restored []Tile
	if st.ItemsBackup != nil {
		restored = CloneTiles(st.ItemsBackup)
		upd.Items = restored
		upd.ClearBackup = true
	}
	if err := s.store.SaveLockState(ctx, s.ref, upd); err != nil {
		log.Printf("board %s: unlock: %v", s.ref.Key(), err)
		return err
	}

	s.Mu.Lock()
	if restored != nil {
		s.Items = restored
	}
	s.ItemsBackup = nil
	s.IsLocked = false
	bingo := s.refreshWinLocked()
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()
	if bingo {
		s.BroadcastEffect(EffectEvent{Kind: "bingo", At: time.Now().UnixMilli()})
	}
	return nil
}

// shuffleTiles permutes tiles in place, keeping the tile at center
// fixed. A negative center (even grid sizes have none) shuffles
// everything.
func shuffleTiles(items []Tile, center int) {
	idx := make([]int, 0, len(items))
	for i := range items {
		if i != center {
			idx = append(idx, i)
		}
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		items[idx[i]], items[idx[j]] = items[idx[j]], items[idx[i]]
	}
}
