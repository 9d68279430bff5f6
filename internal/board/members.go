package board

import (
	"context"
	"log"
	"time"
)

// SetMember grants userID the given role on the board.
func (s *Session) SetMember(ctx context.Context, userID string, role Role) error {
	if userID == "" {
		return nil
	}
	s.Mu.Lock()
	s.Members[userID] = role
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()

	if s.store == nil {
		return nil
	}
	if err := s.store.SaveMember(ctx, s.ref, userID, role); err != nil {
		log.Printf("board %s: save member: %v", s.ref.Key(), err)
		return err
	}
	return nil
}

// DropMember removes userID from the board's member map. The store
// side is an atomic field delete.
func (s *Session) DropMember(ctx context.Context, userID string) error {
	s.Mu.Lock()
	delete(s.Members, userID)
	s.LastSeen = time.Now()
	s.Mu.Unlock()

	s.Broadcast()

	if s.store == nil {
		return nil
	}
	if err := s.store.RemoveMember(ctx, s.ref, userID); err != nil {
		log.Printf("board %s: remove member: %v", s.ref.Key(), err)
		return err
	}
	return nil
}
