package board

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"goalbingo/internal/logging"
)

var (
	// ErrNotFound is returned by Persistence when no document exists
	// under the requested ref.
	ErrNotFound = errors.New("board not found")

	// ErrPhotoLimit is returned when a tile already holds the maximum
	// number of proof photos.
	ErrPhotoLimit = errors.New("tile already has the maximum number of photos")

	// ErrNoUploader is returned when photo operations are attempted
	// without a configured photo store.
	ErrNoUploader = errors.New("no photo uploader configured")
)

// Persistence is the document-store contract the board layer writes
// through. Implementations must treat SaveLockState as a single
// write and RemoveMember as an atomic field delete.
type Persistence interface {
	Load(ctx context.Context, ref Ref) (*State, error)
	Create(ctx context.Context, ref Ref, st State) error
	SaveItems(ctx context.Context, ref Ref, items []Tile, when time.Time) error
	SaveLockState(ctx context.Context, ref Ref, upd LockUpdate) error
	SaveMember(ctx context.Context, ref Ref, userID string, role Role) error
	RemoveMember(ctx context.Context, ref Ref, userID string) error
}

// Uploader stores a photo and returns its public URL. A failed upload
// must return an error rather than a fabricated URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// persistTimeout bounds the fire-and-forget writes issued after each
// optimistic local mutation.
const persistTimeout = 10 * time.Second

// StateEvent is the full-snapshot message sent to watchers.
type StateEvent struct {
	Kind       string          `json:"kind"`
	Title      string          `json:"title,omitempty"`
	GridSize   int             `json:"gridSize"`
	Items      []Tile          `json:"items"`
	IsLocked   bool            `json:"isLocked"`
	Members    map[string]Role `json:"members"`
	Loading    bool            `json:"loading"`
	HasBingo   bool            `json:"hasBingo"`
	BingoCount int             `json:"bingoCount"`
	Watchers   int             `json:"watchers"`
}

// EffectEvent is a transient celebration or reaction broadcast. It
// carries no board state.
type EffectEvent struct {
	Kind  string `json:"kind"`
	Index int    `json:"index,omitempty"`
	Emoji string `json:"emoji,omitempty"`
	By    string `json:"by,omitempty"`
	At    int64  `json:"at"`
}

// Session holds the live in-memory copy of one board and fans out
// snapshots to its watchers. Mutations produce a fresh tile slice,
// apply locally first, then persist asynchronously; the store is only
// ever authoritative when a snapshot is re-applied.
type Session struct {
	Mu sync.Mutex

	ref      Ref
	store    Persistence
	uploader Uploader

	Title    string
	GridSize int
	Items    []Tile
	// ItemsBackup mirrors the document's backup field so unlock can
	// restore tile order even when the session has no store.
	ItemsBackup []Tile
	Members     map[string]Role
	IsLocked    bool
	Loading     bool

	hasBingo   bool
	bingoCount int

	Watchers map[chan []byte]struct{}
	LastSeen time.Time
}

// Hub manages the active board sessions.
type Hub struct {
	Mu       sync.Mutex
	Sessions map[string]*Session

	store    Persistence
	uploader Uploader
	goals    []string
}

// NewHub creates a hub with an idle-session cleanup goroutine. The
// store and uploader may be nil: a nil store yields in-memory-only
// boards, a nil uploader rejects photo operations.
func NewHub(store Persistence, uploader Uploader, goals []string) *Hub {
	h := &Hub{
		Sessions: make(map[string]*Session),
		store:    store,
		uploader: uploader,
		goals:    goals,
	}
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			h.Mu.Lock()
			for key, s := range h.Sessions {
				s.Mu.Lock()
				idle := len(s.Watchers) == 0 && time.Since(s.LastSeen) > 24*time.Hour
				s.Mu.Unlock()
				if idle {
					delete(h.Sessions, key)
				}
			}
			h.Mu.Unlock()
		}
	}()
	return h
}

// Get returns the live session for ref, loading the persisted board
// on first access. A missing document is initialized fresh with user
// as owner; a store failure degrades to an empty board and is only
// logged.
func (h *Hub) Get(ctx context.Context, ref Ref, user User) *Session {
	h.Mu.Lock()
	if s, ok := h.Sessions[ref.Key()]; ok {
		h.Mu.Unlock()
		s.Touch()
		return s
	}
	s := &Session{
		ref:      ref,
		store:    h.store,
		uploader: h.uploader,
		GridSize: DefaultGridSize,
		Members:  make(map[string]Role),
		Loading:  true,
		Watchers: make(map[chan []byte]struct{}),
		LastSeen: time.Now(),
	}
	h.Sessions[ref.Key()] = s
	h.Mu.Unlock()

	s.load(ctx, user, h.goals)
	return s
}

// load resolves the persisted document for the session, initializing
// a fresh board when none exists.
func (s *Session) load(ctx context.Context, user User, goals []string) {
	if s.store == nil {
		st := NewState(DefaultGridSize, goals, user, time.Now())
		s.Mu.Lock()
		s.applyLocked(&st)
		s.Loading = false
		s.Mu.Unlock()
		return
	}

	st, err := s.store.Load(ctx, s.ref)
	switch {
	case err == nil:
		s.Mu.Lock()
		s.applyLocked(st)
		s.Loading = false
		s.Mu.Unlock()
	case errors.Is(err, ErrNotFound):
		fresh := NewState(DefaultGridSize, goals, user, time.Now())
		if createErr := s.store.Create(ctx, s.ref, fresh); createErr != nil {
			log.Printf("board %s: create: %v", s.ref.Key(), createErr)
		}
		s.Mu.Lock()
		s.applyLocked(&fresh)
		s.Loading = false
		s.Mu.Unlock()
	default:
		// Silent degradation: the caller sees an empty board.
		log.Printf("board %s: load: %v", s.ref.Key(), err)
		s.Mu.Lock()
		s.Loading = false
		s.Mu.Unlock()
	}
}

// ApplySnapshot replaces all local board state with an authoritative
// store snapshot (last writer wins) and re-runs win detection.
func (s *Session) ApplySnapshot(st *State) {
	s.Mu.Lock()
	s.applyLocked(st)
	s.Loading = false
	s.Mu.Unlock()
	s.Broadcast()
}

// Refresh re-reads the persisted document and applies it over local
// state. Without a store there is nothing to re-read.
func (s *Session) Refresh(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	st, err := s.store.Load(ctx, s.ref)
	if err != nil {
		log.Printf("board %s: refresh: %v", s.ref.Key(), err)
		return err
	}
	s.ApplySnapshot(st)
	return nil
}

// applyLocked installs a snapshot and refreshes the win latch. Must
// be called with Mu held.
func (s *Session) applyLocked(st *State) {
	s.Title = st.Title
	if st.GridSize > 0 {
		s.GridSize = st.GridSize
	}
	s.Items = CloneTiles(st.Items)
	s.ItemsBackup = CloneTiles(st.ItemsBackup)
	s.Members = make(map[string]Role, len(st.Members))
	for id, role := range st.Members {
		s.Members[id] = role
	}
	s.IsLocked = st.IsLocked
	s.refreshWinLocked()
}

// refreshWinLocked recomputes the line count and the edge-triggered
// win latch. It returns true only on the no-line to some-line
// transition, which is the one moment the celebration fires.
func (s *Session) refreshWinLocked() bool {
	s.bingoCount = CompleteLines(s.Items, s.GridSize)
	if s.bingoCount == 0 {
		s.hasBingo = false
		return false
	}
	if !s.hasBingo {
		s.hasBingo = true
		return true
	}
	return false
}

// Touch updates the last-seen timestamp.
func (s *Session) Touch() {
	s.Mu.Lock()
	s.LastSeen = time.Now()
	s.Mu.Unlock()
}

// AddWatcher registers a watcher channel.
func (s *Session) AddWatcher(ch chan []byte) {
	s.Mu.Lock()
	s.Watchers[ch] = struct{}{}
	s.Mu.Unlock()
}

// RemoveWatcher unregisters a watcher channel.
func (s *Session) RemoveWatcher(ch chan []byte) {
	s.Mu.Lock()
	delete(s.Watchers, ch)
	s.Mu.Unlock()
}

// StateLocked builds the snapshot event. Must be called with Mu held.
func (s *Session) StateLocked() StateEvent {
	members := make(map[string]Role, len(s.Members))
	for id, role := range s.Members {
		members[id] = role
	}
	return StateEvent{
		Kind:       "state",
		Title:      s.Title,
		GridSize:   s.GridSize,
		Items:      CloneTiles(s.Items),
		IsLocked:   s.IsLocked,
		Members:    members,
		Loading:    s.Loading,
		HasBingo:   s.hasBingo,
		BingoCount: s.bingoCount,
		Watchers:   len(s.Watchers),
	}
}

// Snapshot returns the current state event.
func (s *Session) Snapshot() StateEvent {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.StateLocked()
}

// BingoCount returns the current number of complete lines.
func (s *Session) BingoCount() int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.bingoCount
}

// HasBingo reports the latched win state.
func (s *Session) HasBingo() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.hasBingo
}

// Broadcast sends the current state to all watchers. Slow watchers
// are skipped rather than blocked on.
func (s *Session) Broadcast() {
	s.Mu.Lock()
	data, _ := json.Marshal(s.StateLocked())
	s.sendLocked(data)
	s.Mu.Unlock()
}

// BroadcastEffect sends a transient effect event to all watchers.
func (s *Session) BroadcastEffect(ev EffectEvent) {
	data, _ := json.Marshal(ev)
	s.Mu.Lock()
	s.sendLocked(data)
	s.Mu.Unlock()
}

func (s *Session) sendLocked(data []byte) {
	for ch := range s.Watchers {
		select {
		case ch <- data:
		default:
		}
	}
}

// persistItems issues the asynchronous whole-list write that follows
// every optimistic tile mutation. Failures are logged, never rolled
// back; the next authoritative snapshot heals any divergence.
func (s *Session) persistItems(items []Tile) {
	if s.store == nil {
		return
	}
	ref := s.ref
	store := s.store
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := store.SaveItems(ctx, ref, items, time.Now()); err != nil {
			log.Printf("board %s: save items: %v", ref.Key(), err)
		} else {
			logging.Debugf("board %s: saved %d items", ref.Key(), len(items))
		}
	}()
}
