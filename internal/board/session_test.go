package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Persistence used by session tests.
type memStore struct {
	mu     sync.Mutex
	boards map[string]*State
}

func newMemStore() *memStore {
	return &memStore{boards: make(map[string]*State)}
}

func (m *memStore) snapshot(key string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.boards[key]
	if !ok {
		return nil
	}
	cp := *st
	cp.Items = CloneTiles(st.Items)
	cp.ItemsBackup = CloneTiles(st.ItemsBackup)
	return &cp
}

func (m *memStore) Load(_ context.Context, ref Ref) (*State, error) {
	if st := m.snapshot(ref.Key()); st != nil {
		return st, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) Create(_ context.Context, ref Ref, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[ref.Key()]; ok {
		return nil
	}
	cp := st
	cp.Items = CloneTiles(st.Items)
	m.boards[ref.Key()] = &cp
	return nil
}

func (m *memStore) SaveItems(_ context.Context, ref Ref, items []Tile, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.boards[ref.Key()]
	if !ok {
		return ErrNotFound
	}
	st.Items = CloneTiles(items)
	st.LastUpdated = when
	return nil
}

func (m *memStore) SaveLockState(_ context.Context, ref Ref, upd LockUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.boards[ref.Key()]
	if !ok {
		return ErrNotFound
	}
	if upd.Items != nil {
		st.Items = CloneTiles(upd.Items)
	}
	if upd.Backup != nil {
		st.ItemsBackup = CloneTiles(upd.Backup)
	}
	if upd.ClearBackup {
		st.ItemsBackup = nil
	}
	st.IsLocked = upd.Locked
	st.LastUpdated = upd.When
	return nil
}

func (m *memStore) SaveMember(_ context.Context, ref Ref, userID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.boards[ref.Key()]
	if !ok {
		return ErrNotFound
	}
	if st.Members == nil {
		st.Members = make(map[string]Role)
	}
	st.Members[userID] = role
	return nil
}

func (m *memStore) RemoveMember(_ context.Context, ref Ref, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.boards[ref.Key()]
	if !ok {
		return ErrNotFound
	}
	delete(st.Members, userID)
	return nil
}

// fakeUploader returns deterministic URLs, or an error when broken.
type fakeUploader struct {
	mu     sync.Mutex
	n      int
	broken bool
}

func (f *fakeUploader) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	if f.broken {
		return "", errors.New("upload failed")
	}
	_, _ = io.Copy(io.Discard, r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return fmt.Sprintf("https://photos.test/%d.jpg", f.n), nil
}

var alice = User{ID: "u1", DisplayName: "Alice", Email: "alice@example.com"}

func newTestSession(t *testing.T) (*Session, *memStore) {
	t.Helper()
	store := newMemStore()
	hub := NewHub(store, &fakeUploader{}, nil)
	s := hub.Get(context.Background(), CurrentRef("b1"), alice)
	return s, store
}

// requireInvariants checks the count/completion invariants on every
// tile of the current snapshot.
func requireInvariants(t *testing.T, items []Tile) {
	t.Helper()
	for i, tile := range items {
		require.GreaterOrEqual(t, tile.CurrentCount, 0, "tile %d", i)
		require.LessOrEqual(t, tile.CurrentCount, tile.TargetCount, "tile %d", i)
		require.Equal(t, tile.CurrentCount == tile.TargetCount, tile.IsCompleted, "tile %d", i)
	}
}

func TestFreshBoardInit(t *testing.T) {
	s, store := newTestSession(t)
	snap := s.Snapshot()

	require.False(t, snap.Loading)
	require.Len(t, snap.Items, 25)
	require.True(t, snap.Items[12].IsFreeSpace)
	require.True(t, snap.Items[12].IsCompleted)
	for i, tile := range snap.Items {
		if i == 12 {
			continue
		}
		require.False(t, tile.IsCompleted, "tile %d", i)
		require.Zero(t, tile.CurrentCount, "tile %d", i)
		require.Equal(t, 1, tile.TargetCount, "tile %d", i)
		require.NotEmpty(t, tile.Text, "tile %d", i)
	}
	requireInvariants(t, snap.Items)

	persisted := store.snapshot("b1")
	require.NotNil(t, persisted, "fresh board should be persisted")
	require.Equal(t, RoleOwner, persisted.Members["u1"])
}

func TestToggleItemRoundTrip(t *testing.T) {
	s, _ := newTestSession(t)

	s.ToggleItem(0, alice)
	snap := s.Snapshot()
	require.Equal(t, 1, snap.Items[0].CurrentCount)
	require.True(t, snap.Items[0].IsCompleted)
	require.NotNil(t, snap.Items[0].CompletedBy)
	require.Equal(t, "Alice", *snap.Items[0].CompletedBy)
	require.NotNil(t, snap.Items[0].CompletedAt)
	requireInvariants(t, snap.Items)

	s.ToggleItem(0, alice)
	snap = s.Snapshot()
	require.Zero(t, snap.Items[0].CurrentCount)
	require.False(t, snap.Items[0].IsCompleted)
	require.Nil(t, snap.Items[0].CompletedBy)
	require.Nil(t, snap.Items[0].CompletedAt)
	requireInvariants(t, snap.Items)
}

func TestAttributionFallsBackToEmail(t *testing.T) {
	s, _ := newTestSession(t)
	s.ToggleItem(3, User{ID: "u2", Email: "bob@example.com"})
	snap := s.Snapshot()
	require.Equal(t, "bob@example.com", *snap.Items[3].CompletedBy)

	s.ToggleItem(4, User{ID: "u3"})
	snap = s.Snapshot()
	require.Equal(t, "Unknown", *snap.Items[4].CompletedBy)
}

func TestToggleFreeSpaceIsNoOp(t *testing.T) {
	s, _ := newTestSession(t)
	before := s.Snapshot().Items
	s.ToggleItem(12, alice)
	s.DecrementProgress(12)
	after := s.Snapshot().Items
	require.Equal(t, before, after)
	require.True(t, after[12].IsCompleted)
}

func TestMultiCountProgress(t *testing.T) {
	s, _ := newTestSession(t)
	items := s.Snapshot().Items
	items[7].TargetCount = 3
	items[7].ProofPhotos = []string{"https://photos.test/keep.jpg"}
	s.SaveBoard(items)

	for i := 1; i <= 3; i++ {
		s.ToggleItem(7, alice)
		snap := s.Snapshot()
		require.Equal(t, i, snap.Items[7].CurrentCount)
		require.Equal(t, i == 3, snap.Items[7].IsCompleted)
		requireInvariants(t, snap.Items)
	}

	s.DecrementProgress(7)
	snap := s.Snapshot()
	require.Equal(t, 2, snap.Items[7].CurrentCount)
	require.False(t, snap.Items[7].IsCompleted)
	require.Equal(t, []string{"https://photos.test/keep.jpg"}, snap.Items[7].ProofPhotos)
	requireInvariants(t, snap.Items)
}

func TestDecrementAtZeroIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t)
	before := s.Snapshot().Items
	s.DecrementProgress(0)
	require.Equal(t, before, s.Snapshot().Items)
}

func TestCompleteWithPhoto(t *testing.T) {
	s, _ := newTestSession(t)
	url, err := s.CompleteWithPhoto(context.Background(), 2, "proof.png", strings.NewReader("img"), alice)
	require.NoError(t, err)
	require.NotEmpty(t, url)

	snap := s.Snapshot()
	require.True(t, snap.Items[2].IsCompleted)
	require.Equal(t, []string{url}, snap.Items[2].ProofPhotos)
	require.Equal(t, "Alice", *snap.Items[2].CompletedBy)
}

func TestCompleteWithPhotoUploadFailure(t *testing.T) {
	store := newMemStore()
	hub := NewHub(store, &fakeUploader{broken: true}, nil)
	s := hub.Get(context.Background(), CurrentRef("b2"), alice)

	before := s.Snapshot().Items
	_, err := s.CompleteWithPhoto(context.Background(), 2, "proof.png", strings.NewReader("img"), alice)
	require.Error(t, err)
	require.Equal(t, before, s.Snapshot().Items, "failed upload must not mutate the tile")
}

func TestPhotoCap(t *testing.T) {
	s, _ := newTestSession(t)
	for i := 0; i < MaxProofPhotos; i++ {
		_, err := s.AddPhotoToTile(context.Background(), 1, "p.jpg", strings.NewReader("img"))
		require.NoError(t, err)
	}
	_, err := s.AddPhotoToTile(context.Background(), 1, "p.jpg", strings.NewReader("img"))
	require.ErrorIs(t, err, ErrPhotoLimit)
	require.Len(t, s.Snapshot().Items[1].ProofPhotos, MaxProofPhotos)
}

func TestCompleteWithPhotoAtCapSkipsUpload(t *testing.T) {
	store := newMemStore()
	up := &fakeUploader{}
	hub := NewHub(store, up, nil)
	s := hub.Get(context.Background(), CurrentRef("b1"), alice)

	for i := 0; i < MaxProofPhotos; i++ {
		_, err := s.AddPhotoToTile(context.Background(), 1, "p.jpg", strings.NewReader("img"))
		require.NoError(t, err)
	}
	up.mu.Lock()
	uploads := up.n
	up.mu.Unlock()

	_, err := s.CompleteWithPhoto(context.Background(), 1, "p.jpg", strings.NewReader("img"), alice)
	require.ErrorIs(t, err, ErrPhotoLimit)
	require.False(t, s.Snapshot().Items[1].IsCompleted)

	up.mu.Lock()
	defer up.mu.Unlock()
	require.Equal(t, uploads, up.n, "a full tile never costs an upload")
}

func TestRefreshAppliesStoreState(t *testing.T) {
	s, store := newTestSession(t)

	remote := store.snapshot("b1")
	remote.Title = "renamed elsewhere"
	remote.Items[0].CurrentCount = 1
	remote.Items[0].IsCompleted = true
	store.mu.Lock()
	store.boards["b1"] = remote
	store.mu.Unlock()

	require.NoError(t, s.Refresh(context.Background()))
	snap := s.Snapshot()
	require.Equal(t, "renamed elsewhere", snap.Title)
	require.True(t, snap.Items[0].IsCompleted)
}

func TestDeletePhoto(t *testing.T) {
	s, _ := newTestSession(t)
	u1, err := s.AddPhotoToTile(context.Background(), 1, "a.jpg", strings.NewReader("a"))
	require.NoError(t, err)
	u2, err := s.AddPhotoToTile(context.Background(), 1, "b.jpg", strings.NewReader("b"))
	require.NoError(t, err)

	s.DeletePhoto(1, 0)
	snap := s.Snapshot()
	require.Equal(t, []string{u2}, snap.Items[1].ProofPhotos)
	require.NotEqual(t, u1, snap.Items[1].ProofPhotos[0])
	require.False(t, snap.Items[1].IsCompleted)
}

func TestAddReaction(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddReaction(5, "🎉", alice)
	snap := s.Snapshot()
	require.Len(t, snap.Items[5].Reactions, 1)
	require.Equal(t, "🎉", snap.Items[5].Reactions[0].Emoji)
	require.Equal(t, "u1", snap.Items[5].Reactions[0].UserID)
	require.Equal(t, "Alice", snap.Items[5].Reactions[0].DisplayName)
}

func TestUpdateItem(t *testing.T) {
	s, _ := newTestSession(t)
	text := "Go kayaking"
	s.UpdateItem(3, ItemUpdate{Text: &text, Style: &Style{Color: "#ff0000", Bold: true}})
	snap := s.Snapshot()
	require.Equal(t, "Go kayaking", snap.Items[3].Text)
	require.True(t, snap.Items[3].Style.Bold)
	require.False(t, snap.Items[3].IsCompleted)
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	s, _ := newTestSession(t)
	before := s.Snapshot().Items
	s.ToggleItem(0, alice)
	require.False(t, before[0].IsCompleted, "older snapshot must not change")
}

func TestWinEdgeTrigger(t *testing.T) {
	s, _ := newTestSession(t)

	ch := make(chan []byte, 64)
	s.AddWatcher(ch)
	defer s.RemoveWatcher(ch)

	countBingoEvents := func() int {
		n := 0
		for {
			select {
			case msg := <-ch:
				var ev struct {
					Kind string `json:"kind"`
				}
				require.NoError(t, json.Unmarshal(msg, &ev))
				if ev.Kind == "bingo" {
					n++
				}
			default:
				return n
			}
		}
	}

	// Complete row 0.
	for c := 0; c < 5; c++ {
		s.ToggleItem(c, alice)
	}
	require.True(t, s.HasBingo())
	require.Equal(t, 1, s.BingoCount())
	require.Equal(t, 1, countBingoEvents(), "celebration fires exactly once")

	// Completing more tiles while already won must not re-fire.
	s.ToggleItem(5, alice)
	require.Zero(t, countBingoEvents())

	// Break the line, then restore it: fires again.
	s.ToggleItem(0, alice)
	require.False(t, s.HasBingo())
	s.ToggleItem(0, alice)
	require.True(t, s.HasBingo())
	require.Equal(t, 1, countBingoEvents())
}

func TestRemoteSnapshotIsAuthoritative(t *testing.T) {
	s, _ := newTestSession(t)
	s.ToggleItem(0, alice)

	remote := &State{
		Title:    "Our 2026 board",
		GridSize: 5,
		Items:    NewDeck(5, nil),
		Members:  map[string]Role{"u9": RoleViewer},
	}
	s.ApplySnapshot(remote)

	snap := s.Snapshot()
	require.Equal(t, "Our 2026 board", snap.Title)
	require.False(t, snap.Items[0].IsCompleted, "local optimistic state is clobbered")
	require.Equal(t, map[string]Role{"u9": RoleViewer}, snap.Members)
}

func TestLoadDegradesSilentlyOnStoreError(t *testing.T) {
	hub := NewHub(failingStore{}, nil, nil)
	s := hub.Get(context.Background(), CurrentRef("b3"), alice)
	snap := s.Snapshot()
	require.False(t, snap.Loading)
	require.Empty(t, snap.Items)
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Load(context.Context, Ref) (*State, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) Create(context.Context, Ref, State) error { return errors.New("store unavailable") }
func (failingStore) SaveItems(context.Context, Ref, []Tile, time.Time) error {
	return errors.New("store unavailable")
}
func (failingStore) SaveLockState(context.Context, Ref, LockUpdate) error {
	return errors.New("store unavailable")
}
func (failingStore) SaveMember(context.Context, Ref, string, Role) error {
	return errors.New("store unavailable")
}
func (failingStore) RemoveMember(context.Context, Ref, string) error {
	return errors.New("store unavailable")
}

func TestMembers(t *testing.T) {
	s, store := newTestSession(t)
	require.NoError(t, s.SetMember(context.Background(), "u2", RoleEditor))
	require.Equal(t, RoleEditor, store.snapshot("b1").Members["u2"])

	require.NoError(t, s.DropMember(context.Background(), "u2"))
	_, ok := store.snapshot("b1").Members["u2"]
	require.False(t, ok)
	_, ok = s.Snapshot().Members["u2"]
	require.False(t, ok)
}
