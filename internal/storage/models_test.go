package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goalbingo/internal/board"
)

func TestTileListNullHandling(t *testing.T) {
	var tl TileList
	v, err := tl.Value()
	require.NoError(t, err)
	require.Nil(t, v, "nil tile list maps to SQL NULL")

	var scanned TileList
	require.NoError(t, scanned.Scan(nil))
	require.Nil(t, scanned)
}

func TestTileListScan(t *testing.T) {
	tl := TileList{{ID: 3, Text: "Go on a hike", TargetCount: 2, CurrentCount: 1}}
	v, err := tl.Value()
	require.NoError(t, err)

	var scanned TileList
	require.NoError(t, scanned.Scan(v))
	require.Equal(t, tl, scanned)

	require.Error(t, scanned.Scan(42))
}

func TestMemberMapScan(t *testing.T) {
	m := MemberMap{"u1": board.RoleOwner, "u2": board.RoleViewer}
	v, err := m.Value()
	require.NoError(t, err)

	var scanned MemberMap
	require.NoError(t, scanned.Scan(v))
	require.Equal(t, m, scanned)

	// Empty map rather than NULL on write, so jsonb_set always has an
	// object to operate on.
	var empty MemberMap
	v, err = empty.Value()
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(v.([]byte)))
}
