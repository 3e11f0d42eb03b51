package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBIterateOrdered(t *testing.T) {
	db := NewMemDB()
	t.Cleanup(db.Close)

	keys := []string{"orders/3", "orders/1", "orders/2", "escrows/1"}
	for _, k := range keys {
		require.NoError(t, db.Put([]byte(k), []byte(k)))
	}

	var got []string
	err := db.Iterate([]byte("orders/"), nil, 0, func(key, value []byte) bool {
		got = append(got, string(key))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"orders/1", "orders/2", "orders/3"}, got)
}

func TestMemDBIterateStartAfterAndLimit(t *testing.T) {
	db := NewMemDB()
	t.Cleanup(db.Close)

	for _, k := range []string{"o/1", "o/2", "o/3", "o/4"} {
		require.NoError(t, db.Put([]byte(k), []byte("v")))
	}

	var got []string
	err := db.Iterate([]byte("o/"), []byte("o/1"), 2, func(key, value []byte) bool {
		got = append(got, string(key))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"o/2", "o/3"}, got)
}

func TestOverlayCommitAndDiscard(t *testing.T) {
	base := NewMemDB()
	t.Cleanup(base.Close)
	require.NoError(t, base.Put([]byte("a"), []byte("1")))

	ov := NewOverlay(base)
	require.NoError(t, ov.Put([]byte("b"), []byte("2")))
	require.NoError(t, ov.Delete([]byte("a")))

	// Pending writes visible through the overlay only.
	_, err := ov.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
	v, err := base.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	ov.Discard()
	v, err = ov.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
	_, err = ov.Get([]byte("b"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ov.Put([]byte("b"), []byte("2")))
	require.NoError(t, ov.Commit())
	v, err = base.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
}

func TestOverlayIterateMerges(t *testing.T) {
	base := NewMemDB()
	t.Cleanup(base.Close)
	require.NoError(t, base.Put([]byte("k/1"), []byte("base")))
	require.NoError(t, base.Put([]byte("k/3"), []byte("base")))

	ov := NewOverlay(base)
	require.NoError(t, ov.Put([]byte("k/2"), []byte("pending")))
	require.NoError(t, ov.Delete([]byte("k/3")))

	var got []string
	err := ov.Iterate([]byte("k/"), nil, 0, func(key, value []byte) bool {
		got = append(got, string(key))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"k/1", "k/2"}, got)
}
