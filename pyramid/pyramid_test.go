package pyramid

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireExactlyOnce checks that ids 0..n-1 each occupy exactly one slot of
// the chain and nothing else is stored.
func requireExactlyOnce(t *testing.T, c *Chain, n int64) {
	t.Helper()
	counts := make(map[int64]int)
	for i := 1; i <= c.LevelCount(); i++ {
		for _, id := range c.Level(i).Slots() {
			if id != Empty {
				counts[id]++
			}
		}
	}
	require.Len(t, counts, int(n))
	for id := int64(0); id < n; id++ {
		require.Equal(t, 1, counts[id], "id %d", id)
	}
	require.Equal(t, int(n), c.Len())
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 4, Capacity(1))
	assert.Equal(t, 16, Capacity(2))
	assert.Equal(t, 64, Capacity(3))
	assert.Equal(t, 1<<20, Capacity(10))
}

func TestNew(t *testing.T) {
	c := New()
	assert.Equal(t, 1, c.LevelCount())
	assert.True(t, c.Top().IsTop())
	assert.Equal(t, 4, c.Top().Capacity())
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Top().Next())
	assert.Nil(t, c.Level(2))
}

func TestAdd_FillsTopLevel(t *testing.T) {
	c := New()
	for id := int64(0); id < 4; id++ {
		require.NoError(t, c.Add(1, id))
	}
	assert.Equal(t, 1, c.LevelCount())
	assert.Equal(t, 4, c.Top().Len())
}

func TestAdd_Idempotent(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(1, 7))
	require.NoError(t, c.Add(1, 7))
	assert.Equal(t, 1, c.Top().Len())
}

func TestAdd_InvalidArguments(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Add(1, -1), ErrInvalidID)
	assert.ErrorIs(t, c.Add(2, 1), ErrInvalidLevel)
	assert.ErrorIs(t, c.Add(0, 1), ErrInvalidLevel)
}

func TestAdd_OverflowCascadeFifthID(t *testing.T) {
	c := New()
	for id := int64(0); id < 5; id++ {
		require.NoError(t, c.Add(1, id))
	}

	require.Equal(t, 2, c.LevelCount())
	assert.Equal(t, 0, c.Top().Len())
	assert.Equal(t, 16, c.Level(2).Capacity())
	assert.Equal(t, 5, c.Level(2).Len())
	for id := int64(0); id < 5; id++ {
		assert.True(t, c.Level(2).Contains(id), "id %d", id)
	}
}

func TestAdd_OverflowCascadeSixthID(t *testing.T) {
	c := New()
	for id := int64(0); id < 6; id++ {
		require.NoError(t, c.Add(1, id))
	}

	assert.Equal(t, 2, c.LevelCount())
	assert.Equal(t, 5, c.Level(2).Len())
	assert.Equal(t, 1, c.Top().Len())
	assert.True(t, c.Top().Contains(5))
	requireExactlyOnce(t, c, 6)
}

func TestAdd_DeepCascade(t *testing.T) {
	c := New()
	for id := int64(0); id < 1000; id++ {
		require.NoError(t, c.Add(1, id))
	}
	assert.GreaterOrEqual(t, c.LevelCount(), 4)
	requireExactlyOnce(t, c, 1000)
}

func TestOverflow_AllocatesNextLevel(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(1, 10))
	require.NoError(t, c.Add(1, 11))

	require.NoError(t, c.Overflow(1))
	assert.Equal(t, 2, c.LevelCount())
	assert.Equal(t, 0, c.Top().Len())
	assert.True(t, c.Level(2).Contains(10))
	assert.True(t, c.Level(2).Contains(11))
	assert.Same(t, c.Level(2), c.Top().Next())
}

func TestFindAndPromote(t *testing.T) {
	c := New()
	for id := int64(0); id < 6; id++ {
		require.NoError(t, c.Add(1, id))
	}

	found, err := c.FindAndPromote(2, 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, c.Top().Contains(3))
	assert.False(t, c.Level(2).Contains(3))
	requireExactlyOnce(t, c, 6)
}

func TestFindAndPromote_NotFound(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(1, 1))

	found, err := c.FindAndPromote(1, 2)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, c.Top().Len())
}

func TestFindAndPromote_FullTopOverflowsFirst(t *testing.T) {
	c := New()
	for id := int64(0); id < 5; id++ {
		require.NoError(t, c.Add(1, id))
	}
	for id := int64(5); id < 9; id++ {
		require.NoError(t, c.Add(1, id))
	}
	require.True(t, c.Top().full())

	found, err := c.FindAndPromote(2, 0)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 1, c.Top().Len())
	assert.True(t, c.Top().Contains(0))
	requireExactlyOnce(t, c, 9)
}

func TestFindAndPromote_AtTopLevel(t *testing.T) {
	c := New()
	for id := int64(0); id < 4; id++ {
		require.NoError(t, c.Add(1, id))
	}
	found, err := c.FindAndPromote(1, 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, c.LevelCount())
	requireExactlyOnce(t, c, 4)
}

func TestSelectDecoy(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(1, 42))

	for i := 0; i < 20; i++ {
		id, err := c.SelectDecoy(1)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	}
}

func TestSelectDecoy_CoversLevel(t *testing.T) {
	c := New()
	for id := int64(0); id < 4; id++ {
		require.NoError(t, c.Add(1, id))
	}
	seen := make(map[int64]bool)
	for i := 0; i < 400; i++ {
		id, err := c.SelectDecoy(1)
		require.NoError(t, err)
		seen[id] = true
	}
	assert.Len(t, seen, 4)
}

func TestSelectDecoy_EmptyLevel(t *testing.T) {
	c := New()
	_, err := c.SelectDecoy(1)
	assert.ErrorIs(t, err, ErrEmptyLevel)
}

func TestSelectDecoy_RandomFailure(t *testing.T) {
	c := New(WithRand(bytes.NewReader(nil)))
	require.NoError(t, c.Add(1, 1))
	_, err := c.SelectDecoy(1)
	assert.ErrorIs(t, err, ErrRandom)
}

func TestSelectAny(t *testing.T) {
	c := New()
	_, err := c.SelectAny()
	assert.ErrorIs(t, err, ErrEmptyChain)

	for id := int64(0); id < 5; id++ {
		require.NoError(t, c.Add(1, id))
	}
	require.Equal(t, 0, c.Top().Len())
	for i := 0; i < 50; i++ {
		id, err := c.SelectAny()
		require.NoError(t, err)
		assert.True(t, id >= 0 && id < 5)
	}
}

func TestPrune(t *testing.T) {
	c := New()
	require.NoError(t, c.Populate(10, false))
	levels := c.LevelCount()

	assert.Equal(t, 7, c.Prune(3))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, levels, c.LevelCount())
	requireExactlyOnce(t, c, 3)

	assert.Zero(t, c.Prune(3))
	assert.Equal(t, 3, c.Prune(0))
	assert.Zero(t, c.Len())
}

func TestPopulate(t *testing.T) {
	for _, shuffle := range []bool{false, true} {
		c := New()
		require.NoError(t, c.Populate(300, shuffle))
		requireExactlyOnce(t, c, 300)
	}
}

func TestPopulate_SequentialIsDeterministic(t *testing.T) {
	a, b := New(), New()
	require.NoError(t, a.Populate(50, false))
	require.NoError(t, b.Populate(50, false))

	fa, err := Flatten(a.Top())
	require.NoError(t, err)
	fb, err := Flatten(b.Top())
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestUniqueness_RandomAccesses(t *testing.T) {
	const n = 200
	c := New()
	require.NoError(t, c.Populate(n, true))

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		id := r.Int63n(n)
		promoted := false
		for lvl := 1; lvl <= c.LevelCount(); lvl++ {
			found, err := c.FindAndPromote(lvl, id)
			require.NoError(t, err)
			if found {
				promoted = true
				break
			}
		}
		require.True(t, promoted, "id %d lost", id)
		lvl, ok := c.Locate(id)
		require.True(t, ok)
		require.Equal(t, 1, lvl)
	}
	requireExactlyOnce(t, c, n)
}

func TestFlatten_RoundTrip(t *testing.T) {
	c := New()
	require.NoError(t, c.Populate(77, true))
	_, err := c.FindAndPromote(c.LevelCount(), mustAny(t, c.Level(c.LevelCount())))
	require.NoError(t, err)

	flat, err := Flatten(c.Top())
	require.NoError(t, err)
	assert.Len(t, flat, c.TotalSlots())

	back, err := FromFlat(flat)
	require.NoError(t, err)
	require.Equal(t, c.LevelCount(), back.LevelCount())
	for i := 1; i <= c.LevelCount(); i++ {
		assert.Equal(t, c.Level(i).Slots(), back.Level(i).Slots(), "level %d", i)
	}
	assert.Equal(t, c.Occupancy(), back.Occupancy())
}

func TestFlatten_Errors(t *testing.T) {
	_, err := Flatten(nil)
	assert.ErrorIs(t, err, ErrNilChain)

	c := New()
	require.NoError(t, c.Populate(5, false))
	_, err = Flatten(c.Level(2))
	assert.ErrorIs(t, err, ErrNotTopLevel)
}

func TestLevelsForSlots(t *testing.T) {
	tests := []struct {
		total   int
		want    int
		wantErr error
	}{
		{4, 1, nil},
		{20, 2, nil},
		{84, 3, nil},
		{0, 0, ErrLayout},
		{5, 0, ErrLayout},
		{21, 0, ErrLayout},
	}
	for _, tt := range tests {
		got, err := LevelsForSlots(tt.total)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "total %d", tt.total)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFromFlat_Corrupt(t *testing.T) {
	ids := []int64{1, 2, Empty, Empty}
	_, err := FromFlat(ids)
	require.NoError(t, err)

	_, err = FromFlat([]int64{1, 1, Empty, Empty})
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = FromFlat([]int64{1, -7, Empty, Empty})
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = FromFlat([]int64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrLayout))
}

func mustAny(t *testing.T, l *Level) int64 {
	t.Helper()
	for _, id := range l.Slots() {
		if id != Empty {
			return id
		}
	}
	t.Fatal("level is empty")
	return Empty
}
