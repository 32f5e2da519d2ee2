package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
)

func TestPoolRoundTrip(t *testing.T) {
	p := NewPool[string]("names", 0)
	id, err := p.Load("x")
	require.NoError(t, err)

	got, ok := p.Borrow(id)
	require.True(t, ok)
	assert.Equal(t, "x", got)

	removed, ok := p.Remove(id)
	assert.True(t, ok)
	assert.Equal(t, "x", removed)
	_, ok = p.Borrow(id)
	assert.False(t, ok)
	_, ok = p.Remove(id)
	assert.False(t, ok, "double remove")

	reused, err := p.Load("y")
	require.NoError(t, err)
	assert.Equal(t, id.Index(), reused.Index())
	assert.Equal(t, id.Version()+1, reused.Version())
	assert.NotEqual(t, id, reused)

	_, ok = p.Borrow(id)
	assert.False(t, ok, "old id stays dead")
	got, _ = p.Borrow(reused)
	assert.Equal(t, "y", got)
}

func TestPoolFreeListIsFIFO(t *testing.T) {
	p := NewPool[int]("ints", 0)
	ids := make([]core.AssetID, 5)
	for i := range ids {
		ids[i], _ = p.Load(i)
	}
	for _, i := range []int{3, 0, 4} {
		p.Remove(ids[i])
	}
	for _, want := range []uint32{3, 0, 4} {
		id, err := p.Load(100)
		require.NoError(t, err)
		assert.Equal(t, want, id.Index())
	}
	id, _ := p.Load(200)
	assert.Equal(t, uint32(5), id.Index())
}

func TestPoolRemoveLeavesPayload(t *testing.T) {
	p := NewPool[*int]("ptrs", 0)
	v := 7
	id, _ := p.Load(&v)
	p.Remove(id)
	assert.Same(t, &v, p.items[id.Index()])
}

func TestPoolCapacity(t *testing.T) {
	p := NewPool[int]("small", 2)
	a, err := p.Load(1)
	require.NoError(t, err)
	_, err = p.Load(2)
	require.NoError(t, err)
	_, err = p.Load(3)
	assert.ErrorIs(t, err, core.ErrPoolExhausted)

	p.Remove(a)
	_, err = p.Load(3)
	assert.NoError(t, err)
	assert.Equal(t, 2, p.Len())
}

func TestPoolRetiresExhaustedSlots(t *testing.T) {
	p := NewPool[int]("churn", 0)
	id, _ := p.Load(0)
	for v := uint32(0); v < core.MaxVersion; v++ {
		require.Equal(t, uint32(0), id.Index())
		require.Equal(t, v, id.Version())
		p.Remove(id)
		id, _ = p.Load(int(v))
	}
	assert.Equal(t, core.MaxVersion, id.Version())
	p.Remove(id)

	next, err := p.Load(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), next.Index(), "slot 0 is retired")
}

func TestPoolReplaceAndEach(t *testing.T) {
	p := NewPool[string]("names", 0)
	a, _ := p.Load("a")
	b, _ := p.Load("b")
	c, _ := p.Load("c")
	p.Remove(b)

	require.NoError(t, p.Replace(a, "A"))
	assert.ErrorIs(t, p.Replace(b, "B"), core.ErrStaleHandle)

	var seen []string
	p.Each(func(id core.AssetID, item string) bool {
		seen = append(seen, item)
		return true
	})
	assert.Equal(t, []string{"A", "c"}, seen)

	seen = nil
	p.Each(func(id core.AssetID, item string) bool {
		seen = append(seen, item)
		return id != a
	})
	assert.Equal(t, []string{"A"}, seen)
	assert.True(t, p.Alive(c))
	assert.False(t, p.Alive(core.InvalidID))
}
