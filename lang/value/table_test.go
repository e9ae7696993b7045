package value_test

import (
	"fmt"
	"testing"

	"github.com/mna/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIdempotent(t *testing.T) {
	in := value.NewInterner()
	s1 := in.Intern("same")
	s2 := in.Intern("same")
	assert.Same(t, s1, s2)
}

func TestInternDistinctStringsAreDistinct(t *testing.T) {
	in := value.NewInterner()
	a := in.Intern("a")
	b := in.Intern("b")
	assert.NotSame(t, a, b)
}

func TestTableSetGetDelete(t *testing.T) {
	in := value.NewInterner()
	tbl := value.NewTable()

	k1 := in.Intern("k1")
	isNew := tbl.Set(k1, value.Number(1))
	assert.True(t, isNew)

	isNew = tbl.Set(k1, value.Number(2))
	assert.False(t, isNew, "setting an existing key is not a new insertion")

	v, ok := tbl.Get(k1)
	require.True(t, ok)
	assert.Equal(t, value.Number(2), v)

	ok = tbl.Delete(k1)
	assert.True(t, ok)

	_, ok = tbl.Get(k1)
	assert.False(t, ok)

	ok = tbl.Delete(k1)
	assert.False(t, ok, "deleting an absent key reports false")
}

func TestTableTombstoneReuse(t *testing.T) {
	in := value.NewInterner()
	tbl := value.NewTable()

	k1, k2 := in.Intern("k1"), in.Intern("k2")
	tbl.Set(k1, value.Number(1))
	tbl.Set(k2, value.Number(2))

	tbl.Delete(k1)

	// k2 must still be reachable even though k1 (which may have collided with
	// it on the same probe chain) was tombstoned in between.
	v, ok := tbl.Get(k2)
	require.True(t, ok)
	assert.Equal(t, value.Number(2), v)

	// re-inserting after a delete must work and should be able to reuse the
	// tombstoned slot.
	tbl.Set(k1, value.Number(3))
	v, ok = tbl.Get(k1)
	require.True(t, ok)
	assert.Equal(t, value.Number(3), v)
}

func TestTableGrowsAndKeepsAllEntries(t *testing.T) {
	in := value.NewInterner()
	tbl := value.NewTable()

	const n = 500
	keys := make([]*value.ObjString, n)
	for i := 0; i < n; i++ {
		keys[i] = in.Intern(fmt.Sprintf("key-%d", i))
		tbl.Set(keys[i], value.Number(i))
	}

	for i := 0; i < n; i++ {
		v, ok := tbl.Get(keys[i])
		require.True(t, ok, "key-%d should still be present after growth", i)
		assert.Equal(t, value.Number(i), v)
	}
}

func TestTableAddAll(t *testing.T) {
	in := value.NewInterner()
	src := value.NewTable()
	dst := value.NewTable()

	k1, k2 := in.Intern("a"), in.Intern("b")
	src.Set(k1, value.Number(1))
	src.Set(k2, value.Number(2))

	dst.AddAll(src)

	v, ok := dst.Get(k1)
	require.True(t, ok)
	assert.Equal(t, value.Number(1), v)
	v, ok = dst.Get(k2)
	require.True(t, ok)
	assert.Equal(t, value.Number(2), v)
}
