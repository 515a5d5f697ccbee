package keytable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsert_AssignsSequentialKeysFromEmpty(t *testing.T) {
	tbl := New[string]()

	k0 := tbl.Insert("a")
	k1 := tbl.Insert("b")
	k2 := tbl.Insert("c")

	assert.Equal(t, uint32(0), k0)
	assert.Equal(t, uint32(1), k1)
	assert.Equal(t, uint32(2), k2)
	assert.Equal(t, 3, tbl.Len())
}

func TestInsert_AfterEmptyingReturnsToZero(t *testing.T) {
	tbl := New[string]()

	k0 := tbl.Insert("a")
	tbl.Delete(k0)
	assert.Equal(t, 0, tbl.Len())

	k1 := tbl.Insert("b")
	assert.Equal(t, uint32(0), k1)
}

func TestInsert_NeverReusesTombstoneWhileTableNonEmpty(t *testing.T) {
	tbl := New[string]()

	k0 := tbl.Insert("a")
	k1 := tbl.Insert("b")
	tbl.Delete(k0) // tombstone key 0, key 1 still live

	k2 := tbl.Insert("c")
	assert.Equal(t, uint32(2), k2, "next key must be last key + 1, not fill the tombstone")

	_, ok := tbl.Get(k0)
	assert.False(t, ok)

	v1, ok := tbl.Get(k1)
	require := assert.New(t)
	require.True(ok)
	require.Equal("b", v1)
}

func TestSet_OverwritesWithoutReassigningKey(t *testing.T) {
	tbl := New[int]()
	k := tbl.Insert(1)

	tbl.Set(k, 2)

	v, ok := tbl.Get(k)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, tbl.Len())
}

func TestDelete_IsNoOpOnMissingKey(t *testing.T) {
	tbl := New[int]()
	assert.NotPanics(t, func() { tbl.Delete(42) })
	assert.Equal(t, 0, tbl.Len())
}

func TestGet_MissingKeyReturnsZeroValueAndFalse(t *testing.T) {
	tbl := New[int]()
	v, ok := tbl.Get(7)
	assert.False(t, ok)
	assert.Zero(t, v)
}
