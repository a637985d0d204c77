package managedvec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/managedvec"
)

func TestManagedVec_Len(t *testing.T) {
	v := managedvec.New[int]()
	require.Equal(t, managedvec.Idx(0), v.Len())

	v.Push(1)
	require.Equal(t, managedvec.Idx(1), v.Len())

	v.Push(2)
	require.Equal(t, managedvec.Idx(2), v.Len())

	v.Remove(0)
	require.Equal(t, managedvec.Idx(1), v.Len())

	v.Remove(1)
	require.Equal(t, managedvec.Idx(0), v.Len())

	v.Push(1)
	v.Push(2)
	v.Push(3)
	require.Equal(t, managedvec.Idx(3), v.Len())

	v.Remove(1)
	require.Equal(t, managedvec.Idx(2), v.Len())

	v.Remove(2)
	require.Equal(t, managedvec.Idx(1), v.Len())

	v.Push(2)
	require.Equal(t, managedvec.Idx(2), v.Len())
}

func TestManagedVec_Push_ReusesFreedSlot(t *testing.T) {
	v := managedvec.New[string]()
	a := v.Push("a")
	b := v.Push("b")
	require.Equal(t, managedvec.Idx(0), a)
	require.Equal(t, managedvec.Idx(1), b)

	v.Remove(a)
	c := v.Push("c")
	require.Equal(t, a, c, "push should reuse the lowest free slot")

	require.Equal(t, "c", *v.Get(0))
	require.Equal(t, "b", *v.Get(1))
}

func TestManagedVec_Remove_ShrinksTrailingEmpties(t *testing.T) {
	v := managedvec.New[int]()
	v.Push(1)
	v.Push(2)
	v.Push(3)

	v.Remove(2)
	v.Remove(1)

	require.Nil(t, v.Get(2))
	require.Nil(t, v.Get(1))
	require.NotNil(t, v.Get(0))
}

func TestManagedVec_Get_OutOfRange(t *testing.T) {
	v := managedvec.New[int]()
	require.Nil(t, v.Get(0))
	require.Nil(t, v.Remove(5))
}

func TestManagedVec_Iter_OnlyOccupied(t *testing.T) {
	v := managedvec.New[int]()
	v.Push(10)
	v.Push(20)
	v.Push(30)
	v.Remove(1)

	entries := v.Iter()
	require.Len(t, entries, 2)
	require.Equal(t, managedvec.Idx(0), entries[0].Index)
	require.Equal(t, 10, *entries[0].Value)
	require.Equal(t, managedvec.Idx(2), entries[1].Index)
	require.Equal(t, 30, *entries[1].Value)
}
