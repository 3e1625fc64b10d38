package sharing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nogokama/dslab/sharing"
)

func TestSingleItemRunsAtFullRate(t *testing.T) {
	m := sharing.New[string](1000)
	m.Insert(0, "a", 1000)

	finish, value, ok := m.Peek(0)
	require.True(t, ok)
	require.Equal(t, "a", value)
	require.Equal(t, 1.0, finish)
}

func TestTwoEqualItemsFinishTogetherAtDoubleTime(t *testing.T) {
	m := sharing.New[string](1000)
	m.Insert(0, "a", 1000)
	m.Insert(0, "b", 1000)

	finish1, _, ok := m.Pop(0)
	require.True(t, ok)
	require.InDelta(t, 2.0, finish1, 1e-9)

	finish2, _, ok := m.Pop(finish1)
	require.True(t, ok)
	require.InDelta(t, 2.0, finish2, 1e-9)
}

func TestSmallerItemFinishesFirstWhenInsertedTogether(t *testing.T) {
	m := sharing.New[string](1000)
	m.Insert(0, "big", 1000)
	m.Insert(0, "small", 500)

	_, value, ok := m.Pop(0)
	require.True(t, ok)
	require.Equal(t, "small", value, "the smaller item must complete first under equal sharing")
}

func TestLateArrivalRebasesExistingItemShare(t *testing.T) {
	m := sharing.New[string](1000)
	m.Insert(0, "a", 1000)

	// a runs alone for 0.2s at rate 1000, consuming 200 of its 1000 units.
	finishAlone, _, ok := m.Peek(0.2)
	require.True(t, ok)
	require.InDelta(t, 1.0, finishAlone, 1e-9, "alone, a should still be projected to finish at t=1")

	m.Insert(0.2, "b", 800)
	// From t=0.2, a has 800 remaining, b has 800 remaining, shared at 500
	// each: both finish at t=0.2+800/500=1.8.
	finishA, valueA, ok := m.Pop(0.2)
	require.True(t, ok)
	require.InDelta(t, 1.8, finishA, 1e-9)

	finishB, valueB, ok := m.Pop(finishA)
	require.True(t, ok)
	require.InDelta(t, 1.8, finishB, 1e-9)

	names := map[string]bool{valueA: true, valueB: true}
	require.True(t, names["a"] && names["b"])
}

func TestEmptyModelReportsNotOK(t *testing.T) {
	m := sharing.New[int](1000)
	_, _, ok := m.Peek(0)
	require.False(t, ok)
	_, _, ok = m.Pop(0)
	require.False(t, ok)
}

func TestLenTracksLiveItems(t *testing.T) {
	m := sharing.New[int](1000)
	require.Equal(t, 0, m.Len())
	m.Insert(0, 1, 100)
	m.Insert(0, 2, 100)
	require.Equal(t, 2, m.Len())
	m.Pop(0)
	require.Equal(t, 1, m.Len())
}
