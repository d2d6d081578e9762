package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

func frameWithSeq(seq uint64) *frame.Frame {
	f := frame.New(2, 2)
	f.Seq = seq
	return f
}

func TestPushPopOrder(t *testing.T) {
	b := New(4)

	for seq := uint64(1); seq <= 3; seq++ {
		b.Push(frameWithSeq(seq))
	}
	assert.Equal(t, 3, b.Len())

	for seq := uint64(1); seq <= 3; seq++ {
		f, ok := b.Pop()
		require.True(t, ok)
		assert.Equal(t, seq, f.Seq)
	}

	_, ok := b.Pop()
	assert.False(t, ok)
}

func TestDropsOldestWhenFull(t *testing.T) {
	b := New(2)

	for seq := uint64(1); seq <= 5; seq++ {
		b.Push(frameWithSeq(seq))
	}

	// Capacity never exceeded, oldest evicted first.
	assert.Equal(t, 2, b.Len())
	assert.EqualValues(t, 3, b.Dropped())

	f, ok := b.Pop()
	require.True(t, ok)
	assert.EqualValues(t, 4, f.Seq)

	f, ok = b.Pop()
	require.True(t, ok)
	assert.EqualValues(t, 5, f.Seq)
}

func TestDefaultCapacity(t *testing.T) {
	b := New(0)
	assert.Equal(t, DefaultCapacity, b.Capacity())

	b = New(-3)
	assert.Equal(t, DefaultCapacity, b.Capacity())
}
