package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
)

func newTestRing(t *testing.T, dev *gputest.Device, sectionSize, sections int, policy WaitPolicy) *RingBuffer {
	t.Helper()
	rb, err := NewRingBuffer(dev, gpu.BufferTargetArray, "test", sectionSize, sections, policy)
	require.NoError(t, err)
	return rb
}

func TestNewRingBufferRejectsBadSizes(t *testing.T) {
	dev := gputest.NewDevice()
	_, err := NewRingBuffer(dev, gpu.BufferTargetArray, "bad", 0, 2, DefaultWaitPolicy())
	assert.Error(t, err)
	_, err = NewRingBuffer(dev, gpu.BufferTargetArray, "bad", 64, 0, DefaultWaitPolicy())
	assert.Error(t, err)
}

func TestRingBufferPushReturnsAbsoluteOffsets(t *testing.T) {
	dev := gputest.NewDevice()
	rb := newTestRing(t, dev, 256, 3, DefaultWaitPolicy())

	require.NoError(t, rb.Reserve(16))
	assert.Equal(t, 0, rb.Push(make([]byte, 16)))
	require.NoError(t, rb.Reserve(16))
	assert.Equal(t, 16, rb.Push([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}))

	rb.NextSection()
	assert.Equal(t, 32, rb.Cursor(), "cursor survives NextSection until reset")
	rb.ResetIndex()
	require.NoError(t, rb.Reserve(8))
	assert.Equal(t, 256, rb.Push(make([]byte, 8)))

	data := dev.Buffer(rb.Handle())
	assert.Equal(t, byte(1), data[16])
	assert.Equal(t, byte(16), data[31])
}

func TestRingBufferTypedWrites(t *testing.T) {
	dev := gputest.NewDevice()
	rb := newTestRing(t, dev, 256, 2, DefaultWaitPolicy())
	rb.NextSection()

	require.NoError(t, rb.Reserve(2*IndexSize))
	offset := PushSlice(rb, []uint32{7, 9})
	assert.Equal(t, 256, offset)
	SetValueAt(rb, uint32(42), 64)

	assert.Equal(t, [2]uint32{7, 9}, FromBytes[[2]uint32](rb.Section()[:8]))
	assert.Equal(t, uint32(42), FromBytes[uint32](rb.Section()[64:68]))
	assert.Equal(t, 8, rb.Cursor())
}

func TestRingBufferWrapsWhenSectionIsFull(t *testing.T) {
	dev := gputest.NewDevice()
	rb := newTestRing(t, dev, 128, 2, DefaultWaitPolicy())

	require.NoError(t, rb.Reserve(100))
	rb.Push(make([]byte, 100))
	require.NoError(t, rb.Reserve(40))
	assert.Equal(t, 0, rb.Cursor())
	assert.Equal(t, uint64(1), rb.Wraps())
	assert.Equal(t, 0, rb.Push(make([]byte, 40)))

	rb.FencePending()
	assert.Equal(t, 2, rb.Locks().Pending(), "both the discarded tail and the new range are fenced")
}

func TestRingBufferReserveLargerThanSection(t *testing.T) {
	dev := gputest.NewDevice()
	rb := newTestRing(t, dev, 64, 2, DefaultWaitPolicy())
	assert.ErrorIs(t, rb.Reserve(65), core.ErrCapacityExceeded)
	assert.NoError(t, rb.Reserve(64))
}

func TestRingBufferOverflowPanics(t *testing.T) {
	dev := gputest.NewDevice()
	rb := newTestRing(t, dev, 64, 2, DefaultWaitPolicy())
	rb.Push(make([]byte, 60))
	assert.Panics(t, func() { rb.Push(make([]byte, 8)) })
	assert.Panics(t, func() { rb.SetAt(make([]byte, 4), 62) })
	assert.Panics(t, func() { rb.SetAt(make([]byte, 4), -1) })
	assert.Panics(t, func() { rb.SetFence(61) })
}

func TestRingBufferSetFenceLocksTrailingBytes(t *testing.T) {
	dev := gputest.NewDevice()
	rb := newTestRing(t, dev, 256, 2, DefaultWaitPolicy())
	rb.Push(make([]byte, 32))
	rb.Push(make([]byte, 32))
	rb.SetFence(32)
	assert.Equal(t, 1, rb.Locks().Pending())

	// [0, 64) is still pending: SetFence only covered the tail
	rb.FencePending()
	assert.Equal(t, 2, rb.Locks().Pending())
	rb.FencePending()
	assert.Equal(t, 2, rb.Locks().Pending(), "nothing new to fence")
}

func TestRingBufferWaitsOnlyForItsOwnSection(t *testing.T) {
	dev := gputest.NewDevice()
	dev.HoldFences(true)
	rb := newTestRing(t, dev, 1024, 2, WaitPolicy{TimeoutNs: 100_000, MaxRetries: 100_000})

	// frame 1, section 0
	require.NoError(t, rb.Reserve(800))
	rb.Push(make([]byte, 800))
	rb.FencePending()
	rb.NextSection()
	rb.ResetIndex()

	// frame 2, section 1: nothing to wait for
	require.NoError(t, rb.Reserve(800))
	assert.Equal(t, 1024, rb.Push(make([]byte, 800)))
	rb.FencePending()
	rb.NextSection()
	rb.ResetIndex()

	fences := dev.Fences()
	require.Len(t, fences, 2)
	assert.Zero(t, dev.Polls(fences[0]))

	// frame 3, back in section 0: blocks on frame 1's fence only
	done := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		dev.Signal(fences[0])
		close(done)
	}()
	require.NoError(t, rb.Reserve(800))
	<-done

	assert.True(t, dev.FenceDeleted(fences[0]))
	assert.False(t, dev.FenceDeleted(fences[1]))
	assert.Zero(t, dev.Polls(fences[1]))
	assert.Equal(t, 1, rb.Locks().Pending())
	assert.Greater(t, rb.Locks().Retries(), uint64(0))
}

func TestRingBufferDestroy(t *testing.T) {
	dev := gputest.NewDevice()
	rb := newTestRing(t, dev, 64, 2, DefaultWaitPolicy())
	rb.Push(make([]byte, 8))
	rb.FencePending()
	rb.Destroy()
	assert.Nil(t, dev.Buffer(rb.Handle()))
	assert.Zero(t, dev.LiveFences())
}
