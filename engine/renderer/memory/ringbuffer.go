package memory

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type span struct {
	start int
	end   int
}

// RingBuffer is a persistently mapped GPU buffer split into equally sized
// sections used round-robin, one per frame in flight. Writes go through a
// section-local cursor; every write is bounds checked against the section
// and panics on overflow, so Reserve must be called before pushing.
type RingBuffer struct {
	name    string
	device  gpu.Device
	target  gpu.BufferTarget
	handle  gpu.BufferHandle
	mapped  []byte
	locks   *FenceLockManager
	wraps   uint64
	pending []span

	sections       int
	sectionSize    int
	currentSection int
	cursor         int
	pendingStart   int
}

func NewRingBuffer(device gpu.Device, target gpu.BufferTarget, name string, sectionSize, sections int, policy WaitPolicy) (*RingBuffer, error) {
	if sectionSize <= 0 {
		return nil, fmt.Errorf("ring buffer %s: section size must be > 0", name)
	}
	if sections <= 0 {
		return nil, fmt.Errorf("ring buffer %s: section count must be > 0", name)
	}
	handle, mapped, err := device.CreateMappedBuffer(target, sectionSize*sections)
	if err != nil {
		return nil, fmt.Errorf("ring buffer %s: %w", name, err)
	}
	if len(mapped) < sectionSize*sections {
		device.DeleteBuffer(handle)
		return nil, fmt.Errorf("ring buffer %s: mapping is %d bytes, want %d", name, len(mapped), sectionSize*sections)
	}
	core.LogDebug("ring buffer %s created: %d sections of %d bytes", name, sections, sectionSize)
	return &RingBuffer{
		name:        name,
		device:      device,
		target:      target,
		handle:      handle,
		mapped:      mapped,
		locks:       NewFenceLockManager(device, policy),
		sections:    sections,
		sectionSize: sectionSize,
	}, nil
}

// Reserve makes room for size bytes at the cursor. When they do not fit
// in the rest of the section the cursor wraps to zero, discarding the
// tail. It then waits for every fence covering the target range.
func (rb *RingBuffer) Reserve(size int) error {
	if size > rb.sectionSize {
		return fmt.Errorf("ring buffer %s: reserve of %d bytes in %d byte section: %w", rb.name, size, rb.sectionSize, core.ErrCapacityExceeded)
	}
	if size <= 0 {
		return nil
	}
	if rb.cursor+size > rb.sectionSize {
		core.LogWarn("ring buffer %s wrapped in section %d (cursor %d + %d > %d)", rb.name, rb.currentSection, rb.cursor, size, rb.sectionSize)
		if rb.cursor > rb.pendingStart {
			rb.pending = append(rb.pending, span{start: rb.pendingStart, end: rb.cursor})
		}
		rb.cursor = 0
		rb.pendingStart = 0
		rb.wraps++
	}
	return rb.locks.WaitForLockedRange(rb.SectionOffset()+rb.cursor, size)
}

func (rb *RingBuffer) checkWrite(offset, size int) {
	if offset < 0 || offset+size > rb.sectionSize {
		panic(fmt.Sprintf("ring buffer %s: write of %d bytes at %d exceeds section size %d", rb.name, size, offset, rb.sectionSize))
	}
}

// Push copies data at the cursor and advances it. It returns the absolute
// byte offset of the write within the buffer.
func (rb *RingBuffer) Push(data []byte) int {
	rb.checkWrite(rb.cursor, len(data))
	offset := rb.SectionOffset() + rb.cursor
	copy(rb.mapped[offset:offset+len(data)], data)
	rb.cursor += len(data)
	return offset
}

// SetAt writes data at a section-local offset without moving the cursor.
func (rb *RingBuffer) SetAt(data []byte, offset int) {
	rb.checkWrite(offset, len(data))
	start := rb.SectionOffset() + offset
	copy(rb.mapped[start:start+len(data)], data)
}

// PushSlice pushes the raw bytes of items; see Push.
func PushSlice[T any](rb *RingBuffer, items []T) int {
	return rb.Push(AsBytes(items))
}

// SetSliceAt writes the raw bytes of items at a section-local offset.
func SetSliceAt[T any](rb *RingBuffer, items []T, offset int) {
	rb.SetAt(AsBytes(items), offset)
}

// SetValueAt writes the raw bytes of v at a section-local offset.
func SetValueAt[T any](rb *RingBuffer, v T, offset int) {
	rb.SetAt(ValueBytes(&v), offset)
}

// SetFence locks the size bytes written just before the cursor. Call it
// after submitting the commands that read them.
func (rb *RingBuffer) SetFence(size int) {
	if size > rb.cursor {
		panic(fmt.Sprintf("ring buffer %s: fence of %d bytes exceeds the %d bytes written", rb.name, size, rb.cursor))
	}
	fenced := rb.cursor - size
	rb.locks.LockRange(rb.SectionOffset()+fenced, size)
	if rb.pendingStart >= fenced {
		rb.pendingStart = rb.cursor
	}
}

// FencePending locks every range written since the last fence, including
// ranges left behind by a wrap. It is a no-op when nothing was written.
func (rb *RingBuffer) FencePending() {
	base := rb.SectionOffset()
	for _, s := range rb.pending {
		rb.locks.LockRange(base+s.start, s.end-s.start)
	}
	rb.pending = rb.pending[:0]
	if rb.cursor > rb.pendingStart {
		rb.locks.LockRange(base+rb.pendingStart, rb.cursor-rb.pendingStart)
	}
	rb.pendingStart = rb.cursor
}

// NextSection rotates to the next section. The cursor is left alone; call
// ResetIndex once the previous section is finished.
func (rb *RingBuffer) NextSection() {
	if len(rb.pending) > 0 || rb.cursor > rb.pendingStart {
		core.LogDebug("ring buffer %s left section %d with unfenced writes", rb.name, rb.currentSection)
	}
	rb.currentSection = (rb.currentSection + 1) % rb.sections
	rb.pending = rb.pending[:0]
}

func (rb *RingBuffer) ResetIndex() {
	rb.cursor = 0
	rb.pendingStart = 0
}

func (rb *RingBuffer) Name() string             { return rb.name }
func (rb *RingBuffer) Handle() gpu.BufferHandle { return rb.handle }
func (rb *RingBuffer) Target() gpu.BufferTarget { return rb.target }
func (rb *RingBuffer) Sections() int            { return rb.sections }
func (rb *RingBuffer) SectionSize() int         { return rb.sectionSize }
func (rb *RingBuffer) CurrentSection() int      { return rb.currentSection }
func (rb *RingBuffer) Cursor() int              { return rb.cursor }
func (rb *RingBuffer) Wraps() uint64            { return rb.wraps }
func (rb *RingBuffer) Locks() *FenceLockManager { return rb.locks }
func (rb *RingBuffer) SectionOffset() int       { return rb.currentSection * rb.sectionSize }
func (rb *RingBuffer) Remaining() int           { return rb.sectionSize - rb.cursor }
func (rb *RingBuffer) Section() []byte          { return rb.mapped[rb.SectionOffset() : rb.SectionOffset()+rb.sectionSize] }

func (rb *RingBuffer) Destroy() {
	rb.locks.Destroy()
	rb.device.DeleteBuffer(rb.handle)
	rb.mapped = nil
}
