package systems

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Pool stores values behind generational ids. Removing a value bumps the
// slot version so old ids stop resolving, and queues the slot for reuse.
// The payload stays in the slot until a later Load overwrites it.
type Pool[T any] struct {
	name     string
	items    []T
	versions []uint32
	alive    []bool
	free     *containers.RingQueue[uint32]
	count    int
	capacity int
}

// NewPool creates a pool holding at most capacity live slots. Zero means
// as many as an AssetID can address.
func NewPool[T any](name string, capacity int) *Pool[T] {
	if capacity <= 0 || capacity > int(core.MaxIndex) {
		capacity = int(core.MaxIndex)
	}
	return &Pool[T]{
		name:     name,
		free:     containers.NewRingQueue[uint32](16),
		capacity: capacity,
	}
}

// Load stores item, reusing the oldest freed slot when there is one.
func (p *Pool[T]) Load(item T) (core.AssetID, error) {
	if index, err := p.free.Dequeue(); err == nil {
		p.items[index] = item
		p.alive[index] = true
		p.count++
		return core.NewAssetID(index, p.versions[index]), nil
	}
	if len(p.items) >= p.capacity {
		return core.InvalidID, fmt.Errorf("%s pool holds %d items: %w", p.name, p.capacity, core.ErrPoolExhausted)
	}
	index := uint32(len(p.items))
	p.items = append(p.items, item)
	p.versions = append(p.versions, 0)
	p.alive = append(p.alive, true)
	p.count++
	return core.NewAssetID(index, 0), nil
}

func (p *Pool[T]) Alive(id core.AssetID) bool {
	if !id.IsValid() {
		return false
	}
	index := id.Index()
	return int(index) < len(p.items) && p.alive[index] && p.versions[index] == id.Version()
}

// Borrow returns the value behind id, or false for a stale id.
func (p *Pool[T]) Borrow(id core.AssetID) (T, bool) {
	if !p.Alive(id) {
		var zero T
		return zero, false
	}
	return p.items[id.Index()], true
}

// Replace swaps the value behind a live id, keeping the id.
func (p *Pool[T]) Replace(id core.AssetID, item T) error {
	if !p.Alive(id) {
		return fmt.Errorf("%s %s: %w", p.name, id, core.ErrStaleHandle)
	}
	p.items[id.Index()] = item
	return nil
}

// Remove invalidates id and returns the value it pointed to. A slot whose
// version would overflow is retired instead of recycled.
func (p *Pool[T]) Remove(id core.AssetID) (T, bool) {
	if !p.Alive(id) {
		var zero T
		return zero, false
	}
	index := id.Index()
	p.versions[index]++
	p.alive[index] = false
	p.count--
	if p.versions[index] > core.MaxVersion || core.NewAssetID(index, p.versions[index]) == core.InvalidID {
		core.LogWarn("%s pool retired slot %d after %d versions", p.name, index, core.MaxVersion+1)
	} else {
		p.free.Enqueue(index)
	}
	return p.items[index], true
}

// Len is the number of live values.
func (p *Pool[T]) Len() int {
	return p.count
}

// Each visits live values in slot order until fn returns false.
func (p *Pool[T]) Each(fn func(id core.AssetID, item T) bool) {
	for i := range p.items {
		if !p.alive[i] {
			continue
		}
		if !fn(core.NewAssetID(uint32(i), p.versions[i]), p.items[i]) {
			return
		}
	}
}
