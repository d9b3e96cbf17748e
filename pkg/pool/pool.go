// Package pool implements a stable typed memory pool: a slab allocator
// that hands out pointers which stay valid, at the same address, until
// that element is removed or the pool is destroyed.
//
// Allocation is amortized O(1). New elements fill holes left by earlier
// removals before extending the active slab; when the active slab runs
// out it is sealed in place (no element moves) and a geometrically
// larger slab takes over. Under a steady allocate/remove workload the
// live elements settle toward the front of the active slab and the tail
// trims itself.
//
// The zero value is a valid idle pool:
//
//	var p pool.Pool[Node]
//	n, err := p.New()
//
// A Pool is not safe for concurrent use.
package pool

import (
	"errors"
	"math"
	"slices"
	"unsafe"

	"github.com/genc-murat/stablepool/internal/indexheap"
)

// SlabMinCapacity is the smallest capacity a slab is allocated with. The
// first slab is larger when a bigger Reserve requests it.
const SlabMinCapacity = 8

var (
	// ErrRange is returned when a request can not be satisfied within
	// addressable memory, or when the element type has zero size.
	ErrRange = errors.New("pool: request exceeds addressable capacity")

	// ErrForeign is returned by Remove for a pointer that is not a live
	// element of this pool. The check is structural: removing a non-tail
	// active-slab element twice is not detectable and must not be done.
	ErrForeign = errors.New("pool: pointer is not a live element of this pool")
)

// Pool is a slab memory manager with a free-heap over the active slab.
// Element pointers returned by New are stable until the matching Remove
// or Destroy; growing the pool never moves an element.
type Pool[T any] struct {
	slots []slot[T]      // slots[0] is active, slots[1:] sealed and address-sorted
	free0 indexheap.Heap // holes in the active slab
}

// Stats is a structural snapshot of a pool, readable in O(1). It does
// not report the number of live elements.
type Stats struct {
	Slabs     int // total slabs, active included
	Capacity0 int // allocated capacity of the active slab
	Size0     int // high-water mark of the active slab
	Holes     int // free positions below the high-water mark
}

// Reserve ensures that n further elements can be allocated without
// growing. Reserving on an empty active slab upgrades it in place.
func (p *Pool[T]) Reserve(n int) error {
	return p.buffer(n)
}

// New returns a pointer to an uninitialized element slot. The slot may
// hold leftover contents from a previously removed element.
func (p *Pool[T]) New() (*T, error) {
	if err := p.buffer(1); err != nil {
		return nil, err
	}
	if i, ok := p.free0.TakeAny(); ok {
		// Any hole serves; taking the heap's array tail skips the sift.
		return &p.slots[0].slab[i], nil
	}
	s0 := &p.slots[0]
	x := &s0.slab[s0.size]
	s0.size++
	return x, nil
}

// Remove marks the element referenced by x as free. In a sealed slab
// the live count drops and the whole slab is released at zero. In the
// active slab the tail trims, draining any holes it exposes, or the
// position joins the free-heap.
func (p *Pool[T]) Remove(x *T) error {
	if x == nil || len(p.slots) == 0 {
		return ErrForeign
	}
	a := uintptr(unsafe.Pointer(x))
	c, ok := p.owner(a)
	if !ok {
		return ErrForeign
	}
	if c > 0 {
		s := &p.slots[c]
		s.size--
		if s.size == 0 {
			p.slots = slices.Delete(p.slots, c, c+1)
		}
		return nil
	}
	s0 := &p.slots[0]
	i := int((a - s0.base()) / elemSize[T]())
	if i+1 == s0.size {
		// Trim the tail, then keep trimming while the highest hole is
		// the position just exposed.
		s0.size--
		for s0.size > 0 {
			top, ok := p.free0.Peek()
			if !ok || top != s0.size-1 {
				break
			}
			p.free0.Pop()
			s0.size--
		}
	} else {
		p.free0.Push(i)
	}
	return nil
}

// Clear removes every element. Sealed slabs are released; the active
// slab keeps its capacity.
func (p *Pool[T]) Clear() {
	if len(p.slots) == 0 {
		return
	}
	clear(p.slots[1:])
	p.slots = p.slots[:1]
	p.slots[0].size = 0
	p.free0.Clear()
}

// Destroy releases every slab and returns the pool to idle. Safe on an
// idle pool. All outstanding element pointers become invalid.
func (p *Pool[T]) Destroy() {
	*p = Pool[T]{}
}

// Stats reports the pool's structural state.
func (p *Pool[T]) Stats() Stats {
	st := Stats{
		Slabs: len(p.slots),
		Holes: p.free0.Size(),
	}
	if len(p.slots) > 0 {
		st.Capacity0 = len(p.slots[0].slab)
		st.Size0 = p.slots[0].size
	}
	return st
}

// buffer makes room for n further elements, growing and evicting the
// active slab as needed.
func (p *Pool[T]) buffer(n int) error {
	if n <= 0 {
		return nil
	}
	if len(p.slots) > 0 {
		s0 := &p.slots[0]
		if n <= len(s0.slab)-s0.size+p.free0.Size() {
			return nil
		}
	}
	esz := elemSize[T]()
	if esz == 0 {
		return ErrRange
	}
	maxElems := ^uintptr(0) / esz
	if maxElems > math.MaxInt {
		maxElems = math.MaxInt
	}
	if uintptr(n) > maxElems {
		return ErrRange
	}

	// Next capacity: ~golden ratio of the current one.
	c := 0
	if len(p.slots) > 0 {
		c = len(p.slots[0].slab)
		if p.slots[0].size > 0 {
			c1 := c + c/2 + c/8
			if c1 < c || uintptr(c1) > maxElems {
				c1 = int(maxElems)
			}
			c = c1
		}
	}
	if c < SlabMinCapacity {
		c = SlabMinCapacity
	}
	if c < n {
		c = n
	}

	slab := make([]T, c)
	if len(p.slots) == 0 {
		p.slots = append(p.slots, slot[T]{slab: slab})
		return nil
	}
	if p.slots[0].size == 0 {
		// Empty active slab: upgrade in place instead of sealing it.
		p.slots[0].slab = slab
		return nil
	}

	// Seal the active slab, keeping the sealed region address-sorted.
	ins := p.upper(p.slots[0].base())
	evicted := p.slots[0]
	p.slots = slices.Insert(p.slots, ins, evicted)
	p.slots[0] = slot[T]{slab: slab}
	return nil
}
