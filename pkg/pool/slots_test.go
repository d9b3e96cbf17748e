package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grow seals slabs until the pool holds want of them, returning one
// live pointer per slab keyed by slab base.
func grow(t *testing.T, p *Pool[int], want int) map[uintptr]*int {
	t.Helper()
	bys := map[uintptr]*int{}
	for len(p.slots) < want {
		x, err := p.New()
		require.NoError(t, err)
		bys[p.slots[0].base()] = x
	}
	return bys
}

func TestUpperBounds(t *testing.T) {
	var p Pool[int]
	grow(t, &p, 4)

	// One past the last sealed index for an address above every slab.
	assert.Equal(t, len(p.slots), p.upper(^uintptr(0)))

	// Index 1 for an address below every sealed slab.
	lowest := p.slots[1].base()
	assert.Equal(t, 1, p.upper(lowest-1))

	// A sealed slab's own start resolves past itself.
	for i := 1; i < len(p.slots); i++ {
		assert.Equal(t, i+1, p.upper(p.slots[i].base()))
	}
}

func TestOwnerActiveSlabFastPath(t *testing.T) {
	var p Pool[int]

	x, err := p.New()
	require.NoError(t, err)

	c, ok := p.owner(addr(x))
	require.True(t, ok)
	assert.Equal(t, 0, c)

	// Single-slab pools never binary search.
	assert.Equal(t, 1, len(p.slots))
}

func TestOwnerSealedSlabs(t *testing.T) {
	var p Pool[int]
	bySlab := grow(t, &p, 5)

	for base, x := range bySlab {
		c, ok := p.owner(addr(x))
		require.True(t, ok)
		assert.Equal(t, base, p.slots[c].base())
	}
}

func TestOwnerRejectsMisaligned(t *testing.T) {
	var p Pool[int64]

	x, err := p.New()
	require.NoError(t, err)

	_, ok := p.owner(addr(x) + 1)
	assert.False(t, ok)
}

func TestOwnerRejectsGapAddresses(t *testing.T) {
	var p Pool[int]
	grow(t, &p, 3)

	// An address squarely below the first sealed slab's start.
	_, ok := p.owner(p.slots[1].base() - elemSize[int]())
	if p.slots[1].base()-elemSize[int]() >= p.slots[0].base() &&
		p.slots[1].base()-elemSize[int]() < p.slots[0].base()+uintptr(len(p.slots[0].slab))*elemSize[int]() {
		t.Skip("adjacent allocations, gap address landed inside the active slab")
	}
	assert.False(t, ok)
}
