// Package bench drives a pool through churn and scripted workloads,
// verifying pointer stability as it goes.
package bench

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/genc-murat/stablepool/internal/config"
	"github.com/genc-murat/stablepool/internal/metrics"
	"github.com/genc-murat/stablepool/internal/workload"
	"github.com/genc-murat/stablepool/pkg/pool"
)

// Result is one run's record, written to the results file.
type Result struct {
	Name       string    `json:"name"`
	Ops        int64     `json:"ops"`
	Live       int       `json:"live"`
	Slabs      int       `json:"slabs"`
	Capacity0  int       `json:"capacity0"`
	Size0      int       `json:"size0"`
	Holes      int       `json:"holes"`
	Digest     string    `json:"digest"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// element pairs a pool slot with the value written into it, so a later
// read can prove the slot neither moved nor changed.
type element struct {
	ptr *uint64
	val uint64
}

type runner struct {
	p    pool.Pool[uint64]
	live []element
	m    *metrics.Metrics
	next uint64
}

func (r *runner) alloc() error {
	before := r.p.Stats()
	start := time.Now()
	x, err := r.p.New()
	d := time.Since(start)
	if err != nil {
		return err
	}
	after := r.p.Stats()
	r.m.RecordNew(after.Holes < before.Holes, after.Capacity0 != before.Capacity0, d)

	*x = r.next
	r.live = append(r.live, element{ptr: x, val: r.next})
	r.next++
	return nil
}

func (r *runner) removeAt(i int) error {
	e := r.live[i]
	if *e.ptr != e.val {
		return fmt.Errorf("element %d corrupted before remove: got %d want %d", i, *e.ptr, e.val)
	}

	before := r.p.Stats()
	start := time.Now()
	err := r.p.Remove(e.ptr)
	d := time.Since(start)
	if err != nil {
		return err
	}
	after := r.p.Stats()
	switch {
	case before.Size0 > after.Size0:
		r.m.RecordTrim(before.Size0-after.Size0, d)
	case after.Holes > before.Holes:
		r.m.RecordHole(d)
	default:
		r.m.RecordSealed(after.Slabs < before.Slabs, d)
	}

	r.live[i] = r.live[len(r.live)-1]
	r.live = r.live[:len(r.live)-1]
	return nil
}

// verify proves every surviving element still reads back the value it
// was given at allocation time.
func (r *runner) verify() error {
	for i, e := range r.live {
		if *e.ptr != e.val {
			return fmt.Errorf("element %d corrupted: got %d want %d", i, *e.ptr, e.val)
		}
	}
	return nil
}

// digest hashes the surviving values in live-list order. A removal moves
// the last live entry into the vacated place, so once anything has been
// removed this is not allocation order.
func (r *runner) digest() string {
	d := xxhash.New()
	var buf [8]byte
	for _, e := range r.live {
		binary.LittleEndian.PutUint64(buf[:], e.val)
		d.Write(buf[:])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func (r *runner) result(name string) *Result {
	st := r.p.Stats()
	return &Result{
		Name:       name,
		Ops:        r.m.Ops(),
		Live:       len(r.live),
		Slabs:      st.Slabs,
		Capacity0:  st.Capacity0,
		Size0:      st.Size0,
		Holes:      st.Holes,
		Digest:     r.digest(),
		DurationMs: r.m.Elapsed().Milliseconds(),
		Timestamp:  time.Now(),
	}
}

// RunChurn runs a seeded random allocate/remove churn. The live set
// drifts toward cfg.Elements; cfg.NewBias is the allocation percentage
// while below that level.
func RunChurn(cfg config.BenchConfig, m *metrics.Metrics) (*Result, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	r := &runner{m: m}

	if cfg.Reserve > 0 {
		if err := r.p.Reserve(cfg.Reserve); err != nil {
			return nil, fmt.Errorf("reserve failed: %v", err)
		}
	}

	for i := 0; i < cfg.Iterations; i++ {
		grow := len(r.live) == 0 ||
			(len(r.live) < cfg.Elements && rng.Intn(100) < cfg.NewBias)
		if grow {
			if err := r.alloc(); err != nil {
				return nil, err
			}
		} else {
			if err := r.removeAt(rng.Intn(len(r.live))); err != nil {
				return nil, err
			}
		}
	}

	if err := r.verify(); err != nil {
		return nil, err
	}
	return r.result("churn"), nil
}

// RunWorkload executes a scripted workload.
func RunWorkload(w *workload.Workload, m *metrics.Metrics) (*Result, error) {
	r := &runner{m: m}

	for i, op := range w.Ops {
		var err error
		switch op.Kind {
		case workload.OpNew:
			for n := 0; n < op.N && err == nil; n++ {
				err = r.alloc()
			}
		case workload.OpRemove:
			if op.N >= len(r.live) {
				err = fmt.Errorf("remove index %d out of range (%d live)", op.N, len(r.live))
			} else {
				err = r.removeAt(op.N)
			}
		case workload.OpRemoveAll:
			for len(r.live) > 0 && err == nil {
				err = r.removeAt(len(r.live) - 1)
			}
		case workload.OpReserve:
			err = r.p.Reserve(op.N)
		case workload.OpClear:
			r.p.Clear()
			r.live = r.live[:0]
		}
		if err != nil {
			return nil, fmt.Errorf("op %d (%s): %v", i, op.Kind, err)
		}
	}

	if err := r.verify(); err != nil {
		return nil, err
	}
	return r.result(w.Name), nil
}
