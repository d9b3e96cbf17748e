// Package workload loads JSON workload scripts for the bench harness.
package workload

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Op kinds understood by the runner.
const (
	OpNew       = "new"
	OpRemove    = "remove"
	OpRemoveAll = "remove_all"
	OpReserve   = "reserve"
	OpClear     = "clear"
)

// Op is one scripted pool operation. N is the count for "new", the
// live-list index for "remove", and the element count for "reserve".
type Op struct {
	Kind string
	N    int
}

// Workload is a named sequence of pool operations.
type Workload struct {
	Name string
	Ops  []Op
}

// Load reads and parses a workload script from path.
func Load(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading workload file: %v", err)
	}
	return Parse(data)
}

// Parse parses a workload script:
//
//	{"name": "churn", "ops": [{"op": "new", "n": 10}, {"op": "remove", "n": 3}]}
func Parse(data []byte) (*Workload, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("workload is not valid JSON")
	}

	w := &Workload{Name: gjson.GetBytes(data, "name").String()}
	if w.Name == "" {
		return nil, fmt.Errorf("workload has no name")
	}

	ops := gjson.GetBytes(data, "ops")
	if !ops.IsArray() {
		return nil, fmt.Errorf("workload %q has no ops array", w.Name)
	}

	for i, raw := range ops.Array() {
		op := Op{Kind: raw.Get("op").String(), N: int(raw.Get("n").Int())}
		switch op.Kind {
		case OpNew, OpReserve:
			if op.N <= 0 {
				op.N = 1
			}
		case OpRemove:
			if op.N < 0 {
				return nil, fmt.Errorf("op %d: negative remove index", i)
			}
		case OpRemoveAll, OpClear:
			// No argument
		default:
			return nil, fmt.Errorf("op %d: unknown kind %q", i, op.Kind)
		}
		w.Ops = append(w.Ops, op)
	}

	return w, nil
}
