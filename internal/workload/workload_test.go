package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`{
		"name": "smoke",
		"ops": [
			{"op": "reserve", "n": 16},
			{"op": "new", "n": 10},
			{"op": "remove", "n": 3},
			{"op": "remove_all"},
			{"op": "clear"}
		]
	}`)

	w, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "smoke", w.Name)
	require.Len(t, w.Ops, 5)
	assert.Equal(t, Op{Kind: OpReserve, N: 16}, w.Ops[0])
	assert.Equal(t, Op{Kind: OpNew, N: 10}, w.Ops[1])
	assert.Equal(t, Op{Kind: OpRemove, N: 3}, w.Ops[2])
	assert.Equal(t, OpRemoveAll, w.Ops[3].Kind)
	assert.Equal(t, OpClear, w.Ops[4].Kind)
}

func TestParseDefaultsCount(t *testing.T) {
	w, err := Parse([]byte(`{"name": "one", "ops": [{"op": "new"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, w.Ops[0].N)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"invalid json", `{"name": "x", "ops": [`},
		{"missing name", `{"ops": []}`},
		{"missing ops", `{"name": "x"}`},
		{"unknown op", `{"name": "x", "ops": [{"op": "teleport"}]}`},
		{"negative remove", `{"name": "x", "ops": [{"op": "remove", "n": -1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "file", "ops": [{"op": "new", "n": 2}]}`), 0644))

	w, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", w.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
