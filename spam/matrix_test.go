//go:build unit
// +build unit

package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func singleQubitSet(t *testing.T) *CalibrationSet {
	t.Helper()
	layout, err := NewLayout([][]uint32{{0}})
	assert.NoError(t, err)
	cs := NewCalibrationSet(layout)
	mapping := map[uint32]uint32{0: 0}
	assert.NoError(t, cs.Add(Preparation{Indices: []int{0}},
		map[string]uint32{"0": 90, "1": 10}, mapping))
	assert.NoError(t, cs.Add(Preparation{Indices: []int{1}},
		map[string]uint32{"0": 20, "1": 80}, mapping))
	return cs
}

func TestCalibrationSetFinalize(t *testing.T) {
	cs := singleQubitSet(t)
	assert.False(t, cs.Finalized())
	assert.NoError(t, cs.Finalize())
	assert.True(t, cs.Finalized())

	m := cs.Matrices[0]
	assert.Equal(t, 2, m.Dim())
	assert.InDelta(t, 0.9, m.M.At(0, 0), 1e-12)
	assert.InDelta(t, 0.1, m.M.At(1, 0), 1e-12)
	assert.InDelta(t, 0.2, m.M.At(0, 1), 1e-12)
	assert.InDelta(t, 0.8, m.M.At(1, 1), 1e-12)
	for _, sum := range m.ColumnSums() {
		assert.InDelta(t, 1.0, sum, 1e-12)
	}

	assert.ErrorContains(t, cs.Finalize(), "already finalized")
	assert.ErrorContains(t, cs.Add(Preparation{Indices: []int{0}},
		map[string]uint32{"0": 1}, map[uint32]uint32{0: 0}), "already finalized")
}

func TestCalibrationSetFinalizeWithoutShots(t *testing.T) {
	layout, err := NewLayout([][]uint32{{0}})
	assert.NoError(t, err)
	cs := NewCalibrationSet(layout)
	assert.NoError(t, cs.Add(Preparation{Indices: []int{0}},
		map[string]uint32{"0": 100}, map[uint32]uint32{0: 0}))
	assert.ErrorContains(t, cs.Finalize(), "no calibration shots")
}

func TestCalibrationSetAddErrors(t *testing.T) {
	layout, err := NewLayout([][]uint32{{0}})
	assert.NoError(t, err)
	cs := NewCalibrationSet(layout)

	assert.ErrorContains(t, cs.Add(Preparation{Indices: []int{0, 1}},
		map[string]uint32{"0": 1}, map[uint32]uint32{0: 0}), "subset indices")
	assert.ErrorContains(t, cs.Add(Preparation{Indices: []int{0}},
		map[string]uint32{"0": 1}, map[uint32]uint32{}), "no position")
	assert.ErrorContains(t, cs.Add(Preparation{Indices: []int{0}},
		map[string]uint32{"0": 1}, map[uint32]uint32{0: 5}), "out of bitstring")
	assert.ErrorContains(t, cs.Add(Preparation{Indices: []int{0}},
		map[string]uint32{"x": 1}, map[uint32]uint32{0: 0}), "non-binary")
}

func TestSubsetIndexOf(t *testing.T) {
	// qubit 1 is the most significant bit of the subset index
	mapping := map[uint32]uint32{1: 0, 3: 2}
	idx, err := subsetIndexOf("1x0", []uint32{1, 3}, mapping)
	assert.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = subsetIndexOf("1x1", []uint32{1, 3}, mapping)
	assert.NoError(t, err)
	assert.Equal(t, 3, idx)
}

func TestIdentityCalibrationSet(t *testing.T) {
	layout, err := NewLayout([][]uint32{{0, 1}})
	assert.NoError(t, err)
	cs := IdentityCalibrationSet(layout)
	assert.True(t, cs.Finalized())

	m := cs.Matrices[0]
	for row := 0; row < m.Dim(); row++ {
		for col := 0; col < m.Dim(); col++ {
			want := 0.0
			if row == col {
				want = 1.0
			}
			assert.Equal(t, want, m.M.At(row, col))
		}
	}
}
