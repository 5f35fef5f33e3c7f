//go:build unit
// +build unit

package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// flipSet is a finalized single-qubit set with the confusion matrix
// [[0.9, 0.2], [0.1, 0.8]].
func flipSet(t *testing.T) *CalibrationSet {
	t.Helper()
	cs := singleQubitSet(t)
	assert.NoError(t, cs.Finalize())
	return cs
}

func TestNewCorrecterRequiresFinalizedSet(t *testing.T) {
	layout, err := NewLayout([][]uint32{{0}})
	assert.NoError(t, err)
	_, err = NewCorrecter(NewCalibrationSet(layout))
	assert.ErrorContains(t, err, "not finalized")
}

func TestCorrectCountsIdentityIsExact(t *testing.T) {
	layout, err := NewLayout([][]uint32{{0, 1}})
	assert.NoError(t, err)
	c, err := NewCorrecter(IdentityCalibrationSet(layout))
	assert.NoError(t, err)

	counts := map[string]uint32{"00": 500, "01": 250, "10": 125, "11": 125}
	mapping := map[uint32]uint32{0: 0, 1: 1}
	for _, method := range []string{MethodMinimise, MethodInvert, MethodBayesian} {
		t.Run(method, func(t *testing.T) {
			corrected, err := c.CorrectCounts(counts, mapping, method, Options{})
			assert.NoError(t, err)
			assert.Equal(t, counts, corrected)
		})
	}
}

func TestCorrectDistributionRecoversTruth(t *testing.T) {
	c, err := NewCorrecter(flipSet(t))
	assert.NoError(t, err)

	// observed = M * (0.75, 0.25) = (0.725, 0.275)
	counts := map[string]uint32{"0": 725, "1": 275}
	mapping := map[uint32]uint32{0: 0}
	tests := []struct {
		method string
		delta  float64
	}{
		{MethodInvert, 1e-9},
		{MethodMinimise, 1e-6},
		{MethodBayesian, 1e-4},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			dist, err := c.CorrectDistribution(counts, mapping, tt.method, Options{})
			assert.NoError(t, err)
			assert.InDelta(t, 0.75, dist["0"], tt.delta)
			assert.InDelta(t, 0.25, dist["1"], tt.delta)
		})
	}
}

func TestCorrectDistributionSumsToOne(t *testing.T) {
	c, err := NewCorrecter(flipSet(t))
	assert.NoError(t, err)

	counts := map[string]uint32{"0": 123, "1": 877}
	mapping := map[uint32]uint32{0: 0}
	for _, method := range []string{MethodMinimise, MethodBayesian} {
		t.Run(method, func(t *testing.T) {
			dist, err := c.CorrectDistribution(counts, mapping, method, Options{})
			assert.NoError(t, err)
			sum := 0.0
			for _, v := range dist {
				assert.GreaterOrEqual(t, v, 0.0)
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-6)
		})
	}
}

func TestCorrectCountsInvert(t *testing.T) {
	c, err := NewCorrecter(flipSet(t))
	assert.NoError(t, err)

	counts := map[string]uint32{"0": 725, "1": 275}
	corrected, err := c.CorrectCounts(counts, map[uint32]uint32{0: 0}, MethodInvert, Options{})
	assert.NoError(t, err)
	assert.Equal(t, map[string]uint32{"0": 750, "1": 250}, corrected)
	assert.Equal(t, counts["0"]+counts["1"], corrected["0"]+corrected["1"])
}

func TestCorrectCountsResidualBitsPassThrough(t *testing.T) {
	c, err := NewCorrecter(flipSet(t))
	assert.NoError(t, err)

	// position 0 holds qubit 0, position 1 is outside the layout and splits
	// the counts into two groups corrected independently
	counts := map[string]uint32{
		"00": 725, "10": 275,
		"01": 290, "11": 110,
	}
	corrected, err := c.CorrectCounts(counts, map[uint32]uint32{0: 0}, MethodInvert, Options{})
	assert.NoError(t, err)
	assert.Equal(t, map[string]uint32{
		"00": 750, "10": 250,
		"01": 300, "11": 100,
	}, corrected)
}

func TestCorrectTwoSubsets(t *testing.T) {
	layout, err := NewLayout([][]uint32{{0}, {1}})
	assert.NoError(t, err)
	cs := NewCalibrationSet(layout)
	mapping := map[uint32]uint32{0: 0, 1: 1}

	// qubit 0 reads perfectly, qubit 1 has the flip matrix of flipSet
	assert.NoError(t, cs.Add(Preparation{Indices: []int{0, 0}},
		map[string]uint32{"00": 9, "01": 1}, mapping))
	assert.NoError(t, cs.Add(Preparation{Indices: []int{0, 1}},
		map[string]uint32{"00": 2, "01": 8}, mapping))
	assert.NoError(t, cs.Add(Preparation{Indices: []int{1, 0}},
		map[string]uint32{"10": 9, "11": 1}, mapping))
	assert.NoError(t, cs.Add(Preparation{Indices: []int{1, 1}},
		map[string]uint32{"10": 2, "11": 8}, mapping))
	assert.NoError(t, cs.Finalize())

	c, err := NewCorrecter(cs)
	assert.NoError(t, err)
	counts := map[string]uint32{"00": 725, "01": 275}
	corrected, err := c.CorrectCounts(counts, mapping, MethodInvert, Options{})
	assert.NoError(t, err)
	assert.Equal(t, map[string]uint32{"00": 750, "01": 250}, corrected)
}

func TestCorrectErrors(t *testing.T) {
	c, err := NewCorrecter(flipSet(t))
	assert.NoError(t, err)
	mapping := map[uint32]uint32{0: 0}

	_, err = c.CorrectCounts(map[string]uint32{"0": 1}, mapping, "magic", Options{})
	assert.ErrorContains(t, err, "unknown correction method")

	_, err = c.CorrectCounts(map[string]uint32{}, mapping, MethodMinimise, Options{})
	assert.ErrorContains(t, err, "no counts")

	_, err = c.CorrectCounts(map[string]uint32{"0": 1, "00": 1}, mapping, MethodMinimise, Options{})
	assert.ErrorContains(t, err, "length")

	_, err = c.CorrectCounts(map[string]uint32{"0": 1}, map[uint32]uint32{}, MethodMinimise, Options{})
	assert.ErrorContains(t, err, "no position")
}

func TestCorrectMappingCollision(t *testing.T) {
	layout, err := NewLayout([][]uint32{{0, 1}})
	assert.NoError(t, err)
	c, err := NewCorrecter(IdentityCalibrationSet(layout))
	assert.NoError(t, err)

	_, err = c.CorrectCounts(map[string]uint32{"00": 1},
		map[uint32]uint32{0: 0, 1: 0}, MethodMinimise, Options{})
	assert.ErrorContains(t, err, "same bitstring position")
}

func TestProjectSimplex(t *testing.T) {
	w := projectSimplex([]float64{0.5, 0.3, 0.2})
	assert.InDelta(t, 0.5, w[0], 1e-12)
	assert.InDelta(t, 0.3, w[1], 1e-12)
	assert.InDelta(t, 0.2, w[2], 1e-12)

	w = projectSimplex([]float64{1.0, 1.0})
	assert.InDelta(t, 0.5, w[0], 1e-12)
	assert.InDelta(t, 0.5, w[1], 1e-12)

	w = projectSimplex([]float64{-1.0, 0.0})
	assert.InDelta(t, 0.0, w[0], 1e-12)
	assert.InDelta(t, 1.0, w[1], 1e-12)

	sum := 0.0
	for _, v := range projectSimplex([]float64{0.9, -0.3, 0.7, 0.1}) {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestRoundToTotal(t *testing.T) {
	assert.Equal(t, []uint32{500, 250, 250},
		roundToTotal([]float64{500, 250, 250}, 1000))
	assert.Equal(t, []uint32{334, 333, 333},
		roundToTotal([]float64{333.4, 333.3, 333.3}, 1000))
}
