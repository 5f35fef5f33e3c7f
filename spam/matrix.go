package spam

import (
	"github.com/go-faster/errors"
	"gonum.org/v1/gonum/mat"
)

// ConfusionMatrix is the assignment matrix of one qubit subset.
// Rows are observed basis states, columns are prepared basis states, so a
// finalized matrix has columns summing to one and M*p_true approximates
// p_observed.
type ConfusionMatrix struct {
	Qubits []uint32
	M      *mat.Dense

	columnShots []float64
	finalized   bool
}

func newConfusionMatrix(qubits []uint32) *ConfusionMatrix {
	dim := 1 << len(qubits)
	return &ConfusionMatrix{
		Qubits:      qubits,
		M:           mat.NewDense(dim, dim, nil),
		columnShots: make([]float64, dim),
	}
}

func (c *ConfusionMatrix) Dim() int {
	return 1 << len(c.Qubits)
}

func (c *ConfusionMatrix) accumulate(prepared, observed int, count float64) {
	c.M.Set(observed, prepared, c.M.At(observed, prepared)+count)
	c.columnShots[prepared] += count
}

func (c *ConfusionMatrix) finalize() error {
	if c.finalized {
		return errors.New("confusion matrix is already finalized")
	}
	dim := c.Dim()
	for col := 0; col < dim; col++ {
		shots := c.columnShots[col]
		if shots == 0 {
			return errors.Errorf("no calibration shots for prepared state %d of qubits %v",
				col, c.Qubits)
		}
		for row := 0; row < dim; row++ {
			c.M.Set(row, col, c.M.At(row, col)/shots)
		}
	}
	c.finalized = true
	return nil
}

// ColumnSums is a diagnostic; every entry of a finalized matrix is 1 up to
// float rounding.
func (c *ConfusionMatrix) ColumnSums() []float64 {
	dim := c.Dim()
	sums := make([]float64, dim)
	for col := 0; col < dim; col++ {
		for row := 0; row < dim; row++ {
			sums[col] += c.M.At(row, col)
		}
	}
	return sums
}

// maxRowSum bounds the infinity norm, used to pick a safe gradient step.
func (c *ConfusionMatrix) maxRowSum() float64 {
	dim := c.Dim()
	max := 0.0
	for row := 0; row < dim; row++ {
		sum := 0.0
		for col := 0; col < dim; col++ {
			sum += c.M.At(row, col)
		}
		if sum > max {
			max = sum
		}
	}
	return max
}

func (c *ConfusionMatrix) inverse() (*mat.Dense, error) {
	dim := c.Dim()
	inv := mat.NewDense(dim, dim, nil)
	if err := inv.Inverse(c.M); err != nil {
		return nil, errors.Wrapf(err, "confusion matrix of qubits %v is singular", c.Qubits)
	}
	return inv, nil
}

// CalibrationSet accumulates confusion matrices from calibration counts and,
// once finalized, backs a Correcter.
type CalibrationSet struct {
	Layout   *Layout
	Matrices []*ConfusionMatrix

	finalized bool
}

func NewCalibrationSet(layout *Layout) *CalibrationSet {
	ms := make([]*ConfusionMatrix, len(layout.Subsets()))
	for i, s := range layout.Subsets() {
		ms[i] = newConfusionMatrix(s)
	}
	return &CalibrationSet{
		Layout:   layout,
		Matrices: ms,
	}
}

// Add feeds the measured counts of one calibration circuit. The mapping
// locates each layout qubit in the counts bitstrings.
func (cs *CalibrationSet) Add(prep Preparation, counts map[string]uint32, mapping map[uint32]uint32) error {
	if cs.finalized {
		return errors.New("calibration set is already finalized")
	}
	if len(prep.Indices) != len(cs.Layout.Subsets()) {
		return errors.Errorf("preparation has %d subset indices, layout has %d",
			len(prep.Indices), len(cs.Layout.Subsets()))
	}
	for key, count := range counts {
		for si, subset := range cs.Layout.Subsets() {
			observed, err := subsetIndexOf(key, subset, mapping)
			if err != nil {
				return err
			}
			cs.Matrices[si].accumulate(prep.Indices[si], observed, float64(count))
		}
	}
	return nil
}

// Finalize normalizes every matrix column into a probability distribution.
func (cs *CalibrationSet) Finalize() error {
	if cs.finalized {
		return errors.New("calibration set is already finalized")
	}
	for _, m := range cs.Matrices {
		if err := m.finalize(); err != nil {
			return err
		}
	}
	cs.finalized = true
	return nil
}

func (cs *CalibrationSet) Finalized() bool {
	return cs.finalized
}

// subsetIndexOf reads the observed basis-state index of a subset out of a
// measured bitstring, MSB first over the subset's qubits in ascending order.
func subsetIndexOf(key string, subset []uint32, mapping map[uint32]uint32) (int, error) {
	idx := 0
	for _, q := range subset {
		pos, ok := mapping[q]
		if !ok {
			return 0, errors.Errorf("qubit %d has no position in the measured bitstring", q)
		}
		if int(pos) >= len(key) {
			return 0, errors.Errorf("qubit %d position %d is out of bitstring %q", q, pos, key)
		}
		idx <<= 1
		switch key[pos] {
		case '0':
		case '1':
			idx |= 1
		default:
			return 0, errors.Errorf("bitstring %q has a non-binary character", key)
		}
	}
	return idx, nil
}

// IdentityCalibrationSet builds a finalized set with identity matrices.
// Correction against it is a no-op; used as a fallback and in tests.
func IdentityCalibrationSet(layout *Layout) *CalibrationSet {
	cs := NewCalibrationSet(layout)
	for _, m := range cs.Matrices {
		dim := m.Dim()
		for i := 0; i < dim; i++ {
			m.M.Set(i, i, 1)
			m.columnShots[i] = 1
		}
		m.finalized = true
	}
	cs.finalized = true
	return cs
}
