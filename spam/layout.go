// Package spam implements readout-error calibration and correction.
//
// A calibration layout partitions the qubits of interest into disjoint
// subsets whose readout errors are assumed to be mutually correlated, with
// no correlation across subsets. Calibration prepares every joint basis
// state over the layout, measures it, and accumulates one confusion matrix
// per subset. Raw counts of later experiments are corrected against those
// matrices.
package spam

import (
	"sort"

	"github.com/go-faster/errors"
)

// Hard cap on the joint calibration space. Layouts are rejected before the
// circuit count explodes; the configurable per-subset cap is enforced by the
// caller on top of this.
const MaxJointBits = 16

type Layout struct {
	subsets [][]uint32
	qubits  map[uint32]int // qubit id -> subset index
}

// NewLayout validates the subsets and fixes the qubit order inside each
// subset to ascending id. Subset order is kept as given.
func NewLayout(subsets [][]uint32) (*Layout, error) {
	if len(subsets) == 0 {
		return nil, errors.New("no qubit subsets")
	}
	seen := make(map[uint32]int)
	total := 0
	sorted := make([][]uint32, len(subsets))
	for i, s := range subsets {
		if len(s) == 0 {
			return nil, errors.Errorf("subset %d is empty", i)
		}
		cp := make([]uint32, len(s))
		copy(cp, s)
		sort.Slice(cp, func(a, b int) bool { return cp[a] < cp[b] })
		for j := 1; j < len(cp); j++ {
			if cp[j] == cp[j-1] {
				return nil, errors.Errorf("qubit %d appears twice in subset %d", cp[j], i)
			}
		}
		for _, q := range cp {
			if owner, ok := seen[q]; ok {
				return nil, errors.Errorf("qubit %d is in both subset %d and subset %d", q, owner, i)
			}
			seen[q] = i
		}
		total += len(cp)
		sorted[i] = cp
	}
	if total > MaxJointBits {
		return nil, errors.Errorf("layout covers %d qubits, more than the supported %d", total, MaxJointBits)
	}
	return &Layout{subsets: sorted, qubits: seen}, nil
}

func (l *Layout) Subsets() [][]uint32 {
	return l.subsets
}

// Qubits returns all qubits of the layout in subset order.
func (l *Layout) Qubits() []uint32 {
	qs := []uint32{}
	for _, s := range l.subsets {
		qs = append(qs, s...)
	}
	return qs
}

func (l *Layout) Contains(qubit uint32) bool {
	_, ok := l.qubits[qubit]
	return ok
}

func (l *Layout) MaxSubsetSize() int {
	max := 0
	for _, s := range l.subsets {
		if len(s) > max {
			max = len(s)
		}
	}
	return max
}

// NumPreparations is the number of calibration circuits: the product of
// 2^|subset| over all subsets, exponential in the layout size.
func (l *Layout) NumPreparations() int {
	n := 1
	for _, s := range l.subsets {
		n <<= len(s)
	}
	return n
}

// Preparation is one joint basis state over the layout. Indices holds the
// per-subset basis-state index; bit i of an index (counted from the most
// significant bit of a |subset|-bit word) is the prepared value of the
// subset's i-th qubit in ascending id order.
type Preparation struct {
	Indices []int
}

// Bit returns the prepared value of a qubit in the layout.
func (l *Layout) Bit(p Preparation, qubit uint32) uint8 {
	si := l.qubits[qubit]
	s := l.subsets[si]
	for i, q := range s {
		if q == qubit {
			return uint8(p.Indices[si]>>(len(s)-1-i)) & 1
		}
	}
	return 0
}

// ExcitedQubits lists the qubits prepared in |1> for the given preparation.
func (l *Layout) ExcitedQubits(p Preparation) []uint32 {
	excited := []uint32{}
	for si, s := range l.subsets {
		for i, q := range s {
			if (p.Indices[si]>>(len(s)-1-i))&1 == 1 {
				excited = append(excited, q)
			}
		}
	}
	return excited
}

// Preparations enumerates the cartesian product of the per-subset basis
// states, in lexicographic order with the last subset varying fastest.
func (l *Layout) Preparations() []Preparation {
	preps := make([]Preparation, 0, l.NumPreparations())
	idx := make([]int, len(l.subsets))
	for {
		cp := make([]int, len(idx))
		copy(cp, idx)
		preps = append(preps, Preparation{Indices: cp})

		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < 1<<len(l.subsets[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return preps
		}
	}
}
