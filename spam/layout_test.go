//go:build unit
// +build unit

package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLayout(t *testing.T) {
	tests := []struct {
		name    string
		subsets [][]uint32
		wantErr string
	}{
		{
			name:    "single subset",
			subsets: [][]uint32{{0, 1}},
		},
		{
			name:    "multiple subsets",
			subsets: [][]uint32{{3}, {0, 2}},
		},
		{
			name:    "no subsets",
			subsets: [][]uint32{},
			wantErr: "no qubit subsets",
		},
		{
			name:    "empty subset",
			subsets: [][]uint32{{0}, {}},
			wantErr: "subset 1 is empty",
		},
		{
			name:    "duplicate qubit in subset",
			subsets: [][]uint32{{1, 1}},
			wantErr: "qubit 1 appears twice in subset 0",
		},
		{
			name:    "overlapping subsets",
			subsets: [][]uint32{{0, 1}, {1, 2}},
			wantErr: "qubit 1 is in both subset 0 and subset 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLayout(tt.subsets)
			if tt.wantErr != "" {
				assert.Nil(t, l)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewLayoutRejectsTooManyQubits(t *testing.T) {
	big := make([]uint32, MaxJointBits+1)
	for i := range big {
		big[i] = uint32(i)
	}
	_, err := NewLayout([][]uint32{big})
	assert.ErrorContains(t, err, "more than the supported")
}

func TestLayoutSortsSubsetQubits(t *testing.T) {
	l, err := NewLayout([][]uint32{{5, 1, 3}})
	assert.NoError(t, err)
	assert.Equal(t, [][]uint32{{1, 3, 5}}, l.Subsets())
	assert.Equal(t, []uint32{1, 3, 5}, l.Qubits())
	assert.True(t, l.Contains(3))
	assert.False(t, l.Contains(2))
	assert.Equal(t, 3, l.MaxSubsetSize())
}

func TestPreparations(t *testing.T) {
	l, err := NewLayout([][]uint32{{0}, {1, 2}})
	assert.NoError(t, err)
	assert.Equal(t, 8, l.NumPreparations())

	preps := l.Preparations()
	assert.Len(t, preps, 8)
	assert.Equal(t, []int{0, 0}, preps[0].Indices)
	assert.Equal(t, []int{0, 1}, preps[1].Indices)
	assert.Equal(t, []int{0, 3}, preps[3].Indices)
	assert.Equal(t, []int{1, 0}, preps[4].Indices)
	assert.Equal(t, []int{1, 3}, preps[7].Indices)
}

func TestBitAndExcitedQubits(t *testing.T) {
	l, err := NewLayout([][]uint32{{1, 5}})
	assert.NoError(t, err)

	// index 2 is binary 10 over (qubit1, qubit5)
	p := Preparation{Indices: []int{2}}
	assert.Equal(t, uint8(1), l.Bit(p, 1))
	assert.Equal(t, uint8(0), l.Bit(p, 5))
	assert.Equal(t, []uint32{1}, l.ExcitedQubits(p))

	assert.Empty(t, l.ExcitedQubits(Preparation{Indices: []int{0}}))
	assert.Equal(t, []uint32{1, 5}, l.ExcitedQubits(Preparation{Indices: []int{3}}))
}
