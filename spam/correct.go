package spam

import (
	"math"
	"sort"

	"github.com/go-faster/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// MethodMinimise corrects by constrained least squares. The corrected
	// vector is a true probability distribution.
	MethodMinimise = "minimise"
	// MethodInvert applies the inverse confusion matrices directly. Fast,
	// but the result can contain negative pseudo-probabilities.
	MethodInvert = "invert"
	// MethodBayesian unfolds the observed counts iteratively. The corrected
	// vector is a true probability distribution.
	MethodBayesian = "bayesian"
)

func ParseMethod(s string) (string, error) {
	switch s {
	case MethodMinimise, MethodInvert, MethodBayesian:
		return s, nil
	default:
		return "", errors.Errorf("unknown correction method %q", s)
	}
}

type Options struct {
	MaxIterations int
	Tolerance     float64
}

func DefaultOptions() Options {
	return Options{
		MaxIterations: 1000,
		Tolerance:     1e-10,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	return o
}

// Correcter corrects measured counts against a finalized calibration set.
// The joint distribution over the layout is never materialized as a single
// matrix; every method applies the per-subset matrices axis by axis, so the
// cost stays at 2^|layout| vector entries instead of squared.
type Correcter struct {
	set     *CalibrationSet
	lowBits []int
	bits    int

	invs   []*mat.Dense
	invErr error
}

func NewCorrecter(set *CalibrationSet) (*Correcter, error) {
	if !set.Finalized() {
		return nil, errors.New("calibration set is not finalized")
	}
	subsets := set.Layout.Subsets()
	c := &Correcter{
		set:     set,
		lowBits: make([]int, len(subsets)),
	}
	for _, s := range subsets {
		c.bits += len(s)
	}
	acc := c.bits
	for i, s := range subsets {
		acc -= len(s)
		c.lowBits[i] = acc
	}
	// Inverses are only needed by MethodInvert. A singular matrix is not an
	// error until that method is actually requested.
	c.invs = make([]*mat.Dense, len(set.Matrices))
	for i, m := range set.Matrices {
		inv, err := m.inverse()
		if err != nil {
			c.invs = nil
			c.invErr = err
			break
		}
		c.invs[i] = inv
	}
	return c, nil
}

// CorrectDistribution corrects the measured counts and returns the corrected
// probability distribution over full bitstrings. Bits outside the layout are
// passed through unchanged; counts are corrected separately within each
// residual bit pattern. With MethodInvert the values may be negative.
func (c *Correcter) CorrectDistribution(counts map[string]uint32, mapping map[uint32]uint32,
	method string, opts Options) (map[string]float64, error) {
	groups, total, err := c.prepare(counts, mapping, method)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	out := make(map[string]float64)
	for _, g := range groups {
		p := c.correctVector(g.probs(), method, opts)
		weight := g.shots / total
		for idx, v := range p {
			if v == 0 {
				continue
			}
			out[c.keyFor(g.template, mapping, idx)] += v * weight
		}
	}
	return out, nil
}

// CorrectCounts corrects the measured counts and rescales the result back to
// the original shot total of each residual group. Negative pseudo-counts from
// MethodInvert are clamped to zero before rescaling.
func (c *Correcter) CorrectCounts(counts map[string]uint32, mapping map[uint32]uint32,
	method string, opts Options) (map[string]uint32, error) {
	groups, _, err := c.prepare(counts, mapping, method)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	out := make(map[string]uint32)
	for _, g := range groups {
		p := c.correctVector(g.probs(), method, opts)
		positive := 0.0
		for _, v := range p {
			if v > 0 {
				positive += v
			}
		}
		if positive == 0 {
			return nil, errors.New("corrected distribution has no positive mass")
		}
		scaled := make([]float64, len(p))
		for i, v := range p {
			if v > 0 {
				scaled[i] = v / positive * g.shots
			}
		}
		for idx, n := range roundToTotal(scaled, uint64(g.shots)) {
			if n > 0 {
				out[c.keyFor(g.template, mapping, idx)] += n
			}
		}
	}
	return out, nil
}

type countGroup struct {
	template []byte
	shots    float64
	vec      []float64
}

func (g *countGroup) probs() []float64 {
	p := make([]float64, len(g.vec))
	for i, v := range g.vec {
		p[i] = v / g.shots
	}
	return p
}

func (c *Correcter) prepare(counts map[string]uint32, mapping map[uint32]uint32,
	method string) (map[string]*countGroup, float64, error) {
	if _, err := ParseMethod(method); err != nil {
		return nil, 0, err
	}
	if method == MethodInvert && c.invErr != nil {
		return nil, 0, c.invErr
	}
	if len(counts) == 0 {
		return nil, 0, errors.New("no counts to correct")
	}
	if err := c.validateMapping(mapping); err != nil {
		return nil, 0, err
	}

	keyLen := -1
	groups := make(map[string]*countGroup)
	total := 0.0
	mask := []byte(nil)
	for key, count := range counts {
		if keyLen == -1 {
			keyLen = len(key)
		} else if len(key) != keyLen {
			return nil, 0, errors.Errorf("bitstring %q has length %d, expected %d", key, len(key), keyLen)
		}
		idx, err := c.jointIndexOf(key, mapping)
		if err != nil {
			return nil, 0, err
		}
		mask = append(mask[:0], key...)
		for _, q := range c.set.Layout.Qubits() {
			mask[mapping[q]] = '_'
		}
		g, ok := groups[string(mask)]
		if !ok {
			g = &countGroup{
				template: append([]byte(nil), key...),
				vec:      make([]float64, 1<<c.bits),
			}
			groups[string(mask)] = g
		}
		g.vec[idx] += float64(count)
		g.shots += float64(count)
		total += float64(count)
	}
	if total == 0 {
		return nil, 0, errors.New("counts hold zero shots")
	}
	return groups, total, nil
}

func (c *Correcter) validateMapping(mapping map[uint32]uint32) error {
	positions := make(map[uint32]uint32)
	for _, q := range c.set.Layout.Qubits() {
		pos, ok := mapping[q]
		if !ok {
			return errors.Errorf("qubit %d has no position in the measured bitstring", q)
		}
		if other, dup := positions[pos]; dup {
			return errors.Errorf("qubits %d and %d map to the same bitstring position %d", other, q, pos)
		}
		positions[pos] = q
	}
	return nil
}

// jointIndexOf packs the observed subset states into one index, with the
// first subset in the most significant bits.
func (c *Correcter) jointIndexOf(key string, mapping map[uint32]uint32) (int, error) {
	idx := 0
	for _, subset := range c.set.Layout.Subsets() {
		s, err := subsetIndexOf(key, subset, mapping)
		if err != nil {
			return 0, err
		}
		idx = idx<<len(subset) | s
	}
	return idx, nil
}

// keyFor writes the layout bits of a joint index back into a full bitstring.
func (c *Correcter) keyFor(template []byte, mapping map[uint32]uint32, idx int) string {
	out := append([]byte(nil), template...)
	for si, subset := range c.set.Layout.Subsets() {
		size := len(subset)
		field := idx >> c.lowBits[si] & (1<<size - 1)
		for r, q := range subset {
			if field>>(size-1-r)&1 == 1 {
				out[mapping[q]] = '1'
			} else {
				out[mapping[q]] = '0'
			}
		}
	}
	return string(out)
}

func (c *Correcter) correctVector(y []float64, method string, opts Options) []float64 {
	switch method {
	case MethodInvert:
		return c.applyInverse(y)
	case MethodBayesian:
		return c.unfold(y, opts)
	default:
		return c.leastSquares(y, opts)
	}
}

func (c *Correcter) applyConfusion(v []float64) []float64 {
	for i, m := range c.set.Matrices {
		v = c.applyField(v, m.M, i, false)
	}
	return v
}

func (c *Correcter) applyConfusionT(v []float64) []float64 {
	for i, m := range c.set.Matrices {
		v = c.applyField(v, m.M, i, true)
	}
	return v
}

func (c *Correcter) applyInverse(v []float64) []float64 {
	for i, inv := range c.invs {
		v = c.applyField(v, inv, i, false)
	}
	return v
}

// applyField multiplies one subset's matrix into the joint vector along the
// subset's bit field, leaving all other bits untouched.
func (c *Correcter) applyField(v []float64, m *mat.Dense, subset int, transpose bool) []float64 {
	dim := 1 << len(c.set.Layout.Subsets()[subset])
	stride := 1 << c.lowBits[subset]
	block := dim * stride
	out := make([]float64, len(v))
	x := make([]float64, dim)
	for base := 0; base < len(v); base += block {
		for low := 0; low < stride; low++ {
			for f := 0; f < dim; f++ {
				x[f] = v[base+f*stride+low]
			}
			for row := 0; row < dim; row++ {
				sum := 0.0
				for col := 0; col < dim; col++ {
					if transpose {
						sum += m.At(col, row) * x[col]
					} else {
						sum += m.At(row, col) * x[col]
					}
				}
				out[base+row*stride+low] = sum
			}
		}
	}
	return out
}

// leastSquares minimizes ||K*p - y||^2 over the probability simplex by
// projected gradient descent. The step size 1/prod(maxRowSum) bounds the
// squared spectral norm of K because the column sums of a finalized matrix
// are one.
func (c *Correcter) leastSquares(y []float64, opts Options) []float64 {
	lipschitz := 1.0
	for _, m := range c.set.Matrices {
		lipschitz *= m.maxRowSum()
	}
	step := 1.0 / lipschitz

	p := projectSimplex(y)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		resid := c.applyConfusion(p)
		for i := range resid {
			resid[i] -= y[i]
		}
		grad := c.applyConfusionT(resid)
		next := make([]float64, len(p))
		for i := range next {
			next[i] = p[i] - step*grad[i]
		}
		next = projectSimplex(next)
		if maxAbsDiff(p, next) < opts.Tolerance {
			return next
		}
		p = next
	}
	return p
}

// unfold runs iterative Bayesian unfolding from the uniform distribution.
// Each sweep preserves the total probability because the columns of the
// confusion matrices sum to one.
func (c *Correcter) unfold(y []float64, opts Options) []float64 {
	n := len(y)
	p := make([]float64, n)
	for i := range p {
		p[i] = 1.0 / float64(n)
	}
	ratio := make([]float64, n)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		forward := c.applyConfusion(p)
		for i := range ratio {
			if forward[i] > 0 {
				ratio[i] = y[i] / forward[i]
			} else {
				ratio[i] = 0
			}
		}
		update := c.applyConfusionT(ratio)
		next := make([]float64, n)
		for i := range next {
			next[i] = p[i] * update[i]
		}
		if maxAbsDiff(p, next) < opts.Tolerance {
			return next
		}
		p = next
	}
	return p
}

// projectSimplex is the euclidean projection onto the probability simplex.
func projectSimplex(v []float64) []float64 {
	u := append([]float64(nil), v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))
	cumulative := 0.0
	theta := 0.0
	for i, ui := range u {
		cumulative += ui
		t := (cumulative - 1) / float64(i+1)
		if ui > t {
			theta = t
		}
	}
	w := make([]float64, len(v))
	for i, vi := range v {
		if d := vi - theta; d > 0 {
			w[i] = d
		}
	}
	return w
}

func maxAbsDiff(a, b []float64) float64 {
	max := 0.0
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}

// roundToTotal rounds the scaled values to integers whose sum is exactly the
// shot total, assigning leftover shots by largest fractional part. Values
// within float noise of an integer snap to it first, so an identity
// correction reproduces the raw counts exactly.
func roundToTotal(v []float64, total uint64) []uint32 {
	out := make([]uint32, len(v))
	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, 0, len(v))
	var sum uint64
	for i, x := range v {
		whole := math.Floor(x)
		frac := x - whole
		if r := math.Round(x); math.Abs(x-r) < 1e-9 {
			whole = r
			frac = 0
		}
		out[i] = uint32(whole)
		sum += uint64(whole)
		rems = append(rems, remainder{i, frac})
	}
	sort.Slice(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for i := 0; sum < total && i < len(rems); i++ {
		if rems[i].frac == 0 {
			break
		}
		out[rems[i].idx]++
		sum++
	}
	return out
}
