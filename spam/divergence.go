package spam

import "math"

// DistributionFromCounts normalizes counts into a probability distribution.
func DistributionFromCounts(counts map[string]uint32) map[string]float64 {
	total := 0.0
	for _, c := range counts {
		total += float64(c)
	}
	dist := make(map[string]float64, len(counts))
	if total == 0 {
		return dist
	}
	for key, c := range counts {
		dist[key] = float64(c) / total
	}
	return dist
}

// JSDivergence is the Jensen-Shannon divergence between two distributions in
// bits. Negative entries, possible after a direct inverse correction, are
// treated as zero mass. The result is within [0, 1]; identical distributions
// give 0.
func JSDivergence(p, q map[string]float64) float64 {
	keys := make(map[string]struct{}, len(p)+len(q))
	for k := range p {
		keys[k] = struct{}{}
	}
	for k := range q {
		keys[k] = struct{}{}
	}
	div := 0.0
	for k := range keys {
		pk := math.Max(p[k], 0)
		qk := math.Max(q[k], 0)
		mk := (pk + qk) / 2
		div += klTerm(pk, mk)/2 + klTerm(qk, mk)/2
	}
	if div < 0 {
		return 0
	}
	return div
}

// klTerm is one summand of the Kullback-Leibler divergence, with the
// convention 0*log(0) = 0.
func klTerm(p, m float64) float64 {
	if p == 0 || m == 0 {
		return 0
	}
	return p * math.Log2(p/m)
}
