// Package vecmath implements the handful of multiset/vector operations that
// scorers and similarity utilities build on: dot product, L2 norm, multiset
// union/intersection magnitude, cosine, and Jaccard.
package vecmath

import "math"

// TermVec maps a term to a non-negative weight (frequency, tf weight, ...).
type TermVec map[string]float64

// Dot returns the dot product of u and v, summed over the keys they share.
func Dot(u, v TermVec) float64 {
	// iterate the smaller map to keep this cheap for skewed query/doc sizes
	if len(v) < len(u) {
		u, v = v, u
	}
	var sum float64
	for term, uw := range u {
		if vw, ok := v[term]; ok {
			sum += uw * vw
		}
	}
	return sum
}

// L2Norm returns the Euclidean (L2) norm of v.
func L2Norm(v TermVec) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// MagUnion returns the magnitude of the multiset union of A and B: the sum
// of all weights in both vectors.
func MagUnion(a, b TermVec) float64 {
	var sum float64
	for _, w := range a {
		sum += w
	}
	for _, w := range b {
		sum += w
	}
	return sum
}

// MagIntersect returns the magnitude of the multiset intersection of A and
// B: the sum, over shared terms, of the smaller of the two weights.
func MagIntersect(a, b TermVec) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, aw := range a {
		if bw, ok := b[term]; ok {
			if aw < bw {
				sum += aw
			} else {
				sum += bw
			}
		}
	}
	return sum
}

// Cosine returns the cosine similarity of u and v. Behavior is undefined
// (NaN/Inf) if either vector has zero norm; callers must avoid that case.
func Cosine(u, v TermVec) float64 {
	return Dot(u, v) / (L2Norm(u) * L2Norm(v))
}

// Jaccard returns the (generalized, multiset) Jaccard similarity of A and B.
// Behavior is undefined if MagUnion(A, B) is zero.
func Jaccard(a, b TermVec) float64 {
	return MagIntersect(a, b) / MagUnion(a, b)
}
