package vectorindex

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b, 0 when either is a zero vector.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK ranks candidate vectors against query and returns the indexes of the k
// best, highest score first. Ties keep insertion order.
func TopK(query []float32, vectors [][]float32, k int) ([]int, []float64) {
	if k <= 0 || len(vectors) == 0 {
		return nil, nil
	}
	scores := make([]float64, len(vectors))
	idxs := make([]int, len(vectors))
	for i, v := range vectors {
		scores[i] = Cosine(query, v)
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = scores[idxs[i]]
	}
	return idxs[:k], out
}
