package sequence

import "math/rand/v2"

// PermuteFunc returns a permutation of [0, n). It is the only source of
// randomness in the builders, so tests can swap in a seeded version.
type PermuteFunc func(n int) []int

// RandomPermutation draws a fresh permutation on every call.
func RandomPermutation(n int) []int {
	return rand.Perm(n)
}

// SeededPermutation returns a PermuteFunc that yields the same permutation
// for the same seed and length.
func SeededPermutation(seed uint64) PermuteFunc {
	return func(n int) []int {
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		return r.Perm(n)
	}
}

// Identity keeps the input order.
func Identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func permute[T any](items []T, fn PermuteFunc) ([]T, error) {
	p := fn(len(items))
	if !isPermutation(p, len(items)) {
		return nil, &InputError{Message: "permutation function returned an invalid permutation"}
	}
	out := make([]T, len(items))
	for i, j := range p {
		out[i] = items[j]
	}
	return out, nil
}

func isPermutation(p []int, n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range p {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
