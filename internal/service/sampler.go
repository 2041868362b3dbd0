package service

// DefaultStopCount is the target number of sampled stops per trip.
const DefaultStopCount = 10

// SampleIndices selects evenly spaced indices into a path of n points.
// The stride is max(1, n/(target-1)); every stride-aligned index is kept and
// the final index n-1 is always included, even when it lands right after a
// stride-aligned one. Indices are ascending and unique. An empty path yields
// nil. A target below 2 has no stride and yields only the final index.
func SampleIndices(n, target int) []int {
	if n <= 0 {
		return nil
	}
	if target < 2 {
		return []int{n - 1}
	}

	stride := n / (target - 1)
	if stride < 1 {
		stride = 1
	}

	indices := make([]int, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		indices = append(indices, i)
	}
	if indices[len(indices)-1] != n-1 {
		indices = append(indices, n-1)
	}
	return indices
}
