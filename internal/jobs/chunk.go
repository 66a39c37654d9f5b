package jobs

// ChunkCount returns how many workers a batch of size items gets: half the
// cpus, clamped to [minWorkers, maxWorkers], never more than the items.
func ChunkCount(items, cpus, minWorkers, maxWorkers int) int {
	if items <= 0 {
		return 0
	}
	if minWorkers < 1 {
		minWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}

	n := min(maxWorkers, max(minWorkers, cpus/2))
	return min(n, items)
}

// Partition splits items into n contiguous chunks whose sizes differ by at most one.
func Partition[T any](items []T, n int) [][]T {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	if n > len(items) {
		n = len(items)
	}

	chunks := make([][]T, 0, n)
	size, rest := len(items)/n, len(items)%n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rest {
			end++
		}
		chunk := make([]T, end-start)
		copy(chunk, items[start:end])
		chunks = append(chunks, chunk)
		start = end
	}
	return chunks
}
