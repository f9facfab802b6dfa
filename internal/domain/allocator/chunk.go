package allocator

// AllocateFixedChunk hands chunk units to each Add row in order until the pool
// runs out. The row that exhausts the pool receives whatever is left; every
// row after it, and every non-Add row, receives zero.
func AllocateFixedChunk(actions []Action, pool, chunk int) []int {
	alloc := make([]int, len(actions))
	remaining := max(0, pool)
	chunk = max(0, chunk)
	for i, a := range actions {
		if a != ActionAdd || remaining <= 0 {
			continue
		}
		if remaining >= chunk {
			alloc[i] = chunk
			remaining -= chunk
		} else {
			alloc[i] = remaining
			remaining = 0
		}
	}
	return alloc
}
