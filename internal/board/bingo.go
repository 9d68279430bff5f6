package board

// Lines returns the index sets of every winning line for a size×size
// grid: size rows and size columns, plus the two diagonals on the
// classic 5x5 card. For a 5x5 grid this is the usual table of 12.
func Lines(size int) [][]int {
	if size <= 0 {
		return nil
	}
	lines := make([][]int, 0, 2*size+2)
	for r := 0; r < size; r++ {
		row := make([]int, size)
		for c := 0; c < size; c++ {
			row[c] = r*size + c
		}
		lines = append(lines, row)
	}
	for c := 0; c < size; c++ {
		col := make([]int, size)
		for r := 0; r < size; r++ {
			col[r] = r*size + c
		}
		lines = append(lines, col)
	}
	if size == DefaultGridSize {
		main := make([]int, size)
		anti := make([]int, size)
		for i := 0; i < size; i++ {
			main[i] = i*size + i
			anti[i] = i*size + (size - 1 - i)
		}
		lines = append(lines, main, anti)
	}
	return lines
}

// CompleteLines counts the lines whose tiles are all completed. The
// free-space tile counts like any other completed tile. Lines that
// reach past the end of a short tile list are skipped.
func CompleteLines(items []Tile, size int) int {
	count := 0
	for _, line := range Lines(size) {
		done := true
		for _, idx := range line {
			if idx >= len(items) || !items[idx].IsCompleted {
				done = false
				break
			}
		}
		if done {
			count++
		}
	}
	return count
}

// CenterIndex is the free-space position for odd grid sizes. Even
// sizes have no defined center and return -1.
func CenterIndex(size int) int {
	if size <= 0 || size%2 == 0 {
		return -1
	}
	return (size*size - 1) / 2
}
