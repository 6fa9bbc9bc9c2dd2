package nullmodel

// isotonic returns the least squares non-decreasing fit of y
// (pool adjacent violators).
func isotonic(y []float64) []float64 {
	type block struct {
		sum   float64
		count int
	}
	blocks := make([]block, 0, len(y))
	for _, v := range y {
		blocks = append(blocks, block{sum: v, count: 1})
		for len(blocks) > 1 {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			if prev.sum/float64(prev.count) <= last.sum/float64(last.count) {
				break
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, block{sum: prev.sum + last.sum, count: prev.count + last.count})
		}
	}
	fit := make([]float64, 0, len(y))
	for _, b := range blocks {
		mean := b.sum / float64(b.count)
		for i := 0; i < b.count; i++ {
			fit = append(fit, mean)
		}
	}
	return fit
}
