package game

// SelectBestWorst returns the most and least accurate games among those
// carrying an accuracy.
//
// Comparisons are strict, so the first game seen wins a tie. With a single
// scored game, worst is nil. With none, both are nil.
func SelectBestWorst(games []*Record) (best, worst *Record) {
	var (
		bestAcc, worstAcc float64
		scored            int
	)
	for _, g := range games {
		if g == nil {
			continue
		}
		acc, ok := g.Accuracy()
		if !ok {
			continue
		}
		scored++
		if best == nil || acc > bestAcc {
			best, bestAcc = g, acc
		}
		if worst == nil || acc < worstAcc {
			worst, worstAcc = g, acc
		}
	}
	if scored < 2 {
		return best, nil
	}
	return best, worst
}
