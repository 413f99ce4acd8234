package timeline

import "sort"

// MergeCalls inserts one row per call minute and returns the number of rows
// inserted. Calls are merged in start order whatever order they arrive in;
// calls starting in the same minute keep their relative order.
func MergeCalls(ix *Index, labelCol int, calls []Call) int {
	sorted := append([]Call(nil), calls...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	inserted := 0
	for i := range sorted {
		for _, ev := range sorted[i].SubEvents() {
			ix.Insert(ev.Key, labelCol, ev.Label)
			inserted++
		}
	}
	return inserted
}
