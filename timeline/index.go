package timeline

import (
	"errors"
	"fmt"
	"sort"
)

var ErrNoHeader = errors.New("sheet has no header row")

// Index maps each (date, minute) to the sheet rows carrying it. It holds row
// identities rather than row numbers, so it never goes stale when rows are
// inserted. An Index belongs to one sheet and one merge.
type Index struct {
	sheet *Sheet
	// keys is kept sorted and unique.
	keys []Key
	rows map[Key][]*Row
	// dates holds the effective date of every row that has one, including
	// rows that carry it forward from a row above.
	dates map[*Row]string
}

// BuildIndex scans the sheet once. A blank date cell inherits the nearest date
// above it; rows with a minute but no resolvable date are left out.
func BuildIndex(s *Sheet) (*Index, error) {
	if s == nil || len(s.Header) == 0 {
		name := ""
		if s != nil {
			name = s.Name
		}
		return nil, fmt.Errorf("sheet %q: %w", name, ErrNoHeader)
	}

	ix := &Index{
		sheet: s,
		rows:  make(map[Key][]*Row),
		dates: make(map[*Row]string),
	}

	current := ""
	for _, r := range s.Rows {
		if cell := r.Cell(DateCol); cell != "" {
			current = CanonicalDate(cell)
		}
		if current == "" {
			continue
		}
		ix.dates[r] = current

		clock := CanonicalClock(r.Cell(TimeCol))
		if clock == "" {
			continue
		}
		k := Key{Date: current, Time: clock}
		if _, ok := ix.rows[k]; !ok {
			ix.keys = append(ix.keys, k)
		}
		ix.rows[k] = append(ix.rows[k], r)
	}

	sort.Slice(ix.keys, func(i, j int) bool { return ix.keys[i].Less(ix.keys[j]) })
	return ix, nil
}

func (ix *Index) Sheet() *Sheet { return ix.sheet }

// Keys returns the indexed keys in chronological order.
func (ix *Index) Keys() []Key {
	return append([]Key(nil), ix.keys...)
}

// Rows returns the current physical row numbers for k in ascending order.
func (ix *Index) Rows(k Key) []int {
	rows := ix.rows[k]
	if len(rows) == 0 {
		return nil
	}
	pos := ix.positions()
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, RowNumber(pos[r]))
	}
	sort.Ints(out)
	return out
}

// Snapshot returns the whole key to row numbers mapping.
func (ix *Index) Snapshot() map[Key][]int {
	pos := ix.positions()
	out := make(map[Key][]int, len(ix.rows))
	for k, rows := range ix.rows {
		nums := make([]int, 0, len(rows))
		for _, r := range rows {
			nums = append(nums, RowNumber(pos[r]))
		}
		sort.Ints(nums)
		out[k] = nums
	}
	return out
}

func (ix *Index) positions() map[*Row]int {
	pos := make(map[*Row]int, len(ix.sheet.Rows))
	for i, r := range ix.sheet.Rows {
		pos[r] = i
	}
	return pos
}

// search returns the position of k in keys and whether it is present.
func (ix *Index) search(k Key) (int, bool) {
	i := sort.Search(len(ix.keys), func(i int) bool { return !ix.keys[i].Less(k) })
	return i, i < len(ix.keys) && ix.keys[i] == k
}
