package timeline

import "slices"

// Insert places a new row for k and returns its physical row number.
//
// A row for an existing key goes directly below the bottom-most row of that
// key, so events in the same minute stay grouped in arrival order. A new key
// goes directly below the last row of the key preceding it; a key that sorts
// first goes above every dated row.
//
// The date cell is written only when the row above belongs to another day.
// The row below is adjusted so every row keeps the effective date it had.
func (ix *Index) Insert(k Key, labelCol int, label string) int {
	return ix.InsertRow(k, map[int]string{labelCol: label})
}

// InsertRow places a row for k the same way as Insert, filling one cell per
// entry of labels.
func (ix *Index) InsertRow(k Key, labels map[int]string) int {
	s := ix.sheet

	var pos int
	if rows := ix.rows[k]; len(rows) > 0 {
		pos = s.position(rows[len(rows)-1]) + 1
	} else {
		i, _ := ix.search(k)
		if i > 0 {
			prev := ix.rows[ix.keys[i-1]]
			pos = s.position(prev[len(prev)-1]) + 1
		} else {
			pos = ix.leadingUndated()
		}
		ix.keys = slices.Insert(ix.keys, i, k)
	}

	r := NewRow(s.width())
	if pos == 0 || ix.dates[s.Rows[pos-1]] != k.Date {
		r.Set(DateCol, k.Date)
	}
	r.Set(TimeCol, k.Time)
	for col, label := range labels {
		r.Set(col, label)
	}

	if pos < len(s.Rows) {
		next := s.Rows[pos]
		nextDate := ix.dates[next]
		switch {
		case next.Cell(DateCol) == "" && nextDate != "" && nextDate != k.Date:
			next.Set(DateCol, nextDate)
		case next.Cell(DateCol) != "" && nextDate == k.Date:
			next.Set(DateCol, "")
		}
	}

	s.insertAt(pos, r)
	ix.rows[k] = append(ix.rows[k], r)
	ix.dates[r] = k.Date
	return RowNumber(pos)
}

// leadingUndated counts the rows at the top of the sheet that precede the
// first date label. A dated row inserted above them would change their date.
func (ix *Index) leadingUndated() int {
	for i, r := range ix.sheet.Rows {
		if _, ok := ix.dates[r]; ok {
			return i
		}
	}
	return len(ix.sheet.Rows)
}
