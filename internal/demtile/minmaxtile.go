package demtile

import "math"

// levelDims describes one level of the min/max pyramid: its grid shape and
// the offset of its first entry in the packed minTree/maxTree arrays.
type levelDims struct {
	rows, cols int
	start      int
}

// MinMaxTile augments a Tile with a min/max elevation pyramid (spec.md §3,
// §4.3): level 0 is the leaves, each parent level halves whichever
// dimension is currently longer (ties broken by halving rows), down to a
// single root cell. get_merge_level walks both leaves' paths in lockstep to
// find the smallest enclosing cell — the primitive the Duvenhage
// intersector (C7) uses to prune whole sub-tiles in O(log n).
type MinMaxTile struct {
	Tile

	levels      []levelDims
	rowHalvedAt []bool // rowHalvedAt[l]: transition level l -> l+1 halves rows (else cols)
	minTree     []float64
	maxTree     []float64
}

// NewMinMaxTile returns a MinMaxTile ready for SetGeometry/SetElevation.
func NewMinMaxTile() *MinMaxTile {
	t := &MinMaxTile{}
	t.Tile.onUpdateCompleted = t.buildPyramid
	return t
}

func ceilDiv2(n int) int { return (n + 1) / 2 }

// planLevels computes the dimensions, halving sequence and packed-array
// start offsets for every pyramid level, from the leaves up to the 1x1 root.
func planLevels(rows, cols int) ([]levelDims, []bool) {
	levels := []levelDims{{rows: rows, cols: cols}}
	var rowHalvedAt []bool

	r, c := rows, cols
	for r > 1 || c > 1 {
		halveRows := r >= c
		if halveRows {
			r = ceilDiv2(r)
		} else {
			c = ceilDiv2(c)
		}
		rowHalvedAt = append(rowHalvedAt, halveRows)
		levels = append(levels, levelDims{rows: r, cols: c})
	}

	offset := 0
	for i := range levels {
		levels[i].start = offset
		offset += levels[i].rows * levels[i].cols
	}
	return levels, rowHalvedAt
}

// buildPyramid is the Tile publication-barrier hook: it runs once
// TileUpdateCompleted has computed the leaf-level min/max and the raster is
// fully populated.
func (m *MinMaxTile) buildPyramid() {
	m.levels, m.rowHalvedAt = planLevels(m.Rows(), m.Cols())

	total := 0
	for _, l := range m.levels {
		total += l.rows * l.cols
	}
	m.minTree = make([]float64, total)
	m.maxTree = make([]float64, total)

	leaf := m.levels[0]
	for i := 0; i < leaf.rows; i++ {
		for j := 0; j < leaf.cols; j++ {
			e := m.Elevation(i, j)
			m.minTree[leaf.start+i*leaf.cols+j] = e
			m.maxTree[leaf.start+i*leaf.cols+j] = e
		}
	}

	for l := 1; l < len(m.levels); l++ {
		cur := m.levels[l]
		prev := m.levels[l-1]
		halvedRows := m.rowHalvedAt[l-1]

		curMin := make([]float64, cur.rows*cur.cols)
		curMax := make([]float64, cur.rows*cur.cols)
		for i := range curMin {
			curMin[i] = math.Inf(1)
			curMax[i] = math.Inf(-1)
		}

		for i := 0; i < prev.rows; i++ {
			pi := i
			if halvedRows {
				pi = i / 2
			}
			for j := 0; j < prev.cols; j++ {
				pj := j
				if !halvedRows {
					pj = j / 2
				}
				idx := pi*cur.cols + pj
				v := m.minTree[prev.start+i*prev.cols+j]
				if v < curMin[idx] {
					curMin[idx] = v
				}
				v = m.maxTree[prev.start+i*prev.cols+j]
				if v > curMax[idx] {
					curMax[idx] = v
				}
			}
		}

		copy(m.minTree[cur.start:cur.start+len(curMin)], curMin)
		copy(m.maxTree[cur.start:cur.start+len(curMax)], curMax)
	}
}

// Levels returns the number of pyramid levels (1 = leaves only, i.e. a
// single-cell tile).
func (m *MinMaxTile) Levels() int { return len(m.levels) }

// cellAt maps a leaf index (r, c) to its containing cell at the given level.
func (m *MinMaxTile) cellAt(r, c, level int) (int, int) {
	for l := 0; l < level; l++ {
		if m.rowHalvedAt[l] {
			r /= 2
		} else {
			c /= 2
		}
	}
	return r, c
}

// GetMergeLevel returns the smallest level whose single cell contains both
// leaves (r1,c1) and (r2,c2); -1 if they are the same leaf.
func (m *MinMaxTile) GetMergeLevel(r1, c1, r2, c2 int) int {
	if r1 == r2 && c1 == c2 {
		return -1
	}
	a1, b1, a2, b2 := r1, c1, r2, c2
	for level := 1; level < len(m.levels); level++ {
		halvedRows := m.rowHalvedAt[level-1]
		if halvedRows {
			a1, a2 = a1/2, a2/2
		} else {
			b1, b2 = b1/2, b2/2
		}
		if a1 == a2 && b1 == b2 {
			return level
		}
	}
	return len(m.levels) - 1
}

// GetMinElevation / GetMaxElevation return the min/max over the sub-tile
// rooted at the cell containing leaf (r, c) at the given level.
func (m *MinMaxTile) GetMinElevation(r, c, level int) float64 {
	cr, cc := m.cellAt(r, c, level)
	l := m.levels[level]
	return m.minTree[l.start+cr*l.cols+cc]
}

func (m *MinMaxTile) GetMaxElevation(r, c, level int) float64 {
	cr, cc := m.cellAt(r, c, level)
	l := m.levels[level]
	return m.maxTree[l.start+cr*l.cols+cc]
}
