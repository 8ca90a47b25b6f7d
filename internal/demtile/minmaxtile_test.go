package demtile

import (
	"math"
	"testing"
)

func fillRamp(t *MinMaxTile, rows, cols int) {
	if err := t.SetGeometry(0, 0, 1, 1, rows, cols); err != nil {
		panic(err)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			_ = t.SetElevation(i, j, float64(i*cols+j))
		}
	}
	t.TileUpdateCompleted()
}

func TestMinMaxTile_PyramidBuildsOnPublication(t *testing.T) {
	mm := NewMinMaxTile()
	if mm.Levels() != 0 {
		t.Fatalf("expected no levels before publication, got %d", mm.Levels())
	}
	fillRamp(mm, 4, 7)
	if mm.Levels() < 2 {
		t.Fatalf("expected more than one level for a 4x7 tile, got %d", mm.Levels())
	}
}

func ceilLog2(n int) int {
	steps := 0
	for v := 1; v < n; v *= 2 {
		steps++
	}
	return steps
}

func TestMinMaxTile_LevelCountFormula(t *testing.T) {
	tests := []struct{ rows, cols int }{
		{1, 1}, {2, 2}, {4, 4}, {4, 7}, {16, 16}, {9, 5},
	}
	for _, tt := range tests {
		mm := NewMinMaxTile()
		fillRamp(mm, tt.rows, tt.cols)
		want := ceilLog2(tt.rows) + ceilLog2(tt.cols) + 1
		if mm.Levels() != want {
			t.Errorf("%dx%d: Levels() = %d, want %d", tt.rows, tt.cols, mm.Levels(), want)
		}
	}
}

// Every level's min/max must bound every leaf beneath it: this is the
// invariant the Duvenhage intersector's pruning correctness depends on,
// independent of the exact pyramid shape.
func TestMinMaxTile_BoundsHoldAtEveryLevel(t *testing.T) {
	mm := NewMinMaxTile()
	rows, cols := 9, 5
	if err := mm.SetGeometry(0, 0, 1, 1, rows, cols); err != nil {
		t.Fatal(err)
	}
	elevations := make([][]float64, rows)
	val := 0.0
	for i := 0; i < rows; i++ {
		elevations[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			val = math.Mod(val*7+3, 113) - 50
			elevations[i][j] = val
			_ = mm.SetElevation(i, j, val)
		}
	}
	mm.TileUpdateCompleted()

	for level := 0; level < mm.Levels(); level++ {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				lo := mm.GetMinElevation(i, j, level)
				hi := mm.GetMaxElevation(i, j, level)
				e := elevations[i][j]
				if e < lo-1e-9 || e > hi+1e-9 {
					t.Fatalf("level %d: leaf (%d,%d)=%g outside bounds [%g,%g]", level, i, j, e, lo, hi)
				}
			}
		}
	}
}

func TestMinMaxTile_GetMergeLevel_SameLeaf(t *testing.T) {
	mm := NewMinMaxTile()
	fillRamp(mm, 4, 4)
	if got := mm.GetMergeLevel(1, 1, 1, 1); got != -1 {
		t.Errorf("GetMergeLevel for the same leaf = %d, want -1", got)
	}
}

func TestMinMaxTile_GetMergeLevel_RootForFarApartLeaves(t *testing.T) {
	mm := NewMinMaxTile()
	fillRamp(mm, 8, 8)
	level := mm.GetMergeLevel(0, 0, 7, 7)
	if level != mm.Levels()-1 {
		t.Errorf("GetMergeLevel for opposite corners = %d, want root level %d", level, mm.Levels()-1)
	}
}

func TestMinMaxTile_GetMergeLevel_AdjacentLeavesMergeEarly(t *testing.T) {
	mm := NewMinMaxTile()
	fillRamp(mm, 8, 8)
	adjacent := mm.GetMergeLevel(0, 0, 0, 1)
	far := mm.GetMergeLevel(0, 0, 7, 7)
	if adjacent > far {
		t.Errorf("adjacent leaves should merge at least as early as opposite corners: %d > %d", adjacent, far)
	}
}

func TestMinMaxTile_SingleCellTile(t *testing.T) {
	mm := NewMinMaxTile()
	fillRamp(mm, 1, 1)
	if mm.Levels() != 1 {
		t.Fatalf("a 1x1 tile should have exactly one pyramid level, got %d", mm.Levels())
	}
	if mm.GetMinElevation(0, 0, 0) != 0 || mm.GetMaxElevation(0, 0, 0) != 0 {
		t.Errorf("1x1 tile min/max should equal its single elevation")
	}
}
