package slam

import (
	"github.com/golang/geo/r3"
)

// Cell values of the occupancy grid. Values at or above OccupiedThreshold are occupied, 0 is free and
// anything in between is unknown.
const (
	CellFree          int8 = 0
	CellUnknown       int8 = 1
	OccupiedThreshold int8 = 50
	CellOccupied      int8 = 100

	freeRadius = 2
)

// CellState is the interpretation of a cell value.
type CellState int

// The three states of a cell.
const (
	Unknown CellState = iota
	Free
	Occupied
)

// StateOf interprets a cell value.
func StateOf(v int8) CellState {
	switch {
	case v >= OccupiedThreshold:
		return Occupied
	case v == CellFree:
		return Free
	default:
		return Unknown
	}
}

// OccupancyGrid is a square grid centered on the world origin. Cells are stored row major, so the
// cell (x, y) is Cells[y*Size+x].
type OccupancyGrid struct {
	Size       int     `json:"size"`
	Resolution float64 `json:"resolution"`
	Cells      []int8  `json:"cells"`
}

// NewOccupancyGrid returns a size by size grid of unknown cells, each resolution world units wide.
func NewOccupancyGrid(size int, resolution float64) *OccupancyGrid {
	cells := make([]int8, size*size)
	for i := range cells {
		cells[i] = CellUnknown
	}
	return &OccupancyGrid{Size: size, Resolution: resolution, Cells: cells}
}

// Center is the cell of the world origin.
func (g *OccupancyGrid) Center() (int, int) {
	return g.Size / 2, g.Size / 2
}

// CellOf converts a world position into grid coordinates, truncating toward zero. The result may
// be out of bounds.
func (g *OccupancyGrid) CellOf(pos r3.Vector) (int, int) {
	cx, cy := g.Center()
	return int(float64(cx) + pos.X/g.Resolution), int(float64(cy) + pos.Y/g.Resolution)
}

// InBounds reports whether (x, y) is a cell of the grid.
func (g *OccupancyGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Size && y >= 0 && y < g.Size
}

// At returns the value of the cell (x, y), which must be in bounds.
func (g *OccupancyGrid) At(x, y int) int8 {
	return g.Cells[y*g.Size+x]
}

func (g *OccupancyGrid) set(x, y int, v int8) {
	g.Cells[y*g.Size+x] = v
}

// MarkPosition marks the cell under pos occupied and the other cells of the 5x5 block around it free,
// unless they are already occupied. A position outside the grid changes nothing and returns false.
func (g *OccupancyGrid) MarkPosition(pos r3.Vector) bool {
	x, y := g.CellOf(pos)
	if !g.InBounds(x, y) {
		return false
	}
	g.set(x, y, CellOccupied)
	for dy := -freeRadius; dy <= freeRadius; dy++ {
		for dx := -freeRadius; dx <= freeRadius; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || !g.InBounds(nx, ny) {
				continue
			}
			if g.At(nx, ny) < OccupiedThreshold {
				g.set(nx, ny, CellFree)
			}
		}
	}
	return true
}

// Count returns how many cells are in the given state.
func (g *OccupancyGrid) Count(state CellState) int {
	n := 0
	for _, v := range g.Cells {
		if StateOf(v) == state {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the grid.
func (g *OccupancyGrid) Clone() *OccupancyGrid {
	cells := make([]int8, len(g.Cells))
	copy(cells, g.Cells)
	return &OccupancyGrid{Size: g.Size, Resolution: g.Resolution, Cells: cells}
}
