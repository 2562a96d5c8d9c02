package slam

import (
	"github.com/golang/geo/r3"
)

// Data is a consistent copy of the processor state. Everything in it belongs to the caller.
type Data struct {
	Position      r3.Vector      `json:"position"`
	Orientation   Orientation    `json:"orientation"`
	Trajectory    []r3.Vector    `json:"trajectory"`
	MapSize       int            `json:"map_size"`
	OccupancyGrid *OccupancyGrid `json:"occupancy_grid"`
	// Cycles is the number of cycles applied to the state, bootstraps excluded.
	Cycles int `json:"cycles"`
}

// Data returns a snapshot of the whole state.
func (p *Processor) Data() Data {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.snapshot()
}

// Position returns the current position estimate.
func (p *Processor) Position() r3.Vector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.odometer.Position
}

// Orientation returns the current orientation estimate.
func (p *Processor) Orientation() Orientation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.orientation
}

// MapPoints returns a copy of the landmarks, oldest first.
func (p *Processor) MapPoints() []r3.Vector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyVectors(p.state.mapPoints)
}

func (s *mapState) snapshot() Data {
	return Data{
		Position:      s.odometer.Position,
		Orientation:   s.orientation,
		Trajectory:    copyVectors(s.trajectory),
		MapSize:       len(s.mapPoints),
		OccupancyGrid: s.grid.Clone(),
		Cycles:        s.cycles,
	}
}

func copyVectors(in []r3.Vector) []r3.Vector {
	out := make([]r3.Vector, len(in))
	copy(out, in)
	return out
}
