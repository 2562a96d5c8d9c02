package odometry

import (
	"github.com/golang/geo/r3"
)

// Odometer dead reckons a planar pose from successive PlanarMotions. Position accumulates the
// scaled homography translation while yaw is replaced by the latest motion's yaw.
type Odometer struct {
	// Scale converts pixels of homography translation into world units.
	Scale    float64
	Position r3.Vector
	// Yaw is in degrees.
	Yaw float64
}

// NewOdometer returns an Odometer at the origin.
func NewOdometer(scale float64) *Odometer {
	return &Odometer{Scale: scale}
}

// Apply integrates the translation of m and overwrites the yaw with the yaw of m.
func (o *Odometer) Apply(m *PlanarMotion) {
	o.Position = Integrate(o.Position, m, o.Scale)
	o.Yaw = m.Yaw
}

// Integrate returns pos moved by the translation of m times scale. Z is left untouched.
func Integrate(pos r3.Vector, m *PlanarMotion, scale float64) r3.Vector {
	return r3.Vector{
		X: pos.X + m.Translation.X*scale,
		Y: pos.Y + m.Translation.Y*scale,
		Z: pos.Z,
	}
}
