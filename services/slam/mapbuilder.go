package slam

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/smilesmith9879/G9/components/movementsensor"
	"github.com/smilesmith9879/G9/vision/keypoints"
	"github.com/smilesmith9879/G9/vision/odometry"
)

// Orientation is the attitude of the robot in degrees. Roll and pitch come from the inertial
// source, yaw from the camera.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// cycleUpdate is everything one cycle writes. It is computed without holding the state lock and
// applied in one go.
type cycleUpdate struct {
	// motion is nil when the frame could not be registered.
	motion *odometry.PlanarMotion
	// matched are the current frame keypoints of the kept matches.
	matched   keypoints.KeyPoints
	frameSize image.Point
	// tilt is nil without an inertial source.
	tilt *movementsensor.Orientation
}

// mapState is the mutable state of the processor. It is guarded by Processor.mu.
type mapState struct {
	odometer    *odometry.Odometer
	orientation Orientation
	mapPoints   []r3.Vector
	trajectory  []r3.Vector
	grid        *OccupancyGrid
	cycles      int

	pixelScale    float64
	maxMapPoints  int
	maxTrajectory int
}

func newMapState(conf *Config) *mapState {
	return &mapState{
		odometer:      odometry.NewOdometer(conf.MotionScale),
		mapPoints:     make([]r3.Vector, 0, conf.MaxMapPoints),
		trajectory:    make([]r3.Vector, 0, conf.MaxTrajectory),
		grid:          NewOccupancyGrid(conf.GridSize, conf.GridResolution),
		pixelScale:    conf.PixelScale,
		maxMapPoints:  conf.MaxMapPoints,
		maxTrajectory: conf.MaxTrajectory,
	}
}

// apply integrates the motion, adds the landmarks and marks the grid when the frame was registered,
// then overlays the tilt and records the position in the trajectory.
func (s *mapState) apply(u cycleUpdate) {
	if u.motion != nil {
		s.odometer.Apply(u.motion)
		s.orientation.Yaw = s.odometer.Yaw
		s.mapPoints = appendFIFO(s.mapPoints, s.maxMapPoints,
			projectKeypoints(u.matched, u.frameSize, s.odometer.Position, s.pixelScale)...)
		s.grid.MarkPosition(s.odometer.Position)
	}
	if u.tilt != nil {
		s.orientation.Roll = u.tilt.Roll
		s.orientation.Pitch = u.tilt.Pitch
	}
	s.trajectory = appendFIFO(s.trajectory, s.maxTrajectory, s.odometer.Position)
	s.cycles++
}

// projectKeypoints places keypoints on the ground plane around pos, scale world units per pixel away
// from the frame center.
func projectKeypoints(kps keypoints.KeyPoints, frameSize image.Point, pos r3.Vector, scale float64) []r3.Vector {
	cx, cy := float64(frameSize.X)/2, float64(frameSize.Y)/2
	pts := make([]r3.Vector, len(kps))
	for i, kp := range kps {
		pts[i] = r3.Vector{
			X: pos.X + (float64(kp.X)-cx)*scale,
			Y: pos.Y + (float64(kp.Y)-cy)*scale,
		}
	}
	return pts
}

// appendFIFO appends pts and evicts the oldest entries beyond limit, reusing the backing array.
func appendFIFO(buf []r3.Vector, limit int, pts ...r3.Vector) []r3.Vector {
	buf = append(buf, pts...)
	if over := len(buf) - limit; over > 0 {
		n := copy(buf, buf[over:])
		buf = buf[:n]
	}
	return buf
}
