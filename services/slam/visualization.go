package slam

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/smilesmith9879/G9/utils"
)

// DefaultVisualizationSize is the side of the map image served to the telemetry page.
const DefaultVisualizationSize = 320

const headingLength = 5

var (
	occupiedColor   = color.NRGBA{0, 0, 0, 255}
	freeColor       = color.NRGBA{255, 255, 255, 255}
	unknownColor    = color.NRGBA{128, 128, 128, 255}
	trajectoryColor = color.NRGBA{0, 0, 255, 255}
	robotColor      = color.NRGBA{255, 0, 0, 255}
	headingColor    = color.NRGBA{0, 255, 0, 255}
)

// MapVisualization renders the current map at width by height. The state is copied out first so
// rendering never holds the lock.
func (p *Processor) MapVisualization(width, height int) (image.Image, error) {
	data := p.Data()
	return RenderMap(&data, width, height)
}

// RenderMap draws the occupancy grid one pixel per cell, then the trajectory as a polyline through
// the visited cells, the heading and the robot cell, and finally resamples the picture to width by
// height.
func RenderMap(data *Data, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid visualization size %dx%d", width, height)
	}
	grid := data.OccupancyGrid
	if grid == nil || grid.Size == 0 {
		return nil, errors.New("no occupancy grid to render")
	}

	cells := image.NewNRGBA(image.Rect(0, 0, grid.Size, grid.Size))
	for y := 0; y < grid.Size; y++ {
		for x := 0; x < grid.Size; x++ {
			cells.SetNRGBA(x, y, cellColor(grid.At(x, y)))
		}
	}
	dc := gg.NewContextForImage(cells)
	dc.SetLineWidth(1)

	visited := make([]image.Point, 0, len(data.Trajectory))
	for _, pos := range data.Trajectory {
		if x, y := grid.CellOf(pos); grid.InBounds(x, y) {
			visited = append(visited, image.Point{x, y})
		}
	}
	if len(visited) > 1 {
		dc.SetColor(trajectoryColor)
		dc.MoveTo(pixelCenter(visited[0]))
		for _, pt := range visited[1:] {
			dc.LineTo(pixelCenter(pt))
		}
		dc.Stroke()
	}

	if rx, ry := grid.CellOf(data.Position); grid.InBounds(rx, ry) {
		robot := image.Point{rx, ry}
		yaw := utils.DegToRad(data.Orientation.Yaw)
		tip := image.Point{
			X: int(float64(rx) + headingLength*math.Cos(yaw)),
			Y: int(float64(ry) + headingLength*math.Sin(yaw)),
		}
		dc.SetColor(headingColor)
		x0, y0 := pixelCenter(robot)
		x1, y1 := pixelCenter(tip)
		dc.DrawLine(x0, y0, x1, y1)
		dc.Stroke()

		dc.SetColor(robotColor)
		dc.DrawCircle(x0, y0, 2)
		dc.Fill()
	}

	img := dc.Image()
	if grid.Size == width && grid.Size == height {
		return img, nil
	}
	return imaging.Resize(img, width, height, imaging.Linear), nil
}

func cellColor(v int8) color.NRGBA {
	switch StateOf(v) {
	case Occupied:
		return occupiedColor
	case Free:
		return freeColor
	default:
		return unknownColor
	}
}

func pixelCenter(pt image.Point) (float64, float64) {
	return float64(pt.X) + 0.5, float64(pt.Y) + 0.5
}
