// Package transform contains planar projective geometry: homographies, their direct linear
// estimation from point correspondences and a RANSAC wrapper that tolerates outliers.
package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateHomography is returned when no well-conditioned homography explains the points.
var ErrDegenerateHomography = errors.New("degenerate point configuration, cannot estimate homography")

// Homography is a 3x3 matrix used to transform a plane from the perspective of one 2D camera view to
// another. It is always normalized so that H[2][2] == 1.
type Homography struct {
	matrix *mat.Dense
}

// NewHomography creates a Homography from 9 row-major values.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	data := make([]float64, 9)
	copy(data, vals)
	return newNormalizedHomography(mat.NewDense(3, 3, data))
}

// IdentityHomography returns the homography that maps every point to itself.
func IdentityHomography() *Homography {
	return &Homography{eye(3)}
}

func newNormalizedHomography(m *mat.Dense) (*Homography, error) {
	h22 := m.At(2, 2)
	if math.Abs(h22) < 1e-12 {
		return nil, ErrDegenerateHomography
	}
	var out mat.Dense
	out.Scale(1/h22, m)
	for _, v := range out.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrDegenerateHomography
		}
	}
	return &Homography{&out}, nil
}

// At returns the value of the homography at the given row and column.
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Matrix returns a copy of the underlying 3x3 matrix.
func (h *Homography) Matrix() *mat.Dense {
	return mat.DenseCopyOf(h.matrix)
}

// Apply transforms a point with the homography.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// Inverse returns the inverse homography.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.matrix); err != nil {
		return nil, errors.Wrap(ErrDegenerateHomography, err.Error())
	}
	return newNormalizedHomography(&inv)
}

// Translation returns the last column's first two rows, the planar translation of the transform.
func (h *Homography) Translation() r2.Point {
	return r2.Point{X: h.At(0, 2), Y: h.At(1, 2)}
}

// Rotation returns atan2(H[1,0], H[0,0]) in radians, the rotation angle of the upper-left 2x2 block.
func (h *Homography) Rotation() float64 {
	return math.Atan2(h.At(1, 0), h.At(0, 0))
}

// ReprojectionError returns the distance between h(pt1) and pt2.
func (h *Homography) ReprojectionError(pt1, pt2 r2.Point) float64 {
	return h.Apply(pt1).Sub(pt2).Norm()
}

// EstimateHomographyDLT computes the homography mapping pts1 onto pts2 from at least 4
// correspondences with the normalized direct linear transform (Multiple View Geometry, Alg 4.2).
func EstimateHomographyDLT(pts1, pts2 []r2.Point) (*Homography, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("sets of points pts1 and pts2 must have the same number of elements")
	}
	if len(pts1) < 4 {
		return nil, errors.New("sets of points must have at least 4 elements")
	}
	points1, t1, err := normalizePoints(pts1)
	if err != nil {
		return nil, err
	}
	points2, t2, err := normalizePoints(pts2)
	if err != nil {
		return nil, err
	}

	nPoints := len(points1)
	// Pad to at least 9 rows so a full SVD always yields the 9x9 V.
	nRows := 2 * nPoints
	if nRows < 9 {
		nRows = 9
	}
	a := mat.NewDense(nRows, 9, nil)
	for i := range points1 {
		x, y := points1[i].X, points1[i].Y
		u, v := points2[i].X, points2[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	mats := performSVD(a)
	if mats == nil {
		return nil, ErrDegenerateHomography
	}
	// A rank below 8 means the null space is not a single homography.
	if mats.values[7] < 1e-12*mats.values[0] {
		return nil, ErrDegenerateHomography
	}
	lastColV := mats.V.ColView(8)
	hData := make([]float64, 9)
	for i := range hData {
		hData[i] = lastColV.AtVec(i)
	}
	hn := mat.NewDense(3, 3, hData)

	// denormalize: T2^-1 @ Hn @ T1
	var t2Inv, hOut mat.Dense
	if err := t2Inv.Inverse(t2); err != nil {
		return nil, errors.Wrap(ErrDegenerateHomography, err.Error())
	}
	hOut.Mul(&t2Inv, hn)
	hOut.Mul(&hOut, t1)
	return newNormalizedHomography(&hOut)
}

// normalizePoints translates the points to their centroid and scales them so that the mean distance
// to the origin is sqrt(2), as described in Multiple View Geometry, Alg 4.2.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := len(pts)
	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))

	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	if d < 1e-12 {
		return nil, nil, ErrDegenerateHomography
	}
	scale := math.Sqrt(2) / d
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, mat.NewDense(3, 3, transformData), nil
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U      *mat.Dense
	V      *mat.Dense
	values []float64
}

// performSVD performs a full SVD on inputMatrix. It returns nil if the factorization fails.
func performSVD(inputMatrix *mat.Dense) *matsSVD {
	var svd mat.SVD
	ok := svd.Factorize(inputMatrix, mat.SVDFull)
	if !ok {
		return nil
	}
	u, v := &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	return &matsSVD{u, v, svd.Values(nil)}
}
