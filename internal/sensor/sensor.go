// Package sensor implements C6 of spec.md: a pushbroom line sensor's
// per-pixel lines-of-sight in the sensor frame, their best-fit mean plane,
// and the line<->date map.
package sensor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/CS-SI/rugged-go/internal/rerr"
	"github.com/CS-SI/rugged-go/internal/spatial"
)

// Datation maps between continuous line number and absolute date. Both
// directions must be monotone and mutually inverse.
type Datation interface {
	Date(line float64) float64
	Line(date float64) float64
}

// LinearDatation is line = (date-date0)*lineRate + line0.
type LinearDatation struct {
	Line0, Date0 float64
	LineRate     float64 // lines per second
}

func (d LinearDatation) Date(line float64) float64 { return d.Date0 + (line-d.Line0)/d.LineRate }
func (d LinearDatation) Line(date float64) float64 { return d.Line0 + (date-d.Date0)*d.LineRate }

// PiecewiseDatation linearly interpolates between explicit (line, date)
// breakpoints, for sensors whose line rate isn't constant over the swath.
type PiecewiseDatation struct {
	Lines []float64 // strictly increasing
	Dates []float64 // strictly increasing, same length
}

func (d PiecewiseDatation) Date(line float64) float64 {
	i := bracketIndex(d.Lines, line)
	t := (line - d.Lines[i]) / (d.Lines[i+1] - d.Lines[i])
	return d.Dates[i] + t*(d.Dates[i+1]-d.Dates[i])
}

func (d PiecewiseDatation) Line(date float64) float64 {
	i := bracketIndex(d.Dates, date)
	t := (date - d.Dates[i]) / (d.Dates[i+1] - d.Dates[i])
	return d.Lines[i] + t*(d.Lines[i+1]-d.Lines[i])
}

func bracketIndex(xs []float64, v float64) int {
	i := sort.SearchFloat64s(xs, v) - 1
	if i < 0 {
		i = 0
	}
	if i > len(xs)-2 {
		i = len(xs) - 2
	}
	return i
}

// LineSensor holds the per-pixel lines-of-sight of a pushbroom sensor and
// the derived mean-plane geometry (spec.md §4.6).
type LineSensor struct {
	Name     string
	Datation Datation

	los    []spatial.Vector3 // normalized, per pixel
	y      []spatial.Vector3 // transversal, per pixel
	width  []float64         // half angular pixel width, per pixel
	normal spatial.Vector3
}

// NewLineSensor normalizes los, fits its mean plane, and derives the
// transversal/width arrays used by azimuth(). Requires at least 2 pixels.
func NewLineSensor(name string, los []spatial.Vector3, datation Datation) (*LineSensor, error) {
	n := len(los)
	if n < 2 {
		return nil, rerr.New(rerr.InternalError, "line sensor needs at least 2 pixels, got %d", n)
	}

	normalized := make([]spatial.Vector3, n)
	for i, l := range los {
		normalized[i] = l.Normalized()
	}

	normal := fitMeanPlaneNormal(normalized)
	if normal.Dot(normalized[0].Cross(normalized[n-1])) < 0 {
		normal = normal.Negate()
	}

	y := make([]spatial.Vector3, n)
	for i, x := range normalized {
		y[i] = normal.Cross(x).Normalized()
	}

	s := &LineSensor{Name: name, Datation: datation, los: normalized, y: y, normal: normal}
	s.width = computeWidths(normalized, y)
	return s, nil
}

// fitMeanPlaneNormal returns the unit normal of the least-squares plane
// through the centroid of the given directions: the eigenvector of
// the centered scatter matrix with the smallest eigenvalue.
func fitMeanPlaneNormal(los []spatial.Vector3) spatial.Vector3 {
	var centroid spatial.Vector3
	for _, l := range los {
		centroid = centroid.Add(l)
	}
	centroid = centroid.Scale(1 / float64(len(los)))

	scatter := mat.NewSymDense(3, nil)
	for _, l := range los {
		d := l.Sub(centroid)
		v := [3]float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				scatter.SetSym(i, j, scatter.At(i, j)+v[i]*v[j])
			}
		}
	}

	var eig mat.EigenSym
	eig.Factorize(scatter, true)
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	minIdx := 0
	for i := 1; i < 3; i++ {
		if values[i] < values[minIdx] {
			minIdx = i
		}
	}
	return spatial.Vector3{
		X: vectors.At(0, minIdx),
		Y: vectors.At(1, minIdx),
		Z: vectors.At(2, minIdx),
	}.Normalized()
}

func computeWidths(los, y []spatial.Vector3) []float64 {
	n := len(los)
	width := make([]float64, n)
	az := func(i, j int) float64 {
		return math.Atan2(los[j].Dot(y[i]), los[j].Dot(los[i]))
	}
	for i := 0; i < n; i++ {
		switch {
		case n == 1:
			width[i] = 0
		case i == 0:
			width[i] = math.Abs(az(0, 1)) / 2
		case i == n-1:
			width[i] = math.Abs(az(n-1, n-2)) / 2
		default:
			width[i] = (az(i, i+1) - az(i, i-1)) / 4
		}
	}
	return width
}

// Los returns the normalized line-of-sight of pixel i.
func (s *LineSensor) Los(i int) spatial.Vector3 { return s.los[i] }

// NbPixels returns the pixel count.
func (s *LineSensor) NbPixels() int { return len(s.los) }

// Normal returns the mean-plane unit normal.
func (s *LineSensor) Normal() spatial.Vector3 { return s.normal }

// Width returns pixel i's half angular width.
func (s *LineSensor) Width(i int) float64 { return s.width[i] }

// Azimuth returns the signed angle, in the mean plane, from pixel i's
// direction to d (spec.md §4.6).
func (s *LineSensor) Azimuth(d spatial.Vector3, i int) float64 {
	return math.Atan2(d.Dot(s.y[i]), d.Dot(s.los[i]))
}
