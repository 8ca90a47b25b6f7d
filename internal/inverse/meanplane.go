// Package inverse implements C8 of spec.md: the mean-plane crossing and
// pixel crossing searches that reduce inverse location to two nested
// one-dimensional root finds.
package inverse

import (
	"math"
	"sort"

	"github.com/CS-SI/rugged-go/internal/rerr"
	"github.com/CS-SI/rugged-go/internal/sensor"
	"github.com/CS-SI/rugged-go/internal/spatial"
	"github.com/CS-SI/rugged-go/internal/trajectory"
)

// MeanPlaneSolver precomputes, per integer line over [minLine, maxLine],
// the rigid transform bringing a body-frame point into the sensor frame at
// that line's date, then serves find_crossing/locate_pixel queries against
// it (spec.md §4.8). The table is built once and reused across many
// inverse_location calls for the same sensor and line range.
type MeanPlaneSolver struct {
	Sensor             *sensor.LineSensor
	MinLine, MaxLine   float64
	MaxEval            int
	Accuracy           float64

	bodyToSC []spatial.Rotation
	scPos    []spatial.Vector3 // spacecraft position in body frame, per line
}

// NewMeanPlaneSolver builds the per-line table.
func NewMeanPlaneSolver(s *sensor.LineSensor, traj *trajectory.Cache, minLine, maxLine float64, maxEval int, accuracy float64) (*MeanPlaneSolver, error) {
	if maxLine <= minLine {
		return nil, rerr.New(rerr.InvalidRangeForLines, "maxLine %g must exceed minLine %g", maxLine, minLine)
	}
	n := int(maxLine-minLine) + 1
	if n < 2 {
		n = 2
	}

	m := &MeanPlaneSolver{
		Sensor:   s,
		MinLine:  minLine,
		MaxLine:  maxLine,
		MaxEval:  maxEval,
		Accuracy: accuracy,
		bodyToSC: make([]spatial.Rotation, n),
		scPos:    make([]spatial.Vector3, n),
	}

	for i := 0; i < n; i++ {
		line := minLine + (maxLine-minLine)*float64(i)/float64(n-1)
		date := s.Datation.Date(line)
		scToBody := traj.SpacecraftToBody(date)
		m.bodyToSC[i] = scToBody.Rotation.Revert()
		m.scPos[i] = scToBody.Translation.Position
	}
	return m, nil
}

// directionAt returns the unit direction from the spacecraft to gpBody
// (body frame), expressed in the sensor frame, at the given line, linearly
// interpolating between the two bracketing precomputed table entries.
func (m *MeanPlaneSolver) directionAt(line float64, gpBody spatial.Vector3) spatial.Vector3 {
	n := len(m.bodyToSC)
	frac := (line - m.MinLine) / (m.MaxLine - m.MinLine) * float64(n-1)
	i0 := int(math.Floor(frac))
	if i0 < 0 {
		i0 = 0
	}
	if i0 > n-2 {
		i0 = n - 2
	}
	u := frac - float64(i0)

	rot := m.bodyToSC[i0].Slerp(m.bodyToSC[i0+1], u)
	pos := m.scPos[i0].Lerp(m.scPos[i0+1], u)

	return rot.Apply(gpBody.Sub(pos)).Normalized()
}

// FindCrossing is step 2: the secant search for the line at which the
// sensor's mean-plane normal is orthogonal to the direction to gpBody.
func (m *MeanPlaneSolver) FindCrossing(gpBody spatial.Vector3) (line float64, target spatial.Vector3, derivative spatial.Vector3, err error) {
	normal := m.Sensor.Normal()
	f := func(l float64) float64 { return normal.Dot(m.directionAt(l, gpBody)) }

	x0 := m.MinLine
	x1 := (m.MinLine + m.MaxLine) / 2
	f0, f1 := f(x0), f(x1)

	for i := 0; i < m.MaxEval; i++ {
		if f1 == f0 {
			return 0, spatial.Vector3{}, spatial.Vector3{}, rerr.New(rerr.SensorMeanPlaneNotFound, "secant stalled (identical values) for line search")
		}
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		if x2 < m.MinLine || x2 > m.MaxLine {
			return 0, spatial.Vector3{}, spatial.Vector3{}, rerr.New(rerr.SensorMeanPlaneNotFound, "secant iterate %g left [%g,%g]", x2, m.MinLine, m.MaxLine)
		}
		if math.Abs(x2-x1) < m.Accuracy {
			t := m.directionAt(x2, gpBody)
			d := m.derivativeAt(x2, gpBody)
			return x2, t, d, nil
		}
		x0, f0 = x1, f1
		x1, f1 = x2, f(x2)
	}
	return 0, spatial.Vector3{}, spatial.Vector3{}, rerr.New(rerr.SensorMeanPlaneNotFound, "secant did not converge within %d evaluations", m.MaxEval)
}

func (m *MeanPlaneSolver) derivativeAt(line float64, gpBody spatial.Vector3) spatial.Vector3 {
	const h = 1e-3
	lo, hi := line-h, line+h
	if lo < m.MinLine {
		lo = m.MinLine
	}
	if hi > m.MaxLine {
		hi = m.MaxLine
	}
	d := m.directionAt(hi, gpBody).Sub(m.directionAt(lo, gpBody))
	return d.Scale(1 / (hi - lo))
}

// LocatePixel is step 3: solve g(p) = azimuth(target, floor(p)) -
// (p-floor(p))*width[floor(p)] = 0 by bracketing on the monotone per-pixel
// azimuths. g is exactly linear within its bracket by construction, so the
// bracket-and-solve below is Brent's method collapsed to its first secant
// step — no further iteration is needed once the correct bracket is found.
func (m *MeanPlaneSolver) LocatePixel(target spatial.Vector3) (float64, error) {
	n := m.Sensor.NbPixels()
	az := make([]float64, n)
	for i := 0; i < n; i++ {
		az[i] = m.Sensor.Azimuth(target, i)
	}

	increasing := az[n-1] >= az[0]
	if increasing {
		if az[0] > 0 || az[n-1] < 0 {
			return 0, rerr.New(rerr.PixelNotFound, "azimuth %g outside [%g,%g]", az[0], az[0], az[n-1])
		}
	} else {
		if az[0] < 0 || az[n-1] > 0 {
			return 0, rerr.New(rerr.PixelNotFound, "azimuth outside [%g,%g]", az[n-1], az[0])
		}
	}

	idx := sort.Search(n, func(i int) bool {
		if increasing {
			return az[i] >= 0
		}
		return az[i] <= 0
	})
	if idx <= 0 {
		idx = 1
	}
	if idx >= n {
		idx = n - 1
	}
	i := idx - 1

	w := m.Sensor.Width(i)
	if w == 0 {
		return 0, rerr.New(rerr.PixelNotFound, "zero angular width at pixel %d", i)
	}
	p := float64(i) + az[i]/w
	if p < float64(i) {
		p = float64(i)
	}
	if p > float64(i+1) {
		p = float64(i + 1)
	}
	return p, nil
}

// Locate runs the full inverse-location kernel: find_crossing, then
// locate_pixel, then both again twice on the same gpBody. The repeats take
// nothing from the line or pixel already found, so they return the first
// pass's result; the target is not recomputed from the found line and pixel.
func (m *MeanPlaneSolver) Locate(gpBody spatial.Vector3) (line, pixel float64, err error) {
	line, target, _, err := m.FindCrossing(gpBody)
	if err != nil {
		return 0, 0, err
	}
	pixel, err = m.LocatePixel(target)
	if err != nil {
		return 0, 0, err
	}

	for i := 0; i < 2; i++ {
		l2, t2, _, ferr := m.FindCrossing(gpBody)
		if ferr != nil {
			break
		}
		p2, perr := m.LocatePixel(t2)
		if perr != nil {
			break
		}
		line, pixel = l2, p2
	}
	return line, pixel, nil
}
