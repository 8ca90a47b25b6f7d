package sensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CS-SI/rugged-go/internal/spatial"
)

func TestLinearDatation_RoundTrip(t *testing.T) {
	d := LinearDatation{Line0: 0, Date0: 100, LineRate: 20}
	for _, line := range []float64{0, 5.5, 100, -10} {
		date := d.Date(line)
		back := d.Line(date)
		assert.InDelta(t, line, back, 1e-9)
	}
}

func TestPiecewiseDatation_RoundTrip(t *testing.T) {
	d := PiecewiseDatation{
		Lines: []float64{0, 100, 300, 1000},
		Dates: []float64{10, 15, 17, 30},
	}
	for _, line := range []float64{0, 50, 150, 300, 999} {
		date := d.Date(line)
		back := d.Line(date)
		assert.InDelta(t, line, back, 1e-6)
	}
}

// straightPushbroom builds a sensor whose LOS all lie in the X-Z plane
// (Y=0), pointing down and fanning out across the swath — a scanner with no
// roll, whose mean plane normal must therefore be parallel to Y.
func straightPushbroom(t *testing.T, n int) *LineSensor {
	t.Helper()
	los := make([]spatial.Vector3, n)
	for i := 0; i < n; i++ {
		theta := (float64(i)/float64(n-1) - 0.5) * 0.6 // +/- 0.3 rad fan
		los[i] = spatial.Vector3{X: math.Sin(theta), Y: 0, Z: -math.Cos(theta)}
	}
	s, err := NewLineSensor("test", los, LinearDatation{Line0: 0, Date0: 0, LineRate: 1})
	if err != nil {
		t.Fatalf("NewLineSensor: %v", err)
	}
	return s
}

func TestNewLineSensor_MeanPlaneNormalIsPerpendicularToSwath(t *testing.T) {
	s := straightPushbroom(t, 11)
	n := s.Normal()
	// The normal must be (near) perpendicular to every LOS, since all LOS
	// lie exactly in the fitted mean plane by construction.
	for i := 0; i < s.NbPixels(); i++ {
		assert.InDelta(t, 0, n.Dot(s.Los(i)), 1e-9)
	}
}

func TestNewLineSensor_AzimuthOfOwnDirectionIsZero(t *testing.T) {
	s := straightPushbroom(t, 9)
	for i := 0; i < s.NbPixels(); i++ {
		az := s.Azimuth(s.Los(i), i)
		assert.InDelta(t, 0, az, 1e-9)
	}
}

func TestNewLineSensor_AzimuthMonotoneAcrossSwath(t *testing.T) {
	// Targeting the last pixel's own direction, the azimuth from every
	// earlier pixel must shrink monotonically to zero as i approaches it —
	// the property LocatePixel's bracketing search depends on.
	s := straightPushbroom(t, 15)
	target := s.Los(s.NbPixels() - 1)
	prev := math.Inf(1)
	for i := 0; i < s.NbPixels(); i++ {
		az := s.Azimuth(target, i)
		if az > prev+1e-9 {
			t.Fatalf("azimuth to the last pixel's direction should be monotone across the swath, got %g after %g at pixel %d", az, prev, i)
		}
		prev = az
	}
	last := s.Azimuth(target, s.NbPixels()-1)
	assert.InDelta(t, 0, last, 1e-9)
}

func TestNewLineSensor_RejectsTooFewPixels(t *testing.T) {
	_, err := NewLineSensor("test", []spatial.Vector3{{X: 0, Y: 0, Z: -1}}, LinearDatation{LineRate: 1})
	if err == nil {
		t.Fatal("expected an error for a single-pixel sensor")
	}
}

func TestNewLineSensor_WidthsArePositive(t *testing.T) {
	s := straightPushbroom(t, 7)
	for i := 0; i < s.NbPixels(); i++ {
		if s.Width(i) <= 0 {
			t.Errorf("pixel %d: width = %g, want > 0", i, s.Width(i))
		}
	}
}
