package intersect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CS-SI/rugged-go/internal/ellipsoid"
	"github.com/CS-SI/rugged-go/internal/spatial"
)

func TestConstantElevation_IntersectionAtFixedAltitude(t *testing.T) {
	lat, lon, h := 10.0, 20.0, 300.0
	c := ConstantElevation{H: h}

	top := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 10000})
	ground := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 0})
	l := ground.Sub(top)

	hit, ok, err := c.Intersection(ellipsoid.WGS84, top, l)
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	assert.InDelta(t, h, hit.Altitude, 1e-6)

	refined, ok2, err := c.RefineIntersection(ellipsoid.WGS84, top, l, hit)
	if err != nil || !ok2 {
		t.Fatalf("RefineIntersection: ok=%v err=%v", ok2, err)
	}
	assert.InDelta(t, h, refined.Altitude, 1e-6)

	if e, _ := c.Elevation(lat, lon); e != h {
		t.Errorf("Elevation = %g, want %g", e, h)
	}
	if c.AlgorithmID() != ConstantElevationID {
		t.Errorf("AlgorithmID = %s, want %s", c.AlgorithmID(), ConstantElevationID)
	}
}

func TestConstantElevation_NoForwardRoot(t *testing.T) {
	c := ConstantElevation{H: 0}
	// A ray pointing straight up from the surface never crosses H=0 going
	// forward.
	p := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: 0, Longitude: 0, Altitude: 1000})
	l := spatial.Vector3{X: p.X, Y: p.Y, Z: p.Z}.Normalized()

	_, ok, err := c.Intersection(ellipsoid.WGS84, p, l)
	if err != nil {
		t.Fatalf("Intersection returned an error instead of ok=false: %v", err)
	}
	if ok {
		t.Fatal("expected no forward intersection for a ray pointing away from the ellipsoid")
	}
}

func TestIgnoreDem_IntersectsEllipsoidSurface(t *testing.T) {
	lat, lon := -5.0, 40.0
	d := IgnoreDem{}

	top := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 10000})
	ground := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: 0})
	l := ground.Sub(top)

	hit, ok, err := d.Intersection(ellipsoid.WGS84, top, l)
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	assert.InDelta(t, 0, hit.Altitude, 1e-6)

	if e, _ := d.Elevation(lat, lon); e != 0 {
		t.Errorf("Elevation = %g, want 0", e)
	}
	if d.AlgorithmID() != IgnoreDemID {
		t.Errorf("AlgorithmID = %s, want %s", d.AlgorithmID(), IgnoreDemID)
	}
}
