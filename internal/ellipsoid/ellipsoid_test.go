package ellipsoid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CS-SI/rugged-go/internal/spatial"
)

func TestCartesianGeodeticRoundTrip(t *testing.T) {
	tests := []struct {
		name          string
		lat, lon, alt float64
	}{
		{"equator prime meridian", 0, 0, 0},
		{"mid-latitude", 45 * math.Pi / 180, 10 * math.Pi / 180, 1200},
		{"high latitude", 75 * math.Pi / 180, -120 * math.Pi / 180, 3500},
		{"negative altitude", 10 * math.Pi / 180, 170 * math.Pi / 180, -50},
		{"near south pole", -89.9 * math.Pi / 180, 30 * math.Pi / 180, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gp := GeodeticPoint{Latitude: tt.lat, Longitude: tt.lon, Altitude: tt.alt}
			p := WGS84.ToCartesian(gp)
			back := WGS84.ToGeodetic(p, 0)

			assert.InDelta(t, tt.lat, back.Latitude, 1e-9)
			assert.InDelta(t, tt.lon, back.Longitude, 1e-9)
			assert.InDelta(t, tt.alt, back.Altitude, 1e-6)
		})
	}
}

func TestToGeodetic_PolarAxis(t *testing.T) {
	p := spatial.Vector3{X: 0, Y: 0, Z: WGS84.b() + 500}
	gp := WGS84.ToGeodetic(p, 0)
	assert.InDelta(t, math.Pi/2, gp.Latitude, 1e-9)
	assert.InDelta(t, 500, gp.Altitude, 1e-6)
}

func TestPointAtAltitude_ReturnsRequestedAltitude(t *testing.T) {
	p := WGS84.ToCartesian(GeodeticPoint{Latitude: 0.3, Longitude: 0.5, Altitude: 500000})
	down := spatial.Vector3{X: -p.X, Y: -p.Y, Z: -p.Z}.Normalized()

	hit, err := WGS84.PointAtAltitude(p, down, 1000)
	if err != nil {
		t.Fatalf("PointAtAltitude: %v", err)
	}
	gp := WGS84.ToGeodetic(hit, 0)
	assert.InDelta(t, 1000, gp.Altitude, 1e-3)
}

func TestPointAtAltitude_NeverReachesGround(t *testing.T) {
	p := WGS84.ToCartesian(GeodeticPoint{Latitude: 0, Longitude: 0, Altitude: 500000})
	up := spatial.Vector3{X: p.X, Y: p.Y, Z: p.Z}.Normalized()

	_, err := WGS84.PointAtAltitude(p, up, 0)
	if err == nil {
		t.Fatal("expected an error pointing the ray away from the ellipsoid")
	}
}

func TestPointAtLatitude(t *testing.T) {
	p := WGS84.ToCartesian(GeodeticPoint{Latitude: 0, Longitude: 0, Altitude: 600000})
	target := WGS84.ToCartesian(GeodeticPoint{Latitude: 0.4, Longitude: 0, Altitude: 0})
	d := target.Sub(p).Normalized()

	hit, err := WGS84.PointAtLatitude(p, d, 0.4)
	if err != nil {
		t.Fatalf("PointAtLatitude: %v", err)
	}
	gp := WGS84.ToGeodetic(hit, 0)
	assert.InDelta(t, 0.4, gp.Latitude, 1e-6)
}

func TestPointAtLongitude(t *testing.T) {
	p := WGS84.ToCartesian(GeodeticPoint{Latitude: 0.2, Longitude: 0, Altitude: 600000})
	target := WGS84.ToCartesian(GeodeticPoint{Latitude: 0.2, Longitude: 0.7, Altitude: 0})
	d := target.Sub(p).Normalized()

	hit, err := WGS84.PointAtLongitude(p, d, 0.7)
	if err != nil {
		t.Fatalf("PointAtLongitude: %v", err)
	}
	gp := WGS84.ToGeodetic(hit, 0)
	assert.InDelta(t, 0.7, gp.Longitude, 1e-6)
}

func TestNormalize_WrapsAroundSeam(t *testing.T) {
	got := Normalize(math.Pi+0.1, 0)
	assert.InDelta(t, -math.Pi+0.1, got, 1e-9)
}

func TestConvertLOS_VerticalIsAllAltitude(t *testing.T) {
	gp := NewNormalizedGeodeticPoint(0.3, 0.5, 0, 0)
	up := spatial.Vector3{X: math.Cos(0.3) * math.Cos(0.5), Y: math.Cos(0.3) * math.Sin(0.5), Z: math.Sin(0.3)}

	dLat, dLon, dAlt := WGS84.ConvertLOS(gp, up)
	assert.InDelta(t, 0, dLat, 1e-6)
	assert.InDelta(t, 0, dLon, 1e-6)
	assert.InDelta(t, 1, dAlt, 1e-6)
}
