package ellipsoid

import (
	"math"

	"github.com/CS-SI/rugged-go/internal/rerr"
	"github.com/CS-SI/rugged-go/internal/spatial"
)

// Ellipsoid is a reference ellipsoid of revolution: equatorial radius A,
// flattening F. It is a pure value, never mutated after construction
// (spec.md §3). BodyFrame names the body-rotating frame it's attached to
// (e.g. "ITRF"); it is opaque metadata here — frame semantics are the
// astronomy library's concern.
type Ellipsoid struct {
	A         float64
	F         float64
	BodyFrame string
}

// Named reference ellipsoids recognized by RuggedBuilder (spec.md §6.2).
var (
	WGS84   = Ellipsoid{A: 6378137.0, F: 1.0 / 298.257223563}
	GRS80   = Ellipsoid{A: 6378137.0, F: 1.0 / 298.257222101}
	IERS96  = Ellipsoid{A: 6378136.49, F: 1.0 / 298.25645}
	IERS2003 = Ellipsoid{A: 6378136.6, F: 1.0 / 298.25642}
)

func (e Ellipsoid) b() float64  { return e.A * (1 - e.F) }
func (e Ellipsoid) e2() float64 { return e.F * (2 - e.F) }

// ToCartesian converts a geodetic point to the body-frame cartesian point.
func (e Ellipsoid) ToCartesian(gp GeodeticPoint) spatial.Vector3 {
	sinPhi, cosPhi := math.Sincos(gp.Latitude)
	sinLambda, cosLambda := math.Sincos(gp.Longitude)
	n := e.A / math.Sqrt(1-e.e2()*sinPhi*sinPhi)

	return spatial.Vector3{
		X: (n + gp.Altitude) * cosPhi * cosLambda,
		Y: (n + gp.Altitude) * cosPhi * sinLambda,
		Z: (n*(1-e.e2()) + gp.Altitude) * sinPhi,
	}
}

// ToGeodetic converts a body-frame cartesian point to a normalized geodetic
// point, using a fixed-point iteration on the latitude,
// lat = atan2(z + e2*N*sin(lat), r), run eight times (converges to
// double-precision accuracy for any altitude a satellite DEM workload would
// see).
func (e Ellipsoid) ToGeodetic(p spatial.Vector3, centralLongitude float64) NormalizedGeodeticPoint {
	lon := math.Atan2(p.Y, p.X)
	r := math.Hypot(p.X, p.Y)

	if r == 0 {
		// On the polar axis: latitude is +/- pi/2, longitude undefined (keep 0).
		lat := math.Pi / 2
		if p.Z < 0 {
			lat = -lat
		}
		alt := math.Abs(p.Z) - e.b()
		return NewNormalizedGeodeticPoint(lat, lon, alt, centralLongitude)
	}

	e2 := e.e2()
	// Initial guess: the geodetic latitude the point would have if it lay on
	// the ellipsoid surface.
	lat := math.Atan2(p.Z, r*(1-e2))
	for i := 0; i < 8; i++ {
		sinPhi := math.Sin(lat)
		n := e.A / math.Sqrt(1-e2*sinPhi*sinPhi)
		lat = math.Atan2(p.Z+e2*n*sinPhi, r)
	}

	sinPhi := math.Sin(lat)
	n := e.A / math.Sqrt(1-e2*sinPhi*sinPhi)
	var alt float64
	if math.Abs(math.Cos(lat)) > 1e-12 {
		alt = r/math.Cos(lat) - n
	} else {
		alt = math.Abs(p.Z) - n*(1-e2)
	}

	return NewNormalizedGeodeticPoint(lat, lon, alt, centralLongitude)
}

// quadraticForward solves a*t^2 + b*t + c = 0 and returns the smallest
// strictly positive root, if any.
func quadraticForward(a, b, c float64) (float64, bool) {
	const eps = 1e-15
	if math.Abs(a) < eps {
		if math.Abs(b) < eps {
			return 0, false
		}
		t := -c / b
		if t > 0 {
			return t, true
		}
		return 0, false
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t1 := (-b - sq) / (2 * a)
	t2 := (-b + sq) / (2 * a)
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > 1e-9 {
		return t1, true
	}
	if t2 > 1e-9 {
		return t2, true
	}
	return 0, false
}

// PointAtAltitude returns the first forward point (t>0) on ray p+t*d at
// geodetic altitude h, by intersecting with the ellipsoid of revolution
// whose semi-axes are offset by h (equatorial a+h, polar b+h), then
// correcting t with Newton steps on the point's geodetic altitude.
func (e Ellipsoid) PointAtAltitude(p, d spatial.Vector3, h float64) (spatial.Vector3, error) {
	ah := e.A + h
	bh := e.b() + h
	if ah <= 0 || bh <= 0 {
		return spatial.Vector3{}, rerr.New(rerr.LineOfSightDoesNotReachGround, "altitude %g collapses the reference ellipsoid", h)
	}
	ia2 := 1 / (ah * ah)
	ib2 := 1 / (bh * bh)

	a := d.X*d.X*ia2 + d.Y*d.Y*ia2 + d.Z*d.Z*ib2
	b := 2 * (p.X*d.X*ia2 + p.Y*d.Y*ia2 + p.Z*d.Z*ib2)
	c := p.X*p.X*ia2 + p.Y*p.Y*ia2 + p.Z*p.Z*ib2 - 1

	t, ok := quadraticForward(a, b, c)
	if !ok {
		return spatial.Vector3{}, rerr.New(rerr.LineOfSightDoesNotReachGround, "ray never reaches altitude %g", h)
	}
	for i := 0; i < 5; i++ {
		gp := e.ToGeodetic(p.Add(d.Scale(t)), 0)
		sinPhi, cosPhi := math.Sincos(gp.Latitude)
		sinL, cosL := math.Sincos(gp.Longitude)
		rate := d.Dot(spatial.Vector3{X: cosPhi * cosL, Y: cosPhi * sinL, Z: sinPhi})
		dh := h - gp.Altitude
		if math.Abs(dh) < 1e-9 || rate == 0 {
			break
		}
		t += dh / rate
	}
	return p.Add(d.Scale(t)), nil
}

// PointAtLatitude returns the first forward crossing of ray p+t*d with the
// geodetic-latitude cone at phi (spec.md §4.1: "first forward crossing of
// the ray with the latitude (cone) ... surface").
func (e Ellipsoid) PointAtLatitude(p, d spatial.Vector3, phi float64) (spatial.Vector3, error) {
	k := 1 - e.e2()
	tanPhi := math.Tan(phi)

	if math.Abs(tanPhi) < 1e-12 {
		// Equatorial plane: z = 0.
		if math.Abs(d.Z) < 1e-15 {
			return spatial.Vector3{}, rerr.New(rerr.LineOfSightNeverCrossesLatitude, "ray parallel to the equatorial plane")
		}
		t := -p.Z / d.Z
		if t <= 0 {
			return spatial.Vector3{}, rerr.New(rerr.LineOfSightNeverCrossesLatitude, "equatorial crossing is behind the ray origin")
		}
		return p.Add(d.Scale(t)), nil
	}

	kt2 := k * k * tanPhi * tanPhi
	a := d.Z*d.Z - kt2*(d.X*d.X+d.Y*d.Y)
	b := 2 * (p.Z*d.Z - kt2*(p.X*d.X+p.Y*d.Y))
	c := p.Z*p.Z - kt2*(p.X*p.X+p.Y*p.Y)

	best := math.Inf(1)
	found := false
	for _, t := range realRoots(a, b, c) {
		if t <= 1e-9 {
			continue
		}
		z := p.Z + t*d.Z
		if z*tanPhi < 0 {
			continue // wrong nappe of the cone
		}
		if t < best {
			best, found = t, true
		}
	}
	if !found {
		return spatial.Vector3{}, rerr.New(rerr.LineOfSightNeverCrossesLatitude, "ray never crosses latitude %g", phi)
	}
	return p.Add(d.Scale(best)), nil
}

// PointAtLongitude returns the first forward crossing of ray p+t*d with the
// half-plane of constant geodetic longitude lambda.
func (e Ellipsoid) PointAtLongitude(p, d spatial.Vector3, lambda float64) (spatial.Vector3, error) {
	sinL, cosL := math.Sincos(lambda)
	denom := d.X*sinL - d.Y*cosL
	if math.Abs(denom) < 1e-15 {
		return spatial.Vector3{}, rerr.New(rerr.LineOfSightNeverCrossesLongitude, "ray parallel to the longitude half-plane")
	}
	t := -(p.X*sinL - p.Y*cosL) / denom
	if t <= 1e-9 {
		return spatial.Vector3{}, rerr.New(rerr.LineOfSightNeverCrossesLongitude, "longitude crossing is behind the ray origin")
	}
	x := p.X + t*d.X
	y := p.Y + t*d.Y
	if x*cosL+y*sinL < 0 {
		return spatial.Vector3{}, rerr.New(rerr.LineOfSightNeverCrossesLongitude, "ray crosses the opposite half-plane")
	}
	return p.Add(d.Scale(t)), nil
}

// realRoots returns the real roots of a*t^2+b*t+c=0 (0, 1 or 2 values).
func realRoots(a, b, c float64) []float64 {
	if math.Abs(a) < 1e-15 {
		if math.Abs(b) < 1e-15 {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	if disc == 0 {
		return []float64{-b / (2 * a)}
	}
	sq := math.Sqrt(disc)
	return []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)}
}

// ConvertLOS expresses a cartesian direction d as derivatives of the local
// geodetic coordinates at gp: (dLat, dLon, dAlt) per unit of d's parameter,
// via the local East/North/Up frame.
func (e Ellipsoid) ConvertLOS(gp NormalizedGeodeticPoint, d spatial.Vector3) (dLat, dLon, dAlt float64) {
	sinPhi, cosPhi := math.Sincos(gp.Latitude)
	sinL, cosL := math.Sincos(gp.Longitude)

	east := spatial.Vector3{X: -sinL, Y: cosL, Z: 0}
	north := spatial.Vector3{X: -sinPhi * cosL, Y: -sinPhi * sinL, Z: cosPhi}
	up := spatial.Vector3{X: cosPhi * cosL, Y: cosPhi * sinL, Z: sinPhi}

	e2 := e.e2()
	nRad := e.A / math.Sqrt(1-e2*sinPhi*sinPhi)
	m := e.A * (1 - e2) / math.Pow(1-e2*sinPhi*sinPhi, 1.5)

	dAlt = d.Dot(up)
	dLat = d.Dot(north) / m
	dLon = d.Dot(east) / (nRad * cosPhi)
	return
}
