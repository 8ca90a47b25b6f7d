// demelevation exercises a real GeoTIFF DEM end to end: it points a single
// nadir-looking pixel at the given lat/lon from a fixed altitude and reports
// where DirectLocation puts the ground point, which is the DEM's elevation
// at that point if the terrain intersection worked.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	rugged "github.com/CS-SI/rugged-go"
	"github.com/CS-SI/rugged-go/internal/ellipsoid"
)

// identityFrames treats the spacecraft body frame as already aligned with
// the Earth-fixed frame the DEM and trajectory are expressed in, so a line
// of sight can be written directly as a Cartesian direction toward the
// target instead of through an attitude chain.
type identityFrames struct{}

func (identityFrames) BodyToInertial(date float64) rugged.RigidTransform {
	return rugged.RigidTransform{Rotation: rugged.Quaternion{W: 1}}
}

func main() {
	demPath := flag.String("dem", "", "path to a float-elevation GeoTIFF/COG DEM")
	lat := flag.Float64("lat", 0, "target latitude, degrees")
	lon := flag.Float64("lon", 0, "target longitude, degrees")
	flag.Parse()
	if *demPath == "" {
		fmt.Fprintln(os.Stderr, "usage: demelevation -dem FILE -lat DEG -lon DEG")
		os.Exit(1)
	}

	dem, err := rugged.OpenGeoTIFFDEM(*demPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening DEM: %v\n", err)
		os.Exit(1)
	}
	defer dem.Close()
	fmt.Println(dem.Describe())

	const altitude = 700000.0
	latRad, lonRad := *lat*math.Pi/180, *lon*math.Pi/180
	pos := ellipsoid.WGS84.ToCartesian(ellipsoid.GeodeticPoint{Latitude: latRad, Longitude: lonRad, Altitude: altitude})
	nadir := rugged.Vector3{X: -pos.X, Y: -pos.Y, Z: -pos.Z}

	r, err := rugged.NewBuilder().
		WithAlgorithm(rugged.Duvenhage, 0).
		WithTrajectory(
			[]rugged.PVSample{
				{Date: 0, Position: rugged.Vector3{X: pos.X, Y: pos.Y, Z: pos.Z}},
				{Date: 10, Position: rugged.Vector3{X: pos.X, Y: pos.Y, Z: pos.Z}},
			}, 2,
			[]rugged.AttitudeSample{
				{Date: 0, Rotation: rugged.Quaternion{W: 1}},
				{Date: 10, Rotation: rugged.Quaternion{W: 1}},
			}, 2,
			0, 10, 1,
			identityFrames{},
		).
		WithLineSensor("nadir", []rugged.Vector3{nadir}, rugged.LinearDatation{Line0: 0, Date0: 5, LineRate: 1}).
		WithDEM(dem, 16).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "building rugged: %v\n", err)
		os.Exit(1)
	}

	points, err := r.DirectLocation("nadir", 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "direct location: %v\n", err)
		os.Exit(1)
	}
	p := points[0]
	fmt.Printf("ground point: lat=%.6f lon=%.6f elevation=%.2fm\n",
		p.Latitude*180/math.Pi, p.Longitude*180/math.Pi, p.Altitude)
}
