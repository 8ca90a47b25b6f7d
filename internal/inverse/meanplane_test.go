package inverse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CS-SI/rugged-go/internal/sensor"
	"github.com/CS-SI/rugged-go/internal/spatial"
	"github.com/CS-SI/rugged-go/internal/trajectory"
)

type identityFrames struct{}

func (identityFrames) BodyToInertial(date float64) spatial.Transform {
	return spatial.Transform{Rotation: spatial.Identity}
}

// buildScenario returns a nadir-pointing pushbroom sensor flying along Y at
// altitude H with a fan of LOS across X, plus the matching trajectory cache,
// all in a single (already-identity) body frame.
func buildScenario(t *testing.T, n int, lineRate, h float64) (*sensor.LineSensor, *trajectory.Cache) {
	t.Helper()
	los := make([]spatial.Vector3, n)
	for i := 0; i < n; i++ {
		theta := (float64(i)/float64(n-1) - 0.5) * 0.4
		los[i] = spatial.Vector3{X: math.Sin(theta), Y: 0, Z: -math.Cos(theta)}
	}
	s, err := sensor.NewLineSensor("test", los, sensor.LinearDatation{Line0: 0, Date0: 0, LineRate: lineRate})
	if err != nil {
		t.Fatalf("NewLineSensor: %v", err)
	}

	dates := []float64{-10, 0, 10, 20, 30}
	velocity := spatial.Vector3{X: 0, Y: 7000, Z: 0}
	pv := make([]spatial.TimedPV, len(dates))
	att := make([]spatial.TimedRotation, len(dates))
	for i, d := range dates {
		pv[i] = spatial.TimedPV{Date: d, PV: spatial.PV{
			Position: spatial.Vector3{X: 0, Y: velocity.Y * d, Z: h},
			Velocity: velocity,
		}}
		att[i] = spatial.TimedRotation{Date: d, Rotation: spatial.Identity}
	}
	traj, err := trajectory.NewCache(pv, 4, att, 4, 0, 20, 0.5, identityFrames{})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return s, traj
}

// groundPointAt computes, independently of the inverse solver, the ground
// point (on the Z=0 plane) seen by the exact sensor pixel `i` at `line`.
func groundPointAt(s *sensor.LineSensor, traj *trajectory.Cache, line float64, i int) spatial.Vector3 {
	date := s.Datation.Date(line)
	scToBody := traj.SpacecraftToBody(date)
	pos := scToBody.Translation.Position

	dir := scToBody.TransformVector(s.Los(i))
	param := -pos.Z / dir.Z
	return pos.Add(dir.Scale(param))
}

func TestMeanPlaneSolver_LocateRecoversKnownPixel(t *testing.T) {
	s, traj := buildScenario(t, 11, 2.0, 700000)
	solver, err := NewMeanPlaneSolver(s, traj, 0, 20, 50, 1e-9)
	if err != nil {
		t.Fatalf("NewMeanPlaneSolver: %v", err)
	}

	tests := []struct {
		line  float64
		pixel int
	}{
		{5, 5},
		{10, 2},
		{15, 8},
		{2, 9},
	}
	for _, tt := range tests {
		gp := groundPointAt(s, traj, tt.line, tt.pixel)
		line, pixel, err := solver.Locate(gp)
		if err != nil {
			t.Fatalf("Locate(line=%g,pixel=%d): %v", tt.line, tt.pixel, err)
		}
		assert.InDelta(t, tt.line, line, 1e-3)
		assert.InDelta(t, float64(tt.pixel), pixel, 1e-3)
	}
}

func TestMeanPlaneSolver_LocatePixel_RejectsOutsideSwath(t *testing.T) {
	s, traj := buildScenario(t, 11, 2.0, 700000)
	solver, err := NewMeanPlaneSolver(s, traj, 0, 20, 50, 1e-9)
	if err != nil {
		t.Fatalf("NewMeanPlaneSolver: %v", err)
	}

	// A ground point far off the swath, to the side, should fail to locate
	// within the sensor's pixel range.
	gp := groundPointAt(s, traj, 10, 5)
	gp.X += 10_000_000

	_, _, err = solver.Locate(gp)
	if err == nil {
		t.Fatal("expected an error for a ground point far outside the swath")
	}
}

func TestNewMeanPlaneSolver_RejectsInvalidLineRange(t *testing.T) {
	s, traj := buildScenario(t, 5, 1.0, 500000)
	_, err := NewMeanPlaneSolver(s, traj, 10, 10, 50, 1e-9)
	if err == nil {
		t.Fatal("expected an error when maxLine does not exceed minLine")
	}
}
