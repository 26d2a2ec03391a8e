package camera

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrustum_PlanesAreUnitNormalized(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 1000)
	view := mgl32.LookAtV(mgl32.Vec3{0, -10, 2}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1})
	vp := proj.Mul4(view)

	planes := ExtractFrustum(vp)
	for _, p := range planes {
		n := mgl32.Vec3{p[0], p[1], p[2]}
		assert.InDelta(t, 1.0, float64(n.Len()), 1e-4)
	}
}

func TestCamera_DirtySignalFiresOnlyOnPositionOrLookAtChange(t *testing.T) {
	c := New("main", FirstPerson)
	fires := 0
	c.Dirty.Connect(func(*Camera) { fires++ })

	c.CommitFrame()
	assert.Equal(t, 1, fires, "first commit always reports dirty (no previous state)")

	c.CommitFrame()
	assert.Equal(t, 1, fires, "unchanged position/lookAt must not re-fire dirty")

	c.Position = c.Position.Add(mgl32.Vec3{1, 0, 0})
	c.CommitFrame()
	assert.Equal(t, 2, fires)
}

func TestCamera_ViewProjUsesRecordedOverrideWhenSet(t *testing.T) {
	c := New("main", FirstPerson)
	c.Recordings = []Recorded{{View: mgl32.Ident4(), Proj: mgl32.Ident4()}}
	c.RecordedOverride = true
	c.RecordedIndex = 0

	assert.Equal(t, mgl32.Ident4(), c.ViewProj(16.0/9.0))
}

func TestCamera_ProjMatrixUsesFOVNearFar(t *testing.T) {
	c := New("main", FirstPerson)
	want := mgl32.Perspective(mgl32.DegToRad(c.FOV), 16.0/9.0, c.Near, c.Far)
	assert.Equal(t, want, c.ProjMatrix(16.0/9.0))
}

func TestRecordedCamera_RoundTripsThroughBinaryFormat(t *testing.T) {
	original := []Recorded{
		{
			Position: mgl32.Vec3{1, 2, 3},
			LookAt:   mgl32.Vec3{4, 5, 6},
			Up:       mgl32.Vec3{0, 0, 1},
			Right:    mgl32.Vec3{1, 0, 0},
			View:     mgl32.Ident4(),
			Proj:     mgl32.Perspective(1, 1.5, 0.1, 100),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecordings(&buf, original))

	got, err := ReadRecordings(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, original[0].Position, got[0].Position)
	assert.Equal(t, original[0].View, got[0].View)
	assert.Equal(t, original[0].Proj, got[0].Proj)
}

func TestLoadRecordings_MissingFileIsRecoverable(t *testing.T) {
	_, err := LoadRecordings("/nonexistent/path/recorded_camera")
	assert.Error(t, err) // caller treats this as "no recordings", not fatal
}

func TestRegistry_CameraBuildIsIdempotent(t *testing.T) {
	r := NewRegistry()
	built := 0
	build := func() *Camera { built++; return New("main", FirstPerson) }

	r.Build("main", build)
	r.Build("main", build)

	assert.Equal(t, 1, built)
}
