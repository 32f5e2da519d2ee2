package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func vecNear(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5), "want %v, got %v", want, got)
}

func TestCameraDefaultsLookDownNegativeZ(t *testing.T) {
	c := NewCamera()
	vecNear(t, mgl32.Vec3{0, 0, -1}, c.Forward())
	vecNear(t, mgl32.Vec3{1, 0, 0}, c.Right())
	vecNear(t, mgl32.Vec3{-1, 0, 0}, c.Left())
}

func TestCameraMovementRebuildsView(t *testing.T) {
	c := NewCamera()
	c.MoveForward(2)
	c.MoveUp(1)
	vecNear(t, mgl32.Vec3{0, 1, -2}, c.GetPosition())

	origin := c.GetView().Mul4x1(mgl32.Vec4{0, 1, -2, 1})
	vecNear(t, mgl32.Vec3{}, origin.Vec3())
	assert.False(t, c.IsDirty)
}

func TestCameraYawAndPitch(t *testing.T) {
	c := NewCamera()
	c.Yaw(mgl32.DegToRad(90))
	vecNear(t, mgl32.Vec3{-1, 0, 0}, c.Forward())

	c.Pitch(10)
	assert.InDelta(t, 1.55334306, c.GetEulerRotation().X(), 1e-6)
	c.Pitch(-20)
	assert.InDelta(t, -1.55334306, c.GetEulerRotation().X(), 1e-6)
}

func TestCameraAspect(t *testing.T) {
	c := NewCamera()
	c.SetAspect(800, 400)
	assert.Equal(t, float32(2), c.Aspect)
	c.SetAspect(800, 0)
	assert.Equal(t, float32(2), c.Aspect)
	assert.NotEqual(t, mgl32.Mat4{}, c.GetProjection())
}
