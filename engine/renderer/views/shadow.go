package views

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// ShadowStage renders depth from the sun into a square shadow map. Its
// bindless handle is published in static storage for the lit shaders.
type ShadowStage struct {
	batchStage
	device   gpu.Device
	shader   core.AssetID
	target   core.AssetID
	resident uint64
	size     int32
}

var shadowRaster = gpu.RasterState{
	DepthTest:  true,
	DepthWrite: true,
	DepthFunc:  gpu.CompareLess,
	Cull:       gpu.CullFront,
}

func NewShadowStage(device gpu.Device, rm *systems.ResourcesManager, mm *memory.MemoryManager, size int32) (*ShadowStage, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shadow map size must be > 0, got %d", size)
	}
	s := &ShadowStage{
		batchStage: batchStage{batch{groupBy: groupByMesh}},
		device:     device,
		size:       size,
	}
	var err error
	if s.shader, err = loadBuiltin(rm, "shadow", shadowVert, shadowFrag); err != nil {
		return nil, err
	}
	s.target, err = rm.LoadFramebuffer(metadata.FramebufferConfig{
		Name:   "shadow-map",
		Width:  size,
		Height: size,
		Depth:  true,
		Filter: gpu.TextureFilterLinear,
	}, false)
	if err != nil {
		rm.RemoveShader(s.shader)
		return nil, err
	}
	fb, _ := rm.Framebuffer(s.target)
	s.resident = device.ResidentHandle(fb.Depth)
	mm.SetShadowMapHandle(s.resident)
	return s, nil
}

func (s *ShadowStage) Kind() StageKind      { return StageKindShadow }
func (s *ShadowStage) Target() core.AssetID { return s.target }
func (s *ShadowStage) Size() int32          { return s.size }

func (s *ShadowStage) Execute(ctx *FrameContext) error {
	ctx.Device.Clear(gpu.ClearDepth, [4]float32{})
	groups, err := s.build(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	if err := useProgram(ctx, s.shader); err != nil {
		return err
	}
	ctx.State.ApplyRaster(shadowRaster)
	for _, g := range groups {
		multiDraw(ctx, g)
	}
	ctx.Memory.FenceFrameWork()
	return nil
}

func (s *ShadowStage) Destroy(rm *systems.ResourcesManager) {
	if s.resident != 0 {
		s.device.ReleaseResidentHandle(s.resident)
		s.resident = 0
	}
	rm.RemoveFramebuffer(s.target)
	rm.RemoveShader(s.shader)
}

// LightSpaceMatrix projects a sphere of radius around center as seen from a
// directional light shining along direction.
func LightSpaceMatrix(direction, center mgl32.Vec3, radius float32) mgl32.Mat4 {
	if direction.Len() == 0 {
		direction = mgl32.Vec3{0, -1, 0}
	}
	dir := direction.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if d := dir.Dot(up); d > 0.99 || d < -0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	if radius <= 0 {
		radius = 1
	}
	eye := center.Sub(dir.Mul(radius * 2))
	view := mgl32.LookAtV(eye, center, up)
	projection := mgl32.Ortho(-radius, radius, -radius, radius, radius*0.01, radius*4)
	return projection.Mul4(view)
}
