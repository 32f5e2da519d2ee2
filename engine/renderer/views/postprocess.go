package views

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// tonemapParams mirrors the Params block of the tonemap shader.
type tonemapParams struct {
	Exposure      float32
	BloomStrength float32
	BloomEnabled  uint32
	_             uint32
}

// PostProcessStage resolves the HDR scene, plus bloom when that stage is
// enabled, into the window framebuffer with an exposure tonemap.
type PostProcessStage struct {
	fullscreenStage
	scene    core.AssetID
	bloom    *BloomStage
	shader   core.AssetID
	exposure float32
}

// NewPostProcessStage reads the scene framebuffer's colour. bloom may be nil.
func NewPostProcessStage(rm *systems.ResourcesManager, scene core.AssetID, bloom *BloomStage, exposure float32) (*PostProcessStage, error) {
	shader, err := loadBuiltin(rm, "tonemap", fullscreenVert, tonemapFrag)
	if err != nil {
		return nil, err
	}
	if exposure <= 0 {
		exposure = 1
	}
	return &PostProcessStage{
		scene:    scene,
		bloom:    bloom,
		shader:   shader,
		exposure: exposure,
	}, nil
}

func (s *PostProcessStage) Kind() StageKind      { return StageKindPostProcess }
func (s *PostProcessStage) Target() core.AssetID { return core.InvalidID }
func (s *PostProcessStage) Exposure() float32    { return s.exposure }

func (s *PostProcessStage) SetExposure(exposure float32) {
	if exposure > 0 {
		s.exposure = exposure
	}
}

func (s *PostProcessStage) Execute(ctx *FrameContext) error {
	sceneColour, err := colorTexture(ctx, s.scene)
	if err != nil {
		return err
	}
	bloomColour := sceneColour
	params := tonemapParams{Exposure: s.exposure}
	if s.bloom != nil && ctx.Enabled.Has(metadata.StageBloom) {
		if bloomColour, err = s.bloom.Output(ctx); err != nil {
			return err
		}
		params.BloomEnabled = 1
		params.BloomStrength = s.bloom.Config().Strength
	}
	ctx.State.ApplyRaster(fullscreenRaster)
	ctx.Device.Clear(gpu.ClearColor, [4]float32{0, 0, 0, 1})
	if err := useProgram(ctx, s.shader); err != nil {
		return err
	}
	ctx.State.BindTexture(0, sceneColour)
	ctx.State.BindTexture(1, bloomColour)
	if err := ctx.PushParams(memory.ValueBytes(&params)); err != nil {
		return err
	}
	ctx.DrawFullscreen()
	ctx.Memory.FenceFrameWork()
	return nil
}

func (s *PostProcessStage) Destroy(rm *systems.ResourcesManager) {
	rm.RemoveShader(s.shader)
}
