package views

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type BloomConfig struct {
	/** @brief Luminance above which scene pixels contribute to bloom. */
	Threshold float32 `toml:"threshold"`
	Strength  float32 `toml:"strength"`
	/** @brief Number of horizontal plus vertical blur pairs. */
	Passes int `toml:"passes"`
}

func DefaultBloomConfig() BloomConfig {
	return BloomConfig{Threshold: 1, Strength: 0.6, Passes: 4}
}

// bloomParams mirrors the Params block of the bloom shaders.
type bloomParams struct {
	Threshold  float32
	Strength   float32
	Horizontal uint32
	_          uint32
}

// BloomStage extracts the bright parts of the scene into a half resolution
// target and blurs them by ping-ponging between two framebuffers.
type BloomStage struct {
	fullscreenStage
	config BloomConfig
	scene  core.AssetID
	ping   core.AssetID
	pong   core.AssetID
	bright core.AssetID
	blur   core.AssetID
}

func NewBloomStage(rm *systems.ResourcesManager, scene core.AssetID, config BloomConfig) (*BloomStage, error) {
	if config.Passes < 0 {
		config.Passes = 0
	}
	s := &BloomStage{
		config: config,
		scene:  scene,
		ping:   core.InvalidID,
		pong:   core.InvalidID,
		bright: core.InvalidID,
		blur:   core.InvalidID,
	}
	var err error
	if s.bright, err = loadBuiltin(rm, "bloom-bright", fullscreenVert, bloomBrightFrag); err != nil {
		return nil, err
	}
	if s.blur, err = loadBuiltin(rm, "bloom-blur", fullscreenVert, bloomBlurFrag); err != nil {
		s.Destroy(rm)
		return nil, err
	}
	target := metadata.FramebufferConfig{
		Scale:        0.5,
		ColorFormats: []gpu.TextureFormat{gpu.TextureFormatRGBA16F},
		Filter:       gpu.TextureFilterLinear,
	}
	target.Name = "bloom-ping"
	if s.ping, err = rm.LoadFramebuffer(target, true); err != nil {
		s.Destroy(rm)
		return nil, err
	}
	target.Name = "bloom-pong"
	if s.pong, err = rm.LoadFramebuffer(target, true); err != nil {
		s.Destroy(rm)
		return nil, err
	}
	return s, nil
}

func (s *BloomStage) Kind() StageKind      { return StageKindBloom }
func (s *BloomStage) Target() core.AssetID { return s.ping }
func (s *BloomStage) Config() BloomConfig  { return s.config }

func (s *BloomStage) SetConfig(config BloomConfig) {
	if config.Passes < 0 {
		config.Passes = 0
	}
	s.config = config
}

// Output is the texture holding the blurred result. It ends up in the ping
// target because every blur pass pair returns to it.
func (s *BloomStage) Output(ctx *FrameContext) (gpu.TextureHandle, error) {
	return colorTexture(ctx, s.ping)
}

func (s *BloomStage) pass(ctx *FrameContext, target core.AssetID, program core.AssetID, source gpu.TextureHandle, horizontal bool) error {
	if _, err := ctx.BindTarget(target); err != nil {
		return err
	}
	if err := useProgram(ctx, program); err != nil {
		return err
	}
	ctx.State.BindTexture(0, source)
	params := bloomParams{Threshold: s.config.Threshold, Strength: s.config.Strength}
	if horizontal {
		params.Horizontal = 1
	}
	if err := ctx.PushParams(memory.ValueBytes(&params)); err != nil {
		return err
	}
	ctx.DrawFullscreen()
	return nil
}

func (s *BloomStage) Execute(ctx *FrameContext) error {
	sceneColour, err := colorTexture(ctx, s.scene)
	if err != nil {
		return err
	}
	ctx.State.ApplyRaster(fullscreenRaster)
	if err := s.pass(ctx, s.ping, s.bright, sceneColour, false); err != nil {
		return err
	}
	source, dest := s.ping, s.pong
	for i := 0; i < s.config.Passes*2; i++ {
		src, err := colorTexture(ctx, source)
		if err != nil {
			return err
		}
		if err := s.pass(ctx, dest, s.blur, src, i%2 == 0); err != nil {
			return err
		}
		source, dest = dest, source
	}
	ctx.Memory.FenceFrameWork()
	return nil
}

func (s *BloomStage) Destroy(rm *systems.ResourcesManager) {
	rm.RemoveFramebuffer(s.ping)
	rm.RemoveFramebuffer(s.pong)
	rm.RemoveShader(s.bright)
	rm.RemoveShader(s.blur)
}
