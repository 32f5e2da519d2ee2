// Package renderer is the frame-level entry point: it owns the buffer
// memory, the resource pools and the stage pipeline, and drives them with
// Begin, Draw and End.
package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/views"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type DirectionalLight struct {
	Direction mgl32.Vec3
	Colour    mgl32.Vec3
	Intensity float32
}

type PointLight struct {
	Position  mgl32.Vec3
	Radius    float32
	Colour    mgl32.Vec3
	Intensity float32
}

// Stats describes the last completed frame.
type Stats struct {
	views.Stats
	Frame       uint64
	Renderables int
	PointLights int
	// Totals since start-up.
	RingWraps    uint64
	FenceRetries uint64
	StateSkipped uint64
	// GPU objects waiting for deferred destruction.
	Retired   int
	Resources systems.ResourceCounts
}

type Renderer struct {
	device    gpu.Device
	config    Config
	assets    *assets.AssetManager
	memory    *memory.MemoryManager
	resources *systems.ResourcesManager
	state     *views.RendererState
	pipeline  *views.RendererPipeline

	scene *views.SceneStage
	bloom *views.BloomStage
	post  *views.PostProcessStage

	ctx         views.FrameContext
	inFrame     bool
	frame       uint64
	sun         DirectionalLight
	pointLights []memory.PointLightData
	stats       Stats
}

// New creates the buffer memory, resource pools and every pipeline stage.
// am may be nil when nothing is loaded from disk.
func New(device gpu.Device, am *assets.AssetManager, config Config, width, height int32) (*Renderer, error) {
	enabled, err := config.Validate()
	if err != nil {
		return nil, err
	}
	mm, err := memory.NewMemoryManager(device, config.Memory)
	if err != nil {
		return nil, err
	}
	rm, err := systems.NewResourcesManager(device, mm, am, config.Resources)
	if err != nil {
		mm.Destroy()
		return nil, err
	}
	state := views.NewRendererState(device)
	r := &Renderer{
		device:    device,
		config:    config,
		assets:    am,
		memory:    mm,
		resources: rm,
		state:     state,
		pipeline:  views.NewRendererPipeline(enabled),
		ctx: views.FrameContext{
			Device:    device,
			Memory:    mm,
			Resources: rm,
			State:     state,
		},
		sun: DirectionalLight{
			Direction: mgl32.Vec3{-0.3, -1, -0.2},
			Colour:    mgl32.Vec3{1, 1, 1},
			Intensity: 1,
		},
	}
	if err := r.Resize(width, height); err != nil {
		r.destroy()
		return nil, err
	}
	if err := r.createStages(); err != nil {
		r.destroy()
		return nil, err
	}
	core.LogInfo("renderer initialized: %d buffer sections, stages %s", config.Memory.Sections, enabled)
	return r, nil
}

func (r *Renderer) createStages() error {
	shadow, err := views.NewShadowStage(r.device, r.resources, r.memory, r.config.ShadowMapSize)
	if err != nil {
		return err
	}
	if err := r.pipeline.Register(shadow); err != nil {
		return err
	}
	if r.scene, err = views.NewSceneStage(r.resources, r.config.ClearColour); err != nil {
		return err
	}
	if err := r.pipeline.Register(r.scene); err != nil {
		return err
	}
	if err := r.pipeline.Register(views.NewSkyStage(r.scene.Target())); err != nil {
		return err
	}
	if r.bloom, err = views.NewBloomStage(r.resources, r.scene.Target(), r.config.Bloom); err != nil {
		return err
	}
	if err := r.pipeline.Register(r.bloom); err != nil {
		return err
	}
	debug, err := views.NewDebugStage(r.resources, r.scene.Target())
	if err != nil {
		return err
	}
	if err := r.pipeline.Register(debug); err != nil {
		return err
	}
	if r.post, err = views.NewPostProcessStage(r.resources, r.scene.Target(), r.bloom, r.config.Exposure); err != nil {
		return err
	}
	return r.pipeline.Register(r.post)
}

// Begin opens a frame: pending shader reloads are applied and the camera
// is captured for the rest of the frame.
func (r *Renderer) Begin(camera *components.Camera) error {
	if r.inFrame {
		return core.ErrFrameInProgress
	}
	if camera == nil {
		return errors.New("begin frame: nil camera")
	}
	if r.assets != nil {
		if changed := r.assets.DrainChanges(); len(changed) > 0 {
			r.resources.ProcessReloads(changed)
		}
	}
	r.ctx.Reset()
	r.state.Invalidate()
	r.state.SnapshotCamera(camera)
	r.pointLights = r.pointLights[:0]
	r.inFrame = true
	return nil
}

// Draw queues a renderable for every enabled stage in its mask. Renderables
// with a stale mesh, or a stale shader for the shaded stages, are dropped.
func (r *Renderer) Draw(renderable metadata.Renderable) error {
	if !r.inFrame {
		return core.ErrFrameNotBegun
	}
	if _, ok := r.resources.Mesh(renderable.Mesh); !ok {
		r.ctx.WarnStale("mesh", renderable.Mesh, "skipping draw")
		r.ctx.Stats.Skipped++
		return nil
	}
	if renderable.Stages.Has(metadata.StageScene | metadata.StageSky) {
		if _, ok := r.resources.Shader(renderable.Shader); !ok {
			r.ctx.WarnStale("shader", renderable.Shader, "skipping draw")
			r.ctx.Stats.Skipped++
			return nil
		}
	}
	index := len(r.ctx.Renderables)
	r.ctx.Renderables = append(r.ctx.Renderables, renderable)
	if r.pipeline.Submit(index, renderable.Stages) == 0 {
		r.ctx.Renderables = r.ctx.Renderables[:index]
	}
	return nil
}

// AddPointLight adds a light to the current frame. Lights past
// MaxPointLights are dropped when the frame ends.
func (r *Renderer) AddPointLight(light PointLight) error {
	if !r.inFrame {
		return core.ErrFrameNotBegun
	}
	r.pointLights = append(r.pointLights, memory.PointLightData{
		PositionRadius:  light.Position.Vec4(light.Radius),
		ColourIntensity: light.Colour.Vec4(light.Intensity),
	})
	return nil
}

func (r *Renderer) SetSun(light DirectionalLight) {
	r.sun = light
}

func (r *Renderer) Sun() DirectionalLight {
	return r.sun
}

// End waits until the GPU released the buffer section this frame writes
// to, uploads the frame constants, runs the pipeline and fences the
// section. A stage error is returned after the section has been fenced
// and advanced, so the next frame starts clean.
func (r *Renderer) End() error {
	if !r.inFrame {
		return core.ErrFrameNotBegun
	}
	defer r.finishFrame()

	if err := r.memory.WaitForSectionLock(); err != nil {
		r.pipeline.Reset()
		return fmt.Errorf("frame %d: %w", r.frame, err)
	}

	lightSpace := views.LightSpaceMatrix(r.sun.Direction, r.state.Camera.Position, r.config.ShadowDistance)
	r.memory.SetCamera(r.state.CameraData(lightSpace))
	direction := r.sun.Direction
	if direction.Len() > 0 {
		direction = direction.Normalize()
	}
	r.memory.SetSun(memory.DirectionalLightData{
		Direction: direction.Vec4(0),
		Colour:    r.sun.Colour.Vec4(r.sun.Intensity),
	})
	lights := r.memory.SetPointLights(r.pointLights)

	err := r.pipeline.Execute(&r.ctx)
	r.memory.SetSectionLock()
	r.memory.AdvanceSections()
	r.resources.Collect()

	r.stats = Stats{
		Stats:        r.ctx.Stats,
		Frame:        r.frame,
		Renderables:  len(r.ctx.Renderables),
		PointLights:  lights,
		RingWraps:    r.memory.Wraps(),
		FenceRetries: r.memory.FenceRetries(),
		StateSkipped: r.state.Skipped(),
		Retired:      r.resources.Retired(),
		Resources:    r.resources.Counts(),
	}
	if err != nil {
		return fmt.Errorf("frame %d: %w", r.frame, err)
	}
	return nil
}

func (r *Renderer) finishFrame() {
	r.ctx.Renderables = r.ctx.Renderables[:0]
	r.inFrame = false
	r.frame++
}

// Resize follows the window size. A zero size, as reported for a
// minimized window, is ignored.
func (r *Renderer) Resize(width, height int32) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := r.resources.ResizeFramebuffers(width, height); err != nil {
		return err
	}
	r.ctx.Width, r.ctx.Height = width, height
	return nil
}

func (r *Renderer) EnableStages(mask metadata.StageMask)  { r.pipeline.EnableStages(mask) }
func (r *Renderer) DisableStages(mask metadata.StageMask) { r.pipeline.DisableStages(mask) }

// ToggleStages flips every stage in mask.
func (r *Renderer) ToggleStages(mask metadata.StageMask) {
	enabled := r.pipeline.Enabled()
	r.pipeline.EnableStages(mask &^ enabled)
	r.pipeline.DisableStages(mask & enabled)
}

func (r *Renderer) IsEnabled(mask metadata.StageMask) bool {
	return r.pipeline.IsEnabled(mask)
}

func (r *Renderer) SetExposure(exposure float32) { r.post.SetExposure(exposure) }
func (r *Renderer) SetBloom(config views.BloomConfig) {
	r.bloom.SetConfig(config)
}

func (r *Renderer) SetClearColour(colour [4]float32) {
	r.scene.SetClearColour(colour)
}

func (r *Renderer) Stats() Stats                         { return r.stats }
func (r *Renderer) Frame() uint64                        { return r.frame }
func (r *Renderer) InFrame() bool                        { return r.inFrame }
func (r *Renderer) Size() (int32, int32)                 { return r.ctx.Width, r.ctx.Height }
func (r *Renderer) Resources() *systems.ResourcesManager { return r.resources }
func (r *Renderer) Memory() *memory.MemoryManager        { return r.memory }
func (r *Renderer) Pipeline() *views.RendererPipeline    { return r.pipeline }
func (r *Renderer) Config() Config                       { return r.config }

// Shutdown waits for the GPU and destroys everything the renderer created.
// An open frame is dropped.
func (r *Renderer) Shutdown() error {
	if r.memory == nil {
		return nil
	}
	if r.inFrame {
		r.pipeline.Reset()
		r.finishFrame()
	}
	err := r.memory.WaitIdle()
	if err != nil {
		core.LogError("renderer shutdown: %s", err)
	}
	return errors.Join(err, r.destroy())
}

func (r *Renderer) destroy() error {
	r.pipeline.Destroy(r.resources)
	err := r.resources.Shutdown()
	r.memory.Destroy()
	r.memory = nil
	return err
}
