// Package views holds the render stages and the pipeline that sequences
// them each frame.
package views

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// executionOrder is the order stages run in every frame. It is independent
// of the stage mask values.
var executionOrder = [...]StageKind{
	StageKindShadow,
	StageKindScene,
	StageKindSky,
	StageKindBloom,
	StageKindDebug,
	StageKindPostProcess,
}

// ExecutionOrder returns the fixed stage order.
func ExecutionOrder() []StageKind {
	return executionOrder[:]
}

// RendererPipeline routes submitted renderables to stages and runs the
// enabled stages in execution order.
type RendererPipeline struct {
	stages  map[metadata.StageMask]Stage
	enabled metadata.StageMask
}

func NewRendererPipeline(enabled metadata.StageMask) *RendererPipeline {
	return &RendererPipeline{
		stages:  make(map[metadata.StageMask]Stage, len(executionOrder)),
		enabled: enabled & metadata.StageAll,
	}
}

// Register adds a stage. Only one stage of each kind may be registered.
func (p *RendererPipeline) Register(stage Stage) error {
	mask := stage.Kind().Mask()
	if mask == metadata.StageNone {
		return fmt.Errorf("cannot register unknown %s", stage.Kind())
	}
	if _, ok := p.stages[mask]; ok {
		return fmt.Errorf("a %s stage is already registered", stage.Kind())
	}
	p.stages[mask] = stage
	return nil
}

func (p *RendererPipeline) Stage(kind StageKind) (Stage, bool) {
	s, ok := p.stages[kind.Mask()]
	return s, ok
}

// Submit forwards a renderable index to every enabled stage named in mask
// that accepts renderables. Returns the number of stages it went to.
func (p *RendererPipeline) Submit(index int, mask metadata.StageMask) int {
	targets := mask & p.enabled
	n := 0
	for _, kind := range executionOrder {
		if !targets.Has(kind.Mask()) {
			continue
		}
		stage, ok := p.stages[kind.Mask()]
		if !ok || !stage.AcceptsRenderables() {
			continue
		}
		stage.Submit(index)
		n++
	}
	return n
}

// Execute runs the enabled stages in execution order. Each stage's target
// is bound before it runs and the default raster state is restored after.
// The first error aborts the frame and drops what the remaining stages
// had collected.
func (p *RendererPipeline) Execute(ctx *FrameContext) error {
	ctx.Enabled = p.enabled
	for _, kind := range executionOrder {
		stage, ok := p.stages[kind.Mask()]
		if !ok {
			continue
		}
		if !p.enabled.Has(kind.Mask()) {
			stage.Reset()
			continue
		}
		if _, err := ctx.BindTarget(stage.Target()); err != nil {
			p.Reset()
			return fmt.Errorf("%s stage: %w", kind, err)
		}
		err := stage.Execute(ctx)
		ctx.State.ApplyRaster(gpu.DefaultRasterState())
		if err != nil {
			p.Reset()
			return fmt.Errorf("%s stage: %w", kind, err)
		}
	}
	return nil
}

// Reset drops every stage's submitted renderables.
func (p *RendererPipeline) Reset() {
	for _, s := range p.stages {
		s.Reset()
	}
}

func (p *RendererPipeline) EnableStages(mask metadata.StageMask) {
	p.enabled |= mask & metadata.StageAll
	core.LogDebug("pipeline stages enabled: %s", p.enabled)
}

func (p *RendererPipeline) DisableStages(mask metadata.StageMask) {
	p.enabled &^= mask
	core.LogDebug("pipeline stages enabled: %s", p.enabled)
}

// IsEnabled reports whether every stage in mask is enabled.
func (p *RendererPipeline) IsEnabled(mask metadata.StageMask) bool {
	return mask != metadata.StageNone && p.enabled&mask == mask
}

func (p *RendererPipeline) Enabled() metadata.StageMask {
	return p.enabled
}

// Destroy releases every stage's resources in reverse execution order.
func (p *RendererPipeline) Destroy(rm *systems.ResourcesManager) {
	for i := len(executionOrder) - 1; i >= 0; i-- {
		if s, ok := p.stages[executionOrder[i].Mask()]; ok {
			s.Destroy(rm)
		}
	}
	clear(p.stages)
}
