package views

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// Stats counts the work recorded by the stages in one frame.
type Stats struct {
	DrawCommands    int
	MultiDraws      int
	FullscreenDraws int
	Instances       int
	// Renderables dropped because their mesh or shader id was stale.
	Skipped int
	// Renderables drawn with the default material in place of a stale one.
	SubstitutedMaterials int
}

func (s *Stats) Add(other Stats) {
	s.DrawCommands += other.DrawCommands
	s.MultiDraws += other.MultiDraws
	s.FullscreenDraws += other.FullscreenDraws
	s.Instances += other.Instances
	s.Skipped += other.Skipped
	s.SubstitutedMaterials += other.SubstitutedMaterials
}

// FrameContext is what every stage sees while executing.
type FrameContext struct {
	Device      gpu.Device
	Memory      *memory.MemoryManager
	Resources   *systems.ResourcesManager
	State       *RendererState
	Renderables []metadata.Renderable
	Enabled     metadata.StageMask
	// Window size in pixels.
	Width  int32
	Height int32

	Stats Stats

	warned map[staleKey]struct{}
}

type staleKey struct {
	kind string
	id   core.AssetID
}

// Reset prepares the context for a new frame.
func (c *FrameContext) Reset() {
	c.Renderables = c.Renderables[:0]
	c.Stats = Stats{}
	clear(c.warned)
}

// WarnStale logs a stale id at most once per frame.
func (c *FrameContext) WarnStale(kind string, id core.AssetID, action string) {
	if c.warned == nil {
		c.warned = make(map[staleKey]struct{})
	}
	key := staleKey{kind, id}
	if _, ok := c.warned[key]; ok {
		return
	}
	c.warned[key] = struct{}{}
	core.LogWarn("stale %s %s, %s", kind, id, action)
}

// BindTarget binds a framebuffer from the resources manager, or the window
// framebuffer when id is invalid.
func (c *FrameContext) BindTarget(id core.AssetID) (*metadata.Framebuffer, error) {
	if !id.IsValid() {
		c.State.BindFramebuffer(gpu.DefaultFramebuffer, c.Width, c.Height)
		return nil, nil
	}
	fb, ok := c.Resources.Framebuffer(id)
	if !ok {
		return nil, fmt.Errorf("render target %s: %w", id, core.ErrStaleHandle)
	}
	c.State.BindFramebuffer(fb.Handle, fb.Width, fb.Height)
	return fb, nil
}

// PushParams writes a per-draw parameter block and binds it.
func (c *FrameContext) PushParams(data []byte) error {
	offset, err := c.Memory.PushPerDraw(data)
	if err != nil {
		return err
	}
	c.Memory.BindPerDraw(offset, memory.AlignUp(len(data), c.Memory.Alignment()))
	return nil
}

// DrawFullscreen issues a single triangle covering the bound target. The
// vertex shader derives positions from gl_VertexID.
func (c *FrameContext) DrawFullscreen() {
	c.State.BindStream(c.Memory.Stream())
	c.Device.DrawArrays(0, 3)
	c.Stats.FullscreenDraws++
}
