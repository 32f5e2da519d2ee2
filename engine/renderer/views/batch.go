package views

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type groupBy uint8

const (
	groupByMesh groupBy = iota
	groupByShaderMesh
)

// drawGroup is one multi-draw: count commands starting at offset in the
// command buffer, all drawn with the same shader.
type drawGroup struct {
	shader core.AssetID
	offset int
	count  int32
}

// run is a sequence of sorted renderables sharing a key.
type run struct {
	mesh   core.AssetID
	shader core.AssetID
	first  int
	count  int
}

// batch collects the renderable indices submitted to a stage and turns them
// into instance records and indirect draw commands. The slices are reused
// from frame to frame.
type batch struct {
	groupBy groupBy
	indices []int

	live      []int
	runs      []run
	ranges    []memory.MeshRange
	instances []memory.InstanceData
	commands  []memory.DrawCommand
	groups    []drawGroup
}

func (b *batch) submit(index int) {
	b.indices = append(b.indices, index)
}

func (b *batch) reset() {
	b.indices = b.indices[:0]
}

func (b *batch) pending() int {
	return len(b.indices)
}

func (b *batch) key(r *metadata.Renderable) uint64 {
	if b.groupBy == groupByShaderMesh {
		return uint64(r.Shader)<<32 | uint64(r.Mesh)
	}
	return uint64(r.Mesh)
}

// build uploads the geometry, instances and commands of every submitted
// renderable and returns the multi-draws to issue. The submitted indices
// are cleared whatever the outcome.
func (b *batch) build(ctx *FrameContext) ([]drawGroup, error) {
	defer b.reset()

	b.live = b.live[:0]
	for _, i := range b.indices {
		r := &ctx.Renderables[i]
		if _, ok := ctx.Resources.Mesh(r.Mesh); !ok {
			ctx.WarnStale("mesh", r.Mesh, "skipping draw")
			ctx.Stats.Skipped++
			continue
		}
		if b.groupBy == groupByShaderMesh {
			if _, ok := ctx.Resources.Shader(r.Shader); !ok {
				ctx.WarnStale("shader", r.Shader, "skipping draw")
				ctx.Stats.Skipped++
				continue
			}
		}
		b.live = append(b.live, i)
	}
	if len(b.live) == 0 {
		return nil, nil
	}
	slices.SortStableFunc(b.live, func(x, y int) int {
		return cmp.Compare(b.key(&ctx.Renderables[x]), b.key(&ctx.Renderables[y]))
	})

	b.runs = b.runs[:0]
	var last uint64
	for n, i := range b.live {
		r := &ctx.Renderables[i]
		k := b.key(r)
		if len(b.runs) > 0 && k == last {
			b.runs[len(b.runs)-1].count++
			continue
		}
		last = k
		b.runs = append(b.runs, run{mesh: r.Mesh, shader: r.Shader, first: n, count: 1})
	}

	ranges, err := b.uploadMeshes(ctx)
	if err != nil {
		return nil, err
	}

	b.instances = b.instances[:0]
	b.commands = b.commands[:0]
	for k, ru := range b.runs {
		for _, i := range b.live[ru.first : ru.first+ru.count] {
			r := &ctx.Renderables[i]
			slot, ok := ctx.Resources.MaterialSlot(r.Material)
			if !ok {
				ctx.WarnStale("material", r.Material, "using the default material")
				ctx.Stats.SubstitutedMaterials++
			}
			b.instances = append(b.instances, memory.InstanceData{MaterialIndex: slot, Transform: r.Transform})
		}
		b.commands = append(b.commands, memory.DrawCommand{
			IndexCount:    ranges[k].IndexCount,
			InstanceCount: uint32(ru.count),
			FirstIndex:    ranges[k].FirstIndex,
			BaseVertex:    ranges[k].BaseVertex,
			BaseInstance:  uint32(ru.first),
		})
	}

	base, err := ctx.Memory.PushInstances(b.instances)
	if err != nil {
		return nil, err
	}
	for k := range b.commands {
		b.commands[k].BaseInstance += base
	}
	offset, err := ctx.Memory.PushDrawCommands(b.commands)
	if err != nil {
		return nil, err
	}

	b.groups = b.groups[:0]
	for k, ru := range b.runs {
		if g := len(b.groups); g > 0 && (b.groupBy == groupByMesh || b.groups[g-1].shader == ru.shader) {
			b.groups[g-1].count++
			continue
		}
		b.groups = append(b.groups, drawGroup{
			shader: ru.shader,
			offset: offset + k*memory.DrawCommandSize,
			count:  1,
		})
	}
	ctx.Stats.DrawCommands += len(b.commands)
	ctx.Stats.Instances += len(b.instances)
	return b.groups, nil
}

func geometryWraps(mm *memory.MemoryManager) uint64 {
	return mm.Vertices().Wraps() + mm.Indices().Wraps()
}

// uploadMeshes uploads one copy of each run's mesh. A wrap part way through
// may overwrite ranges taken earlier in the same batch, so the whole batch
// is uploaded again once; a second wrap means it cannot fit one section.
func (b *batch) uploadMeshes(ctx *FrameContext) ([]memory.MeshRange, error) {
	for attempt := 0; attempt < 2; attempt++ {
		wraps := geometryWraps(ctx.Memory)
		b.ranges = b.ranges[:0]
		for _, ru := range b.runs {
			mesh, _ := ctx.Resources.Mesh(ru.mesh)
			r, err := ctx.Memory.UploadMesh(ru.mesh, mesh.Vertices, mesh.Indices)
			if err != nil {
				return nil, err
			}
			b.ranges = append(b.ranges, r)
		}
		if geometryWraps(ctx.Memory) == wraps {
			return b.ranges, nil
		}
		core.LogWarn("geometry buffers wrapped while batching %d meshes, uploading again", len(b.runs))
	}
	return nil, fmt.Errorf("batch of %d meshes does not fit one geometry section: %w", len(b.runs), core.ErrCapacityExceeded)
}

// multiDraw issues one group from the command buffer.
func multiDraw(ctx *FrameContext, g drawGroup) {
	ctx.State.BindStream(ctx.Memory.Stream())
	ctx.State.BindIndirect(ctx.Memory.Commands().Handle())
	ctx.Device.MultiDrawElementsIndirect(g.offset, g.count, int32(memory.DrawCommandSize))
	ctx.Stats.MultiDraws++
}
