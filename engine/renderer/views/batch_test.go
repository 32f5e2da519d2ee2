package views

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type testEnv struct {
	dev   *gputest.Device
	mm    *memory.MemoryManager
	rm    *systems.ResourcesManager
	ctx   *FrameContext
	cube  core.AssetID
	plane core.AssetID
	lit   core.AssetID
}

var testSources = gpu.ShaderSources{Vertex: "void main() {}", Fragment: "void main() {}"}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dev := gputest.NewDevice()
	config := memory.DefaultConfig()
	config.Sections = 2
	config.VertexSectionBytes = memory.VertexSize * 256
	config.IndexSectionBytes = memory.IndexSize * 512
	config.InstanceSectionBytes = memory.InstanceDataSize * 64
	config.CommandSectionBytes = memory.DrawCommandSize * 64
	config.PerDrawBytes = 4096
	config.MaxMaterials = 8
	config.MaxPointLights = 4
	mm, err := memory.NewMemoryManager(dev, config)
	require.NoError(t, err)
	rm, err := systems.NewResourcesManager(dev, mm, nil, systems.DefaultResourcesConfig())
	require.NoError(t, err)
	require.NoError(t, rm.ResizeFramebuffers(320, 240))
	t.Cleanup(func() {
		rm.Shutdown()
		mm.Destroy()
	})

	env := &testEnv{dev: dev, mm: mm, rm: rm}
	env.cube, err = rm.LoadMesh(systems.GenerateCube(1, 1, 1, 1, 1, "cube"))
	require.NoError(t, err)
	env.plane, err = rm.LoadMesh(systems.GeneratePlane(4, 4, 1, 1, 1, 1, "plane"))
	require.NoError(t, err)
	env.lit, err = rm.LoadShaderSource("lit", testSources)
	require.NoError(t, err)
	env.ctx = &FrameContext{
		Device:    dev,
		Memory:    mm,
		Resources: rm,
		State:     NewRendererState(dev),
		Enabled:   metadata.StageAll,
		Width:     320,
		Height:    240,
	}
	return env
}

func (env *testEnv) renderable(mesh, shader core.AssetID, x float32, stages metadata.StageMask) metadata.Renderable {
	return metadata.Renderable{
		Mesh:      mesh,
		Material:  env.rm.DefaultMaterial(),
		Shader:    shader,
		Transform: mgl32.Translate3D(x, 0, 0),
		Stages:    stages,
	}
}

func indirectDraws(dev *gputest.Device) []gputest.Draw {
	var out []gputest.Draw
	for _, d := range dev.Draws() {
		if d.Indirect {
			out = append(out, d)
		}
	}
	return out
}

func (env *testEnv) commands(d gputest.Draw) []memory.DrawCommand {
	buf := env.dev.Buffer(env.mm.Commands().Handle())
	out := make([]memory.DrawCommand, d.DrawCount)
	for i := range out {
		out[i] = memory.FromBytes[memory.DrawCommand](buf[d.Offset+i*memory.DrawCommandSize:])
	}
	return out
}

func (env *testEnv) instance(i uint32) memory.InstanceData {
	buf := env.dev.Buffer(env.mm.Instances().Handle())
	return memory.FromBytes[memory.InstanceData](buf[int(i)*memory.InstanceDataSize:])
}

func (env *testEnv) execute(t *testing.T, stage Stage) {
	t.Helper()
	_, err := env.ctx.BindTarget(stage.Target())
	require.NoError(t, err)
	require.NoError(t, stage.Execute(env.ctx))
}

func TestSceneBatchesContiguousRuns(t *testing.T) {
	env := newTestEnv(t)
	scene, err := NewSceneStage(env.rm, [4]float32{})
	require.NoError(t, err)

	env.ctx.Renderables = []metadata.Renderable{
		env.renderable(env.cube, env.lit, 0, metadata.StageScene),
		env.renderable(env.plane, env.lit, 1, metadata.StageScene),
		env.renderable(env.cube, env.lit, 2, metadata.StageScene),
		env.renderable(env.cube, env.lit, 3, metadata.StageScene),
	}
	for i := range env.ctx.Renderables {
		scene.Submit(i)
	}
	env.execute(t, scene)

	draws := indirectDraws(env.dev)
	require.Len(t, draws, 1)
	fb, _ := env.rm.Framebuffer(scene.Target())
	assert.Equal(t, fb.Handle, draws[0].Framebuffer)
	assert.Equal(t, int32(memory.DrawCommandSize), draws[0].Stride)

	cmds := env.commands(draws[0])
	require.Len(t, cmds, 2)
	assert.Equal(t, memory.DrawCommand{IndexCount: 36, InstanceCount: 3, FirstIndex: 0, BaseVertex: 0, BaseInstance: 0}, cmds[0])
	assert.Equal(t, memory.DrawCommand{IndexCount: 6, InstanceCount: 1, FirstIndex: 36, BaseVertex: 24, BaseInstance: 3}, cmds[1])

	var xs []float32
	for i := uint32(0); i < 4; i++ {
		xs = append(xs, env.instance(i).Transform.Col(3).X())
	}
	assert.Equal(t, []float32{0, 2, 3, 1}, xs, "instances keep submission order within a run")

	assert.Equal(t, 0, scene.Pending())
	assert.Equal(t, 2, env.ctx.Stats.DrawCommands)
	assert.Equal(t, 4, env.ctx.Stats.Instances)
	assert.Equal(t, 1, env.ctx.Stats.MultiDraws)
}

func TestSceneIssuesOneMultiDrawPerShader(t *testing.T) {
	env := newTestEnv(t)
	unlit, err := env.rm.LoadShaderSource("unlit", testSources)
	require.NoError(t, err)
	scene, err := NewSceneStage(env.rm, [4]float32{})
	require.NoError(t, err)

	env.ctx.Renderables = []metadata.Renderable{
		env.renderable(env.cube, unlit, 0, metadata.StageScene),
		env.renderable(env.cube, env.lit, 1, metadata.StageScene),
		env.renderable(env.plane, unlit, 2, metadata.StageScene),
	}
	for i := range env.ctx.Renderables {
		scene.Submit(i)
	}
	env.execute(t, scene)

	litShader, _ := env.rm.Shader(env.lit)
	unlitShader, _ := env.rm.Shader(unlit)
	draws := indirectDraws(env.dev)
	require.Len(t, draws, 2)
	assert.Equal(t, litShader.Program, draws[0].Program)
	assert.Equal(t, int32(1), draws[0].DrawCount)
	assert.Equal(t, 0, draws[0].Offset)
	assert.Equal(t, unlitShader.Program, draws[1].Program)
	assert.Equal(t, int32(2), draws[1].DrawCount)
	assert.Equal(t, memory.DrawCommandSize, draws[1].Offset)
}

func TestStaleIdsAreSkippedOrSubstituted(t *testing.T) {
	env := newTestEnv(t)
	scene, err := NewSceneStage(env.rm, [4]float32{})
	require.NoError(t, err)

	gone, err := env.rm.LoadMesh(systems.GenerateCube(2, 2, 2, 1, 1, "gone"))
	require.NoError(t, err)
	require.True(t, env.rm.RemoveMesh(gone))

	staleMaterial := env.renderable(env.cube, env.lit, 0, metadata.StageScene)
	staleMaterial.Material = core.NewAssetID(6, 2)
	env.ctx.Renderables = []metadata.Renderable{
		staleMaterial,
		env.renderable(gone, env.lit, 1, metadata.StageScene),
		env.renderable(gone, env.lit, 2, metadata.StageScene),
		env.renderable(env.cube, core.NewAssetID(40, 1), 3, metadata.StageScene),
	}
	for i := range env.ctx.Renderables {
		scene.Submit(i)
	}
	env.execute(t, scene)

	assert.Equal(t, 3, env.ctx.Stats.Skipped)
	assert.Equal(t, 1, env.ctx.Stats.SubstitutedMaterials)
	draws := indirectDraws(env.dev)
	require.Len(t, draws, 1)
	cmds := env.commands(draws[0])
	require.Len(t, cmds, 1)
	assert.Equal(t, uint32(1), cmds[0].InstanceCount)
	assert.Equal(t, env.rm.DefaultMaterial().Index(), env.instance(cmds[0].BaseInstance).MaterialIndex)
}

func TestBatchReuploadsAfterMidBatchWrap(t *testing.T) {
	env := newTestEnv(t)
	scene, err := NewSceneStage(env.rm, [4]float32{})
	require.NoError(t, err)

	// leave room for the cube but not the plane after it
	_, err = env.mm.UploadMesh(core.NewAssetID(100, 0), make([]memory.Vertex, 230), []uint32{0, 1, 2})
	require.NoError(t, err)

	env.ctx.Renderables = []metadata.Renderable{
		env.renderable(env.cube, env.lit, 0, metadata.StageScene),
		env.renderable(env.plane, env.lit, 1, metadata.StageScene),
	}
	scene.Submit(0)
	scene.Submit(1)
	env.execute(t, scene)

	assert.Equal(t, uint64(1), env.mm.Vertices().Wraps())
	draws := indirectDraws(env.dev)
	require.Len(t, draws, 1)
	cmds := env.commands(draws[0])
	require.Len(t, cmds, 2)
	assert.Equal(t, int32(4), cmds[0].BaseVertex, "cube uploaded again after the plane")
	assert.Equal(t, int32(0), cmds[1].BaseVertex, "plane landed at the start of the section")
}

func TestBatchTooLargeForSection(t *testing.T) {
	env := newTestEnv(t)
	scene, err := NewSceneStage(env.rm, [4]float32{})
	require.NoError(t, err)

	var meshes []core.AssetID
	for i := 0; i < 11; i++ {
		id, err := env.rm.LoadMesh(systems.GenerateCube(1, 1, 1, 1, 1, "cube"))
		require.NoError(t, err)
		meshes = append(meshes, id)
	}
	for i, m := range meshes {
		env.ctx.Renderables = append(env.ctx.Renderables, env.renderable(m, env.lit, float32(i), metadata.StageScene))
		scene.Submit(i)
	}
	_, err = env.ctx.BindTarget(scene.Target())
	require.NoError(t, err)
	err = scene.Execute(env.ctx)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, 0, scene.Pending())
}
