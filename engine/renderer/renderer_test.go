package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

func testConfig() Config {
	config := DefaultConfig()
	config.Memory.Sections = 2
	config.Memory.VertexSectionBytes = memory.VertexSize * 256
	config.Memory.IndexSectionBytes = memory.IndexSize * 512
	config.Memory.InstanceSectionBytes = memory.InstanceDataSize * 64
	config.Memory.CommandSectionBytes = memory.DrawCommandSize * 64
	config.Memory.PerDrawBytes = 16 << 10
	config.Memory.MaxMaterials = 8
	config.Memory.MaxPointLights = 4
	config.Memory.FenceTimeoutNs = 1000
	config.Memory.FenceMaxRetries = 3
	config.ShadowMapSize = 256
	config.EnabledStages = nil
	return config
}

type fixture struct {
	dev    *gputest.Device
	r      *Renderer
	camera *components.Camera
	cube   core.AssetID
	lit    core.AssetID
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	dev := gputest.NewDevice()
	r, err := New(dev, nil, config, 320, 240)
	require.NoError(t, err)
	t.Cleanup(func() { r.Shutdown() })

	f := &fixture{dev: dev, r: r, camera: components.NewCamera()}
	f.camera.SetPosition(mgl32.Vec3{0, 2, 5})
	f.cube, err = r.Resources().LoadMesh(systems.GenerateCube(1, 1, 1, 1, 1, "cube"))
	require.NoError(t, err)
	f.lit, err = r.Resources().LoadShaderSource("lit", gpu.ShaderSources{Vertex: "void main() {}", Fragment: "void main() {}"})
	require.NoError(t, err)
	return f
}

func (f *fixture) renderable(x float32, stages metadata.StageMask) metadata.Renderable {
	return metadata.Renderable{
		Mesh:      f.cube,
		Material:  f.r.Resources().DefaultMaterial(),
		Shader:    f.lit,
		Transform: mgl32.Translate3D(x, 0, 0),
		Stages:    stages,
	}
}

func (f *fixture) frame(t *testing.T, renderables ...metadata.Renderable) error {
	t.Helper()
	require.NoError(t, f.r.Begin(f.camera))
	for _, r := range renderables {
		require.NoError(t, f.r.Draw(r))
	}
	return f.r.End()
}

func TestFrameStateErrors(t *testing.T) {
	f := newFixture(t, testConfig())

	assert.ErrorIs(t, f.r.Draw(f.renderable(0, metadata.StageScene)), core.ErrFrameNotBegun)
	assert.ErrorIs(t, f.r.End(), core.ErrFrameNotBegun)
	assert.ErrorIs(t, f.r.AddPointLight(PointLight{}), core.ErrFrameNotBegun)

	require.NoError(t, f.r.Begin(f.camera))
	assert.ErrorIs(t, f.r.Begin(f.camera), core.ErrFrameInProgress)
	assert.True(t, f.r.InFrame())
	require.NoError(t, f.r.End())
	assert.False(t, f.r.InFrame())
	assert.ErrorIs(t, f.r.End(), core.ErrFrameNotBegun)
	assert.Equal(t, uint64(1), f.r.Frame())
}

func TestFrameRotatesSections(t *testing.T) {
	f := newFixture(t, testConfig())
	mm := f.r.Memory()

	require.Equal(t, 0, mm.FrameSection())
	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageScene|metadata.StageShadow)))
	assert.Equal(t, 1, mm.FrameSection())
	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageScene)))
	assert.Equal(t, 0, mm.FrameSection())

	stats := f.r.Stats()
	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, 1, stats.Renderables)
	assert.Equal(t, 1, stats.DrawCommands)
	assert.Equal(t, 1, stats.Instances)
	assert.Greater(t, stats.FullscreenDraws, 0)
	assert.Greater(t, stats.StateSkipped, uint64(0))
}

func TestFrameUploadsCameraAndLights(t *testing.T) {
	f := newFixture(t, testConfig())
	mm := f.r.Memory()
	f.r.SetSun(DirectionalLight{Direction: mgl32.Vec3{0, -2, 0}, Colour: mgl32.Vec3{1, 0.5, 0.25}, Intensity: 3})

	require.NoError(t, f.r.Begin(f.camera))
	for i := 0; i < 6; i++ {
		require.NoError(t, f.r.AddPointLight(PointLight{Position: mgl32.Vec3{float32(i), 1, 0}, Radius: 4, Colour: mgl32.Vec3{1, 1, 1}, Intensity: 2}))
	}
	require.NoError(t, f.r.End())

	buf := f.dev.Buffer(mm.Frame().Handle())
	camera := memory.FromBytes[memory.CameraData](buf)
	assert.Equal(t, mgl32.Vec4{0, 2, 5, 1}, camera.Position)
	assert.True(t, camera.ViewProjection.ApproxEqual(camera.Projection.Mul4(camera.View)))
	assert.NotEqual(t, mgl32.Mat4{}, camera.LightSpace)

	header := memory.FromBytes[memory.LightHeader](buf[mm.LightsOffset():])
	assert.Equal(t, mgl32.Vec4{0, -1, 0, 0}, header.Sun.Direction)
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.25, 3}, header.Sun.Colour)
	assert.Equal(t, uint32(4), header.PointLightCount, "lights past the limit are dropped")

	last := memory.FromBytes[memory.PointLightData](buf[mm.LightsOffset()+memory.LightHeaderSize+3*memory.PointLightDataSize:])
	assert.Equal(t, mgl32.Vec4{3, 1, 0, 4}, last.PositionRadius)
	assert.Equal(t, 4, f.r.Stats().PointLights)
}

func TestDrawFiltersStaleIds(t *testing.T) {
	f := newFixture(t, testConfig())
	gone, err := f.r.Resources().LoadMesh(systems.GenerateCube(2, 2, 2, 1, 1, "gone"))
	require.NoError(t, err)
	require.True(t, f.r.Resources().RemoveMesh(gone))

	staleMesh := f.renderable(0, metadata.StageScene)
	staleMesh.Mesh = gone
	staleShader := f.renderable(1, metadata.StageScene)
	staleShader.Shader = core.NewAssetID(50, 3)
	// shadow-only draws use the built-in shader
	shadowOnly := f.renderable(2, metadata.StageShadow)
	shadowOnly.Shader = core.NewAssetID(50, 3)

	require.NoError(t, f.frame(t, staleMesh, staleShader, shadowOnly, f.renderable(3, metadata.StageScene)))
	stats := f.r.Stats()
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, stats.Renderables)
}

func TestDrawToDisabledStagesIsDropped(t *testing.T) {
	config := testConfig()
	config.EnabledStages = []string{"scene", "post_process"}
	f := newFixture(t, config)

	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageDebug), f.renderable(1, metadata.StageScene)))
	assert.Equal(t, 1, f.r.Stats().Renderables)
	assert.Equal(t, 1, f.r.Stats().MultiDraws)
}

func TestStageToggles(t *testing.T) {
	f := newFixture(t, testConfig())
	assert.True(t, f.r.IsEnabled(metadata.StageAll))

	f.r.ToggleStages(metadata.StageDebug)
	assert.False(t, f.r.IsEnabled(metadata.StageDebug))
	assert.True(t, f.r.IsEnabled(metadata.StageBloom))

	f.r.ToggleStages(metadata.StageDebug | metadata.StageBloom)
	assert.True(t, f.r.IsEnabled(metadata.StageDebug))
	assert.False(t, f.r.IsEnabled(metadata.StageBloom))

	f.r.DisableStages(metadata.StageDebug)
	f.r.EnableStages(metadata.StageBloom)
	assert.False(t, f.r.IsEnabled(metadata.StageDebug))
	assert.True(t, f.r.IsEnabled(metadata.StageBloom))
}

func TestEndFailsWhenSectionFenceNeverSignals(t *testing.T) {
	f := newFixture(t, testConfig())
	f.dev.HoldFences(true)

	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageScene)))
	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageScene)))
	err := f.frame(t, f.renderable(0, metadata.StageScene))
	assert.ErrorIs(t, err, core.ErrFenceTimeout)
	assert.False(t, f.r.InFrame())

	f.dev.HoldFences(false)
	f.dev.SignalAll()
	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageScene)))
	assert.Greater(t, f.r.Stats().FenceRetries, uint64(0))
}

func TestResizeFollowsWindow(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.r.Resize(640, 480))
	require.NoError(t, f.r.Resize(0, 0))
	w, h := f.r.Size()
	assert.Equal(t, int32(640), w)
	assert.Equal(t, int32(480), h)

	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageScene)))
	assert.Equal(t, [4]int32{0, 0, 640, 480}, f.dev.CurrentViewport())
}

func TestShutdownReleasesEverything(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.frame(t, f.renderable(0, metadata.StageScene|metadata.StageShadow)))
	frameBuffer := f.r.Memory().Frame().Handle()

	require.NoError(t, f.r.Begin(f.camera))
	require.NoError(t, f.r.Shutdown())
	assert.Nil(t, f.dev.Buffer(frameBuffer))
	assert.Equal(t, 0, f.dev.LiveFences())
	assert.Nil(t, f.r.Memory())
	require.NoError(t, f.r.Shutdown())
}

func TestConfigValidate(t *testing.T) {
	mask, err := testConfig().Validate()
	require.NoError(t, err)
	assert.Equal(t, metadata.StageAll, mask)

	config := testConfig()
	config.EnabledStages = []string{"scene", "bloom"}
	mask, err = config.Validate()
	require.NoError(t, err)
	assert.Equal(t, metadata.StageScene|metadata.StageBloom, mask)

	config.EnabledStages = []string{"volumetrics"}
	_, err = config.Validate()
	assert.Error(t, err)

	config = testConfig()
	config.ShadowMapSize = 0
	_, err = config.Validate()
	assert.Error(t, err)
}
