package systems

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type fixture struct {
	dev  *gputest.Device
	mm   *memory.MemoryManager
	fsys fstest.MapFS
	rm   *ResourcesManager
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := gputest.NewDevice()
	config := memory.DefaultConfig()
	config.Sections = 2
	config.VertexSectionBytes = 4096
	config.IndexSectionBytes = 1024
	config.MaxMaterials = 8
	mm, err := memory.NewMemoryManager(dev, config)
	require.NoError(t, err)

	fsys := fstest.MapFS{
		"shaders/scene.vert":   {Data: []byte("void main() {}")},
		"shaders/scene.frag":   {Data: []byte("out vec4 c; void main() {}")},
		"shaders/broken.vert":  {Data: []byte("#error nope")},
		"shaders/broken.frag":  {Data: []byte("void main() {}")},
		"textures/crate.png":   {Data: pngBytes(t, 4, 2)},
		"textures/corrupt.png": {Data: []byte("garbage")},
	}
	am, err := assets.NewAssetManagerFS(fsys)
	require.NoError(t, err)

	rm, err := NewResourcesManager(dev, mm, am, DefaultResourcesConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		rm.Shutdown()
		mm.Destroy()
	})
	return &fixture{dev: dev, mm: mm, fsys: fsys, rm: rm}
}

func staticMaterial(f *fixture, slot uint32) memory.MaterialData {
	return memory.FromBytes[memory.MaterialData](f.mm.Static().Section()[memory.StaticHeaderSize+int(slot)*memory.MaterialDataSize:])
}

func TestDefaultMaterialOccupiesSlotZero(t *testing.T) {
	f := newFixture(t)
	def := f.rm.DefaultMaterial()
	assert.Equal(t, uint32(0), def.Index())
	assert.Equal(t, float32(0.8), staticMaterial(f, 0).Roughness)

	assert.False(t, f.rm.RemoveMaterial(def))
	slot, ok := f.rm.MaterialSlot(core.NewAssetID(5, 3))
	assert.False(t, ok)
	assert.Equal(t, uint32(0), slot)
}

func TestMaterialLifecycle(t *testing.T) {
	f := newFixture(t)
	tex, err := f.rm.LoadTexture("textures/crate.png", metadata.DefaultTextureConfig())
	require.NoError(t, err)
	texture, _ := f.rm.Texture(tex)

	id, err := f.rm.LoadMaterial(metadata.MaterialConfig{
		Name:          "crate",
		Albedo:        mgl32.Vec4{1, 0, 0, 1},
		Roughness:     0.3,
		AlbedoTexture: tex,
	})
	require.NoError(t, err)
	slot, ok := f.rm.MaterialSlot(id)
	require.True(t, ok)
	assert.Equal(t, id.Index(), slot)
	assert.Equal(t, texture.Resident, staticMaterial(f, slot).AlbedoTexture)

	require.NoError(t, f.rm.UpdateMaterial(id, metadata.MaterialConfig{Name: "crate", Roughness: 0.9, AlbedoTexture: core.InvalidID}))
	assert.Equal(t, float32(0.9), staticMaterial(f, slot).Roughness)
	assert.Zero(t, staticMaterial(f, slot).AlbedoTexture)

	require.True(t, f.rm.RemoveMaterial(id))
	assert.ErrorIs(t, f.rm.UpdateMaterial(id, metadata.MaterialConfig{}), core.ErrStaleHandle)
	assert.Equal(t, float32(0.9), staticMaterial(f, slot).Roughness, "storage keeps the stale data")
}

func TestRemovedTextureIsDetachedFromLiveMaterials(t *testing.T) {
	f := newFixture(t)
	tex, err := f.rm.LoadTexture("textures/crate.png", metadata.DefaultTextureConfig())
	require.NoError(t, err)
	texture, _ := f.rm.Texture(tex)

	crate, err := f.rm.LoadMaterial(metadata.MaterialConfig{Name: "crate", Roughness: 0.3, AlbedoTexture: tex})
	require.NoError(t, err)
	plain, err := f.rm.LoadMaterial(metadata.MaterialConfig{Name: "plain", Roughness: 0.5, AlbedoTexture: core.InvalidID})
	require.NoError(t, err)
	crateSlot, _ := f.rm.MaterialSlot(crate)
	plainSlot, _ := f.rm.MaterialSlot(plain)
	require.Equal(t, texture.Resident, staticMaterial(f, crateSlot).AlbedoTexture)

	require.True(t, f.rm.RemoveTexture(tex))
	assert.Zero(t, staticMaterial(f, crateSlot).AlbedoTexture)
	assert.Equal(t, float32(0.3), staticMaterial(f, crateSlot).Roughness)
	assert.Equal(t, float32(0.5), staticMaterial(f, plainSlot).Roughness)

	for i := 0; i <= f.mm.Config().Sections; i++ {
		f.rm.Collect()
	}
	_, alive := f.dev.Texture(texture.Handle)
	require.False(t, alive)

	material, ok := f.rm.Material(crate)
	require.True(t, ok)
	assert.Zero(t, material.Data.AlbedoTexture)
	assert.Zero(t, staticMaterial(f, crateSlot).AlbedoTexture, "no live material may keep a destroyed texture handle")
}

func TestMaterialPoolFollowsStorageCapacity(t *testing.T) {
	f := newFixture(t)
	for i := 1; i < 8; i++ {
		_, err := f.rm.LoadMaterial(metadata.MaterialConfig{Name: "m"})
		require.NoError(t, err)
	}
	_, err := f.rm.LoadMaterial(metadata.MaterialConfig{Name: "overflow"})
	assert.ErrorIs(t, err, core.ErrPoolExhausted)
}

func TestMeshLifecycle(t *testing.T) {
	f := newFixture(t)
	_, err := f.rm.LoadMesh(&metadata.Mesh{Name: "empty"})
	assert.Error(t, err)
	_, err = f.rm.LoadMesh(&metadata.Mesh{Name: "bad", Vertices: make([]memory.Vertex, 3), Indices: []uint32{0, 1, 3}})
	assert.Error(t, err)

	cube := GenerateCube(1, 1, 1, 1, 1, "cube")
	id, err := f.rm.LoadMesh(cube)
	require.NoError(t, err)
	got, ok := f.rm.Mesh(id)
	require.True(t, ok)
	assert.Same(t, cube, got)

	first, err := f.mm.UploadMesh(id, cube.Vertices, cube.Indices)
	require.NoError(t, err)
	assert.True(t, f.rm.RemoveMesh(id))
	assert.False(t, f.rm.RemoveMesh(id))
	_, ok = f.rm.Mesh(id)
	assert.False(t, ok)

	// the upload cache forgot the mesh, a new upload lands after the old one
	again, err := f.mm.UploadMesh(id, cube.Vertices, cube.Indices)
	require.NoError(t, err)
	assert.Greater(t, again.BaseVertex, first.BaseVertex)
}

func TestShaderLoading(t *testing.T) {
	f := newFixture(t)
	id, err := f.rm.LoadShader("shaders/scene")
	require.NoError(t, err)
	shader, ok := f.rm.Shader(id)
	require.True(t, ok)
	src, ok := f.dev.Program(shader.Program)
	require.True(t, ok)
	assert.Equal(t, "void main() {}", src.Vertex)

	_, err = f.rm.LoadShader("shaders/broken")
	assert.ErrorIs(t, err, gputest.ErrCompile)
	_, err = f.rm.LoadShader("shaders/missing")
	assert.ErrorIs(t, err, core.ErrShaderSource)

	embedded, err := f.rm.LoadShaderSource("unlit", gpu.ShaderSources{Vertex: "v", Fragment: "f"})
	require.NoError(t, err)
	assert.Error(t, f.rm.ReloadShader(embedded), "in-memory shaders cannot reload")
}

func TestShaderHotReload(t *testing.T) {
	f := newFixture(t)
	id, err := f.rm.LoadShader("shaders/scene")
	require.NoError(t, err)
	shader, _ := f.rm.Shader(id)
	old := shader.Program

	f.fsys["shaders/scene.frag"] = &fstest.MapFile{Data: []byte("out vec4 c; void main() { c = vec4(1); }")}
	assert.Equal(t, 0, f.rm.ProcessReloads([]string{"textures/crate.png"}))
	assert.Equal(t, 1, f.rm.ProcessReloads([]string{"shaders/scene.frag", "shaders/scene.vert"}))

	shader, ok := f.rm.Shader(id)
	require.True(t, ok, "id survives reload")
	assert.NotEqual(t, old, shader.Program)
	assert.Equal(t, uint32(1), shader.Generation)
	assert.Contains(t, shader.Sources.Fragment, "vec4(1)")

	// the old program lives until every in-flight frame is done
	_, alive := f.dev.Program(old)
	assert.True(t, alive)
	f.rm.Collect()
	f.rm.Collect()
	_, alive = f.dev.Program(old)
	assert.True(t, alive)
	assert.Equal(t, 1, f.rm.Collect())
	_, alive = f.dev.Program(old)
	assert.False(t, alive)

	// a broken edit keeps the working program
	f.fsys["shaders/scene.frag"] = &fstest.MapFile{Data: []byte("#error typo")}
	assert.Equal(t, 0, f.rm.ProcessReloads([]string{"shaders/scene.frag"}))
	current, _ := f.rm.Shader(id)
	assert.Equal(t, shader.Program, current.Program)
}

func TestTextureLoading(t *testing.T) {
	f := newFixture(t)
	id, err := f.rm.LoadTexture("textures/crate.png", metadata.DefaultTextureConfig())
	require.NoError(t, err)
	tex, _ := f.rm.Texture(id)
	assert.Equal(t, int32(4), tex.Width)
	assert.Equal(t, int32(2), tex.Height)
	assert.NotZero(t, tex.Resident)

	_, err = f.rm.LoadTexture("textures/corrupt.png", metadata.DefaultTextureConfig())
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = f.rm.LoadTexturePixels("", 2, 2, make([]byte, 15), metadata.DefaultTextureConfig())
	assert.Error(t, err)
	anon, err := f.rm.LoadTexturePixels("", 1, 1, []byte{255, 255, 255, 255}, metadata.DefaultTextureConfig())
	require.NoError(t, err)
	named, _ := f.rm.Texture(anon)
	assert.Contains(t, named.Name, "texture-")

	require.True(t, f.rm.RemoveTexture(id))
	_, alive := f.dev.Texture(tex.Handle)
	assert.True(t, alive)
	for i := 0; i < 3; i++ {
		f.rm.Collect()
	}
	_, alive = f.dev.Texture(tex.Handle)
	assert.False(t, alive)
}

func TestLoadTexturesConcurrently(t *testing.T) {
	f := newFixture(t)
	ids, err := f.rm.LoadTextures([]string{"textures/crate.png", "textures/corrupt.png", "textures/crate.png"}, metadata.DefaultTextureConfig())
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	require.Len(t, ids, 3)
	assert.True(t, ids[0].IsValid())
	assert.Equal(t, core.InvalidID, ids[1])
	assert.True(t, ids[2].IsValid())
	assert.NotEqual(t, ids[0], ids[2])
}

func TestFramebufferResize(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rm.ResizeFramebuffers(800, 600))

	half, err := f.rm.LoadFramebuffer(metadata.FramebufferConfig{
		Name:         "bloom",
		Scale:        0.5,
		ColorFormats: []gpu.TextureFormat{gpu.TextureFormatRGBA16F},
	}, true)
	require.NoError(t, err)
	fixed, err := f.rm.LoadFramebuffer(metadata.FramebufferConfig{
		Width:  1024,
		Height: 1024,
		Depth:  true,
	}, false)
	require.NoError(t, err)

	fb, _ := f.rm.Framebuffer(half)
	assert.Equal(t, int32(400), fb.Width)
	assert.Equal(t, int32(300), fb.Height)
	oldHandle, oldColor := fb.Handle, fb.Colors[0]

	require.NoError(t, f.rm.ResizeFramebuffers(1920, 1080))
	fb, ok := f.rm.Framebuffer(half)
	require.True(t, ok)
	assert.Equal(t, int32(960), fb.Width)
	assert.NotEqual(t, oldHandle, fb.Handle)
	desc, ok := f.dev.Texture(fb.Colors[0])
	require.True(t, ok)
	assert.Equal(t, int32(540), desc.Height)

	other, _ := f.rm.Framebuffer(fixed)
	assert.Equal(t, int32(1024), other.Width)
	assert.Contains(t, other.Name, "framebuffer-")
	assert.NotZero(t, other.Depth)

	assert.Equal(t, 1, f.rm.Retired())
	for i := 0; i < 3; i++ {
		f.rm.Collect()
	}
	_, alive := f.dev.Framebuffer(oldHandle)
	assert.False(t, alive)
	_, alive = f.dev.Texture(oldColor)
	assert.False(t, alive)

	require.True(t, f.rm.RemoveFramebuffer(half))
	require.NoError(t, f.rm.ResizeFramebuffers(640, 480))
	assert.Error(t, f.rm.ResizeFramebuffer(half, 10, 10))

	counts := f.rm.Counts()
	assert.Equal(t, 1, counts.Framebuffers)
	assert.Equal(t, 1, counts.Materials)
}
