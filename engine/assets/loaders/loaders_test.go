package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestShaderLoaderReadsStagePair(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/scene.vert": {Data: []byte("void main() {}")},
		"shaders/scene.frag": {Data: []byte("void main() { }")},
	}
	res, err := (&ShaderLoader{}).Load(fsys, "shaders/scene.vert", nil)
	require.NoError(t, err)
	assert.Equal(t, "scene", res.Name)
	assert.Equal(t, "shaders/scene", res.FullPath)
	assert.Equal(t, metadata.ResourceTypeShader, res.Type)

	src := res.Data.(*metadata.ShaderResourceData)
	assert.Equal(t, "void main() {}", src.Vertex)
	assert.Equal(t, "void main() { }", src.Fragment)
}

func TestShaderLoaderErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"a.vert": {Data: []byte("void main() {}")},
		"b.vert": {Data: []byte("void main() {}")},
		"b.frag": {Data: []byte("  \n")},
	}
	_, err := (&ShaderLoader{}).Load(fsys, "a", nil)
	assert.ErrorIs(t, err, core.ErrShaderSource)
	_, err = (&ShaderLoader{}).Load(fsys, "b", nil)
	assert.ErrorIs(t, err, core.ErrShaderSource)
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTextureLoaderDecodesToRGBA(t *testing.T) {
	fsys := fstest.MapFS{"textures/checker.png": {Data: encodePNG(t)}}

	res, err := (&TextureLoader{}).Load(fsys, "textures/checker.png", &metadata.ImageResourceParams{})
	require.NoError(t, err)
	img := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, uint32(2), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	assert.Equal(t, uint8(4), img.ChannelCount)
	require.Len(t, img.Pixels, 16)
	assert.Equal(t, []byte{255, 0, 0, 255}, img.Pixels[0:4])
	assert.Equal(t, []byte{0, 0, 255, 255}, img.Pixels[8:12])

	res, err = (&TextureLoader{}).Load(fsys, "textures/checker.png", &metadata.ImageResourceParams{FlipY: true})
	require.NoError(t, err)
	flipped := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, []byte{0, 0, 255, 255}, flipped.Pixels[0:4])
	assert.Equal(t, []byte{255, 0, 0, 255}, flipped.Pixels[8:12])
}

func TestTextureLoaderRejectsUnknownFormats(t *testing.T) {
	fsys := fstest.MapFS{"notes.png": {Data: []byte("definitely not an image")}}
	_, err := (&TextureLoader{}).Load(fsys, "notes.png", nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = (&TextureLoader{}).Load(fsys, "missing.png", nil)
	assert.Error(t, err)
}
