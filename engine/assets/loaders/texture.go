package loaders

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"path"

	// Decoders registered with image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// TextureLoader decodes an image into tightly packed RGBA8 pixels.
type TextureLoader struct{}

func (tl *TextureLoader) Load(fsys fs.FS, name string, params interface{}) (*metadata.Resource, error) {
	flipY := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flipY = p.FlipY
	}

	file, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, name)
		}
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	core.LogDebug("decoded %s image %s", format, name)

	data := toRGBA(img, flipY)
	return &metadata.Resource{
		Type:     metadata.ResourceTypeImage,
		Name:     path.Base(name),
		FullPath: name,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func toRGBA(img image.Image, flipY bool) *metadata.ImageResourceData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	pixels := rgba.Pix
	if flipY {
		pixels = flipRows(pixels, rgba.Stride, bounds.Dy())
	}
	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		Pixels:       pixels,
	}
}

func flipRows(pixels []byte, stride, rows int) []byte {
	out := make([]byte, len(pixels))
	for y := 0; y < rows; y++ {
		copy(out[y*stride:(y+1)*stride], pixels[(rows-1-y)*stride:(rows-y)*stride])
	}
	return out
}

func (tl *TextureLoader) Unload(res *metadata.Resource) error {
	if res != nil {
		res.Data = nil
	}
	return nil
}
