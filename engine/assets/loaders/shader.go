package loaders

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	VertexShaderExt   = ".vert"
	FragmentShaderExt = ".frag"
)

// ShaderLoader reads the <base>.vert and <base>.frag pair for a base path.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(fsys fs.FS, base string, params interface{}) (*metadata.Resource, error) {
	base = strings.TrimSuffix(strings.TrimSuffix(base, VertexShaderExt), FragmentShaderExt)
	vertex, err := readStage(fsys, base+VertexShaderExt)
	if err != nil {
		return nil, err
	}
	fragment, err := readStage(fsys, base+FragmentShaderExt)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeShader,
		Name:     path.Base(base),
		FullPath: base,
		DataSize: uint64(len(vertex) + len(fragment)),
		Data: &metadata.ShaderResourceData{
			Vertex:   vertex,
			Fragment: fragment,
		},
	}, nil
}

func readStage(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", core.ErrShaderSource, name, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("%w: %s is empty", core.ErrShaderSource, name)
	}
	return string(data), nil
}

func (sl *ShaderLoader) Unload(*metadata.Resource) error {
	return nil
}
