package metadata

import "github.com/spaghettifunk/lumen/engine/renderer/memory"

// Mesh is CPU-side geometry. It is copied into the streaming vertex and
// index buffers the first time a frame section draws it.
type Mesh struct {
	Name     string
	Vertices []memory.Vertex
	Indices  []uint32
}

func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}
