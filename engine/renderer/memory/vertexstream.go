package memory

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type VertexAttribute struct {
	Name       string
	Location   uint32
	Components int32
	Format     gpu.VertexFormat
	// Offset is computed by NewVertexLayout.
	Offset uint32
}

func (a VertexAttribute) size() uint32 {
	return uint32(a.Components) * 4
}

// VertexLayout is an ordered, tightly packed attribute list for one vertex
// buffer binding. Divisor 0 advances per vertex, 1 per instance.
type VertexLayout struct {
	Attributes []VertexAttribute
	Stride     uint32
	Divisor    uint32
}

func NewVertexLayout(divisor uint32, attributes ...VertexAttribute) VertexLayout {
	layout := VertexLayout{
		Attributes: make([]VertexAttribute, len(attributes)),
		Divisor:    divisor,
	}
	offset := uint32(0)
	for i, a := range attributes {
		a.Offset = offset
		offset += a.size()
		layout.Attributes[i] = a
	}
	layout.Stride = offset
	return layout
}

// Validate checks that offsets increase monotonically and that the
// attribute sizes add up to the stride.
func (l VertexLayout) Validate() error {
	if len(l.Attributes) == 0 {
		return fmt.Errorf("vertex layout has no attributes")
	}
	expected := uint32(0)
	for _, a := range l.Attributes {
		if a.Components < 1 || a.Components > 4 {
			return fmt.Errorf("attribute %s: %d components", a.Name, a.Components)
		}
		if a.Offset != expected {
			return fmt.Errorf("attribute %s at offset %d, want %d", a.Name, a.Offset, expected)
		}
		expected += a.size()
	}
	if expected != l.Stride {
		return fmt.Errorf("attributes cover %d bytes, stride is %d", expected, l.Stride)
	}
	return nil
}

// StandardVertexLayout matches Vertex: position, normal, uv.
func StandardVertexLayout() VertexLayout {
	return NewVertexLayout(0,
		VertexAttribute{Name: "position", Location: 0, Components: 3, Format: gpu.VertexFormatFloat32},
		VertexAttribute{Name: "normal", Location: 1, Components: 3, Format: gpu.VertexFormatFloat32},
		VertexAttribute{Name: "uv", Location: 2, Components: 2, Format: gpu.VertexFormatFloat32},
	)
}

// InstanceLayout matches InstanceData: material index then four matrix columns.
func InstanceLayout() VertexLayout {
	return NewVertexLayout(1,
		VertexAttribute{Name: "material", Location: 3, Components: 1, Format: gpu.VertexFormatUint32},
		VertexAttribute{Name: "transform0", Location: 4, Components: 4, Format: gpu.VertexFormatFloat32},
		VertexAttribute{Name: "transform1", Location: 5, Components: 4, Format: gpu.VertexFormatFloat32},
		VertexAttribute{Name: "transform2", Location: 6, Components: 4, Format: gpu.VertexFormatFloat32},
		VertexAttribute{Name: "transform3", Location: 7, Components: 4, Format: gpu.VertexFormatFloat32},
	)
}

type streamBinding struct {
	layout VertexLayout
	buffer *RingBuffer
}

// VertexStream binds ring buffers to a vertex array: binding i is the i-th
// source passed to NewVertexStream. Buffers are bound at offset zero, so
// draws address sections through base vertex, base instance and first index.
type VertexStream struct {
	device   gpu.Device
	vao      gpu.VertexArrayHandle
	bindings []streamBinding
	indices  *RingBuffer
}

type StreamSource struct {
	Layout VertexLayout
	Buffer *RingBuffer
}

func NewVertexStream(device gpu.Device, indices *RingBuffer, sources ...StreamSource) (*VertexStream, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("vertex stream needs at least one source")
	}
	desc := gpu.VertexArrayDesc{}
	stream := &VertexStream{device: device, indices: indices}
	for i, src := range sources {
		if err := src.Layout.Validate(); err != nil {
			return nil, fmt.Errorf("vertex stream binding %d: %w", i, err)
		}
		if src.Buffer.SectionSize()%int(src.Layout.Stride) != 0 {
			return nil, fmt.Errorf("vertex stream binding %d: section size %d is not a multiple of stride %d", i, src.Buffer.SectionSize(), src.Layout.Stride)
		}
		binding := uint32(i)
		desc.Buffers = append(desc.Buffers, gpu.VertexBufferDesc{
			Binding: binding,
			Buffer:  src.Buffer.Handle(),
			Stride:  int32(src.Layout.Stride),
			Divisor: src.Layout.Divisor,
		})
		for _, a := range src.Layout.Attributes {
			desc.Attributes = append(desc.Attributes, gpu.VertexAttributeDesc{
				Location:   a.Location,
				Binding:    binding,
				Components: a.Components,
				Format:     a.Format,
				Offset:     a.Offset,
			})
		}
		stream.bindings = append(stream.bindings, streamBinding{layout: src.Layout, buffer: src.Buffer})
	}
	if indices != nil {
		desc.IndexBuffer = indices.Handle()
	}
	vao, err := device.CreateVertexArray(desc)
	if err != nil {
		return nil, err
	}
	stream.vao = vao
	return stream, nil
}

func (vs *VertexStream) Handle() gpu.VertexArrayHandle {
	return vs.vao
}

func (vs *VertexStream) Layout(binding int) VertexLayout {
	return vs.bindings[binding].layout
}

func (vs *VertexStream) Bind() {
	vs.device.BindVertexArray(vs.vao)
}

func (vs *VertexStream) Destroy() {
	vs.device.DeleteVertexArray(vs.vao)
}
