package memory

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/constraints"
)

// Every struct in this file is copied byte for byte into mapped GPU memory.
// Field order, sizes and explicit padding match the std430 blocks and
// vertex formats declared in the shaders.

// DrawCommand is the GPU's DrawElementsIndirectCommand.
type DrawCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	BaseInstance  uint32
}

const DrawCommandSize = int(unsafe.Sizeof(DrawCommand{}))

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

const VertexSize = int(unsafe.Sizeof(Vertex{}))

// InstanceData is consumed as per-instance vertex attributes; the transform
// occupies four vec4 locations.
type InstanceData struct {
	MaterialIndex uint32
	Transform     mgl32.Mat4
}

const InstanceDataSize = int(unsafe.Sizeof(InstanceData{}))

const IndexSize = 4

type MaterialData struct {
	Albedo        mgl32.Vec4
	Emissive      mgl32.Vec3
	Metallic      float32
	Roughness     float32
	_             uint32
	AlbedoTexture uint64
}

const MaterialDataSize = int(unsafe.Sizeof(MaterialData{}))

// StaticHeader opens the static storage block, followed by MaterialData[].
type StaticHeader struct {
	ShadowMap     uint64
	MaterialCount uint32
	_             uint32
}

const StaticHeaderSize = int(unsafe.Sizeof(StaticHeader{}))

type CameraData struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewProjection mgl32.Mat4
	LightSpace     mgl32.Mat4
	Position       mgl32.Vec4
	Direction      mgl32.Vec4
}

const CameraDataSize = int(unsafe.Sizeof(CameraData{}))

type DirectionalLightData struct {
	Direction mgl32.Vec4
	Colour    mgl32.Vec4
}

// LightHeader opens the light block, followed by PointLightData[].
type LightHeader struct {
	Sun             DirectionalLightData
	PointLightCount uint32
	_               [3]uint32
}

const LightHeaderSize = int(unsafe.Sizeof(LightHeader{}))

type PointLightData struct {
	PositionRadius  mgl32.Vec4
	ColourIntensity mgl32.Vec4
}

const PointLightDataSize = int(unsafe.Sizeof(PointLightData{}))

// AsBytes reinterprets items as their raw in-memory bytes without copying.
func AsBytes[T any](items []T) []byte {
	if len(items) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&items[0])), len(items)*int(unsafe.Sizeof(zero)))
}

// ValueBytes returns the raw bytes of a single value.
func ValueBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

// FromBytes decodes a T stored at the start of b.
func FromBytes[T any](b []byte) T {
	var v T
	copy(ValueBytes(&v), b)
	return v
}

func AlignUp[T constraints.Integer](value, alignment T) T {
	if alignment <= 1 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

func AlignDown[T constraints.Integer](value, alignment T) T {
	if alignment <= 1 {
		return value
	}
	return value / alignment * alignment
}
