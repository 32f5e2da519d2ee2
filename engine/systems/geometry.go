package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/** @brief The name of the default geometry. */
const DefaultGeometryName string = "default"

func nonZero(name string, v float32) float32 {
	if v == 0 {
		core.LogWarn("%s must be nonzero. Defaulting to one.", name)
		return 1
	}
	return v
}

/**
 * @brief Generates a plane on the XZ axes facing +Y, split into
 * xSegmentCount by zSegmentCount quads.
 *
 * @param tileX The number of times the texture should tile across the plane on the x-axis.
 * @param tileY The number of times the texture should tile across the plane on the z-axis.
 */
func GeneratePlane(width, depth float32, xSegmentCount, zSegmentCount uint32, tileX, tileY float32, name string) *metadata.Mesh {
	width = nonZero("Width", width)
	depth = nonZero("Depth", depth)
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if zSegmentCount < 1 {
		core.LogWarn("zSegmentCount must be a positive number. Defaulting to one.")
		zSegmentCount = 1
	}

	mesh := &metadata.Mesh{
		Name:     meshName(name),
		Vertices: make([]memory.Vertex, 0, xSegmentCount*zSegmentCount*4),
		Indices:  make([]uint32, 0, xSegmentCount*zSegmentCount*6),
	}
	segWidth := width / float32(xSegmentCount)
	segDepth := depth / float32(zSegmentCount)
	up := mgl32.Vec3{0, 1, 0}
	for z := uint32(0); z < zSegmentCount; z++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := float32(x)*segWidth - width*0.5
			minZ := float32(z)*segDepth - depth*0.5
			minU := float32(x) / float32(xSegmentCount) * tileX
			minV := float32(z) / float32(zSegmentCount) * tileY
			maxU := float32(x+1) / float32(xSegmentCount) * tileX
			maxV := float32(z+1) / float32(zSegmentCount) * tileY

			base := uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices,
				memory.Vertex{Position: mgl32.Vec3{minX, 0, minZ + segDepth}, Normal: up, UV: mgl32.Vec2{minU, minV}},
				memory.Vertex{Position: mgl32.Vec3{minX + segWidth, 0, minZ + segDepth}, Normal: up, UV: mgl32.Vec2{maxU, minV}},
				memory.Vertex{Position: mgl32.Vec3{minX + segWidth, 0, minZ}, Normal: up, UV: mgl32.Vec2{maxU, maxV}},
				memory.Vertex{Position: mgl32.Vec3{minX, 0, minZ}, Normal: up, UV: mgl32.Vec2{minU, maxV}},
			)
			mesh.Indices = append(mesh.Indices, base, base+1, base+2, base+2, base+3, base)
		}
	}
	return mesh
}

// cubeFaces lists each face as its normal and the two in-plane axes,
// chosen so that u x v equals the normal and faces wind counter-clockwise.
var cubeFaces = [6]struct {
	normal, u, v mgl32.Vec3
}{
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
}

func GenerateCube(width, height, depth, tileX, tileY float32, name string) *metadata.Mesh {
	half := mgl32.Vec3{
		nonZero("Width", width) * 0.5,
		nonZero("Height", height) * 0.5,
		nonZero("Depth", depth) * 0.5,
	}
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)

	mesh := &metadata.Mesh{
		Name:     meshName(name),
		Vertices: make([]memory.Vertex, 0, 4*6),
		Indices:  make([]uint32, 0, 6*6),
	}
	corners := [4]struct{ su, sv, u, v float32 }{
		{-1, -1, 0, 0},
		{1, -1, tileX, 0},
		{1, 1, tileX, tileY},
		{-1, 1, 0, tileY},
	}
	for _, f := range cubeFaces {
		base := uint32(len(mesh.Vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c.su)).Add(f.v.Mul(c.sv))
			mesh.Vertices = append(mesh.Vertices, memory.Vertex{
				Position: mgl32.Vec3{p.X() * half.X(), p.Y() * half.Y(), p.Z() * half.Z()},
				Normal:   f.normal,
				UV:       mgl32.Vec2{c.u, c.v},
			})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return mesh
}

// GenerateSkyCube builds a unit cube seen from the inside: normals point
// inwards and triangles are wound clockwise when viewed from outside.
func GenerateSkyCube(name string) *metadata.Mesh {
	mesh := GenerateCube(2, 2, 2, 1, 1, name)
	for i := range mesh.Vertices {
		mesh.Vertices[i].Normal = mesh.Vertices[i].Normal.Mul(-1)
	}
	for i := 0; i < len(mesh.Indices); i += 3 {
		mesh.Indices[i+1], mesh.Indices[i+2] = mesh.Indices[i+2], mesh.Indices[i+1]
	}
	return mesh
}

func meshName(name string) string {
	if len(name) > 0 {
		return name
	}
	return DefaultGeometryName
}
