package memory

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// MeshRange locates an uploaded mesh inside the current vertex and index
// sections, in the units a DrawCommand expects.
type MeshRange struct {
	BaseVertex int32
	FirstIndex uint32
	IndexCount uint32
}

// MemoryManager owns every GPU region written while drawing a frame:
//
//	vertices, indices, instances, commands  streaming, one section per frame
//	static                                  materials and shadow map, single section
//	frame                                   camera and lights, one section per frame
//	per-draw                                small parameter blocks, single section
//
// The streaming regions and the frame region rotate together in
// AdvanceSections.
type MemoryManager struct {
	device    gpu.Device
	config    Config
	alignment int

	vertices  *RingBuffer
	indices   *RingBuffer
	instances *RingBuffer
	commands  *RingBuffer
	static    *RingBuffer
	frame     *RingBuffer
	perDraw   *RingBuffer
	stream    *VertexStream

	sectionLocks  *FenceLockManager
	sectionFences []gpu.SyncHandle
	frameSection  int

	lightsOffset int
	lightsSize   int
	staticSize   int

	meshCache     map[core.AssetID]MeshRange
	cacheWraps    uint64
	materialCount uint32
}

func NewMemoryManager(device gpu.Device, config Config) (*MemoryManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	alignment := device.Limits().StorageBufferOffsetAlignment
	if alignment < 1 {
		alignment = 1
	}
	policy := config.WaitPolicy()
	mm := &MemoryManager{
		device:        device,
		config:        config,
		alignment:     alignment,
		sectionLocks:  NewFenceLockManager(device, policy),
		sectionFences: make([]gpu.SyncHandle, config.Sections),
		meshCache:     make(map[core.AssetID]MeshRange),
	}

	mm.lightsOffset = AlignUp(CameraDataSize, alignment)
	mm.lightsSize = LightHeaderSize + config.MaxPointLights*PointLightDataSize
	frameSize := AlignUp(mm.lightsOffset+mm.lightsSize, alignment)
	mm.staticSize = StaticHeaderSize + config.MaxMaterials*MaterialDataSize

	specs := []struct {
		dst      **RingBuffer
		target   gpu.BufferTarget
		name     string
		size     int
		sections int
	}{
		{&mm.vertices, gpu.BufferTargetArray, "vertices", AlignDown(config.VertexSectionBytes, VertexSize), config.Sections},
		{&mm.indices, gpu.BufferTargetElementArray, "indices", AlignDown(config.IndexSectionBytes, IndexSize), config.Sections},
		{&mm.instances, gpu.BufferTargetArray, "instances", AlignDown(config.InstanceSectionBytes, InstanceDataSize), config.Sections},
		{&mm.commands, gpu.BufferTargetDrawIndirect, "commands", AlignDown(config.CommandSectionBytes, DrawCommandSize), config.Sections},
		{&mm.static, gpu.BufferTargetShaderStorage, "static", AlignUp(mm.staticSize, alignment), 1},
		{&mm.frame, gpu.BufferTargetShaderStorage, "frame", frameSize, config.Sections},
		{&mm.perDraw, gpu.BufferTargetShaderStorage, "per_draw", AlignUp(config.PerDrawBytes, alignment), 1},
	}
	for _, s := range specs {
		rb, err := NewRingBuffer(device, s.target, s.name, s.size, s.sections, policy)
		if err != nil {
			mm.Destroy()
			err = fmt.Errorf("func NewMemoryManager - %w", err)
			core.LogError(err.Error())
			return nil, err
		}
		*s.dst = rb
	}

	stream, err := NewVertexStream(device, mm.indices,
		StreamSource{Layout: StandardVertexLayout(), Buffer: mm.vertices},
		StreamSource{Layout: InstanceLayout(), Buffer: mm.instances},
	)
	if err != nil {
		mm.Destroy()
		return nil, err
	}
	mm.stream = stream

	SetValueAt(mm.static, StaticHeader{}, 0)
	device.BindBufferRange(gpu.BufferTargetShaderStorage, BindingStatic, mm.static.Handle(), 0, mm.staticSize)
	mm.bindFrameRanges()

	core.LogDebug("memory manager ready: %d sections, storage alignment %d", config.Sections, alignment)
	return mm, nil
}

func (mm *MemoryManager) bindFrameRanges() {
	base := mm.frame.SectionOffset()
	mm.device.BindBufferRange(gpu.BufferTargetShaderStorage, BindingCamera, mm.frame.Handle(), base, CameraDataSize)
	mm.device.BindBufferRange(gpu.BufferTargetShaderStorage, BindingLights, mm.frame.Handle(), base+mm.lightsOffset, mm.lightsSize)
}

func (mm *MemoryManager) streamingWraps() uint64 {
	return mm.vertices.Wraps() + mm.indices.Wraps()
}

// UploadMesh copies a mesh into the current vertex and index sections.
// A mesh is uploaded at most once per section; later calls return the
// cached range until the section rotates or a wrap overwrites it.
func (mm *MemoryManager) UploadMesh(id core.AssetID, vertices []Vertex, indices []uint32) (MeshRange, error) {
	if mm.cacheWraps != mm.streamingWraps() {
		mm.clearMeshCache()
	}
	if r, ok := mm.meshCache[id]; ok {
		return r, nil
	}
	if len(vertices) == 0 || len(indices) == 0 {
		return MeshRange{}, fmt.Errorf("mesh %s has no geometry", id)
	}
	if err := mm.vertices.Reserve(len(vertices) * VertexSize); err != nil {
		return MeshRange{}, fmt.Errorf("mesh %s vertices: %w", id, err)
	}
	vertexOffset := PushSlice(mm.vertices, vertices)
	if err := mm.indices.Reserve(len(indices) * IndexSize); err != nil {
		return MeshRange{}, fmt.Errorf("mesh %s indices: %w", id, err)
	}
	indexOffset := PushSlice(mm.indices, indices)

	if mm.cacheWraps != mm.streamingWraps() {
		mm.clearMeshCache()
	}
	r := MeshRange{
		BaseVertex: int32(vertexOffset / VertexSize),
		FirstIndex: uint32(indexOffset / IndexSize),
		IndexCount: uint32(len(indices)),
	}
	mm.meshCache[id] = r
	return r, nil
}

func (mm *MemoryManager) clearMeshCache() {
	clear(mm.meshCache)
	mm.cacheWraps = mm.streamingWraps()
}

// InvalidateMesh drops a mesh from the upload cache.
func (mm *MemoryManager) InvalidateMesh(id core.AssetID) {
	delete(mm.meshCache, id)
}

// PushInstances appends instance records and returns the base instance of
// the first one.
func (mm *MemoryManager) PushInstances(instances []InstanceData) (uint32, error) {
	if err := mm.instances.Reserve(len(instances) * InstanceDataSize); err != nil {
		return 0, fmt.Errorf("instances: %w", err)
	}
	offset := PushSlice(mm.instances, instances)
	return uint32(offset / InstanceDataSize), nil
}

// PushDrawCommands appends indirect commands and returns their byte offset
// in the command buffer.
func (mm *MemoryManager) PushDrawCommands(commands []DrawCommand) (int, error) {
	if err := mm.commands.Reserve(len(commands) * DrawCommandSize); err != nil {
		return 0, fmt.Errorf("draw commands: %w", err)
	}
	return PushSlice(mm.commands, commands), nil
}

// PushPerDraw reserves an aligned block of per-draw storage, fills it with
// data and returns the block offset.
func (mm *MemoryManager) PushPerDraw(data []byte) (int, error) {
	size := AlignUp(len(data), mm.alignment)
	if err := mm.perDraw.Reserve(size); err != nil {
		return 0, fmt.Errorf("per-draw storage: %w", err)
	}
	block := make([]byte, size)
	copy(block, data)
	return mm.perDraw.Push(block), nil
}

func (mm *MemoryManager) BindPerDraw(offset, size int) {
	mm.device.BindBufferRange(gpu.BufferTargetShaderStorage, BindingPerDraw, mm.perDraw.Handle(), offset, size)
}

// FenceFrameWork fences everything written to the streaming and per-draw
// regions since the last call. Call it after the draws reading them.
func (mm *MemoryManager) FenceFrameWork() {
	mm.vertices.FencePending()
	mm.indices.FencePending()
	mm.instances.FencePending()
	mm.commands.FencePending()
	mm.perDraw.FencePending()
}

func (mm *MemoryManager) SetMaterial(index uint32, material MaterialData) error {
	if int(index) >= mm.config.MaxMaterials {
		return fmt.Errorf("material slot %d out of range (max=%d): %w", index, mm.config.MaxMaterials, core.ErrCapacityExceeded)
	}
	SetValueAt(mm.static, material, StaticHeaderSize+int(index)*MaterialDataSize)
	if index+1 > mm.materialCount {
		mm.materialCount = index + 1
		SetValueAt(mm.static, mm.materialCount, 8)
	}
	return nil
}

func (mm *MemoryManager) SetShadowMapHandle(handle uint64) {
	SetValueAt(mm.static, handle, 0)
}

func (mm *MemoryManager) SetCamera(camera CameraData) {
	SetValueAt(mm.frame, camera, 0)
}

func (mm *MemoryManager) SetSun(sun DirectionalLightData) {
	SetValueAt(mm.frame, sun, mm.lightsOffset)
}

// SetPointLights uploads up to MaxPointLights lights and returns how many
// were written.
func (mm *MemoryManager) SetPointLights(lights []PointLightData) int {
	if len(lights) > mm.config.MaxPointLights {
		core.LogWarn("%d point lights submitted, only %d fit", len(lights), mm.config.MaxPointLights)
		lights = lights[:mm.config.MaxPointLights]
	}
	SetValueAt(mm.frame, uint32(len(lights)), mm.lightsOffset+32)
	if len(lights) > 0 {
		SetSliceAt(mm.frame, lights, mm.lightsOffset+LightHeaderSize)
	}
	return len(lights)
}

// SetSectionLock fences the GPU work issued for the current section.
func (mm *MemoryManager) SetSectionLock() {
	if old := mm.sectionFences[mm.frameSection]; old != 0 {
		mm.device.DeleteSync(old)
	}
	mm.sectionFences[mm.frameSection] = mm.device.FenceSync()
}

// WaitForSectionLock blocks until the GPU finished the frame that last
// used the current section.
func (mm *MemoryManager) WaitForSectionLock() error {
	sync := mm.sectionFences[mm.frameSection]
	if sync == 0 {
		return nil
	}
	mm.sectionFences[mm.frameSection] = 0
	if err := mm.sectionLocks.Wait(sync); err != nil {
		return fmt.Errorf("section %d: %w", mm.frameSection, err)
	}
	return nil
}

// WaitIdle waits for the fence of every section, leaving the GPU done with
// all the work this manager handed it.
func (mm *MemoryManager) WaitIdle() error {
	var first error
	for i, sync := range mm.sectionFences {
		if sync == 0 {
			continue
		}
		mm.sectionFences[i] = 0
		if err := mm.sectionLocks.Wait(sync); err != nil && first == nil {
			first = fmt.Errorf("section %d: %w", i, err)
		}
	}
	return first
}

// AdvanceSections rotates every multi-section region, resets their
// cursors and rebinds the storage ranges whose offsets moved.
func (mm *MemoryManager) AdvanceSections() {
	for _, rb := range []*RingBuffer{mm.vertices, mm.indices, mm.instances, mm.commands, mm.frame} {
		rb.NextSection()
		rb.ResetIndex()
	}
	mm.frameSection = (mm.frameSection + 1) % mm.config.Sections
	mm.clearMeshCache()
	mm.bindFrameRanges()
}

// BindCommands binds the indirect command buffer.
func (mm *MemoryManager) BindCommands() {
	mm.device.BindBuffer(gpu.BufferTargetDrawIndirect, mm.commands.Handle())
}

func (mm *MemoryManager) Stream() *VertexStream { return mm.stream }
func (mm *MemoryManager) Vertices() *RingBuffer  { return mm.vertices }
func (mm *MemoryManager) Indices() *RingBuffer   { return mm.indices }
func (mm *MemoryManager) Instances() *RingBuffer { return mm.instances }
func (mm *MemoryManager) Commands() *RingBuffer  { return mm.commands }
func (mm *MemoryManager) Static() *RingBuffer    { return mm.static }
func (mm *MemoryManager) Frame() *RingBuffer     { return mm.frame }
func (mm *MemoryManager) PerDraw() *RingBuffer   { return mm.perDraw }
func (mm *MemoryManager) Config() Config         { return mm.config }
func (mm *MemoryManager) Alignment() int         { return mm.alignment }
func (mm *MemoryManager) FrameSection() int      { return mm.frameSection }
func (mm *MemoryManager) LightsOffset() int      { return mm.lightsOffset }

// Wraps totals the wrap counters of every region.
func (mm *MemoryManager) Wraps() uint64 {
	var n uint64
	for _, rb := range mm.rings() {
		n += rb.Wraps()
	}
	return n
}

// FenceRetries totals the blocking fence polls of every region.
func (mm *MemoryManager) FenceRetries() uint64 {
	n := mm.sectionLocks.Retries()
	for _, rb := range mm.rings() {
		n += rb.Locks().Retries()
	}
	return n
}

func (mm *MemoryManager) rings() []*RingBuffer {
	out := make([]*RingBuffer, 0, 7)
	for _, rb := range []*RingBuffer{mm.vertices, mm.indices, mm.instances, mm.commands, mm.static, mm.frame, mm.perDraw} {
		if rb != nil {
			out = append(out, rb)
		}
	}
	return out
}

func (mm *MemoryManager) Destroy() {
	if mm.stream != nil {
		mm.stream.Destroy()
		mm.stream = nil
	}
	for i, sync := range mm.sectionFences {
		if sync != 0 {
			mm.device.DeleteSync(sync)
			mm.sectionFences[i] = 0
		}
	}
	for _, rb := range mm.rings() {
		rb.Destroy()
	}
	mm.vertices, mm.indices, mm.instances, mm.commands = nil, nil, nil, nil
	mm.static, mm.frame, mm.perDraw = nil, nil, nil
}
