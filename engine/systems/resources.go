package systems

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/** @brief The resources manager configuration. */
type ResourcesConfig struct {
	MaxMeshes       int `toml:"max_meshes"`
	MaxShaders      int `toml:"max_shaders"`
	MaxTextures     int `toml:"max_textures"`
	MaxFramebuffers int `toml:"max_framebuffers"`
	/** @brief Number of goroutines decoding textures for LoadTextures. */
	LoaderWorkers int `toml:"loader_workers"`
}

func DefaultResourcesConfig() ResourcesConfig {
	return ResourcesConfig{
		MaxMeshes:       4096,
		MaxShaders:      256,
		MaxTextures:     1024,
		MaxFramebuffers: 64,
		LoaderWorkers:   2,
	}
}

type retired struct {
	frame   uint64
	name    string
	destroy func()
}

// ResourcesManager owns the mesh, material, shader, texture and
// framebuffer pools. GPU objects behind removed ids are destroyed only
// after every frame that could still read them has completed.
type ResourcesManager struct {
	device gpu.Device
	memory *memory.MemoryManager
	assets *assets.AssetManager
	jobs   *JobSystem

	meshes       *Pool[*metadata.Mesh]
	materials    *Pool[*metadata.Material]
	shaders      *Pool[*metadata.Shader]
	textures     *Pool[*metadata.Texture]
	framebuffers *Pool[*metadata.Framebuffer]

	defaultMaterial core.AssetID
	autoResize      []core.AssetID
	width           int32
	height          int32

	graveyard []retired
	frame     uint64
	latency   uint64
}

// NewResourcesManager creates the pools and the default material. am may
// be nil, in which case only in-memory resources can be loaded.
func NewResourcesManager(device gpu.Device, mm *memory.MemoryManager, am *assets.AssetManager, config ResourcesConfig) (*ResourcesManager, error) {
	if config.LoaderWorkers <= 0 {
		config.LoaderWorkers = 1
	}
	jobs, err := NewJobSystem(config.LoaderWorkers, config.LoaderWorkers*2)
	if err != nil {
		return nil, err
	}
	rm := &ResourcesManager{
		device:       device,
		memory:       mm,
		assets:       am,
		jobs:         jobs,
		meshes:       NewPool[*metadata.Mesh]("mesh", config.MaxMeshes),
		materials:    NewPool[*metadata.Material]("material", mm.Config().MaxMaterials),
		shaders:      NewPool[*metadata.Shader]("shader", config.MaxShaders),
		textures:     NewPool[*metadata.Texture]("texture", config.MaxTextures),
		framebuffers: NewPool[*metadata.Framebuffer]("framebuffer", config.MaxFramebuffers),
		latency:      uint64(mm.Config().Sections),
	}
	rm.defaultMaterial, err = rm.LoadMaterial(metadata.DefaultMaterialConfig())
	if err != nil {
		jobs.Shutdown()
		return nil, err
	}
	return rm, nil
}

func (rm *ResourcesManager) DefaultMaterial() core.AssetID {
	return rm.defaultMaterial
}

// retire schedules destroy to run once the current frame has left the GPU.
func (rm *ResourcesManager) retire(name string, destroy func()) {
	rm.graveyard = append(rm.graveyard, retired{frame: rm.frame, name: name, destroy: destroy})
}

// Collect advances the frame counter and destroys GPU objects retired
// more than Sections frames ago. Call it once per frame after the section
// fence wait.
func (rm *ResourcesManager) Collect() int {
	rm.frame++
	kept := rm.graveyard[:0]
	destroyed := 0
	for _, r := range rm.graveyard {
		if rm.frame-r.frame > rm.latency {
			r.destroy()
			destroyed++
			core.LogDebug("destroyed retired %s", r.name)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(rm.graveyard); i++ {
		rm.graveyard[i] = retired{}
	}
	rm.graveyard = kept
	return destroyed
}

// Retired is the number of GPU objects waiting for destruction.
func (rm *ResourcesManager) Retired() int {
	return len(rm.graveyard)
}

// --- meshes ---

func (rm *ResourcesManager) LoadMesh(mesh *metadata.Mesh) (core.AssetID, error) {
	if mesh == nil || len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return core.InvalidID, errors.New("func LoadMesh - mesh has no geometry")
	}
	for _, i := range mesh.Indices {
		if int(i) >= len(mesh.Vertices) {
			return core.InvalidID, fmt.Errorf("func LoadMesh - mesh %s index %d out of range (%d vertices)", mesh.Name, i, len(mesh.Vertices))
		}
	}
	id, err := rm.meshes.Load(mesh)
	if err != nil {
		return core.InvalidID, err
	}
	core.LogDebug("loaded mesh %s as %s", mesh.Name, id)
	return id, nil
}

func (rm *ResourcesManager) Mesh(id core.AssetID) (*metadata.Mesh, bool) {
	return rm.meshes.Borrow(id)
}

func (rm *ResourcesManager) RemoveMesh(id core.AssetID) bool {
	if _, ok := rm.meshes.Remove(id); !ok {
		return false
	}
	rm.memory.InvalidateMesh(id)
	return true
}

// --- materials ---

func (rm *ResourcesManager) materialData(config metadata.MaterialConfig) memory.MaterialData {
	data := memory.MaterialData{
		Albedo:    config.Albedo,
		Emissive:  config.Emissive,
		Metallic:  config.Metallic,
		Roughness: config.Roughness,
	}
	if config.AlbedoTexture.IsValid() {
		if tex, ok := rm.textures.Borrow(config.AlbedoTexture); ok {
			data.AlbedoTexture = tex.Resident
		} else {
			core.LogWarn("material %s references stale texture %s", config.Name, config.AlbedoTexture)
		}
	}
	return data
}

// LoadMaterial stores a material and uploads it to static storage. The
// storage slot is the id's index.
func (rm *ResourcesManager) LoadMaterial(config metadata.MaterialConfig) (core.AssetID, error) {
	material := &metadata.Material{
		Name:          config.Name,
		AlbedoTexture: config.AlbedoTexture,
		Data:          rm.materialData(config),
	}
	id, err := rm.materials.Load(material)
	if err != nil {
		return core.InvalidID, err
	}
	material.Slot = id.Index()
	if err := rm.memory.SetMaterial(material.Slot, material.Data); err != nil {
		rm.materials.Remove(id)
		return core.InvalidID, err
	}
	core.LogDebug("loaded material %s into slot %d", config.Name, material.Slot)
	return id, nil
}

// UpdateMaterial rewrites a live material in place.
func (rm *ResourcesManager) UpdateMaterial(id core.AssetID, config metadata.MaterialConfig) error {
	material, ok := rm.materials.Borrow(id)
	if !ok {
		return fmt.Errorf("material %s: %w", id, core.ErrStaleHandle)
	}
	material.Name = config.Name
	material.AlbedoTexture = config.AlbedoTexture
	material.Data = rm.materialData(config)
	return rm.memory.SetMaterial(material.Slot, material.Data)
}

func (rm *ResourcesManager) Material(id core.AssetID) (*metadata.Material, bool) {
	return rm.materials.Borrow(id)
}

// MaterialSlot resolves a material id to its storage slot, falling back to
// the default material for stale ids. The bool reports whether id was live.
func (rm *ResourcesManager) MaterialSlot(id core.AssetID) (uint32, bool) {
	if material, ok := rm.materials.Borrow(id); ok {
		return material.Slot, true
	}
	return rm.defaultMaterial.Index(), false
}

// RemoveMaterial invalidates id. Its storage slot keeps the old data until
// the slot is reused. The default material cannot be removed.
func (rm *ResourcesManager) RemoveMaterial(id core.AssetID) bool {
	if id == rm.defaultMaterial {
		core.LogWarn("the default material cannot be removed")
		return false
	}
	_, ok := rm.materials.Remove(id)
	return ok
}

// --- shaders ---

// LoadShader compiles the <name>.vert and <name>.frag pair from the asset
// directory. The program is rebuilt by ProcessReloads when either changes.
func (rm *ResourcesManager) LoadShader(name string) (core.AssetID, error) {
	if rm.assets == nil {
		return core.InvalidID, fmt.Errorf("func LoadShader - no asset manager to load %s from: %w", name, core.ErrShaderSource)
	}
	sources, err := rm.readShader(name)
	if err != nil {
		return core.InvalidID, err
	}
	return rm.loadShader(name, name, sources)
}

// LoadShaderSource compiles in-memory sources. Such shaders are never
// reloaded.
func (rm *ResourcesManager) LoadShaderSource(name string, sources gpu.ShaderSources) (core.AssetID, error) {
	return rm.loadShader(name, "", sources)
}

func (rm *ResourcesManager) readShader(name string) (gpu.ShaderSources, error) {
	res, err := rm.assets.LoadAsset(name, metadata.ResourceTypeShader, nil)
	if err != nil {
		if !errors.Is(err, core.ErrShaderSource) {
			err = fmt.Errorf("%w: %v", core.ErrShaderSource, err)
		}
		return gpu.ShaderSources{}, err
	}
	defer rm.assets.UnloadAsset(res)
	src := res.Data.(*metadata.ShaderResourceData)
	return gpu.ShaderSources{Vertex: src.Vertex, Fragment: src.Fragment}, nil
}

func (rm *ResourcesManager) loadShader(name, path string, sources gpu.ShaderSources) (core.AssetID, error) {
	program, err := rm.device.CreateProgram(sources)
	if err != nil {
		err = fmt.Errorf("func LoadShader - compiling %s: %w", name, err)
		core.LogError(err.Error())
		return core.InvalidID, err
	}
	id, err := rm.shaders.Load(&metadata.Shader{
		Name:    name,
		Path:    path,
		Program: program,
		Sources: sources,
	})
	if err != nil {
		rm.device.DeleteProgram(program)
		return core.InvalidID, err
	}
	core.LogDebug("loaded shader %s as %s", name, id)
	return id, nil
}

func (rm *ResourcesManager) Shader(id core.AssetID) (*metadata.Shader, bool) {
	return rm.shaders.Borrow(id)
}

// ReloadShader rebuilds a disk-backed shader in place. On failure the
// previous program stays in use.
func (rm *ResourcesManager) ReloadShader(id core.AssetID) error {
	shader, ok := rm.shaders.Borrow(id)
	if !ok {
		return fmt.Errorf("shader %s: %w", id, core.ErrStaleHandle)
	}
	if shader.Path == "" || rm.assets == nil {
		return fmt.Errorf("shader %s was not loaded from disk", shader.Name)
	}
	sources, err := rm.readShader(shader.Path)
	if err != nil {
		core.LogError("reloading shader %s: %s", shader.Name, err)
		return err
	}
	program, err := rm.device.CreateProgram(sources)
	if err != nil {
		err = fmt.Errorf("reloading shader %s: %w", shader.Name, err)
		core.LogError(err.Error())
		return err
	}
	old := shader.Program
	rm.retire("program "+shader.Name, func() { rm.device.DeleteProgram(old) })
	shader.Program = program
	shader.Sources = sources
	shader.Generation++
	core.LogInfo("reloaded shader %s (generation %d)", shader.Name, shader.Generation)
	return nil
}

// ProcessReloads rebuilds every disk-backed shader whose stage files are
// in changed, a list of asset-relative paths. It returns how many were
// rebuilt.
func (rm *ResourcesManager) ProcessReloads(changed []string) int {
	if len(changed) == 0 {
		return 0
	}
	touched := make(map[string]bool, len(changed))
	for _, p := range changed {
		base := strings.TrimSuffix(strings.TrimSuffix(p, loaders.VertexShaderExt), loaders.FragmentShaderExt)
		if base != p {
			touched[base] = true
		}
	}
	var ids []core.AssetID
	rm.shaders.Each(func(id core.AssetID, shader *metadata.Shader) bool {
		if shader.Path != "" && touched[shader.Path] {
			ids = append(ids, id)
		}
		return true
	})
	reloaded := 0
	for _, id := range ids {
		if rm.ReloadShader(id) == nil {
			reloaded++
		}
	}
	return reloaded
}

func (rm *ResourcesManager) RemoveShader(id core.AssetID) bool {
	shader, ok := rm.shaders.Remove(id)
	if !ok {
		return false
	}
	program := shader.Program
	rm.retire("program "+shader.Name, func() { rm.device.DeleteProgram(program) })
	return true
}

// --- textures ---

// LoadTexture decodes an image from the asset directory and uploads it.
func (rm *ResourcesManager) LoadTexture(path string, config metadata.TextureConfig) (core.AssetID, error) {
	img, err := rm.decodeTexture(path, config)
	if err != nil {
		return core.InvalidID, err
	}
	return rm.LoadTexturePixels(path, int32(img.Width), int32(img.Height), img.Pixels, config)
}

func (rm *ResourcesManager) decodeTexture(path string, config metadata.TextureConfig) (*metadata.ImageResourceData, error) {
	if rm.assets == nil {
		return nil, fmt.Errorf("func LoadTexture - no asset manager to load %s from", path)
	}
	res, err := rm.assets.LoadAsset(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: config.FlipY})
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.ImageResourceData), nil
}

// LoadTextures decodes images concurrently on the job system and uploads
// them in order on the calling goroutine. Failed entries get InvalidID;
// the first error is returned.
func (rm *ResourcesManager) LoadTextures(paths []string, config metadata.TextureConfig) ([]core.AssetID, error) {
	images := make([]*metadata.ImageResourceData, len(paths))
	errs := make([]error, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := rm.jobs.Submit(metadata.JobTask{
			InputParams: path,
			OnStart: func(params interface{}, out chan<- interface{}) error {
				img, err := rm.decodeTexture(params.(string), config)
				if err != nil {
					return err
				}
				out <- img
				return nil
			},
			OnComplete: func(result interface{}) {
				images[i] = result.(*metadata.ImageResourceData)
			},
			OnFailure: func(result interface{}) {
				errs[i] = result.(error)
			},
			OnCompletionCallback: wg.Done,
		})
		if err != nil {
			errs[i] = err
			wg.Done()
		}
	}
	wg.Wait()

	ids := make([]core.AssetID, len(paths))
	var firstErr error
	for i, img := range images {
		ids[i] = core.InvalidID
		if errs[i] != nil {
			firstErr = firstError(firstErr, errs[i])
			continue
		}
		id, err := rm.LoadTexturePixels(paths[i], int32(img.Width), int32(img.Height), img.Pixels, config)
		if err != nil {
			firstErr = firstError(firstErr, err)
			continue
		}
		ids[i] = id
	}
	return ids, firstErr
}

func firstError(first, err error) error {
	if first != nil {
		return first
	}
	return err
}

// LoadTexturePixels uploads tightly packed RGBA8 pixels. An empty name gets
// a generated one.
func (rm *ResourcesManager) LoadTexturePixels(name string, width, height int32, pixels []byte, config metadata.TextureConfig) (core.AssetID, error) {
	if name == "" {
		name = "texture-" + uuid.NewString()
	}
	if int(width)*int(height)*4 != len(pixels) {
		return core.InvalidID, fmt.Errorf("texture %s: %d bytes for %dx%d RGBA8", name, len(pixels), width, height)
	}
	if limit := rm.device.Limits().MaxTextureSize; limit > 0 && (width > int32(limit) || height > int32(limit)) {
		return core.InvalidID, fmt.Errorf("texture %s: %dx%d exceeds %d: %w", name, width, height, limit, core.ErrCapacityExceeded)
	}
	handle, err := rm.device.CreateTexture(gpu.TextureDesc{
		Width:   width,
		Height:  height,
		Format:  gpu.TextureFormatRGBA8,
		Filter:  config.Filter,
		Wrap:    config.Wrap,
		Mipmaps: config.Mipmaps,
		Pixels:  pixels,
	})
	if err != nil {
		return core.InvalidID, fmt.Errorf("texture %s: %w", name, err)
	}
	texture := &metadata.Texture{
		Name:     name,
		Width:    width,
		Height:   height,
		Format:   gpu.TextureFormatRGBA8,
		Handle:   handle,
		Resident: rm.device.ResidentHandle(handle),
	}
	id, err := rm.textures.Load(texture)
	if err != nil {
		rm.destroyTexture(texture)
		return core.InvalidID, err
	}
	core.LogDebug("loaded texture %s (%dx%d) as %s", name, width, height, id)
	return id, nil
}

func (rm *ResourcesManager) Texture(id core.AssetID) (*metadata.Texture, bool) {
	return rm.textures.Borrow(id)
}

func (rm *ResourcesManager) destroyTexture(t *metadata.Texture) {
	if t.Resident != 0 {
		rm.device.ReleaseResidentHandle(t.Resident)
	}
	rm.device.DeleteTexture(t.Handle)
}

// detachTexture clears the bindless handle of every live material sampling
// id, so storage never points at a texture queued for destruction.
func (rm *ResourcesManager) detachTexture(id core.AssetID) {
	rm.materials.Each(func(_ core.AssetID, material *metadata.Material) bool {
		if material.AlbedoTexture != id {
			return true
		}
		material.Data.AlbedoTexture = 0
		if err := rm.memory.SetMaterial(material.Slot, material.Data); err != nil {
			core.LogError("material %s: %s", material.Name, err)
			return true
		}
		core.LogDebug("material %s lost its albedo texture %s", material.Name, id)
		return true
	})
}

func (rm *ResourcesManager) RemoveTexture(id core.AssetID) bool {
	texture, ok := rm.textures.Remove(id)
	if !ok {
		return false
	}
	rm.detachTexture(id)
	rm.retire("texture "+texture.Name, func() { rm.destroyTexture(texture) })
	return true
}

// --- framebuffers ---

// LoadFramebuffer creates a render target. Auto-resized targets take their
// size from the last ResizeFramebuffers call scaled by config.Scale.
func (rm *ResourcesManager) LoadFramebuffer(config metadata.FramebufferConfig, autoResize bool) (core.AssetID, error) {
	if config.Name == "" {
		config.Name = "framebuffer-" + uuid.NewString()
	}
	width, height := config.Width, config.Height
	if autoResize {
		width, height = config.ScaledSize(max(rm.width, 1), max(rm.height, 1))
	}
	fb := &metadata.Framebuffer{
		Name:       config.Name,
		Config:     config,
		AutoResize: autoResize,
	}
	if err := rm.createAttachments(fb, width, height); err != nil {
		return core.InvalidID, err
	}
	id, err := rm.framebuffers.Load(fb)
	if err != nil {
		rm.destroyAttachments(fb.Handle, fb.Colors, fb.Depth)
		return core.InvalidID, err
	}
	if autoResize {
		rm.autoResize = append(rm.autoResize, id)
	}
	core.LogDebug("loaded framebuffer %s (%dx%d) as %s", config.Name, width, height, id)
	return id, nil
}

func (rm *ResourcesManager) createAttachments(fb *metadata.Framebuffer, width, height int32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("framebuffer %s: invalid size %dx%d", fb.Name, width, height)
	}
	var colors []gpu.TextureHandle
	var depth gpu.TextureHandle
	fail := func(err error) error {
		rm.destroyAttachments(0, colors, depth)
		return fmt.Errorf("framebuffer %s: %w", fb.Name, err)
	}
	for _, format := range fb.Config.ColorFormats {
		tex, err := rm.device.CreateTexture(gpu.TextureDesc{
			Width:  width,
			Height: height,
			Format: format,
			Filter: fb.Config.Filter,
			Wrap:   gpu.TextureWrapClampToEdge,
		})
		if err != nil {
			return fail(err)
		}
		colors = append(colors, tex)
	}
	if fb.Config.Depth {
		tex, err := rm.device.CreateTexture(gpu.TextureDesc{
			Width:  width,
			Height: height,
			Format: gpu.TextureFormatDepth32F,
			Filter: gpu.TextureFilterLinear,
			Wrap:   gpu.TextureWrapClampToEdge,
		})
		if err != nil {
			return fail(err)
		}
		depth = tex
	}
	handle, err := rm.device.CreateFramebuffer(gpu.FramebufferDesc{ColorAttachments: colors, DepthAttachment: depth})
	if err != nil {
		return fail(err)
	}
	fb.Handle = handle
	fb.Colors = colors
	fb.Depth = depth
	fb.Width = width
	fb.Height = height
	return nil
}

func (rm *ResourcesManager) destroyAttachments(handle gpu.FramebufferHandle, colors []gpu.TextureHandle, depth gpu.TextureHandle) {
	if handle != 0 {
		rm.device.DeleteFramebuffer(handle)
	}
	for _, c := range colors {
		rm.device.DeleteTexture(c)
	}
	if depth != 0 {
		rm.device.DeleteTexture(depth)
	}
}

func (rm *ResourcesManager) retireAttachments(fb *metadata.Framebuffer) {
	handle, colors, depth := fb.Handle, fb.Colors, fb.Depth
	rm.retire("framebuffer "+fb.Name, func() { rm.destroyAttachments(handle, colors, depth) })
}

func (rm *ResourcesManager) Framebuffer(id core.AssetID) (*metadata.Framebuffer, bool) {
	return rm.framebuffers.Borrow(id)
}

// ResizeFramebuffer recreates every attachment at the new size. The id and
// the Framebuffer value are preserved; the old attachments are retired.
func (rm *ResourcesManager) ResizeFramebuffer(id core.AssetID, width, height int32) error {
	fb, ok := rm.framebuffers.Borrow(id)
	if !ok {
		return fmt.Errorf("framebuffer %s: %w", id, core.ErrStaleHandle)
	}
	if fb.Width == width && fb.Height == height {
		return nil
	}
	old := *fb
	if err := rm.createAttachments(fb, width, height); err != nil {
		return err
	}
	rm.retireAttachments(&old)
	core.LogDebug("resized framebuffer %s to %dx%d", fb.Name, width, height)
	return nil
}

// ResizeFramebuffers records the window size and resizes every live
// auto-resized framebuffer to it, scaled by its config.
func (rm *ResourcesManager) ResizeFramebuffers(width, height int32) error {
	rm.width, rm.height = width, height
	kept := rm.autoResize[:0]
	var firstErr error
	for _, id := range rm.autoResize {
		fb, ok := rm.framebuffers.Borrow(id)
		if !ok {
			continue
		}
		kept = append(kept, id)
		w, h := fb.Config.ScaledSize(width, height)
		if err := rm.ResizeFramebuffer(id, w, h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	rm.autoResize = kept
	return firstErr
}

func (rm *ResourcesManager) RemoveFramebuffer(id core.AssetID) bool {
	fb, ok := rm.framebuffers.Remove(id)
	if !ok {
		return false
	}
	rm.retireAttachments(fb)
	return true
}

// Shutdown destroys every GPU object immediately. The GPU must be idle.
func (rm *ResourcesManager) Shutdown() error {
	for _, r := range rm.graveyard {
		r.destroy()
	}
	rm.graveyard = nil
	rm.shaders.Each(func(id core.AssetID, s *metadata.Shader) bool {
		rm.device.DeleteProgram(s.Program)
		return true
	})
	rm.textures.Each(func(id core.AssetID, t *metadata.Texture) bool {
		rm.destroyTexture(t)
		return true
	})
	rm.framebuffers.Each(func(id core.AssetID, fb *metadata.Framebuffer) bool {
		rm.destroyAttachments(fb.Handle, fb.Colors, fb.Depth)
		return true
	})
	rm.shaders = NewPool[*metadata.Shader]("shader", 0)
	rm.textures = NewPool[*metadata.Texture]("texture", 0)
	rm.framebuffers = NewPool[*metadata.Framebuffer]("framebuffer", 0)
	return rm.jobs.Shutdown()
}

// ResourceCounts reports the live resources per pool.
type ResourceCounts struct {
	Meshes       int
	Materials    int
	Shaders      int
	Textures     int
	Framebuffers int
}

func (rm *ResourcesManager) Counts() ResourceCounts {
	return ResourceCounts{
		Meshes:       rm.meshes.Len(),
		Materials:    rm.materials.Len(),
		Shaders:      rm.shaders.Len(),
		Textures:     rm.textures.Len(),
		Framebuffers: rm.framebuffers.Len(),
	}
}
