package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

var ErrClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the files under an asset root and loads them
// through per-type loaders. When watching, modified files are queued and
// handed out by DrainChanges.
type AssetManager struct {
	root    string
	fsys    fs.FS
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	changed map[string]struct{}

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	wg       sync.WaitGroup
}

// NewAssetManager serves assets from a directory on disk.
func NewAssetManager(root string) (*AssetManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	am := newAssetManager(os.DirFS(abs))
	am.root = abs
	if err := am.index(); err != nil {
		return nil, err
	}
	return am, nil
}

// NewAssetManagerFS serves assets from fsys. It cannot watch for changes.
func NewAssetManagerFS(fsys fs.FS) (*AssetManager, error) {
	am := newAssetManager(fsys)
	if err := am.index(); err != nil {
		return nil, err
	}
	return am, nil
}

func newAssetManager(fsys fs.FS) *AssetManager {
	am := &AssetManager{
		fsys:    fsys,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		changed: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.TextureLoader{})
	return am
}

func (am *AssetManager) index() error {
	return fs.WalkDir(am.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(p)
		}
		return nil
	})
}

// Watch starts watching the asset root and all sub-directories.
func (am *AssetManager) Watch() error {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return ErrClosed
	}
	if am.root == "" {
		return errors.New("asset manager has no directory to watch")
	}
	if am.fsnotify != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = w
	if err := am.watchRecursive(am.root); err != nil {
		w.Close()
		am.fsnotify = nil
		return err
	}
	am.wg.Add(1)
	go am.start(w)
	core.LogInfo("watching assets in %s", am.root)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads an asset using the loader registered for resourceType.
// Shaders are named by base path without extension.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	name = path.Clean(filepath.ToSlash(name))
	lookup := name
	if resourceType == metadata.ResourceTypeShader {
		lookup = name + loaders.VertexShaderExt
	}

	am.mutex.Lock()
	asset, exists := am.assets[lookup]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[lookup] = asset
	}
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("asset not found: %s", lookup)
	}
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}
	res, err := loader.Load(am.fsys, name, params)
	if err != nil {
		return nil, err
	}
	core.LogDebug("loaded %s asset %s", resourceType, name)
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	if asset == nil {
		return nil
	}
	if loader, ok := am.loaders[asset.Type]; ok {
		return loader.Unload(asset)
	}
	return nil
}

// Has reports whether path is indexed.
func (am *AssetManager) Has(path string) bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	_, ok := am.assets[path]
	return ok
}

func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

// DrainChanges returns the paths modified since the previous call, sorted.
func (am *AssetManager) DrainChanges() []string {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if len(am.changed) == 0 {
		return nil
	}
	out := make([]string, 0, len(am.changed))
	for p := range am.changed {
		out = append(out, p)
	}
	clear(am.changed)
	sort.Strings(out)
	return out
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	watching := am.fsnotify != nil
	am.mutex.Unlock()

	if watching {
		close(am.done)
		am.wg.Wait()
	}
	return nil
}

func (am *AssetManager) start(w *fsnotify.Watcher) {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			w.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			am.mutex.Lock()
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("cannot watch %s: %s", e.Name, err)
			}
			am.mutex.Unlock()
		}
		return
	}
	rel, ok := am.relative(e.Name)
	if !ok {
		return
	}
	switch {
	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		am.handleFileEvent(rel)
		am.mutex.Lock()
		am.changed[rel] = struct{}{}
		am.mutex.Unlock()
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		am.removeAsset(rel)
	}
}

func (am *AssetManager) relative(name string) (string, bool) {
	rel, err := filepath.Rel(am.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// watchRecursive adds the directory and every directory below it to the
// watcher, indexing files found on the way. Callers hold the mutex.
func (am *AssetManager) watchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		if rel, ok := am.relative(walkPath); ok {
			am.indexLocked(rel)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.indexLocked(path)
}

func (am *AssetManager) indexLocked(path string) {
	assetType, ok := determineAssetType(path)
	if !ok {
		return
	}
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func determineAssetType(path string) (metadata.ResourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case loaders.VertexShaderExt, loaders.FragmentShaderExt:
		return metadata.ResourceTypeShader, true
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage, true
	case ".txt", ".toml":
		return metadata.ResourceTypeText, true
	default:
		return metadata.ResourceTypeCustom, false
	}
}
