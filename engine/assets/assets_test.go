package assets

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestAssetManagerIndexesAndLoads(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/unlit.vert": {Data: []byte("void main() {}")},
		"shaders/unlit.frag": {Data: []byte("void main() {}")},
		"readme.md":          {Data: []byte("ignored")},
	}
	am, err := NewAssetManagerFS(fsys)
	require.NoError(t, err)
	defer am.Close()

	assert.True(t, am.Has("shaders/unlit.vert"))
	assert.False(t, am.Has("readme.md"))
	info, ok := am.Info("shaders/unlit.frag")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShader, info.Type)

	res, err := am.LoadAsset("shaders/unlit", metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, "unlit", res.Name)
	require.NoError(t, am.UnloadAsset(res))

	_, err = am.LoadAsset("shaders/missing", metadata.ResourceTypeShader, nil)
	assert.Error(t, err)
	_, err = am.LoadAsset("shaders/unlit.vert", metadata.ResourceTypeText, nil)
	assert.Error(t, err, "no text loader")

	assert.Error(t, am.Watch(), "an fs.FS has no directory to watch")
}

func TestAssetManagerWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	shaders := filepath.Join(dir, "shaders")
	require.NoError(t, os.MkdirAll(shaders, 0o755))
	vert := filepath.Join(shaders, "scene.vert")
	require.NoError(t, os.WriteFile(vert, []byte("void main() {}"), 0o644))

	am, err := NewAssetManager(dir)
	require.NoError(t, err)
	defer am.Close()
	require.NoError(t, am.Watch())
	assert.Empty(t, am.DrainChanges())

	require.NoError(t, os.WriteFile(vert, []byte("void main() { }"), 0o644))
	var changes []string
	assert.Eventually(t, func() bool {
		changes = append(changes, am.DrainChanges()...)
		return len(changes) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, changes, "shaders/scene.vert")

	nested := filepath.Join(shaders, "extra")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	frag := filepath.Join(nested, "glow.frag")
	assert.Eventually(t, func() bool {
		// the new directory is picked up asynchronously, keep touching the file
		_ = os.WriteFile(frag, []byte("void main() {}"), 0o644)
		return am.Has("shaders/extra/glow.frag")
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(vert))
	assert.Eventually(t, func() bool { return !am.Has("shaders/scene.vert") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, am.Close())
	assert.ErrorIs(t, am.Watch(), ErrClosed)
}
