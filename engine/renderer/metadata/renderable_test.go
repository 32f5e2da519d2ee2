package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageMaskString(t *testing.T) {
	assert.Equal(t, "none", StageNone.String())
	assert.Equal(t, "shadow|scene", (StageScene | StageShadow).String())
	assert.Equal(t, "debug|0x80", (StageDebug | StageMask(0x80)).String())
}

func TestParseStageMask(t *testing.T) {
	mask, err := ParseStageMask([]string{"scene", " Bloom ", "post_process"})
	require.NoError(t, err)
	assert.Equal(t, StageScene|StageBloom|StagePostProcess, mask)
	assert.True(t, mask.Has(StageBloom))
	assert.False(t, mask.Has(StageDebug))

	mask, err = ParseStageMask([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, StageAll, mask)

	_, err = ParseStageMask([]string{"ui"})
	assert.Error(t, err)
}

func TestFramebufferScaledSize(t *testing.T) {
	w, h := FramebufferConfig{Scale: 0.5}.ScaledSize(1280, 719)
	assert.Equal(t, int32(640), w)
	assert.Equal(t, int32(359), h)

	w, h = FramebufferConfig{}.ScaledSize(800, 600)
	assert.Equal(t, int32(800), w)
	assert.Equal(t, int32(600), h)

	w, h = FramebufferConfig{Scale: 0.01}.ScaledSize(10, 10)
	assert.Equal(t, int32(1), w)
	assert.Equal(t, int32(1), h)
}
