package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetIDPacking(t *testing.T) {
	id := NewAssetID(12345, 7)
	assert.Equal(t, uint32(12345), id.Index())
	assert.Equal(t, uint32(7), id.Version())
	assert.True(t, id.IsValid())

	top := NewAssetID(MaxIndex, MaxVersion)
	assert.Equal(t, InvalidID, top)
	assert.False(t, top.IsValid())
}

func TestAssetIDMasksOverflow(t *testing.T) {
	id := NewAssetID(MaxIndex+1, MaxVersion+2)
	assert.Equal(t, uint32(0), id.Index())
	assert.Equal(t, uint32(1), id.Version())
}

func TestAssetIDString(t *testing.T) {
	assert.Equal(t, "AssetID(3:v2)", NewAssetID(3, 2).String())
	assert.Equal(t, "AssetID(invalid)", InvalidID.String())
}
