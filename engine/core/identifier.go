package core

import "fmt"

// AssetID is a generational handle: the low 22 bits address a slot, the
// high 10 bits carry the slot version the handle was issued for. A handle
// is alive while the version stored at its slot matches its own.
type AssetID uint32

const (
	IndexBits   = 22
	VersionBits = 10

	MaxIndex   uint32 = 1<<IndexBits - 1
	MaxVersion uint32 = 1<<VersionBits - 1

	// InvalidID never refers to a live slot: its index and version are
	// both saturated and saturated slots are retired instead of reissued.
	InvalidID AssetID = 0xFFFFFFFF
)

func NewAssetID(index, version uint32) AssetID {
	return AssetID((version&MaxVersion)<<IndexBits | index&MaxIndex)
}

func (id AssetID) Index() uint32 {
	return uint32(id) & MaxIndex
}

func (id AssetID) Version() uint32 {
	return uint32(id) >> IndexBits
}

func (id AssetID) IsValid() bool {
	return id != InvalidID
}

func (id AssetID) String() string {
	if id == InvalidID {
		return "AssetID(invalid)"
	}
	return fmt.Sprintf("AssetID(%d:v%d)", id.Index(), id.Version())
}
