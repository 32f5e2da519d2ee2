package assets

import (
	"io/fs"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type Loader interface {
	// Load reads the named asset from fsys. params is loader specific.
	Load(fsys fs.FS, name string, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
