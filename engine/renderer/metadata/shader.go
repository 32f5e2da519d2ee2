package metadata

import "github.com/spaghettifunk/lumen/engine/renderer/gpu"

/**
 * @brief Represents a linked shader program. Path is the base path the
 * sources were loaded from, empty for programs built from embedded sources.
 */
type Shader struct {
	Name    string
	Path    string
	Program gpu.ProgramHandle
	Sources gpu.ShaderSources
	/** @brief Incremented every time the program is rebuilt. */
	Generation uint32
}
