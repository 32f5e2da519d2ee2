package metadata

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
)

// StageMask selects pipeline stages. Bit values identify a stage; they do
// not define execution order.
type StageMask uint32

const (
	StageShadow StageMask = 1 << iota
	StageScene
	StageSky
	StageBloom
	StageDebug
	StagePostProcess

	StageNone StageMask = 0
	StageAll  StageMask = StageShadow | StageScene | StageSky | StageBloom | StageDebug | StagePostProcess
)

var stageNames = []struct {
	mask StageMask
	name string
}{
	{StageShadow, "shadow"},
	{StageScene, "scene"},
	{StageSky, "sky"},
	{StageBloom, "bloom"},
	{StageDebug, "debug"},
	{StagePostProcess, "post_process"},
}

// Has reports whether any bit of other is set in m.
func (m StageMask) Has(other StageMask) bool {
	return m&other != 0
}

func (m StageMask) String() string {
	if m == StageNone {
		return "none"
	}
	var parts []string
	for _, s := range stageNames {
		if m&s.mask != 0 {
			parts = append(parts, s.name)
		}
	}
	if rest := m &^ StageAll; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseStageMask combines stage names as written in configuration files.
// "all" selects every stage.
func ParseStageMask(names []string) (StageMask, error) {
	mask := StageNone
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "all" {
			mask |= StageAll
			continue
		}
		found := false
		for _, s := range stageNames {
			if s.name == n {
				mask |= s.mask
				found = true
				break
			}
		}
		if !found {
			return StageNone, fmt.Errorf("unknown pipeline stage %q", n)
		}
	}
	return mask, nil
}

// Renderable is one draw request. The renderer copies it into the frame's
// list and stages refer to it by index.
type Renderable struct {
	Mesh      core.AssetID
	Material  core.AssetID
	Shader    core.AssetID
	Transform mgl32.Mat4
	Stages    StageMask
}
