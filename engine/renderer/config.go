package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/views"
	"github.com/spaghettifunk/lumen/engine/systems"
)

/** @brief The renderer configuration, usually the [renderer] table of the application config. */
type Config struct {
	Memory    memory.Config           `toml:"memory"`
	Resources systems.ResourcesConfig `toml:"resources"`
	/** @brief Stage names enabled at start-up, see metadata.ParseStageMask. Empty enables all. */
	EnabledStages []string `toml:"enabled_stages"`
	/** @brief Edge length of the square shadow map, in texels. */
	ShadowMapSize int32 `toml:"shadow_map_size"`
	/** @brief Radius around the camera covered by the shadow map. */
	ShadowDistance float32           `toml:"shadow_distance"`
	Bloom          views.BloomConfig `toml:"bloom"`
	Exposure       float32           `toml:"exposure"`
	ClearColour    [4]float32        `toml:"clear_colour"`
}

func DefaultConfig() Config {
	return Config{
		Memory:         memory.DefaultConfig(),
		Resources:      systems.DefaultResourcesConfig(),
		EnabledStages:  []string{"shadow", "scene", "sky", "bloom", "post_process"},
		ShadowMapSize:  2048,
		ShadowDistance: 50,
		Bloom:          views.DefaultBloomConfig(),
		Exposure:       1,
		ClearColour:    [4]float32{0.05, 0.05, 0.08, 1},
	}
}

// Validate checks the values and returns the enabled stage mask.
func (c Config) Validate() (metadata.StageMask, error) {
	if err := c.Memory.Validate(); err != nil {
		return metadata.StageNone, err
	}
	if c.ShadowMapSize <= 0 {
		return metadata.StageNone, fmt.Errorf("renderer config: shadow_map_size must be > 0")
	}
	if c.ShadowDistance <= 0 {
		return metadata.StageNone, fmt.Errorf("renderer config: shadow_distance must be > 0")
	}
	if c.Exposure <= 0 {
		return metadata.StageNone, fmt.Errorf("renderer config: exposure must be > 0")
	}
	if len(c.EnabledStages) == 0 {
		return metadata.StageAll, nil
	}
	mask, err := metadata.ParseStageMask(c.EnabledStages)
	if err != nil {
		return metadata.StageNone, fmt.Errorf("renderer config: %w", err)
	}
	return mask, nil
}
