package engine

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/lumen/engine/renderer"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// One of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`
	// Directory shaders and textures are loaded from.
	AssetPath string `toml:"asset_path"`
	// Recompile shaders when their files change.
	WatchAssets bool `toml:"watch_assets"`
	VSync       bool `toml:"vsync"`
	// Requests a debug context and logs driver messages.
	Debug    bool            `toml:"debug"`
	Renderer renderer.Config `toml:"renderer"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:        "Lumen",
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 720,
		LogLevel:    "info",
		AssetPath:   "assets",
		VSync:       true,
		Renderer:    renderer.DefaultConfig(),
	}
}

// LoadApplicationConfig reads a TOML file on top of the defaults, so a file
// only needs the keys it changes. Unknown keys are an error.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseApplicationConfig(data)
}

func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("application config: %w", err)
	}
	if config.StartWidth == 0 || config.StartHeight == 0 {
		return nil, fmt.Errorf("application config: window size %dx%d", config.StartWidth, config.StartHeight)
	}
	if _, err := config.Renderer.Validate(); err != nil {
		return nil, fmt.Errorf("application config: %w", err)
	}
	return config, nil
}
