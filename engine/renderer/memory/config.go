package memory

import "fmt"

// Storage block binding points shared with the shaders.
const (
	BindingStatic  uint32 = 0
	BindingCamera  uint32 = 1
	BindingLights  uint32 = 2
	BindingPerDraw uint32 = 3
)

type Config struct {
	/** @brief Number of frames the CPU may run ahead of the GPU. */
	Sections int `toml:"sections"`
	/** @brief Per-section sizes of the streaming buffers, in bytes. */
	VertexSectionBytes   int `toml:"vertex_section_bytes"`
	IndexSectionBytes    int `toml:"index_section_bytes"`
	InstanceSectionBytes int `toml:"instance_section_bytes"`
	CommandSectionBytes  int `toml:"command_section_bytes"`
	/** @brief Size of the single-section per-draw storage region. */
	PerDrawBytes   int `toml:"per_draw_bytes"`
	MaxMaterials   int `toml:"max_materials"`
	MaxPointLights int `toml:"max_point_lights"`
	/** @brief Fence wait policy, see WaitPolicy. */
	FenceTimeoutNs  uint64 `toml:"fence_timeout_ns"`
	FenceMaxRetries int    `toml:"fence_max_retries"`
}

func DefaultConfig() Config {
	return Config{
		Sections:             3,
		VertexSectionBytes:   8 << 20,
		IndexSectionBytes:    4 << 20,
		InstanceSectionBytes: 68 << 14,
		CommandSectionBytes:  20 << 12,
		PerDrawBytes:         64 << 10,
		MaxMaterials:         1024,
		MaxPointLights:       64,
		FenceTimeoutNs:       1_000_000,
		FenceMaxRetries:      5_000,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Sections < 1:
		return fmt.Errorf("memory config: sections must be > 0")
	case c.VertexSectionBytes < VertexSize:
		return fmt.Errorf("memory config: vertex_section_bytes must hold at least one vertex")
	case c.IndexSectionBytes < IndexSize:
		return fmt.Errorf("memory config: index_section_bytes must hold at least one index")
	case c.InstanceSectionBytes < InstanceDataSize:
		return fmt.Errorf("memory config: instance_section_bytes must hold at least one instance")
	case c.CommandSectionBytes < DrawCommandSize:
		return fmt.Errorf("memory config: command_section_bytes must hold at least one command")
	case c.PerDrawBytes <= 0:
		return fmt.Errorf("memory config: per_draw_bytes must be > 0")
	case c.MaxMaterials < 1:
		return fmt.Errorf("memory config: max_materials must be > 0")
	case c.MaxPointLights < 0:
		return fmt.Errorf("memory config: max_point_lights must be >= 0")
	}
	return nil
}

func (c Config) WaitPolicy() WaitPolicy {
	return WaitPolicy{
		TimeoutNs:  c.FenceTimeoutNs,
		MaxRetries: c.FenceMaxRetries,
	}
}
