package probe

import "github.com/hazyhaar/pierce/probe/internal/config"

// Config is the pierce configuration. See LoadConfigFile.
type Config = config.Config

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
