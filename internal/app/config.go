package app

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk profilecore.toml shape: a vendor cache root
// override and a default archive variant for the CLI's archive command.
type Config struct {
	CacheDir       string `toml:"cache_dir"`
	DefaultVariant string `toml:"default_archive_variant"`
}

// LoadConfig reads path (profilecore.toml) if it exists; a missing file
// is not an error, since every field has a sensible zero-value default.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
