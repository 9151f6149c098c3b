// Package dbconfig loads novasqld's configuration the way the teacher's
// internal/config.go does: a YAML file read through viper, unmarshaled
// into a typed struct, with environment variables able to override any
// key. Adapted to the engine this module actually builds — a buffer pool
// plus a single data directory — instead of the teacher's storage-mode
// switch.
package dbconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is novasqld's top-level configuration.
type Config struct {
	Storage struct {
		// DataDir is where relcat, attrcat and every user relation's
		// paged file lives.
		DataDir string `mapstructure:"data_dir"`
	} `mapstructure:"storage"`
	Buffer struct {
		// PoolSize is the number of frames in the buffer pool, i.e. the
		// clock replacer's capacity.
		PoolSize int `mapstructure:"pool_size"`
		// PageSize is the fixed page size in bytes every frame buffers.
		// Present for configuration-surface completeness; internal/page
		// hard-codes the same value as page.PageSize, matching the
		// fixed-layout slot directory's compile-time assumption.
		PageSize int `mapstructure:"page_size"`
	} `mapstructure:"buffer"`
	Server struct {
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// Default returns the configuration novasqld starts with when no file is
// given on the command line.
func Default() *Config {
	cfg := &Config{}
	cfg.Storage.DataDir = "./data"
	cfg.Buffer.PoolSize = 64
	cfg.Buffer.PageSize = 8192
	cfg.Server.Debug = false
	return cfg
}

// Load reads a YAML configuration file at path, with NOVASQL_-prefixed
// environment variables overriding any key (dots in a key become
// underscores, e.g. NOVASQL_BUFFER_POOL_SIZE), matching the teacher's
// LoadConfig.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("novasql")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("buffer.pool_size", cfg.Buffer.PoolSize)
	v.SetDefault("buffer.page_size", cfg.Buffer.PageSize)
	v.SetDefault("server.debug", cfg.Server.Debug)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("dbconfig: read %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("dbconfig: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
