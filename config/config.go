package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var OctofetchHomeDir = func() string {
	dir, err := homedir.Dir()
	if err != nil {
		log.Fatalf("couldn't get user home directory: %s", err)
	}
	return filepath.Join(dir, ".octofetch")
}()

var DefaultConfigPath = filepath.Join(OctofetchHomeDir, "octofetch.yml")

type DataSourceConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

type StreamingConfig struct {
	// ChannelCapacity is the count of records a fetch may get ahead of its consumer.
	ChannelCapacity int `yaml:"channelCapacity"`
	// Workers bounds the count of fetches running at the same time.
	Workers      int  `yaml:"workers"`
	WaitForReady bool `yaml:"waitForReady"`
	// Timeout after which streams not closed by their consumer get closed forcibly.
	Timeout          time.Duration `yaml:"timeout"`
	ShareBufferLimit int           `yaml:"shareBufferLimit"`
}

type CacheConfig struct {
	MaxRecords int64         `yaml:"maxRecords"`
	TTL        time.Duration `yaml:"ttl"`
}

// AliasConfig rewrites dataset names fully matching Pattern, e.g. "logs-(.*)" to "logs.$1.json".
type AliasConfig struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

type RoutingConfig struct {
	Aliases []AliasConfig `yaml:"aliases"`
	// Hidden lists prefixes of dataset names which can't be read.
	Hidden []string `yaml:"hidden"`
	// Files enables reading files with a known extension by path, without declaring them first.
	Files bool `yaml:"files"`
}

type Config struct {
	Streaming   StreamingConfig    `yaml:"streaming"`
	Cache       CacheConfig        `yaml:"cache"`
	Routing     RoutingConfig      `yaml:"routing"`
	DataSources []DataSourceConfig `yaml:"dataSources"`
}

func Default() *Config {
	return &Config{
		Streaming: StreamingConfig{
			ChannelCapacity:  64,
			Workers:          8,
			WaitForReady:     true,
			Timeout:          30 * time.Second,
			ShareBufferLimit: 1024,
		},
		Cache: CacheConfig{
			MaxRecords: 1000000,
			TTL:        10 * time.Minute,
		},
		Routing: RoutingConfig{
			Files: true,
		},
	}
}

func (config *Config) GetDataSourceConfig(name string) (*DataSourceConfig, error) {
	for i := range config.DataSources {
		if config.DataSources[i].Name == name {
			return &config.DataSources[i], nil
		}
	}

	return nil, errors.Wrapf(ErrNotFound, "no data source named %s", name)
}

func (config *Config) Validate() error {
	if config.Streaming.ChannelCapacity < 1 {
		return errors.Errorf("streaming.channelCapacity must be positive, got %d", config.Streaming.ChannelCapacity)
	}
	if config.Streaming.Timeout < 0 {
		return errors.Errorf("streaming.timeout can't be negative, got %s", config.Streaming.Timeout)
	}
	if config.Cache.MaxRecords < 1 {
		return errors.Errorf("cache.maxRecords must be positive, got %d", config.Cache.MaxRecords)
	}
	for i, alias := range config.Routing.Aliases {
		if alias.Pattern == "" {
			return errors.Errorf("alias with index %d has no pattern", i)
		}
	}
	names := make(map[string]bool)
	for i, ds := range config.DataSources {
		if ds.Name == "" {
			return errors.Errorf("data source with index %d has no name", i)
		}
		if names[ds.Name] {
			return errors.Errorf("data source %s defined more than once", ds.Name)
		}
		names[ds.Name] = true
		if config.DataSources[i].Config == nil {
			config.DataSources[i].Config = map[string]interface{}{}
		}
	}
	return nil
}

// ReadConfig reads the configuration file, filling in defaults for everything it leaves out.
// A missing file at the default path isn't an error.
func ReadConfig(path string) (*Config, error) {
	config := Default()

	f, err := os.Open(path)
	if os.IsNotExist(err) && path == DefaultConfigPath {
		return config, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "couldn't open file")
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(config); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "couldn't decode yaml configuration")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return config, nil
}
