// Package config holds the settings shared by the command line tools and the server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeu5/routing-rl/store"
	"github.com/zeu5/routing-rl/tsp"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Problem    ProblemConfig    `yaml:"problem"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

type ProblemConfig struct {
	Name              string `yaml:"name"`
	Size              int    `yaml:"size"`
	MaxDurationFactor int    `yaml:"max_duration_factor"`
	Seed              uint64 `yaml:"seed"`
}

type ExperimentConfig struct {
	Episodes int    `yaml:"episodes"`
	Horizon  int    `yaml:"horizon"`
	Runs     int    `yaml:"runs"`
	Parallel int    `yaml:"parallel"`
	SavePath string `yaml:"save_path"`
}

type StoreConfig struct {
	Kind       string `yaml:"kind"`
	Dir        string `yaml:"dir"`
	RedisAddr  string `yaml:"redis_addr"`
	SQLitePath string `yaml:"sqlite_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// largest problem a client may create
	MaxSize int `yaml:"max_size"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Problem: ProblemConfig{
			Name:              "tsp",
			Size:              10,
			MaxDurationFactor: tsp.DefaultMaxDurationFactor,
		},
		Experiment: ExperimentConfig{
			Episodes: 1000,
			Horizon:  50,
			Runs:     1,
			Parallel: 1,
			SavePath: "results",
		},
		Store: StoreConfig{
			Kind:       store.KindFile,
			Dir:        "data",
			RedisAddr:  "127.0.0.1:6379",
			SQLitePath: "instances.db",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			MaxSize: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the yaml file at path over the defaults, a missing file leaves the defaults untouched
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Problem.Size < 1 {
		return fmt.Errorf("problem size must be positive, got %d", c.Problem.Size)
	}
	if c.Problem.MaxDurationFactor < 0 {
		return fmt.Errorf("max duration factor must not be negative, got %d", c.Problem.MaxDurationFactor)
	}
	if c.Experiment.Episodes < 1 {
		return fmt.Errorf("episodes must be positive, got %d", c.Experiment.Episodes)
	}
	if c.Experiment.Horizon < 1 {
		return fmt.Errorf("horizon must be positive, got %d", c.Experiment.Horizon)
	}
	if c.Experiment.Runs < 1 {
		return fmt.Errorf("runs must be positive, got %d", c.Experiment.Runs)
	}
	if c.Server.MaxSize < 1 {
		return fmt.Errorf("server max size must be positive, got %d", c.Server.MaxSize)
	}
	switch c.Store.Kind {
	case store.KindFile, store.KindRedis, store.KindSQLite:
	default:
		return fmt.Errorf("invalid store kind: %s (valid: %s, %s, %s)", c.Store.Kind, store.KindFile, store.KindRedis, store.KindSQLite)
	}
	return nil
}

// EnvConfig is the environment configuration of the problem section
func (c *Config) EnvConfig() tsp.Config {
	return tsp.Config{
		Size:              c.Problem.Size,
		MaxDurationFactor: c.Problem.MaxDurationFactor,
	}
}

// StoreOptions converts the store section for store.Open
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Kind:       c.Store.Kind,
		Dir:        c.Store.Dir,
		RedisAddr:  c.Store.RedisAddr,
		SQLitePath: c.Store.SQLitePath,
	}
}
