package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string         `yaml:"environment"`
	Bench       BenchConfig    `yaml:"bench"`
	Workload    WorkloadConfig `yaml:"workload"`
	Results     ResultsConfig  `yaml:"results"`
}

type BenchConfig struct {
	Elements   int   `yaml:"elements"`
	Iterations int   `yaml:"iterations"`
	Seed       int64 `yaml:"seed"`
	Reserve    int   `yaml:"reserve"`
	NewBias    int   `yaml:"new_bias"`
}

type WorkloadConfig struct {
	Path string `yaml:"path"`
}

type ResultsConfig struct {
	Path         string `yaml:"path"`
	BufferSize   int    `yaml:"buffer_size"`
	EnableBackup bool   `yaml:"enable_backup"`
	RotationSize int64  `yaml:"rotation_size"`
}

// configDir resolves the repo's config directory by walking from the
// working directory toward the filesystem root, so the binary works
// from any subdirectory of a checkout.
func configDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		cand := filepath.Join(dir, "config")
		if info, err := os.Stat(cand); err == nil && info.IsDir() {
			return cand, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no config directory found above the working directory")
		}
		dir = parent
	}
}

func LoadConfig(env string) (*Config, error) {
	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("error locating config: %v", err)
	}

	// Accept either extension, .yaml winning over .yml.
	var data []byte
	for _, name := range []string{env + ".yaml", env + ".yml"} {
		data, err = os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config for %q: %v", env, err)
	}

	return ParseConfig(data, env)
}

func ParseConfig(data []byte, env string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Set environment and defaults
	config.Environment = env
	if config.Bench.Elements <= 0 {
		config.Bench.Elements = 1024
	}
	if config.Bench.Iterations <= 0 {
		config.Bench.Iterations = 100000
	}
	if config.Bench.NewBias <= 0 || config.Bench.NewBias > 100 {
		config.Bench.NewBias = 55
	}
	if config.Results.Path == "" {
		config.Results.Path = "poolbench.results"
	}
	if config.Results.BufferSize <= 0 {
		config.Results.BufferSize = 8 * 1024 // 8KB
	}
	if config.Results.RotationSize <= 0 {
		config.Results.RotationSize = 1 << 26 // 64MB
	}

	return &config, nil
}
