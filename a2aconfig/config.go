// Package a2aconfig implements YAML-loaded configuration for both the
// server bind options and the client factory defaults, grounded on the
// teacher's pkg/config loader.go convention: a plain struct unmarshaled
// with gopkg.in/yaml.v3, then a validation pass, kept separate from the
// functional-options structs (ServerOptions/ClientOptions) that wrap
// runtime collaborators.
package a2aconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server configures the a2asrv HTTP and gRPC listeners.
type Server struct {
	JSONRPC struct {
		Addr string `yaml:"addr"`
	} `yaml:"jsonrpc"`
	REST struct {
		Addr string `yaml:"addr"`
	} `yaml:"rest"`
	GRPC struct {
		Addr string `yaml:"addr"`
	} `yaml:"grpc"`
	QueueCapacity   int           `yaml:"queueCapacity"`
	TaskTTL         time.Duration `yaml:"taskTtl"`
	EvictionInterval time.Duration `yaml:"evictionInterval"`
	Redis           *Redis        `yaml:"redis,omitempty"`
}

// Redis configures the optional Redis-backed task store, for durable task
// storage beyond the in-process Memory store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// Client configures an a2aclient.Factory-built client.
type Client struct {
	SupportedTransports []string `yaml:"supportedTransports"`
	UseClientPreference bool     `yaml:"useClientPreference"`
	Extensions          []string `yaml:"extensions,omitempty"`
	TimeoutMs           int64    `yaml:"timeoutMs,omitempty"`
}

// LoadServer reads and validates a Server config from path.
func LoadServer(path string) (*Server, error) {
	var cfg Server
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 64
	}
	return &cfg, nil
}

// LoadClient reads and validates a Client config from path.
func LoadClient(path string) (*Client, error) {
	var cfg Client
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.SupportedTransports) == 0 {
		cfg.SupportedTransports = []string{"JSONRPC"}
	}
	return &cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("a2aconfig: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("a2aconfig: parsing %s: %w", path, err)
	}
	return nil
}
