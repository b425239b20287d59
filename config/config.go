// Package config loads async-rpc settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"async-rpc/client"
	"async-rpc/protocol"
	"async-rpc/registry"
	"async-rpc/transport"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file.
type Config struct {
	Protocol ProtocolConfig `yaml:"protocol"`
	Engine   EngineConfig   `yaml:"engine"`
	Client   ClientConfig   `yaml:"client"`
	Registry RegistryConfig `yaml:"registry"`
	Log      LogConfig      `yaml:"log"`
}

type ProtocolConfig struct {
	StrictRead  bool `yaml:"strict_read"`
	StrictWrite bool `yaml:"strict_write"`
	// MaxDepth is the process-wide nesting ceiling handed to every skip and
	// value read.
	MaxDepth        int `yaml:"max_depth"`
	MaxStringLength int `yaml:"max_string_length"`
}

type EngineConfig struct {
	MaxFrameSize int `yaml:"max_frame_size"`
	PollBatch    int `yaml:"poll_batch"`
}

type ClientConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	RateLimit      float64       `yaml:"rate_limit"` // calls per second, 0 disables
	RateBurst      int           `yaml:"rate_burst"`
	Balancer       string        `yaml:"balancer"`
	// BalanceKey pins handles to one instance under consistent_hash.
	BalanceKey string `yaml:"balance_key"`
}

type RegistryConfig struct {
	Endpoints   []string      `yaml:"endpoints"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Prefix      string        `yaml:"prefix"`
	LeaseTTL    int64         `yaml:"lease_ttl"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Protocol: ProtocolConfig{
			StrictWrite: true,
			MaxDepth:    protocol.DefaultMaxDepth,
		},
		Engine: EngineConfig{
			MaxFrameSize: transport.DefaultMaxFrameSize,
			PollBatch:    64,
		},
		Client: ClientConfig{
			RateBurst: 1,
			Balancer:  "round_robin",
		},
		Registry: RegistryConfig{
			DialTimeout: 5 * time.Second,
			Prefix:      registry.DefaultPrefix,
			LeaseTTL:    10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of Default. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Protocol.MaxDepth <= 0:
		return fmt.Errorf("config: protocol.max_depth must be positive, got %d", c.Protocol.MaxDepth)
	case c.Protocol.MaxStringLength < 0:
		return fmt.Errorf("config: protocol.max_string_length must not be negative, got %d", c.Protocol.MaxStringLength)
	case c.Engine.MaxFrameSize <= 0:
		return fmt.Errorf("config: engine.max_frame_size must be positive, got %d", c.Engine.MaxFrameSize)
	case c.Engine.PollBatch < 0:
		return fmt.Errorf("config: engine.poll_batch must not be negative, got %d", c.Engine.PollBatch)
	case c.Client.DefaultTimeout < 0:
		return fmt.Errorf("config: client.default_timeout must not be negative, got %s", c.Client.DefaultTimeout)
	case c.Client.RateLimit < 0:
		return fmt.Errorf("config: client.rate_limit must not be negative, got %g", c.Client.RateLimit)
	case c.Client.RateLimit > 0 && c.Client.RateBurst < 1:
		return fmt.Errorf("config: client.rate_burst must be at least 1 when rate_limit is set, got %d", c.Client.RateBurst)
	}
	return nil
}

// ProtocolSettings returns the codec settings.
func (c *Config) ProtocolSettings() *protocol.Config {
	return &protocol.Config{
		StrictRead:      c.Protocol.StrictRead,
		StrictWrite:     c.Protocol.StrictWrite,
		MaxDepth:        c.Protocol.MaxDepth,
		MaxStringLength: c.Protocol.MaxStringLength,
	}
}

// EngineSettings returns the engine settings.
func (c *Config) EngineSettings() client.EngineConfig {
	return client.EngineConfig{PollBatch: c.Engine.PollBatch}
}

// HandleOptions returns per-handle codec and framing settings. The client
// default timeout is applied by middleware.DefaultTimeout instead, so a
// per-handle timeout still wins.
func (c *Config) HandleOptions() *client.HandleOptions {
	return &client.HandleOptions{
		Protocol:     c.ProtocolSettings(),
		MaxFrameSize: c.Engine.MaxFrameSize,
	}
}

// EtcdSettings returns the registry settings.
func (c *Config) EtcdSettings(logger *zap.Logger) registry.EtcdConfig {
	return registry.EtcdConfig{
		Endpoints:   c.Registry.Endpoints,
		DialTimeout: c.Registry.DialTimeout,
		Prefix:      c.Registry.Prefix,
		LeaseTTL:    c.Registry.LeaseTTL,
		Logger:      logger,
	}
}

// NewLogger builds a zap logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
