package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration decoded from TOML.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	LogFile       string `toml:"LogFile"`
	Environment   string `toml:"Environment"`
	OTLPEndpoint  string `toml:"OTLPEndpoint"`
	OTLPInsecure  bool   `toml:"OTLPInsecure"`

	Pool   PoolConfig   `toml:"pool"`
	Assets AssetsConfig `toml:"assets"`
	Feeds  []FeedConfig `toml:"feeds"`
}

// PoolConfig carries the pool module parameters in wire-friendly units.
type PoolConfig struct {
	MinOrderSizeWei string   `toml:"MinOrderSizeWei"`
	SwapBufferHours int64    `toml:"SwapBufferHours"`
	MaturityDays    int64    `toml:"MaturityDays"`
	Leverage        int64    `toml:"Leverage"`
	SpreadBps       uint64   `toml:"SpreadBps"`
	Borrowers       []string `toml:"Borrowers"`
}

// AssetsConfig names the asset identifiers and custody accounts.
type AssetsConfig struct {
	Stable  string `toml:"Stable"`
	Rwa     string `toml:"Rwa"`
	Pool    string `toml:"Pool"`
	Reserve string `toml:"Reserve"`
}

// FeedConfig seeds one manual price feed into the resolution graph.
type FeedConfig struct {
	Base          string `toml:"Base"`
	Quote         string `toml:"Quote"`
	Price         string `toml:"Price"`
	Decimals      uint8  `toml:"Decimals"`
	MaxAgeSeconds int64  `toml:"MaxAgeSeconds"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	if c.Pool.SwapBufferHours <= 0 {
		c.Pool.SwapBufferHours = 48
	}
	if c.Pool.MaturityDays <= 0 {
		c.Pool.MaturityDays = 180
	}
	if c.Pool.Leverage <= 0 {
		c.Pool.Leverage = 50
	}
	if c.Pool.SpreadBps == 0 {
		c.Pool.SpreadBps = 9950
	}
	for i := range c.Feeds {
		if c.Feeds[i].Decimals == 0 {
			c.Feeds[i].Decimals = 18
		}
		if c.Feeds[i].MaxAgeSeconds <= 0 {
			c.Feeds[i].MaxAgeSeconds = 86_400
		}
	}
}
