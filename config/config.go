package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	ListenAddress   string   `toml:"ListenAddress"`
	DataDir         string   `toml:"DataDir"`
	Env             string   `toml:"Env"`
	SelfAddress     string   `toml:"SelfAddress"`
	Configurator    string   `toml:"Configurator"`
	VetoAdmin       string   `toml:"VetoAdmin"`
	BackendRPC      string   `toml:"BackendRPC"`
	ExecutorAccount string   `toml:"ExecutorAccount"`
	Pools           []string `toml:"Pools"`
	CreditManagers  []string `toml:"CreditManagers"`

	Auth          AuthConfig          `toml:"Auth"`
	Observability ObservabilityConfig `toml:"Observability"`
}

// AuthConfig controls bearer-token authentication on the HTTP API.
type AuthConfig struct {
	Enabled    bool   `toml:"Enabled"`
	HMACSecret string `toml:"HMACSecret"`
	Issuer     string `toml:"Issuer"`
	Audience   string `toml:"Audience"`
	ScopeClaim string `toml:"ScopeClaim"`
}

// ObservabilityConfig controls tracing, metrics, and request logging.
type ObservabilityConfig struct {
	Enabled       bool   `toml:"Enabled"`
	LogRequests   bool   `toml:"LogRequests"`
	MetricsPrefix string `toml:"MetricsPrefix"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8480"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./riskgov-data"
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "local"
	}
	if c.Pools == nil {
		c.Pools = []string{}
	}
	if c.CreditManagers == nil {
		c.CreditManagers = []string{}
	}
}

// Validate checks the address-valued fields. SelfAddress and Configurator are
// mandatory; the rest only need to parse when set.
func (c *Config) Validate() error {
	if _, err := requireAddress("SelfAddress", c.SelfAddress); err != nil {
		return err
	}
	if _, err := requireAddress("Configurator", c.Configurator); err != nil {
		return err
	}
	optional := map[string]string{
		"VetoAdmin":       c.VetoAdmin,
		"ExecutorAccount": c.ExecutorAccount,
	}
	for field, raw := range optional {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := requireAddress(field, raw); err != nil {
			return err
		}
	}
	for i, raw := range c.Pools {
		if _, err := requireAddress(fmt.Sprintf("Pools[%d]", i), raw); err != nil {
			return err
		}
	}
	for i, raw := range c.CreditManagers {
		if _, err := requireAddress(fmt.Sprintf("CreditManagers[%d]", i), raw); err != nil {
			return err
		}
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.HMACSecret) == "" {
		return fmt.Errorf("config: Auth.Enabled requires Auth.HMACSecret")
	}
	return nil
}

// SelfAddr returns the parsed controller identity.
func (c *Config) SelfAddr() common.Address { return common.HexToAddress(c.SelfAddress) }

// ConfiguratorAddr returns the parsed configurator identity.
func (c *Config) ConfiguratorAddr() common.Address { return common.HexToAddress(c.Configurator) }

// VetoAdminAddr returns the parsed veto admin, zero when unset.
func (c *Config) VetoAdminAddr() common.Address { return common.HexToAddress(c.VetoAdmin) }

// ExecutorAddr returns the parsed executor account, zero when unset.
func (c *Config) ExecutorAddr() common.Address { return common.HexToAddress(c.ExecutorAccount) }

func requireAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("config: %s is not a valid address: %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

// createDefault creates and saves a default configuration file. The address
// fields are left for the operator to fill in; Load will reject the file
// until they are.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:  ":8480",
		DataDir:        "./riskgov-data",
		Env:            "local",
		Pools:          []string{},
		CreditManagers: []string{},
		Observability: ObservabilityConfig{
			Enabled:       true,
			LogRequests:   true,
			MetricsPrefix: "riskgov",
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
