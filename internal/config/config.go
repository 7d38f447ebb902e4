package config

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"github.com/ardnew/mcp47x6"
)

const (
	ConfigDir  = ".mcp47x6"
	ConfigFile = "config.yaml"

	DefaultLogLevel = "info"

	TransportMCP2221A = "mcp2221a"
	TransportPeriph   = "periph"
	TransportSMBus    = "smbus"

	DefaultTransport = TransportMCP2221A
	DefaultBaud      = 100000
	DefaultSMBus     = 1

	DefaultVariant = "MCP4726"
	DefaultVRef    = "vdd"
	DefaultGain    = "x1"
	DefaultPower   = "normal"
	DefaultMemory  = "volatile-dac"
)

// Transports lists the accepted values of TransportConfig.Kind.
var Transports = []string{TransportMCP2221A, TransportPeriph, TransportSMBus}

type ErrConfigFileExists struct {
	Path string
}

func (e ErrConfigFileExists) Error() string {
	return fmt.Sprintf("config file %s already exists", e.Path)
}

type TransportConfig struct {
	Kind string `json:"kind"`
	// Index selects among several attached MCP2221A bridges.
	Index uint8  `json:"index"`
	Baud  uint32 `json:"baud,omitempty"`
	// Bus is the periph I²C bus name; empty selects the first one.
	Bus string `json:"bus,omitempty"`
	// SMBus is the /dev/i2c-N bus number.
	SMBus int `json:"smbus"`
}

type DeviceConfig struct {
	Variant string `json:"variant"`
	Address uint8  `json:"address"`
	VRef    string `json:"vref"`
	Gain    string `json:"gain"`
	Power   string `json:"power"`
	Memory  string `json:"memory"`
	Level   uint16 `json:"level"`
}

type Config struct {
	LogLevel         string `json:"logLevel,omitempty"`
	*TransportConfig `json:"transport,omitempty"`
	*DeviceConfig    `json:"device,omitempty"`
	filepath         string
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		TransportConfig: &TransportConfig{
			Kind:  DefaultTransport,
			Baud:  DefaultBaud,
			SMBus: DefaultSMBus,
		},
		DeviceConfig: &DeviceConfig{
			Variant: DefaultVariant,
			Address: mcp47x6.DefaultAddress,
			VRef:    DefaultVRef,
			Gain:    DefaultGain,
			Power:   DefaultPower,
			Memory:  DefaultMemory,
		},
		filepath: DefaultConfigPath(),
	}
}

// WithPath points the configuration at a file other than the default.
func (c *Config) WithPath(path string) *Config {
	c.filepath = path
	return c
}

func (c *Config) Path() string { return c.filepath }

// Load reads the configuration file if it exists, keeping the defaults for
// anything it does not set.
func (c *Config) Load() error {
	if _, err := os.Stat(c.filepath); os.IsNotExist(err) {
		return nil
	}
	return c.LoadConfig()
}

func (c *Config) LoadConfig() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.filepath), 0755); err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// Validate checks the transport kind and every device setting.
func (c *Config) Validate() error {
	if nil == c.TransportConfig || nil == c.DeviceConfig {
		return fmt.Errorf("incomplete configuration")
	}
	known := false
	for _, k := range Transports {
		known = known || k == c.TransportConfig.Kind
	}
	if !known {
		return fmt.Errorf("unknown transport %q", c.TransportConfig.Kind)
	}
	if _, err := c.DeviceConfig.Model(); err != nil {
		return err
	}
	if _, err := c.DeviceConfig.Settings(); err != nil {
		return err
	}
	return nil
}

// Model returns the configured device variant.
func (d *DeviceConfig) Model() (mcp47x6.Variant, error) {
	return mcp47x6.ParseVariant(d.Variant)
}

// Settings converts the configured names into driver settings.
func (d *DeviceConfig) Settings() (mcp47x6.Settings, error) {
	var (
		s   = mcp47x6.Settings{Level: d.Level}
		err error
	)
	if s.VRef, err = mcp47x6.ParseVRef(d.VRef); err != nil {
		return s, err
	}
	if s.Gain, err = mcp47x6.ParseGain(d.Gain); err != nil {
		return s, err
	}
	if s.Power, err = mcp47x6.ParsePowerDown(d.Power); err != nil {
		return s, err
	}
	if s.Memory, err = mcp47x6.ParseMemoryWrite(d.Memory); err != nil {
		return s, err
	}
	if s.Level > mcp47x6.MaxLevel {
		return s, fmt.Errorf("level %d out of range [0, %d]", s.Level, mcp47x6.MaxLevel)
	}
	return s, nil
}
