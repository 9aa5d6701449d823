// Package config resolves recorder settings from defaults, environment,
// a YAML file and command line flags, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/openbci.go/pkg/cyton"
	"github.com/robotalks/openbci.go/pkg/transport/serialport"
)

// Session mirrors cyton.SessionConfig in the file format.
type Session struct {
	DurationSeconds int           `yaml:"duration_seconds"`
	SampleRateHz    int           `yaml:"sample_rate_hz"`
	BimodalChannels []int         `yaml:"bimodal_channels"`
	AckTimeout      time.Duration `yaml:"ack_timeout"`
	StrictFooter    bool          `yaml:"strict_footer"`
	QueryRegisters  bool          `yaml:"query_registers"`
}

// Cyton converts to the acquisition session config.
func (s Session) Cyton() cyton.SessionConfig {
	return cyton.SessionConfig{
		DurationSeconds: s.DurationSeconds,
		SampleRateHz:    s.SampleRateHz,
		BimodalChannels: append([]int(nil), s.BimodalChannels...),
		AckTimeout:      s.AckTimeout,
		StrictFooter:    s.StrictFooter,
		QueryRegisters:  s.QueryRegisters,
	}
}

// Output selects the sinks. Empty values disable a sink.
type Output struct {
	// File is the text output, "-" for stdout.
	File   string `yaml:"file"`
	SQLite string `yaml:"sqlite"`
	// MQTTURL is like mqtt://host:1883/topic/prefix/.
	MQTTURL         string `yaml:"mqtt_url"`
	WebsocketAddr   string `yaml:"websocket_addr"`
	WebsocketBuffer int    `yaml:"websocket_buffer"`
}

// Config is the recorder configuration.
type Config struct {
	// Device is the serial port path.
	Device string `yaml:"device"`
	// DeviceID names this recorder on MQTT and in SQLite, defaults to
	// the machine id.
	DeviceID string             `yaml:"device_id"`
	Serial   serialport.Options `yaml:"serial"`
	Session  Session            `yaml:"session"`
	Output   Output             `yaml:"output"`
}

var defaultConfig = Config{
	Device: "/dev/ttyUSB0",
	Serial: serialport.DefaultOptions(),
	Session: Session{
		DurationSeconds: 10,
		SampleRateHz:    cyton.DefaultSampleRateHz,
		BimodalChannels: []int{1, 2},
		AckTimeout:      5 * time.Second,
	},
	Output: Output{File: "-"},
}

var defaultConfigFile string

func init() {
	applyEnv(&defaultConfig, os.Getenv)
	defaultConfigFile = os.Getenv("OPENBCI_CONFIG")
}

func applyEnv(c *Config, getenv func(string) string) {
	if val := getenv("OPENBCI_DEVICE"); val != "" {
		c.Device = val
	}
	if val := getenv("OPENBCI_DEVICE_ID"); val != "" {
		c.DeviceID = val
	}
	if val := getenv("OPENBCI_MQTT_URL"); val != "" {
		c.Output.MQTTURL = val
	}
	if val := getenv("OPENBCI_WS_ADDR"); val != "" {
		c.Output.WebsocketAddr = val
	}
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Session.BimodalChannels = append([]int(nil), defaultConfig.Session.BimodalChannels...)
	return &conf
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	conf := NewConfig()
	if err := conf.LoadFile(path); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadFile overlays values from a YAML file. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := c.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Decode overlays YAML from r. Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks configuration correctness.
// It does not mutate configuration.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("device must be specified")
	}
	if _, err := c.Serial.Normalize(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if c.Session.SampleRateHz <= 0 {
		return fmt.Errorf("session: sample_rate_hz must be positive, got %d", c.Session.SampleRateHz)
	}
	if c.Session.AckTimeout < 0 {
		return fmt.Errorf("session: ack_timeout must not be negative, got %v", c.Session.AckTimeout)
	}
	seen := make(map[int]bool)
	for _, ch := range c.Session.BimodalChannels {
		if ch < 1 || ch > cyton.NumChannels {
			return fmt.Errorf("session: bimodal channel %d out of range 1-%d", ch, cyton.NumChannels)
		}
		if seen[ch] {
			return fmt.Errorf("session: bimodal channel %d listed twice", ch)
		}
		seen[ch] = true
	}
	out := c.Output
	if out.File == "" && out.SQLite == "" && out.MQTTURL == "" && out.WebsocketAddr == "" {
		return errors.New("output: no sink configured")
	}
	if out.WebsocketBuffer < 0 {
		return fmt.Errorf("output: websocket_buffer must not be negative, got %d", out.WebsocketBuffer)
	}
	return nil
}

// ParseChannels parses a comma separated channel list like "1,2".
func ParseChannels(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	channels := make([]int, 0, len(parts))
	for _, part := range parts {
		ch, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid channel %q", part)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// FormatChannels is the inverse of ParseChannels.
func FormatChannels(channels []int) string {
	strs := make([]string, len(channels))
	for n, ch := range channels {
		strs[n] = strconv.Itoa(ch)
	}
	return strings.Join(strs, ",")
}
