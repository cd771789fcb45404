// YAML scenario loader with CUE validation integration
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mmwave-irs-sim/internal/geom"
	"mmwave-irs-sim/internal/irs"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid scenario config")

// RSSI value modes for the rssi CSV stream.
const (
	RssiRaw       = "raw"
	RssiReference = "reference"
)

// Traffic describes the UDP flows of the scenario.
type Traffic struct {
	PacketSize       uint32        `yaml:"packet_size" json:"packet_size"`
	PacketInterval   time.Duration `yaml:"packet_interval" json:"packet_interval"`
	JammerPacketSize uint32        `yaml:"jammer_packet_size" json:"jammer_packet_size"`
	JammerInterval   time.Duration `yaml:"jammer_interval" json:"jammer_interval"`
}

// Output controls the per-user CSV artifacts.
type Output struct {
	Dir             string  `yaml:"dir" json:"dir"`
	Prefix          string  `yaml:"prefix" json:"prefix"`
	RssiMode        string  `yaml:"rssi_mode" json:"rssi_mode"`
	RssiReferenceDb float64 `yaml:"rssi_reference_db" json:"rssi_reference_db"`
}

// Channel configures the propagation model.
type Channel struct {
	CarrierGHz       float64       `yaml:"carrier_ghz" json:"carrier_ghz"`
	PathLossInterval time.Duration `yaml:"pathloss_interval" json:"pathloss_interval"`
}

// ScenarioConfig is the root configuration of one simulation run.
type ScenarioConfig struct {
	NumUsers      uint32    `yaml:"num_users" json:"num_users"`
	SimTime       float64   `yaml:"sim_time" json:"sim_time"`
	EnableIrs     bool      `yaml:"enable_irs" json:"enable_irs"`
	IrsGain       float64   `yaml:"irs_gain" json:"irs_gain"`
	ElementsPerUE uint32    `yaml:"elements_per_ue" json:"elements_per_ue"`
	KFactor       float64   `yaml:"k_factor" json:"k_factor"`
	IrsPosition   geom.Vec3 `yaml:"irs_position" json:"irs_position"`
	Jammer        bool      `yaml:"jammer" json:"jammer"`
	Seed          int64     `yaml:"seed" json:"seed"`
	Traffic       Traffic   `yaml:"traffic" json:"traffic"`
	Channel       Channel   `yaml:"channel" json:"channel"`
	Output        Output    `yaml:"output" json:"output"`
}

// MarshalJSON renders the intervals as duration strings, as in the YAML file.
func (t Traffic) MarshalJSON() ([]byte, error) {
	type plain Traffic
	return json.Marshal(struct {
		plain
		PacketInterval string `json:"packet_interval"`
		JammerInterval string `json:"jammer_interval"`
	}{plain(t), t.PacketInterval.String(), t.JammerInterval.String()})
}

// MarshalJSON renders the evaluation interval as a duration string.
func (c Channel) MarshalJSON() ([]byte, error) {
	type plain Channel
	return json.Marshal(struct {
		plain
		PathLossInterval string `json:"pathloss_interval"`
	}{plain(c), c.PathLossInterval.String()})
}

// Default returns the reference IRS scenario: five users, a UAV relay and a
// jammer over 30 minutes.
func Default() ScenarioConfig {
	return ScenarioConfig{
		NumUsers:      5,
		SimTime:       1800,
		EnableIrs:     true,
		IrsGain:       300,
		ElementsPerUE: 64,
		KFactor:       3,
		IrsPosition:   geom.Vec3{X: 15, Y: 7.5, Z: 15},
		Jammer:        true,
		Seed:          1,
		Traffic: Traffic{
			PacketSize:       1024,
			PacketInterval:   10 * time.Millisecond,
			JammerPacketSize: 512,
			JammerInterval:   100 * time.Microsecond,
		},
		Channel: Channel{
			CarrierGHz:       28,
			PathLossInterval: 100 * time.Millisecond,
		},
		Output: Output{
			Dir:             ".",
			Prefix:          "mmwave",
			RssiMode:        RssiReference,
			RssiReferenceDb: 10,
		},
	}
}

// Load reads a YAML scenario over the defaults. When cueSchemaPath is not
// empty the file is validated against the schema first.
func Load(configPath, cueSchemaPath string) (*ScenarioConfig, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read scenario config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse scenario config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the preconditions the simulator relies on.
func (c *ScenarioConfig) Validate() error {
	switch {
	case c.NumUsers == 0:
		return fmt.Errorf("%w: num_users must be positive", ErrInvalidConfig)
	case c.SimTime <= 0:
		return fmt.Errorf("%w: sim_time must be positive, got %g", ErrInvalidConfig, c.SimTime)
	case c.ElementsPerUE == 0:
		return fmt.Errorf("%w: elements_per_ue must be at least 1", ErrInvalidConfig)
	case c.KFactor < 0:
		return fmt.Errorf("%w: k_factor must not be negative, got %g", ErrInvalidConfig, c.KFactor)
	case c.Traffic.PacketSize == 0:
		return fmt.Errorf("%w: traffic.packet_size must be positive", ErrInvalidConfig)
	case c.Traffic.PacketInterval <= 0:
		return fmt.Errorf("%w: traffic.packet_interval must be positive", ErrInvalidConfig)
	case c.Jammer && c.Traffic.JammerInterval <= 0:
		return fmt.Errorf("%w: traffic.jammer_interval must be positive", ErrInvalidConfig)
	case c.Channel.PathLossInterval <= 0:
		return fmt.Errorf("%w: channel.pathloss_interval must be positive", ErrInvalidConfig)
	case c.Channel.CarrierGHz <= 0:
		return fmt.Errorf("%w: channel.carrier_ghz must be positive", ErrInvalidConfig)
	case c.Output.Prefix == "":
		return fmt.Errorf("%w: output.prefix must not be empty", ErrInvalidConfig)
	case c.Output.RssiMode != RssiRaw && c.Output.RssiMode != RssiReference:
		return fmt.Errorf("%w: output.rssi_mode must be %q or %q, got %q", ErrInvalidConfig, RssiRaw, RssiReference, c.Output.RssiMode)
	}
	return nil
}

// Duration returns the simulated run length.
func (c *ScenarioConfig) Duration() time.Duration {
	return time.Duration(c.SimTime * float64(time.Second))
}

// NodeCount returns the number of simulated nodes: users, the UAV and the
// optional jammer.
func (c *ScenarioConfig) NodeCount() int {
	n := int(c.NumUsers) + 1
	if c.Jammer {
		n++
	}
	return n
}

// GainParameters returns the IRS configuration of the run.
func (c *ScenarioConfig) GainParameters() irs.GainParameters {
	return irs.GainParameters{
		Enabled:       c.EnableIrs,
		BaseGainDb:    c.IrsGain,
		ElementsPerUE: c.ElementsPerUE,
		KFactor:       c.KFactor,
		Position:      c.IrsPosition,
	}
}
