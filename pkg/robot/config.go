package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/gwillem/vectorpad/pkg/keyboard"
	"github.com/gwillem/vectorpad/pkg/logging"
	"github.com/gwillem/vectorpad/pkg/remote"
	"github.com/gwillem/vectorpad/pkg/teleop"
)

const DefaultConfigFile = "vectorpad.json"

// Defaults for fields missing from the config file.
const (
	DefaultServer      = "http://localhost:8012"
	DefaultHeartbeatMs = 5000
	DefaultLogFile     = "log/vectorpad.log"
	MaxHz              = 200
)

// Config holds the vectorpad configuration
type Config struct {
	Server      string             `json:"server"`
	Serial      string             `json:"serial"`
	Hz          int                `json:"hz"`
	HoldMs      int                `json:"hold_ms"`
	HeartbeatMs int                `json:"heartbeat_ms"`
	QueueSize   int                `json:"queue_size"`
	LogLevel    int                `json:"log_level"`
	LogFile     string             `json:"log_file"`
	Keys        teleop.KeyMap      `json:"keys"`
	Calibration *CalibrationConfig `json:"calibration,omitempty"`
	Servos      *RigConfig         `json:"servos,omitempty"`
}

// WheelSpeeds holds the wheel velocities for one drive state.
type WheelSpeeds struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// CalibrationConfig overrides command tables, keyed by state name.
// A table that is present must name every state of its subsystem.
type CalibrationConfig struct {
	Drive map[string]WheelSpeeds `json:"drive,omitempty"`
	Lift  map[string]int         `json:"lift,omitempty"`
	Head  map[string]int         `json:"head,omitempty"`
}

// RigConfig holds configuration for the local servo rig
type RigConfig struct {
	Port        string      `json:"port"`
	TravelMs    int         `json:"travel_ms,omitempty"`
	Calibration Calibration `json:"calibration,omitempty"`
}

// Validate checks the rig port and calibration.
func (r *RigConfig) Validate() error {
	if r.Port == "" {
		return errors.New("servos: port is required")
	}
	if err := r.Calibration.Validate(); err != nil {
		return fmt.Errorf("servos: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with every optional field set.
func DefaultConfig() Config {
	return Config{
		Server:      DefaultServer,
		Hz:          teleop.DefaultHz,
		HoldMs:      int(keyboard.DefaultHold / time.Millisecond),
		HeartbeatMs: DefaultHeartbeatMs,
		QueueSize:   remote.DefaultQueueSize,
		LogLevel:    logging.LevelInfo,
		LogFile:     DefaultLogFile,
		Keys:        teleop.DefaultKeyMap(),
	}
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Keys = keyboard.NormalizeKeyMap(cfg.Keys)
	return &cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

type envOverrides struct {
	Server   string `env:"VECTORPAD_SERVER"`
	Serial   string `env:"VECTORPAD_SERIAL"`
	Hz       int    `env:"VECTORPAD_HZ"`
	LogLevel int    `env:"VECTORPAD_LOG_LEVEL" envDefault:"-1"`
	LogFile  string `env:"VECTORPAD_LOG_FILE"`
}

// ApplyEnv overrides fields from VECTORPAD_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Server != "" {
		c.Server = o.Server
	}
	if o.Serial != "" {
		c.Serial = o.Serial
	}
	if o.Hz > 0 {
		c.Hz = o.Hz
	}
	if o.LogLevel >= 0 {
		c.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	return nil
}

// Validate checks the fields needed to drive a robot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server: %q is not an http(s) url", c.Server)
	}
	if c.Serial == "" {
		return errors.New("serial: no robot selected")
	}
	if c.Hz <= 0 || c.Hz > MaxHz {
		return fmt.Errorf("hz: %d out of range [1, %d]", c.Hz, MaxHz)
	}
	if c.HoldMs <= 0 {
		return fmt.Errorf("hold_ms: must be positive")
	}
	if c.HeartbeatMs <= 0 {
		return fmt.Errorf("heartbeat_ms: must be positive")
	}
	if err := c.Keys.Validate(); err != nil {
		return err
	}
	for _, k := range c.Keys.Keys() {
		if keyboard.Reserved(k) {
			return fmt.Errorf("key map: %q is reserved", k)
		}
	}
	if _, err := c.TeleopCalibration(); err != nil {
		return err
	}
	if c.Servos != nil {
		return c.Servos.Validate()
	}
	return nil
}

// Hold returns the key hold window.
func (c *Config) Hold() time.Duration {
	return time.Duration(c.HoldMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// TeleopCalibration returns the default command tables with the configured
// overrides applied.
func (c *Config) TeleopCalibration() (teleop.Calibration, error) {
	cal := teleop.DefaultCalibration()
	if c.Calibration == nil {
		return cal, nil
	}

	if t := c.Calibration.Drive; t != nil {
		if len(t) != teleop.NumDriveStates {
			return cal, fmt.Errorf("calibration: drive table has %d states, want %d", len(t), teleop.NumDriveStates)
		}
		for name, w := range t {
			s, err := teleop.ParseDriveState(name)
			if err != nil {
				return cal, fmt.Errorf("calibration: %w", err)
			}
			cal.Drive[s] = teleop.WheelCommand(w.Left, w.Right)
		}
	}
	if t := c.Calibration.Lift; t != nil {
		if len(t) != teleop.NumActuatorStates {
			return cal, fmt.Errorf("calibration: lift table has %d states, want %d", len(t), teleop.NumActuatorStates)
		}
		for name, speed := range t {
			s, err := teleop.ParseLiftState(name)
			if err != nil {
				return cal, fmt.Errorf("calibration: %w", err)
			}
			cal.Lift[s] = teleop.SpeedCommand(teleop.Lift, speed)
		}
	}
	if t := c.Calibration.Head; t != nil {
		if len(t) != teleop.NumActuatorStates {
			return cal, fmt.Errorf("calibration: head table has %d states, want %d", len(t), teleop.NumActuatorStates)
		}
		for name, speed := range t {
			s, err := teleop.ParseHeadState(name)
			if err != nil {
				return cal, fmt.Errorf("calibration: %w", err)
			}
			cal.Head[s] = teleop.SpeedCommand(teleop.Head, speed)
		}
	}

	if err := cal.Validate(); err != nil {
		return cal, fmt.Errorf("calibration: %w", err)
	}
	return cal, nil
}
