// Package teleop maps held keyboard keys to edge-triggered robot commands.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultHz is the control frequency used when none is configured.
const DefaultHz = 20

// KeySource supplies the currently held keys.
type KeySource interface {
	Keys() KeySet
}

// State represents the controller after a tick.
type State struct {
	Memory    Memory
	Enabled   bool
	Commands  []Command // sent during this tick
	Timestamp time.Time
	Error     error
}

// Controller runs the keyboard control loop.
type Controller struct {
	mapper *Mapper
	source KeySource
	hz     int
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.RWMutex
	running bool
	enabled bool
	resync  bool
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Hz          int
	KeyMap      KeyMap
	Calibration *Calibration // nil uses DefaultCalibration
	Disabled    bool         // start with keyboard control off
	Clock       clock.Clock  // nil uses the wall clock
}

// NewController creates a keyboard teleoperation controller.
func NewController(cfg Config, source KeySource, out Deliverer, logger *zap.Logger) (*Controller, error) {
	if source == nil {
		return nil, errors.New("key source is required")
	}
	if out == nil {
		return nil, errors.New("deliverer is required")
	}
	if err := cfg.KeyMap.Validate(); err != nil {
		return nil, err
	}

	cal := DefaultCalibration()
	if cfg.Calibration != nil {
		cal = *cfg.Calibration
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		mapper:  NewMapper(cfg.KeyMap, cal, out, logger.Named("mapper")),
		source:  source,
		hz:      cfg.Hz,
		clock:   cfg.Clock,
		logger:  logger,
		enabled: !cfg.Disabled,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Enabled reports whether keyboard control is on.
func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled turns keyboard control on or off. While off, ticks neither
// read keys nor send commands, and the remembered states are left alone.
func (c *Controller) SetEnabled(v bool) {
	c.mu.Lock()
	changed := c.enabled != v
	c.enabled = v
	c.mu.Unlock()

	if changed {
		if v {
			c.log("Keyboard control enabled")
		} else {
			c.log("Keyboard control disabled")
		}
	}
}

// Resync makes the next tick forget the remembered states, so whatever is
// held then is sent again. Use it after the remote side lost track of the
// robot, e.g. when control had to be claimed again.
func (c *Controller) Resync() {
	c.mu.Lock()
	c.resync = true
	c.mu.Unlock()
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.logger.Info(text)
	msg := fmt.Sprintf("[%s] %s", c.clock.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until ctx is done. On exit every moving
// subsystem is sent a stop command.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	ticker := c.clock.Ticker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	c.log("Teleoperation started at %d Hz", c.hz)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	c.mu.Lock()
	enabled, resync := c.enabled, c.resync
	c.resync = false
	c.mu.Unlock()

	if resync {
		c.mapper.Reset()
		c.log("Robot state resynced")
	}
	c.mapper.SetEnabled(enabled)

	var keys KeySet
	if enabled {
		keys = c.source.Keys()
	}

	cmds, err := c.mapper.Tick(ctx, keys)
	if err != nil {
		c.log("Deliver error: %v", err)
	}
	if len(cmds) > 0 {
		mem := c.mapper.Memory()
		c.log("drive=%s lift=%s head=%s", mem.Drive, mem.Lift, mem.Head)
	}

	c.sendState(State{
		Memory:    c.mapper.Memory(),
		Enabled:   enabled,
		Commands:  cmds,
		Timestamp: c.clock.Now(),
		Error:     err,
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if !c.mapper.Memory().Stopped() {
		if _, err := c.mapper.Stop(context.Background()); err != nil {
			c.log("Warning: failed to stop robot: %v", err)
		} else {
			c.log("Robot stopped")
		}
	}
	c.log("Teleoperation stopped")
}
