package teleop

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Deliverer sends a command towards the robot.
// Implementations should not block on the remote side.
type Deliverer interface {
	Deliver(ctx context.Context, cmd Command) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, cmd Command) error

// Deliver calls f(ctx, cmd).
func (f DelivererFunc) Deliver(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// ErrNoRoute is returned by a Router with no deliverer for a subsystem.
var ErrNoRoute = errors.New("no deliverer for subsystem")

// Router sends each command to the deliverer registered for its subsystem.
type Router map[Subsystem]Deliverer

// Deliver implements Deliverer.
func (r Router) Deliver(ctx context.Context, cmd Command) error {
	d, ok := r[cmd.Subsystem]
	if !ok || d == nil {
		return fmt.Errorf("%s: %w", cmd.Subsystem, ErrNoRoute)
	}
	return d.Deliver(ctx, cmd)
}

// Broadcast hands every command to all of its deliverers.
type Broadcast []Deliverer

// Deliver implements Deliverer. Every deliverer is tried even if one fails.
func (b Broadcast) Deliver(ctx context.Context, cmd Command) error {
	var errs error
	for _, d := range b {
		errs = multierr.Append(errs, d.Deliver(ctx, cmd))
	}
	return errs
}

// Decide derives the state of every subsystem and returns the commands needed
// to move from mem to the new states, in drive, lift, head order.
// A transition into drive stopped yields its stop command twice.
func Decide(keys KeySet, mem Memory, km KeyMap, cal *Calibration) ([]Command, Memory) {
	var cmds []Command
	next := Memory{
		Drive: DeriveDrive(keys, km),
		Lift:  DeriveLift(keys, km),
		Head:  DeriveHead(keys, km),
	}

	if next.Drive != mem.Drive {
		cmd := cal.DriveCommand(next.Drive)
		cmds = append(cmds, cmd)
		if next.Drive == DriveStopped {
			cmds = append(cmds, cmd)
		}
	}
	if next.Lift != mem.Lift {
		cmds = append(cmds, cal.LiftCommand(next.Lift))
	}
	if next.Head != mem.Head {
		cmds = append(cmds, cal.HeadCommand(next.Head))
	}
	return cmds, next
}

// Mapper turns key sets into edge-triggered commands.
// It is owned by a single tick driver and is not safe for concurrent use.
type Mapper struct {
	keys    KeyMap
	cal     Calibration
	out     Deliverer
	logger  *zap.Logger
	mem     Memory
	enabled bool
}

// NewMapper returns an enabled mapper with every subsystem stopped.
func NewMapper(keys KeyMap, cal Calibration, out Deliverer, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{
		keys:    keys,
		cal:     cal,
		out:     out,
		logger:  logger,
		enabled: true,
	}
}

// Memory returns the last dispatched states.
func (m *Mapper) Memory() Memory { return m.mem }

// Enabled reports whether ticks are processed.
func (m *Mapper) Enabled() bool { return m.enabled }

// SetEnabled turns keyboard control on or off. Memory is kept as is.
func (m *Mapper) SetEnabled(v bool) { m.enabled = v }

// Reset forgets the dispatched states without sending anything.
func (m *Mapper) Reset() { m.mem = Memory{} }

// Tick processes one sample of held keys and returns the commands it sent.
// Memory is updated before delivery and is never rolled back; delivery
// errors are logged and returned combined.
func (m *Mapper) Tick(ctx context.Context, keys KeySet) ([]Command, error) {
	if !m.enabled {
		return nil, nil
	}

	cmds, next := Decide(keys, m.mem, m.keys, &m.cal)
	if len(cmds) == 0 {
		return nil, nil
	}
	m.logger.Debug("state change",
		zap.Stringer("drive", next.Drive),
		zap.Stringer("lift", next.Lift),
		zap.Stringer("head", next.Head),
	)
	m.mem = next

	return cmds, m.deliver(ctx, cmds)
}

// Stop sends stop commands for every subsystem that is not already stopped
// and marks it stopped. It ignores the enabled flag.
func (m *Mapper) Stop(ctx context.Context) ([]Command, error) {
	cmds, next := Decide(nil, m.mem, m.keys, &m.cal)
	m.mem = next
	return cmds, m.deliver(ctx, cmds)
}

func (m *Mapper) deliver(ctx context.Context, cmds []Command) error {
	var errs error
	for _, cmd := range cmds {
		if err := m.out.Deliver(ctx, cmd); err != nil {
			m.logger.Warn("deliver failed", zap.Stringer("command", cmd), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("deliver %s: %w", cmd, err))
		}
	}
	return errs
}
