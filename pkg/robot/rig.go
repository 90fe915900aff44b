package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.uber.org/multierr"

	"github.com/gwillem/vectorpad/pkg/teleop"
)

// DefaultTravelMs is the time a joint takes to sweep its full range at speed 1.
const DefaultTravelMs = 8000

// ErrUnsupportedSubsystem is returned for commands the rig has no joint for.
var ErrUnsupportedSubsystem = errors.New("subsystem not on rig")

// servo is the part of feetech.Servo the rig uses.
type servo interface {
	Position(ctx context.Context) (int, error)
	SetPositionWithTime(ctx context.Context, position, timeMs int) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Rig drives the lift and head joints of a local servo bus.
type Rig struct {
	bus         io.Closer
	servos      map[JointName]servo
	calibration Calibration
	travelMs    int

	mu sync.Mutex
}

// OpenRig connects to the servo bus described by cfg and enables torque.
func OpenRig(ctx context.Context, cfg RigConfig) (*Rig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ids := cfg.Calibration.IDs()
	found, err := bus.Scan(ctx, slices.Min(ids), slices.Max(ids))
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan bus: %w", err)
	}

	servos := make(map[JointName]servo, len(ids))
	for _, name := range AllJoints() {
		id := cfg.Calibration[name].ID
		idx := slices.IndexFunc(found, func(s feetech.FoundServo) bool { return s.ID == id })
		if idx < 0 {
			bus.Close()
			return nil, fmt.Errorf("joint %s: servo %d not found on %s", name, id, cfg.Port)
		}
		servos[name] = feetech.NewServo(bus, id, found[idx].Model)
	}

	rig := newRig(bus, servos, cfg.Calibration, cfg.TravelMs)
	if err := rig.Enable(ctx); err != nil {
		bus.Close()
		return nil, err
	}
	return rig, nil
}

func newRig(bus io.Closer, servos map[JointName]servo, cal Calibration, travelMs int) *Rig {
	if travelMs <= 0 {
		travelMs = DefaultTravelMs
	}
	return &Rig{
		bus:         bus,
		servos:      servos,
		calibration: cal,
		travelMs:    travelMs,
	}
}

// Enable enables torque on all joints.
func (r *Rig) Enable(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range AllJoints() {
		if err := r.servos[name].Enable(ctx); err != nil {
			return fmt.Errorf("enable %s: %w", name, err)
		}
	}
	return nil
}

// Send moves the joint for a lift or head command. A positive speed moves
// towards the top of the calibrated range, a negative one towards the
// bottom, and zero holds the current position. It implements remote.Sender.
func (r *Rig) Send(ctx context.Context, cmd teleop.Command) error {
	name, ok := JointFor(cmd.Subsystem)
	if !ok {
		return fmt.Errorf("%s: %w", cmd.Subsystem, ErrUnsupportedSubsystem)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, cal := r.servos[name], r.calibration[name]
	pos, err := s.Position(ctx)
	if err != nil {
		return fmt.Errorf("read %s position: %w", name, err)
	}

	target := pos
	switch {
	case cmd.Speed > 0:
		target = cal.RangeMax
	case cmd.Speed < 0:
		target = cal.RangeMin
	}
	ms := cal.TravelTime(pos, target, r.travelMs, cmd.Speed)

	if err := s.SetPositionWithTime(ctx, target, ms); err != nil {
		return fmt.Errorf("move %s: %w", name, err)
	}
	return nil
}

// Positions reads the joints as normalized positions in the range [-100, 100].
func (r *Rig) Positions(ctx context.Context) (map[JointName]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	positions := make(map[JointName]float64, len(r.servos))
	for _, name := range AllJoints() {
		raw, err := r.servos[name].Position(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s position: %w", name, err)
		}
		positions[name] = r.calibration[name].Normalize(raw)
	}
	return positions, nil
}

// Close disables torque and closes the bus.
func (r *Rig) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx := context.Background()
	var errs error
	for _, name := range AllJoints() {
		if err := r.servos[name].Disable(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("disable %s: %w", name, err))
		}
	}
	if r.bus != nil {
		errs = multierr.Append(errs, r.bus.Close())
	}
	return errs
}
