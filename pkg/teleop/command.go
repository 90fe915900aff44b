package teleop

import (
	"fmt"
	"net/url"
	"strconv"
)

// Limits accepted by the robot server.
const (
	MaxWheelSpeed    = 200
	MaxActuatorSpeed = 10
)

// Command is a parameterized request for one subsystem.
// Drive commands use Left and Right; lift and head commands use Speed.
type Command struct {
	Subsystem Subsystem
	Left      int
	Right     int
	Speed     int
}

// WheelCommand returns a drive command with the given wheel velocities.
func WheelCommand(left, right int) Command {
	return Command{Subsystem: Drive, Left: left, Right: right}
}

// SpeedCommand returns a lift or head command with the given speed.
func SpeedCommand(s Subsystem, speed int) Command {
	return Command{Subsystem: s, Speed: speed}
}

// Params encodes the command as query parameters.
func (c Command) Params() url.Values {
	v := url.Values{}
	if c.Subsystem == Drive {
		v.Set("left", strconv.Itoa(c.Left))
		v.Set("right", strconv.Itoa(c.Right))
	} else {
		v.Set("speed", strconv.Itoa(c.Speed))
	}
	return v
}

// IsStop reports whether the command halts its subsystem.
func (c Command) IsStop() bool {
	if c.Subsystem == Drive {
		return c.Left == 0 && c.Right == 0
	}
	return c.Speed == 0
}

func (c Command) String() string {
	if c.Subsystem == Drive {
		return fmt.Sprintf("drive L%d R%d", c.Left, c.Right)
	}
	return fmt.Sprintf("%s %d", c.Subsystem, c.Speed)
}

// Calibration binds every subsystem state to exactly one command.
// The tables are fixed-size arrays indexed by state, so every state has an entry.
type Calibration struct {
	Drive [NumDriveStates]Command
	Lift  [NumActuatorStates]Command
	Head  [NumActuatorStates]Command
}

// DefaultCalibration returns the wheel and actuator speeds tuned for Vector.
func DefaultCalibration() Calibration {
	return Calibration{
		Drive: [NumDriveStates]Command{
			DriveStopped:       WheelCommand(0, 0),
			DriveForward:       WheelCommand(140, 140),
			DriveBackward:      WheelCommand(-150, -150),
			DriveLeft:          WheelCommand(-150, 150),
			DriveRight:         WheelCommand(150, -150),
			DriveForwardLeft:   WheelCommand(100, 190),
			DriveForwardRight:  WheelCommand(190, 100),
			DriveBackwardLeft:  WheelCommand(-100, 190),
			DriveBackwardRight: WheelCommand(-190, 100),
		},
		Lift: [NumActuatorStates]Command{
			LiftStopped: SpeedCommand(Lift, 0),
			LiftUp:      SpeedCommand(Lift, 2),
			LiftDown:    SpeedCommand(Lift, -2),
		},
		Head: [NumActuatorStates]Command{
			HeadStopped: SpeedCommand(Head, 0),
			HeadUp:      SpeedCommand(Head, 2),
			HeadDown:    SpeedCommand(Head, -2),
		},
	}
}

// DriveCommand returns the command bound to a drive state.
func (c *Calibration) DriveCommand(s DriveState) Command { return c.Drive[s] }

// LiftCommand returns the command bound to a lift state.
func (c *Calibration) LiftCommand(s LiftState) Command { return c.Lift[s] }

// HeadCommand returns the command bound to a head state.
func (c *Calibration) HeadCommand(s HeadState) Command { return c.Head[s] }

// Validate checks subsystems, server limits and that stopped states really stop.
func (c *Calibration) Validate() error {
	for i, cmd := range c.Drive {
		state := DriveState(i)
		if cmd.Subsystem != Drive {
			return fmt.Errorf("drive %s: bound to %s command", state, cmd.Subsystem)
		}
		if abs(cmd.Left) > MaxWheelSpeed || abs(cmd.Right) > MaxWheelSpeed {
			return fmt.Errorf("drive %s: wheel speed out of range [-%d, %d]", state, MaxWheelSpeed, MaxWheelSpeed)
		}
		if state == DriveStopped && !cmd.IsStop() {
			return fmt.Errorf("drive %s: wheels must be zero", state)
		}
	}
	if err := validateActuator(Lift, c.Lift); err != nil {
		return err
	}
	return validateActuator(Head, c.Head)
}

func validateActuator(sub Subsystem, table [NumActuatorStates]Command) error {
	for i, cmd := range table {
		name := actuatorState(i).name(sub.String())
		if cmd.Subsystem != sub {
			return fmt.Errorf("%s %s: bound to %s command", sub, name, cmd.Subsystem)
		}
		if abs(cmd.Speed) > MaxActuatorSpeed {
			return fmt.Errorf("%s %s: speed out of range [-%d, %d]", sub, name, MaxActuatorSpeed, MaxActuatorSpeed)
		}
		if actuatorState(i) == actuatorStopped && !cmd.IsStop() {
			return fmt.Errorf("%s %s: speed must be zero", sub, name)
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
