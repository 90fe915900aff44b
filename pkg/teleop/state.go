package teleop

import "fmt"

// Subsystem identifies one of the independently actuated groups on the robot.
type Subsystem int

const (
	Drive Subsystem = iota
	Lift
	Head
)

// AllSubsystems returns all subsystems in dispatch order.
func AllSubsystems() []Subsystem {
	return []Subsystem{Drive, Lift, Head}
}

func (s Subsystem) String() string {
	switch s {
	case Drive:
		return "drive"
	case Lift:
		return "lift"
	case Head:
		return "head"
	}
	return fmt.Sprintf("subsystem(%d)", int(s))
}

// DriveState is the intended motion of the drive base.
type DriveState int

const (
	DriveStopped DriveState = iota
	DriveForward
	DriveBackward
	DriveLeft
	DriveRight
	DriveForwardLeft
	DriveForwardRight
	DriveBackwardLeft
	DriveBackwardRight

	NumDriveStates = iota
)

var driveStateNames = [NumDriveStates]string{
	DriveStopped:       "stopped",
	DriveForward:       "forward",
	DriveBackward:      "backward",
	DriveLeft:          "left",
	DriveRight:         "right",
	DriveForwardLeft:   "forward-left",
	DriveForwardRight:  "forward-right",
	DriveBackwardLeft:  "backward-left",
	DriveBackwardRight: "backward-right",
}

// AllDriveStates returns every drive state in declaration order.
func AllDriveStates() []DriveState {
	states := make([]DriveState, NumDriveStates)
	for i := range states {
		states[i] = DriveState(i)
	}
	return states
}

func (s DriveState) String() string {
	if s < 0 || int(s) >= NumDriveStates {
		return fmt.Sprintf("drive(%d)", int(s))
	}
	return driveStateNames[s]
}

// ParseDriveState returns the drive state with the given name.
func ParseDriveState(name string) (DriveState, error) {
	for i, n := range driveStateNames {
		if n == name {
			return DriveState(i), nil
		}
	}
	return DriveStopped, fmt.Errorf("unknown drive state %q", name)
}

// actuatorState is the intended motion of a single-axis actuator.
// LiftState and HeadState share its values but are distinct types.
type actuatorState int

const (
	actuatorStopped actuatorState = iota
	actuatorUp
	actuatorDown

	// NumActuatorStates is the number of lift (and head) states.
	NumActuatorStates = iota
)

var actuatorStateNames = [NumActuatorStates]string{
	actuatorStopped: "stopped",
	actuatorUp:      "up",
	actuatorDown:    "down",
}

func (s actuatorState) name(kind string) string {
	if s < 0 || int(s) >= NumActuatorStates {
		return fmt.Sprintf("%s(%d)", kind, int(s))
	}
	return actuatorStateNames[s]
}

func parseActuatorState(kind, name string) (actuatorState, error) {
	for i, n := range actuatorStateNames {
		if n == name {
			return actuatorState(i), nil
		}
	}
	return actuatorStopped, fmt.Errorf("unknown %s state %q", kind, name)
}

// LiftState is the intended motion of the lift.
type LiftState actuatorState

const (
	LiftStopped = LiftState(actuatorStopped)
	LiftUp      = LiftState(actuatorUp)
	LiftDown    = LiftState(actuatorDown)
)

func (s LiftState) String() string { return actuatorState(s).name("lift") }

// ParseLiftState returns the lift state with the given name.
func ParseLiftState(name string) (LiftState, error) {
	s, err := parseActuatorState("lift", name)
	return LiftState(s), err
}

// HeadState is the intended motion of the head.
type HeadState actuatorState

const (
	HeadStopped = HeadState(actuatorStopped)
	HeadUp      = HeadState(actuatorUp)
	HeadDown    = HeadState(actuatorDown)
)

func (s HeadState) String() string { return actuatorState(s).name("head") }

// ParseHeadState returns the head state with the given name.
func ParseHeadState(name string) (HeadState, error) {
	s, err := parseActuatorState("head", name)
	return HeadState(s), err
}

// Memory holds the last dispatched state of each subsystem.
// The zero value has every subsystem stopped.
type Memory struct {
	Drive DriveState
	Lift  LiftState
	Head  HeadState
}

// Stopped reports whether every subsystem is stopped.
func (m Memory) Stopped() bool {
	return m == Memory{}
}

// State returns the remembered state of subsystem s.
func (m Memory) State(s Subsystem) fmt.Stringer {
	switch s {
	case Lift:
		return m.Lift
	case Head:
		return m.Head
	}
	return m.Drive
}

// Moving reports whether subsystem s is in a state other than stopped.
func (m Memory) Moving(s Subsystem) bool {
	return m.State(s) != Memory{}.State(s)
}
