package teleop

import "fmt"

// KeySet maps a key identifier to whether it is currently held.
// A missing entry means the key is not held.
type KeySet map[string]bool

// KeyMap names the keys read by derivation.
type KeyMap struct {
	Forward  string `json:"forward"`
	Left     string `json:"left"`
	Backward string `json:"backward"`
	Right    string `json:"right"`
	LiftUp   string `json:"lift_up"`
	LiftDown string `json:"lift_down"`
	HeadUp   string `json:"head_up"`
	HeadDown string `json:"head_down"`
}

// DefaultKeyMap returns the WASD layout with r/f for the lift and t/g for the head.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Forward:  "w",
		Left:     "a",
		Backward: "s",
		Right:    "d",
		LiftUp:   "r",
		LiftDown: "f",
		HeadUp:   "t",
		HeadDown: "g",
	}
}

// Keys returns all mapped keys in a fixed order.
func (m KeyMap) Keys() []string {
	return []string{m.Forward, m.Left, m.Backward, m.Right, m.LiftUp, m.LiftDown, m.HeadUp, m.HeadDown}
}

// Validate checks that every binding is set and no key is bound twice.
func (m KeyMap) Validate() error {
	seen := make(map[string]bool, 8)
	for _, k := range m.Keys() {
		if k == "" {
			return fmt.Errorf("key map: empty binding")
		}
		if seen[k] {
			return fmt.Errorf("key map: %q bound more than once", k)
		}
		seen[k] = true
	}
	return nil
}

// DeriveDrive returns the drive state for the held keys.
//
// Forward and backward are checked before pure turning. Opposing keys cancel,
// and any combination without a single clear meaning resolves to stopped.
func DeriveDrive(keys KeySet, m KeyMap) DriveState {
	w, a, s, d := keys[m.Forward], keys[m.Left], keys[m.Backward], keys[m.Right]

	if w && !s {
		switch {
		case a && !d:
			return DriveForwardLeft
		case d && !a:
			return DriveForwardRight
		case !a && !d:
			return DriveForward
		}
	}
	if s && !w {
		switch {
		case a && !d:
			return DriveBackwardLeft
		case d && !a:
			return DriveBackwardRight
		case !a && !d:
			return DriveBackward
		}
	}
	if !w && !s {
		switch {
		case a && !d:
			return DriveLeft
		case d && !a:
			return DriveRight
		}
	}
	return DriveStopped
}

// DeriveLift returns the lift state for the held keys.
func DeriveLift(keys KeySet, m KeyMap) LiftState {
	return LiftState(deriveActuator(keys[m.LiftUp], keys[m.LiftDown]))
}

// DeriveHead returns the head state for the held keys.
func DeriveHead(keys KeySet, m KeyMap) HeadState {
	return HeadState(deriveActuator(keys[m.HeadUp], keys[m.HeadDown]))
}

func deriveActuator(up, down bool) actuatorState {
	switch {
	case up && !down:
		return actuatorUp
	case down && !up:
		return actuatorDown
	}
	return actuatorStopped
}
