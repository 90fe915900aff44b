// Package vectorpad drives a Vector robot from the keyboard.
//
// Held keys are sampled at a fixed rate and mapped to drive, lift and head
// states. A command goes out only when a state changes, so holding a key
// sends it once and releasing it sends the matching stop.
//
// # Installation
//
//	go install github.com/gwillem/vectorpad/cmd/vectorpad@latest
//
// # Usage
//
// First, run setup to pick the server and robot, and optionally calibrate
// a local servo rig that mirrors the lift and head:
//
//	vectorpad setup
//
// Then start driving:
//
//	vectorpad drive
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/vectorpad: CLI with setup, drive, robots, status and intent commands
//   - pkg/teleop: Key to state mapping, edge-triggered dispatch and the tick controller
//   - pkg/keyboard: Held key tracking for terminals without key release events
//   - pkg/remote: HTTP client for the robot server and the async command dispatcher
//   - pkg/robot: Configuration, servo rig control and calibration
//   - pkg/logging: File logging setup
package vectorpad
