// Package robot holds the vectorpad configuration and the optional servo rig
// that mirrors the robot's lift and head.
package robot

import "github.com/gwillem/vectorpad/pkg/teleop"

// JointName identifies a servo joint on the rig.
type JointName string

// Joints on the rig.
const (
	LiftJoint JointName = "lift"
	HeadJoint JointName = "head"
)

// AllJoints returns all joint names in order.
func AllJoints() []JointName {
	return []JointName{
		LiftJoint,
		HeadJoint,
	}
}

// JointFor returns the joint driven by a subsystem. The drive base has none.
func JointFor(s teleop.Subsystem) (JointName, bool) {
	switch s {
	case teleop.Lift:
		return LiftJoint, true
	case teleop.Head:
		return HeadJoint, true
	}
	return "", false
}
