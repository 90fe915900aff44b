package teleop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCalibration(t *testing.T) {
	cal := DefaultCalibration()
	require.NoError(t, cal.Validate())

	tests := []struct {
		state       DriveState
		left, right int
	}{
		{DriveStopped, 0, 0},
		{DriveForward, 140, 140},
		{DriveForwardLeft, 100, 190},
		{DriveForwardRight, 190, 100},
		{DriveLeft, -150, 150},
		{DriveRight, 150, -150},
		{DriveBackward, -150, -150},
		{DriveBackwardLeft, -100, 190},
		{DriveBackwardRight, -190, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, WheelCommand(tt.left, tt.right), cal.DriveCommand(tt.state), "DriveCommand(%s)", tt.state)
	}

	assert.Equal(t, SpeedCommand(Lift, 0), cal.LiftCommand(LiftStopped))
	assert.Equal(t, SpeedCommand(Lift, 2), cal.LiftCommand(LiftUp))
	assert.Equal(t, SpeedCommand(Lift, -2), cal.LiftCommand(LiftDown))
	assert.Equal(t, SpeedCommand(Head, 0), cal.HeadCommand(HeadStopped))
	assert.Equal(t, SpeedCommand(Head, 2), cal.HeadCommand(HeadUp))
	assert.Equal(t, SpeedCommand(Head, -2), cal.HeadCommand(HeadDown))
}

func TestDefaultCalibration_Symmetry(t *testing.T) {
	cal := DefaultCalibration()

	left, right := cal.DriveCommand(DriveLeft), cal.DriveCommand(DriveRight)
	assert.Equal(t, left.Left, -left.Right, "left spins in place")
	assert.Equal(t, left.Left, right.Right)
	assert.Equal(t, left.Right, right.Left)

	for _, s := range []DriveState{DriveForwardLeft, DriveForwardRight} {
		cmd := cal.DriveCommand(s)
		assert.NotEqual(t, cmd.Left, cmd.Right, "%s arcs", s)
		assert.True(t, cmd.Left > 0 && cmd.Right > 0, "%s moves forward", s)
	}

	assert.Equal(t, cal.LiftCommand(LiftUp).Speed, -cal.LiftCommand(LiftDown).Speed)
	assert.Equal(t, cal.HeadCommand(HeadUp).Speed, -cal.HeadCommand(HeadDown).Speed)
}

func TestCalibration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Calibration)
		wantErr string
	}{
		{
			name:    "wheel out of range",
			modify:  func(c *Calibration) { c.Drive[DriveForward] = WheelCommand(201, 140) },
			wantErr: "drive forward: wheel speed out of range",
		},
		{
			name:    "stop that moves",
			modify:  func(c *Calibration) { c.Drive[DriveStopped] = WheelCommand(0, 10) },
			wantErr: "drive stopped: wheels must be zero",
		},
		{
			name:    "wrong subsystem",
			modify:  func(c *Calibration) { c.Lift[LiftUp] = SpeedCommand(Head, 2) },
			wantErr: "lift up: bound to head command",
		},
		{
			name:    "speed out of range",
			modify:  func(c *Calibration) { c.Head[HeadDown] = SpeedCommand(Head, -11) },
			wantErr: "head down: speed out of range",
		},
		{
			name:    "missing entry",
			modify:  func(c *Calibration) { c.Head[HeadStopped] = Command{} },
			wantErr: "head stopped: bound to drive command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := DefaultCalibration()
			tt.modify(&cal)
			assert.ErrorContains(t, cal.Validate(), tt.wantErr)
		})
	}
}

func TestCommand_Params(t *testing.T) {
	assert.Equal(t, "left=100&right=190", WheelCommand(100, 190).Params().Encode())
	assert.Equal(t, "speed=-2", SpeedCommand(Lift, -2).Params().Encode())
	assert.Equal(t, "speed=0", SpeedCommand(Head, 0).Params().Encode())
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "drive L-150 R150", WheelCommand(-150, 150).String())
	assert.Equal(t, "lift 2", SpeedCommand(Lift, 2).String())
	assert.True(t, WheelCommand(0, 0).IsStop())
	assert.False(t, SpeedCommand(Head, 2).IsStop())
}
