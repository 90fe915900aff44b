package teleop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(held ...string) KeySet {
	ks := make(KeySet, len(held))
	for _, k := range held {
		ks[k] = true
	}
	return ks
}

func TestDeriveDrive(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		held []string
		want DriveState
	}{
		{nil, DriveStopped},
		{[]string{"w"}, DriveForward},
		{[]string{"s"}, DriveBackward},
		{[]string{"a"}, DriveLeft},
		{[]string{"d"}, DriveRight},
		{[]string{"w", "a"}, DriveForwardLeft},
		{[]string{"w", "d"}, DriveForwardRight},
		{[]string{"s", "a"}, DriveBackwardLeft},
		{[]string{"s", "d"}, DriveBackwardRight},
		{[]string{"w", "s"}, DriveStopped},
		{[]string{"a", "d"}, DriveStopped},
		{[]string{"w", "a", "d"}, DriveStopped},
		{[]string{"s", "a", "d"}, DriveStopped},
		{[]string{"w", "s", "a"}, DriveStopped},
		{[]string{"w", "s", "d"}, DriveStopped},
		{[]string{"w", "a", "s", "d"}, DriveStopped},
		{[]string{"r", "t"}, DriveStopped},
	}

	for _, tt := range tests {
		got := DeriveDrive(keys(tt.held...), km)
		assert.Equal(t, tt.want, got, "DeriveDrive(%v)", tt.held)
	}
}

func TestDeriveDrive_ReleasedEntriesIgnored(t *testing.T) {
	ks := KeySet{"w": true, "s": false, "a": false}
	assert.Equal(t, DriveForward, DeriveDrive(ks, DefaultKeyMap()))
}

func TestDeriveDrive_OpposingKeysNeverMoveOnAxis(t *testing.T) {
	km := DefaultKeyMap()
	for _, turn := range [][]string{nil, {"a"}, {"d"}, {"a", "d"}} {
		held := append([]string{"w", "s"}, turn...)
		got := DeriveDrive(keys(held...), km)
		assert.NotContains(t, []DriveState{
			DriveForward, DriveBackward,
			DriveForwardLeft, DriveForwardRight,
			DriveBackwardLeft, DriveBackwardRight,
		}, got, "DeriveDrive(%v)", held)
	}
}

func TestDeriveActuators(t *testing.T) {
	km := DefaultKeyMap()

	liftTests := []struct {
		held []string
		want LiftState
	}{
		{nil, LiftStopped},
		{[]string{"r"}, LiftUp},
		{[]string{"f"}, LiftDown},
		{[]string{"r", "f"}, LiftStopped},
		{[]string{"t", "g", "w"}, LiftStopped},
	}
	for _, tt := range liftTests {
		assert.Equal(t, tt.want, DeriveLift(keys(tt.held...), km), "DeriveLift(%v)", tt.held)
	}

	headTests := []struct {
		held []string
		want HeadState
	}{
		{nil, HeadStopped},
		{[]string{"t"}, HeadUp},
		{[]string{"g"}, HeadDown},
		{[]string{"t", "g"}, HeadStopped},
		{[]string{"r", "f"}, HeadStopped},
	}
	for _, tt := range headTests {
		assert.Equal(t, tt.want, DeriveHead(keys(tt.held...), km), "DeriveHead(%v)", tt.held)
	}
}

// Every combination of the eight mapped keys derives a valid state, and
// deriving twice gives the same answer.
func TestDerive_TotalAndPure(t *testing.T) {
	km := DefaultKeyMap()
	all := km.Keys()

	for mask := 0; mask < 1<<len(all); mask++ {
		ks := KeySet{}
		for i, k := range all {
			if mask&(1<<i) != 0 {
				ks[k] = true
			}
		}

		d := DeriveDrive(ks, km)
		require.True(t, d >= 0 && int(d) < NumDriveStates, "mask %b: drive %d", mask, d)
		assert.Equal(t, d, DeriveDrive(ks, km))

		l := DeriveLift(ks, km)
		require.True(t, l >= 0 && int(l) < NumActuatorStates, "mask %b: lift %d", mask, l)
		assert.Equal(t, l, DeriveLift(ks, km))

		h := DeriveHead(ks, km)
		require.True(t, h >= 0 && int(h) < NumActuatorStates, "mask %b: head %d", mask, h)
		assert.Equal(t, h, DeriveHead(ks, km))

		assert.Len(t, ks, popcount(mask), "derivation must not mutate the key set")
	}
}

func popcount(v int) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func TestDeriveDrive_CustomKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	km.Forward, km.Left, km.Backward, km.Right = "up", "left", "down", "right"

	assert.Equal(t, DriveForwardRight, DeriveDrive(keys("up", "right"), km))
	assert.Equal(t, DriveStopped, DeriveDrive(keys("w"), km))
}

func TestKeyMap_Validate(t *testing.T) {
	require.NoError(t, DefaultKeyMap().Validate())

	km := DefaultKeyMap()
	km.HeadDown = ""
	assert.ErrorContains(t, km.Validate(), "empty binding")

	km = DefaultKeyMap()
	km.HeadDown = "w"
	assert.ErrorContains(t, km.Validate(), `"w" bound more than once`)
}

func TestStateNames(t *testing.T) {
	for _, s := range AllDriveStates() {
		parsed, err := ParseDriveState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "forward-left", DriveForwardLeft.String())
	assert.Equal(t, "up", LiftUp.String())
	assert.Equal(t, "down", HeadDown.String())

	_, err := ParseDriveState("sideways")
	assert.Error(t, err)
	_, err = ParseLiftState("left")
	assert.ErrorContains(t, err, "unknown lift state")

	h, err := ParseHeadState("stopped")
	require.NoError(t, err)
	assert.Equal(t, HeadStopped, h)
}

func TestMemory_State(t *testing.T) {
	mem := Memory{Drive: DriveBackwardRight, Head: HeadUp}

	var names []string
	var moving []bool
	for _, s := range AllSubsystems() {
		names = append(names, mem.State(s).String())
		moving = append(moving, mem.Moving(s))
	}
	assert.Equal(t, []string{"backward-right", "stopped", "up"}, names)
	assert.Equal(t, []bool{true, false, true}, moving)
	assert.False(t, Memory{}.Moving(Drive))
}
