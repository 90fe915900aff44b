package robot

import (
	"fmt"
	"slices"
)

// JointCalibration holds calibration data for a single servo joint.
type JointCalibration struct {
	ID       int `json:"id"`
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
}

// Calibration holds calibration data for all joints, keyed by joint name.
type Calibration map[JointName]JointCalibration

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c JointCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// TravelTime returns how long, in milliseconds, a move from one raw position
// to another takes when a full sweep of the range at speed 1 takes fullMs.
func (c JointCalibration) TravelTime(from, to, fullMs, speed int) int {
	rangeSize := c.RangeMax - c.RangeMin
	if rangeSize <= 0 || speed == 0 {
		return 0
	}
	dist := to - from
	if dist < 0 {
		dist = -dist
	}
	if speed < 0 {
		speed = -speed
	}
	return dist * fullMs / (rangeSize * speed)
}

// IDs returns the servo IDs for all joints in the calibration.
func (c Calibration) IDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllJoints() to ensure consistent ordering
	for _, name := range AllJoints() {
		if jc, ok := c[name]; ok {
			ids = append(ids, jc.ID)
		}
	}
	return ids
}

// ByID returns joint name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (JointName, JointCalibration, bool) {
	for name, jc := range c {
		if jc.ID == id {
			return name, jc, true
		}
	}
	return "", JointCalibration{}, false
}

// Validate checks that every joint is calibrated with a distinct servo ID
// and a non-empty range.
func (c Calibration) Validate() error {
	var seen []int
	for _, name := range AllJoints() {
		jc, ok := c[name]
		if !ok {
			return fmt.Errorf("joint %s: not calibrated", name)
		}
		if jc.ID <= 0 {
			return fmt.Errorf("joint %s: invalid servo id %d", name, jc.ID)
		}
		if slices.Contains(seen, jc.ID) {
			return fmt.Errorf("joint %s: servo id %d used twice", name, jc.ID)
		}
		seen = append(seen, jc.ID)
		if jc.RangeMax <= jc.RangeMin {
			return fmt.Errorf("joint %s: empty range [%d, %d]", name, jc.RangeMin, jc.RangeMax)
		}
	}
	return nil
}
