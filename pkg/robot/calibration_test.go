package robot

import (
	"math"
	"testing"
)

func TestJointCalibration_Normalize(t *testing.T) {
	cal := JointCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -100.0}, // min -> -100
		{3000, 100.0},  // max -> 100
		{2000, 0.0},    // mid -> 0
		{1500, -50.0},  // quarter -> -50
		{2500, 50.0},   // three-quarter -> 50
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}

	if got := (JointCalibration{RangeMin: 5, RangeMax: 5}).Normalize(5); got != 0 {
		t.Errorf("Normalize on empty range = %f, want 0", got)
	}
}

func TestJointCalibration_TravelTime(t *testing.T) {
	cal := JointCalibration{RangeMin: 1000, RangeMax: 3000}

	tests := []struct {
		from, to, fullMs, speed int
		expected                int
	}{
		{1000, 3000, 8000, 1, 8000}, // full sweep at speed 1
		{1000, 3000, 8000, 2, 4000}, // twice as fast
		{2000, 1000, 8000, -2, 2000},
		{3000, 3000, 8000, 2, 0}, // already there
		{1000, 3000, 8000, 0, 0},
	}

	for _, tt := range tests {
		got := cal.TravelTime(tt.from, tt.to, tt.fullMs, tt.speed)
		if got != tt.expected {
			t.Errorf("TravelTime(%d, %d, %d, %d) = %d, want %d", tt.from, tt.to, tt.fullMs, tt.speed, got, tt.expected)
		}
	}
}

func TestCalibration_IDs(t *testing.T) {
	cal := Calibration{
		HeadJoint: JointCalibration{ID: 8},
		LiftJoint: JointCalibration{ID: 7},
	}

	ids := cal.IDs()
	expected := []int{7, 8}

	if len(ids) != len(expected) {
		t.Fatalf("IDs returned %d IDs, want %d", len(ids), len(expected))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("IDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		LiftJoint: JointCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		HeadJoint: JointCalibration{ID: 6, RangeMin: 300, RangeMax: 400},
	}

	// Test finding existing ID
	name, jc, ok := cal.ByID(1)
	if !ok {
		t.Fatal("ByID(1) returned false")
	}
	if name != LiftJoint {
		t.Errorf("ByID(1) returned name %s, want lift", name)
	}
	if jc.RangeMin != 100 {
		t.Errorf("ByID(1) returned wrong calibration: %+v", jc)
	}

	// Test non-existing ID
	_, _, ok = cal.ByID(99)
	if ok {
		t.Error("ByID(99) should return false")
	}
}

func TestCalibration_Validate(t *testing.T) {
	good := Calibration{
		LiftJoint: JointCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		HeadJoint: JointCalibration{ID: 2, RangeMin: 300, RangeMax: 400},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name string
		cal  Calibration
	}{
		{"missing head", Calibration{LiftJoint: good[LiftJoint]}},
		{"zero id", Calibration{LiftJoint: good[LiftJoint], HeadJoint: JointCalibration{RangeMin: 1, RangeMax: 2}}},
		{"shared id", Calibration{LiftJoint: good[LiftJoint], HeadJoint: JointCalibration{ID: 1, RangeMin: 1, RangeMax: 2}}},
		{"empty range", Calibration{LiftJoint: good[LiftJoint], HeadJoint: JointCalibration{ID: 2, RangeMin: 5, RangeMax: 5}}},
	}
	for _, tt := range tests {
		if err := tt.cal.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
		}
	}
}
