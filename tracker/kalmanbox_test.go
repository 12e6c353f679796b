package tracker

import (
	"math"
	"testing"
)

// almostEqual checks if two float32 values are approximately equal
func almostEqual(a, b, tolerance float32) bool {
	return float32(math.Abs(float64(a)-float64(b))) <= tolerance
}

// rectsEqual compares two rectangles within a tolerance
func rectsEqual(a, b Rect, tolerance float32) bool {
	for i := range a.Tlwh {
		if !almostEqual(a.Tlwh[i], b.Tlwh[i], tolerance) {
			return false
		}
	}
	return true
}

// TestKalmanBoxTrackerInit tests the state after initialization from the
// first measurement
func TestKalmanBoxTrackerInit(t *testing.T) {

	rect := NewRect(100, 100, 100, 100)
	kb := NewKalmanBoxTracker(rect)

	if !rectsEqual(kb.CurrentRect(), rect, 1e-3) {
		t.Errorf("expected rect %v, got %v", rect, kb.CurrentRect())
	}

	vx, vy := kb.Velocity()

	if vx != 0 || vy != 0 {
		t.Errorf("expected zero initial velocity, got (%v, %v)", vx, vy)
	}

	if !almostEqual(kb.PositionUncertainty(), 20.0, 1e-6) {
		t.Errorf("expected initial position uncertainty 20, got %v",
			kb.PositionUncertainty())
	}
}

// TestKalmanBoxTrackerPredictStationary tests that prediction with zero
// velocity holds position, never produces a degenerate box, and grows
// uncertainty monotonically
func TestKalmanBoxTrackerPredictStationary(t *testing.T) {

	rect := NewRect(100, 100, 100, 100)
	kb := NewKalmanBoxTracker(rect)

	prevUncertainty := kb.PositionUncertainty()

	for i := 0; i < 50; i++ {

		pred := kb.Predict()

		if pred.Width() <= 0 || pred.Height() <= 0 {
			t.Fatalf("predict %d: degenerate box %v", i, pred)
		}

		if pred.Width()*pred.Height() < 0.99 {
			t.Fatalf("predict %d: area below floor %v", i, pred)
		}

		u := kb.PositionUncertainty()

		if u < prevUncertainty {
			t.Fatalf("predict %d: uncertainty decreased %v -> %v",
				i, prevUncertainty, u)
		}

		prevUncertainty = u
	}

	// zero velocity so the box must not have drifted
	if !rectsEqual(kb.CurrentRect(), rect, 1e-2) {
		t.Errorf("stationary prediction drifted: expected %v, got %v",
			rect, kb.CurrentRect())
	}

	if kb.Age() != 50 || kb.TimeSinceUpdate() != 50 {
		t.Errorf("expected age=50 timeSinceUpdate=50, got %d and %d",
			kb.Age(), kb.TimeSinceUpdate())
	}
}

// TestKalmanBoxTrackerUpdate tests that a measurement moves the estimate
// toward it and resets the update counters
func TestKalmanBoxTrackerUpdate(t *testing.T) {

	kb := NewKalmanBoxTracker(NewRect(100, 100, 100, 100))

	kb.Predict()

	err := kb.Update(NewRect(110, 100, 100, 100))

	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	c := kb.CurrentRect().Center()

	// posterior center lies between the prior (150) and the
	// measurement (160)
	if c.X <= 150 || c.X > 160 {
		t.Errorf("expected center x in (150,160], got %v", c.X)
	}

	if kb.TimeSinceUpdate() != 0 {
		t.Errorf("expected timeSinceUpdate 0, got %d", kb.TimeSinceUpdate())
	}

	if kb.HitCount() != 1 {
		t.Errorf("expected hitCount 1, got %d", kb.HitCount())
	}
}

// TestKalmanBoxTrackerVelocity tests velocity learning from a constant
// motion sequence and the side-effect-free lookahead
func TestKalmanBoxTrackerVelocity(t *testing.T) {

	kb := NewKalmanBoxTracker(NewRect(0, 0, 100, 100))

	for i := 1; i <= 10; i++ {
		kb.Predict()

		if err := kb.Update(NewRect(float32(i)*5, 0, 100, 100)); err != nil {
			t.Fatalf("failed to update at step %d: %v", i, err)
		}
	}

	vx, vy := kb.Velocity()

	if vx <= 0 {
		t.Errorf("expected positive x velocity, got %v", vx)
	}

	if !almostEqual(vy, 0, 1.0) {
		t.Errorf("expected near zero y velocity, got %v", vy)
	}

	before := kb.CurrentRect()
	beforeVx, _ := kb.Velocity()

	ahead := kb.PredictNFrames(5)

	if ahead.Center().X <= before.Center().X {
		t.Errorf("lookahead did not advance: %v -> %v",
			before.Center(), ahead.Center())
	}

	// lookahead must not mutate the tracker
	if !rectsEqual(kb.CurrentRect(), before, 1e-6) {
		t.Errorf("PredictNFrames mutated state: %v -> %v",
			before, kb.CurrentRect())
	}

	afterVx, _ := kb.Velocity()

	if beforeVx != afterVx {
		t.Errorf("PredictNFrames mutated velocity: %v -> %v",
			beforeVx, afterVx)
	}
}

// TestKalmanBoxTrackerReset tests that re-anchoring jumps the position
// while preserving the learned velocity
func TestKalmanBoxTrackerReset(t *testing.T) {

	kb := NewKalmanBoxTracker(NewRect(0, 0, 100, 100))

	for i := 1; i <= 10; i++ {
		kb.Predict()

		if err := kb.Update(NewRect(float32(i)*5, 0, 100, 100)); err != nil {
			t.Fatalf("failed to update at step %d: %v", i, err)
		}
	}

	vxBefore, vyBefore := kb.Velocity()

	kb.Reset(NewRect(500, 500, 100, 100))

	c := kb.CurrentRect().Center()

	if !almostEqual(c.X, 550, 1e-2) || !almostEqual(c.Y, 550, 1e-2) {
		t.Errorf("expected re-anchored center (550,550), got %v", c)
	}

	vxAfter, vyAfter := kb.Velocity()

	if vxBefore != vxAfter || vyBefore != vyAfter {
		t.Errorf("reset discarded velocity: (%v,%v) -> (%v,%v)",
			vxBefore, vyBefore, vxAfter, vyAfter)
	}

	if kb.TimeSinceUpdate() != 0 {
		t.Errorf("expected timeSinceUpdate 0 after reset, got %d",
			kb.TimeSinceUpdate())
	}
}

// TestKalmanBoxTrackerAreaClamp tests that a learned negative area
// velocity can never integrate into a non-physical box
func TestKalmanBoxTrackerAreaClamp(t *testing.T) {

	kb := NewKalmanBoxTracker(NewRect(100, 100, 100, 100))

	// shrink the box aggressively to learn a negative area velocity
	size := float32(100)

	for i := 0; i < 8; i++ {
		kb.Predict()
		size *= 0.7

		if err := kb.Update(NewRect(100, 100, size, size)); err != nil {
			t.Fatalf("failed to update at step %d: %v", i, err)
		}
	}

	// run prediction-only until the integrated area would have gone
	// negative without the clamp
	for i := 0; i < 100; i++ {

		pred := kb.Predict()

		if pred.Width() <= 0 || pred.Height() <= 0 {
			t.Fatalf("predict %d: degenerate box %v", i, pred)
		}

		if pred.Width()*pred.Height() < 0.99 {
			t.Fatalf("predict %d: area below floor %v", i, pred)
		}
	}
}
