package targettrack

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewTargetState tests that the derived center and normalized fields
// are consistent with the pixel box
func TestNewTargetState(t *testing.T) {

	s := NewTargetState(7, 100, 50, 300, 250, 640, 480)

	assert.Equal(t, 7, s.Frame)
	assert.InDelta(t, 200.0, s.CenterX, 1e-5)
	assert.InDelta(t, 150.0, s.CenterY, 1e-5)

	assert.InDelta(t, 100.0/640, s.NormX1, 1e-5)
	assert.InDelta(t, 300.0/640, s.NormX2, 1e-5)
	assert.InDelta(t, 50.0/480, s.NormY1, 1e-5)
	assert.InDelta(t, 250.0/480, s.NormY2, 1e-5)

	// normalized center equals the center of the normalized box
	assert.InDelta(t, float64(s.NormX1+s.NormX2)/2, float64(s.NormCenterX), 1e-5)
	assert.InDelta(t, float64(s.NormY1+s.NormY2)/2, float64(s.NormCenterY), 1e-5)
}

// TestNewTargetStateZeroFrame tests that unknown frame dimensions leave
// the normalized fields zeroed instead of dividing by zero
func TestNewTargetStateZeroFrame(t *testing.T) {

	s := NewTargetState(1, 100, 100, 200, 200, 0, 0)

	assert.Zero(t, s.NormX1)
	assert.Zero(t, s.NormCenterX)
	assert.InDelta(t, 150.0, s.CenterX, 1e-5)
}

// TestStateBoardPublishLatest tests the write then read round trip
func TestStateBoardPublishLatest(t *testing.T) {

	board := NewStateBoard()

	_, ok := board.Latest()
	assert.False(t, ok, "board must be empty before the first publish")

	s := NewTargetState(3, 10, 10, 50, 50, 640, 480)
	s.Active = true
	s.Confidence = 0.8

	require.NoError(t, board.Publish(s))

	got, ok := board.Latest()
	require.True(t, ok)
	assert.Equal(t, s, got)
}

// TestStateBoardRejectsNonFinite tests that a non-finite state is
// rejected and the previous state retained
func TestStateBoardRejectsNonFinite(t *testing.T) {

	board := NewStateBoard()

	good := NewTargetState(1, 10, 10, 50, 50, 640, 480)
	require.NoError(t, board.Publish(good))

	bad := NewTargetState(2, 10, 10, 50, 50, 640, 480)
	bad.CenterX = float32(math.NaN())

	assert.ErrorIs(t, board.Publish(bad), ErrInvalidState)

	got, ok := board.Latest()
	require.True(t, ok)
	assert.Equal(t, 1, got.Frame, "previous state must be retained")

	inf := NewTargetState(3, 10, 10, 50, 50, 640, 480)
	inf.VelocityX = float32(math.Inf(1))

	assert.ErrorIs(t, board.Publish(inf), ErrInvalidState)
}

// TestStateBoardConcurrentReaders tests one writer against many readers
func TestStateBoardConcurrentReaders(t *testing.T) {

	board := NewStateBoard()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				if s, ok := board.Latest(); ok {
					// a snapshot is never torn, the center always
					// matches its box
					assert.InDelta(t, float64(s.X1+s.X2)/2, float64(s.CenterX), 1e-3)
				}
			}
		}()
	}

	for f := 1; f <= 1000; f++ {
		x := float32(f % 500)
		s := NewTargetState(f, x, x, x+100, x+100, 640, 480)

		require.NoError(t, board.Publish(s))
	}

	close(stop)
	wg.Wait()
}
