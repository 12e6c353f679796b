package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StateMean represents the 1x7 filter state [cx, cy, s, r, vx, vy, vs]
// using a slice of float32, where s is the bbox area and r the aspect
// ratio
type StateMean []float32

// StateCov represents a 7x7 covariance matrix
type StateCov struct {
	*mat.Dense
}

// KalmanBoxTracker is a constant-velocity Kalman filter over bounding-box
// state, owned 1:1 by a tracked object.  Center and area integrate their
// velocities each frame, the aspect ratio is modeled as static.
type KalmanBoxTracker struct {
	// motionMat is the 7x7 constant-velocity transition matrix
	motionMat *mat.Dense
	// updateMat is the 4x7 projection into measurement space
	updateMat *mat.Dense
	// mean is the current state estimate
	mean StateMean
	// covariance is the current state covariance
	covariance StateCov
	// hitCount is the number of measurement updates applied
	hitCount int
	// age is the number of predict steps taken
	age int
	// timeSinceUpdate counts predict steps since the last measurement
	timeSinceUpdate int
}

// NewKalmanBoxTracker initializes a tracker from the first measured
// bounding box.  Velocity components start at zero with high uncertainty.
func NewKalmanBoxTracker(rect Rect) *KalmanBoxTracker {

	ndim := 4

	// constant-velocity transition: identity plus unit dt coupling of
	// cx/cy/s to vx/vy/vs
	motionMat := mat.NewDense(7, 7, nil)

	for i := 0; i < 7; i++ {
		motionMat.Set(i, i, 1.0)
	}

	for i := 0; i < 3; i++ {
		motionMat.Set(i, ndim+i, 1.0)
	}

	// measurement projection onto [cx, cy, s, r]
	updateMat := mat.NewDense(4, 7, nil)

	for i := 0; i < 4; i++ {
		updateMat.Set(i, i, 1.0)
	}

	mean := make(StateMean, 7)
	copy(mean[:4], rect.GetXysr())

	// initial covariance: moderate position uncertainty, large velocity
	// uncertainty since velocities are unobserved at this point
	covariance := StateCov{mat.NewDense(7, 7, nil)}

	for i := 0; i < 4; i++ {
		covariance.Set(i, i, 10.0)
	}

	for i := 4; i < 7; i++ {
		covariance.Set(i, i, 1e4)
	}

	return &KalmanBoxTracker{
		motionMat:  motionMat,
		updateMat:  updateMat,
		mean:       mean,
		covariance: covariance,
	}
}

// processNoise returns the per-step process noise covariance Q
func processNoise() *mat.Dense {

	q := mat.NewDense(7, 7, nil)

	for i := 0; i < 4; i++ {
		q.Set(i, i, 1.0)
	}

	q.Set(4, 4, 1e-2)
	q.Set(5, 5, 1e-2)
	q.Set(6, 6, 1e-4)

	return q
}

// stepMean advances a state mean by one frame of the constant-velocity
// model, clamping the area velocity so an integrated negative area can
// never occur
func stepMean(mean StateMean) {

	if mean[2]+mean[6] <= 0 {
		mean[6] = 0
	}

	mean[0] += mean[4]
	mean[1] += mean[5]
	mean[2] += mean[6]
}

// Predict advances the state by one frame and returns the predicted
// bounding box.  Must be called exactly once per frame regardless of
// whether a measurement follows.
func (k *KalmanBoxTracker) Predict() Rect {

	stepMean(k.mean)

	// propagate covariance P = F*P*Ft + Q
	cov := k.covariance.Dense
	cov.Mul(k.motionMat, cov)
	cov.Mul(cov, k.motionMat.T())
	cov.Add(cov, processNoise())

	k.age++
	k.timeSinceUpdate++

	return GenerateRectByXysr(Xysr(k.mean[:4]))
}

// PredictNFrames returns the bounding box n frames ahead using a local
// copy of the state.  The tracker itself is left untouched so the
// lookahead can be used for speculative occlusion bridging.
func (k *KalmanBoxTracker) PredictNFrames(n int) Rect {

	mean := make(StateMean, 7)
	copy(mean, k.mean)

	for i := 0; i < n; i++ {
		stepMean(mean)
	}

	return GenerateRectByXysr(Xysr(mean[:4]))
}

// Update corrects the state with a new measured bounding box.  If the
// innovation covariance cannot be factorized the update is skipped and
// the prediction stands.
func (k *KalmanBoxTracker) Update(rect Rect) error {

	measurement := rect.GetXysr()

	// project the state mean and covariance to measurement space
	projectedMean, projectedCov := k.project()

	// perform Cholesky factorization of the projected covariance matrix
	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// compute the matrix B for Kalman gain calculation
	B := mat.NewDense(7, 4, nil)
	B.Mul(k.covariance.Dense, k.updateMat.T())

	// compute the Kalman gain using the Cholesky factorization
	var kalmanGain mat.Dense
	err := chol.SolveTo(&kalmanGain, B.T())

	if err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	// compute the innovation (measurement residual)
	innovation := make([]float64, 4)

	for i := 0; i < 4; i++ {
		innovation[i] = float64(measurement[i] - projectedMean[i])
	}

	// update the state mean with the innovation
	innovationVec := mat.NewVecDense(4, innovation)
	tmp := mat.NewVecDense(7, nil)
	tmp.MulVec(kalmanGain.T(), innovationVec)

	for i := 0; i < 7; i++ {
		k.mean[i] += float32(tmp.AtVec(i))
	}

	// update the state covariance
	temp := mat.NewDense(7, 4, nil)
	temp.Mul(kalmanGain.T(), projectedCov)

	temp2 := mat.NewDense(7, 7, nil)
	temp2.Mul(temp, &kalmanGain)

	newCov := mat.NewDense(7, 7, nil)
	newCov.Sub(k.covariance.Dense, temp2)

	k.covariance.Dense = newCov

	k.timeSinceUpdate = 0
	k.hitCount++

	return nil
}

// Reset re-anchors the position and size to the given bounding box with
// low uncertainty while preserving the velocity estimate.  Used on
// successful re-identification so the filter does not treat recovery as
// a brand-new object with unknown velocity.
func (k *KalmanBoxTracker) Reset(rect Rect) {

	copy(k.mean[:4], rect.GetXysr())

	newCov := mat.NewDense(7, 7, nil)

	for i := 0; i < 4; i++ {
		newCov.Set(i, i, 10.0)
	}

	// keep the learned velocity covariance block
	for i := 4; i < 7; i++ {
		for j := 4; j < 7; j++ {
			newCov.Set(i, j, k.covariance.At(i, j))
		}
	}

	k.covariance.Dense = newCov
	k.timeSinceUpdate = 0
}

// project projects the state mean and covariance to measurement space
func (k *KalmanBoxTracker) project() (Xysr, *mat.SymDense) {

	// measurement noise covariance, area and ratio measurements are an
	// order of magnitude noisier than the center
	innovationCov := mat.NewSymDense(4, nil)
	innovationCov.SetSym(0, 0, 1.0)
	innovationCov.SetSym(1, 1, 1.0)
	innovationCov.SetSym(2, 2, 10.0)
	innovationCov.SetSym(3, 3, 10.0)

	// project the state mean to measurement space
	projectedMeanVec := mat.NewVecDense(4, nil)
	projectedMeanVec.MulVec(
		k.updateMat, mat.NewVecDense(7, func() []float64 {
			data := make([]float64, 7)
			for i, v := range k.mean {
				data[i] = float64(v)
			}
			return data
		}()),
	)

	// project the state covariance to measurement space
	projectedCov := mat.NewSymDense(4, nil)
	temp := mat.NewDense(4, 7, nil)
	temp.Mul(k.updateMat, k.covariance.Dense)
	temp2 := mat.NewDense(4, 4, nil)
	temp2.Mul(temp, k.updateMat.T())

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			projectedCov.SetSym(i, j, temp2.At(i, j))
		}
	}

	// add the measurement noise to the projected covariance
	projectedCov.AddSym(projectedCov, innovationCov)

	projectedMean := make(Xysr, 4)

	for i := 0; i < 4; i++ {
		projectedMean[i] = float32(projectedMeanVec.AtVec(i))
	}

	return projectedMean, projectedCov
}

// CurrentRect returns the bounding box for the current state estimate
func (k *KalmanBoxTracker) CurrentRect() Rect {
	return GenerateRectByXysr(Xysr(k.mean[:4]))
}

// Velocity returns the estimated center velocity in pixels per frame
func (k *KalmanBoxTracker) Velocity() (float32, float32) {
	return k.mean[4], k.mean[5]
}

// PositionUncertainty returns the trace of the position sub-block of the
// covariance.  The value is non-decreasing during prediction-only runs
// and can be used to judge whether pure prediction is still trustworthy.
func (k *KalmanBoxTracker) PositionUncertainty() float32 {
	return float32(k.covariance.At(0, 0) + k.covariance.At(1, 1))
}

// HitCount returns the number of measurement updates applied
func (k *KalmanBoxTracker) HitCount() int {
	return k.hitCount
}

// Age returns the number of predict steps taken
func (k *KalmanBoxTracker) Age() int {
	return k.age
}

// TimeSinceUpdate returns the number of predict steps since the last
// measurement update
func (k *KalmanBoxTracker) TimeSinceUpdate() int {
	return k.timeSinceUpdate
}
