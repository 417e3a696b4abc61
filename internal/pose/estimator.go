package pose

import "context"

// Estimator is the external pose-estimation capability.
type Estimator interface {
	// Estimate analyses one frame and returns zero or more detected poses.
	// An empty slice means nobody was detected.
	Estimate(ctx context.Context, frame Frame) ([]Pose, error)

	// Close releases any resources held by the estimator.
	Close() error
}

// EstimatorFunc adapts a plain function to the Estimator interface. Close is
// a no-op.
type EstimatorFunc func(ctx context.Context, frame Frame) ([]Pose, error)

// Estimate calls f.
func (f EstimatorFunc) Estimate(ctx context.Context, frame Frame) ([]Pose, error) {
	return f(ctx, frame)
}

// Close does nothing.
func (f EstimatorFunc) Close() error { return nil }
