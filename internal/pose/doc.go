// Package pose owns the inputs of the air-writing pipeline: raw camera
// frames, their per-frame sensor metadata, and the landmarks produced by an
// external pose estimator.
//
// Responsibilities: landmark/pose/frame types, metadata validation, and the
// Estimator contract the pipeline consumes.
// Key types: Landmark, Pose, FrameMetadata, Frame, Estimator.
//
// The estimator itself is a black box. SyntheticEstimator exists for demos
// and tests only.
package pose
