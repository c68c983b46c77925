// Package l4trajectory owns Layer 4 (Trajectory) of the reach data model.
//
// Responsibilities: reconstructing a per-frame pixel-space (x, y, z)
// trajectory for an event span from the center view and one mirror view,
// with forward-fill across frames where the paw was not tracked.
// Key types: Hand, Axis, Sample, PixelPoint, RawTrajectory.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4trajectory
