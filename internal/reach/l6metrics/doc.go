// Package l6metrics owns Layer 6 (Metrics) of the reach data model.
//
// Responsibilities: per-event kinematic summaries of a real-world
// trajectory (step speeds, peak and minimum speed, the frame nearest the
// calibrated origin, and outbound/return path length).
//
// Dependency rule: L6 may depend on L1-L5.
// No SQL/database code is allowed in this package.
package l6metrics
