// Package l5coords owns Layer 5 (Coordinates) of the reach data model.
//
// Responsibilities: mapping reconstructed pixel trajectories into
// real-world millimetres relative to the calibrated origin, and dropping
// frames that are missing any axis.
//
// Dependency rule: L5 may depend on L1-L4 and the calibration profile.
package l5coords
