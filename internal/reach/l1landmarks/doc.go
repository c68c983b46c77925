// Package l1landmarks owns Layer 1 (Landmarks) of the reach data model.
//
// Responsibilities: the fixed 24-slot landmark layout produced by the
// upstream pose tracker, raw and filtered per-frame landmark values, and
// reading tracker CSV exports into a Table.
// Key types: Reading, Landmark, Frame, FrameLandmarks, Table, Slot, Group.
//
// Dependency rule: L1 depends on nothing else in internal/reach.
package l1landmarks
