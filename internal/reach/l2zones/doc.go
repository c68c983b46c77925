// Package l2zones owns Layer 2 (Zones) of the reach data model.
//
// Responsibilities: rejecting tracker landmarks that fall below the
// confidence threshold or outside the pixel zone their slot is expected
// in (left mirror, center view, right mirror).
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2zones
