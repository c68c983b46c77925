// Package l3events owns Layer 3 (Events) of the reach data model.
//
// Responsibilities: scoring filtered frames by paw tracking confidence and
// segmenting the frame sequence into reach event spans with a two-state
// hysteresis machine.
// Key types: Span, Params, Segmenter.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3events
