// Package pipeline runs reach extraction end to end.
//
// This package is the composition root: it imports the layer packages
// (l1landmarks through l6metrics) and hands finished events to sinks
// (record files, the SQLite store, reports). None of those packages import
// pipeline/.
//
// Filtering and segmentation run on the calling goroutine in frame order.
// Per-event reconstruction, mapping and metrics run on a bounded worker
// pool; results are delivered to the sink one at a time in start-frame
// order.
package pipeline
