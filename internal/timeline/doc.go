// Package timeline reconstructs absolute session bounds and recording
// intervals from a parsed event log.
//
// All timestamps are epoch milliseconds. Intervals are paired from
// record-status events in the order they appear in the log, not in
// timestamp order, because the recorder emits status changes in emission
// order.
package timeline
