// Package progress delivers consolidation batch progress to observers. The
// Hub buffers sequence-numbered events for long-poll delivery; the Tracker
// consumes them through a channel-reading loop and degrades to fixed-interval
// status polling when the push channel is unavailable.
package progress
