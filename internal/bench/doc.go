// Package bench measures how fast a trace can be read window by window through the loader.
//
// For every interval level of an experiment the whole trace is streamed with that many planned
// events per slice. A run reports the average time per slice, the last one excluded, and the
// total time, and fails when the number of loaded events differs from the trace summary.
package bench
