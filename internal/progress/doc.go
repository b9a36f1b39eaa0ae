// Package progress provides human-readable progress reporting for single
// file transfers.
//
// A Reporter tracks bytes written against an expected total and prints a
// periodically refreshed status line with speed and ETA. A nil *Reporter is
// a valid no-op, which is how verbosity gating works: callers construct a
// reporter only at verbose logging levels and pass it down unconditionally.
//
// The package also exposes FormatBytes and ParseBytes for byte-size
// formatting in config and CLI output.
package progress
