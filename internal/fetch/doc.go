// Package fetch implements the download engine: a single-file transfer
// with size validation, partial-download cleanup and transport fallback.
//
// A transfer first goes through the primary (direct) transport. If that
// fails or yields a file at or below the minimum size, the partial file is
// deleted and the alternate URL is retried through the resumable transport.
// After the fallback the result is validated again; an invalid artifact is
// removed so no truncated file ever survives at the destination.
//
// Failures surface in the returned Outcome rather than halting the caller,
// matching the best-effort resolution policy of pkg/resolve.
package fetch
