// Package resolve locates named artifacts (model weights and similar
// binaries) with graceful degradation.
//
// A file spec can be an existing local path, a direct URL or a bare asset
// name. Local files are returned untouched. URLs are downloaded through
// the fetch engine. Bare names are looked up against the release registry,
// cascading through its fallback chain, with an optional object-store
// mirror consulted first.
//
// The resolver never raises on a failed resolution: the Result carries the
// original spec as Path plus an explicit error chain listing every source
// that was tried. Callers that only care about the historical behavior can
// keep opening Result.Path and let the open fail; callers that want to
// distinguish "fetch failed" from "nothing to fetch" inspect Result.Found
// and Result.Err.
package resolve
