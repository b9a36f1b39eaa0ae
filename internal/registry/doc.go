// Package registry resolves release tags and asset lists against a
// GitHub-style release API.
//
// Lookups cascade through a fixed fallback chain: the requested tag, the
// latest release, a locally stored tag marker, and finally the static
// default tag with the built-in candidate asset list. The chain always
// produces a usable tag and asset list; the aggregated error reports which
// lookups failed along the way.
package registry
