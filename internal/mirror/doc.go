// Package mirror caches resolved artifacts in an object-store bucket.
//
// The resolver consults the mirror before touching the release registry and
// uploads freshly downloaded artifacts back into it, so a training fleet
// sharing a bucket downloads each weights file from upstream once. Any
// gocloud.dev bucket works: s3://, gs://, file:// or mem:// in tests.
package mirror
