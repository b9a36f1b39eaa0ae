// Package bootstrap turns a dataset path into a ready-to-iterate loader
// configuration, coordinating expensive initialization across a group of
// worker processes.
//
// The dataset itself is an external collaborator reached through the
// Builder interface: Prepare does the expensive one-time work (index and
// cache construction over the file set) and is guarded by a rank-ordered
// barrier so it runs exactly once per machine group, while Build is the
// cheap per-rank construction that reuses the prepared state.
//
// The derived LoaderConfig clamps the batch size to the dataset length,
// bounds the worker count by host CPUs, visible accelerator devices and a
// configured ceiling, and picks the sampler, batch assembly and loader
// facade the iteration layer must use.
package bootstrap
