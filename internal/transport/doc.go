// Package transport implements the HTTP transfer capability behind the
// download engine.
//
// Two implementations of the Transport interface exist:
//
//   - Direct performs a single-shot GET streamed to disk. It is the primary
//     transport and deliberately never retries.
//   - Resuming performs Range-based resumable transfers with a fixed retry
//     budget and exponential backoff. It is used as the fallback when the
//     direct transfer fails or produces an undersized file.
//
// Neither transport removes partial files on failure; that policy belongs
// to the fetch engine so it can be enforced on every exit path.
package transport
