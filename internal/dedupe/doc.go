// Package dedupe suppresses accidental duplicate sends. A double-tapped
// enter key or a retried command would otherwise post the same message to
// the same agent twice; the cache remembers recent send keys for a short
// window and rejects repeats inside it.
package dedupe
