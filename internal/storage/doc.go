// Package storage persists namespaced application state through a pluggable
// key-value medium.
//
// Records are wrapped in a versioned, timestamped envelope, serialized to
// JSON, and base64 encoded behind a format-version tag. The encoding is
// format tagging for integrity and migration purposes only; it is reversible
// and provides no confidentiality. Every operation is total: failures degrade
// to absent values plus a logged diagnostic and never propagate to callers.
package storage
