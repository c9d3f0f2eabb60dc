package storage

// Medium abstracts the raw key-value surface beneath the Store.
//
// Implementations hold opaque text under exact keys and report absence
// distinctly from failure. Media are shared across processes in principle, so
// Store re-validates every record on read instead of trusting prior writes.
type Medium interface {
	Read(key string) (string, bool, error)
	Write(key string, value string) error
	Delete(key string) error
	Keys() ([]string, error)
}
