package storage

import "sync"

// MemoryMedium keeps values in process memory. It backs tests and acts as the
// fallback medium when no durable path is configured.
type MemoryMedium struct {
	mutex  sync.RWMutex
	values map[string]string
}

// NewMemoryMedium constructs an empty in-memory medium.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{values: map[string]string{}}
}

// Read returns the stored value and whether the key was present.
func (medium *MemoryMedium) Read(key string) (string, bool, error) {
	medium.mutex.RLock()
	defer medium.mutex.RUnlock()

	value, present := medium.values[key]
	return value, present, nil
}

// Write stores the value under the key.
func (medium *MemoryMedium) Write(key string, value string) error {
	medium.mutex.Lock()
	defer medium.mutex.Unlock()

	medium.values[key] = value
	return nil
}

// Delete removes the key when present.
func (medium *MemoryMedium) Delete(key string) error {
	medium.mutex.Lock()
	defer medium.mutex.Unlock()

	delete(medium.values, key)
	return nil
}

// Keys lists every stored key.
func (medium *MemoryMedium) Keys() ([]string, error) {
	medium.mutex.RLock()
	defer medium.mutex.RUnlock()

	keys := make([]string, 0, len(medium.values))
	for key := range medium.values {
		keys = append(keys, key)
	}
	return keys, nil
}
