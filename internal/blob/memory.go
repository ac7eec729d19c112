package blob

import (
	memorystore "tacticsdb/internal/infra/blob/memory"
)

// NewMemory returns an in-memory blob.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewFaultyMemory returns an in-memory Store whose Put fails with the error
// fail returns for a key.
func NewFaultyMemory(fail func(key string) error) Store {
	return memorystore.New(memorystore.WithPutHook(memorystore.PutHook(fail)))
}
