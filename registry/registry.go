/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package registry

import (
	"errors"
	"sync"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/utils/naming"
)

var (
	// ErrEmptyName is returned when an empty type or base name is provided.
	ErrEmptyName = errors.New("m3(registry): empty model name provided")
	// ErrConflictingRegistration indicates an attempt to re-register
	// a projection with a different base.
	ErrConflictingRegistration = errors.New("m3(registry): conflicting projection registration")
)

// New constructs a Registry that normalizes model names before storing them.
func New() apis.Registry {
	return &registry{}
}

// registry is a simple Registry implementation backed by sync.Map.
type registry struct {
	// mu guards write-side consistency and counter
	mu sync.Mutex
	// m maps normalized projection name to normalized base name.
	m sync.Map // map[string]string
	// count tracks the number of registered entries.
	count int
}

// Register associates the normalized modelName with the normalized base.
// It is idempotent for the same (type, base) pair.
func (r *registry) Register(modelName, base string) error {
	t, err := naming.Normalize(modelName)
	if err != nil {
		return ErrEmptyName
	}
	b, err := naming.Normalize(base)
	if err != nil {
		return ErrEmptyName
	}

	// Fast read path: idempotency / conflict check without locking.
	if old, ok := r.m.Load(t); ok {
		if old.(string) == b {
			return nil // idempotent re-registration
		}
		return ErrConflictingRegistration
	}

	// Write path: guard with a mutex to keep counter consistent and avoid ABA.
	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if old, ok := r.m.Load(t); ok {
		if old.(string) == b {
			return nil
		}
		return ErrConflictingRegistration
	}

	r.m.Store(t, b)
	r.count++
	return nil
}

// Lookup returns the base for a model name if present.
func (r *registry) Lookup(modelName string) (base string, ok bool) {
	t, err := naming.Normalize(modelName)
	if err != nil {
		return "", false
	}
	if v, ok := r.m.Load(t); ok {
		return v.(string), true
	}
	return "", false
}

// Entries returns a snapshot for diagnostics (order is unspecified).
func (r *registry) Entries() []apis.Entry {
	entries := make([]apis.Entry, 0, r.Count())
	r.m.Range(func(key, value any) bool {
		entries = append(entries, apis.Entry{
			Type: key.(string),
			Base: value.(string),
		})
		return true
	})
	return entries
}

// Count returns the number of registered entries.
func (r *registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reset clears all registered entries.
func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = sync.Map{}
	r.count = 0
}
