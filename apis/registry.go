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

package apis

// Registry maps normalized projection types onto their base types. Keep it
// minimal so implementations can be sync.Map-backed.
type Registry interface {
	// Register associates a projection type with its base type.
	// Implementations should be idempotent for the same pair and reject a
	// different base for an already registered type.
	Register(modelName, base string) error
	// Lookup returns the base type for modelName if present.
	Lookup(modelName string) (base string, ok bool)
	// Entries returns a snapshot for diagnostics (order is unspecified).
	Entries() []Entry
	// Count returns the number of registered entries.
	Count() int
	// Reset clears all registered entries.
	Reset()
}

// Entry is a single (type, base) association in a Registry snapshot.
type Entry struct {
	// Type is the normalized projection type.
	Type string
	// Base is the normalized base type.
	Base string
}
