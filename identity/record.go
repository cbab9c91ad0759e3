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

package identity

import (
	"maps"
	"slices"

	"dirpx.dev/m3/apis"
)

// Record is the raw attribute map of one entity. It is owned by the Cache
// and mutated in place.
type Record struct {
	key      apis.Key
	attrs    map[string]any
	unloaded bool
}

func newRecord(key apis.Key) *Record {
	return &Record{key: key, attrs: make(map[string]any)}
}

// Key returns the canonical key of the record.
func (r *Record) Key() apis.Key { return r.key }

// Get returns the raw value stored under attr.
func (r *Record) Get(attr string) (any, bool) {
	v, ok := r.attrs[attr]
	return v, ok
}

// Set stores a raw value. It does not report changes; pushes go through
// Cache.Merge.
func (r *Record) Set(attr string, v any) {
	r.attrs[attr] = v
}

// Delete removes attr.
func (r *Record) Delete(attr string) {
	delete(r.attrs, attr)
}

// Keys returns the attribute names, sorted.
func (r *Record) Keys() []string {
	return slices.Sorted(maps.Keys(r.attrs))
}

// Len returns the number of attributes.
func (r *Record) Len() int { return len(r.attrs) }

// Unloaded reports whether the record was removed from its cache.
func (r *Record) Unloaded() bool { return r.unloaded }
