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

package model

import (
	"maps"
	"reflect"
	"slices"
)

// storage is the raw attribute map behind a model. *identity.Record
// implements it for top-level models; nested models use mapStorage.
type storage interface {
	Get(attr string) (any, bool)
	Set(attr string, v any)
	Delete(attr string)
	Keys() []string
}

type mapStorage map[string]any

func (s mapStorage) Get(attr string) (any, bool) {
	v, ok := s[attr]
	return v, ok
}

func (s mapStorage) Set(attr string, v any) { s[attr] = v }

func (s mapStorage) Delete(attr string) { delete(s, attr) }

func (s mapStorage) Keys() []string { return slices.Sorted(maps.Keys(s)) }

// sameValue compares raw values by identity: comparable values with ==,
// maps and slices by backing storage.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		return va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	}
	return false
}

func sameMap(a, b map[string]any) bool {
	if a == nil || b == nil {
		return false
	}
	return reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer()
}

// contains reports whether target is v itself or an element of v, looking
// through nested arrays.
func contains(v any, target map[string]any) bool {
	switch t := v.(type) {
	case map[string]any:
		return sameMap(t, target)
	case []any:
		for _, e := range t {
			if contains(e, target) {
				return true
			}
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		if !slices.Contains(list, it) {
			list = append(list, it)
		}
	}
	return list
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
