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
	"encoding/json"
	"errors"
	"reflect"
	"slices"

	"dirpx.dev/m3/apis"
)

// ErrCyclicValue is returned when raw data contains itself.
var ErrCyclicValue = errors.New("m3(model): raw value contains a cycle; break it with a reference")

// ToJSON returns a deep copy of the raw attributes the schema includes for
// m's type. Referenced top-level models are written as their id and nested
// models as their attributes.
//
// The copy is a tree: a sub-object shared by two attributes is copied
// twice. Raw data that contains itself cannot be copied and fails with
// ErrCyclicValue.
func (m *Model) ToJSON() (map[string]any, error) {
	return m.toJSON(nil)
}

func (m *Model) toJSON(path []uintptr) (map[string]any, error) {
	sch := m.host.Schema()
	out := make(map[string]any)
	for _, k := range m.data.Keys() {
		included, err := sch.IsAttributeIncluded(m.name, k)
		if err != nil {
			return nil, err
		}
		if !included {
			continue
		}
		v, _ := m.data.Get(k)
		cp, err := copyValue(v, path)
		if err != nil {
			return nil, err
		}
		out[k] = cp
	}
	return out, nil
}

func copyValue(v any, path []uintptr) (any, error) {
	switch t := v.(type) {
	case *Model:
		if t.IsNested() {
			return t.toJSON(path)
		}
		return t.id, nil
	case *Collection:
		return copyValue(t.Raw(), path)
	case apis.Identifier:
		return t.EntityID(), nil
	case map[string]any:
		p := reflect.ValueOf(t).Pointer()
		if slices.Contains(path, p) {
			return nil, ErrCyclicValue
		}
		path = append(path, p)
		out := make(map[string]any, len(t))
		for k, e := range t {
			cp, err := copyValue(e, path)
			if err != nil {
				return nil, err
			}
			out[k] = cp
		}
		return out, nil
	case []any:
		if t == nil {
			return []any(nil), nil
		}
		if len(t) > 0 {
			p := reflect.ValueOf(t).Pointer()
			if slices.Contains(path, p) {
				return nil, ErrCyclicValue
			}
			path = append(path, p)
		}
		out := make([]any, len(t))
		for i, e := range t {
			cp, err := copyValue(e, path)
			if err != nil {
				return nil, err
			}
			out[i] = cp
		}
		return out, nil
	}
	return v, nil
}

// MarshalJSON writes top-level models as {"id","type","attributes"} and
// nested models as their attributes.
func (m *Model) MarshalJSON() ([]byte, error) {
	attrs, err := m.ToJSON()
	if err != nil {
		return nil, err
	}
	if m.IsNested() {
		return json.Marshal(attrs)
	}
	return json.Marshal(apis.Resource{ID: m.id, Type: m.name, Attributes: attrs})
}
