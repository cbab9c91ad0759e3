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

package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/builder"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/model"
	"dirpx.dev/m3/store"
)

// testSchema recognizes:
//
//   - "urn:<id>" as a type-less reference and "ref:<type>:<id>" as a typed one;
//   - objects as nested models;
//   - arrays element-wise, except "books", which is a reference array;
//   - "fullName", computed from "first" and "last";
//   - "boom", which fails while fail is set.
//
// "frozen" is pinned, "volatile" is never memoized, "secret" is not
// serialized, writes to "alias" land in "real", and "derived" projects
// onto "base".
type testSchema struct {
	calls map[string]int
	fail  bool
}

func newTestSchema() *testSchema {
	return &testSchema{calls: make(map[string]int)}
}

func (s *testSchema) IncludesModel(modelName string) bool {
	return modelName != "external"
}

func (s *testSchema) ComputeAttribute(key string, value any, _ string, h apis.Helpers) (*apis.Descriptor, error) {
	s.calls[key]++
	switch key {
	case "boom":
		if s.fail {
			return nil, errors.New("hook failed")
		}
	case "fullName":
		first, _ := h.GetAttr("first").(string)
		last, _ := h.GetAttr("last").(string)
		return apis.Raw(first + " " + last), nil
	case "books":
		arr, _ := value.([]any)
		refs := make([]*apis.Reference, 0, len(arr))
		for _, e := range arr {
			str, _ := e.(string)
			refs = append(refs, parseRef(str))
		}
		return apis.ReferenceArray(refs...), nil
	}
	return describe(value), nil
}

func describe(v any) *apis.Descriptor {
	switch t := v.(type) {
	case string:
		if ref := parseRef(t); ref != nil {
			return apis.Ref(ref)
		}
	case map[string]any:
		return apis.Nested(&apis.NestedModel{Attributes: t})
	case []any:
		elems := make([]apis.Descriptor, len(t))
		for i, e := range t {
			d := describe(e)
			if d == nil {
				d = apis.Raw(e)
			}
			elems[i] = *d
		}
		return apis.ManagedArray(elems...)
	}
	return nil
}

func parseRef(s string) *apis.Reference {
	if id, ok := strings.CutPrefix(s, "urn:"); ok {
		return &apis.Reference{ID: id}
	}
	if rest, ok := strings.CutPrefix(s, "ref:"); ok {
		t, id, _ := strings.Cut(rest, ":")
		return &apis.Reference{ID: id, Type: t}
	}
	return nil
}

func (s *testSchema) ComputeBaseModelName(modelName string) string {
	if modelName == "derived" {
		return "base"
	}
	return ""
}

func (s *testSchema) IsAttributeResolved(_, attr string, _ any, _ apis.Helpers) (bool, bool) {
	switch attr {
	case "frozen":
		return true, true
	case "volatile":
		return false, true
	}
	return false, false
}

func (s *testSchema) SetAttribute(_, attr string, value any, h apis.Helpers) error {
	if attr == "alias" {
		h.SetAttr("real", value)
		return nil
	}
	h.SetAttr(attr, value)
	return nil
}

func (s *testSchema) IsAttributeIncluded(_, attr string) bool {
	return attr != "secret"
}

// externalThing is what the external resolver hands back.
type externalThing struct{ id string }

func (e externalThing) EntityName() string { return "external" }
func (e externalThing) EntityID() string   { return e.id }

type externalResolver struct{}

func (externalResolver) ResolveExternal(ref apis.Reference) (any, error) {
	if ref.ID == "missing" {
		return nil, nil
	}
	return externalThing{id: ref.ID}, nil
}

func newStore(t *testing.T, opts ...config.Option) (*store.Store, *testSchema) {
	t.Helper()
	cfg := config.NewConfig(opts...)
	ts := newTestSchema()
	s, err := store.New(builder.New().BuildAdapter(cfg, ts, nil), cfg, store.WithExternal(externalResolver{}))
	require.NoError(t, err)
	t.Cleanup(s.Teardown)
	return s, ts
}

func push(t *testing.T, s *store.Store, modelName, id string, attrs map[string]any) *model.Model {
	t.Helper()
	m, err := s.PushResource(apis.Resource{ID: id, Type: modelName, Attributes: attrs})
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func get(t *testing.T, m *model.Model, attr string) any {
	t.Helper()
	v, err := m.Get(attr)
	require.NoError(t, err)
	return v
}
