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
	"fmt"
	"slices"

	"dirpx.dev/m3/apis"
)

// Get resolves attr. A memoized resolution is returned as is; otherwise the
// raw value is transformed, classified by the schema and materialized into
// a plain value, a referenced model, a nested model or a Collection.
//
// A schema hook failure is returned and nothing is memoized, so the next
// Get retries. A reference whose target is not loaded resolves to nil
// without being memoized.
func (m *Model) Get(attr string) (any, error) {
	if m.unloaded {
		return nil, apis.ErrUnloaded
	}
	if attr == "id" && m.rec != nil {
		return m.id, nil
	}
	if v, ok := m.cache[attr]; ok {
		return v, nil
	}
	raw, _ := m.data.Get(attr)
	if _, busy := m.computing[attr]; busy {
		// Re-entrant read from a hook resolving attr itself.
		return raw, nil
	}
	m.computing[attr] = struct{}{}
	defer delete(m.computing, attr)

	m.untrack(attr)
	v, cacheable, err := m.resolve(attr, raw)
	if err != nil {
		return nil, err
	}
	resolved, decided, err := m.host.Schema().IsAttributeResolved(m.name, attr, v, m.helpers(attr))
	if err != nil {
		m.untrack(attr)
		return nil, err
	}
	if decided {
		cacheable = resolved
		if resolved {
			m.pinned[attr] = struct{}{}
		}
	}
	if cacheable && m.host.Config().CacheMode != apis.None {
		m.cache[attr] = v
	}
	return v, nil
}

// MustGet is Get for callers that treat a resolution failure as a bug.
func (m *Model) MustGet(attr string) any {
	v, err := m.Get(attr)
	if err != nil {
		panic(err)
	}
	return v
}

func (m *Model) resolve(attr string, raw any) (any, bool, error) {
	sch := m.host.Schema()
	val, err := sch.TransformValue(m.name, attr, raw)
	if err != nil {
		return nil, false, err
	}
	if id, ok := val.(apis.Identifier); ok {
		if t, ok := id.(*Model); ok && !t.IsNested() {
			m.track(t.Key(), attr)
		}
		return val, true, nil
	}
	d, err := sch.ComputeAttribute(attr, val, m.name, m.helpers(attr))
	if err != nil {
		return nil, false, err
	}
	return m.materialize(attr, val, d)
}

func (m *Model) materialize(attr string, val any, d *apis.Descriptor) (any, bool, error) {
	if d == nil {
		d = apis.Raw(val)
	}
	switch d.Kind {
	case apis.KindReference:
		if d.Reference == nil || d.Reference.ID == "" {
			return nil, true, nil
		}
		v, key, err := m.lookupRef(*d.Reference)
		if err != nil || v == nil {
			return nil, false, err
		}
		if !key.IsZero() {
			m.track(key, attr)
		}
		return v, true, nil

	case apis.KindNested:
		if d.Nested == nil {
			return nil, true, nil
		}
		return m.nestedFor(attr, d.Nested), true, nil

	case apis.KindManagedArray:
		return m.collectionFor(attr, variantOf(d), slotsFromElements(d.Elements, val)), true, nil

	case apis.KindReferenceArray:
		return m.collectionFor(attr, References, slotsFromRefs(d.References, val)), true, nil
	}

	if arr, ok := d.Value.([]any); ok {
		rd := apis.RawArray(arr)
		return m.collectionFor(attr, variantOf(rd), slotsFromElements(rd.Elements, arr)), true, nil
	}
	return d.Value, true, nil
}

// lookupRef finds the entity ref points at. key is the identity key of a
// managed target and is zero for external values and misses by id.
func (m *Model) lookupRef(ref apis.Reference) (v any, key apis.Key, err error) {
	ident := m.host.Identity()
	if ref.Type == "" {
		k, ok, _ := ident.LookupByID(ref.ID)
		if !ok {
			return nil, apis.Key{}, nil
		}
		ref.Type = k.Type
	}
	external, err := m.isExternal(ref.Type)
	if err != nil {
		return nil, apis.Key{}, err
	}
	if external {
		v, err := m.host.External().ResolveExternal(ref)
		if err != nil {
			return nil, apis.Key{}, fmt.Errorf("m3(model): resolve external %s:%s: %w", ref.Type, ref.ID, err)
		}
		return v, apis.Key{}, nil
	}
	key, err = ident.KeyFor(ref.Type, ref.ID)
	if err != nil {
		return nil, apis.Key{}, err
	}
	target, ok := m.host.ModelFor(ref.Type, ref.ID)
	if !ok {
		return nil, key, nil
	}
	return target, key, nil
}

// isExternal reports whether references to modelName go to the host's
// external resolver.
func (m *Model) isExternal(modelName string) (bool, error) {
	if m.host.External() == nil {
		return false, nil
	}
	included, err := m.host.Schema().IncludesModel(modelName)
	if err != nil {
		return false, err
	}
	return !included, nil
}

// track records that the memo of attr points at key.
func (m *Model) track(key apis.Key, attr string) {
	m.refs[key] = appendUnique(m.refs[key], attr)
	m.host.Identity().Subscribe(key, m)
}

// untrack forgets the entity attr pointed at. A key no attribute points at
// any more is unsubscribed.
func (m *Model) untrack(attr string) {
	for key, attrs := range m.refs {
		i := slices.Index(attrs, attr)
		if i < 0 {
			continue
		}
		attrs = slices.Delete(attrs, i, i+1)
		if len(attrs) > 0 {
			m.refs[key] = attrs
			continue
		}
		delete(m.refs, key)
		m.host.Identity().Unsubscribe(key, m)
	}
}

// KeyUnloaded stages invalidation of every attribute resolved to key.
// Attributes whose memo points elsewhere are left alone.
func (m *Model) KeyUnloaded(key apis.Key) {
	attrs := m.refs[key]
	delete(m.refs, key)
	stale := attrs[:0]
	for _, a := range attrs {
		if v, ok := m.cache[a]; ok {
			if t, isModel := v.(*Model); !isModel || t.Key() != key {
				continue
			}
		}
		delete(m.pinned, a)
		stale = append(stale, a)
	}
	if len(stale) == 0 {
		return
	}
	m.host.Batcher().Stage(m, stale...)
}

// nestedFor returns the nested model for nm, reusing an existing child
// bound to the very same attributes map.
func (m *Model) nestedFor(attr string, nm *apis.NestedModel) *Model {
	m.pruneChildren(attr)
	for _, c := range m.children[attr] {
		if sameMap(c.attrs, nm.Attributes) {
			return c
		}
	}
	n := newNested(m, attr, nm)
	m.children[attr] = append(m.children[attr], n)
	return n
}

// pruneChildren forgets nested models whose storage is no longer part of
// attr's raw value.
func (m *Model) pruneChildren(attr string) {
	kids := m.children[attr]
	if len(kids) == 0 {
		return
	}
	raw, _ := m.data.Get(attr)
	live := kids[:0]
	for _, c := range kids {
		if contains(raw, c.attrs) {
			live = append(live, c)
		}
	}
	clear(kids[len(live):])
	if len(live) == 0 {
		delete(m.children, attr)
		return
	}
	m.children[attr] = live
}

func (m *Model) liveChildren() []*Model {
	var out []*Model
	for attr := range m.children {
		m.pruneChildren(attr)
	}
	for _, attr := range sortedKeys(m.children) {
		out = append(out, m.children[attr]...)
	}
	return out
}

func (m *Model) collectionFor(attr string, v Variant, slots []*slot) *Collection {
	if c, ok := m.collections[attr]; ok {
		c.reset(v, slots)
		return c
	}
	c := newCollection(m, attr, v, slots, false)
	m.collections[attr] = c
	return c
}

// computeElement classifies one raw collection element.
func (m *Model) computeElement(attr string, raw any) (*apis.Descriptor, error) {
	if _, ok := raw.(apis.Identifier); ok {
		return apis.Raw(raw), nil
	}
	d, err := m.host.Schema().ComputeAttribute(attr, raw, m.name, m.helpers(attr))
	if err != nil {
		return nil, err
	}
	if d == nil {
		return apis.Raw(raw), nil
	}
	return d, nil
}

// materializeElement turns an element descriptor into its value. found is
// false for references whose target is not loaded.
func (m *Model) materializeElement(attr string, d *apis.Descriptor) (v any, found bool, key apis.Key, err error) {
	switch d.Kind {
	case apis.KindReference:
		if d.Reference == nil || d.Reference.ID == "" {
			return nil, true, apis.Key{}, nil
		}
		v, key, err = m.lookupRef(*d.Reference)
		if err != nil {
			return nil, false, apis.Key{}, err
		}
		return v, v != nil, key, nil
	case apis.KindNested:
		if d.Nested == nil {
			return nil, true, apis.Key{}, nil
		}
		return m.nestedFor(attr, d.Nested), true, apis.Key{}, nil
	case apis.KindManagedArray:
		return newCollection(m, attr, variantOf(d), slotsFromElements(d.Elements, nil), true), true, apis.Key{}, nil
	case apis.KindReferenceArray:
		return newCollection(m, attr, References, slotsFromRefs(d.References, nil), true), true, apis.Key{}, nil
	}
	if t, ok := d.Value.(*Model); ok && !t.IsNested() {
		return t, true, t.Key(), nil
	}
	return d.Value, true, apis.Key{}, nil
}

// InvalidateAttributes drops the memo of attrs and of everything computed
// from them. Attributes the schema declared resolved are kept.
func (m *Model) InvalidateAttributes(attrs ...string) {
	m.invalidate(attrs, false)
}

func (m *Model) invalidate(attrs []string, force bool) {
	for _, a := range m.dependents(attrs) {
		if _, pinned := m.pinned[a]; pinned {
			if !force {
				continue
			}
			delete(m.pinned, a)
		}
		delete(m.cache, a)
		m.untrack(a)
	}
}

// dependents returns attrs followed by every attribute transitively
// computed from them.
func (m *Model) dependents(attrs []string) []string {
	out := appendUnique(nil, attrs...)
	for i := 0; i < len(out); i++ {
		out = appendUnique(out, m.deps[out[i]]...)
	}
	return out
}

func (m *Model) depend(source, dependent string) {
	if source == dependent {
		return
	}
	m.deps[source] = appendUnique(m.deps[source], dependent)
}

func (m *Model) helpers(attr string) *helpers {
	return &helpers{m: m, attr: attr}
}

// helpers is handed to schema hooks. Reads made while computing attr make
// attr depend on the attribute read.
type helpers struct {
	m       *Model
	attr    string
	written []string
}

// Ensure helpers implements apis.Helpers.
var _ apis.Helpers = (*helpers)(nil)

func (h *helpers) ModelName() string { return h.m.name }

func (h *helpers) ID() string { return h.m.id }

func (h *helpers) GetAttr(key string) any {
	if h.attr != "" {
		h.m.depend(key, h.attr)
	}
	v, _ := h.m.data.Get(key)
	return v
}

func (h *helpers) SetAttr(key string, value any) {
	h.m.writeRaw(key, value)
	h.written = appendUnique(h.written, key)
}
