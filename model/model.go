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
	"log/slog"
	"slices"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/identity"
)

// New binds a top-level model named modelName to rec. modelName is the
// normalized type the model was looked up as; it may be a projection of
// the record's base type.
func New(host Host, modelName string, rec *identity.Record) *Model {
	m := newModel(host, modelName, rec.Key().ID, rec)
	m.key = rec.Key()
	m.rec = rec
	return m
}

func newNested(parent *Model, attr string, nm *apis.NestedModel) *Model {
	attrs := nm.Attributes
	if attrs == nil {
		attrs = make(map[string]any)
	}
	name := nm.Type
	if name == "" {
		name = parent.name
	}
	m := newModel(parent.host, name, nm.ID, mapStorage(attrs))
	m.attrs = attrs
	m.parent = parent
	m.parentAttr = attr
	return m
}

func newModel(host Host, name, id string, data storage) *Model {
	return &Model{
		host:        host,
		name:        name,
		id:          id,
		data:        data,
		log:         config.Logger(host.Config()),
		cache:       make(map[string]any),
		pinned:      make(map[string]struct{}),
		deps:        make(map[string][]string),
		computing:   make(map[string]struct{}),
		refs:        make(map[apis.Key][]string),
		children:    make(map[string][]*Model),
		collections: make(map[string]*Collection),
		originals:   make(map[string]original),
	}
}

// Model is one entity, or one embedded object inside an entity.
type Model struct {
	host Host
	name string
	id   string
	data storage
	log  *slog.Logger

	// Top-level only.
	key apis.Key
	rec *identity.Record

	// Nested only.
	attrs      map[string]any
	parent     *Model
	parentAttr string

	cache  map[string]any
	pinned map[string]struct{}
	// deps maps a raw attribute to the attributes computed from it.
	deps      map[string][]string
	computing map[string]struct{}
	// refs maps a referenced key to the memoized attributes pointing at it.
	refs map[apis.Key][]string
	// children holds nested models created from each attribute.
	children    map[string][]*Model
	collections map[string]*Collection

	originals map[string]original

	observers []*propertyObserver

	isNew     bool
	isDeleted bool
	unloaded  bool
}

type propertyObserver struct {
	fn func(attr string)
}

// Ensure Model implements the contracts it is used through.
var (
	_ apis.Identifier     = (*Model)(nil)
	_ apis.PropertyTarget = (*Model)(nil)
	_ identity.Listener   = (*Model)(nil)
	_ slog.LogValuer      = (*Model)(nil)
)

// EntityName returns the model name.
func (m *Model) EntityName() string { return m.name }

// EntityID returns the id, "" for nested models without one.
func (m *Model) EntityID() string { return m.id }

// Key returns the identity-cache key, zero for nested models.
func (m *Model) Key() apis.Key { return m.key }

// IsNested reports whether m is embedded in another model.
func (m *Model) IsNested() bool { return m.rec == nil }

// Parent returns the model m is embedded in, or nil.
func (m *Model) Parent() *Model { return m.parent }

// IsNew reports whether m was created locally and not yet committed.
func (m *Model) IsNew() bool { return m.isNew }

// IsDeleted reports whether m was marked deleted.
func (m *Model) IsDeleted() bool { return m.isDeleted }

// IsUnloaded reports whether m's record was unloaded.
func (m *Model) IsUnloaded() bool { return m.unloaded }

// SetNew is called by the store for locally created records.
func (m *Model) SetNew(v bool) { m.isNew = v }

// SetDeleted is called by the store when the host deletes a record.
func (m *Model) SetDeleted(v bool) {
	if m.isDeleted == v {
		return
	}
	m.isDeleted = v
	m.NotifyPropertyChange("isDeleted")
}

// Unload detaches m after its record left the identity cache. Reads and
// writes fail with apis.ErrUnloaded from then on.
func (m *Model) Unload() {
	if m.unloaded {
		return
	}
	m.unloaded = true
	clear(m.cache)
	clear(m.pinned)
	for key := range m.refs {
		m.host.Identity().Unsubscribe(key, m)
	}
	clear(m.refs)
	m.log.Debug("model unloaded", slog.Any("model", m))
}

// Attributes returns the raw attribute names, sorted.
func (m *Model) Attributes() []string { return m.data.Keys() }

// Raw returns the raw value stored under attr.
func (m *Model) Raw(attr string) (any, bool) { return m.data.Get(attr) }

// IsCached reports whether attr currently has a memoized resolution.
func (m *Model) IsCached(attr string) bool {
	_, ok := m.cache[attr]
	return ok
}

// Observe registers fn to be called with the name of every attribute that
// changes. The returned func unregisters it.
func (m *Model) Observe(fn func(attr string)) (cancel func()) {
	o := &propertyObserver{fn: fn}
	m.observers = append(m.observers, o)
	return func() {
		m.observers = slices.DeleteFunc(m.observers, func(x *propertyObserver) bool { return x == o })
	}
}

// NotifyPropertyChange calls every observer with attr.
func (m *Model) NotifyPropertyChange(attr string) {
	for _, o := range slices.Clone(m.observers) {
		o.fn(attr)
	}
}

// LogValue implements slog.LogValuer.
func (m *Model) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", m.name)}
	if m.id != "" {
		attrs = append(attrs, slog.String("id", m.id))
	}
	if m.parent != nil {
		attrs = append(attrs, slog.String("in", m.parent.String()+"."+m.parentAttr))
	}
	return slog.GroupValue(attrs...)
}

// String renders the model as "type:id".
func (m *Model) String() string {
	if m.id == "" {
		return fmt.Sprintf("%s:<nested>", m.name)
	}
	return m.name + ":" + m.id
}
