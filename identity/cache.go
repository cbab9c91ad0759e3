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
	"errors"
	"log/slog"
	"maps"
	"reflect"
	"slices"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/utils/naming"
)

var (
	// ErrEmptyType is returned when a key is requested for a blank type.
	ErrEmptyType = errors.New("m3(identity): empty model name")
	// ErrEmptyID is returned when a key is requested for a blank id.
	ErrEmptyID = errors.New("m3(identity): empty id")
)

// Listener is told when a key it subscribed to is unloaded.
type Listener interface {
	KeyUnloaded(key apis.Key)
}

// New constructs an empty Cache. s supplies ComputeBaseModelName; types
// memoizes the resulting projection -> base mapping.
func New(cfg apis.Config, s apis.SchemaAdapter, types apis.Registry) *Cache {
	c := &Cache{
		cfg:     cfg,
		schema:  s,
		types:   types,
		log:     config.Logger(cfg),
		records: make(map[apis.Key]*Record),
		ids:     make(map[string][]string),
		subs:    make(map[apis.Key][]Listener),
	}
	if g, ok := s.(generational); ok {
		c.gen = g.Generation()
	}
	return c
}

// generational is implemented by schema sources whose active schema can be
// replaced, such as *schema.Registry.
type generational interface {
	Generation() uint64
}

// Cache maps canonical keys to records.
type Cache struct {
	cfg    apis.Config
	schema apis.SchemaAdapter
	types  apis.Registry
	log    *slog.Logger

	records map[apis.Key]*Record
	// ids maps an id to the base types it is loaded under, in the order
	// they were first registered.
	ids  map[string][]string
	subs map[apis.Key][]Listener
	// gen is the schema generation the types memo was computed under.
	gen uint64
}

// Canonical normalizes modelName and maps it onto its base type. The
// mapping is memoized until the schema source reports a new generation;
// records loaded before that keep the key they were created under.
func (c *Cache) Canonical(modelName string) (string, error) {
	t, err := naming.Normalize(modelName)
	if err != nil {
		return "", ErrEmptyType
	}
	c.syncSchema()
	if base, ok := c.types.Lookup(t); ok {
		return base, nil
	}
	base := t
	if c.schema != nil {
		b, err := c.schema.ComputeBaseModelName(t)
		if err != nil {
			return "", err
		}
		if b != "" {
			if nb, err := naming.Normalize(b); err == nil {
				base = nb
			}
		}
	}
	// A conflicting registration can only come from a schema whose answer
	// changed; the first answer stays authoritative.
	if err := c.types.Register(t, base); err != nil {
		if b, ok := c.types.Lookup(t); ok {
			return b, nil
		}
	}
	return base, nil
}

// KeyFor returns the canonical key for (modelName, id).
func (c *Cache) KeyFor(modelName, id string) (apis.Key, error) {
	if id == "" {
		return apis.Key{}, ErrEmptyID
	}
	t, err := c.Canonical(modelName)
	if err != nil {
		return apis.Key{}, err
	}
	return apis.Key{Type: t, ID: id}, nil
}

// Get returns the record stored under an already canonical key.
func (c *Cache) Get(key apis.Key) (*Record, bool) {
	r, ok := c.records[key]
	return r, ok
}

// Peek returns the record for (modelName, id) without creating it.
func (c *Cache) Peek(modelName, id string) (*Record, bool) {
	key, err := c.KeyFor(modelName, id)
	if err != nil {
		return nil, false
	}
	return c.Get(key)
}

// GetOrCreate returns the record for (modelName, id), creating an empty one
// on first mention. created reports whether a new record was made.
func (c *Cache) GetOrCreate(modelName, id string) (rec *Record, created bool, err error) {
	key, err := c.KeyFor(modelName, id)
	if err != nil {
		return nil, false, err
	}
	rec, created = c.getOrCreate(key)
	return rec, created, nil
}

func (c *Cache) getOrCreate(key apis.Key) (*Record, bool) {
	if r, ok := c.records[key]; ok {
		return r, false
	}
	r := newRecord(key)
	c.records[key] = r
	c.index(key)
	return r, true
}

// Merge shallow-merges patch into the record for (modelName, id), creating
// it if needed, and returns the attribute names whose raw value changed, in
// the order given by order (remaining keys follow, sorted). Values that are
// deeply equal to the stored ones are left untouched, object identity
// included.
func (c *Cache) Merge(modelName, id string, patch map[string]any, order []string) (*Record, []string, error) {
	key, err := c.KeyFor(modelName, id)
	if err != nil {
		return nil, nil, err
	}
	rec, _ := c.getOrCreate(key)
	var changed []string
	for _, k := range orderedKeys(patch, order) {
		v := patch[k]
		if old, ok := rec.attrs[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		rec.attrs[k] = v
		changed = append(changed, k)
	}
	return rec, changed, nil
}

// Unload removes the record for (modelName, id) and notifies subscribers.
// Unloading an unknown key is a no-op and reports false.
func (c *Cache) Unload(modelName, id string) (apis.Key, bool) {
	key, err := c.KeyFor(modelName, id)
	if err != nil {
		return apis.Key{}, false
	}
	return key, c.UnloadKey(key)
}

// UnloadKey removes the record stored under an already canonical key.
func (c *Cache) UnloadKey(key apis.Key) bool {
	rec, ok := c.records[key]
	if !ok {
		return false
	}
	delete(c.records, key)
	rec.unloaded = true
	c.unindex(key)

	listeners := c.subs[key]
	delete(c.subs, key)
	for _, l := range listeners {
		l.KeyUnloaded(key)
	}
	c.log.Debug("record unloaded", slog.String("type", key.Type), slog.String("id", key.ID), slog.Int("dependents", len(listeners)))
	return true
}

// UnloadAll unloads every record of modelName, or every record when
// modelName is empty. It returns the unloaded keys, sorted.
func (c *Cache) UnloadAll(modelName string) []apis.Key {
	var t string
	if modelName != "" {
		var err error
		if t, err = c.Canonical(modelName); err != nil {
			return nil
		}
	}
	var keys []apis.Key
	for k := range c.records {
		if t == "" || k.Type == t {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	for _, k := range keys {
		c.UnloadKey(k)
	}
	return keys
}

// LookupByID resolves a type-less reference. ambiguous reports that the id
// is loaded under more than one type and the tie-break picked one.
func (c *Cache) LookupByID(id string) (key apis.Key, ok bool, ambiguous bool) {
	if id == "" {
		return apis.Key{}, false, false
	}
	types := c.ids[id]
	switch len(types) {
	case 0:
		return apis.Key{}, false, false
	case 1:
		return apis.Key{Type: types[0], ID: id}, true, false
	}
	t := types[0]
	if c.cfg.TieBreak == apis.Lexical {
		t = slices.Min(types)
	}
	c.log.Warn("ambiguous type-less reference",
		slog.String("id", id),
		slog.Any("types", types),
		slog.String("chosen", t),
		slog.String("tie_break", c.cfg.TieBreak.String()))
	return apis.Key{Type: t, ID: id}, true, true
}

// Subscribe registers l to be told when key is unloaded. Subscribing the
// same listener twice is a no-op.
func (c *Cache) Subscribe(key apis.Key, l Listener) {
	ls := c.subs[key]
	if slices.Contains(ls, l) {
		return
	}
	c.subs[key] = append(ls, l)
}

// Unsubscribe removes l from key's listeners.
func (c *Cache) Unsubscribe(key apis.Key, l Listener) {
	ls := c.subs[key]
	i := slices.Index(ls, l)
	if i < 0 {
		return
	}
	ls = slices.Delete(ls, i, i+1)
	if len(ls) == 0 {
		delete(c.subs, key)
		return
	}
	c.subs[key] = ls
}

// Subscribers returns the number of listeners for key.
func (c *Cache) Subscribers(key apis.Key) int {
	return len(c.subs[key])
}

// Len returns the number of loaded records.
func (c *Cache) Len() int { return len(c.records) }

// Keys returns the loaded keys, sorted by type then id.
func (c *Cache) Keys() []apis.Key {
	keys := slices.Collect(maps.Keys(c.records))
	sortKeys(keys)
	return keys
}

// Clear drops every record, subscription and memoized type mapping without
// notifying anyone. Records handed out earlier are marked unloaded.
func (c *Cache) Clear() {
	for _, r := range c.records {
		r.unloaded = true
	}
	c.records = make(map[apis.Key]*Record)
	c.ids = make(map[string][]string)
	c.subs = make(map[apis.Key][]Listener)
	c.types.Reset()
}

// syncSchema drops the projection memo once the schema it was computed
// from has been replaced.
func (c *Cache) syncSchema() {
	g, ok := c.schema.(generational)
	if !ok {
		return
	}
	if gen := g.Generation(); gen != c.gen {
		c.types.Reset()
		c.gen = gen
		c.log.Debug("schema replaced, projection memo reset", slog.Uint64("generation", gen))
	}
}

func (c *Cache) index(key apis.Key) {
	ts := c.ids[key.ID]
	if !slices.Contains(ts, key.Type) {
		c.ids[key.ID] = append(ts, key.Type)
	}
}

func (c *Cache) unindex(key apis.Key) {
	ts := c.ids[key.ID]
	i := slices.Index(ts, key.Type)
	if i < 0 {
		return
	}
	ts = slices.Delete(ts, i, i+1)
	if len(ts) == 0 {
		delete(c.ids, key.ID)
		return
	}
	c.ids[key.ID] = ts
}

func orderedKeys(m map[string]any, order []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(order))
	for _, k := range order {
		if _, ok := m[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	var rest []string
	for k := range m {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func sortKeys(keys []apis.Key) {
	slices.SortFunc(keys, func(a, b apis.Key) int {
		if a.Type != b.Type {
			if a.Type < b.Type {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
