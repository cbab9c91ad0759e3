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

// Package store ties the identity cache, the batcher and the model layer
// together behind the push / lookup / unload entry points the persistence
// layer calls.
package store

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/batch"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/identity"
	"dirpx.dev/m3/model"
	"dirpx.dev/m3/registry"
	"dirpx.dev/m3/utils/naming"
)

var (
	// ErrRecordExists is returned by CreateRecord for an id already loaded.
	ErrRecordExists = errors.New("m3(store): record already loaded")
	// ErrNoFetcher is returned by Query when the store has no Fetcher.
	ErrNoFetcher = errors.New("m3(store): no fetcher configured")
)

// Option configures a Store.
type Option func(*Store)

// WithExternal hands references to types the schema does not include to r.
func WithExternal(r apis.ExternalResolver) Option {
	return func(s *Store) {
		s.external = r
	}
}

// WithFetcher sets the Fetcher used by Query and RecordArray.Update.
func WithFetcher(f Fetcher) Option {
	return func(s *Store) {
		s.fetcher = f
	}
}

// activeChecker is implemented by schema registries that may be empty.
type activeChecker interface {
	Active() (apis.SchemaAdapter, bool)
}

// New constructs a Store resolving through ad. It fails with
// apis.ErrNoSchema when ad is nil or an empty registry.
func New(ad apis.SchemaAdapter, cfg apis.Config, opts ...Option) (*Store, error) {
	if ad == nil {
		return nil, apis.ErrNoSchema
	}
	if r, ok := ad.(activeChecker); ok {
		if _, active := r.Active(); !active {
			return nil, apis.ErrNoSchema
		}
	}
	s := &Store{
		cfg:      cfg,
		schema:   ad,
		batch:    batch.New(cfg),
		log:      config.Logger(cfg),
		models:   make(map[apis.Key]*model.Model),
		byRecord: make(map[apis.Key][]*model.Model),
	}
	s.ident = identity.New(cfg, ad, registry.New())
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Store owns one identity cache and every model built on it. It is not
// safe for concurrent use.
type Store struct {
	cfg      apis.Config
	schema   apis.SchemaAdapter
	ident    *identity.Cache
	batch    *batch.Batcher
	external apis.ExternalResolver
	fetcher  Fetcher
	log      *slog.Logger

	// models is keyed by the normalized type a model was looked up as.
	models map[apis.Key]*model.Model
	// byRecord groups models sharing one record.
	byRecord map[apis.Key][]*model.Model
}

// Ensure Store implements model.Host.
var _ model.Host = (*Store)(nil)

// Config returns the store configuration.
func (s *Store) Config() apis.Config { return s.cfg }

// Schema returns the schema adapter.
func (s *Store) Schema() apis.SchemaAdapter { return s.schema }

// Identity returns the identity cache.
func (s *Store) Identity() *identity.Cache { return s.ident }

// Batcher returns the change batcher.
func (s *Store) Batcher() *batch.Batcher { return s.batch }

// External returns the external resolver, or nil.
func (s *Store) External() apis.ExternalResolver { return s.external }

// Push merges every resource of doc, included ones first, and flushes the
// resulting notifications once all of them are merged. It returns the
// models for doc.Data. Resources of types the schema does not include are
// skipped.
//
// Every resource is checked before the first one is merged, so a document
// with a bad resource is rejected whole and leaves the cache untouched.
func (s *Store) Push(doc apis.Document) ([]*model.Model, error) {
	resources := make([]apis.Resource, 0, len(doc.Included)+len(doc.Data))
	resources = append(resources, doc.Included...)
	resources = append(resources, doc.Data...)
	managed := make([]bool, len(resources))
	for i, r := range resources {
		ok, err := s.check(r)
		if err != nil {
			return nil, err
		}
		managed[i] = ok
	}

	var out []*model.Model
	err := s.batch.Run(func() error {
		for i, r := range resources {
			if !managed[i] {
				s.log.Debug("skipping unmanaged resource", slog.String("type", r.Type), slog.String("id", r.ID))
				continue
			}
			m, err := s.merge(r)
			if err != nil {
				return err
			}
			if m != nil && i >= len(doc.Included) {
				out = append(out, m)
			}
		}
		return nil
	})
	s.log.Debug("pushed document",
		slog.Int("data", len(doc.Data)),
		slog.Int("included", len(doc.Included)),
		slog.Int("records", s.ident.Len()))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PushJSON decodes a {"data", "included"} document and pushes it.
func (s *Store) PushJSON(b []byte) ([]*model.Model, error) {
	var doc apis.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("m3(store): decode document: %w", err)
	}
	return s.Push(doc)
}

// PushResource pushes a single resource.
func (s *Store) PushResource(r apis.Resource) (*model.Model, error) {
	ms, err := s.Push(apis.Document{Data: []apis.Resource{r}, Single: true})
	if err != nil || len(ms) == 0 {
		return nil, err
	}
	return ms[0], nil
}

// check reports whether r is of a managed type and, if so, whether it can
// be keyed.
func (s *Store) check(r apis.Resource) (bool, error) {
	ok, err := s.schema.IncludesModel(r.Type)
	if err != nil {
		return false, fmt.Errorf("m3(store): push %s:%s: %w", r.Type, r.ID, err)
	}
	if !ok {
		return false, nil
	}
	if _, err := s.ident.KeyFor(r.Type, r.ID); err != nil {
		return false, fmt.Errorf("m3(store): push %s:%s: %w", r.Type, r.ID, err)
	}
	return true, nil
}

func (s *Store) merge(r apis.Resource) (*model.Model, error) {
	rec, changed, err := s.ident.Merge(r.Type, r.ID, r.Attributes, r.Keys())
	if err != nil {
		return nil, fmt.Errorf("m3(store): push %s:%s: %w", r.Type, r.ID, err)
	}
	if len(changed) > 0 {
		for _, m := range s.byRecord[rec.Key()] {
			s.batch.Stage(m, changed...)
		}
	}
	m, _ := s.ModelFor(r.Type, r.ID)
	return m, nil
}

// Batch runs fn with notifications held until fn returns.
func (s *Store) Batch(fn func() error) error {
	return s.batch.Run(fn)
}

// Flush delivers staged notifications. Hosts configured for manual
// flushing call it after pushing.
func (s *Store) Flush() {
	s.batch.Flush()
}

// ModelFor returns the singleton model for (modelName, id). It is false
// when no record is loaded for the key. Projections of one record get
// their own model, sharing the record.
func (s *Store) ModelFor(modelName, id string) (*model.Model, bool) {
	t, err := naming.Normalize(modelName)
	if err != nil || id == "" {
		return nil, false
	}
	k := apis.Key{Type: t, ID: id}
	if m, ok := s.models[k]; ok {
		return m, true
	}
	rec, ok := s.ident.Peek(t, id)
	if !ok {
		return nil, false
	}
	m := model.New(s, t, rec)
	s.models[k] = m
	s.byRecord[rec.Key()] = append(s.byRecord[rec.Key()], m)
	return m, true
}

// PeekRecord is ModelFor under the name the persistence layer uses.
func (s *Store) PeekRecord(modelName, id string) (*model.Model, bool) {
	return s.ModelFor(modelName, id)
}

// Siblings returns the other models sharing m's record.
func (s *Store) Siblings(m *model.Model) []*model.Model {
	all := s.byRecord[m.Key()]
	if len(all) <= 1 {
		return nil
	}
	out := make([]*model.Model, 0, len(all)-1)
	for _, x := range all {
		if x != m {
			out = append(out, x)
		}
	}
	return out
}

// UnloadRecord removes (modelName, id) from the identity cache. Every
// model of the record is unloaded and every reference to it is cleared;
// the resulting notifications are flushed together. Unloading a key that
// is not loaded is a no-op and returns false.
func (s *Store) UnloadRecord(modelName, id string) bool {
	var ok bool
	_ = s.batch.Run(func() error {
		var key apis.Key
		key, ok = s.ident.Unload(modelName, id)
		if ok {
			s.detach(key)
		}
		return nil
	})
	return ok
}

// UnloadAll unloads every record of modelName, or every record when
// modelName is empty, and returns how many were unloaded.
func (s *Store) UnloadAll(modelName string) int {
	var keys []apis.Key
	_ = s.batch.Run(func() error {
		keys = s.ident.UnloadAll(modelName)
		for _, k := range keys {
			s.detach(k)
		}
		return nil
	})
	s.log.Debug("unloaded records", slog.String("type", modelName), slog.Int("count", len(keys)))
	return len(keys)
}

func (s *Store) detach(key apis.Key) {
	for _, m := range s.byRecord[key] {
		m.Unload()
		delete(s.models, apis.Key{Type: m.EntityName(), ID: m.EntityID()})
	}
	delete(s.byRecord, key)
}

// CreateRecord creates a new local record. attrs["id"] is used as the id
// when present, otherwise a random UUID is assigned. The remaining
// attributes are set through the schema, so the model starts out new and
// dirty.
func (s *Store) CreateRecord(modelName string, attrs map[string]any) (*model.Model, error) {
	id := uuid.NewString()
	if v, ok := attrs["id"]; ok && v != nil {
		id = fmt.Sprint(v)
	}
	if _, ok := s.ident.Peek(modelName, id); ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrRecordExists, modelName, id)
	}
	if _, _, err := s.ident.GetOrCreate(modelName, id); err != nil {
		return nil, fmt.Errorf("m3(store): create %s: %w", modelName, err)
	}
	m, ok := s.ModelFor(modelName, id)
	if !ok {
		return nil, fmt.Errorf("m3(store): create %s:%s: record not loaded", modelName, id)
	}
	m.SetNew(true)
	props := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if k != "id" {
			props[k] = v
		}
	}
	if err := s.batch.Run(func() error { return m.SetProperties(props) }); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteRecord marks m deleted. The record stays loaded until the host
// unloads it.
func (s *Store) DeleteRecord(m *model.Model) {
	m.SetDeleted(true)
}

// Instances returns every live model, sorted by type then id.
func (s *Store) Instances() []*model.Model {
	out := make([]*model.Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *model.Model) int {
		return cmp.Or(cmp.Compare(a.EntityName(), b.EntityName()), cmp.Compare(a.EntityID(), b.EntityID()))
	})
	return out
}

// Teardown drops every record, model and pending notification. The store
// is empty and usable afterwards.
func (s *Store) Teardown() {
	s.batch.Discard()
	for _, m := range s.models {
		m.Unload()
	}
	s.ident.Clear()
	s.models = make(map[apis.Key]*model.Model)
	s.byRecord = make(map[apis.Key][]*model.Model)
	s.log.Debug("store torn down")
}
