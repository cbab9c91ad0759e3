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

package schema

import (
	"sync"
	"sync/atomic"

	"dirpx.dev/m3/apis"
)

// NewRegistry constructs an empty schema registry. bld synthesizes the
// canonical adapter for every registered schema.
func NewRegistry(cfg apis.Config, bld apis.Builder) *Registry {
	r := &Registry{bld: bld}
	r.cur.Store(&snapshot{cfg: cfg})
	return r
}

// Registry holds the single active schema. Register replaces it; the last
// registration wins. Registry itself implements apis.SchemaAdapter by
// delegating to the active adapter, so holders observe re-registration
// without being rebuilt.
//
// Reads are lock-free; writers serialize on a mutex and publish a new
// snapshot atomically.
type Registry struct {
	mu  sync.Mutex
	cur atomic.Pointer[snapshot]
	bld apis.Builder
}

// snapshot is immutable once published.
type snapshot struct {
	cfg apis.Config
	ad  apis.SchemaAdapter
	// gen is bumped whenever ad is replaced.
	gen uint64
}

// Ensure Registry implements apis.SchemaAdapter.
var _ apis.SchemaAdapter = (*Registry)(nil)

// Register makes s the active schema and returns its adapter.
// A nil schema clears the registry.
func (r *Registry) Register(s apis.Schema) apis.SchemaAdapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.cur.Load()
	var ad apis.SchemaAdapter
	if s != nil {
		ad = r.bld.BuildAdapter(old.cfg, s, old.ad)
	}
	r.cur.Store(&snapshot{cfg: old.cfg, ad: ad, gen: old.gen + 1})
	return ad
}

// Reconfigure rebuilds the active adapter for cfg.
func (r *Registry) Reconfigure(cfg apis.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.cur.Load()
	ad := old.ad
	if ad != nil {
		ad = r.bld.BuildAdapter(cfg, ad.Schema(), old.ad)
	}
	r.cur.Store(&snapshot{cfg: cfg, ad: ad, gen: old.gen + 1})
}

// SetBuilder replaces the builder and rebuilds the active adapter with it.
// A nil builder is ignored.
func (r *Registry) SetBuilder(bld apis.Builder) {
	if bld == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bld = bld
	old := r.cur.Load()
	ad := old.ad
	if ad != nil {
		ad = bld.BuildAdapter(old.cfg, ad.Schema(), old.ad)
	}
	r.cur.Store(&snapshot{cfg: old.cfg, ad: ad, gen: old.gen + 1})
}

// Config returns the configuration adapters are built with.
func (r *Registry) Config() apis.Config {
	return r.cur.Load().cfg
}

// Generation changes every time the active adapter is replaced, so holders
// of derived data can tell that the schema they derived it from is gone.
func (r *Registry) Generation() uint64 {
	return r.cur.Load().gen
}

// Active returns the active adapter, if any.
func (r *Registry) Active() (apis.SchemaAdapter, bool) {
	ad := r.cur.Load().ad
	return ad, ad != nil
}

// Schema returns the active user schema, or nil.
func (r *Registry) Schema() apis.Schema {
	if ad, ok := r.Active(); ok {
		return ad.Schema()
	}
	return nil
}

// IncludesModel is false for every type while no schema is registered.
func (r *Registry) IncludesModel(modelName string) (bool, error) {
	if ad, ok := r.Active(); ok {
		return ad.IncludesModel(modelName)
	}
	return false, nil
}

// ComputeAttribute delegates to the active adapter.
func (r *Registry) ComputeAttribute(key string, value any, modelName string, h apis.Helpers) (*apis.Descriptor, error) {
	if ad, ok := r.Active(); ok {
		return ad.ComputeAttribute(key, value, modelName, h)
	}
	return nil, nil
}

// ComputeBaseModelName delegates to the active adapter.
func (r *Registry) ComputeBaseModelName(modelName string) (string, error) {
	if ad, ok := r.Active(); ok {
		return ad.ComputeBaseModelName(modelName)
	}
	return "", nil
}

// TransformValue delegates to the active adapter.
func (r *Registry) TransformValue(modelName, attr string, value any) (any, error) {
	if ad, ok := r.Active(); ok {
		return ad.TransformValue(modelName, attr, value)
	}
	return value, nil
}

// IsAttributeResolved delegates to the active adapter.
func (r *Registry) IsAttributeResolved(modelName, attr string, value any, h apis.Helpers) (bool, bool, error) {
	if ad, ok := r.Active(); ok {
		return ad.IsAttributeResolved(modelName, attr, value, h)
	}
	return false, false, nil
}

// SetAttribute delegates to the active adapter.
func (r *Registry) SetAttribute(modelName, attr string, value any, h apis.Helpers) error {
	if ad, ok := r.Active(); ok {
		return ad.SetAttribute(modelName, attr, value, h)
	}
	h.SetAttr(attr, value)
	return nil
}

// IsAttributeIncluded delegates to the active adapter.
func (r *Registry) IsAttributeIncluded(modelName, attr string) (bool, error) {
	if ad, ok := r.Active(); ok {
		return ad.IsAttributeIncluded(modelName, attr)
	}
	return true, nil
}
