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

package m3

import (
	"sync"
	"sync/atomic"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/builder"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/schema"
	"dirpx.dev/m3/store"
)

// init initializes the global m3 state.
func init() {
	cfg := config.DefaultConfig()
	bld := builder.New()
	st.Store(&state{cfg: cfg, bld: bld, schemas: schema.NewRegistry(cfg, bld)})
}

// RegisterSchema makes s the process-wide schema and returns its adapter.
// The last registration wins; stores created earlier resolve through the
// new schema from then on. A nil s clears the registration.
func RegisterSchema(s apis.Schema) apis.SchemaAdapter {
	return st.Load().schemas.Register(s)
}

// Schema returns the registered schema, or nil.
func Schema() apis.Schema {
	return st.Load().schemas.Schema()
}

// Schemas returns the global schema registry. It implements
// apis.SchemaAdapter over whichever schema is registered.
func Schemas() *schema.Registry {
	return st.Load().schemas
}

// NewStore creates a store that resolves through the global schema
// registry with the global configuration. It fails with apis.ErrNoSchema
// when no schema is registered.
func NewStore(opts ...store.Option) (*store.Store, error) {
	s := st.Load()
	return store.New(s.schemas, s.cfg, opts...)
}

// Config returns the global m3 configuration.
func Config() apis.Config {
	return st.Load().cfg
}

// SetConfig sets the global m3 configuration and rebuilds the registered
// schema's adapter with it. Existing stores keep the configuration they
// were created with.
func SetConfig(cfg apis.Config) {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	old.schemas.Reconfigure(cfg)
	st.Store(&state{cfg: cfg, bld: old.bld, schemas: old.schemas})
}

// Configure is SetConfig over config.NewConfig(opts...).
func Configure(opts ...config.Option) {
	SetConfig(config.NewConfig(opts...))
}

// Builder returns the global m3 builder.
func Builder() apis.Builder {
	return st.Load().bld
}

// SetBuilder sets the builder adapters are synthesized with and rebuilds
// the registered schema's adapter. A nil builder is ignored.
func SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	old.schemas.SetBuilder(b)
	st.Store(&state{cfg: old.cfg, bld: b, schemas: old.schemas})
}

// buildMu serializes writers so we never publish partially-built
// snapshots.
var buildMu sync.Mutex

// st is the global m3 state.
var st atomic.Pointer[state]

// state is the global m3 state snapshot.
// Immutable once published via st.Store; writers create a new state and
// swap it atomically.
type state struct {
	// cfg is the global m3 configuration.
	cfg apis.Config
	// bld synthesizes schema adapters.
	bld apis.Builder
	// schemas holds the registered schema. The registry itself is shared
	// by every snapshot so that stores observe re-registration.
	schemas *schema.Registry
}
