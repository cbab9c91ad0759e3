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
	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/batch"
	"dirpx.dev/m3/identity"
)

// Host is what a Model needs from the store that owns it.
type Host interface {
	// Config returns the store configuration.
	Config() apis.Config
	// Schema returns the schema adapter resolution runs through.
	Schema() apis.SchemaAdapter
	// Identity returns the identity cache backing top-level models.
	Identity() *identity.Cache
	// Batcher returns the batcher unload-driven changes are staged on.
	Batcher() *batch.Batcher
	// External returns the resolver for types the schema does not include,
	// or nil when references to them are handled like any other.
	External() apis.ExternalResolver
	// ModelFor returns the singleton model for (modelName, id), or false
	// when no record is loaded under that key.
	ModelFor(modelName, id string) (*Model, bool)
	// Siblings returns the other models backed by the same record as m.
	Siblings(m *Model) []*Model
}
