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

// Package m3 turns schema-less JSON API payloads into live, observable,
// graph-connected models without a Go type per payload type.
//
// A pluggable schema decides, per attribute, whether a raw JSON value is a
// plain value, a reference to another entity, an embedded ("nested")
// object that becomes a model of its own, or an array mixing any of those.
// Attributes resolve lazily, resolutions are memoized, and only what a new
// payload actually changed is recomputed.
//
// # Design
//
// The pieces, leaves first:
//
//   - Schema (package apis): the hooks a consumer implements. A schema
//     implements either the consolidated ComputeAttribute hook or the
//     older ComputeAttributeReference / ComputeNestedModel pair, plus any
//     of the optional hooks (projections, transforms, pinning, attribute
//     whitelist, write redirection).
//
//   - Builder and schema.Registry: when a schema is registered the
//     builder inspects which hooks it implements, once, and synthesizes a
//     single apis.SchemaAdapter with one canonical ComputeAttribute
//     method. The registry holds the active adapter; the last
//     registration wins.
//
//   - identity.Cache: one raw attribute record per (type, id), shared by
//     every model of that key and of its projections. Pushing a payload
//     merges into the record and reports which attributes changed.
//
//   - batch.Batcher: payload pushes stage their changes; the flush at the
//     end of the push invalidates memoized attributes first and notifies
//     observers second, so every observer sees the whole push.
//
//   - model.Model and model.Collection: the user-facing objects and the
//     per-model resolution engine.
//
//   - store.Store: push, lookup, unload, create and query entry points,
//     owning one identity cache. Stores are independent of each other;
//     tests typically create one per case and Teardown it.
//
// # Global API
//
// The package keeps a process-wide schema registry and configuration in
// an atomically published snapshot, the way a binary usually wants it:
//
//	m3.RegisterSchema(mySchema)
//	st, err := m3.NewStore()
//	books, err := st.PushJSON(payload)
//	author, err := books[0].Get("author")
//
// Reads (Config, Schema, Builder, NewStore) load the current snapshot
// without locking. Writes (SetConfig, SetBuilder) take a short build
// mutex, rebuild the registered adapter and publish a new snapshot: last
// write wins. RegisterSchema swaps the adapter inside the shared registry,
// so stores created before a re-registration resolve through the new
// schema.
//
// # Concurrency model
//
// The global snapshot is safe for concurrent use. A Store, and every
// model and collection reachable from it, is not: all of it belongs to the
// goroutine that pushes into it. Nothing inside a store blocks; the only
// I/O boundary is the store.Fetcher a host plugs in for queries.
//
// # Scope
//
// m3 is not an ORM. It performs no querying beyond identity lookup by
// (type, id), defines no wire protocol beyond the {data, included}
// document it consumes, and implements no persistence: models report
// their dirty state and the host decides what to save.
package m3
