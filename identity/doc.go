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

// Package identity implements the identity cache: the single source of truth
// for the raw attribute data of every entity, keyed by (type, id).
//
// Every key maps to exactly one *Record. Pushing data for a key that already
// has a record merges into it; the record's object identity never changes
// while it is loaded, so every model wrapping it observes the same data.
//
// Type names are canonicalized on the way in: they are normalized (see
// utils/naming) and then mapped onto their base type through the schema's
// ComputeBaseModelName hook, so a projection and its base converge on one
// record. The mapping is memoized in an apis.Registry and dropped when the
// schema source reports that the active schema was replaced.
//
// Type-less references are served by an id index listing, per id, the
// types it is loaded under in registration order. When an id is known under
// several types the configured apis.TieBreak picks one deterministically.
//
// Dependents (collections, reference slots) subscribe to keys and are told
// when the key is unloaded.
//
// A Cache is not safe for concurrent use. All access happens on one logical
// thread; hooks may re-enter the cache.
package identity
