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

// Package model implements the user-facing model instance and its
// attribute resolution engine.
//
// A Model is either top-level, bound to one identity-cache record and
// shared with every projection of the same key, or nested, bound directly
// to an attributes map that lives inside its parent's raw data.
//
// Get resolves an attribute lazily through the active schema and memoizes
// the result. The memo for an attribute is dropped when its raw value
// changes, when an attribute it was computed from changes, or when an
// entity it references is unloaded. Values the schema declares resolved
// survive upstream changes; references that found nothing are never
// memoized, so they retry once the referent is pushed.
//
// Arrays resolve into a Collection, which resolves each element on first
// access. Collection edits notify observers synchronously; edits caused by
// unloading a referenced entity are staged and delivered on flush.
//
// Models are not safe for concurrent use. A store and everything reachable
// from it belong to one goroutine.
package model
