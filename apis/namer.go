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

package apis

// Namer exposes a canonical, human-readable type name for an entity.
//
// # Contract
//
//   - EntityName MUST be deterministic for a given instance.
//   - EntityName MUST NOT perform blocking operations or I/O.
type Namer interface {
	// EntityName returns the normalized model name, e.g. "blog-post".
	EntityName() string
}

// Identifier extends Namer with an instance-level identifier.
//
// The pair (EntityName, EntityID) is what the identity cache keys on, and
// what logging uses to tag entities. EntityID MAY be empty for embedded
// models that carry no id; callers MUST treat "" as "no id".
type Identifier interface {
	Namer

	// EntityID returns the id of this entity instance.
	EntityID() string
}
