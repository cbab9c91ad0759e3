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

// Key identifies one logical entity in an identity cache. Type is expected
// to be normalized (see utils/naming) before a Key is used for lookups.
type Key struct {
	// Type is the normalized model name.
	Type string
	// ID is the entity id.
	ID string
}

// String renders the key as "type:id".
func (k Key) String() string {
	return k.Type + ":" + k.ID
}

// IsZero reports whether k carries no id.
func (k Key) IsZero() bool {
	return k.ID == ""
}

// Reference is a pointer from one entity's attribute to another entity.
// An empty Type means "look the id up under any type".
type Reference struct {
	ID   string
	Type string
}

// NestedModel describes an embedded sub-object that becomes its own model
// without an identity-cache entry. Attributes is used as the nested model's
// storage directly; writes through the nested model mutate it in place.
type NestedModel struct {
	ID         string
	Type       string
	Attributes map[string]any
}
