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

// Kind tags the variant held by a Descriptor.
type Kind int

const (
	// KindRaw means the value is used as-is.
	KindRaw Kind = iota
	// KindReference points at another entity.
	KindReference
	// KindNested embeds a sub-model.
	KindNested
	// KindManagedArray is a heterogeneous list of element descriptors.
	KindManagedArray
	// KindReferenceArray is a list of references whose membership follows
	// the identity cache: unloaded members drop out of it.
	KindReferenceArray
)

// Descriptor is what the canonical ComputeAttribute hook returns for one
// raw value. Only the field matching Kind is meaningful.
type Descriptor struct {
	Kind       Kind
	Value      any
	Reference  *Reference
	Nested     *NestedModel
	Elements   []Descriptor
	References []*Reference
}

// Raw describes a value that needs no resolution.
func Raw(v any) *Descriptor {
	return &Descriptor{Kind: KindRaw, Value: v}
}

// Ref describes a single reference. A nil reference resolves to nil.
func Ref(r *Reference) *Descriptor {
	return &Descriptor{Kind: KindReference, Reference: r}
}

// Nested describes an embedded model.
func Nested(n *NestedModel) *Descriptor {
	return &Descriptor{Kind: KindNested, Nested: n}
}

// ManagedArray describes a list whose elements resolve independently.
func ManagedArray(elems ...Descriptor) *Descriptor {
	return &Descriptor{Kind: KindManagedArray, Elements: elems}
}

// ReferenceArray describes a list of references. Nil entries stay in the
// list and resolve to nil.
func ReferenceArray(refs ...*Reference) *Descriptor {
	return &Descriptor{Kind: KindReferenceArray, References: refs}
}

// RawArray wraps every element of values in a raw descriptor.
func RawArray(values []any) *Descriptor {
	elems := make([]Descriptor, len(values))
	for i, v := range values {
		elems[i] = Descriptor{Kind: KindRaw, Value: v}
	}
	return ManagedArray(elems...)
}

// HoldsIdentity reports whether the descriptor, or any element of it, refers
// to something with object identity (a reference or a nested model).
func (d *Descriptor) HoldsIdentity() bool {
	if d == nil {
		return false
	}
	switch d.Kind {
	case KindReference, KindNested, KindReferenceArray:
		return true
	case KindManagedArray:
		for i := range d.Elements {
			if d.Elements[i].HoldsIdentity() {
				return true
			}
		}
	case KindRaw:
		_, ok := d.Value.(Identifier)
		return ok
	}
	return false
}

// ReferenceResult is what a legacy ComputeAttributeReference hook returns:
// either one reference or an array of them.
type ReferenceResult struct {
	Single  *Reference
	Array   []*Reference
	IsArray bool
}

// One wraps a single reference.
func One(r *Reference) *ReferenceResult {
	return &ReferenceResult{Single: r}
}

// Many wraps an array of references.
func Many(refs ...*Reference) *ReferenceResult {
	return &ReferenceResult{Array: refs, IsArray: true}
}
