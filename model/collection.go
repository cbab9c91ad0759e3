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
	"fmt"
	"slices"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/identity"
)

// Variant selects how a Collection reacts to a member being unloaded.
type Variant int

const (
	// Managed holds plain values only.
	Managed Variant = iota
	// Tracked holds elements with identity (references, nested models).
	// An unloaded member leaves a nil in its slot.
	Tracked
	// References is derived from a list of ids. An unloaded member is
	// removed and the collection shrinks.
	References
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case Managed:
		return "managed"
	case Tracked:
		return "tracked"
	case References:
		return "references"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

func variantOf(d *apis.Descriptor) Variant {
	if d.HoldsIdentity() {
		return Tracked
	}
	return Managed
}

// slot is one element. desc is nil until the raw value has been
// classified by the schema.
type slot struct {
	raw      any
	desc     *apis.Descriptor
	val      any
	resolved bool
	// dead slots belonged to an unloaded entity and never resolve again.
	dead bool
	// key is the entity this slot is subscribed to.
	key apis.Key
}

func slotsFromElements(elems []apis.Descriptor, raw any) []*slot {
	rawArr, _ := raw.([]any)
	useRaw := len(rawArr) == len(elems)
	out := make([]*slot, len(elems))
	for i := range elems {
		d := elems[i]
		r := d.Value
		if useRaw {
			r = rawArr[i]
		}
		out[i] = &slot{raw: r, desc: &d}
	}
	return out
}

func slotsFromRefs(refs []*apis.Reference, raw any) []*slot {
	rawArr, _ := raw.([]any)
	useRaw := len(rawArr) == len(refs)
	out := make([]*slot, len(refs))
	for i, ref := range refs {
		var r any
		switch {
		case useRaw:
			r = rawArr[i]
		case ref != nil:
			r = ref.ID
		}
		out[i] = &slot{raw: r, desc: apis.Ref(ref)}
	}
	return out
}

func newCollection(owner *Model, attr string, v Variant, slots []*slot, detached bool) *Collection {
	c := &Collection{owner: owner, attr: attr, variant: v, detached: detached}
	c.reset(v, slots)
	return c
}

// Collection is an observable sequence of lazily resolved elements. It may
// mix plain values, references and nested models.
type Collection struct {
	owner   *Model
	attr    string
	variant Variant
	// detached collections live inside another collection element and do
	// not write back to the owner.
	detached bool

	slots     []*slot
	observers []*arrayObserver
}

type arrayObserver struct {
	fn func(apis.ArrayChange)
}

// Ensure Collection implements the contracts it is used through.
var (
	_ apis.ArrayTarget  = (*Collection)(nil)
	_ identity.Listener = (*Collection)(nil)
)

// Owner returns the model whose attribute holds c.
func (c *Collection) Owner() *Model { return c.owner }

// Attr returns the attribute name c was resolved from.
func (c *Collection) Attr() string { return c.attr }

// Variant returns c's unload behavior.
func (c *Collection) Variant() Variant { return c.variant }

// Len returns the number of elements.
func (c *Collection) Len() int { return len(c.slots) }

// At resolves and returns element i.
func (c *Collection) At(i int) (any, error) {
	if i < 0 || i >= len(c.slots) {
		return nil, fmt.Errorf("%w: %d of %d", apis.ErrIndexOutOfRange, i, len(c.slots))
	}
	return c.resolve(c.slots[i])
}

// Values resolves every element.
func (c *Collection) Values() ([]any, error) {
	return c.Slice(0, len(c.slots))
}

// Slice resolves elements [start, end). Bounds are clamped.
func (c *Collection) Slice(start, end int) ([]any, error) {
	start, end = clampRange(start, end, len(c.slots))
	out := make([]any, 0, end-start)
	for _, s := range c.slots[start:end] {
		v, err := c.resolve(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Range calls fn with each resolved element until fn returns false.
func (c *Collection) Range(fn func(i int, v any) bool) error {
	for i := 0; i < len(c.slots); i++ {
		v, err := c.resolve(c.slots[i])
		if err != nil {
			return err
		}
		if !fn(i, v) {
			return nil
		}
	}
	return nil
}

// Raw returns the raw elements, as written back to the owner.
func (c *Collection) Raw() []any {
	out := make([]any, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.raw
	}
	return out
}

// Set replaces element i with v, which is resolved on first access.
func (c *Collection) Set(i int, v any) error {
	if i < 0 || i >= len(c.slots) {
		return fmt.Errorf("%w: %d of %d", apis.ErrIndexOutOfRange, i, len(c.slots))
	}
	_, err := c.Splice(i, 1, v)
	return err
}

// Push appends vs.
func (c *Collection) Push(vs ...any) error {
	_, err := c.Splice(len(c.slots), 0, vs...)
	return err
}

// Unshift prepends vs.
func (c *Collection) Unshift(vs ...any) error {
	_, err := c.Splice(0, 0, vs...)
	return err
}

// Pop removes and returns the last element.
func (c *Collection) Pop() (any, error) {
	if len(c.slots) == 0 {
		return nil, fmt.Errorf("%w: pop from empty collection", apis.ErrIndexOutOfRange)
	}
	out, err := c.Splice(len(c.slots)-1, 1)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Shift removes and returns the first element.
func (c *Collection) Shift() (any, error) {
	if len(c.slots) == 0 {
		return nil, fmt.Errorf("%w: shift from empty collection", apis.ErrIndexOutOfRange)
	}
	out, err := c.Splice(0, 1)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Splice removes deleteCount elements at start, inserts items there and
// returns the removed elements, resolved. A negative start counts from the
// end. Nothing changes if resolving a removed element fails.
func (c *Collection) Splice(start, deleteCount int, items ...any) ([]any, error) {
	if c.owner.unloaded {
		return nil, apis.ErrUnloaded
	}
	n := len(c.slots)
	if start < 0 {
		start += n
	}
	start = min(max(start, 0), n)
	deleteCount = min(max(deleteCount, 0), n-start)

	removed, err := c.Slice(start, start+deleteCount)
	if err != nil {
		return nil, err
	}
	added := make([]*slot, len(items))
	for i, it := range items {
		added[i] = &slot{raw: it}
	}
	c.slots = slices.Replace(c.slots, start, start+deleteCount, added...)
	for _, s := range added {
		c.watch(s)
	}
	if deleteCount == 0 && len(items) == 0 {
		return removed, nil
	}
	c.writeBack(true)
	c.NotifyArrayChange(apis.ArrayChange{Index: start, Removed: deleteCount, Added: len(items)})
	return removed, nil
}

// Observe registers fn for every edit of c. The returned func unregisters
// it.
func (c *Collection) Observe(fn func(apis.ArrayChange)) (cancel func()) {
	o := &arrayObserver{fn: fn}
	c.observers = append(c.observers, o)
	return func() {
		c.observers = slices.DeleteFunc(c.observers, func(x *arrayObserver) bool { return x == o })
	}
}

// NotifyArrayChange calls every observer with change.
func (c *Collection) NotifyArrayChange(change apis.ArrayChange) {
	for _, o := range slices.Clone(c.observers) {
		o.fn(change)
	}
}

// KeyUnloaded drops the members bound to key: References collections
// shrink, the others keep a nil in place. The edits are staged.
func (c *Collection) KeyUnloaded(key apis.Key) {
	var changes []apis.ArrayChange
	if c.variant == References {
		for i := len(c.slots) - 1; i >= 0; i-- {
			if c.slots[i].key == key {
				c.slots = slices.Delete(c.slots, i, i+1)
				changes = append(changes, apis.ArrayChange{Index: i, Removed: 1})
			}
		}
	} else {
		for i, s := range c.slots {
			if s.key != key || s.dead {
				continue
			}
			*s = slot{dead: true, resolved: true}
			changes = append(changes, apis.ArrayChange{Index: i, Removed: 1, Added: 1})
		}
	}
	if len(changes) == 0 {
		return
	}
	c.writeBack(false)
	b := c.owner.host.Batcher()
	for _, ch := range changes {
		b.StageEdit(c, ch)
	}
}

func (c *Collection) reset(v Variant, slots []*slot) {
	c.variant = v
	c.slots = slots
	for _, s := range slots {
		c.watch(s)
	}
}

// watch subscribes c to the entity s points at, when that is known
// without resolving s.
func (c *Collection) watch(s *slot) {
	var key apis.Key
	switch {
	case s.desc != nil && s.desc.Kind == apis.KindReference && s.desc.Reference != nil && s.desc.Reference.Type != "":
		ref := s.desc.Reference
		if external, err := c.owner.isExternal(ref.Type); err != nil || external {
			return
		}
		k, err := c.owner.host.Identity().KeyFor(ref.Type, ref.ID)
		if err != nil {
			return
		}
		key = k
	default:
		v := s.raw
		if s.desc != nil && s.desc.Kind == apis.KindRaw {
			v = s.desc.Value
		}
		t, ok := v.(*Model)
		if !ok || t.IsNested() {
			return
		}
		key = t.Key()
	}
	c.bind(s, key)
}

func (c *Collection) bind(s *slot, key apis.Key) {
	if key.IsZero() || s.key == key {
		return
	}
	s.key = key
	c.owner.host.Identity().Subscribe(key, c)
}

func (c *Collection) resolve(s *slot) (any, error) {
	if s.resolved {
		return s.val, nil
	}
	m := c.owner
	if s.desc == nil {
		d, err := m.computeElement(c.attr, s.raw)
		if err != nil {
			return nil, err
		}
		s.desc = d
		c.watch(s)
	}
	v, found, key, err := m.materializeElement(c.attr, s.desc)
	if err != nil {
		return nil, err
	}
	c.bind(s, key)
	if found {
		s.val, s.resolved = v, true
	}
	return v, nil
}

func (c *Collection) writeBack(track bool) {
	if c.detached || c.owner.unloaded {
		return
	}
	c.owner.writeCollection(c.attr, c.Raw(), track)
}

func clampRange(start, end, n int) (int, int) {
	start = min(max(start, 0), n)
	end = min(max(end, start), n)
	return start, end
}
