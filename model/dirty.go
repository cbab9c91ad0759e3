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
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"dirpx.dev/m3/apis"
)

// original is the raw value an attribute had before the first local write.
type original struct {
	value   any
	present bool
}

// Change is one entry of ChangedAttributes.
type Change struct {
	Old any
	New any
}

// Set writes value under attr through the schema's SetAttribute hook,
// which may redirect the write to other raw keys. Exactly the written keys,
// and what was computed from them, lose their memo on m and on every model
// sharing its record. Observers are notified before Set returns.
//
// Changing the id of a top-level model fails with apis.ErrInvalidMutation;
// setting it to its current value is a no-op.
func (m *Model) Set(attr string, value any) error {
	if m.unloaded {
		return apis.ErrUnloaded
	}
	if attr == "id" && m.rec != nil {
		if idString(value) == m.id {
			return nil
		}
		return fmt.Errorf("%w: %s to %v", apis.ErrInvalidMutation, m, value)
	}
	h := m.helpers("")
	err := m.host.Schema().SetAttribute(m.name, attr, value, h)
	// A failing hook may have written some keys already; keep the memo
	// consistent with them.
	m.afterWrite(h.written)
	return err
}

// SetProperties sets several attributes in key order.
func (m *Model) SetProperties(props map[string]any) error {
	for _, k := range sortedKeys(props) {
		if err := m.Set(k, props[k]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) afterWrite(written []string) {
	if len(written) == 0 {
		return
	}
	m.invalidate(written, true)
	sibs := m.host.Siblings(m)
	for _, s := range sibs {
		s.invalidate(written, false)
	}
	for _, a := range written {
		m.NotifyPropertyChange(a)
		for _, s := range sibs {
			s.NotifyPropertyChange(a)
		}
	}
	if m.parent != nil {
		m.parent.NotifyPropertyChange(m.parentAttr)
	}
}

// writeRaw stores v under attr and keeps dirty tracking current: the first
// write records the original, writing the original back clears it.
func (m *Model) writeRaw(attr string, v any) {
	old, had := m.data.Get(attr)
	o, tracked := m.originals[attr]
	if !tracked {
		o = original{value: old, present: had}
	}
	m.data.Set(attr, v)
	if o.present && sameValue(o.value, v) {
		delete(m.originals, attr)
		return
	}
	m.originals[attr] = o
}

// writeCollection stores the raw form of a collection attr without
// dropping the collection itself. track is false for edits the user did
// not make, such as unloading a member.
func (m *Model) writeCollection(attr string, raw []any, track bool) {
	if track {
		m.writeRaw(attr, raw)
	} else {
		m.data.Set(attr, raw)
	}
	deps := m.dependents([]string{attr})[1:]
	m.invalidate(deps, true)
	for _, s := range m.host.Siblings(m) {
		s.invalidate([]string{attr}, false)
	}
}

// IsDirty reports whether m, a nested model inside it, or the slot of an
// enclosing model that m lives in has local changes.
func (m *Model) IsDirty() bool {
	if m.isDirtyDown() {
		return true
	}
	for n := m; n.parent != nil; n = n.parent {
		if _, ok := n.parent.originals[n.parentAttr]; ok {
			return true
		}
	}
	return false
}

func (m *Model) isDirtyDown() bool {
	if len(m.originals) > 0 {
		return true
	}
	for _, c := range m.liveChildren() {
		if c.isDirtyDown() {
			return true
		}
	}
	return false
}

// ChangedAttributes returns m's own changed attributes with their original
// and current raw values.
func (m *Model) ChangedAttributes() map[string]Change {
	out := make(map[string]Change, len(m.originals))
	for a, o := range m.originals {
		cur, _ := m.data.Get(a)
		out[a] = Change{Old: o.value, New: cur}
	}
	return out
}

type rollbackStep struct {
	m    *Model
	attr string
	o    original
}

// Rollback restores the original raw value of every changed attribute of
// m and of the nested models inside it. The whole plan is computed before
// anything is written, so a rollback is never applied halfway.
func (m *Model) Rollback() {
	plan := m.rollbackPlan(nil)
	if len(plan) == 0 {
		return
	}
	touched := make(map[*Model][]string)
	var order []*Model
	for _, s := range plan {
		if s.o.present {
			s.m.data.Set(s.attr, s.o.value)
		} else {
			s.m.data.Delete(s.attr)
		}
		if _, ok := touched[s.m]; !ok {
			order = append(order, s.m)
		}
		touched[s.m] = append(touched[s.m], s.attr)
	}
	for _, n := range order {
		clear(n.originals)
	}
	for _, n := range order {
		attrs := touched[n]
		n.afterWrite(attrs)
	}
	m.log.Debug("rolled back", slog.Any("model", m), slog.Int("attributes", len(plan)))
}

func (m *Model) rollbackPlan(plan []rollbackStep) []rollbackStep {
	for _, c := range m.liveChildren() {
		plan = c.rollbackPlan(plan)
	}
	for _, a := range sortedKeys(m.originals) {
		plan = append(plan, rollbackStep{m: m, attr: a, o: m.originals[a]})
	}
	return plan
}

// DidCommit is called by the persistence layer after m was saved: current
// raw values become the originals and m is no longer new.
func (m *Model) DidCommit() {
	m.commit()
	m.isNew = false
}

func (m *Model) commit() {
	for _, c := range m.liveChildren() {
		c.commit()
	}
	clear(m.originals)
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
