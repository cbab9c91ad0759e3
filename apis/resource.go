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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Resource is one top-level or side-loaded entity in a pushed document.
type Resource struct {
	ID         string
	Type       string
	Attributes map[string]any

	// Order lists attribute keys in payload order. It is filled in when the
	// resource is decoded from JSON; keys missing from it are visited after
	// the ordered ones, sorted.
	Order []string
}

// Keys returns the attribute keys in payload order.
func (r Resource) Keys() []string {
	keys := make([]string, 0, len(r.Attributes))
	seen := make(map[string]struct{}, len(r.Order))
	for _, k := range r.Order {
		if _, ok := r.Attributes[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	rest := make([]string, 0, len(r.Attributes)-len(keys))
	for k := range r.Attributes {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

// UnmarshalJSON decodes {"id", "type", "attributes"}. Numeric ids are
// converted to their decimal string form and attribute key order is kept.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID         json.RawMessage `json:"id"`
		Type       string          `json:"type"`
		Attributes json.RawMessage `json:"attributes"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := decodeID(wire.ID)
	if err != nil {
		return err
	}
	attrs, order, err := decodeOrdered(wire.Attributes)
	if err != nil {
		return fmt.Errorf("m3: resource %s:%s attributes: %w", wire.Type, id, err)
	}
	*r = Resource{ID: id, Type: wire.Type, Attributes: attrs, Order: order}
	return nil
}

// MarshalJSON encodes the resource in the same shape it is decoded from.
func (r Resource) MarshalJSON() ([]byte, error) {
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return json.Marshal(struct {
		ID         string         `json:"id"`
		Type       string         `json:"type"`
		Attributes map[string]any `json:"attributes"`
	}{r.ID, r.Type, attrs})
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("m3: resource id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

func decodeOrdered(raw json.RawMessage) (map[string]any, []string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected an object, got %v", tok)
	}
	attrs := make(map[string]any)
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := attrs[key]; !dup {
			order = append(order, key)
		}
		attrs[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return attrs, order, nil
}

// Document is a pushed payload: primary data plus optional side-loaded
// resources. Data may hold a single resource or many.
type Document struct {
	Data     []Resource
	Included []Resource
	// Single records whether Data was a single object on the wire.
	Single bool
}

// UnmarshalJSON accepts "data" as either an object or an array.
func (d *Document) UnmarshalJSON(b []byte) error {
	var wire struct {
		Data     json.RawMessage `json:"data"`
		Included []Resource      `json:"included"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	out := Document{Included: wire.Included}
	data := bytes.TrimSpace(wire.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '[':
		if err := json.Unmarshal(data, &out.Data); err != nil {
			return err
		}
	default:
		var one Resource
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		out.Data = []Resource{one}
		out.Single = true
	}
	*d = out
	return nil
}
