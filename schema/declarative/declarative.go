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

// Package declarative provides a ready-made schema configured from YAML.
//
// Example:
//
//	models: [book, author, chapter]
//	references:
//	  - prefix: "urn:"
//	    separator: ":"
//	nested: [address, chapters]
//	whitelist:
//	  author: [name, address]
//	projections:
//	  famous-author: author
//	transforms:
//	  book:
//	    published: date
//	resolved:
//	  book: [title]
//
// With the rule above "urn:author:1" references author 1 and "urn:1"
// references id 1 of whatever type holds it. Arrays made only of
// references become reference arrays; other arrays resolve element-wise.
package declarative

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/utils/naming"
)

// Transform names accepted under "transforms".
const (
	TransformDate   = "date"
	TransformInt    = "int"
	TransformString = "string"
)

// ErrInvalidRule is returned by Load for a rule that cannot be applied.
var ErrInvalidRule = errors.New("m3(declarative): invalid rule")

// Config is the YAML form of a Schema.
type Config struct {
	// Models lists the managed types. Empty means every type.
	Models      []string                     `yaml:"models"`
	References  []ReferenceRule              `yaml:"references"`
	Nested      []string                     `yaml:"nested"`
	Whitelist   map[string][]string          `yaml:"whitelist"`
	Projections map[string]string            `yaml:"projections"`
	Transforms  map[string]map[string]string `yaml:"transforms"`
	Resolved    map[string][]string          `yaml:"resolved"`
}

// ReferenceRule recognizes string values of the form
// prefix + [type + separator] + id.
type ReferenceRule struct {
	Prefix    string `yaml:"prefix"`
	Separator string `yaml:"separator"`
}

// Load decodes a Config from r and builds its Schema.
func Load(r io.Reader) (*Schema, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("m3(declarative): decode: %w", err)
	}
	return New(cfg)
}

// New validates cfg and builds its Schema. Type names are normalized.
func New(cfg Config) (*Schema, error) {
	s := &Schema{
		refs:        cfg.References,
		nested:      cfg.Nested,
		whitelist:   make(map[string][]string, len(cfg.Whitelist)),
		projections: make(map[string]string, len(cfg.Projections)),
		transforms:  make(map[string]map[string]string, len(cfg.Transforms)),
		resolved:    make(map[string][]string, len(cfg.Resolved)),
	}
	for _, r := range cfg.References {
		if r.Prefix == "" {
			return nil, fmt.Errorf("%w: reference rule without prefix", ErrInvalidRule)
		}
	}
	for _, m := range cfg.Models {
		n, err := naming.Normalize(m)
		if err != nil {
			return nil, fmt.Errorf("%w: models: %v", ErrInvalidRule, err)
		}
		s.models = append(s.models, n)
	}
	for t, attrs := range cfg.Whitelist {
		s.whitelist[naming.MustNormalize(t)] = attrs
	}
	for t, base := range cfg.Projections {
		b, err := naming.Normalize(base)
		if err != nil {
			return nil, fmt.Errorf("%w: projection %q: %v", ErrInvalidRule, t, err)
		}
		s.projections[naming.MustNormalize(t)] = b
	}
	for t, attrs := range cfg.Transforms {
		for a, kind := range attrs {
			switch kind {
			case TransformDate, TransformInt, TransformString:
			default:
				return nil, fmt.Errorf("%w: transform %s.%s: unknown kind %q", ErrInvalidRule, t, a, kind)
			}
		}
		s.transforms[naming.MustNormalize(t)] = attrs
	}
	for t, attrs := range cfg.Resolved {
		s.resolved[naming.MustNormalize(t)] = attrs
	}
	return s, nil
}

// Schema implements the legacy hook set: references are recognized first,
// then nested objects, and arrays element-wise.
type Schema struct {
	models      []string
	refs        []ReferenceRule
	nested      []string
	whitelist   map[string][]string
	projections map[string]string
	transforms  map[string]map[string]string
	resolved    map[string][]string
}

// Ensure Schema implements the hooks it is configured for.
var (
	_ apis.Schema            = (*Schema)(nil)
	_ apis.ReferenceComputer = (*Schema)(nil)
	_ apis.NestedComputer    = (*Schema)(nil)
	_ apis.BaseModelNamer    = (*Schema)(nil)
	_ apis.ValueTransformer  = (*Schema)(nil)
	_ apis.ResolvedDecider   = (*Schema)(nil)
	_ apis.AttributeIncluder = (*Schema)(nil)
)

// IncludesModel reports whether modelName, or the base it projects onto,
// is listed.
func (s *Schema) IncludesModel(modelName string) bool {
	if len(s.models) == 0 {
		return true
	}
	t := naming.MustNormalize(modelName)
	if b, ok := s.projections[t]; ok {
		t = b
	}
	return slices.Contains(s.models, t)
}

// ComputeAttributeReference recognizes reference strings and arrays made
// only of them.
func (s *Schema) ComputeAttributeReference(_ string, value any, _ string, _ apis.Helpers) (*apis.ReferenceResult, error) {
	switch v := value.(type) {
	case string:
		if ref, ok := s.parseRef(v); ok {
			return apis.One(ref), nil
		}
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		refs := make([]*apis.Reference, 0, len(v))
		for _, e := range v {
			str, ok := e.(string)
			if !ok {
				return nil, nil
			}
			ref, ok := s.parseRef(str)
			if !ok {
				return nil, nil
			}
			refs = append(refs, ref)
		}
		return apis.Many(refs...), nil
	}
	return nil, nil
}

func (s *Schema) parseRef(v string) (*apis.Reference, bool) {
	for _, r := range s.refs {
		rest, ok := strings.CutPrefix(v, r.Prefix)
		if !ok || rest == "" {
			continue
		}
		if r.Separator != "" {
			if t, id, ok := strings.Cut(rest, r.Separator); ok && t != "" && id != "" {
				return &apis.Reference{ID: id, Type: t}, true
			}
		}
		return &apis.Reference{ID: rest}, true
	}
	return nil, false
}

// ComputeNestedModel embeds object values of attributes listed under
// "nested". The object's own "id" and "type" keys, when strings, name the
// nested model.
func (s *Schema) ComputeNestedModel(key string, value any, _ string, _ apis.Helpers) (*apis.NestedModel, error) {
	obj, ok := value.(map[string]any)
	if !ok || !slices.Contains(s.nested, key) {
		return nil, nil
	}
	n := &apis.NestedModel{Attributes: obj}
	n.ID, _ = obj["id"].(string)
	n.Type, _ = obj["type"].(string)
	return n, nil
}

// ComputeBaseModelName returns the configured base of a projection.
func (s *Schema) ComputeBaseModelName(modelName string) string {
	return s.projections[naming.MustNormalize(modelName)]
}

// TransformValue applies the configured transform of attr. Absent values
// stay absent.
func (s *Schema) TransformValue(modelName, attr string, value any) (any, error) {
	kind, ok := s.transforms[naming.MustNormalize(modelName)][attr]
	if !ok || value == nil {
		return value, nil
	}
	switch kind {
	case TransformDate:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("m3(declarative): %s.%s: %w", modelName, attr, err)
			}
			return t, nil
		}
	case TransformInt:
		switch v := value.(type) {
		case float64:
			return int64(v), nil
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("m3(declarative): %s.%s: %w", modelName, attr, err)
			}
			return n, nil
		}
	case TransformString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return fmt.Sprint(value), nil
	}
	return nil, fmt.Errorf("m3(declarative): %s.%s: cannot apply %s transform to %T", modelName, attr, kind, value)
}

// IsAttributeResolved pins the attributes listed under "resolved".
func (s *Schema) IsAttributeResolved(modelName, attr string, _ any, _ apis.Helpers) (bool, bool) {
	if slices.Contains(s.resolved[naming.MustNormalize(modelName)], attr) {
		return true, true
	}
	return false, false
}

// IsAttributeIncluded applies the whitelist of modelName, if any.
func (s *Schema) IsAttributeIncluded(modelName, attr string) bool {
	list, ok := s.whitelist[naming.MustNormalize(modelName)]
	return !ok || slices.Contains(list, attr)
}
