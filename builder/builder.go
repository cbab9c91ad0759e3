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

package builder

import (
	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/resolver"
	"dirpx.dev/m3/schema"
	"dirpx.dev/m3/strategy"
)

// New creates and returns a new instance of an apis.Builder.
func New() apis.Builder {
	return &builder{}
}

// builder is an empty struct to be used as a receiver for builder methods.
type builder struct{}

// BuildAdapter inspects s once and synthesizes the canonical
// ComputeAttribute pipeline:
//
//   - if s implements apis.AttributeComputer, that hook alone is used;
//   - otherwise the legacy hooks are chained: reference first, then
//     nested, then element-wise resolution of arrays, each element running
//     through the same reference -> nested -> array chain.
//
// The previous adapter is not reused: hook detection is cheap and a new
// schema may implement a different hook set.
func (b *builder) BuildAdapter(cfg apis.Config, s apis.Schema, _ apis.SchemaAdapter) apis.SchemaAdapter {
	if s == nil {
		return nil
	}
	rec := cfg.RecoverHookPanics

	if c, ok := s.(apis.AttributeComputer); ok {
		return schema.NewAdapter(s, resolver.New(strategy.NewComputedStrategy(c, rec)), rec)
	}

	var ref, nested apis.Strategy
	if rc, ok := s.(apis.ReferenceComputer); ok {
		ref = strategy.NewReferenceStrategy(rc, rec)
	}
	if nc, ok := s.(apis.NestedComputer); ok {
		nested = strategy.NewNestedStrategy(nc, rec)
	}
	arr := strategy.NewArrayStrategy(nil)
	elems := resolver.New(ref, nested, arr)
	arr.Bind(elems)

	return schema.NewAdapter(s, elems, rec)
}
