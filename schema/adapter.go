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

package schema

import (
	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/strategy"
)

// Hooks lists which optional hook interfaces a schema implements. It is
// computed once, when the adapter is built.
type Hooks struct {
	Computed  bool
	Reference bool
	Nested    bool
	BaseName  bool
	Transform bool
	Resolved  bool
	Setter    bool
	Includer  bool
}

// Inspect reports which optional hooks s implements.
func Inspect(s apis.Schema) Hooks {
	var h Hooks
	_, h.Computed = s.(apis.AttributeComputer)
	_, h.Reference = s.(apis.ReferenceComputer)
	_, h.Nested = s.(apis.NestedComputer)
	_, h.BaseName = s.(apis.BaseModelNamer)
	_, h.Transform = s.(apis.ValueTransformer)
	_, h.Resolved = s.(apis.ResolvedDecider)
	_, h.Setter = s.(apis.AttributeSetter)
	_, h.Includer = s.(apis.AttributeIncluder)
	return h
}

// NewAdapter wraps s. compute is the canonical ComputeAttribute pipeline,
// already synthesized from whichever hook generation s implements.
func NewAdapter(s apis.Schema, compute apis.Resolver, recoverPanics bool) *Adapter {
	a := &Adapter{s: s, compute: compute, recover: recoverPanics, hooks: Inspect(s)}
	a.base, _ = s.(apis.BaseModelNamer)
	a.transform, _ = s.(apis.ValueTransformer)
	a.decider, _ = s.(apis.ResolvedDecider)
	a.setter, _ = s.(apis.AttributeSetter)
	a.includer, _ = s.(apis.AttributeIncluder)
	return a
}

// Adapter is the apis.SchemaAdapter implementation. Optional hooks are
// asserted once in NewAdapter; per-call dispatch is a nil check.
type Adapter struct {
	s         apis.Schema
	compute   apis.Resolver
	base      apis.BaseModelNamer
	transform apis.ValueTransformer
	decider   apis.ResolvedDecider
	setter    apis.AttributeSetter
	includer  apis.AttributeIncluder
	recover   bool
	hooks     Hooks
}

// Ensure Adapter implements apis.SchemaAdapter.
var _ apis.SchemaAdapter = (*Adapter)(nil)

// Schema returns the wrapped schema.
func (a *Adapter) Schema() apis.Schema { return a.s }

// Hooks returns the optional hooks detected at construction.
func (a *Adapter) Hooks() Hooks { return a.hooks }

// IncludesModel forwards to the schema.
func (a *Adapter) IncludesModel(modelName string) (bool, error) {
	var ok bool
	err := strategy.Guard("IncludesModel", modelName, "", a.recover, func() error {
		ok = a.s.IncludesModel(modelName)
		return nil
	})
	return ok, err
}

// ComputeAttribute runs the synthesized pipeline.
func (a *Adapter) ComputeAttribute(key string, value any, modelName string, h apis.Helpers) (*apis.Descriptor, error) {
	if a.compute == nil {
		return nil, nil
	}
	return a.compute.Resolve(key, value, modelName, h)
}

// ComputeBaseModelName returns "" when the schema has no projection hook.
func (a *Adapter) ComputeBaseModelName(modelName string) (string, error) {
	if a.base == nil {
		return "", nil
	}
	var base string
	err := strategy.Guard("ComputeBaseModelName", modelName, "", a.recover, func() error {
		base = a.base.ComputeBaseModelName(modelName)
		return nil
	})
	return base, err
}

// TransformValue returns value unchanged when the schema has no transform.
func (a *Adapter) TransformValue(modelName, attr string, value any) (any, error) {
	if a.transform == nil {
		return value, nil
	}
	out := value
	err := strategy.Guard("TransformValue", modelName, attr, a.recover, func() error {
		var err error
		out, err = a.transform.TransformValue(modelName, attr, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IsAttributeResolved reports (false, false) when the schema has no opinion.
func (a *Adapter) IsAttributeResolved(modelName, attr string, value any, h apis.Helpers) (bool, bool, error) {
	if a.decider == nil {
		return false, false, nil
	}
	var resolved, decided bool
	err := strategy.Guard("IsAttributeResolved", modelName, attr, a.recover, func() error {
		resolved, decided = a.decider.IsAttributeResolved(modelName, attr, value, h)
		return nil
	})
	if err != nil {
		return false, false, err
	}
	return resolved, decided, nil
}

// SetAttribute writes value under attr unless the schema redirects it.
func (a *Adapter) SetAttribute(modelName, attr string, value any, h apis.Helpers) error {
	if a.setter == nil {
		h.SetAttr(attr, value)
		return nil
	}
	return strategy.Guard("SetAttribute", modelName, attr, a.recover, func() error {
		return a.setter.SetAttribute(modelName, attr, value, h)
	})
}

// IsAttributeIncluded defaults to true.
func (a *Adapter) IsAttributeIncluded(modelName, attr string) (bool, error) {
	if a.includer == nil {
		return true, nil
	}
	var ok bool
	err := strategy.Guard("IsAttributeIncluded", modelName, attr, a.recover, func() error {
		ok = a.includer.IsAttributeIncluded(modelName, attr)
		return nil
	})
	return ok, err
}
