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

// Schema is the minimum a user-supplied schema implements. Everything else
// is optional and discovered once, when the schema is registered, by
// asserting the hook interfaces below.
type Schema interface {
	// IncludesModel reports whether entities of modelName are managed by
	// this engine at all.
	IncludesModel(modelName string) bool
}

// AttributeComputer is the consolidated resolution hook. A nil descriptor
// means "use the raw value".
type AttributeComputer interface {
	ComputeAttribute(key string, value any, modelName string, h Helpers) (*Descriptor, error)
}

// ReferenceComputer is the legacy reference hook. A nil result means the
// value is not a reference.
type ReferenceComputer interface {
	ComputeAttributeReference(key string, value any, modelName string, h Helpers) (*ReferenceResult, error)
}

// NestedComputer is the legacy nested-model hook. A nil result means the
// value is not an embedded model.
type NestedComputer interface {
	ComputeNestedModel(key string, value any, modelName string, h Helpers) (*NestedModel, error)
}

// BaseModelNamer maps a projection type onto the base type whose records it
// shares. An empty result means modelName is its own base.
type BaseModelNamer interface {
	ComputeBaseModelName(modelName string) string
}

// ValueTransformer coerces raw values before resolution.
type ValueTransformer interface {
	TransformValue(modelName, attr string, value any) (any, error)
}

// ResolvedDecider lets a schema force a resolved value to be pinned
// (exempt from recomputation) or always recomputed. ok is false when the
// schema has no opinion about attr and the engine default applies.
type ResolvedDecider interface {
	IsAttributeResolved(modelName, attr string, value any, h Helpers) (resolved, ok bool)
}

// AttributeSetter intercepts writes. Implementations call h.SetAttr for
// every raw key they want written, which may differ from attr.
type AttributeSetter interface {
	SetAttribute(modelName, attr string, value any, h Helpers) error
}

// AttributeIncluder is the per-type serialization whitelist.
type AttributeIncluder interface {
	IsAttributeIncluded(modelName, attr string) bool
}

// Helpers is handed to schema hooks. Reads through GetAttr during a
// computation are recorded as dependencies of the attribute being computed.
type Helpers interface {
	// ModelName returns the type of the model being resolved.
	ModelName() string
	// ID returns the id of the model being resolved ("" for nested models
	// without one).
	ID() string
	// GetAttr returns the raw value stored under key.
	GetAttr(key string) any
	// SetAttr writes a raw value under key.
	SetAttr(key string, value any)
}

// SchemaAdapter is the single canonical interface the engine talks to,
// whatever hook generation the registered schema implements. Every hook
// failure, including a recovered panic, is returned as a *HookError.
type SchemaAdapter interface {
	// Schema returns the user schema this adapter wraps.
	Schema() Schema
	IncludesModel(modelName string) (bool, error)
	ComputeAttribute(key string, value any, modelName string, h Helpers) (*Descriptor, error)
	ComputeBaseModelName(modelName string) (string, error)
	TransformValue(modelName, attr string, value any) (any, error)
	// IsAttributeResolved returns (resolved, true) when the schema has an
	// opinion and (false, false) when the engine default applies.
	IsAttributeResolved(modelName, attr string, value any, h Helpers) (resolved, decided bool, err error)
	SetAttribute(modelName, attr string, value any, h Helpers) error
	IsAttributeIncluded(modelName, attr string) (bool, error)
}

// ExternalResolver resolves references to types the schema does not manage.
type ExternalResolver interface {
	ResolveExternal(ref Reference) (any, error)
}
