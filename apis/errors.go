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
	"errors"
	"fmt"
)

var (
	// ErrNoSchema is returned when a store is built without an active schema.
	ErrNoSchema = errors.New("m3: no schema registered")
	// ErrInvalidMutation is returned when a model's id is changed after creation.
	ErrInvalidMutation = errors.New("m3: cannot change the id of an existing model")
	// ErrMissingQuery is returned when a record array is updated without a query.
	ErrMissingQuery = errors.New("m3: record array has no query to update from")
	// ErrUnloaded is returned when writing to a model whose record was unloaded.
	ErrUnloaded = errors.New("m3: model has been unloaded")
	// ErrIndexOutOfRange is returned by collection accessors.
	ErrIndexOutOfRange = errors.New("m3: collection index out of range")
)

// HookError reports a failure raised by a schema hook while resolving or
// writing a single attribute.
type HookError struct {
	// Hook is the hook name, e.g. "ComputeAttribute".
	Hook string
	// ModelName and Attr locate the failing resolution.
	ModelName string
	Attr      string
	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *HookError) Error() string {
	if e.Attr == "" {
		return fmt.Sprintf("m3: schema hook %s failed for %q: %v", e.Hook, e.ModelName, e.Err)
	}
	return fmt.Sprintf("m3: schema hook %s failed for %q.%s: %v", e.Hook, e.ModelName, e.Attr, e.Err)
}

// Unwrap returns the underlying error.
func (e *HookError) Unwrap() error {
	return e.Err
}
