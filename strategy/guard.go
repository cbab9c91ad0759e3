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

package strategy

import (
	"errors"
	"fmt"

	"dirpx.dev/m3/apis"
)

// Guard runs fn, wrapping a returned error (and, when recoverPanics is set,
// a panic) into an *apis.HookError naming the hook and attribute.
// Errors that already are HookErrors pass through unchanged.
func Guard(hook, modelName, attr string, recoverPanics bool, fn func() error) (err error) {
	if recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				err = &apis.HookError{Hook: hook, ModelName: modelName, Attr: attr, Err: panicError(r)}
			}
		}()
	}
	if err := fn(); err != nil {
		var he *apis.HookError
		if errors.As(err, &he) {
			return err
		}
		return &apis.HookError{Hook: hook, ModelName: modelName, Attr: attr, Err: err}
	}
	return nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
