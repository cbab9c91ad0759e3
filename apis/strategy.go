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

// Strategy is one step of attribute resolution. A Resolver chains
// strategies in order (e.g., Reference -> Nested -> Array).
type Strategy interface {
	// TryResolve returns (descriptor, true, nil) when it handled the value,
	// (nil, false, nil) to fall through, or a non-nil error to abort.
	TryResolve(key string, value any, modelName string, h Helpers) (*Descriptor, bool, error)
}
