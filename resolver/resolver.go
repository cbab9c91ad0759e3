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

package resolver

import (
	"dirpx.dev/m3/apis"
)

// New constructs an apis.Resolver that tries the given strategies in order.
// Nil strategies are ignored.
func New(strategies ...apis.Strategy) apis.Resolver {
	// Filter out nils to avoid nil-interface panics on call sites.
	out := make([]apis.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return chain{strats: out}
}

// chain is an immutable, order-preserving resolver over a set of strategies.
type chain struct {
	strats []apis.Strategy
}

// Resolve runs strategies in order until one handles the value.
// Returns nil if no strategy produced a descriptor; the first error aborts.
func (r chain) Resolve(key string, value any, modelName string, h apis.Helpers) (*apis.Descriptor, error) {
	for _, s := range r.strats {
		d, ok, err := s.TryResolve(key, value, modelName, h)
		if err != nil {
			return nil, err
		}
		if ok {
			return d, nil
		}
	}
	return nil, nil
}

// Len returns the number of strategies in r, or 0 if r was not built by New.
func Len(r apis.Resolver) int {
	if c, ok := r.(chain); ok {
		return len(c.strats)
	}
	return 0
}
