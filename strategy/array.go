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
	"dirpx.dev/m3/apis"
)

// NewArrayStrategy creates an apis.Strategy that resolves []any values
// element-wise, running each element through elems (normally the same
// reference -> nested chain, with this strategy appended so that nested
// arrays recurse).
//
// elems may be set after construction via Bind, which lets the strategy be
// part of the chain it recurses into.
func NewArrayStrategy(elems apis.Resolver) *ArrayStrategy {
	return &ArrayStrategy{elems: elems}
}

// ArrayStrategy is the last step of the legacy decomposition.
type ArrayStrategy struct {
	elems apis.Resolver
}

// Ensure ArrayStrategy implements apis.Strategy.
var _ apis.Strategy = (*ArrayStrategy)(nil)

// Bind sets the resolver used for elements.
func (s *ArrayStrategy) Bind(elems apis.Resolver) {
	s.elems = elems
}

// TryResolve handles []any values only.
func (s *ArrayStrategy) TryResolve(key string, value any, modelName string, h apis.Helpers) (*apis.Descriptor, bool, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, false, nil
	}
	out := make([]apis.Descriptor, len(arr))
	for i, e := range arr {
		if _, resolved := e.(apis.Identifier); resolved || s.elems == nil {
			out[i] = apis.Descriptor{Kind: apis.KindRaw, Value: e}
			continue
		}
		d, err := s.elems.Resolve(key, e, modelName, h)
		if err != nil {
			return nil, false, err
		}
		if d == nil {
			out[i] = apis.Descriptor{Kind: apis.KindRaw, Value: e}
			continue
		}
		out[i] = *d
	}
	return apis.ManagedArray(out...), true, nil
}
