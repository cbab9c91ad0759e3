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

// NewReferenceStrategy creates an apis.Strategy around the legacy
// ComputeAttributeReference hook.
func NewReferenceStrategy(c apis.ReferenceComputer, recoverPanics bool) apis.Strategy {
	return &referenceStrategy{c: c, recover: recoverPanics}
}

// referenceStrategy turns a reference result into a Ref or ReferenceArray
// descriptor and falls through when the hook returns nil.
type referenceStrategy struct {
	c       apis.ReferenceComputer
	recover bool
}

// Ensure referenceStrategy implements apis.Strategy.
var _ apis.Strategy = (*referenceStrategy)(nil)

// TryResolve asks the schema whether value is a reference.
func (s *referenceStrategy) TryResolve(key string, value any, modelName string, h apis.Helpers) (*apis.Descriptor, bool, error) {
	var res *apis.ReferenceResult
	err := Guard("ComputeAttributeReference", modelName, key, s.recover, func() error {
		var err error
		res, err = s.c.ComputeAttributeReference(key, value, modelName, h)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if res == nil {
		return nil, false, nil
	}
	if res.IsArray {
		return apis.ReferenceArray(res.Array...), true, nil
	}
	return apis.Ref(res.Single), true, nil
}
