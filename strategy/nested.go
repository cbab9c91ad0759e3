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

// NewNestedStrategy creates an apis.Strategy around the legacy
// ComputeNestedModel hook.
func NewNestedStrategy(c apis.NestedComputer, recoverPanics bool) apis.Strategy {
	return &nestedStrategy{c: c, recover: recoverPanics}
}

// nestedStrategy embeds sub-objects the schema recognizes.
type nestedStrategy struct {
	c       apis.NestedComputer
	recover bool
}

// Ensure nestedStrategy implements apis.Strategy.
var _ apis.Strategy = (*nestedStrategy)(nil)

// TryResolve asks the schema whether value is an embedded model.
func (s *nestedStrategy) TryResolve(key string, value any, modelName string, h apis.Helpers) (*apis.Descriptor, bool, error) {
	var n *apis.NestedModel
	err := Guard("ComputeNestedModel", modelName, key, s.recover, func() error {
		var err error
		n, err = s.c.ComputeNestedModel(key, value, modelName, h)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if n == nil {
		return nil, false, nil
	}
	return apis.Nested(n), true, nil
}
