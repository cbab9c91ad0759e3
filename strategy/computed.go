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

// NewComputedStrategy creates an apis.Strategy around the consolidated
// ComputeAttribute hook. It always handles the value: the consolidated hook
// is authoritative, and a nil descriptor means "use the raw value".
func NewComputedStrategy(c apis.AttributeComputer, recoverPanics bool) apis.Strategy {
	return &computedStrategy{c: c, recover: recoverPanics}
}

// computedStrategy forwards to the schema's ComputeAttribute.
type computedStrategy struct {
	c       apis.AttributeComputer
	recover bool
}

// Ensure computedStrategy implements apis.Strategy.
var _ apis.Strategy = (*computedStrategy)(nil)

// TryResolve calls ComputeAttribute and stops the chain.
func (s *computedStrategy) TryResolve(key string, value any, modelName string, h apis.Helpers) (*apis.Descriptor, bool, error) {
	var d *apis.Descriptor
	err := Guard("ComputeAttribute", modelName, key, s.recover, func() error {
		var err error
		d, err = s.c.ComputeAttribute(key, value, modelName, h)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}
