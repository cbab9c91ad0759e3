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

import "fmt"

// ArrayChange describes one range edit of a collection: at Index, Removed
// elements were replaced by Added new ones.
type ArrayChange struct {
	Index   int
	Removed int
	Added   int
}

// String renders the edit as "@index -removed +added".
func (c ArrayChange) String() string {
	return fmt.Sprintf("@%d -%d +%d", c.Index, c.Removed, c.Added)
}

// PropertyTarget receives invalidations and property notifications staged
// during a batch.
type PropertyTarget interface {
	// InvalidateAttributes drops cached resolutions of attrs and of every
	// attribute computed from them.
	InvalidateAttributes(attrs ...string)
	// NotifyPropertyChange tells observers that attr changed.
	NotifyPropertyChange(attr string)
}

// ArrayTarget receives staged collection edits.
type ArrayTarget interface {
	NotifyArrayChange(change ArrayChange)
}
