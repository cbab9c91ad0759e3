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
	"fmt"
	"strings"
)

// CacheMode controls how an attribute resolution engine retains resolved
// values between reads.
//
// # Values
//
//   - Memoize: resolved values are cached until the raw value backing them
//     changes (default).
//   - None: every read recomputes from raw data. Intended for debugging
//     and for comparing behavior with and without caching.
//
// CacheMode is a plain integer and is safe to share across goroutines.
type CacheMode int

const (
	// Memoize caches resolved values per attribute.
	Memoize CacheMode = iota
	// None disables the resolved-value cache.
	None
)

// String returns "Memoize", "None" or "Unknown(<n>)". It never panics.
func (m CacheMode) String() string {
	switch m {
	case Memoize:
		return "Memoize"
	case None:
		return "None"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseCacheMode parses the case-insensitive textual form of a CacheMode.
// Surrounding whitespace is ignored. On failure it returns Memoize and a
// non-nil error.
func ParseCacheMode(s string) (CacheMode, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Memoize, fmt.Errorf("m3: empty cache mode")
	}
	switch strings.ToUpper(trimmed) {
	case "MEMOIZE":
		return Memoize, nil
	case "NONE":
		return None, nil
	default:
		return Memoize, fmt.Errorf("m3: unknown cache mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler. Unknown values are
// rejected instead of being persisted in their diagnostic form.
func (m CacheMode) MarshalText() ([]byte, error) {
	switch m {
	case Memoize, None:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("m3: cannot marshal unknown cache mode %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. On failure the
// receiver is left unchanged.
func (m *CacheMode) UnmarshalText(text []byte) error {
	v, err := ParseCacheMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// TieBreak selects the deterministic rule used to resolve a type-less
// reference whose id is known under several types.
//
// # Values
//
//   - FirstSeen: the type under which the id was first registered in the
//     identity cache (default). Registration order is recorded explicitly,
//     it does not depend on map iteration.
//   - Lexical: the lexically smallest normalized type name.
type TieBreak int

const (
	// FirstSeen prefers the earliest registered type for an id.
	FirstSeen TieBreak = iota
	// Lexical prefers the smallest normalized type name.
	Lexical
)

// String returns "FirstSeen", "Lexical" or "Unknown(<n>)".
func (t TieBreak) String() string {
	switch t {
	case FirstSeen:
		return "FirstSeen"
	case Lexical:
		return "Lexical"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// ParseTieBreak parses the case-insensitive textual form of a TieBreak.
func ParseTieBreak(s string) (TieBreak, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return FirstSeen, fmt.Errorf("m3: empty tie-break")
	}
	switch strings.ToUpper(trimmed) {
	case "FIRSTSEEN", "FIRST_SEEN", "FIRST-SEEN":
		return FirstSeen, nil
	case "LEXICAL":
		return Lexical, nil
	default:
		return FirstSeen, fmt.Errorf("m3: unknown tie-break %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t TieBreak) MarshalText() ([]byte, error) {
	switch t {
	case FirstSeen, Lexical:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("m3: cannot marshal unknown tie-break %d", int(t))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TieBreak) UnmarshalText(text []byte) error {
	v, err := ParseTieBreak(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
