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

package naming

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrEmptyName is returned when a blank model name is provided.
	ErrEmptyName = errors.New("naming: empty model name")
)

// Normalize canonicalizes a model name so that spellings of the same type
// converge on one identity-cache key.
//
// Normalization policy:
//   - surrounding whitespace is trimmed;
//   - camel humps start a new word: "BlogPost" -> "blog-post",
//     "HTTPRequest" -> "http-request";
//   - '_', ' ' and '-' all separate words, runs collapse to one '-';
//   - '/' (namespaces) and '.' are kept as-is;
//   - the result is lower case.
func Normalize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	rs := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	pendingDash := false
	for i, r := range rs {
		switch {
		case r == '_' || r == ' ' || r == '-':
			pendingDash = b.Len() > 0
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				pendingDash = true
			}
		}
		if pendingDash && b.Len() > 0 && !endsWithSep(b.String()) && r != '/' && r != '.' {
			b.WriteByte('-')
		}
		pendingDash = false
		b.WriteRune(unicode.ToLower(r))
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "", ErrEmptyName
	}
	return out, nil
}

// MustNormalize is like Normalize but returns name unchanged when it cannot
// be normalized. It is meant for lookups where a miss is acceptable.
func MustNormalize(name string) string {
	n, err := Normalize(name)
	if err != nil {
		return name
	}
	return n
}

func endsWithSep(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '-', '/', '.':
		return true
	}
	return false
}
