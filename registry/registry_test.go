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

package registry_test

import (
	"testing"

	"dirpx.dev/m3/registry"
)

func TestRegister_IdempotentAndLookup(t *testing.T) {
	reg := registry.New()

	if err := reg.Register("DerivedBook", "Book"); err != nil {
		t.Fatalf("Register(DerivedBook): unexpected error: %v", err)
	}
	// idempotent re-register with same base, different spelling
	if err := reg.Register("derived_book", "book"); err != nil {
		t.Fatalf("Register(derived_book) idempotent: unexpected error: %v", err)
	}

	// lookup by any spelling hits the normalized entry
	for _, name := range []string{"DerivedBook", "derived-book", "derived_book"} {
		if base, ok := reg.Lookup(name); !ok || base != "book" {
			t.Fatalf("Lookup(%q): got (%q,%v), want (book,true)", name, base, ok)
		}
	}

	if reg.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegister_Conflict(t *testing.T) {
	reg := registry.New()

	if err := reg.Register("derived-book", "book"); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	err := reg.Register("DerivedBook", "chapter")
	if err != registry.ErrConflictingRegistration {
		t.Fatalf("expected ErrConflictingRegistration, got: %v", err)
	}
}

func TestRegister_Errors(t *testing.T) {
	reg := registry.New()

	if err := reg.Register("", "x"); err != registry.ErrEmptyName {
		t.Fatalf("empty type: want ErrEmptyName, got %v", err)
	}
	if err := reg.Register("x", "  "); err != registry.ErrEmptyName {
		t.Fatalf("empty base: want ErrEmptyName, got %v", err)
	}
}

func TestEntriesAndReset(t *testing.T) {
	reg := registry.New()

	_ = reg.Register("a", "base")
	_ = reg.Register("b", "base")

	entries := reg.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries len = %d, want 2", len(entries))
	}
	if reg.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", reg.Count())
	}

	reg.Reset()

	if reg.Count() != 0 {
		t.Fatalf("after Reset, Count() = %d, want 0", reg.Count())
	}
	if base, ok := reg.Lookup("a"); ok || base != "" {
		t.Fatalf("Lookup after Reset: got (%q,%v), want ('',false)", base, ok)
	}
	// previous snapshot must still be usable
	if len(entries) != 2 || entries[0].Base != "base" {
		t.Fatalf("snapshot changed after reset: %+v", entries)
	}
}

func TestLookupEmptyAndUnknown(t *testing.T) {
	reg := registry.New()

	if base, ok := reg.Lookup(""); ok || base != "" {
		t.Fatalf("Lookup(\"\"): got (%q,%v), want ('',false)", base, ok)
	}
	if base, ok := reg.Lookup("unknown"); ok || base != "" {
		t.Fatalf("Lookup(unknown): got (%q,%v), want ('',false)", base, ok)
	}
}
