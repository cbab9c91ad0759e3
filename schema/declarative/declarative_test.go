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

package declarative_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/builder"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/model"
	"dirpx.dev/m3/schema/declarative"
	"dirpx.dev/m3/store"
)

const library = `
models: [book, author]
references:
  - prefix: "urn:"
    separator: ":"
nested: [address]
whitelist:
  author: [name, address, books]
projections:
  famous-author: author
transforms:
  book:
    published: date
    pages: int
    isbn: string
resolved:
  book: [title]
`

func load(t *testing.T, src string) *declarative.Schema {
	t.Helper()
	s, err := declarative.Load(strings.NewReader(src))
	require.NoError(t, err)
	return s
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		invalid bool
	}{
		{name: "unknown field", src: "modelz: [book]\n"},
		{name: "bad yaml", src: "models: [book\n"},
		{name: "unknown transform", src: "transforms:\n  book:\n    pages: float\n", invalid: true},
		{name: "reference without prefix", src: "references:\n  - separator: \":\"\n", invalid: true},
		{name: "blank model", src: "models: [\" \"]\n", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := declarative.Load(strings.NewReader(tt.src))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, declarative.ErrInvalidRule)
			}
		})
	}
}

func TestLoad_Empty(t *testing.T) {
	s := load(t, "")
	assert.True(t, s.IncludesModel("anything"))
	assert.True(t, s.IsAttributeIncluded("anything", "x"))
}

func TestSchema_IncludesModel(t *testing.T) {
	s := load(t, library)
	assert.True(t, s.IncludesModel("Book"))
	assert.True(t, s.IncludesModel("FamousAuthor"))
	assert.False(t, s.IncludesModel("ghost"))
	assert.Equal(t, "author", s.ComputeBaseModelName("famous_author"))
	assert.Empty(t, s.ComputeBaseModelName("book"))
}

func TestSchema_ComputeAttributeReference(t *testing.T) {
	s := load(t, library)
	tests := []struct {
		name  string
		value any
		want  *apis.ReferenceResult
	}{
		{name: "typed", value: "urn:author:1", want: apis.One(&apis.Reference{ID: "1", Type: "author"})},
		{name: "type-less", value: "urn:1", want: apis.One(&apis.Reference{ID: "1"})},
		{name: "bare prefix", value: "urn:"},
		{name: "plain string", value: "hello"},
		{name: "number", value: 1.0},
		{
			name:  "reference array",
			value: []any{"urn:1", "urn:book:2"},
			want:  apis.Many(&apis.Reference{ID: "1"}, &apis.Reference{ID: "2", Type: "book"}),
		},
		{name: "mixed array", value: []any{"urn:1", 2.0}},
		{name: "empty array", value: []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ComputeAttributeReference("attr", tt.value, "book", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_ComputeNestedModel(t *testing.T) {
	s := load(t, library)
	obj := map[string]any{"id": "a1", "type": "address", "city": "C"}

	n, err := s.ComputeNestedModel("address", obj, "author", nil)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "a1", n.ID)
	assert.Equal(t, "address", n.Type)
	obj["city"] = "D"
	assert.Equal(t, "D", n.Attributes["city"])

	n, err = s.ComputeNestedModel("other", obj, "author", nil)
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = s.ComputeNestedModel("address", "not an object", "author", nil)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestSchema_TransformValue(t *testing.T) {
	s := load(t, library)

	v, err := s.TransformValue("book", "published", "2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Equal(v.(time.Time)))

	v, err = s.TransformValue("book", "pages", "120")
	require.NoError(t, err)
	assert.Equal(t, int64(120), v)

	v, err = s.TransformValue("book", "pages", 3.0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = s.TransformValue("book", "isbn", 978.0)
	require.NoError(t, err)
	assert.Equal(t, "978", v)

	v, err = s.TransformValue("book", "published", nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = s.TransformValue("author", "published", "as is")
	require.NoError(t, err)
	assert.Equal(t, "as is", v)

	_, err = s.TransformValue("book", "published", "yesterday")
	require.Error(t, err)
	_, err = s.TransformValue("book", "published", true)
	require.Error(t, err)
	_, err = s.TransformValue("book", "pages", "many")
	require.Error(t, err)
}

func TestSchema_ResolvedAndWhitelist(t *testing.T) {
	s := load(t, library)

	resolved, ok := s.IsAttributeResolved("book", "title", nil, nil)
	assert.True(t, resolved)
	assert.True(t, ok)
	_, ok = s.IsAttributeResolved("book", "pages", nil, nil)
	assert.False(t, ok)

	assert.True(t, s.IsAttributeIncluded("author", "name"))
	assert.False(t, s.IsAttributeIncluded("author", "secret"))
	assert.True(t, s.IsAttributeIncluded("book", "anything"))
}

func TestSchema_ThroughStore(t *testing.T) {
	cfg := config.DefaultConfig()
	st, err := store.New(builder.New().BuildAdapter(cfg, load(t, library), nil), cfg)
	require.NoError(t, err)
	t.Cleanup(st.Teardown)

	ms, err := st.PushJSON([]byte(`{
		"data": {"id": "1", "type": "author", "attributes": {
			"name": "A",
			"secret": "x",
			"address": {"city": "C"},
			"books": ["urn:book:1", "urn:book:2"]
		}},
		"included": [
			{"id": "1", "type": "book", "attributes": {"title": "T", "published": "2024-01-02T03:04:05Z", "pages": "120"}},
			{"id": "2", "type": "book", "attributes": {"title": "U"}}
		]
	}`))
	require.NoError(t, err)
	author := ms[0]

	books, err := author.Get("books")
	require.NoError(t, err)
	c := books.(*model.Collection)
	assert.Equal(t, model.References, c.Variant())
	assert.Equal(t, 2, c.Len())

	first, err := c.At(0)
	require.NoError(t, err)
	book := first.(*model.Model)
	pages, err := book.Get("pages")
	require.NoError(t, err)
	assert.Equal(t, int64(120), pages)
	published, err := book.Get("published")
	require.NoError(t, err)
	assert.IsType(t, time.Time{}, published)

	title, err := book.Get("title")
	require.NoError(t, err)
	_, err = st.PushJSON([]byte(`{"data": {"id": "1", "type": "book", "attributes": {"title": "T2"}}}`))
	require.NoError(t, err)
	again, err := book.Get("title")
	require.NoError(t, err)
	assert.Equal(t, title, again)

	addr, err := author.Get("address")
	require.NoError(t, err)
	assert.True(t, addr.(*model.Model).IsNested())

	out, err := author.ToJSON()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "address", "books"}, keys(out))

	st.UnloadRecord("book", "2")
	assert.Equal(t, 1, c.Len())
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
