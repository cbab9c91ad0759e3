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

package identity_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/builder"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/identity"
	"dirpx.dev/m3/registry"
	"dirpx.dev/m3/schema"
)

// projectingSchema maps "admin-user" onto "user".
type projectingSchema struct{}

func (projectingSchema) IncludesModel(string) bool { return true }

func (projectingSchema) ComputeBaseModelName(modelName string) string {
	if modelName == "admin-user" {
		return "user"
	}
	return ""
}

func newCache(t *testing.T, opts ...config.Option) *identity.Cache {
	t.Helper()
	cfg := config.NewConfig(opts...)
	reg := schema.NewRegistry(cfg, builder.New())
	reg.Register(projectingSchema{})
	return identity.New(cfg, reg, registry.New())
}

type recordingListener struct {
	got []apis.Key
}

func (l *recordingListener) KeyUnloaded(key apis.Key) { l.got = append(l.got, key) }

func TestCanonical_NormalizesAndProjects(t *testing.T) {
	c := newCache(t)

	got, err := c.Canonical("AdminUser")
	require.NoError(t, err)
	assert.Equal(t, "user", got)

	got, err = c.Canonical("BlogPost")
	require.NoError(t, err)
	assert.Equal(t, "blog-post", got)

	_, err = c.Canonical("  ")
	assert.ErrorIs(t, err, identity.ErrEmptyType)
}

// adminSchema keeps "admin-user" as its own base type.
type adminSchema struct{ projectingSchema }

func (adminSchema) ComputeBaseModelName(modelName string) string {
	if modelName == "admin-user" {
		return "admin"
	}
	return ""
}

func TestCanonical_SchemaReplacementResetsProjections(t *testing.T) {
	cfg := config.DefaultConfig()
	reg := schema.NewRegistry(cfg, builder.New())
	reg.Register(projectingSchema{})
	c := identity.New(cfg, reg, registry.New())

	got, err := c.Canonical("admin-user")
	require.NoError(t, err)
	assert.Equal(t, "user", got)

	reg.Register(adminSchema{})
	got, err = c.Canonical("admin-user")
	require.NoError(t, err)
	assert.Equal(t, "admin", got)
}

func TestKeyFor_RejectsEmptyID(t *testing.T) {
	c := newCache(t)
	_, err := c.KeyFor("user", "")
	assert.ErrorIs(t, err, identity.ErrEmptyID)
}

func TestGetOrCreate_OneRecordPerKey(t *testing.T) {
	c := newCache(t)

	r1, created, err := c.GetOrCreate("user", "1")
	require.NoError(t, err)
	assert.True(t, created)

	r2, created, err := c.GetOrCreate("admin-user", "1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, c.Len())
}

func TestMerge_ReportsOnlyChangedKeysInPayloadOrder(t *testing.T) {
	c := newCache(t)

	tags := []any{"a", "b"}
	rec, changed, err := c.Merge("user", "1",
		map[string]any{"name": "Ann", "tags": tags, "age": 3.0},
		[]string{"tags", "name", "age"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tags", "name", "age"}, changed)

	// Same content, new slice value: nothing changes and the stored slice
	// keeps its identity.
	_, changed, err = c.Merge("user", "1",
		map[string]any{"name": "Ann", "tags": []any{"a", "b"}},
		nil)
	require.NoError(t, err)
	assert.Empty(t, changed)
	got, _ := rec.Get("tags")
	assert.Same(t, &tags[0], &got.([]any)[0])

	_, changed, err = c.Merge("user", "1",
		map[string]any{"z": 1.0, "name": "Bob", "age": 3.0},
		[]string{"name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "z"}, changed)
}

func TestUnload_IsIdempotentAndNotifies(t *testing.T) {
	c := newCache(t)
	rec, _, err := c.GetOrCreate("user", "1")
	require.NoError(t, err)

	l := &recordingListener{}
	key := rec.Key()
	c.Subscribe(key, l)
	c.Subscribe(key, l)
	assert.Equal(t, 1, c.Subscribers(key))

	got, ok := c.Unload("AdminUser", "1")
	assert.True(t, ok)
	assert.Equal(t, key, got)
	assert.True(t, rec.Unloaded())
	assert.Equal(t, []apis.Key{key}, l.got)
	assert.Equal(t, 0, c.Subscribers(key))

	_, ok = c.Unload("user", "1")
	assert.False(t, ok)
	_, ok = c.Unload("ghost", "9")
	assert.False(t, ok)
	assert.Len(t, l.got, 1)

	_, found, _ := c.LookupByID("1")
	assert.False(t, found)
}

func TestUnsubscribe(t *testing.T) {
	c := newCache(t)
	rec, _, _ := c.GetOrCreate("user", "1")
	l := &recordingListener{}
	c.Subscribe(rec.Key(), l)
	c.Unsubscribe(rec.Key(), l)
	c.Unsubscribe(rec.Key(), l)
	c.UnloadKey(rec.Key())
	assert.Empty(t, l.got)
}

func TestUnloadAll(t *testing.T) {
	c := newCache(t)
	for _, k := range []apis.Key{{Type: "user", ID: "1"}, {Type: "user", ID: "2"}, {Type: "post", ID: "1"}} {
		_, _, err := c.GetOrCreate(k.Type, k.ID)
		require.NoError(t, err)
	}

	got := c.UnloadAll("AdminUser")
	assert.Equal(t, []apis.Key{{Type: "user", ID: "1"}, {Type: "user", ID: "2"}}, got)
	assert.Equal(t, []apis.Key{{Type: "post", ID: "1"}}, c.Keys())

	got = c.UnloadAll("")
	assert.Len(t, got, 1)
	assert.Equal(t, 0, c.Len())
}

func TestLookupByID_TieBreak(t *testing.T) {
	for _, tc := range []struct {
		name string
		tb   apis.TieBreak
		want string
	}{
		{"first seen", apis.FirstSeen, "post"},
		{"lexical", apis.Lexical, "comment"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := newCache(t,
				config.WithTieBreak(tc.tb),
				config.WithLogger(config.NewLogger("warn", "text", &buf)))

			_, _, _ = c.GetOrCreate("post", "7")
			_, _, _ = c.GetOrCreate("comment", "7")
			_, _, _ = c.GetOrCreate("user", "8")

			key, ok, ambiguous := c.LookupByID("8")
			assert.True(t, ok)
			assert.False(t, ambiguous)
			assert.Equal(t, apis.Key{Type: "user", ID: "8"}, key)

			key, ok, ambiguous = c.LookupByID("7")
			assert.True(t, ok)
			assert.True(t, ambiguous)
			assert.Equal(t, tc.want, key.Type)
			assert.True(t, strings.Contains(buf.String(), "ambiguous type-less reference"))

			_, ok, _ = c.LookupByID("404")
			assert.False(t, ok)
		})
	}
}

func TestLookupByID_FirstSeenSurvivesUnloadOfFirst(t *testing.T) {
	c := newCache(t)
	_, _, _ = c.GetOrCreate("post", "7")
	_, _, _ = c.GetOrCreate("comment", "7")
	c.Unload("post", "7")

	key, ok, ambiguous := c.LookupByID("7")
	assert.True(t, ok)
	assert.False(t, ambiguous)
	assert.Equal(t, "comment", key.Type)
}

func TestClear(t *testing.T) {
	c := newCache(t)
	rec, _, _ := c.GetOrCreate("user", "1")
	l := &recordingListener{}
	c.Subscribe(rec.Key(), l)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.True(t, rec.Unloaded())
	assert.Empty(t, l.got)
	_, ok, _ := c.LookupByID("1")
	assert.False(t, ok)
}
