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

package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/builder"
	"dirpx.dev/m3/config"
	"dirpx.dev/m3/identity"
	"dirpx.dev/m3/model"
	"dirpx.dev/m3/schema"
	"dirpx.dev/m3/schema/declarative"
	"dirpx.dev/m3/store"
)

const blogSchema = `
models: [post, comment, author]
references:
  - prefix: "urn:"
    separator: ":"
projections:
  famous-author: author
`

func newStore(t *testing.T, opts []config.Option, sopts ...store.Option) *store.Store {
	t.Helper()
	sch, err := declarative.Load(strings.NewReader(blogSchema))
	require.NoError(t, err)
	cfg := config.NewConfig(opts...)
	s, err := store.New(builder.New().BuildAdapter(cfg, sch, nil), cfg, sopts...)
	require.NoError(t, err)
	t.Cleanup(s.Teardown)
	return s
}

func pushJSON(t *testing.T, s *store.Store, doc string) []*model.Model {
	t.Helper()
	ms, err := s.PushJSON([]byte(doc))
	require.NoError(t, err)
	return ms
}

func TestNew_RequiresSchema(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := store.New(nil, cfg)
	assert.ErrorIs(t, err, apis.ErrNoSchema)

	_, err = store.New(schema.NewRegistry(cfg, builder.New()), cfg)
	assert.ErrorIs(t, err, apis.ErrNoSchema)
}

func TestPushJSON_IncludedBeforeData(t *testing.T) {
	s := newStore(t, nil)
	ms := pushJSON(t, s, `{
		"data": {"id": 1, "type": "post", "attributes": {"title": "T", "comment": "urn:comment:9"}},
		"included": [
			{"id": "9", "type": "comment", "attributes": {"body": "b"}},
			{"id": "1", "type": "ghost", "attributes": {"x": 1}}
		]
	}`)
	require.Len(t, ms, 1)
	post := ms[0]
	assert.Equal(t, "post", post.EntityName())
	assert.Equal(t, "1", post.EntityID())

	c, err := post.Get("comment")
	require.NoError(t, err)
	comment, ok := c.(*model.Model)
	require.True(t, ok)
	body, err := comment.Get("body")
	require.NoError(t, err)
	assert.Equal(t, "b", body)

	// ghost is not a managed type.
	assert.Equal(t, 2, s.Identity().Len())
	_, ok = s.ModelFor("ghost", "1")
	assert.False(t, ok)
}

func TestPushJSON_RejectsMalformed(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.PushJSON([]byte(`{"data": [`))
	require.Error(t, err)

	_, err = s.PushJSON([]byte(`{"data": {"id": true, "type": "post"}}`))
	require.Error(t, err)

	_, err = s.PushJSON([]byte(`{"data": {"id": null, "type": "post"}}`))
	require.Error(t, err)
}

func TestPush_RejectedDocumentLeavesCacheUntouched(t *testing.T) {
	s := newStore(t, nil)
	m := pushJSON(t, s, `{"data": {"id": "1", "type": "post", "attributes": {"title": "A"}}}`)[0]
	var notified []string
	m.Observe(func(attr string) { notified = append(notified, attr) })

	_, err := s.PushJSON([]byte(`{
		"data": [
			{"id": "1", "type": "post", "attributes": {"title": "B"}},
			{"id": null, "type": "post", "attributes": {"title": "C"}}
		],
		"included": [{"id": "9", "type": "comment", "attributes": {"body": "b"}}]
	}`))
	require.ErrorIs(t, err, identity.ErrEmptyID)

	assert.Equal(t, 1, s.Identity().Len())
	assert.Empty(t, notified)
	title, err := m.Get("title")
	require.NoError(t, err)
	assert.Equal(t, "A", title)
}

func TestPush_NotificationsAfterMerge(t *testing.T) {
	s := newStore(t, nil)
	ms := pushJSON(t, s, `{"data": [
		{"id": "1", "type": "post", "attributes": {"zeta": 1, "alpha": 1}},
		{"id": "2", "type": "post", "attributes": {"x": 1}}
	]}`)
	a, b := ms[0], ms[1]
	for _, attr := range []string{"zeta", "alpha"} {
		_, err := a.Get(attr)
		require.NoError(t, err)
	}

	var aSeen []string
	var fromB []any
	a.Observe(func(attr string) { aSeen = append(aSeen, attr) })
	b.Observe(func(attr string) {
		v, err := a.Get("alpha")
		require.NoError(t, err)
		fromB = append(fromB, v, len(aSeen))
	})

	pushJSON(t, s, `{"data": [
		{"id": "2", "type": "post", "attributes": {"x": 2}},
		{"id": "1", "type": "post", "attributes": {"zeta": 2, "alpha": 2}}
	]}`)

	// b is notified first, already sees a's new value and a has not been
	// notified yet.
	assert.Equal(t, []any{2.0, 0}, fromB)
	assert.Equal(t, []string{"zeta", "alpha"}, aSeen)
}

func TestPush_ManualFlush(t *testing.T) {
	s := newStore(t, []config.Option{config.WithManualFlush(true)})
	m := pushJSON(t, s, `{"data": {"id": "1", "type": "post", "attributes": {"title": "A"}}}`)[0]
	_, err := m.Get("title")
	require.NoError(t, err)

	var seen []string
	m.Observe(func(attr string) { seen = append(seen, attr) })
	pushJSON(t, s, `{"data": {"id": "1", "type": "post", "attributes": {"title": "B"}}}`)
	pushJSON(t, s, `{"data": {"id": "1", "type": "post", "attributes": {"title": "C"}}}`)
	assert.Empty(t, seen)
	assert.Equal(t, 1, s.Batcher().Pending())

	s.Flush()
	assert.Equal(t, []string{"title"}, seen)
	v, err := m.Get("title")
	require.NoError(t, err)
	assert.Equal(t, "C", v)
}

func TestBatch_NestsPushes(t *testing.T) {
	s := newStore(t, nil)
	m := pushJSON(t, s, `{"data": {"id": "1", "type": "post", "attributes": {"title": "A"}}}`)[0]

	var seen []string
	m.Observe(func(attr string) { seen = append(seen, attr) })
	err := s.Batch(func() error {
		pushJSON(t, s, `{"data": {"id": "1", "type": "post", "attributes": {"title": "B"}}}`)
		assert.Empty(t, seen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, seen)
}

func TestModelFor_Projections(t *testing.T) {
	s := newStore(t, nil)
	base := pushJSON(t, s, `{"data": {"id": "1", "type": "author", "attributes": {"name": "A"}}}`)[0]
	proj := pushJSON(t, s, `{"data": {"id": "1", "type": "FamousAuthor", "attributes": {"fans": 3}}}`)[0]

	assert.NotSame(t, base, proj)
	assert.Equal(t, "famous-author", proj.EntityName())
	assert.Equal(t, 1, s.Identity().Len())
	assert.Equal(t, []*model.Model{proj}, s.Siblings(base))

	again, ok := s.PeekRecord("famous_author", "1")
	require.True(t, ok)
	assert.Same(t, proj, again)

	fans, err := base.Get("fans")
	require.NoError(t, err)
	assert.Equal(t, 3.0, fans)
}

func TestCreateRecord(t *testing.T) {
	s := newStore(t, nil)

	m, err := s.CreateRecord("post", map[string]any{"title": "T"})
	require.NoError(t, err)
	_, err = uuid.Parse(m.EntityID())
	require.NoError(t, err)
	assert.True(t, m.IsNew())
	assert.True(t, m.IsDirty())
	v, err := m.Get("title")
	require.NoError(t, err)
	assert.Equal(t, "T", v)

	m2, err := s.CreateRecord("post", map[string]any{"id": "p1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", m2.EntityID())
	assert.False(t, m2.IsDirty())

	_, err = s.CreateRecord("post", map[string]any{"id": "p1"})
	assert.ErrorIs(t, err, store.ErrRecordExists)
}

func TestDeleteRecord(t *testing.T) {
	s := newStore(t, nil)
	m := pushJSON(t, s, `{"data": {"id": "1", "type": "post"}}`)[0]

	var seen []string
	m.Observe(func(attr string) { seen = append(seen, attr) })
	s.DeleteRecord(m)
	s.DeleteRecord(m)
	assert.True(t, m.IsDeleted())
	assert.Equal(t, []string{"isDeleted"}, seen)

	_, ok := s.ModelFor("post", "1")
	assert.True(t, ok)
}

func TestUnloadAll(t *testing.T) {
	s := newStore(t, nil)
	pushJSON(t, s, `{"data": [
		{"id": "2", "type": "post"},
		{"id": "1", "type": "post"},
		{"id": "1", "type": "comment"}
	]}`)

	var names []string
	for _, m := range s.Instances() {
		names = append(names, m.String())
	}
	assert.Equal(t, []string{"comment:1", "post:1", "post:2"}, names)

	p1, _ := s.ModelFor("post", "1")
	assert.Equal(t, 2, s.UnloadAll("post"))
	assert.True(t, p1.IsUnloaded())
	assert.Len(t, s.Instances(), 1)
	assert.Equal(t, 1, s.UnloadAll(""))
	assert.Empty(t, s.Instances())
	assert.Equal(t, 0, s.Identity().Len())
}

func TestUnloadRecord(t *testing.T) {
	s := newStore(t, nil)
	m := pushJSON(t, s, `{"data": {"id": "1", "type": "post"}}`)[0]

	assert.False(t, s.UnloadRecord("post", "2"))
	assert.True(t, s.UnloadRecord("post", "1"))
	assert.False(t, s.UnloadRecord("post", "1"))
	assert.True(t, m.IsUnloaded())

	_, err := m.Get("title")
	assert.ErrorIs(t, err, apis.ErrUnloaded)
	_, ok := s.ModelFor("post", "1")
	assert.False(t, ok)
}

func TestTeardown(t *testing.T) {
	s := newStore(t, nil)
	m := pushJSON(t, s, `{"data": {"id": "1", "type": "post"}}`)[0]

	s.Teardown()
	assert.True(t, m.IsUnloaded())
	assert.Equal(t, 0, s.Identity().Len())
	assert.Empty(t, s.Instances())

	again := pushJSON(t, s, `{"data": {"id": "1", "type": "post"}}`)[0]
	assert.NotSame(t, m, again)
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("missing query", func(t *testing.T) {
		s := newStore(t, nil)
		_, err := s.Query(ctx, nil)
		assert.ErrorIs(t, err, apis.ErrMissingQuery)
	})

	t.Run("no fetcher", func(t *testing.T) {
		s := newStore(t, nil)
		_, err := s.Query(ctx, &store.Query{ModelName: "post"})
		assert.ErrorIs(t, err, store.ErrNoFetcher)
	})

	t.Run("fetch error", func(t *testing.T) {
		boom := errors.New("offline")
		s := newStore(t, nil, store.WithFetcher(store.FetcherFunc(func(context.Context, *store.Query) (apis.Document, error) {
			return apis.Document{}, boom
		})))
		_, err := s.Query(ctx, &store.Query{ModelName: "post"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("update", func(t *testing.T) {
		calls := 0
		fetch := store.FetcherFunc(func(_ context.Context, q *store.Query) (apis.Document, error) {
			calls++
			doc := apis.Document{Data: []apis.Resource{
				{ID: "1", Type: q.ModelName},
				{ID: "2", Type: q.ModelName},
			}}
			if calls > 1 {
				doc.Data = append(doc.Data, apis.Resource{ID: "3", Type: q.ModelName})
			}
			return doc, nil
		})
		s := newStore(t, nil, store.WithFetcher(fetch))

		q := &store.Query{ModelName: "post", Params: map[string]any{"page": 1}}
		ra, err := s.Query(ctx, q)
		require.NoError(t, err)
		assert.Same(t, q, ra.Query())
		assert.Equal(t, 2, ra.Len())

		s.UnloadRecord("post", "1")
		assert.Equal(t, 1, ra.Len())
		assert.Equal(t, "2", ra.Models()[0].EntityID())

		require.NoError(t, ra.Update(ctx))
		assert.Equal(t, 3, ra.Len())
		assert.Equal(t, 2, calls)
	})
}
