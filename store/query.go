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

package store

import (
	"context"
	"fmt"
	"slices"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/model"
)

// Query describes what a Fetcher should load.
type Query struct {
	ModelName string
	Params    map[string]any
}

// Fetcher loads documents for queries. It is the boundary to the network
// layer; the store never performs I/O itself.
type Fetcher interface {
	Fetch(ctx context.Context, q *Query) (apis.Document, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q *Query) (apis.Document, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, q *Query) (apis.Document, error) {
	return f(ctx, q)
}

// Query fetches q, pushes the result and returns the primary models as a
// RecordArray. A nil q fails with apis.ErrMissingQuery before anything is
// fetched.
func (s *Store) Query(ctx context.Context, q *Query) (*RecordArray, error) {
	if q == nil {
		return nil, apis.ErrMissingQuery
	}
	ra := &RecordArray{store: s, query: q}
	if err := ra.Update(ctx); err != nil {
		return nil, err
	}
	return ra, nil
}

// RecordArray is the result of a Query.
type RecordArray struct {
	store  *Store
	query  *Query
	models []*model.Model
}

// Query returns the query the array was loaded from.
func (ra *RecordArray) Query() *Query { return ra.query }

// Models returns the members that are still loaded.
func (ra *RecordArray) Models() []*model.Model {
	return slices.DeleteFunc(slices.Clone(ra.models), (*model.Model).IsUnloaded)
}

// Len returns the number of loaded members.
func (ra *RecordArray) Len() int { return len(ra.Models()) }

// Update refetches the query and replaces the members. It fails with
// apis.ErrMissingQuery, synchronously, when the array has no query.
func (ra *RecordArray) Update(ctx context.Context) error {
	if ra.query == nil {
		return apis.ErrMissingQuery
	}
	if ra.store.fetcher == nil {
		return ErrNoFetcher
	}
	doc, err := ra.store.fetcher.Fetch(ctx, ra.query)
	if err != nil {
		return fmt.Errorf("m3(store): fetch %s: %w", ra.query.ModelName, err)
	}
	ms, err := ra.store.Push(doc)
	if err != nil {
		return err
	}
	ra.models = ms
	return nil
}
