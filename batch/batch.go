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

// Package batch implements the two-phase change commit: mutations are staged
// without notifying anyone, then flushed in one pass.
//
// Flush order:
//
//  1. every staged (target, attr) is invalidated, so observers see fresh
//     values for everything touched by the batch;
//  2. staged array edits fire in the order recorded, never collapsed;
//  3. property notifications fire in the order first recorded, duplicate
//     (target, attr) pairs collapsed to one.
//
// Batches nest. Leaving the outermost batch flushes unless the batcher was
// built for manual flushing, in which case the host calls Flush.
package batch

import (
	"log/slog"

	"dirpx.dev/m3/apis"
	"dirpx.dev/m3/config"
)

// New constructs a Batcher for cfg.
func New(cfg apis.Config) *Batcher {
	return &Batcher{
		manual: cfg.ManualFlush,
		log:    config.Logger(cfg),
		seen:   make(map[prop]struct{}),
	}
}

// Batcher stages property and array changes. It is not safe for concurrent
// use; all staging happens on the goroutine that owns the store.
type Batcher struct {
	manual bool
	log    *slog.Logger

	depth    int
	flushing bool

	props []prop
	seen  map[prop]struct{}
	edits []edit
}

type prop struct {
	target apis.PropertyTarget
	attr   string
}

type edit struct {
	target apis.ArrayTarget
	change apis.ArrayChange
}

// Begin opens a (possibly nested) batch.
func (b *Batcher) Begin() {
	b.depth++
}

// End closes the innermost batch. Closing the outermost batch flushes
// unless flushing is manual. Unbalanced calls are ignored.
func (b *Batcher) End() {
	if b.depth == 0 {
		return
	}
	b.depth--
	if b.depth == 0 && !b.manual {
		b.Flush()
	}
}

// Run executes fn inside a batch.
func (b *Batcher) Run(fn func() error) error {
	b.Begin()
	defer b.End()
	return fn()
}

// Depth returns the number of open batches.
func (b *Batcher) Depth() int { return b.depth }

// Pending returns the number of staged entries.
func (b *Batcher) Pending() int { return len(b.props) + len(b.edits) }

// Stage records that attrs of target changed. Outside a batch the change
// flushes at once, unless flushing is manual.
func (b *Batcher) Stage(target apis.PropertyTarget, attrs ...string) {
	for _, a := range attrs {
		p := prop{target: target, attr: a}
		if _, dup := b.seen[p]; dup {
			continue
		}
		b.seen[p] = struct{}{}
		b.props = append(b.props, p)
	}
	b.maybeFlush()
}

// StageEdit records a collection edit.
func (b *Batcher) StageEdit(target apis.ArrayTarget, change apis.ArrayChange) {
	b.edits = append(b.edits, edit{target: target, change: change})
	b.maybeFlush()
}

func (b *Batcher) maybeFlush() {
	if b.depth == 0 && !b.manual {
		b.Flush()
	}
}

// Flush delivers everything staged so far. Entries staged by observers
// while flushing are delivered by the same call, after the current round.
func (b *Batcher) Flush() {
	if b.flushing {
		return
	}
	b.flushing = true
	defer func() { b.flushing = false }()

	for round := 0; len(b.props) > 0 || len(b.edits) > 0; round++ {
		props, edits := b.props, b.edits
		b.props, b.edits = nil, nil
		b.seen = make(map[prop]struct{})

		b.log.Debug("flushing changes",
			slog.Int("round", round),
			slog.Int("properties", len(props)),
			slog.Int("array_edits", len(edits)))

		for _, group := range groupByTarget(props) {
			group.target.InvalidateAttributes(group.attrs...)
		}
		for _, e := range edits {
			e.target.NotifyArrayChange(e.change)
		}
		for _, p := range props {
			p.target.NotifyPropertyChange(p.attr)
		}
	}
}

// Discard drops everything staged without notifying.
func (b *Batcher) Discard() {
	b.props, b.edits = nil, nil
	b.seen = make(map[prop]struct{})
}

type targetAttrs struct {
	target apis.PropertyTarget
	attrs  []string
}

func groupByTarget(props []prop) []targetAttrs {
	idx := make(map[apis.PropertyTarget]int)
	var out []targetAttrs
	for _, p := range props {
		i, ok := idx[p.target]
		if !ok {
			i = len(out)
			idx[p.target] = i
			out = append(out, targetAttrs{target: p.target})
		}
		out[i].attrs = append(out[i].attrs, p.attr)
	}
	return out
}
