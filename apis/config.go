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

import "log/slog"

// Config carries read-only knobs that influence resolution, caching and
// identity bookkeeping. It is passed by value and should be treated as
// immutable by implementations.
type Config struct {
	// CacheMode selects whether resolved attribute values are memoized.
	CacheMode CacheMode

	// TieBreak decides which type wins when a type-less reference names an
	// id that is registered under more than one type.
	TieBreak TieBreak

	// ManualFlush leaves flushing of staged change notifications to the
	// caller. When false, every top-level push flushes on return.
	ManualFlush bool

	// RecoverHookPanics converts panics raised inside schema hooks into
	// HookError values instead of letting them unwind the caller.
	RecoverHookPanics bool

	// Logger receives diagnostics. A nil Logger discards everything.
	Logger *slog.Logger
}
