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

package config

import (
	"log/slog"

	"dirpx.dev/m3/apis"
)

const (
	// DefaultCacheMode memoizes resolved attribute values.
	DefaultCacheMode = apis.Memoize
	// DefaultTieBreak prefers the first type an id was registered under.
	DefaultTieBreak = apis.FirstSeen
	// DefaultRecoverHookPanics converts schema hook panics into errors.
	DefaultRecoverHookPanics = true
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		CacheMode:         DefaultCacheMode,
		TieBreak:          DefaultTieBreak,
		RecoverHookPanics: DefaultRecoverHookPanics,
	}
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithCacheMode sets the CacheMode option.
func WithCacheMode(mode apis.CacheMode) Option {
	return func(c *apis.Config) {
		c.CacheMode = mode
	}
}

// WithTieBreak sets the TieBreak option.
func WithTieBreak(tb apis.TieBreak) Option {
	return func(c *apis.Config) {
		c.TieBreak = tb
	}
}

// WithManualFlush sets the ManualFlush option.
func WithManualFlush(manual bool) Option {
	return func(c *apis.Config) {
		c.ManualFlush = manual
	}
}

// WithRecoverHookPanics sets the RecoverHookPanics option.
func WithRecoverHookPanics(enabled bool) Option {
	return func(c *apis.Config) {
		c.RecoverHookPanics = enabled
	}
}

// WithLogger sets the Logger option.
func WithLogger(l *slog.Logger) Option {
	return func(c *apis.Config) {
		c.Logger = l
	}
}
