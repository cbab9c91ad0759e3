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
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"dirpx.dev/m3/apis"
)

// File is the YAML shape accepted by Load. Zero fields keep their defaults.
//
//	cache_mode: memoize        # memoize | none
//	tie_break: first_seen      # first_seen | lexical
//	manual_flush: false
//	recover_hook_panics: true
//	log:
//	  level: debug             # debug | info | warn | error
//	  format: json             # json | text
type File struct {
	CacheMode         *apis.CacheMode `yaml:"cache_mode"`
	TieBreak          *apis.TieBreak  `yaml:"tie_break"`
	ManualFlush       *bool           `yaml:"manual_flush"`
	RecoverHookPanics *bool           `yaml:"recover_hook_panics"`
	Log               struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads a YAML configuration from r. When the file configures logging,
// the logger writes to logOut (os.Stderr if nil). Extra options are applied
// after the file, so they win.
func Load(r io.Reader, logOut io.Writer, opts ...Option) (apis.Config, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return apis.Config{}, fmt.Errorf("m3(config): decode yaml: %w", err)
	}
	return NewConfig(append(f.Options(logOut), opts...)...), nil
}

// Options converts the file into functional options.
func (f File) Options(logOut io.Writer) []Option {
	var out []Option
	if f.CacheMode != nil {
		out = append(out, WithCacheMode(*f.CacheMode))
	}
	if f.TieBreak != nil {
		out = append(out, WithTieBreak(*f.TieBreak))
	}
	if f.ManualFlush != nil {
		out = append(out, WithManualFlush(*f.ManualFlush))
	}
	if f.RecoverHookPanics != nil {
		out = append(out, WithRecoverHookPanics(*f.RecoverHookPanics))
	}
	if f.Log.Level != "" || f.Log.Format != "" {
		if logOut == nil {
			logOut = os.Stderr
		}
		out = append(out, WithLogger(NewLogger(f.Log.Level, f.Log.Format, logOut)))
	}
	return out
}
