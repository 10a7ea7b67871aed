// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package options holds the runtime-tunable knobs of the leak detector.
//
// Options come from two layers, weakest first:
//
//  1. LEAKDETECTOR_OPTIONS — a comma-separated key=value string in the
//     sanitizer-flags style ("exitcode=23,verbosity=1").
//  2. LEAKDETECTOR_CONFIG — path to a TOML file whose set fields
//     override the env string.
//
// Both layers are optional; Load never fails the process, it reports
// the error and the caller decides (the facade treats a malformed
// option string as fatal setup failure).
package options

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Env variable names read by Load.
const (
	EnvOptions = "LEAKDETECTOR_OPTIONS"
	EnvConfig  = "LEAKDETECTOR_CONFIG"
)

// Options is the resolved configuration.
type Options struct {
	// ExitCode is substituted for a successful exit status when
	// unreported leaks remain at process termination.
	ExitCode int `toml:"exitcode"`

	// MaxStackDepth bounds the return-address chain captured per
	// allocation.
	MaxStackDepth int `toml:"max_stack_depth"`

	// BootstrapArenaSize is the byte size of the fixed arena backing
	// pre-initialization allocations.
	BootstrapArenaSize int `toml:"bootstrap_arena_size"`

	// Verbosity raises the diagnostic log level. 0 keeps the runtime
	// silent except for fatal one-liners.
	Verbosity int `toml:"verbosity"`

	// LogThreads enables per-event logging in the thread coordinator.
	LogThreads bool `toml:"log_threads"`
}

// Default returns the options used when nothing is configured.
// The exit code matches the original sanitizer default.
func Default() Options {
	return Options{
		ExitCode:           23,
		MaxStackDepth:      16,
		BootstrapArenaSize: 256 << 10,
		Verbosity:          0,
		LogThreads:         false,
	}
}

// Parse applies a sanitizer-style option string on top of base.
//
// Unknown keys are errors: a typo that silently disabled leak checking
// would be worse than a refused startup.
func Parse(base Options, s string) (Options, error) {
	o := base
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return base, fmt.Errorf("option %q: missing '='", field)
		}
		if err := o.set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return base, err
		}
	}
	return o, nil
}

func (o *Options) set(key, value string) error {
	switch key {
	case "exitcode":
		return setInt(&o.ExitCode, key, value)
	case "max_stack_depth":
		return setInt(&o.MaxStackDepth, key, value)
	case "bootstrap_arena_size":
		return setInt(&o.BootstrapArenaSize, key, value)
	case "verbosity":
		return setInt(&o.Verbosity, key, value)
	case "log_threads":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("option %s: %w", key, err)
		}
		o.LogThreads = b
		return nil
	default:
		return fmt.Errorf("unknown option %q", key)
	}
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("option %s: %w", key, err)
	}
	if n < 0 {
		return fmt.Errorf("option %s: negative value %d", key, n)
	}
	*dst = n
	return nil
}

// LoadFile overlays the TOML file at path on top of base. Only fields
// present in the file are touched.
func LoadFile(base Options, path string) (Options, error) {
	o := base
	if _, err := toml.DecodeFile(path, &o); err != nil {
		return base, fmt.Errorf("config file %s: %w", path, err)
	}
	return o, nil
}

// Load resolves the effective options from the environment.
func Load() (Options, error) {
	o := Default()
	if s := os.Getenv(EnvOptions); s != "" {
		var err error
		if o, err = Parse(o, s); err != nil {
			return Default(), err
		}
	}
	if path := os.Getenv(EnvConfig); path != "" {
		var err error
		if o, err = LoadFile(o, path); err != nil {
			return Default(), err
		}
	}
	return o, nil
}
