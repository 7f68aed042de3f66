// Package cache implements the load-path resolver and content-hash
// keyed compiled-package cache of spec §6.1: an ordered search-path list
// (embedded-stdlib sentinel first, then filesystem directories) for
// resolving `include` directives, and a sqlite-backed store for
// compiled-package bytecode keyed by a hash over the package's source.
//
// Grounded on sentra's internal/packages.ImportResolver
// (searchPaths/getDefaultSearchPaths shape, local-vs-stdlib resolution
// order), generalized from "sentra_modules"-style remote fetching (out
// of domain: this language has no package registry) to the narrower
// "embedded-stdlib sentinel or a filesystem directory" resolution this
// language's spec describes.
package cache

import (
	"os"
	"path/filepath"
	"strings"
)

// EmbeddedStdlibSentinel is the load-path entry meaning "consult the
// interpreter's built-in standard library" rather than a filesystem
// directory (spec §6.1, §6.4's documented default).
const EmbeddedStdlibSentinel = "embedded-stdlib"

// LoadPathEnvVar is the dedicated environment variable consulted first
// for a load-path override (spec §6.4).
const LoadPathEnvVar = "JULIAVM_LOAD_PATH"

// FallbackLoadPathEnvVar mirrors the source language's own conventional
// variable name, consulted when LoadPathEnvVar is unset (spec §6.4
// "falling back to the source-language's conventional one").
const FallbackLoadPathEnvVar = "JULIA_LOAD_PATH"

// pathListSeparator is ':' everywhere except Windows, matching the
// source language's own path-list convention (spec §6.4).
func pathListSeparator() string {
	if filepath.Separator == '\\' {
		return ";"
	}
	return ":"
}

// LoadPath is an ordered list of entries consulted when resolving an
// `include` directive: EmbeddedStdlibSentinel or a filesystem directory.
type LoadPath []string

// DefaultLoadPath reads the environment per spec §6.4, falling back to
// []string{EmbeddedStdlibSentinel} when neither variable is set.
func DefaultLoadPath() LoadPath {
	raw := os.Getenv(LoadPathEnvVar)
	if raw == "" {
		raw = os.Getenv(FallbackLoadPathEnvVar)
	}
	if raw == "" {
		return LoadPath{EmbeddedStdlibSentinel}
	}
	parts := strings.Split(raw, pathListSeparator())
	out := make(LoadPath, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve finds the file backing an include of name (without extension
// disambiguation beyond trying the two conventional suffixes), searching
// each load-path entry in order and returning the first hit.
func (lp LoadPath) Resolve(name string) (string, bool) {
	for _, entry := range lp {
		if entry == EmbeddedStdlibSentinel {
			if path, ok := resolveEmbedded(name); ok {
				return path, true
			}
			continue
		}
		for _, candidate := range candidatePaths(entry, name) {
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				return candidate, true
			}
		}
	}
	return "", false
}

func candidatePaths(dir, name string) []string {
	return []string{
		filepath.Join(dir, name+".jl"),
		filepath.Join(dir, name),
		filepath.Join(dir, name, "index.jl"),
	}
}

// resolveEmbedded consults the interpreter's compiled-in standard
// library package set; none are embedded yet, so every lookup misses.
func resolveEmbedded(name string) (string, bool) {
	return "", false
}
