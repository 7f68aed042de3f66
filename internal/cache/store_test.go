package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashIsStableAndContentSensitive(t *testing.T) {
	h1, err := Hash("mymod", "1.0.0", []byte("source a"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash("mymod", "1.0.0", []byte("source a"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("Hash is not stable: %s != %s", h1, h2)
	}

	h3, err := Hash("mymod", "1.0.0", []byte("source b"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h3 {
		t.Fatalf("Hash did not change with source content")
	}

	h4, err := Hash("othermod", "1.0.0", []byte("source a"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h4 {
		t.Fatalf("Hash did not change with module name")
	}
}

func TestStoreGetMissOnEmptyStore(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, ok := store.Get("nonexistent"); ok {
		t.Fatalf("expected a miss on an empty store")
	}
}

func TestStorePutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	hash, _ := Hash("mod", "1.0.0", []byte("src"))
	want := []byte(`{"functions":[]}`)
	if err := store.Put(hash, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := store.Get(hash)
	if !ok {
		t.Fatalf("expected a hit after Put")
	}
	if string(got) != string(want) {
		t.Fatalf("Get = %q, want %q", got, want)
	}
}

func TestStorePutOverwritesPriorEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	hash, _ := Hash("mod", "1.0.0", []byte("src"))
	store.Put(hash, []byte("first"))
	store.Put(hash, []byte("second"))

	got, ok := store.Get(hash)
	if !ok || string(got) != "second" {
		t.Fatalf("Get after overwrite = %q, %v, want \"second\", true", got, ok)
	}
}

func TestNilBackedStoreIsAlwaysMiss(t *testing.T) {
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\"): %v", err)
	}
	if err := store.Put("anything", []byte("data")); err != nil {
		t.Fatalf("Put on a nil-backed store should be a silent no-op, got error: %v", err)
	}
	if _, ok := store.Get("anything"); ok {
		t.Fatalf("expected a nil-backed store to always miss")
	}
}

func TestDefaultLoadPathFallsBackToEmbeddedStdlib(t *testing.T) {
	t.Setenv(LoadPathEnvVar, "")
	t.Setenv(FallbackLoadPathEnvVar, "")

	lp := DefaultLoadPath()
	if len(lp) != 1 || lp[0] != EmbeddedStdlibSentinel {
		t.Fatalf("DefaultLoadPath() = %v, want [%s]", lp, EmbeddedStdlibSentinel)
	}
}

func TestDefaultLoadPathReadsPrimaryEnvVar(t *testing.T) {
	sep := ":"
	t.Setenv(LoadPathEnvVar, "/a"+sep+"/b")
	t.Setenv(FallbackLoadPathEnvVar, "")

	lp := DefaultLoadPath()
	if len(lp) != 2 || lp[0] != "/a" || lp[1] != "/b" {
		t.Fatalf("DefaultLoadPath() = %v, want [/a /b]", lp)
	}
}

func TestLoadPathResolveFindsFirstMatchingDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "helpers.jl")
	if err := os.WriteFile(target, []byte("# stub"), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	lp := LoadPath{EmbeddedStdlibSentinel, dir}
	got, ok := lp.Resolve("helpers")
	if !ok {
		t.Fatalf("expected Resolve to find helpers.jl in %s", dir)
	}
	if got != target {
		t.Fatalf("Resolve(\"helpers\") = %s, want %s", got, target)
	}
}

func TestLoadPathResolveMissReturnsFalse(t *testing.T) {
	lp := LoadPath{EmbeddedStdlibSentinel}
	if _, ok := lp.Resolve("nonexistent-module"); ok {
		t.Fatalf("expected a miss for an unresolvable module")
	}
}
