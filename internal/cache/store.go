package cache

import (
	"database/sql"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	_ "modernc.org/sqlite"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
)

// SchemaVersion is bumped whenever the stored ir_json shape changes
// incompatibly; Get rejects rows written under an older version.
const SchemaVersion = 1

// CacheDirEnvVar is the dedicated environment variable naming the cache
// directory (spec §6.4); falls back to os.TempDir, and is suppressed
// (Open returns a nil-backed, always-miss Store) on platforms
// without a stable temp directory.
const CacheDirEnvVar = "JULIAVM_CACHE_DIR"

// Store is the content-hash keyed compiled-package cache of spec §6.1,
// backed by modernc.org/sqlite (the only one of the teacher's four SQL
// drivers that is cgo-free and pure Go; see DESIGN.md for why
// go-sql-driver/mysql, lib/pq, and denisenkom/go-mssqldb are dropped).
type Store struct {
	db *sql.DB
}

// DefaultCacheDir resolves the cache directory per spec §6.4.
func DefaultCacheDir() (string, bool) {
	if dir := os.Getenv(CacheDirEnvVar); dir != "" {
		return dir, true
	}
	tmp := os.TempDir()
	if tmp == "" {
		return "", false
	}
	return filepath.Join(tmp, "juliavm-cache"), true
}

// Open creates (if needed) the cache directory and its sqlite-backed
// packages table. A Store with a nil db is a permanent cache miss,
// matching spec §6.4's "suppressed on platforms without a stable
// tempdir".
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(errors.UnsupportedFeature, "cannot create cache directory %s: %v", dir, err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "packages.db"))
	if err != nil {
		return nil, errors.New(errors.UnsupportedFeature, "cannot open package cache: %v", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS packages (
		hash TEXT PRIMARY KEY,
		ir_json BLOB,
		schema_version INT
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.New(errors.UnsupportedFeature, "cannot initialize package cache schema: %v", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Hash computes the content-hash key for a package: a blake2b-256 digest
// over its project metadata (module name plus version string, stable
// regardless of source formatting) followed by the raw source bytes
// (spec §6.1 "content hash over the package's project metadata plus
// source").
func Hash(moduleName, version string, source []byte) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", errors.NewInternal("blake2b initialization failed: %v", err)
	}
	h.Write([]byte(moduleName))
	h.Write([]byte{0})
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write(source)
	return fmt256(h.Sum(nil)), nil
}

func fmt256(sum []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0xf]
	}
	return string(out)
}

// Get returns the cached ir_json blob for hash, or ok=false on a miss
// (including when the Store is the nil-backed always-miss variant, or
// the stored row's schema_version no longer matches SchemaVersion).
func (s *Store) Get(hash string) (irJSON []byte, ok bool) {
	if s.db == nil {
		return nil, false
	}
	var schemaVersion int
	row := s.db.QueryRow(`SELECT ir_json, schema_version FROM packages WHERE hash = ?`, hash)
	if err := row.Scan(&irJSON, &schemaVersion); err != nil {
		return nil, false
	}
	if schemaVersion != SchemaVersion {
		return nil, false
	}
	return irJSON, true
}

// Put stores irJSON under hash, overwriting any prior entry.
func (s *Store) Put(hash string, irJSON []byte) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO packages (hash, ir_json, schema_version) VALUES (?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET ir_json = excluded.ir_json, schema_version = excluded.schema_version`,
		hash, irJSON, SchemaVersion,
	)
	if err != nil {
		return errors.New(errors.UnsupportedFeature, "cannot write package cache entry: %v", err)
	}
	return nil
}
