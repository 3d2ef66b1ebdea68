package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"spirit/internal/project"
)

// cacheSchemaVersion invalidates every entry when the payload layout
// changes. Bump on any CachePayload edit.
const cacheSchemaVersion uint16 = 1

// CachePayload is what a clean pipeline run stores per file, keyed by
// the content hash.
type CachePayload struct {
	Schema    uint16 `msgpack:"schema"`
	Canonical string `msgpack:"canonical"`
	DiagCount int    `msgpack:"diag_count"`
}

// DiskCache persists pipeline results between runs. Entries live as
// msgpack files named by the hex content hash.
type DiskCache struct {
	dir string
}

// OpenDiskCache places the cache under XDG_CACHE_HOME, falling back to
// ~/.cache, and creates the directory.
func OpenDiskCache() (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, "spirit"))
}

// NewDiskCache opens a cache rooted at dir.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "files"), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir reports the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "files", hex.EncodeToString(key[:])+".mp")
}

// Get loads the entry for key into out. A missing entry is (false, nil).
func (c *DiskCache) Get(key project.Digest, out any) (bool, error) {
	data, err := os.ReadFile(c.pathFor(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache entry: %w", err)
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	return true, nil
}

// Put stores the entry for key atomically: write a temp file next to
// the target, then rename over it.
func (c *DiskCache) Put(key project.Digest, in any) error {
	data, err := msgpack.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	target := c.pathFor(key)
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache temp: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// DropAll removes every entry. The cache stays usable afterwards.
func (c *DiskCache) DropAll() error {
	files := filepath.Join(c.dir, "files")
	doomed := files + ".doomed"
	if err := os.Rename(files, doomed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.MkdirAll(files, 0o755)
		}
		return fmt.Errorf("drop cache: %w", err)
	}
	if err := os.MkdirAll(files, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(doomed)
}
