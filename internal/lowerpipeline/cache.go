package lowerpipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"mcgen/internal/mc"
	"mcgen/internal/mirfile"
)

// Digest identifies one lowering: the input bytes and every setting that
// influences the output.
type Digest [sha256.Size]byte

// String returns the digest in hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DiskCache stores lowered modules in the binary machine-module form.
// Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache opens (creating if needed) a cache in dir. An empty dir
// selects $XDG_CACHE_HOME/mcgen, falling back to ~/.cache/mcgen.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "mcgen")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "lowered", key.String()+".mcb")
}

// Put stores m under key. The file is written to a temporary name and
// renamed into place.
func (c *DiskCache) Put(key Digest, m *mc.Module) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if err := mirfile.EncodeBinary(f, m); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the module stored under key. A missing or unreadable entry is a miss.
func (c *DiskCache) Get(key Digest) (*mc.Module, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return nil, false
	}
	m, err := mirfile.DecodeBinary(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	return m, true
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(c.dir, "lowered")); err != nil {
		return fmt.Errorf("drop cache: %w", err)
	}
	return nil
}

// cacheKey hashes the input and the resolved configuration.
func cacheKey(input []byte, target, triple, cpu, features string, smallData int, verify bool) Digest {
	h := sha256.New()
	var n [8]byte
	write := func(s string) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	write(strconv.Itoa(mirfile.SchemaVersion))
	write(string(input))
	write(target)
	write(triple)
	write(cpu)
	write(features)
	write(strconv.Itoa(smallData))
	write(strconv.FormatBool(verify))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
