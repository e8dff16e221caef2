// Package cache implements the content-addressed TTS cache. Keys are derived
// from text plus voice identity plus speed; entries are write-once,
// read-many encoded audio files. Concurrent writers racing on the same key
// are safe: content is deterministic per key, so last-writer-wins.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrMiss indicates no cache entry exists for the key.
var ErrMiss = errors.New("cache: miss")

// Store is a filesystem-backed audio cache.
type Store struct {
	dir string
}

// Stats summarizes cache contents.
type Stats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"total_bytes"`
}

// NewStore opens (creating if needed) a cache rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: failed to create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Key derives the content address for one synthesis result.
func Key(text, voiceIdentity string, speed float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s_%g", text, voiceIdentity, speed)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached audio bytes for the key, or ErrMiss.
func (s *Store) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: read failed: %w", err)
	}
	return data, nil
}

// Put stores audio bytes under the key. The write goes through a temp file
// and rename so concurrent readers never observe a partial entry.
func (s *Store) Put(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "put-*")
	if err != nil {
		return fmt.Errorf("cache: write failed: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: write failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: write failed: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: write failed: %w", err)
	}
	return nil
}

// EvictOlderThan removes entries whose modification time is older than
// maxAge and reports how many were removed.
func (s *Store) EvictOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("cache: scan failed: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isEntry(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(s.dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Stats reports entry count and total size.
func (s *Store) Stats() (Stats, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: scan failed: %w", err)
	}

	var st Stats
	for _, e := range entries {
		if e.IsDir() || !isEntry(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		st.Entries++
		st.TotalBytes += info.Size()
	}
	return st, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".audio")
}

func isEntry(name string) bool {
	return strings.HasSuffix(name, ".audio")
}
