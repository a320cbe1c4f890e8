package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired
var ErrMiss = errors.New("cache miss")

const entrySuffix = ".json"

// Cache defines the interface for local file caching operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Cleanup(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// Entry represents a cache entry with metadata
type Entry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// FileCache stores one JSON entry file per key under a directory
type FileCache struct {
	directory  string
	defaultTTL time.Duration
	now        func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewFileCache creates a new file-based cache
func NewFileCache(directory string, defaultTTL time.Duration) (*FileCache, error) {
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		directory = filepath.Join(home, directory[2:])
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{
		directory:  directory,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Get retrieves data from cache
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(key)

	entry, err := readEntry(path)
	if err != nil {
		c.stats.Misses++

		if os.IsNotExist(err) {
			return nil, ErrMiss
		}

		return nil, err
	}

	if entry.Key != key {
		c.stats.Misses++
		return nil, ErrMiss
	}

	if !entry.ExpiresAt.IsZero() && c.now().After(entry.ExpiresAt) {
		c.stats.Misses++
		_ = os.Remove(path)

		return nil, ErrMiss
	}

	c.stats.Hits++

	return entry.Data, nil
}

// Set stores data in cache with TTL; zero uses the default TTL and a negative TTL never expires
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	entry := Entry{
		Key:       key,
		Data:      data,
		CreatedAt: now,
	}

	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	// write then rename so readers never see a partial entry
	path := c.entryPath(key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry from cache
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Clear removes all entries from cache
func (c *FileCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.entryNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		_ = os.Remove(filepath.Join(c.directory, name))
	}

	c.stats = Stats{}

	return nil
}

// Cleanup removes expired entries and reports how many were removed
func (c *FileCache) Cleanup(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.entryNames()
	if err != nil {
		return 0, err
	}

	now := c.now()
	removed := 0

	for _, name := range names {
		path := filepath.Join(c.directory, name)

		entry, err := readEntry(path)
		if err != nil {
			continue
		}

		if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// GetStats returns cache statistics
func (c *FileCache) GetStats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.entryNames()
	if err != nil {
		return nil, err
	}

	stats := c.stats
	stats.TotalEntries = int64(len(names))

	for _, name := range names {
		if info, err := os.Stat(filepath.Join(c.directory, name)); err == nil {
			stats.TotalSize += info.Size()
		}
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	return &stats, nil
}

// Directory returns the cache root
func (c *FileCache) Directory() string {
	return c.directory
}

func (c *FileCache) entryNames() ([]string, error) {
	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var names []string

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), entrySuffix) {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

func (c *FileCache) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.directory, hex.EncodeToString(sum[:])[:32]+entrySuffix)
}

func readEntry(path string) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache entry: %w", err)
	}

	return &entry, nil
}
