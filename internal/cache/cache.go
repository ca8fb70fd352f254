// Package cache is a file-based cache for provider metadata.
//
// Name-to-key resolution lists every data extension in the tenant over
// SOAP, which is slow for interactive use. Cache files are JSON, scoped
// per resource type, tenant subdomain, and business unit. Default TTL is
// 5 minutes. Disable with QUERYFORGE_NO_CACHE=1.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Items    json.RawMessage `json:"items"`
}

// Store reads and writes one cache key (resource + tenant + business unit).
type Store struct {
	path string
	ttl  time.Duration
}

// NewStore creates a Store with the default TTL. dir is the cache
// directory (typically DefaultDir), key the resource type (e.g.
// "dataextensions"), and subdomain/businessUnit scope the tenant.
// businessUnit may be empty for the default business unit.
func NewStore(dir, key, subdomain, businessUnit string) *Store {
	return NewStoreWithTTL(dir, key, subdomain, businessUnit, DefaultTTL)
}

// NewStoreWithTTL creates a Store with a custom TTL.
func NewStoreWithTTL(dir, key, subdomain, businessUnit string, ttl time.Duration) *Store {
	key = sanitizeKey(key)
	hash := sha1.Sum([]byte(subdomain + "\x00" + businessUnit))
	scope := hex.EncodeToString(hash[:6])
	return &Store{
		path: filepath.Join(dir, fmt.Sprintf("%s_%s.json", key, scope)),
		ttl:  ttl,
	}
}

// Get loads cached items into dst. Returns false on miss: no file,
// expired entry, unreadable content, or caching disabled.
func (s *Store) Get(dst any) bool {
	if disabled() {
		return false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if time.Since(e.CachedAt) > s.ttl {
		return false
	}
	return json.Unmarshal(e.Items, dst) == nil
}

// Put writes items to the cache. Silently no-ops on error or when
// disabled; a failed cache write never fails the command.
func (s *Store) Put(items any) {
	if disabled() {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	data, err := json.Marshal(entry{CachedAt: time.Now(), Items: raw})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}

	// Write temp then rename so readers never see a partial file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return
	}
	_ = os.Rename(tmp, s.path)
}

// Clear removes this cache file.
func (s *Store) Clear() {
	_ = os.Remove(s.path)
}

// ClearAll removes all cache files from the directory. Only files
// matching this package's filename scheme are touched.
func ClearAll(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isCacheFilename(e.Name()) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
}

// DefaultDir returns the platform cache directory for queryforge,
// e.g. "$XDG_CACHE_HOME/queryforge".
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "queryforge"), nil
}

func disabled() bool {
	return os.Getenv("QUERYFORGE_NO_CACHE") != ""
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "cache"
	}
	key = strings.ReplaceAll(key, "/", "-")
	key = strings.ReplaceAll(key, "\\", "-")
	return key
}

// isCacheFilename matches "<key>_<12hex>.json".
func isCacheFilename(name string) bool {
	if filepath.Ext(name) != ".json" {
		return false
	}
	base := strings.TrimSuffix(name, ".json")
	i := strings.LastIndex(base, "_")
	if i <= 0 {
		return false
	}
	scope := base[i+1:]
	return len(scope) == 12 && isHex(scope)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
