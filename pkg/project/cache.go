package project

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
	"lukechampine.com/blake3"

	"github.com/vberset/resume/pkg/persist"
	"github.com/vberset/resume/pkg/snapshot"
)

const (
	cacheDirName = "resume"
	envXDGCache  = "XDG_CACHE_HOME"

	// cacheKeyLen is the number of hex digits of the origin digest kept in
	// a cache directory name.
	cacheKeyLen = 16
)

// ErrCacheRoot is returned when no cache folder can be determined.
var ErrCacheRoot = errors.New("cannot determine cache folder")

// DefaultCacheRoot returns the per-user cache folder for clones:
// $XDG_CACHE_HOME/resume, ~/.cache/resume, or ~/Library/Caches/resume on macOS.
func DefaultCacheRoot() (string, error) {
	if xdg := os.Getenv(envXDGCache); xdg != "" {
		return filepath.Join(xdg, cacheDirName), nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCacheRoot, err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Caches", cacheDirName), nil
	}

	return filepath.Join(home, ".cache", cacheDirName), nil
}

// Cache maps origins to bare clones below a root folder.
type Cache struct {
	root string
}

// NewCache returns a cache rooted at root, or at DefaultCacheRoot when root
// is empty.
func NewCache(root string) (*Cache, error) {
	if root == "" {
		var err error

		root, err = DefaultCacheRoot()
		if err != nil {
			return nil, err
		}
	}

	return &Cache{root: root}, nil
}

// Root returns the cache folder.
func (c *Cache) Root() string {
	return c.root
}

// PathFor returns the clone folder of origin. Distinct origins never share
// a folder; the readable suffix only helps humans browsing the cache.
func (c *Cache) PathFor(origin snapshot.RepositoryOrigin) string {
	digest := blake3.Sum256([]byte(origin))
	key := hex.EncodeToString(digest[:])[:cacheKeyLen]

	return filepath.Join(c.root, key+"-"+readableName(string(origin)))
}

func (c *Cache) ensureRoot() error {
	err := os.MkdirAll(c.root, 0o750)
	if err != nil {
		return fmt.Errorf("%w: create cache folder %s: %w", persist.ErrIO, c.root, err)
	}

	return nil
}

// readableName keeps the last path element of origin without its .git
// suffix, restricted to a filesystem friendly alphabet.
func readableName(origin string) string {
	name := strings.TrimRight(origin, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}

	name = strings.TrimSuffix(name, ".git")

	var b strings.Builder

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	if b.Len() == 0 {
		return "repository"
	}

	return b.String()
}
