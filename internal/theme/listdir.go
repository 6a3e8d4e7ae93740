package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cuemby/lumen/internal/log"
	"github.com/cuemby/lumen/internal/render"
)

// dirCache memoizes list_dir results per directory, keyed by a
// fingerprint over each .md file's (mtime, length) (§4.8). It is a
// plain mutex-guarded map rather than internal/cache.Sharded: list_dir
// is keyed by directory path, not canonical document path, and the
// number of distinct directories in a site is small and unbounded
// growth here is not a realistic concern, so the extra sharding and
// eviction machinery bought nothing — see DESIGN.md.
type dirCache struct {
	mu      sync.Mutex
	entries map[string]dirCacheEntry
}

type dirCacheEntry struct {
	fingerprint uint64
	listing     []map[string]any
}

func newDirCache() *dirCache {
	return &dirCache{entries: make(map[string]dirCacheEntry)}
}

// listDir is the list_dir(path) template function (§4.8). It resolves
// dirPath under the manager's base directory, lists every *.md file
// directly inside it, and returns their front matter augmented with a
// computed `url`, sorted by `date` descending (lexicographic string
// compare, which collates correctly for ISO 8601 dates).
func (m *Manager) listDir(dirPath string) []map[string]any {
	target := filepath.Join(m.baseDir, filepath.FromSlash(dirPath))

	files, err := os.ReadDir(target)
	if err != nil {
		return nil
	}

	fp := fingerprintFiles(target, files)

	m.dirCache.mu.Lock()
	if cached, ok := m.dirCache.entries[target]; ok && cached.fingerprint == fp {
		m.dirCache.mu.Unlock()
		return cached.listing
	}
	m.dirCache.mu.Unlock()

	listing := buildListing(target, dirPath, files)

	m.dirCache.mu.Lock()
	m.dirCache.entries[target] = dirCacheEntry{fingerprint: fp, listing: listing}
	m.dirCache.mu.Unlock()

	return listing
}

// fingerprintFiles computes a rotate-XOR-multiply hash over every .md
// file's (mtime, length) in files, cheap enough to recompute on every
// list_dir call.
func fingerprintFiles(dir string, files []os.DirEntry) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis, reused as a seed
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		mtime := uint64(info.ModTime().UnixNano())
		size := uint64(info.Size())
		h = (h<<5 | h>>59) ^ mtime
		h = (h<<5 | h>>59) ^ size
		h *= 1099511628211 // FNV prime
	}
	return h
}

func buildListing(target, dirPath string, files []os.DirEntry) []map[string]any {
	listing := make([]map[string]any, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") {
			continue
		}
		full := filepath.Join(target, f.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			log.Logger.Warn().Err(err).Str("file", full).Msg("list_dir failed to read entry")
			continue
		}
		doc := render.ParseFrontMatter(string(raw))

		stem := strings.TrimSuffix(f.Name(), ".md")
		var url string
		if stem == "index" {
			url = fmt.Sprintf("/%s/", strings.Trim(dirPath, "/"))
		} else {
			url = fmt.Sprintf("/%s/%s", strings.Trim(dirPath, "/"), stem)
		}
		doc.Context["url"] = url
		listing = append(listing, doc.Context)
	}

	sort.Slice(listing, func(i, j int) bool {
		di, _ := listing[i]["date"].(string)
		dj, _ := listing[j]["date"].(string)
		return di > dj
	})
	return listing
}
