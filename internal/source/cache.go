package source

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// cachedTable is the last good download of one URL, stored as a single JSON
// document so the body and its validators are always replaced together.
type cachedTable struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Body         string    `json:"body"`
}

// revalidate asks the server to answer 304 if the table is unchanged.
func (t cachedTable) revalidate(req *http.Request) {
	if t.ETag != "" {
		req.Header.Set("If-None-Match", t.ETag)
	}
	if t.LastModified != "" {
		req.Header.Set("If-Modified-Since", t.LastModified)
	}
}

// tableCache is a directory of cachedTable files keyed by URL hash.
type tableCache struct {
	dir string
}

func (c tableCache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".json")
}

// get returns the cached table for url. An unreadable, empty or foreign
// entry counts as a miss.
func (c tableCache) get(url string) (cachedTable, bool) {
	data, err := os.ReadFile(c.path(url))
	if err != nil {
		return cachedTable{}, false
	}
	var t cachedTable
	if err := json.Unmarshal(data, &t); err != nil {
		return cachedTable{}, false
	}
	if t.URL != url || t.Body == "" {
		return cachedTable{}, false
	}
	return t, true
}

// put replaces the entry for t.URL through a temp file and rename.
func (c tableCache) put(t cachedTable) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(&t)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, c.path(t.URL))
}
