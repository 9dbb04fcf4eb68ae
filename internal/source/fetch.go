package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	appLog "sheetcal/internal/log"
)

// FetchResult contains the outcome of fetching a remote schedule table.
type FetchResult struct {
	URL       string
	Body      []byte
	FromCache bool
	// FetchedAt is when Body was last downloaded from the server.
	FetchedAt time.Time
}

// Fetcher downloads schedule tables over HTTP. The last good copy of each
// URL is kept on disk; it is revalidated with ETag/Last-Modified and served
// when the sheet cannot be reached.
type Fetcher struct {
	client *http.Client
	cache  tableCache
}

// NewFetcher creates a Fetcher caching under cacheDir
// (e.g. "$HOME/.cache/sheetcal"). Empty means "./.sheetcal-cache".
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./.sheetcal-cache"
	}
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  tableCache{dir: cacheDir},
	}
}

// Fetch downloads url. A 304 answer, a network error or a non-OK status
// all yield the cached copy when one exists.
func (f *Fetcher) Fetch(ctx context.Context, url string) (FetchResult, error) {
	if url == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	cached, haveCache := f.cache.get(url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if haveCache {
		cached.revalidate(req)
	}

	appLog.Info("table fetch start", "url", redactURL(url), "cached", haveCache)

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(cached, haveCache, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fallback(cached, haveCache, err)
		}
		fresh := cachedTable{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    time.Now().UTC(),
			Body:         string(body),
		}
		if len(body) > 0 {
			if err := f.cache.put(fresh); err != nil {
				appLog.Error("table cache save failed", err, "url", redactURL(url))
			}
		}
		appLog.Info("table fetch success", "url", redactURL(url), "bytes", len(body))
		return FetchResult{URL: url, Body: body, FetchedAt: fresh.FetchedAt}, nil

	case http.StatusNotModified:
		if !haveCache {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached table available")
		}
		appLog.Info("table not modified; using cache", "url", redactURL(url))
		return cached.result(), nil

	default:
		return fallback(cached, haveCache, errors.New(resp.Status))
	}
}

// fallback serves the cached table in place of a failed download.
func fallback(cached cachedTable, ok bool, cause error) (FetchResult, error) {
	if !ok {
		return FetchResult{}, cause
	}
	appLog.Error("table fetch failed, using cached copy", cause,
		"url", redactURL(cached.URL),
		"age", time.Since(cached.FetchedAt).Round(time.Second).String(),
	)
	return cached.result(), nil
}

func (t cachedTable) result() FetchResult {
	return FetchResult{URL: t.URL, Body: []byte(t.Body), FromCache: true, FetchedAt: t.FetchedAt}
}
