// Package source opens the schedule table from a local file or a URL.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Open returns a reader for the table at location. Local paths are opened
// directly; URLs are downloaded through f. The caller must close the result.
func Open(ctx context.Context, location string, f *Fetcher) (io.ReadCloser, error) {
	if !IsRemote(location) {
		file, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		return file, nil
	}

	if f == nil {
		f = NewFetcher("")
	}
	res, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("fetch input %s: %w", redactURL(location), err)
	}
	return io.NopCloser(bytes.NewReader(res.Body)), nil
}

// redactURL keeps only the scheme and host of a URL for logging. Published
// spreadsheet links carry their access key in the path and query.
//
//	https://docs.example.com/spreadsheets/d/e/KEY/pub?output=csv
//	-> https://docs.example.com/...(redacted)
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "url://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
