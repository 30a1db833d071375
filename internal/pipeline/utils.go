// =============================================================================
// utils.go - Helpers
// =============================================================================
//
//   - String helpers: rune-aware length/truncation, sorting, dedupe
//   - Article dedupe by title
//   - Atomic JSON/text file writes
//   - Shared HTTP client and context-bound GET
//
// =============================================================================
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"
)

// -----------------------------------------------------------------------------
// Strings
// -----------------------------------------------------------------------------

// sortStrings returns a sorted copy of in.
func sortStrings(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

// uniqStrings drops empty strings and duplicates, keeping first occurrences.
func uniqStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// runeLen counts code points. All content thresholds are expressed in runes.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncateRunes keeps at most n runes of s.
func truncateRunes(s string, n int) string {
	if n < 0 {
		return s
	}
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// firstNonEmpty returns the first argument that is not "".
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Deduplication
// -----------------------------------------------------------------------------

// Dedupe keeps the first article for each distinct title and preserves order.
// Titles are compared byte for byte; case or whitespace variants are kept
// as separate articles.
func Dedupe(articles []Article) []Article {
	seen := make(map[string]bool, len(articles))
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if seen[a.Title] {
			continue
		}
		seen[a.Title] = true
		out = append(out, a)
	}
	return out
}

// -----------------------------------------------------------------------------
// Files
// -----------------------------------------------------------------------------

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// writeJSONFile writes v as indented JSON, atomically.
func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(b, '\n'))
}

// readJSONFile decodes the JSON file at path into out.
func readJSONFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// -----------------------------------------------------------------------------
// HTTP
// -----------------------------------------------------------------------------

// NewHTTPClient builds the client shared by every task of one run. Per-call
// deadlines come from contexts; the client timeout is the outer bound.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	outer := cfg.PaperTimeout
	if cfg.RequestTimeout > outer {
		outer = cfg.RequestTimeout
	}
	return &http.Client{
		Timeout: outer,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// httpGet issues a GET bound to ctx with the given User-Agent. The caller
// closes the body. Non-2xx responses are returned as errors with the body
// already closed.
func httpGet(ctx context.Context, client *http.Client, url, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %s", url, resp.Status)
	}
	return resp, nil
}

// httpGetJSON GETs url and decodes the JSON body into v.
func httpGetJSON(ctx context.Context, client *http.Client, url, userAgent string, v any) error {
	resp, err := httpGet(ctx, client, url, userAgent)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
