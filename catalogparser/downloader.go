package catalogparser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/interfaces"
	"github.com/giygas/medsafe-api/logging"
)

const downloadTimeout = 5 * time.Minute

// maxCatalogSize caps a downloaded catalog file
const maxCatalogSize = 32 * 1024 * 1024

// Compile-time check to ensure CatalogParser implements CatalogParser interface
var _ interfaces.CatalogParser = (*CatalogParser)(nil)

// CatalogParser loads the catalog from a local file, refreshing it from url
// first when one is configured.
type CatalogParser struct {
	path   string
	url    string
	client *http.Client
}

// NewCatalogParser creates a parser for the file at path. url may be empty.
func NewCatalogParser(path, url string) *CatalogParser {
	return &CatalogParser{
		path:   filepath.Clean(path),
		url:    url,
		client: &http.Client{Timeout: downloadTimeout},
	}
}

// ParseCatalog implements interfaces.CatalogParser. A failed download falls
// back to the file already on disk.
func (p *CatalogParser) ParseCatalog() ([]entities.Drug, error) {
	if p.url != "" {
		if err := p.download(context.Background()); err != nil {
			if _, statErr := os.Stat(p.path); statErr != nil {
				return nil, fmt.Errorf("catalog download failed and no local copy exists: %w", err)
			}
			logging.Warn("Catalog download failed, using local copy", "url", p.url, "error", err)
		}
	}
	return ParseCatalog(p.path)
}

// SourceModTime implements interfaces.CatalogParser. For a remote source it
// asks the server for Last-Modified; a server that does not send it yields
// an error so callers reload unconditionally.
func (p *CatalogParser) SourceModTime() (time.Time, error) {
	if p.url == "" {
		info, err := os.Stat(p.path)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to stat catalog %s: %w", p.path, err)
		}
		return info.ModTime(), nil
	}

	req, err := http.NewRequest(http.MethodHead, p.url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid catalog url: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query catalog source: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("catalog source returned %s", resp.Status)
	}
	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return time.Time{}, fmt.Errorf("catalog source sent no Last-Modified header")
	}
	t, err := http.ParseTime(lm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid Last-Modified %q: %w", lm, err)
	}
	return t, nil
}

func (p *CatalogParser) download(ctx context.Context) error {
	return DownloadCatalog(ctx, p.client, p.url, p.path)
}

// DownloadCatalog fetches url and replaces the file at path. The body is
// written to a temporary file in the same directory and renamed, so readers
// never see a partial catalog.
func DownloadCatalog(ctx context.Context, client *http.Client, url, path string) error {
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}

	dir := filepath.Dir(filepath.Clean(path))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid catalog url: %w", err)
	}

	response, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: %s", url, response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxCatalogSize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxCatalogSize {
		return fmt.Errorf("catalog from %s exceeds %d bytes", url, maxCatalogSize)
	}

	content, err := toUTF8(body)
	if err != nil {
		return fmt.Errorf("failed to decode catalog: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace catalog %s: %w", path, err)
	}

	logging.Debug("Catalog downloaded", "url", url, "path", path, "bytes", len(content))
	return nil
}
