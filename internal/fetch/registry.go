package fetch

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// registryClient downloads a package tarball for npm, PyPI, or crates.io
// and extracts it into a destination directory, stripping the archive's
// single top-level directory the way `npm pack`/`pip download`/`cargo
// package` tarballs are conventionally laid out.
type registryClient struct {
	http *http.Client
}

func newRegistryClient() *registryClient {
	return &registryClient{http: &http.Client{Timeout: 2 * time.Minute}}
}

func (c *registryClient) fetchNPM(ctx context.Context, name, version, destDir string) (resolvedVersion string, err error) {
	meta, err := c.getJSON(ctx, "https://registry.npmjs.org/"+name)
	if err != nil {
		return "", err
	}

	versions, _ := meta["versions"].(map[string]any)
	if version == "" {
		distTags, _ := meta["dist-tags"].(map[string]any)
		if v, ok := distTags["latest"].(string); ok {
			version = v
		}
	}
	entry, ok := versions[version].(map[string]any)
	if !ok {
		return "", opensrcerr.New(opensrcerr.KindFetchError, "fetch.npm", "unknown version: "+version)
	}
	dist, _ := entry["dist"].(map[string]any)
	tarballURL, _ := dist["tarball"].(string)
	if tarballURL == "" {
		return "", opensrcerr.New(opensrcerr.KindFetchError, "fetch.npm", "no tarball url for "+name+"@"+version)
	}

	if err := c.downloadTarGz(ctx, tarballURL, destDir); err != nil {
		return "", err
	}
	return version, nil
}

func (c *registryClient) fetchPyPI(ctx context.Context, name, version, destDir string) (resolvedVersion string, err error) {
	url := "https://pypi.org/pypi/" + name + "/json"
	if version != "" {
		url = "https://pypi.org/pypi/" + name + "/" + version + "/json"
	}
	meta, err := c.getJSON(ctx, url)
	if err != nil {
		return "", err
	}

	info, _ := meta["info"].(map[string]any)
	if v, ok := info["version"].(string); ok {
		version = v
	}

	urls, _ := meta["urls"].([]any)
	var sdistURL string
	for _, u := range urls {
		entry, ok := u.(map[string]any)
		if !ok {
			continue
		}
		if pt, _ := entry["packagetype"].(string); pt == "sdist" {
			sdistURL, _ = entry["url"].(string)
			break
		}
	}
	if sdistURL == "" {
		return "", opensrcerr.New(opensrcerr.KindFetchError, "fetch.pypi", "no sdist for "+name+"=="+version)
	}

	if err := c.downloadTarGz(ctx, sdistURL, destDir); err != nil {
		return "", err
	}
	return version, nil
}

func (c *registryClient) fetchCrate(ctx context.Context, name, version, destDir string) (resolvedVersion string, err error) {
	if version == "" {
		meta, err := c.getJSON(ctx, "https://crates.io/api/v1/crates/"+name)
		if err != nil {
			return "", err
		}
		crate, _ := meta["crate"].(map[string]any)
		version, _ = crate["max_stable_version"].(string)
		if version == "" {
			return "", opensrcerr.New(opensrcerr.KindFetchError, "fetch.crates", "cannot resolve latest version for "+name)
		}
	}

	url := fmt.Sprintf("https://crates.io/api/v1/crates/%s/%s/download", name, version)
	if err := c.downloadTarGz(ctx, url, destDir); err != nil {
		return "", err
	}
	return version, nil
}

func (c *registryClient) getJSON(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.getJSON", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.getJSON", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, opensrcerr.New(opensrcerr.KindFetchError, "fetch.getJSON", fmt.Sprintf("%s: status %d", url, resp.StatusCode))
	}

	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.getJSON", err)
	}
	return m, nil
}

// downloadTarGz streams url, gunzips, and untars into destDir, dropping the
// archive's leading path component (e.g. "package/", "<name>-<version>/").
func (c *registryClient) downloadTarGz(ctx context.Context, url, destDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return opensrcerr.New(opensrcerr.KindFetchError, "fetch.downloadTarGz", fmt.Sprintf("%s: status %d", url, resp.StatusCode))
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
		}

		name := stripTopLevel(hdr.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(destDir, name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
			continue // reject path-traversal entries in the archive itself
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.downloadTarGz", err)
			}
			f.Close()
		}
	}
}

func stripTopLevel(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	idx := strings.Index(name, "/")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}
