package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// manifest is the on-disk shape of sources.json (specification §6). It
// splits sources into "packages" (npm/pypi/crates) and "repos" (git hosts)
// the way the external fetcher's own schema does, per the Open Question in
// specification §9: this port treats the in-memory Registry as canonical
// and simply projects it into this shape on every write, rather than
// trying to reconcile a concurrent writer.
type manifest struct {
	Packages  []Source  `json:"packages"`
	Repos     []Source  `json:"repos"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func saveManifest(path string, sources []Source) error {
	m := manifest{UpdatedAt: time.Now()}
	for _, s := range sources {
		if s.IsRepo() {
			m.Repos = append(m.Repos, s)
		} else {
			m.Packages = append(m.Packages, s)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (m *manifest) all() []Source {
	out := make([]Source, 0, len(m.Packages)+len(m.Repos))
	out = append(out, m.Packages...)
	out = append(out, m.Repos...)
	return out
}
