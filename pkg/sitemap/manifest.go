package sitemap

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is the subset of the build manifest the sitemap cares about.
type Manifest struct {
	// Prerendered lists the absolute paths of every page generated at build time.
	Prerendered []string `json:"prerendered"`
}

// LoadManifest reads and decodes the build manifest at path.
// A missing file is reported as an error wrapping fs.ErrNotExist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err = json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
