package dataset

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed assets/*.xml
var assets embed.FS

const assetDir = "assets"

// BundledNames lists the bundled collections shipped with the binary.
func BundledNames() []string {
	entries, err := fs.ReadDir(assets, assetDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Bundled opens a bundled collection by file name, e.g. "Luther1912.xml".
func Bundled(name string) (io.ReadCloser, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid bundled dataset name %q", name)
	}
	f, err := assets.Open(path.Join(assetDir, name))
	if err != nil {
		return nil, fmt.Errorf("open bundled dataset %q: %w", name, err)
	}
	return f, nil
}

// LoadBundled opens and parses a bundled collection.
func LoadBundled(name string) ([]Record, error) {
	f, err := Bundled(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ParseBundled(f)
	if err != nil {
		return nil, fmt.Errorf("parse bundled dataset %q: %w", name, err)
	}
	return records, nil
}
