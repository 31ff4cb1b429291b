package curriculum

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var defaultCatalogFS embed.FS

// Default returns the built-in statistics curriculum.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultCatalogFS, "catalog")
	if err != nil {
		return nil, fmt.Errorf("opening embedded catalog: %w", err)
	}
	return Load(sub)
}

// LoadDir loads a catalog from level YAML files under dir.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loading curriculum: %s is not a directory", dir)
	}
	return Load(os.DirFS(dir))
}

// Load walks fsys for level documents and builds a validated catalog.
// YAML files without a top-level "level" key are skipped.
func Load(fsys fs.FS) (*Catalog, error) {
	docs, err := readDocuments(fsys)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	c, err := New(docs)
	if err != nil {
		return nil, err
	}

	slog.Info("curriculum loaded", "levels", len(c.levels), "items", c.Size())
	return c, nil
}

func readDocuments(fsys fs.FS) ([]LevelDocument, error) {
	var docs []LevelDocument
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		doc, ok, err := readDocument(fsys, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if ok {
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, err
}

func readDocument(fsys fs.FS, path string) (LevelDocument, bool, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return LevelDocument{}, false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return LevelDocument{}, false, fmt.Errorf("parsing YAML: %w", err)
	}
	if _, ok := raw["level"]; !ok {
		slog.Debug("skipping non-level YAML", "path", path)
		return LevelDocument{}, false, nil
	}
	if err := ValidateDocument(raw); err != nil {
		return LevelDocument{}, false, err
	}

	var doc LevelDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return LevelDocument{}, false, fmt.Errorf("decoding level: %w", err)
	}
	return doc, true, nil
}
