package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"animehub/pkg/models"
)

// FileSource reads a YAML catalog of the form:
//
//	animes:
//	  - title: Trigun
//	    total_episode: 26
//	    genres: [Action, Sci-Fi]
//	    episodes:
//	      - number: 1
//	        title: The Sixty Billion Dollar Man
//
// Unknown keys are rejected.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "file:" + filepath.Base(s.Path)
}

type fileDoc struct {
	Animes []models.CatalogEntry `yaml:"animes"`
}

func (s *FileSource) Fetch(ctx context.Context) ([]models.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return doc.Animes, nil
}
