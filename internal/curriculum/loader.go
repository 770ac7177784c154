// Package curriculum loads the quiz catalog from a directory of YAML, JSON and XLSX files.
package curriculum

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// Loader reads catalog files once and holds the resulting catalog.
type Loader struct {
	rootDir string
	builder catalogBuilder
	files   []string
	skipped []string
	catalog *quiz.Catalog
}

// NewLoader creates a new catalog loader and loads all content under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		builder: catalogBuilder{index: make(map[string]int)},
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	catalog, err := quiz.NewCatalog(l.builder.subjects)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	l.catalog = catalog

	slog.Info("catalog loaded", "subjects", catalog.Len(), "files", len(l.files), "skipped", len(l.skipped))
	return l, nil
}

// Catalog returns the loaded catalog.
func (l *Loader) Catalog() *quiz.Catalog {
	return l.catalog
}

// Files returns the files that contributed subjects, in load order.
func (l *Loader) Files() []string {
	return append([]string(nil), l.files...)
}

// Skipped returns the catalog files that failed to parse or validate.
func (l *Loader) Skipped() []string {
	return append([]string(nil), l.skipped...)
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), "~$") {
			return nil // Office lock file
		}

		var subjects []quiz.Subject
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			subjects, err = l.loadYAML(path)
		case ".json":
			subjects, err = l.loadJSON(path)
		case ".xlsx":
			subjects, err = loadXLSX(path)
			if err != nil {
				slog.Warn("skipping invalid catalog spreadsheet", "path", path, "error", err)
				l.skipped = append(l.skipped, path)
				return nil
			}
		default:
			return nil
		}
		if err != nil {
			return err
		}
		if len(subjects) == 0 {
			return nil
		}

		for _, s := range subjects {
			l.builder.add(s)
		}
		l.files = append(l.files, path)
		return nil
	})
}

func (l *Loader) loadYAML(path string) ([]quiz.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f SubjectFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid catalog YAML", "path", path, "error", err)
		l.skipped = append(l.skipped, path)
		return nil, nil
	}

	if f.Subject == "" {
		return nil, nil // Not a catalog file
	}

	return []quiz.Subject{f.toSubject()}, nil
}

func (l *Loader) loadJSON(path string) ([]quiz.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := ValidateJSON(data); err != nil {
		slog.Warn("skipping invalid catalog JSON", "path", path, "error", err)
		l.skipped = append(l.skipped, path)
		return nil, nil
	}

	var files []SubjectFile
	if err := json.Unmarshal(data, &files); err != nil {
		slog.Warn("skipping invalid catalog JSON", "path", path, "error", err)
		l.skipped = append(l.skipped, path)
		return nil, nil
	}

	subjects := make([]quiz.Subject, 0, len(files))
	for _, f := range files {
		subjects = append(subjects, f.toSubject())
	}
	return subjects, nil
}

// catalogBuilder merges subjects from several files, keeping first-seen order.
type catalogBuilder struct {
	subjects []quiz.Subject
	index    map[string]int
}

func (b *catalogBuilder) add(s quiz.Subject) {
	i, ok := b.index[s.Name]
	if !ok {
		b.index[s.Name] = len(b.subjects)
		b.subjects = append(b.subjects, s)
		return
	}
	b.subjects[i].Levels = append(b.subjects[i].Levels, s.Levels...)
}
