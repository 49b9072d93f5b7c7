package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/preset"
)

// File keeps all presets in one YAML document. Writes go through a temp
// file and a rename, so a concurrent reader sees either the old document
// or the new one, never a torn write.
type File struct {
	path string
	mu   sync.RWMutex
}

type fileDoc struct {
	Presets []filePreset `yaml:"presets"`
}

type filePreset struct {
	Name      string          `yaml:"name"`
	UpdatedAt time.Time       `yaml:"updated_at"`
	Mapping   mapping.Mapping `yaml:"mapping"`
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Get(_ context.Context, name string) (mapping.Mapping, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	doc, err := f.load()
	if err != nil {
		return mapping.Mapping{}, err
	}

	for _, p := range doc.Presets {
		if p.Name == name {
			return p.Mapping, nil
		}
	}

	return mapping.Mapping{}, fmt.Errorf("%q: %w", name, preset.ErrNotFound)
}

func (f *File) Put(_ context.Context, name string, m mapping.Mapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	entry := filePreset{Name: name, UpdatedAt: time.Now().UTC(), Mapping: m}

	replaced := false

	for i, p := range doc.Presets {
		if p.Name == name {
			doc.Presets[i] = entry
			replaced = true

			break
		}
	}

	if !replaced {
		doc.Presets = append(doc.Presets, entry)
	}

	return f.write(doc)
}

func (f *File) List(_ context.Context) ([]preset.Summary, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}

	summaries := make([]preset.Summary, 0, len(doc.Presets))
	for _, p := range doc.Presets {
		summaries = append(summaries, preset.Summary{Name: p.Name, UpdatedAt: p.UpdatedAt})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	return summaries, nil
}

// load reads the document; a missing file is an empty store.
func (f *File) load() (*fileDoc, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileDoc{}, nil
		}

		return nil, fmt.Errorf("reading presets: %w", err)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing presets: %w", err)
	}

	return &doc, nil
}

func (f *File) write(doc *fileDoc) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding presets: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".presets-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("writing presets: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("replacing presets: %w", err)
	}

	return nil
}
