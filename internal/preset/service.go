package preset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eklundh/kontoutdrag/internal/mapping"
)

// ErrNotFound reports a preset name with nothing stored under it.
var ErrNotFound = errors.New("preset not found")

// Summary identifies a stored preset without loading the full mapping.
type Summary struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists named column mappings. Saving under an existing name
// replaces it; a concurrent reader sees either the old or the new preset,
// never a mixture.
type Store interface {
	Get(ctx context.Context, name string) (mapping.Mapping, error)
	Put(ctx context.Context, name string, m mapping.Mapping) error
	List(ctx context.Context) ([]Summary, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Save persists the mapping under the given name, overwriting any
// existing preset with that name.
func (s *Service) Save(ctx context.Context, name string, m mapping.Mapping) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("preset name must not be empty")
	}

	if !m.Complete() {
		return fmt.Errorf("mapping is incomplete: date, description and amount columns are required")
	}

	m.PresetName = name

	return s.store.Put(ctx, name, m)
}

func (s *Service) Load(ctx context.Context, name string) (mapping.Mapping, error) {
	return s.store.Get(ctx, strings.TrimSpace(name))
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.store.List(ctx)
}
