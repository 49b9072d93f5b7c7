package preset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/preset"
)

type memStore struct {
	presets map[string]mapping.Mapping
}

func newMemStore() *memStore {
	return &memStore{presets: make(map[string]mapping.Mapping)}
}

func (s *memStore) Get(_ context.Context, name string) (mapping.Mapping, error) {
	m, ok := s.presets[name]
	if !ok {
		return mapping.Mapping{}, preset.ErrNotFound
	}

	return m, nil
}

func (s *memStore) Put(_ context.Context, name string, m mapping.Mapping) error {
	s.presets[name] = m
	return nil
}

func (s *memStore) List(_ context.Context) ([]preset.Summary, error) {
	var out []preset.Summary
	for name := range s.presets {
		out = append(out, preset.Summary{Name: name})
	}

	return out, nil
}

func valid() mapping.Mapping {
	return mapping.Mapping{
		DateColumn:        "Date",
		DescriptionColumn: "Text",
		AmountColumn:      "Amount",
		CurrencyCode:      "SEK",
	}
}

func TestService_SaveStampsName(t *testing.T) {
	ctx := context.Background()
	s := preset.NewService(newMemStore())

	require.NoError(t, s.Save(ctx, "  Nordea  ", valid()))

	got, err := s.Load(ctx, "Nordea")
	require.NoError(t, err)
	assert.Equal(t, "Nordea", got.PresetName)
}

func TestService_SaveRejectsEmptyName(t *testing.T) {
	s := preset.NewService(newMemStore())
	assert.Error(t, s.Save(context.Background(), "   ", valid()))
}

func TestService_SaveRejectsIncompleteMapping(t *testing.T) {
	m := valid()
	m.AmountColumn = ""

	s := preset.NewService(newMemStore())
	assert.Error(t, s.Save(context.Background(), "Nordea", m))
}
