package catalog

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offer(id, category, vendor string) Offer {
	return Offer{
		ID:         id,
		CategoryID: sql.NullString{String: category, Valid: category != ""},
		Vendor:     sql.NullString{String: vendor, Valid: vendor != ""},
	}
}

func TestLoadFilterSpec(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "filter.yaml", "vendors:\n  \" Apple \": [\"1\"]\n  samsung: [\"9\", \"2\"]\n")

	spec, err := LoadFilterSpec(filepath.Join(dir, "filter.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, spec.Vendors["apple"])
	assert.Equal(t, []string{"9", "2"}, spec.Vendors["samsung"])

	_, err = LoadFilterSpec(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFilter_Apply(t *testing.T) {
	categories := []Category{
		{ID: "1"},
		{ID: "2", ParentID: "1"},
		{ID: "3", ParentID: "2"},
		{ID: "9"},
	}
	spec := &FilterSpec{Vendors: map[string][]string{"apple": {"1"}}}
	f := NewFilter(spec, categories)

	offers := []Offer{
		offer("descendant", "3", "Apple"),
		offer("root", "1", "APPLE"),
		offer("other-branch", "9", "Apple"),
		offer("other-vendor", "3", "Samsung"),
		offer("no-vendor", "3", ""),
		offer("no-category", "", "Apple"),
	}

	kept, rejected := f.Apply(offers)
	require.Len(t, kept, 2)
	assert.Equal(t, "descendant", kept[0].ID)
	assert.Equal(t, "root", kept[1].ID)
	assert.Equal(t, 4, rejected)
}

func TestFilter_CyclicTree(t *testing.T) {
	categories := []Category{
		{ID: "1", ParentID: "2"},
		{ID: "2", ParentID: "1"},
	}
	f := NewFilter(&FilterSpec{Vendors: map[string][]string{"x": {"1"}}}, categories)

	assert.True(t, f.Allows(offer("a", "2", "x")))
}
