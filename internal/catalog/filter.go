package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FilterSpec lists, per lowercase vendor name, category ids to render.
// Categories are pooled across vendors, and descendants of a listed category
// are included.
//
//	vendors:
//	  apple: ["101", "205"]
//	  samsung: ["101"]
type FilterSpec struct {
	Vendors map[string][]string `yaml:"vendors"`
}

// LoadFilterSpec reads a FilterSpec from a YAML file.
func LoadFilterSpec(path string) (*FilterSpec, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read filter file: %w", err)
	}

	var spec FilterSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse filter file: %w", err)
	}

	normalized := make(map[string][]string, len(spec.Vendors))
	for vendor, cats := range spec.Vendors {
		key := strings.ToLower(strings.TrimSpace(vendor))
		normalized[key] = append(normalized[key], cats...)
	}
	spec.Vendors = normalized
	return &spec, nil
}

// Filter keeps offers whose vendor is listed and whose category is a listed
// category or one of its descendants in the feed's category tree.
type Filter struct {
	vendors    map[string]struct{}
	categories map[string]struct{}
}

// NewFilter expands the FilterSpec categories over the given category tree.
func NewFilter(spec *FilterSpec, categories []Category) *Filter {
	children := make(map[string][]string)
	for _, c := range categories {
		children[c.ParentID] = append(children[c.ParentID], c.ID)
	}

	f := &Filter{
		vendors:    make(map[string]struct{}, len(spec.Vendors)),
		categories: make(map[string]struct{}),
	}
	for vendor, roots := range spec.Vendors {
		f.vendors[vendor] = struct{}{}
		for _, root := range roots {
			f.addSubtree(root, children)
		}
	}
	return f
}

func (f *Filter) addSubtree(root string, children map[string][]string) {
	stack := []string{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := f.categories[id]; seen {
			continue
		}
		f.categories[id] = struct{}{}
		stack = append(stack, children[id]...)
	}
}

// Allows reports whether an offer passes the filter. Offers missing either
// vendor or categoryId are rejected.
func (f *Filter) Allows(o Offer) bool {
	if !o.Vendor.Valid || !o.CategoryID.Valid {
		return false
	}
	if _, ok := f.vendors[strings.ToLower(o.Vendor.String)]; !ok {
		return false
	}
	_, ok := f.categories[o.CategoryID.String]
	return ok
}

// Apply returns the offers that pass the filter, preserving order, and the
// number rejected.
func (f *Filter) Apply(offers []Offer) ([]Offer, int) {
	kept := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if f.Allows(o) {
			kept = append(kept, o)
		}
	}
	return kept, len(offers) - len(kept)
}
