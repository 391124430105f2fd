// Package seed loads the initial categories, subcategories and suggestion
// examples from YAML and writes them to an empty store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"expenses/internal/core"
)

//go:embed default.yaml
var defaultYAML []byte

type (
	Data struct {
		Categories []Category `yaml:"categories"`
	}

	Category struct {
		Name          string    `yaml:"name"`
		Color         string    `yaml:"color"`
		Subcategories []string  `yaml:"subcategories"`
		Examples      []Example `yaml:"examples"`
	}

	Example struct {
		Description string   `yaml:"description"`
		Subcategory string   `yaml:"subcategory"`
		Notes       string   `yaml:"notes"`
		Keywords    []string `yaml:"keywords"`
	}
)

// Store is the subset of ports.Store needed to seed.
type Store interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category, subcategories []string) (core.Category, error)
	CreateExample(ctx context.Context, e core.Example) (core.Example, error)
}

// Default returns the built-in seed data.
func Default() (Data, error) {
	return Load(bytes.NewReader(defaultYAML))
}

// Load parses seed YAML.
func Load(r io.Reader) (Data, error) {
	var d Data
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if err == io.EOF {
			return Data{}, nil
		}
		return Data{}, fmt.Errorf("decode seed: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Data{}, err
	}
	return d, nil
}

// LoadFile reads seed data from path, or the built-in data when path is empty.
func LoadFile(path string) (Data, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return Data{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks that every example references a subcategory declared on
// its category and that names are present.
func (d Data) Validate() error {
	var errs []string
	for i, c := range d.Categories {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Sprintf("category #%d: name is required", i+1))
			continue
		}
		subs := make(map[string]struct{}, len(c.Subcategories))
		for _, s := range c.Subcategories {
			subs[strings.TrimSpace(s)] = struct{}{}
		}
		for _, e := range c.Examples {
			if strings.TrimSpace(e.Description) == "" {
				errs = append(errs, fmt.Sprintf("category %s: example description is required", c.Name))
			}
			if e.Subcategory == "" {
				continue
			}
			if _, ok := subs[strings.TrimSpace(e.Subcategory)]; !ok {
				errs = append(errs, fmt.Sprintf("category %s: example %s references unknown subcategory %s",
					c.Name, e.Description, e.Subcategory))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid seed data:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Apply writes d to store when the store has no categories yet and returns
// the number of categories created.
func Apply(ctx context.Context, store Store, d Data) (int, error) {
	existing, err := store.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("check existing categories: %w", err)
	}
	if len(existing) > 0 {
		slog.InfoContext(ctx, "Skipping seed, categories already present", "count", len(existing))
		return 0, nil
	}

	created := 0
	for _, sc := range d.Categories {
		c, err := store.CreateCategory(ctx, core.Category{Name: sc.Name, Color: sc.Color}, sc.Subcategories)
		if err != nil {
			return created, fmt.Errorf("seed category %s: %w", sc.Name, err)
		}
		created++

		subIDs := make(map[string]int64, len(c.Subcategories))
		for _, s := range c.Subcategories {
			subIDs[s.Name] = s.ID
		}
		for _, se := range sc.Examples {
			e := core.Example{
				CategoryID:   c.ID,
				Description:  se.Description,
				DefaultNotes: se.Notes,
				Keywords:     se.Keywords,
			}
			if id, ok := subIDs[strings.TrimSpace(se.Subcategory)]; ok {
				e.SubcategoryID = &id
			}
			if _, err := store.CreateExample(ctx, e); err != nil {
				return created, fmt.Errorf("seed example %s: %w", se.Description, err)
			}
		}
	}

	slog.InfoContext(ctx, "Default categories and examples created", "categories", created)
	return created, nil
}
