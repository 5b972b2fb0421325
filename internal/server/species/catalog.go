// Package species resolves species codes to their observation category.
package species

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type entry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type catalogFile struct {
	Pest       []entry `yaml:"pest"`
	Disease    []entry `yaml:"disease"`
	Beneficial []entry `yaml:"beneficial"`
}

// Species is a catalog entry.
type Species struct {
	Code     string
	Name     string
	Category models.Category
}

// Catalog maps upper-case species codes to their entries.
type Catalog struct {
	byCode map[string]Species
}

// Parse builds a Catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse species catalog: %w", err)
	}

	c := &Catalog{byCode: make(map[string]Species)}
	groups := []struct {
		category models.Category
		entries  []entry
	}{
		{models.CategoryPest, f.Pest},
		{models.CategoryDisease, f.Disease},
		{models.CategoryBeneficial, f.Beneficial},
	}
	for _, g := range groups {
		for _, e := range g.entries {
			code := Normalize(e.Code)
			if code == "" {
				return nil, fmt.Errorf("species catalog: empty code in %s", g.category)
			}
			if _, dup := c.byCode[code]; dup {
				return nil, fmt.Errorf("species catalog: duplicate code %s", code)
			}
			c.byCode[code] = Species{Code: code, Name: e.Name, Category: g.category}
		}
	}
	return c, nil
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize trims and upper-cases a species code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup finds a species by code.
func (c *Catalog) Lookup(code string) (Species, bool) {
	s, ok := c.byCode[Normalize(code)]
	return s, ok
}

// Resolve returns the normalised code and the category an observation of it
// belongs to. Unknown codes need an explicit category; a known code must not
// contradict the catalog.
func (c *Catalog) Resolve(code string, category *models.Category) (string, models.Category, error) {
	norm := Normalize(code)
	if norm == "" {
		return "", "", fmt.Errorf("%w: species code is required", common.ErrValidation)
	}
	if category != nil && !category.Valid() {
		return "", "", fmt.Errorf("%w: unknown category %q", common.ErrValidation, *category)
	}

	known, ok := c.byCode[norm]
	switch {
	case ok && category != nil && *category != known.Category:
		return "", "", fmt.Errorf("%w: species %s is %s, not %s", common.ErrValidation, norm, known.Category, *category)
	case ok:
		return norm, known.Category, nil
	case category != nil:
		return norm, *category, nil
	default:
		return "", "", fmt.Errorf("%w: unknown species %s requires a category", common.ErrValidation, norm)
	}
}
