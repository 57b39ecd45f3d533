// Package catalog holds the static per-category criterion registry and the
// pricing packages. Every test of a category exposes exactly the criteria
// declared here, in declared order; the registry is configuration, not
// runtime state, and is safe for concurrent reads.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
)

//go:embed categories.yaml
var embeddedCatalog []byte

// Rating bounds for RATING criteria, inclusive.
const (
	MinRating = 1
	MaxRating = 10
)

// CriterionKind distinguishes rating and boolean criteria.
type CriterionKind string

// CriterionKind constants.
const (
	KindRating  CriterionKind = "rating"
	KindBoolean CriterionKind = "boolean"
)

// Criterion is one question a test of a category asks its testers.
type Criterion struct {
	Label string        `yaml:"label"`
	Kind  CriterionKind `yaml:"kind"`
}

// Package is a purchasable completion tier.
type Package struct {
	Size  int    `yaml:"size"`
	Price int    `yaml:"price"`
	Name  string `yaml:"name"`
}

// Registry is the parsed catalog. Immutable after load.
type Registry struct {
	categories []models.Category
	criteria   map[models.Category][]Criterion
	names      map[models.Category]string
	packages   []Package
}

type catalogFile struct {
	Categories []struct {
		Category models.Category `yaml:"category"`
		Name     string          `yaml:"name"`
		Criteria []Criterion     `yaml:"criteria"`
	} `yaml:"categories"`
	Packages []Package `yaml:"packages"`
}

// Parse reads a catalog document from r.
func Parse(r io.Reader) (*Registry, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	reg := &Registry{
		criteria: make(map[models.Category][]Criterion),
		names:    make(map[models.Category]string),
		packages: file.Packages,
	}
	for _, c := range file.Categories {
		if _, dup := reg.criteria[c.Category]; dup {
			return nil, fmt.Errorf("duplicate category %q in catalog", c.Category)
		}
		if len(c.Criteria) == 0 {
			return nil, fmt.Errorf("category %q declares no criteria", c.Category)
		}
		seen := make(map[string]bool, len(c.Criteria))
		for _, cr := range c.Criteria {
			if cr.Kind != KindRating && cr.Kind != KindBoolean {
				return nil, fmt.Errorf("category %q criterion %q has unknown kind %q", c.Category, cr.Label, cr.Kind)
			}
			if seen[cr.Label] {
				return nil, fmt.Errorf("category %q has duplicate criterion label %q", c.Category, cr.Label)
			}
			seen[cr.Label] = true
		}
		reg.categories = append(reg.categories, c.Category)
		reg.criteria[c.Category] = c.Criteria
		reg.names[c.Category] = c.Name
	}
	if len(reg.packages) == 0 {
		return nil, fmt.Errorf("catalog declares no pricing packages")
	}
	return reg, nil
}

// LoadFile parses a catalog from a file path, for deployments that override
// the built-in categories.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry parsed from the embedded catalog.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse(bytes.NewReader(embeddedCatalog))
		if err != nil {
			// The embedded document is part of the build; failing to parse it
			// is a programming error.
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Categories returns all known categories in declared order.
func (r *Registry) Categories() []models.Category {
	out := make([]models.Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Known reports whether the category exists in the catalog.
func (r *Registry) Known(category models.Category) bool {
	_, ok := r.criteria[category]
	return ok
}

// CriteriaFor returns the ordered criterion list for a category, or nil for
// an unknown category.
func (r *Registry) CriteriaFor(category models.Category) []Criterion {
	return r.criteria[category]
}

// DisplayName returns the human-readable category name.
func (r *Registry) DisplayName(category models.Category) string {
	return r.names[category]
}

// Packages returns the purchasable completion tiers.
func (r *Registry) Packages() []Package {
	out := make([]Package, len(r.packages))
	copy(out, r.packages)
	return out
}

// PackageFor returns the package for a completion count.
func (r *Registry) PackageFor(size int) (Package, bool) {
	for _, p := range r.packages {
		if p.Size == size {
			return p, true
		}
	}
	return Package{}, false
}

// ValidateRatings checks a ratings map against a category's criterion schema:
// the key set must exactly equal the label set, each answer's kind must match
// its criterion, and rating values must fall within [MinRating, MaxRating].
// Pure; callable concurrently without coordination.
func (r *Registry) ValidateRatings(category models.Category, ratings models.Ratings) error {
	criteria, ok := r.criteria[category]
	if !ok {
		return models.NewValidationError("category", "unknown category %q", category)
	}
	for _, c := range criteria {
		answer, present := ratings[c.Label]
		if !present {
			return models.NewValidationError(c.Label, "missing answer")
		}
		switch c.Kind {
		case KindRating:
			if answer.Kind != models.AnswerRating {
				return models.NewValidationError(c.Label, "expected a rating, got a boolean")
			}
			if answer.Rating < MinRating || answer.Rating > MaxRating {
				return models.NewValidationError(c.Label, "rating %d out of range [%d, %d]", answer.Rating, MinRating, MaxRating)
			}
		case KindBoolean:
			if answer.Kind != models.AnswerBoolean {
				return models.NewValidationError(c.Label, "expected a boolean, got a rating")
			}
		}
	}
	if len(ratings) != len(criteria) {
		for label := range ratings {
			if !r.hasCriterion(category, label) {
				return models.NewValidationError(label, "not a criterion of category %q", category)
			}
		}
	}
	return nil
}

func (r *Registry) hasCriterion(category models.Category, label string) bool {
	for _, c := range r.criteria[category] {
		if c.Label == label {
			return true
		}
	}
	return false
}
