package features

import (
	"fmt"
	"sort"
	"strings"

	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/models"
	"loan-approval/pkg/registry"
)

// Schema is the validated, immutable feature layout shared by the encoder,
// the intake label lookups and the classifier loaders.
type Schema struct {
	Version    string
	Names      []string
	Numeric    []registry.NumericColumn
	Categories []registry.CategoryColumn

	index map[string]int
}

// DefaultSchema loads and validates the bundled layout.
func DefaultSchema() (*Schema, error) {
	return LoadSchema(registry.DefaultVersion)
}

// LoadSchema loads and validates a bundled layout by version.
func LoadSchema(version string) (*Schema, error) {
	doc, err := registry.Embedded(version)
	if err != nil {
		return nil, apperrors.NewSchemaMismatchError(err.Error())
	}
	return NewSchema(doc)
}

// NewSchema builds a Schema from a document and runs Validate.
func NewSchema(doc *registry.SchemaDocument) (*Schema, error) {
	s := &Schema{
		Version:    doc.Version,
		Names:      append([]string(nil), doc.Features...),
		Numeric:    append([]registry.NumericColumn(nil), doc.Numeric...),
		Categories: append([]registry.CategoryColumn(nil), doc.Categories...),
		index:      make(map[string]int, len(doc.Features)),
	}
	for i, n := range s.Names {
		if _, dup := s.index[n]; !dup {
			s.index[n] = i
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate is the startup assertion tying the expected feature list to the
// record enumerations. Every modelled enumeration value must have its
// indicator in Names, baseline and unmodelled values must not, and every
// name must be accounted for exactly once.
func (s *Schema) Validate() error {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(s.Names) == 0 {
		fail("feature list is empty")
	}

	seen := make(map[string]bool, len(s.Names))
	for _, n := range s.Names {
		if n == "" {
			fail("empty feature name")
		}
		if seen[n] {
			fail("duplicate feature name %q", n)
		}
		seen[n] = true
	}

	claimed := make(map[string]string, len(s.Names))
	claim := func(name, owner string) {
		if prev, ok := claimed[name]; ok {
			fail("feature %q claimed by both %s and %s", name, prev, owner)
			return
		}
		claimed[name] = owner
	}

	for _, col := range s.Numeric {
		if !containsString(models.NumericFields, col.Field) {
			fail("numeric column %q refers to unknown field %q", col.Name, col.Field)
		}
		if !seen[col.Name] {
			fail("numeric column %q missing from feature list", col.Name)
		}
		claim(col.Name, "numeric:"+col.Field)
	}

	for _, cat := range s.Categories {
		enum, ok := models.CategoryValues(cat.Field)
		if !ok {
			fail("category %q refers to unknown field %q", cat.Attribute, cat.Field)
			continue
		}
		if diff := symmetricDifference(enum, cat.Codes()); len(diff) > 0 {
			fail("category %q values differ from record enumeration: %s", cat.Attribute, strings.Join(diff, ", "))
		}

		hasBaseline := false
		for _, v := range cat.Values {
			indicator := cat.IndicatorName(v.Code)
			switch {
			case v.Code == cat.Baseline:
				hasBaseline = true
				if v.Unmodelled {
					fail("baseline %q of %q marked unmodelled", v.Code, cat.Attribute)
				}
				if seen[indicator] {
					fail("baseline %q of %q has indicator %q in feature list", v.Code, cat.Attribute, indicator)
				}
			case v.Unmodelled:
				if seen[indicator] {
					fail("unmodelled value %q has indicator %q in feature list", v.Code, indicator)
				}
			default:
				if !seen[indicator] {
					fail("value %q of %q has no indicator %q in feature list", v.Code, cat.Attribute, indicator)
				}
				claim(indicator, "category:"+cat.Field)
			}
			if strings.TrimSpace(v.Label) == "" {
				fail("value %q of %q has no label", v.Code, cat.Attribute)
			}
		}
		if !hasBaseline {
			fail("category %q baseline %q is not one of its values", cat.Attribute, cat.Baseline)
		}
	}

	for _, n := range s.Names {
		if _, ok := claimed[n]; !ok && n != "" {
			fail("feature %q maps to no record attribute", n)
		}
	}

	if len(problems) > 0 {
		return apperrors.NewSchemaMismatchError(strings.Join(problems, "; "))
	}
	return nil
}

// Len is the vector width.
func (s *Schema) Len() int { return len(s.Names) }

// Index returns the slot of a feature name.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Category looks up a categorical column by record field.
func (s *Schema) Category(field string) (registry.CategoryColumn, bool) {
	for _, c := range s.Categories {
		if c.Field == field {
			return c, true
		}
	}
	return registry.CategoryColumn{}, false
}

// IndicatorNames lists every indicator slot in vector order.
func (s *Schema) IndicatorNames() []string {
	numeric := make(map[string]bool, len(s.Numeric))
	for _, c := range s.Numeric {
		numeric[c.Name] = true
	}
	var out []string
	for _, n := range s.Names {
		if !numeric[n] {
			out = append(out, n)
		}
	}
	return out
}

// SameOrder reports whether names matches the schema order exactly.
func (s *Schema) SameOrder(names []string) error {
	if len(names) != len(s.Names) {
		return fmt.Errorf("expected %d features, got %d", len(s.Names), len(names))
	}
	for i, n := range names {
		if n != s.Names[i] {
			return fmt.Errorf("feature %d: expected %q, got %q", i, s.Names[i], n)
		}
	}
	return nil
}

func symmetricDifference(a, b []string) []string {
	inA := make(map[string]bool, len(a))
	for _, v := range a {
		inA[v] = true
	}
	inB := make(map[string]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var diff []string
	for v := range inA {
		if !inB[v] {
			diff = append(diff, "missing "+v)
		}
	}
	for v := range inB {
		if !inA[v] {
			diff = append(diff, "unexpected "+v)
		}
	}
	sort.Strings(diff)
	return diff
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
