package registry

// SchemaDocument is one versioned feature layout. Features lists the model's
// expected input columns in order.
type SchemaDocument struct {
	Version     string           `yaml:"version" json:"version"`
	LastUpdated string           `yaml:"lastUpdated" json:"lastUpdated"`
	Description string           `yaml:"description" json:"description"`
	Numeric     []NumericColumn  `yaml:"numeric" json:"numeric"`
	Categories  []CategoryColumn `yaml:"categories" json:"categories"`
	Features    []string         `yaml:"features" json:"features"`
}

type NumericColumn struct {
	Name    string `yaml:"name" json:"name"`
	Field   string `yaml:"field" json:"field"`
	Derived bool   `yaml:"derived,omitempty" json:"derived,omitempty"`
}

// CategoryColumn describes one categorical attribute. Indicator columns are
// named Attribute_code.
type CategoryColumn struct {
	Attribute string          `yaml:"attribute" json:"attribute"`
	Field     string          `yaml:"field" json:"field"`
	Label     string          `yaml:"label" json:"label"`
	Baseline  string          `yaml:"baseline" json:"baseline"`
	Values    []CategoryValue `yaml:"values" json:"values"`
}

// CategoryValue pairs an internal code with its display label. Unmodelled
// values have no indicator column and encode like the baseline.
type CategoryValue struct {
	Code       string `yaml:"code" json:"code"`
	Label      string `yaml:"label" json:"label"`
	Unmodelled bool   `yaml:"unmodelled,omitempty" json:"unmodelled,omitempty"`
}

// Codes returns the value codes in document order.
func (c CategoryColumn) Codes() []string {
	out := make([]string, len(c.Values))
	for i, v := range c.Values {
		out[i] = v.Code
	}
	return out
}

// IndicatorName is the one-hot column name for a value of this attribute.
func (c CategoryColumn) IndicatorName(code string) string {
	return c.Attribute + "_" + code
}
