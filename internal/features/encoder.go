package features

import (
	"loan-approval/internal/models"
)

// Encoder turns applicant records into classifier input vectors.
type Encoder struct {
	schema *Schema
}

func NewEncoder(schema *Schema) *Encoder {
	return &Encoder{schema: schema}
}

func (e *Encoder) Schema() *Schema { return e.schema }

// Expand builds the name to value mapping for one record: the numeric
// attributes including the derived ratio, plus one indicator per
// non-baseline categorical value. Indicators for values the model does not
// know are kept here and dropped by Align.
func (e *Encoder) Expand(r models.ApplicantRecord) map[string]float64 {
	numeric := r.Numeric()
	categorical := r.Categorical()

	out := make(map[string]float64, len(e.schema.Numeric)+len(e.schema.Categories))
	for _, col := range e.schema.Numeric {
		out[col.Name] = numeric[col.Field]
	}
	for _, cat := range e.schema.Categories {
		code := categorical[cat.Field]
		if code == cat.Baseline {
			continue
		}
		out[cat.IndicatorName(code)] = 1
	}
	return out
}

// Encode expands and aligns a record onto the schema. The caller validates
// the record first.
func (e *Encoder) Encode(r models.ApplicantRecord) Vector {
	return Align(e.schema.Names, e.Expand(r))
}

// Align projects mapping onto names: slots absent from mapping are zero and
// keys outside names are dropped.
func Align(names []string, mapping map[string]float64) Vector {
	values := make([]float64, len(names))
	for i, n := range names {
		values[i] = mapping[n]
	}
	return Vector{
		names:  append([]string(nil), names...),
		values: values,
	}
}
