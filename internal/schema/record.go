package schema

// Record is a single row of an entity table: field name to value. Values are
// limited to what JSON decoding produces for this API: string, float64, or
// nil. Numbers are always float64, including integer-kinded fields.
type Record map[string]any

// Clone returns an independent shallow copy. Values are scalars, so a
// shallow copy is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has returns true if the field is present, even with a nil value.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}
