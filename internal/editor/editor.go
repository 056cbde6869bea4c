// Package editor renders listing grids and create/edit forms purely from
// the shape of a record: field names become column headers and form labels,
// semantic kinds pick the control. There is no per-entity rendering code.
package editor

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"lptrack/internal/schema"
)

// Control is the input control backing a form field.
type Control int

const (
	TextInput Control = iota
	DateInput
	NumberInput
)

// FormField is one control in a create/edit form.
type FormField struct {
	Name     string
	Kind     schema.Kind
	Control  Control
	Required bool
	// Step is the numeric input step: "1" for integers, "0.01" for
	// decimals, empty otherwise.
	Step string
	// Value is the display form of the current draft value; nil renders
	// as the empty string.
	Value string
}

// FormView is a fully resolved create/edit form.
type FormView struct {
	Entity   schema.EntityType
	Creating bool
	Fields   []FormField
}

// BuildForm derives a form from a draft record. Fields follow the schema's
// declared order; the server-assigned id field is skipped while creating.
func BuildForm(t schema.EntityType, rec schema.Record, creating bool) FormView {
	def := schema.Lookup(t)
	view := FormView{Entity: t, Creating: creating}

	for _, name := range def.Fields {
		if name == "id" && creating {
			continue
		}
		if !rec.Has(name) {
			continue
		}
		kind := schema.KindOf(name)
		f := FormField{
			Name:     name,
			Kind:     kind,
			Required: schema.Required(name),
			Value:    inputValue(rec[name]),
		}
		switch kind {
		case schema.Date:
			f.Control = DateInput
		case schema.Integer:
			f.Control = NumberInput
			f.Step = "1"
		case schema.Decimal:
			f.Control = NumberInput
			f.Step = "0.01"
		default:
			f.Control = TextInput
		}
		view.Fields = append(view.Fields, f)
	}
	return view
}

// ParseInput converts raw operator input into a draft field value. Empty
// input means null. Numeric input that fails to parse is kept as the raw
// string: the normalizer degrades it to the entity's fallback at submission
// instead of blocking the edit here.
func ParseInput(kind schema.Kind, text string) any {
	if text == "" {
		return nil
	}
	switch kind {
	case schema.Integer:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return float64(n)
		}
		return text
	case schema.Decimal:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return text
	default:
		return text
	}
}

// GridView is a rendered listing: headers from the first record, one row of
// display strings per record.
type GridView struct {
	Entity  schema.EntityType
	Headers []string
	Rows    [][]string
}

// Empty reports whether there is nothing to show. An empty listing renders
// an explicit "no data" state instead of a bare header row.
func (g GridView) Empty() bool { return len(g.Rows) == 0 }

// BuildGrid derives the listing grid for the current records. Headers are
// the field names of the first record, in schema order; with no records
// there is no header row at all.
func BuildGrid(t schema.EntityType, records []schema.Record) GridView {
	view := GridView{Entity: t}
	if len(records) == 0 {
		return view
	}

	def := schema.Lookup(t)
	for _, name := range def.Fields {
		if records[0].Has(name) {
			view.Headers = append(view.Headers, name)
		}
	}

	for _, rec := range records {
		row := make([]string, len(view.Headers))
		for i, name := range view.Headers {
			row[i] = CellValue(name, rec[name])
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// CellValue formats one listing cell. Nulls render empty; date fields are
// locale-formatted; anything whose string form is "NaN" renders empty
// rather than the literal text.
func CellValue(field string, v any) string {
	if v == nil {
		return ""
	}
	if schema.KindOf(field) == schema.Date {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(schema.DateLayout, s); err == nil {
				return t.Format("1/2/2006")
			}
		}
	}
	s := stringify(v)
	if s == "NaN" {
		return ""
	}
	return s
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// inputValue formats a draft value for a form control: nil is the empty
// string, numbers drop trailing zeros.
func inputValue(v any) string {
	if v == nil {
		return ""
	}
	return stringify(v)
}

// WriteGrid renders the grid as an aligned text table.
func WriteGrid(w io.Writer, g GridView) {
	if g.Empty() {
		fmt.Fprintln(w, "No data available")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(g.Headers, "\t"))
	for _, row := range g.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// WriteForm renders the form as labeled prompt lines.
func WriteForm(w io.Writer, f FormView) {
	title := "Edit Item"
	if f.Creating {
		title = "Create New Item"
	}
	fmt.Fprintf(w, "%s (%s)\n", title, f.Entity)
	for _, field := range f.Fields {
		marker := ""
		if field.Required {
			marker = " *"
		}
		fmt.Fprintf(w, "  %s%s [%s]: %s\n", field.Name, marker, field.Kind, field.Value)
	}
}
