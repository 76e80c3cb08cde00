package notion

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// SelectView picks the active view for a request and returns it along with
// every declared view. Views are ordered by the page block's view_ids when
// present, otherwise by record ID for determinism. A caller-supplied name is
// matched exactly; no match falls back to the first declared view.
func SelectView(pageBlock *Block, views map[string]*CollectionViewRecord, name string) (*CollectionView, []*CollectionView) {
	ordered := orderedViews(pageBlock, views)
	if len(ordered) == 0 {
		return nil, nil
	}

	active := ordered[0]
	if name != "" {
		for _, v := range ordered {
			if v.Name == name {
				active = v
				break
			}
		}
	}
	return active, ordered
}

func orderedViews(pageBlock *Block, views map[string]*CollectionViewRecord) []*CollectionView {
	var ordered []*CollectionView
	seen := map[string]bool{}

	if pageBlock != nil {
		for _, id := range pageBlock.ViewIDs {
			if rec := views[id]; rec != nil && rec.Value != nil {
				ordered = append(ordered, rec.Value)
				seen[id] = true
			}
		}
	}

	rest := make([]string, 0, len(views))
	for id, rec := range views {
		if !seen[id] && rec != nil && rec.Value != nil {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		ordered = append(ordered, views[id].Value)
	}
	return ordered
}

// MergeFilters combines a view's stored query2 filter with the property
// filters declared on its format. Format-level filters are appended to the
// list, never replacing it.
func MergeFilters(q *Query, format *ViewFormat) *FilterGroup {
	merged := &FilterGroup{Operator: "and"}
	if q != nil && q.Filter != nil {
		if q.Filter.Operator != "" {
			merged.Operator = q.Filter.Operator
		}
		merged.Filters = append(merged.Filters, q.Filter.Filters...)
	}
	if format != nil {
		for _, pf := range format.PropertyFilters {
			if pf.Filter == nil {
				continue
			}
			merged.Filters = append(merged.Filters, &FilterEntry{Property: pf.Property, Filter: pf.Filter})
		}
	}
	return merged
}

// ApplyFilters narrows a row set through every filter entry in turn. The fold
// is pure: each step returns a new slice and filters compose with implicit
// AND, so applying the same list twice yields the same rows as once.
func ApplyFilters(rows []Row, group *FilterGroup, schema map[string]*SchemaColumn) []Row {
	if group == nil {
		return rows
	}
	out := rows
	for _, entry := range group.Filters {
		out = applyFilter(out, entry, schema)
	}
	return out
}

func applyFilter(rows []Row, entry *FilterEntry, schema map[string]*SchemaColumn) []Row {
	if entry == nil || entry.Filter == nil {
		return rows
	}
	col := schema[entry.Property]
	if col == nil {
		// Filter targets a column the schema doesn't declare: no-op.
		return rows
	}

	operand := ""
	if entry.Filter.Value != nil {
		operand = entry.Filter.Value.Value
	}

	pred, ok := operators[entry.Filter.Operator]
	if !ok {
		// Unrecognized operator: the row set passes through unchanged.
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if pred(row[col.Name], operand) {
			out = append(out, row)
		}
	}
	return out
}

// operators is the fixed predicate table of the view filter language.
// Predicates receive the row's decoded value (possibly nil when the column is
// absent) and the filter operand text.
var operators = map[string]func(v any, operand string) bool{
	"string_contains": func(v any, operand string) bool {
		return containsValue(v, operand)
	},
	"string_is": func(v any, operand string) bool {
		s, ok := stringOf(v)
		return ok && s == operand
	},
	"string_does_not_contain": func(v any, operand string) bool {
		return !isEmptyValue(v) && !containsValue(v, operand)
	},
	"string_starts_with": func(v any, operand string) bool {
		s, ok := stringOf(v)
		return ok && s != "" && strings.HasPrefix(s, operand)
	},
	"string_ends_with": func(v any, operand string) bool {
		s, ok := stringOf(v)
		return ok && s != "" && strings.HasSuffix(s, operand)
	},
	"date_is_before": func(v any, operand string) bool {
		rowDate, ok := dateOf(v)
		if !ok {
			return false
		}
		limit, err := parseDay(operand)
		if err != nil {
			return false
		}
		return rowDate.Before(limit)
	},
	"number_is_greater": func(v any, operand string) bool {
		n, ok := v.(float64)
		limit, err := strconv.ParseFloat(operand, 64)
		return ok && err == nil && n > limit
	},
	"number_is_less": func(v any, operand string) bool {
		n, ok := v.(float64)
		limit, err := strconv.ParseFloat(operand, 64)
		return ok && err == nil && n < limit
	},
	"boolean_is_true": func(v any, _ string) bool {
		return v == true
	},
	"boolean_is_false": func(v any, _ string) bool {
		return v == false
	},
	"is_empty": func(v any, _ string) bool {
		return isEmptyValue(v)
	},
	"is_not_empty": func(v any, _ string) bool {
		return !isEmptyValue(v)
	},
	"enum_is": func(v any, operand string) bool {
		s, ok := stringOf(v)
		return ok && s == operand
	},
	"enum_is_not": func(v any, operand string) bool {
		s, _ := stringOf(v)
		return s != operand
	},
	"enum_contains": func(v any, operand string) bool {
		return containsValue(v, operand)
	},
	"enum_does_not_contain": func(v any, operand string) bool {
		return !containsValue(v, operand)
	},
}

// stringOf flattens a decoded value to the string the filter language
// compares against. Lists join on "," (matching the upstream's own display
// coercion); anything non-textual reports false.
func stringOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		return strings.Join(t, ","), true
	}
	return "", false
}

// containsValue implements the "contains" family: substring match on
// strings, exact element membership on lists.
func containsValue(v any, operand string) bool {
	switch t := v.(type) {
	case string:
		return t != "" && strings.Contains(t, operand)
	case []string:
		for _, e := range t {
			if e == operand {
				return true
			}
		}
	}
	return false
}

// isEmptyValue reports whether the row has no usable value for the column.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []User:
		return len(t) == 0
	case []FileLink:
		return len(t) == 0
	}
	return false
}

// dateOf extracts the comparable start day of a decoded date value.
func dateOf(v any) (time.Time, bool) {
	switch t := v.(type) {
	case *DateValue:
		d, err := parseDay(t.StartDate)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	case string:
		d, err := parseDay(t)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	return time.Time{}, false
}

func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// ColumnSpec is one entry of the merged column projection: the view's table
// layout joined with the schema's declaration for that property.
type ColumnSpec struct {
	Width    int            `json:"width,omitempty"`
	Visible  bool           `json:"visible"`
	Property string         `json:"property"`
	Name     string         `json:"name,omitempty"`
	Type     ColumnType     `json:"type,omitempty"`
	Options  []SchemaOption `json:"options,omitempty"`
}

// Columns merges a table view's column order with the schema. Non-table
// views have no table_properties and yield nil.
func Columns(view *CollectionView, schema map[string]*SchemaColumn) []ColumnSpec {
	if view == nil || view.Format == nil || len(view.Format.TableProperties) == 0 {
		return nil
	}
	cols := make([]ColumnSpec, 0, len(view.Format.TableProperties))
	for _, tp := range view.Format.TableProperties {
		spec := ColumnSpec{Width: tp.Width, Visible: tp.Visible, Property: tp.Property}
		if col := schema[tp.Property]; col != nil {
			spec.Name = col.Name
			spec.Type = col.Type
			spec.Options = col.Options
		}
		cols = append(cols, spec)
	}
	return cols
}
