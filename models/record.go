package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ProductRecord is the structured result of one extraction attempt.
//
// A nil Specifications map stands for the sentinel: the source either said
// "Not found" or omitted the field. An empty, non-nil map is a present but
// empty specification set.
type ProductRecord struct {
	ProductName    string
	Description    string
	Specifications AttributeMap
}

// Complete reports whether the record satisfies the acceptance gate: the
// three top-level fields are present and not the sentinel. Values inside
// Specifications are not inspected.
func (r *ProductRecord) Complete() bool {
	if r == nil {
		return false
	}
	return filled(r.ProductName) && filled(r.Description) && r.Specifications != nil
}

// MissingFields lists the top-level fields that fail the acceptance gate.
func (r *ProductRecord) MissingFields() []string {
	if r == nil {
		return []string{"product_name", "description", "specifications"}
	}
	var missing []string
	if !filled(r.ProductName) {
		missing = append(missing, "product_name")
	}
	if !filled(r.Description) {
		missing = append(missing, "description")
	}
	if r.Specifications == nil {
		missing = append(missing, "specifications")
	}
	return missing
}

func filled(s string) bool {
	t := strings.TrimSpace(s)
	return t != "" && t != NotFound
}

type recordJSON struct {
	ProductName    string `json:"product_name"`
	Description    string `json:"description"`
	Specifications any    `json:"specifications"`
}

// MarshalJSON writes the record in the three-field wire form, with a nil
// specification map rendered as the sentinel string.
func (r ProductRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{ProductName: r.ProductName, Description: r.Description}
	if r.Specifications == nil {
		out.Specifications = NotFound
	} else {
		out.Specifications = map[string]string(r.Specifications)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any object shape RecordFromObject understands.
func (r *ProductRecord) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = *RecordFromObject(obj)
	return nil
}

// RecordFromObject converts a decoded generated object into a ProductRecord.
//
// Missing or non-textual top-level scalars become "". Nested specification
// objects are flattened into the top-level map with inner keys overwriting
// outer ones; arrays are joined with ", "; numbers and booleans are
// formatted. A specifications value given as text or as a list of
// "Key: Value" strings is split into entries.
func RecordFromObject(obj map[string]any) *ProductRecord {
	rec := &ProductRecord{
		ProductName: textOf(obj["product_name"]),
		Description: textOf(obj["description"]),
	}
	rec.Specifications = specificationsOf(obj["specifications"])
	return rec
}

func textOf(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := scalarString(item); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		s, _ := scalarString(v)
		return s
	}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func specificationsOf(v any) AttributeMap {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == NotFound {
			return nil
		}
		out := AttributeMap{}
		addKeyValueLines(out, strings.Split(s, "\n"))
		return out
	case map[string]any:
		out := AttributeMap{}
		flattenInto(out, t)
		return out
	case []any:
		out := AttributeMap{}
		var lines []string
		for i, item := range t {
			switch it := item.(type) {
			case map[string]any:
				flattenInto(out, it)
			default:
				s, ok := scalarString(it)
				if !ok || s == "" {
					continue
				}
				if strings.Contains(s, ":") {
					lines = append(lines, s)
				} else {
					out[fmt.Sprintf("Item %d", i+1)] = s
				}
			}
		}
		addKeyValueLines(out, lines)
		return out
	default:
		if s, ok := scalarString(t); ok && s != "" {
			return AttributeMap{"Specifications": s}
		}
		return nil
	}
}

// flattenInto writes scalar entries first, then merges nested objects in
// key order so nested keys win over same-named outer keys.
func flattenInto(out AttributeMap, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var nested []map[string]any
	for _, k := range keys {
		key := strings.TrimSpace(k)
		switch v := m[k].(type) {
		case map[string]any:
			nested = append(nested, v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if inner, ok := item.(map[string]any); ok {
					nested = append(nested, inner)
					continue
				}
				if s, ok := scalarString(item); ok && s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				out[key] = strings.Join(parts, ", ")
			}
		case nil:
		default:
			if s, ok := scalarString(v); ok {
				out[key] = s
			}
		}
	}
	for _, inner := range nested {
		flattenInto(out, inner)
	}
}

func addKeyValueLines(out AttributeMap, lines []string) {
	var loose []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			loose = append(loose, line)
			continue
		}
		out[k] = v
	}
	if len(loose) > 0 {
		out["Details"] = strings.Join(loose, " ")
	}
}
