package partner

import (
	"sort"
	"strings"

	"github.com/use-agent/enrich/models"
	"github.com/use-agent/enrich/walker"
)

// DescriptionSection holds the product's descriptive text.
const DescriptionSection = "Product description"

// SpecificationSections are unioned into the record's specifications, in
// this order.
var SpecificationSections = []string{"Product details", "Ingredients", "Taste"}

// Merge assembles a ProductRecord from the product title and the walked
// sections. Sections sharing a name are concatenated.
//
// The description joins every text of the description section with "\n";
// attribute maps inside it render as "key: value" lines. Specifications
// merge every attribute map of the specification sections, while loose
// texts accumulate space-joined under the section name.
func Merge(name string, sections []walker.Section) *models.ProductRecord {
	byName := make(map[string][]walker.Value)
	for _, sec := range sections {
		byName[sec.Name] = append(byName[sec.Name], sec.Values...)
	}

	rec := &models.ProductRecord{
		ProductName:    strings.TrimSpace(name),
		Specifications: models.AttributeMap{},
	}
	if rec.ProductName == "" {
		rec.ProductName = models.NotFound
	}

	var lines []string
	for _, v := range byName[DescriptionSection] {
		lines = appendLines(lines, v)
	}
	rec.Description = strings.Join(lines, "\n")
	if strings.TrimSpace(rec.Description) == "" {
		rec.Description = models.NotFound
	}

	for _, sec := range SpecificationSections {
		for _, v := range byName[sec] {
			collectSpecs(rec.Specifications, sec, v)
		}
	}
	return rec
}

func appendLines(lines []string, v walker.Value) []string {
	switch v.Kind {
	case walker.ValueText:
		if t := strings.TrimSpace(v.Text); t != "" {
			lines = append(lines, t)
		}
	case walker.ValueAttrs:
		for _, k := range sortedKeys(v.Attrs) {
			lines = append(lines, k+": "+v.Attrs[k])
		}
	case walker.ValueList:
		for _, item := range v.Items {
			lines = appendLines(lines, item)
		}
	}
	return lines
}

func collectSpecs(out models.AttributeMap, section string, v walker.Value) {
	switch v.Kind {
	case walker.ValueAttrs:
		out.Merge(v.Attrs)
	case walker.ValueText:
		t := strings.TrimSpace(v.Text)
		if t == "" {
			return
		}
		if prev, ok := out[section]; ok {
			out[section] = prev + " " + t
		} else {
			out[section] = t
		}
	case walker.ValueList:
		for _, item := range v.Items {
			collectSpecs(out, section, item)
		}
	}
}

func sortedKeys(m models.AttributeMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
