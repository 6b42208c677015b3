package walker

import (
	"regexp"
	"strings"

	"github.com/use-agent/enrich/models"
)

var ofWhich = regexp.MustCompile(`(?i)of which`)

// ParseTable flattens specification rows into an attribute map.
//
// A row whose key and value split into the same number of lines yields a
// main entry plus one "{main} - of which {sub}" entry per extra line:
//
//	"Fat\nof which saturates" / "10g\n2g"
//	  -> Fat: 10g, Fat - of which saturates: 2g
//
// Rows with mismatched line counts collapse into one space-joined entry.
// Later rows overwrite earlier ones with the same key.
func ParseTable(rows []models.Row) models.AttributeMap {
	out := models.AttributeMap{}
	for _, row := range rows {
		keys := strings.Split(row.Key, "\n")
		values := strings.Split(row.Value, "\n")

		if len(keys) != len(values) {
			out[clean(strings.Join(keys, " "))] = clean(strings.Join(values, " "))
			continue
		}

		main := clean(keys[0])
		out[main] = clean(values[0])
		for i := 1; i < len(keys); i++ {
			sub := clean(keys[i])
			if strings.Contains(strings.ToLower(sub), "of which") {
				sub = clean(ofWhich.ReplaceAllString(sub, ""))
			}
			out[main+" - of which "+sub] = clean(values[i])
		}
	}
	return out
}

// clean replaces non-breaking spaces, collapses whitespace runs and trims.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
