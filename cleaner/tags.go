package cleaner

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/use-agent/enrich/models"
)

// lineTags are the elements rendered as tag lines, in document order.
const lineTags = "h1, h2, h3, p, li, th, td, span, div"

// TagLines renders the visible text of a page as one line per element:
//
//	TAG:H1 | CONTENT: Perfume X
//	TAG:P | CONTENT: A floral scent.
//
// Noise elements and overlays are removed first. Each element's full text
// is NFKC-normalised and whitespace-collapsed; hidden and empty elements
// are skipped. Nested elements each produce their own line.
func TagLines(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", models.NewPipelineError(models.ErrCodeFetch, "parse page html", err)
	}
	if n := stripNoise(doc); n > 0 {
		slog.Debug("cleaner: removed overlays", "count", n)
	}

	var lines []string
	doc.Find(lineTags).Each(func(_ int, s *goquery.Selection) {
		if hidden(s) {
			return
		}
		text := normalize(s.Text())
		if text == "" {
			return
		}
		lines = append(lines, "TAG:"+strings.ToUpper(goquery.NodeName(s))+" | CONTENT: "+text)
	})
	return strings.Join(lines, "\n"), nil
}

// normalize applies NFKC and collapses whitespace runs to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
