package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseTags are removed before any text is collected.
const noiseTags = "script, style, nav, aside, form"

var (
	overlayIDs     = []string{"onetrust", "cookie", "consent", "newsletter"}
	overlayClasses = []string{"cookie", "consent", "banner", "modal", "overlay", "newsletter"}
)

// stripNoise removes non-content elements and common popups, banners and
// consent overlays from doc in place. It returns the number of overlay
// elements removed.
func stripNoise(doc *goquery.Document) int {
	doc.Find(noiseTags).Remove()

	overlays := doc.Find("[id], [class], [role]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isOverlay(s)
	})
	n := overlays.Length()
	overlays.Remove()
	return n
}

// isOverlay matches id and class substrings case-insensitively, the
// cc-banner class, and dialog roles. The document root and body never match.
func isOverlay(s *goquery.Selection) bool {
	switch goquery.NodeName(s) {
	case "html", "body":
		return false
	}
	if id, ok := s.Attr("id"); ok && containsFold(id, overlayIDs) {
		return true
	}
	if class, ok := s.Attr("class"); ok {
		if containsFold(class, overlayClasses) {
			return true
		}
		for _, c := range strings.Fields(class) {
			if strings.EqualFold(c, "cc-banner") {
				return true
			}
		}
	}
	if role, ok := s.Attr("role"); ok && strings.EqualFold(strings.TrimSpace(role), "dialog") {
		return true
	}
	return false
}

// hidden reports whether s or any ancestor is hidden by attribute or
// inline style.
func hidden(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		if goquery.NodeName(cur) == "#document" {
			break
		}
		if _, ok := cur.Attr("hidden"); ok {
			return true
		}
		if v, ok := cur.Attr("aria-hidden"); ok && strings.EqualFold(strings.TrimSpace(v), "true") {
			return true
		}
		if style, ok := cur.Attr("style"); ok && hiddenStyle(style) {
			return true
		}
	}
	return false
}

func hiddenStyle(style string) bool {
	compact := strings.ToLower(strings.Join(strings.Fields(style), ""))
	return strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden")
}

func containsFold(s string, needles []string) bool {
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
