// Package ranker filters and classifies candidate product-page URLs
// returned by a search provider.
package ranker

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/enrich/models"
)

// deniedHosts are never visited: social and video platforms plus a
// marketplace whose listings never carry usable descriptions.
var deniedHosts = []string{
	"pinterest.com",
	"youtube.com",
	"instagram.com",
	"facebook.com",
	"twitter.com",
	"1001spirits.com",
}

// deniedSuffixes are country-code domains excluded wholesale.
var deniedSuffixes = []string{".fr"}

// specializedPattern matches product pages of the partner shop whose layout
// the deterministic extractor understands.
var specializedPattern = regexp.MustCompile(`heinemann-shop\.com.*/p/`)

// priorityHosts are major retailers whose product pages are reliably complete.
var priorityHosts = []string{
	"sephora.com",
	"ulta.com",
	"macys.com",
	"nordstrom.com",
	"saksfifthavenue.com",
	"bloomingdales.com",
	"dillards.com",
	"amazon.com",
	"walmart.com",
	"target.com",
}

// productPathFragments are path segments that strongly suggest a product page.
var productPathFragments = []string{
	"/product/", "/products/", "/p/", "/dp/", "/item/", "/shop/",
	"/collection/", "/fragrances/", "/makeup/", "/skincare/", "/jewelry/",
}

// Rank drops denylisted URLs and returns the candidates that matched a
// positive rule, in input order. If none matched, every surviving URL is
// returned as unranked.
func Rank(urls []string) []models.Candidate {
	base := make([]models.Candidate, 0, len(urls))
	found := make([]models.Candidate, 0, len(urls))

	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		class, ok := Classify(raw)
		if !ok {
			continue
		}
		base = append(base, models.Candidate{URL: raw, Class: models.RankUnranked})
		if class != models.RankUnranked {
			found = append(found, models.Candidate{URL: raw, Class: class})
		}
	}

	if len(found) > 0 {
		return found
	}
	return base
}

// Classify reports the rank class of a single URL, or RankUnranked. A
// denylisted URL reports ok=false.
func Classify(raw string) (models.RankClass, bool) {
	host, path := split(raw)
	if denied(host) {
		return "", false
	}
	if class, ok := classify(raw, host, path); ok {
		return class, true
	}
	return models.RankUnranked, true
}

// IsSpecialized reports whether raw is a partner-shop product page.
func IsSpecialized(raw string) bool {
	host, _ := split(raw)
	return !denied(host) && specializedPattern.MatchString(raw)
}

// Order moves specialized-site candidates to the front, keeping the
// relative order within each group.
func Order(cands []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Specialized() {
			out = append(out, c)
		}
	}
	for _, c := range cands {
		if !c.Specialized() {
			out = append(out, c)
		}
	}
	return out
}

func classify(raw, host, path string) (models.RankClass, bool) {
	switch {
	case specializedPattern.MatchString(raw):
		return models.RankSpecialized, true
	case hostIn(host, priorityHosts):
		return models.RankPriority, true
	case containsAny(path, productPathFragments):
		return models.RankPattern, true
	}
	return "", false
}

func denied(host string) bool {
	if hostIn(host, deniedHosts) {
		return true
	}
	for _, suffix := range deniedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// hostIn matches host against domains exactly or as a subdomain.
func hostIn(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// split extracts a lower-cased host and the remaining path from raw. URLs
// without a scheme ("example.com/p/1") are read as host followed by path;
// anything unparseable falls back to plain string splitting.
func split(raw string) (host, path string) {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname()), u.EscapedPath()
	}
	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	rest = strings.TrimPrefix(rest, "//")
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host, path = rest[:i], rest[i:]
	} else {
		host = rest
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.ToLower(host), path
}
