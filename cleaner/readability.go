package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum extracted text length for readability
// output to be used. Shorter results fall back to the full page.
const minContentLength = 50

// mainContent runs Mozilla Readability on rawHTML and returns the main
// content HTML. ok is false when it fell back to rawHTML: the URL did not
// parse, readability failed, or the text was shorter than
// minContentLength.
func mainContent(rawHTML, sourceURL string) (html string, ok bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, using full page",
			"url", sourceURL, "error", err,
		)
		return rawHTML, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, using full page",
			"url", sourceURL, "error", err,
		)
		return rawHTML, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: extracted content too short, using full page",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return rawHTML, false
	}
	return article.Content, true
}
