package partner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/enrich/models"
)

const layoutCell = "#product-page-content > " +
	"div.mdc-layout-grid__cell--span-4-mobile-s.mdc-layout-grid__cell--span-6-mobile-l" +
	".mdc-layout-grid__cell--span-4-tablet.mdc-layout-grid__cell--span-5-desktop" +
	".mdc-layout-grid__cell--span-5-desktop-l"

// ContainerSelector locates the accordion holding the product sections.
const ContainerSelector = layoutCell + " > div.c-accordion.js-accordion.u-margin-top-xl"

// NameSelector locates the product title.
const NameSelector = layoutCell + " > section > div > h1"

var (
	containerMatcher = cascadia.MustCompile(ContainerSelector)
	nameMatcher      = cascadia.MustCompile(NameSelector)
)

// Tree is the parsed partner page: the product title and the content
// tree rooted at the accordion container.
type Tree struct {
	Name string
	Root *models.ContentNode
}

// BuildTree parses a rendered partner product page. It fails when the
// accordion container is missing. A missing title yields an empty Name.
func BuildTree(rawHTML string) (*Tree, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeUnrecognized, "parse partner page", err)
	}

	container := doc.FindMatcher(containerMatcher).First()
	if container.Length() == 0 {
		return nil, models.NewPipelineError(models.ErrCodeUnrecognized, "product container not found", nil)
	}

	tree := &Tree{
		Root: &models.ContentNode{Kind: models.KindContainer, Tag: "div"},
	}
	if name := doc.FindMatcher(nameMatcher).First(); name.Length() > 0 {
		tree.Name = innerText(name)
	}
	container.Children().Each(func(_ int, s *goquery.Selection) {
		tree.Root.Children = append(tree.Root.Children, nodeFor(s))
	})
	return tree, nil
}

func nodeFor(s *goquery.Selection) *models.ContentNode {
	tag := goquery.NodeName(s)
	switch tag {
	case "h2":
		return &models.ContentNode{Kind: models.KindHeader, Tag: tag, Text: innerText(s)}
	case "div":
		n := &models.ContentNode{Kind: models.KindContainer, Tag: tag}
		s.Children().Each(func(_ int, c *goquery.Selection) {
			n.Children = append(n.Children, nodeFor(c))
		})
		return n
	case "p":
		return &models.ContentNode{Kind: models.KindText, Tag: tag, Text: innerText(s)}
	case "table":
		return &models.ContentNode{Kind: models.KindTable, Tag: tag, Rows: tableRows(s)}
	default:
		return &models.ContentNode{Kind: models.KindUnknown, Tag: tag}
	}
}

// tableRows keeps rows with exactly two cells, both non-empty.
func tableRows(table *goquery.Selection) []models.Row {
	var rows []models.Row
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() != 2 {
			return
		}
		key := innerText(cells.Eq(0))
		value := innerText(cells.Eq(1))
		if key == "" || value == "" {
			return
		}
		rows = append(rows, models.Row{Key: key, Value: value})
	})
	return rows
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "li": true, "ol": true, "p": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

// innerText approximates the rendered text of s: whitespace runs collapse
// to a space, <br> and block boundaries become line breaks, and each line
// is trimmed. Script and style contents are skipped.
func innerText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "script", "style", "noscript", "template":
			return
		}
	}
	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
