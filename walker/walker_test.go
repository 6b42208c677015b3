package walker

import (
	"errors"
	"testing"

	"github.com/use-agent/enrich/models"
)

func header(text string) *models.ContentNode {
	return &models.ContentNode{Kind: models.KindHeader, Tag: "h2", Text: text}
}

func text(s string) *models.ContentNode {
	return &models.ContentNode{Kind: models.KindText, Tag: "p", Text: s}
}

func container(children ...*models.ContentNode) *models.ContentNode {
	return &models.ContentNode{Kind: models.KindContainer, Tag: "div", Children: children}
}

func table(rows ...models.Row) *models.ContentNode {
	return &models.ContentNode{Kind: models.KindTable, Tag: "table", Rows: rows}
}

func TestWalkKinds(t *testing.T) {
	v, err := Walk(text("hello"))
	if err != nil || v.Kind != ValueText || v.Text != "hello" {
		t.Errorf("Walk(text) = %+v, %v", v, err)
	}

	v, err = Walk(table(models.Row{Key: "Volume", Value: "50ml"}))
	if err != nil || v.Kind != ValueAttrs || v.Attrs["Volume"] != "50ml" {
		t.Errorf("Walk(table) = %+v, %v", v, err)
	}

	v, err = Walk(header("Taste"))
	if err != nil || !v.Empty() {
		t.Errorf("Walk(header) = %+v, %v, want empty", v, err)
	}
}

func TestWalkContainerSkipsEmpty(t *testing.T) {
	n := container(
		text("a"),
		text(""),
		container(),
		table(),
		container(text("b")),
	)
	v, err := Walk(n)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != ValueList || len(v.Items) != 2 {
		t.Fatalf("Walk = %+v, want two items", v)
	}
	if v.Items[0].Text != "a" {
		t.Errorf("Items[0] = %+v", v.Items[0])
	}
	if inner := v.Items[1]; inner.Kind != ValueList || len(inner.Items) != 1 || inner.Items[0].Text != "b" {
		t.Errorf("Items[1] = %+v", inner)
	}
}

func TestWalkUnrecognizedNode(t *testing.T) {
	n := container(text("ok"), &models.ContentNode{Kind: models.KindUnknown, Tag: "iframe"})

	_, err := Walk(n)
	var unk *UnrecognizedNodeError
	if !errors.As(err, &unk) {
		t.Fatalf("err = %v, want UnrecognizedNodeError", err)
	}
	if unk.Tag != "iframe" {
		t.Errorf("Tag = %q", unk.Tag)
	}

	if _, err := Sections(container(header("Product description"), n)); !errors.As(err, &unk) {
		t.Errorf("Sections err = %v, want UnrecognizedNodeError", err)
	}
}

func TestSectionsGrouping(t *testing.T) {
	root := container(
		text("preamble"),
		header("Product description"),
		container(text("Line one"), text("Line two")),
		header("Product details"),
		table(models.Row{Key: "Volume", Value: "50ml"}),
		header("Empty"),
	)
	secs, err := Sections(root)
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"", "Product description", "Product details", "Empty"}
	if len(secs) != len(names) {
		t.Fatalf("got %d sections, want %d: %+v", len(secs), len(names), secs)
	}
	for i, want := range names {
		if secs[i].Name != want {
			t.Errorf("secs[%d].Name = %q, want %q", i, secs[i].Name, want)
		}
	}
	if len(secs[1].Values) != 1 || len(secs[1].Values[0].Items) != 2 {
		t.Errorf("description values = %+v", secs[1].Values)
	}
	if secs[2].Values[0].Attrs["Volume"] != "50ml" {
		t.Errorf("details values = %+v", secs[2].Values)
	}
	if len(secs[3].Values) != 0 {
		t.Errorf("trailing header has values: %+v", secs[3].Values)
	}
}

func TestSectionsNestedHeaderMovesSection(t *testing.T) {
	root := container(
		header("Product description"),
		container(text("Intro"), header("Taste")),
		text("Smoky"),
	)
	secs, err := Sections(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(secs) != 2 {
		t.Fatalf("got %d sections, want 2: %+v", len(secs), secs)
	}
	if secs[0].Name != "Product description" || secs[0].Values[0].Items[0].Text != "Intro" {
		t.Errorf("secs[0] = %+v", secs[0])
	}
	if secs[1].Name != "Taste" || len(secs[1].Values) != 1 || secs[1].Values[0].Text != "Smoky" {
		t.Errorf("secs[1] = %+v", secs[1])
	}
}

func TestSectionsIndependentCalls(t *testing.T) {
	a := container(header("A"), container(header("B")))
	if _, err := Sections(a); err != nil {
		t.Fatal(err)
	}
	secs, err := Sections(container(text("x")))
	if err != nil {
		t.Fatal(err)
	}
	if len(secs) != 1 || secs[0].Name != "" {
		t.Errorf("state leaked between calls: %+v", secs)
	}
}
