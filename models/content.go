package models

// NodeKind discriminates the ContentNode tagged union.
type NodeKind int

const (
	// KindUnknown marks an element outside the recognised tag set. Tag
	// holds the original element name.
	KindUnknown NodeKind = iota
	KindHeader
	KindContainer
	KindText
	KindTable
)

func (k NodeKind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindContainer:
		return "container"
	case KindText:
		return "text"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// Row is one key/value pair of a specification table. Either side may hold
// several line-joined sub-rows.
type Row struct {
	Key   string
	Value string
}

// ContentNode is one node of the partner-site content tree.
//
// Header and Text carry Text; Container carries Children in document order;
// Table carries Rows. Nodes are not mutated once built.
type ContentNode struct {
	Kind     NodeKind
	Tag      string
	Text     string
	Children []*ContentNode
	Rows     []Row
}

// Page is a rendered document handed from the renderer to the extractors.
type Page struct {
	URL        string
	FinalURL   string
	HTML       string
	Title      string
	StatusCode int
	Engine     string
}

// RenderOptions tunes a single render. The zero value renders the page with
// the default settle strategy.
type RenderOptions struct {
	// WaitSelector, when set, blocks until an element matching it exists.
	WaitSelector string

	// ClickText clicks the first button whose text matches, best-effort.
	// Used to dismiss consent dialogs.
	ClickText string

	// Stealth injects the stealth evasions before navigation.
	Stealth bool
}

// Browser reports whether the options need a live browser session.
func (o RenderOptions) Browser() bool {
	return o.WaitSelector != "" || o.ClickText != ""
}
