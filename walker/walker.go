// Package walker converts a partner-site content tree into nested values
// grouped by section header, and flattens specification tables.
package walker

import (
	"fmt"

	"github.com/use-agent/enrich/models"
)

// ValueKind discriminates Value.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueText
	ValueList
	ValueAttrs
)

// Value is the result of walking one node. Lists keep child results in
// document order; the index is the child's sequential key.
type Value struct {
	Kind  ValueKind
	Text  string
	Items []Value
	Attrs models.AttributeMap
}

// Empty reports whether v carries nothing worth keeping in a parent.
func (v Value) Empty() bool {
	switch v.Kind {
	case ValueText:
		return v.Text == ""
	case ValueList:
		return len(v.Items) == 0
	case ValueAttrs:
		return len(v.Attrs) == 0
	default:
		return true
	}
}

// UnrecognizedNodeError reports an element outside the header, container,
// text and table set. The whole walk fails so the record is never built
// from a partially understood tree.
type UnrecognizedNodeError struct {
	Tag string
}

func (e *UnrecognizedNodeError) Error() string {
	return fmt.Sprintf("walker: unrecognized node <%s>", e.Tag)
}

// Section is the walked content that follows one top-level header.
type Section struct {
	Name   string
	Values []Value
}

// group pairs a top-level header with the siblings that follow it.
type group struct {
	header  string
	members []*models.ContentNode
}

// state is the per-walk accumulator. It lives for one Walk or Sections
// call and is never shared.
type state struct {
	section string
}

// Walk converts a single node. Headers produce an empty value.
func Walk(n *models.ContentNode) (Value, error) {
	var st state
	return st.walk(n)
}

// Sections groups root's children by header and walks every member. A
// header nested inside a member renames the section for the members that
// follow it. Members before the first header form a section with an empty
// name.
func Sections(root *models.ContentNode) ([]Section, error) {
	if root == nil {
		return nil, nil
	}
	children := root.Children
	if root.Kind != models.KindContainer {
		children = []*models.ContentNode{root}
	}

	st := &state{}
	var out []Section
	for _, g := range groupChildren(children) {
		st.section = g.header
		sec := Section{Name: g.header}
		for _, m := range g.members {
			v, err := st.walk(m)
			if err != nil {
				return nil, err
			}
			if !v.Empty() {
				sec.Values = append(sec.Values, v)
			}
			if st.section != sec.Name {
				out = append(out, sec)
				sec = Section{Name: st.section}
			}
		}
		out = append(out, sec)
	}
	return out, nil
}

func groupChildren(children []*models.ContentNode) []group {
	var groups []group
	cur := group{}
	started := false
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.Kind == models.KindHeader {
			if started || len(cur.members) > 0 {
				groups = append(groups, cur)
			}
			cur = group{header: c.Text}
			started = true
			continue
		}
		cur.members = append(cur.members, c)
	}
	if started || len(cur.members) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func (st *state) walk(n *models.ContentNode) (Value, error) {
	if n == nil {
		return Value{}, nil
	}
	switch n.Kind {
	case models.KindHeader:
		st.section = n.Text
		return Value{}, nil
	case models.KindContainer:
		list := Value{Kind: ValueList}
		for _, c := range n.Children {
			v, err := st.walk(c)
			if err != nil {
				return Value{}, err
			}
			if !v.Empty() {
				list.Items = append(list.Items, v)
			}
		}
		return list, nil
	case models.KindText:
		return Value{Kind: ValueText, Text: n.Text}, nil
	case models.KindTable:
		return Value{Kind: ValueAttrs, Attrs: ParseTable(n.Rows)}, nil
	default:
		return Value{}, &UnrecognizedNodeError{Tag: n.Tag}
	}
}
