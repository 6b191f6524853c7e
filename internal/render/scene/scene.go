// Package scene is a small declarative element tree: the chart describes
// what the document should look like, a render target turns it into bytes.
//
// Selectors are "tag", "tag.class", ".class" or "tag.class1.class2"; every
// listed class must be present for a match.
package scene

import (
	"math"
	"strconv"
	"strings"
)

// Attr is one name/value pair. Order of first assignment is kept.
type Attr struct {
	Name  string
	Value string
}

// Node is one element.
type Node struct {
	Tag      string
	Classes  []string
	Key      string
	Text     string
	Children []*Node

	attrs  []Attr
	styles []Attr
	parent *Node
}

// New creates a detached node from a selector such as "g.plot".
func New(selector string) *Node {
	tag, classes := parseSelector(selector)
	if tag == "" {
		tag = "g"
	}
	return &Node{Tag: tag, Classes: classes}
}

// Parent returns the enclosing node, nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Attr sets an attribute and returns n.
func (n *Node) Attr(name, value string) *Node {
	n.attrs = set(n.attrs, name, value)
	return n
}

// AttrFloat sets a numeric attribute in its shortest form.
func (n *Node) AttrFloat(name string, v float64) *Node {
	return n.Attr(name, FormatFloat(v))
}

// Style sets one inline style property and returns n.
func (n *Node) Style(name, value string) *Node {
	n.styles = set(n.styles, name, value)
	return n
}

// SetText replaces the text content and returns n.
func (n *Node) SetText(text string) *Node {
	n.Text = text
	return n
}

// AddClass adds class if missing and returns n.
func (n *Node) AddClass(class string) *Node {
	if !n.HasClass(class) {
		n.Classes = append(n.Classes, class)
	}
	return n
}

// HasClass reports whether n carries class.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Get returns an attribute value.
func (n *Node) Get(name string) (string, bool) {
	return get(n.attrs, name)
}

// GetStyle returns an inline style value.
func (n *Node) GetStyle(name string) (string, bool) {
	return get(n.styles, name)
}

// Attrs returns the attributes in assignment order.
func (n *Node) Attrs() []Attr {
	return append([]Attr(nil), n.attrs...)
}

// Styles returns the inline styles in assignment order.
func (n *Node) Styles() []Attr {
	return append([]Attr(nil), n.styles...)
}

// Append adds a new child built from selector and returns it.
func (n *Node) Append(selector string) *Node {
	c := New(selector)
	n.adopt(c)
	return c
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// Matches reports whether n matches selector.
func (n *Node) Matches(selector string) bool {
	tag, classes := parseSelector(selector)
	if tag != "" && tag != n.Tag {
		return false
	}
	for _, c := range classes {
		if !n.HasClass(c) {
			return false
		}
	}
	return true
}

// Select returns the first descendant matching selector in document order.
func (n *Node) Select(selector string) *Node {
	for _, c := range n.Children {
		if c.Matches(selector) {
			return c
		}
		if d := c.Select(selector); d != nil {
			return d
		}
	}
	return nil
}

// SelectAll returns every descendant matching selector in document order.
func (n *Node) SelectAll(selector string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.Children {
			if c.Matches(selector) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// AppendSelect returns the first direct child of parent matching selector,
// appending a new one when there is none. Calling it again with the same
// selector never duplicates the child.
func AppendSelect(parent *Node, selector string) *Node {
	for _, c := range parent.Children {
		if c.Matches(selector) {
			return c
		}
	}
	return parent.Append(selector)
}

// JoinResult is the outcome of Join. Nodes holds one node per key, in key
// order; Enter and Exit count created and removed nodes.
type JoinResult struct {
	Nodes []*Node
	Enter int
	Exit  int
}

// Join makes the direct children of parent that match selector correspond
// one-to-one with keys. Children whose Key is listed are kept (update),
// missing keys get a new child (enter) and the rest are removed (exit).
// Joined children are moved after the other children, in key order.
func Join(parent *Node, selector string, keys []string) JoinResult {
	existing := make(map[string]*Node)
	kept := parent.Children[:0:0]
	for _, c := range parent.Children {
		if c.Matches(selector) {
			if _, dup := existing[c.Key]; !dup {
				existing[c.Key] = c
				continue
			}
		}
		kept = append(kept, c)
	}

	res := JoinResult{Nodes: make([]*Node, len(keys))}
	for i, k := range keys {
		if c, ok := existing[k]; ok {
			res.Nodes[i] = c
			delete(existing, k)
			continue
		}
		c := New(selector)
		c.Key = k
		c.parent = parent
		res.Nodes[i] = c
		res.Enter++
	}

	// Anything still matching the selector but not claimed by a key leaves.
	final := kept[:0:0]
	for _, c := range kept {
		if c.Matches(selector) {
			c.parent = nil
			res.Exit++
			continue
		}
		final = append(final, c)
	}
	for _, c := range existing {
		c.parent = nil
		res.Exit++
	}
	parent.Children = append(final, res.Nodes...)
	return res
}

func (n *Node) adopt(c *Node) {
	c.parent = n
	n.Children = append(n.Children, c)
}

func parseSelector(selector string) (string, []string) {
	parts := strings.Split(strings.TrimSpace(selector), ".")
	var classes []string
	for _, p := range parts[1:] {
		if p != "" {
			classes = append(classes, p)
		}
	}
	return parts[0], classes
}

func set(list []Attr, name, value string) []Attr {
	for i := range list {
		if list[i].Name == name {
			list[i].Value = value
			return list
		}
	}
	return append(list, Attr{Name: name, Value: value})
}

func get(list []Attr, name string) (string, bool) {
	for _, a := range list {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// FormatFloat renders v rounded to three decimals in its shortest form.
func FormatFloat(v float64) string {
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		v = math.Round(v*1000) / 1000
	}
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
