// Package dom holds the small set of tree operations the hadith pipeline
// needs on top of golang.org/x/net/html nodes.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsText reports whether n is a text node.
func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Attr looks up an attribute by key.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Classes returns the class tokens of n.
func Classes(n *html.Node) []string {
	v, ok := Attr(n, "class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// HasClass reports whether n is an element carrying the class token.
func HasClass(n *html.Node, class string) bool {
	if !IsElement(n) {
		return false
	}
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// FindDescendant returns the first descendant element of n, in document
// order, that satisfies match.
func FindDescendant(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) && match(c) {
			return c
		}
		if found := FindDescendant(c, match); found != nil {
			return found
		}
	}
	return nil
}

// FindByClass returns the first descendant element with the class token.
func FindByClass(n *html.Node, class string) *html.Node {
	return FindDescendant(n, func(c *html.Node) bool { return HasClass(c, class) })
}

// Walk visits every element below n in document order.
func Walk(n *html.Node, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			visit(c)
		}
		Walk(c, visit)
	}
}

// Text returns the concatenated text content of n and its descendants.
// Comments are not text.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	collectText(n, &b)
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, b)
		}
	}
}

// Clone returns a deep copy of n detached from any tree.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Remove detaches n from its parent. It is a no-op for a root node.
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Children returns the direct children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// SiblingText returns the trimmed text of a sibling, or "" for nil.
func SiblingText(n *html.Node) string {
	if n == nil || n.Type == html.CommentNode {
		return ""
	}
	return strings.TrimSpace(Text(n))
}

// NewDiv creates a detached div with the given class and attributes,
// supplied as key/value pairs.
func NewDiv(class string, kv ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
	}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

// Render serializes n to HTML.
func Render(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}
