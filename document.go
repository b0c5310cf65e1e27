package main

// NodeKind identifies a document tree node. The renderer dispatches on kind;
// simple styled elements all travel as KindGeneric with an HTML tag.
type NodeKind int

const (
	KindText NodeKind = iota
	KindArticle
	KindChapter
	KindSection
	KindParagraph
	KindPreformatted
	KindArticleLink
	KindInterwikiLink
	KindNamespaceLink
	KindCategoryLink
	KindLanguageLink
	KindImageLink
	KindImageMap
	KindGallery
	KindSpecialLink
	KindURL
	KindNamedURL
	KindTable
	KindTableRow
	KindTableCell
	KindTableCaption
	KindItemList
	KindItem
	KindDefinitionList
	KindDefinitionTerm
	KindDefinitionDescription
	KindReference
	KindReferenceList
	KindMath
	KindTimeline
	KindHiero
	KindBreakingReturn
	KindHorizontalRule
	KindBlockquote
	KindIndented
	KindGeneric
)

// Node is one node of a parsed article tree.
type Node struct {
	Kind      NodeKind
	Caption   string            // article/section heading, URL, math or timeline source
	Target    string            // link target title
	Namespace string            // language link namespace prefix
	Tag       string            // HTML tag for KindGeneric
	Attrs     map[string]string // element attributes (class, id, name, group)
	Level     int               // section depth, 1 = top level
	Ordered   bool              // numbered list
	Header    bool              // table header cell
	Text      string            // KindText content
	Children  []*Node
}

// Attr returns the named attribute or the empty string.
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SetAttr sets an attribute, allocating the map on first use.
func (n *Node) SetAttr(key, val string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = val
}

// Append adds children to the node.
func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// NewText returns a text node.
func NewText(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// Parser turns raw wiki markup into a document tree. The built-in wikitext
// parser implements it; a different markup front end can be swapped in.
type Parser interface {
	Parse(title, raw string) (*Node, error)
}
