package main

import (
	"bytes"
	"encoding/base64"
	"log"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// RenderedArticle is the renderer output for one document tree.
type RenderedArticle struct {
	Text          string
	Tags          []string
	LanguageLinks []LanguageLink
}

// Renderer turns a document tree into a constrained XHTML body. It is
// configuration only; all per-article state lives in a renderRun, so a
// Renderer is safe to share and rendering is repeatable.
type Renderer struct {
	Filters *Filters
	Math    MathRenderer
}

// renderAction tells the tree walk what to do after a node produced its
// element.
type renderAction int

const (
	renderChildren renderAction = iota
	skipChildren
	suppress
)

// renderRun holds the state of one article render: reference bookkeeping,
// collected language links and the bracketed external link counter.
type renderRun struct {
	filters   *Filters
	math      MathRenderer
	refs      *referenceTracker
	langLinks []LanguageLink
	linkCount int
}

// Render serializes the document to a single-root XHTML fragment and returns
// it together with extracted tags and language links.
func (r *Renderer) Render(doc *Node) (*RenderedArticle, error) {
	run := &renderRun{
		filters:   r.Filters,
		math:      r.Math,
		refs:      newReferenceTracker(),
		linkCount: 1,
	}
	if run.filters == nil {
		run.filters = NewFilters()
	}

	root := elem("div")
	run.render(doc, root)
	out := root
	// the document node renders its own root element
	if root.FirstChild != nil && root.FirstChild == root.LastChild &&
		root.FirstChild.Type == html.ElementNode {
		out = root.FirstChild
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, out); err != nil {
		return nil, err
	}
	return &RenderedArticle{
		Text:          buf.String(),
		Tags:          []string{},
		LanguageLinks: run.langLinks,
	}, nil
}

func elem(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func (run *renderRun) render(n *Node, parent *html.Node) {
	el, action := run.element(n)
	switch action {
	case suppress:
		return
	case skipChildren:
		if el != nil {
			parent.AppendChild(el)
		}
	default:
		target := parent
		if el != nil {
			parent.AppendChild(el)
			target = el
		}
		for _, c := range n.Children {
			run.render(c, target)
		}
	}
}

func (run *renderRun) renderChildren(n *Node, parent *html.Node) {
	for _, c := range n.Children {
		run.render(c, parent)
	}
}

// element maps one tree node to its output element and tells the walk how to
// proceed. Every node kind is handled here; styled inline elements share the
// generic path.
func (run *renderRun) element(n *Node) (*html.Node, renderAction) {
	switch n.Kind {
	case KindText:
		return textNode(n.Text), skipChildren

	case KindArticle, KindChapter:
		div := elem("div")
		h := elem("h1")
		h.AppendChild(textNode(n.Caption))
		div.AppendChild(h)
		return div, renderChildren

	case KindSection:
		div := elem("div")
		level := 2 + n.Level
		if level > 6 {
			level = 6
		}
		h := elem("h" + strconv.Itoa(level))
		h.AppendChild(textNode(n.Caption))
		div.AppendChild(h)
		return div, renderChildren

	case KindParagraph:
		// a div rather than a real paragraph: the markup freely nests
		// block elements that XHTML forbids inside <p>
		return elem("div"), renderChildren

	case KindPreformatted:
		return elem("pre"), renderChildren

	case KindArticleLink, KindInterwikiLink, KindNamespaceLink:
		a := elem("a", attr("href", n.Target))
		if len(n.Children) == 0 {
			a.AppendChild(textNode(n.Target))
			return a, skipChildren
		}
		return a, renderChildren

	case KindSpecialLink:
		a := elem("a", attr("href", "#"))
		if len(n.Children) == 0 {
			a.AppendChild(textNode(n.Target))
			return a, skipChildren
		}
		return a, renderChildren

	case KindCategoryLink, KindImageLink, KindImageMap, KindGallery:
		return nil, suppress

	case KindLanguageLink:
		run.langLinks = append(run.langLinks, LanguageLink{
			Namespace: n.Namespace,
			Target:    n.Target,
		})
		return nil, suppress

	case KindURL:
		a := elem("a", attr("href", n.Caption), attr("class", "mwx.link.external"))
		if len(n.Children) == 0 {
			a.AppendChild(textNode(n.Caption))
			return a, skipChildren
		}
		return a, renderChildren

	case KindNamedURL:
		a := elem("a", attr("href", n.Caption))
		if len(n.Children) == 0 {
			a.AppendChild(textNode("[" + strconv.Itoa(run.linkCount) + "]"))
			run.linkCount++
			return a, skipChildren
		}
		return a, renderChildren

	case KindTable:
		if run.filters.SuppressElement(n.Attr("class"), n.Attr("id")) {
			return nil, suppress
		}
		return elem("table"), renderChildren

	case KindTableRow:
		return elem("tr"), renderChildren

	case KindTableCell:
		if n.Header {
			return elem("th"), renderChildren
		}
		return elem("td"), renderChildren

	case KindTableCaption:
		return elem("caption"), renderChildren

	case KindItemList:
		if n.Ordered {
			return elem("ol"), renderChildren
		}
		return elem("ul"), renderChildren

	case KindItem:
		return elem("li"), renderChildren

	case KindDefinitionList:
		return elem("dl"), renderChildren

	case KindDefinitionTerm:
		return elem("dt"), renderChildren

	case KindDefinitionDescription:
		return elem("dd"), renderChildren

	case KindReference:
		return run.referenceMarker(n), skipChildren

	case KindReferenceList:
		return run.referenceList(n)

	case KindMath:
		return run.mathElement(n), skipChildren

	case KindTimeline:
		return placeholderObject("application/mediawiki-timeline", "Timeline", n.Caption), skipChildren

	case KindHiero:
		return placeholderObject("application/mediawiki-hiero", "Hiero", n.Caption), skipChildren

	case KindBreakingReturn:
		return elem("br"), skipChildren

	case KindHorizontalRule:
		return elem("hr"), skipChildren

	case KindBlockquote:
		return elem("blockquote"), renderChildren

	case KindIndented:
		return elem("blockquote", attr("class", "indent")), renderChildren

	case KindGeneric:
		if run.filters.SuppressElement(n.Attr("class"), n.Attr("id")) {
			return nil, suppress
		}
		var attrs []html.Attribute
		if cl := n.Attr("class"); cl != "" {
			attrs = append(attrs, attr("class", cl))
		}
		if id := n.Attr("id"); id != "" {
			attrs = append(attrs, attr("id", id))
		}
		return elem(n.Tag, attrs...), renderChildren
	}

	// unknown kinds are transparent
	return nil, renderChildren
}

// referenceMarker registers the reference and emits its inline marker.
func (run *renderRun) referenceMarker(n *Node) *html.Node {
	group := n.Attr("group")
	seq, note, marker := run.refs.register(group, n.Attr("name"), n)
	a := elem("a",
		attr("id", marker),
		attr("href", "#"),
		attr("onclick", "return s('"+note+"')"))
	label := strings.TrimSpace(group + " " + strconv.Itoa(seq))
	a.AppendChild(textNode("[" + label + "]"))
	return a
}

// referenceList renders and consumes the collected references of the block's
// group. A group with nothing collected produces no output at all.
func (run *renderRun) referenceList(n *Node) (*html.Node, renderAction) {
	group := n.Attr("group")
	refs := run.refs.take(group)
	if len(refs) == 0 {
		return nil, suppress
	}

	ol := elem("ol")
	for i, ref := range refs {
		note := noteID(group, i+1)
		li := elem("li", attr("id", note))
		b := elem("b")
		li.AppendChild(b)
		li.AppendChild(textNode(" "))

		name := ref.Attr("name")
		count := run.refs.occurrences(group, name)
		switch {
		case name != "" && count == 1:
			b.AppendChild(backlink("_r"+note+"_0", "↑"))
		case name != "" && count > 1:
			b.AppendChild(textNode("↑ "))
			sup := elem("sup")
			for j := 0; j < count; j++ {
				sup.AppendChild(backlink("_r"+note+"_"+strconv.Itoa(j), strconv.Itoa(j+1)))
				sup.AppendChild(textNode(" "))
			}
			b.AppendChild(sup)
		default:
			b.AppendChild(backlink("_r"+note, "↑"))
		}

		run.renderChildren(ref, li)
		ol.AppendChild(li)
	}
	return ol, skipChildren
}

func backlink(id, label string) *html.Node {
	a := elem("a",
		attr("href", "#"+id),
		attr("onclick", "return s('"+id+"')"))
	a.AppendChild(textNode(label))
	return a
}

// mathElement renders the expression to an embedded image, degrading to a
// plain text span when no renderer is available or rendering fails.
func (run *renderRun) mathElement(n *Node) *html.Node {
	if run.math != nil {
		png, err := run.math.Render(n.Caption)
		if err == nil {
			src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
			return elem("img", attr("src", src), attr("class", "tex"))
		}
		log.Printf("failed to render math %q: %v", n.Caption, err)
	}
	span := elem("span", attr("class", "tex"))
	span.AppendChild(textNode(n.Caption))
	return span
}

func placeholderObject(mediaType, label, src string) *html.Node {
	obj := elem("object",
		attr("type", mediaType),
		attr("src", "data:text/plain;charset=utf-8,"+src))
	em := elem("em")
	em.AppendChild(textNode(label))
	obj.AppendChild(em)
	return obj
}
