package main

import (
	"regexp"
	"strings"
)

// WikitextParser is the built-in Parser implementation. It covers the subset
// of wiki markup the renderer understands: headings, paragraphs, lists,
// tables, quotes, link forms, external URLs, ref/references, math and a small
// inline HTML vocabulary. Templates and comments are stripped.
type WikitextParser struct{}

func NewWikitextParser() *WikitextParser {
	return &WikitextParser{}
}

var (
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	behaviorRe    = regexp.MustCompile(`__[A-Z]+__`)
	headingLinkRe = regexp.MustCompile(`\[\[(?:[^\[\]|]*\|)?([^\[\]|]*)\]\]`)
	bareURLRe     = regexp.MustCompile(`^(?:https?|ftp)://[^\s\[\]<>"]+`)
	tagRe         = regexp.MustCompile(`^<(/?)([a-zA-Z][a-zA-Z0-9]*)((?:\s[^<>]*?)?)(/?)>`)
	tagAttrRe     = regexp.MustCompile(`([a-zA-Z:-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)
	namespaceRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _-]*$`)
)

// Inline HTML elements passed through as generic elements.
var inlineTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true, "em": true, "strong": true,
	"small": true, "big": true, "sub": true, "sup": true, "code": true,
	"tt": true, "span": true, "div": true, "var": true, "cite": true,
	"del": true, "ins": true, "abbr": true, "dfn": true, "kbd": true,
	"q": true, "blockquote": true, "center": true, "pre": true, "font": true,
}

// Interwiki language prefixes recognized as language links. Unlisted
// prefixes fall through to namespace links, which is harmless.
var languageCodes = map[string]bool{
	"aa": true, "af": true, "am": true, "an": true, "ar": true, "ast": true,
	"az": true, "ba": true, "be": true, "bg": true, "bn": true, "br": true,
	"bs": true, "ca": true, "ceb": true, "co": true, "cs": true, "cv": true,
	"cy": true, "da": true, "de": true, "el": true, "en": true, "eo": true,
	"es": true, "et": true, "eu": true, "fa": true, "fi": true, "fo": true,
	"fr": true, "fy": true, "ga": true, "gd": true, "gl": true, "gu": true,
	"he": true, "hi": true, "hr": true, "ht": true, "hu": true, "hy": true,
	"ia": true, "id": true, "io": true, "is": true, "it": true, "ja": true,
	"jv": true, "ka": true, "kk": true, "kn": true, "ko": true, "ku": true,
	"la": true, "lb": true, "li": true, "lt": true, "lv": true, "mg": true,
	"mi": true, "mk": true, "ml": true, "mn": true, "mr": true, "ms": true,
	"my": true, "nah": true, "nds": true, "ne": true, "nl": true, "nn": true,
	"no": true, "oc": true, "os": true, "pa": true, "pl": true, "pt": true,
	"qu": true, "ro": true, "ru": true, "sa": true, "sco": true, "sh": true,
	"si": true, "sk": true, "sl": true, "sq": true, "sr": true, "su": true,
	"sv": true, "sw": true, "ta": true, "te": true, "tg": true, "th": true,
	"tl": true, "tr": true, "tt": true, "uk": true, "ur": true, "uz": true,
	"vi": true, "vo": true, "wa": true, "war": true, "yi": true, "yo": true,
	"zh": true, "simple": true, "zh-min-nan": true, "zh-yue": true,
	"bat-smg": true, "be-x-old": true, "roa-rup": true, "roa-tara": true,
	"fiu-vro": true, "zh-classical": true, "nds-nl": true, "map-bms": true,
}

func isLanguageCode(prefix string) bool {
	return languageCodes[prefix]
}

// Parse builds a document tree for one article.
func (p *WikitextParser) Parse(title, raw string) (*Node, error) {
	text := commentRe.ReplaceAllString(raw, "")
	text = stripTemplates(text)
	text = behaviorRe.ReplaceAllString(text, "")

	doc := &Node{Kind: KindArticle, Caption: title}
	container := doc

	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], " \t")
		switch {
		case line == "":
			i++
		case strings.HasPrefix(line, "="):
			if level, caption, ok := splitHeading(line); ok {
				sec := &Node{Kind: KindSection, Caption: caption, Level: max(level-1, 0)}
				doc.Append(sec)
				container = sec
				i++
			} else {
				i = p.parseParagraph(lines, i, container)
			}
		case strings.HasPrefix(line, "----"):
			container.Append(&Node{Kind: KindHorizontalRule})
			i++
		case strings.HasPrefix(line, "{|"):
			i = p.parseTable(lines, i, container)
		case line[0] == '*' || line[0] == '#':
			i = p.parseList(lines, i, container)
		case line[0] == ';':
			i = p.parseDefinition(lines, i, container)
		case line[0] == ':':
			ind := &Node{Kind: KindIndented}
			ind.Append(p.parseInline(strings.TrimSpace(line[1:]))...)
			container.Append(ind)
			i++
		case lines[i][0] == ' ':
			i = p.parsePreformatted(lines, i, container)
		default:
			i = p.parseParagraph(lines, i, container)
		}
	}
	return doc, nil
}

func stripTemplates(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	i := 0
	for i < len(s) {
		if strings.HasPrefix(s[i:], "{{") {
			depth++
			i += 2
			continue
		}
		if depth > 0 && strings.HasPrefix(s[i:], "}}") {
			depth--
			i += 2
			continue
		}
		if depth == 0 {
			b.WriteByte(s[i])
		}
		i++
	}
	return b.String()
}

// splitHeading returns the heading level and caption for "== Title ==" style
// lines. Link and quote markup inside the caption is flattened to text.
func splitHeading(line string) (int, string, bool) {
	if !strings.HasSuffix(line, "=") || len(line) < 3 {
		return 0, "", false
	}
	left := 0
	for left < len(line) && line[left] == '=' {
		left++
	}
	right := 0
	for right < len(line)-left && line[len(line)-1-right] == '=' {
		right++
	}
	level := min(left, right)
	if level == 0 || level > 6 {
		return 0, "", false
	}
	caption := strings.TrimSpace(line[level : len(line)-level])
	if caption == "" {
		return 0, "", false
	}
	caption = headingLinkRe.ReplaceAllString(caption, "$1")
	caption = strings.ReplaceAll(caption, "'''", "")
	caption = strings.ReplaceAll(caption, "''", "")
	return level, caption, true
}

func isStructureLine(line string) bool {
	if line == "" {
		return true
	}
	switch line[0] {
	case '=', '*', '#', ';', ':', ' ':
		return true
	}
	return strings.HasPrefix(line, "{|") || strings.HasPrefix(line, "----")
}

func (p *WikitextParser) parseParagraph(lines []string, i int, parent *Node) int {
	var collected []string
	for i < len(lines) {
		line := strings.TrimRight(lines[i], " \t")
		if isStructureLine(line) {
			break
		}
		collected = append(collected, line)
		i++
	}
	para := &Node{Kind: KindParagraph}
	para.Append(p.parseInline(strings.Join(collected, "\n"))...)
	parent.Append(para)
	return i
}

func (p *WikitextParser) parsePreformatted(lines []string, i int, parent *Node) int {
	var collected []string
	for i < len(lines) && strings.HasPrefix(lines[i], " ") {
		collected = append(collected, lines[i][1:])
		i++
	}
	pre := &Node{Kind: KindPreformatted}
	pre.Append(NewText(strings.Join(collected, "\n")))
	parent.Append(pre)
	return i
}

func (p *WikitextParser) parseList(lines []string, i int, parent *Node) int {
	type frame struct {
		list  *Node
		depth int
	}
	var stack []frame
	for i < len(lines) {
		line := lines[i]
		if line == "" || (line[0] != '*' && line[0] != '#') {
			break
		}
		depth := 0
		for depth < len(line) && (line[depth] == '*' || line[depth] == '#') {
			depth++
		}
		ordered := line[depth-1] == '#'
		content := strings.TrimSpace(line[depth:])

		for len(stack) > 0 && stack[len(stack)-1].depth > depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && stack[len(stack)-1].depth == depth &&
			stack[len(stack)-1].list.Ordered != ordered {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 || stack[len(stack)-1].depth < depth {
			list := &Node{Kind: KindItemList, Ordered: ordered}
			if len(stack) == 0 {
				parent.Append(list)
			} else {
				top := stack[len(stack)-1].list
				if n := len(top.Children); n > 0 {
					top.Children[n-1].Append(list)
				} else {
					item := &Node{Kind: KindItem}
					item.Append(list)
					top.Append(item)
				}
			}
			stack = append(stack, frame{list: list, depth: depth})
		}
		item := &Node{Kind: KindItem}
		item.Append(p.parseInline(content)...)
		stack[len(stack)-1].list.Append(item)
		i++
	}
	return i
}

func (p *WikitextParser) parseDefinition(lines []string, i int, parent *Node) int {
	dl := &Node{Kind: KindDefinitionList}
	for i < len(lines) {
		line := lines[i]
		if line == "" || (line[0] != ';' && line[0] != ':') {
			break
		}
		kind := KindDefinitionTerm
		if line[0] == ':' {
			kind = KindDefinitionDescription
		}
		entry := &Node{Kind: kind}
		content := line[1:]
		// "; term : description" on one line
		if kind == KindDefinitionTerm {
			if term, desc, found := strings.Cut(content, " : "); found {
				entry.Append(p.parseInline(strings.TrimSpace(term))...)
				dl.Append(entry)
				desc2 := &Node{Kind: KindDefinitionDescription}
				desc2.Append(p.parseInline(strings.TrimSpace(desc))...)
				dl.Append(desc2)
				i++
				continue
			}
		}
		entry.Append(p.parseInline(strings.TrimSpace(content))...)
		dl.Append(entry)
		i++
	}
	parent.Append(dl)
	return i
}

func (p *WikitextParser) parseTable(lines []string, i int, parent *Node) int {
	table := &Node{Kind: KindTable}
	applyTagAttrs(table, strings.TrimPrefix(lines[i], "{|"))
	parent.Append(table)
	i++

	var row *Node
	ensureRow := func() *Node {
		if row == nil {
			row = &Node{Kind: KindTableRow}
			table.Append(row)
		}
		return row
	}
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, "|}"):
			return i + 1
		case strings.HasPrefix(line, "|+"):
			caption := &Node{Kind: KindTableCaption}
			caption.Append(p.parseInline(strings.TrimSpace(line[2:]))...)
			table.Append(caption)
		case strings.HasPrefix(line, "|-"):
			row = &Node{Kind: KindTableRow}
			table.Append(row)
		case strings.HasPrefix(line, "!"):
			for _, c := range strings.Split(line[1:], "!!") {
				cell := &Node{Kind: KindTableCell, Header: true}
				cell.Append(p.parseInline(stripCellAttrs(c))...)
				ensureRow().Append(cell)
			}
		case strings.HasPrefix(line, "|"):
			for _, c := range strings.Split(line[1:], "||") {
				cell := &Node{Kind: KindTableCell}
				cell.Append(p.parseInline(stripCellAttrs(c))...)
				ensureRow().Append(cell)
			}
		default:
			if row != nil && len(row.Children) > 0 {
				last := row.Children[len(row.Children)-1]
				last.Append(p.parseInline(line)...)
			}
		}
		i++
	}
	return i
}

// stripCellAttrs drops a leading attribute segment like `style=".."|` from a
// table cell.
func stripCellAttrs(cell string) string {
	if idx := strings.IndexByte(cell, '|'); idx >= 0 {
		head := cell[:idx]
		if strings.Contains(head, "=") && !strings.Contains(head, "[[") {
			cell = cell[idx+1:]
		}
	}
	return strings.TrimSpace(cell)
}

func hasURLPrefix(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "ftp://")
}

func (p *WikitextParser) parseInline(s string) []*Node {
	var nodes []*Node
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, NewText(text.String()))
			text.Reset()
		}
	}
	emit := func(n *Node) {
		if n != nil {
			flush()
			nodes = append(nodes, n)
		}
	}

	i := 0
	for i < len(s) {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, "[["):
			end := matchLinkBrackets(s, i)
			if end < 0 {
				text.WriteString("[[")
				i += 2
				break
			}
			emit(p.parseLink(s[i+2 : end-2]))
			i = end
		case rest[0] == '[' && len(rest) > 1 && hasURLPrefix(rest[1:]):
			cb := strings.IndexByte(rest, ']')
			if cb < 0 {
				text.WriteByte('[')
				i++
				break
			}
			emit(p.parseExternalLink(rest[1:cb]))
			i += cb + 1
		case hasURLPrefix(rest):
			m := bareURLRe.FindString(rest)
			emit(&Node{Kind: KindURL, Caption: m})
			i += len(m)
		case strings.HasPrefix(rest, "'''''"):
			body, next, ok := quoteSpan(s, i, "'''''")
			if !ok {
				text.WriteString("'''''")
				i += 5
				break
			}
			inner := &Node{Kind: KindGeneric, Tag: "i"}
			inner.Children = p.parseInline(body)
			bold := &Node{Kind: KindGeneric, Tag: "b"}
			bold.Append(inner)
			emit(bold)
			i = next
		case strings.HasPrefix(rest, "'''"):
			body, next, ok := quoteSpan(s, i, "'''")
			if !ok {
				text.WriteString("'''")
				i += 3
				break
			}
			bold := &Node{Kind: KindGeneric, Tag: "b"}
			bold.Children = p.parseInline(body)
			emit(bold)
			i = next
		case strings.HasPrefix(rest, "''"):
			body, next, ok := quoteSpan(s, i, "''")
			if !ok {
				text.WriteString("''")
				i += 2
				break
			}
			em := &Node{Kind: KindGeneric, Tag: "i"}
			em.Children = p.parseInline(body)
			emit(em)
			i = next
		case rest[0] == '<':
			handled, n, next := p.parseTag(s, i)
			if !handled {
				text.WriteByte('<')
				i++
				break
			}
			if n != nil {
				if n.Kind == KindText {
					flush()
					nodes = append(nodes, n)
				} else {
					emit(n)
				}
			} else {
				flush()
			}
			i = next
		default:
			text.WriteByte(rest[0])
			i++
		}
	}
	flush()
	return nodes
}

// matchLinkBrackets returns the index just past the "]]" matching the "[["
// at start, honoring nesting, or -1.
func matchLinkBrackets(s string, start int) int {
	depth := 0
	i := start
	for i < len(s)-1 {
		if s[i] == '[' && s[i+1] == '[' {
			depth++
			i += 2
			continue
		}
		if s[i] == ']' && s[i+1] == ']' {
			depth--
			i += 2
			if depth == 0 {
				return i
			}
			continue
		}
		i++
	}
	return -1
}

func quoteSpan(s string, start int, marker string) (string, int, bool) {
	from := start + len(marker)
	idx := strings.Index(s[from:], marker)
	if idx < 0 {
		return "", 0, false
	}
	return s[from : from+idx], from + idx + len(marker), true
}

func (p *WikitextParser) parseLink(inner string) *Node {
	parts := strings.Split(inner, "|")
	target := strings.TrimSpace(parts[0])
	display := ""
	if len(parts) > 1 {
		display = strings.TrimSpace(parts[len(parts)-1])
	}
	forced := strings.HasPrefix(target, ":")
	if forced {
		target = strings.TrimSpace(strings.TrimPrefix(target, ":"))
	}
	if target == "" {
		return nil
	}

	withDisplay := func(n *Node) *Node {
		if display != "" && display != n.Target {
			n.Append(NewText(display))
		}
		return n
	}

	prefix, _, found := strings.Cut(target, ":")
	lower := strings.ToLower(strings.TrimSpace(prefix))
	if found {
		switch {
		case lower == "image" || lower == "file" || lower == "media":
			return &Node{Kind: KindImageLink, Target: target}
		case lower == "category":
			if forced {
				return withDisplay(&Node{Kind: KindNamespaceLink, Target: target})
			}
			return &Node{Kind: KindCategoryLink, Target: target}
		case isLanguageCode(lower):
			if forced {
				return withDisplay(&Node{Kind: KindInterwikiLink, Target: target})
			}
			return &Node{Kind: KindLanguageLink, Namespace: lower, Target: target}
		case namespaceRe.MatchString(prefix):
			return withDisplay(&Node{Kind: KindNamespaceLink, Target: target})
		}
	}
	return withDisplay(&Node{Kind: KindArticleLink, Target: target})
}

func (p *WikitextParser) parseExternalLink(inner string) *Node {
	url, label, found := strings.Cut(inner, " ")
	n := &Node{Kind: KindNamedURL, Caption: strings.TrimSpace(url)}
	if found {
		if label = strings.TrimSpace(label); label != "" {
			n.Append(NewText(label))
		}
	}
	return n
}

func (p *WikitextParser) parseTag(s string, i int) (bool, *Node, int) {
	m := tagRe.FindStringSubmatch(s[i:])
	if m == nil {
		return false, nil, 0
	}
	closing := m[1] == "/"
	name := strings.ToLower(m[2])
	attrs := m[3]
	selfClose := m[4] == "/"
	next := i + len(m[0])

	if closing {
		// stray closing tag, swallow
		return true, nil, next
	}

	switch name {
	case "ref":
		n := &Node{Kind: KindReference}
		applyTagAttrs(n, attrs)
		if selfClose {
			return true, n, next
		}
		body, after, ok := tagBody(s, next, "ref")
		if !ok {
			return true, n, len(s)
		}
		n.Children = p.parseInline(body)
		return true, n, after
	case "references":
		n := &Node{Kind: KindReferenceList}
		applyTagAttrs(n, attrs)
		if selfClose {
			return true, n, next
		}
		if _, after, ok := tagBody(s, next, "references"); ok {
			return true, n, after
		}
		return true, n, len(s)
	case "math", "timeline", "hiero":
		kinds := map[string]NodeKind{
			"math": KindMath, "timeline": KindTimeline, "hiero": KindHiero,
		}
		if selfClose {
			return true, nil, next
		}
		body, after, ok := tagBody(s, next, name)
		if !ok {
			body, after = s[next:], len(s)
		}
		return true, &Node{Kind: kinds[name], Caption: strings.TrimSpace(body)}, after
	case "nowiki":
		if selfClose {
			return true, nil, next
		}
		body, after, ok := tagBody(s, next, "nowiki")
		if !ok {
			body, after = s[next:], len(s)
		}
		return true, NewText(body), after
	case "br":
		return true, &Node{Kind: KindBreakingReturn}, next
	case "hr":
		return true, &Node{Kind: KindHorizontalRule}, next
	}

	if !inlineTags[name] {
		return false, nil, 0
	}
	n := &Node{Kind: KindGeneric, Tag: name}
	applyTagAttrs(n, attrs)
	if selfClose {
		return true, n, next
	}
	body, after, ok := tagBody(s, next, name)
	if !ok {
		body, after = s[next:], len(s)
	}
	n.Children = p.parseInline(body)
	return true, n, after
}

// tagBody returns the content between start and the first matching close tag,
// plus the index past that close tag.
func tagBody(s string, start int, name string) (string, int, bool) {
	lower := strings.ToLower(s)
	end := strings.Index(lower[start:], "</"+name)
	if end < 0 {
		return "", 0, false
	}
	end += start
	gt := strings.IndexByte(s[end:], '>')
	if gt < 0 {
		return "", 0, false
	}
	return s[start:end], end + gt + 1, true
}

func applyTagAttrs(n *Node, attrs string) {
	for _, m := range tagAttrRe.FindAllStringSubmatch(attrs, -1) {
		val := m[2]
		if val == "" {
			val = m[3]
		}
		if val == "" {
			val = m[4]
		}
		n.SetAttr(strings.ToLower(m[1]), val)
	}
}
