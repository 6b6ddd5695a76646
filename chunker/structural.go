package chunker

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/webchunk/cleaner"
	"github.com/hazyhaar/webchunk/extract"
	"github.com/hazyhaar/webchunk/pattern"
)

// sectionSelectors is the pass-1 walk order: containers first, then
// paragraph-level elements, then table cells, lists, and headings. The
// ancestor guard means a container claims its subtree before any finer
// element inside it is visited again.
var sectionSelectors = []string{
	"section", "article", "main",
	"div.content-section", "div.module", "div.text", "div.content",
	"div.text-block", "div.main-content", "div.container", "div.row",
	"div.card", "div.content-main", "div.teaser-text", "div.publication-item",
	"div.news-item", "div.portlet-body", "div.event-details", "div.indico-content",
	"div.publication-list", "div.event-description", "div.news-content",
	"div.status-report", "div.status", "div.monitor", "div.experiment",
	"div.results", "div.timetable",
	"p", "p[id]", "span", "table", "table.i-table", "caption",
	"td", "th", "tr", "ul", "ol", "li",
	"h1", "h2", "h3", "h4", "h5", "h6",
}

// section is an in-progress structural unit: a title, accumulated content
// lines, and a heading level.
type section struct {
	title   string
	content []string
	level   int
}

// Structural produces structure-preserving chunks from a parsed page.
// Login and error pages yield nothing.
//
// Three passes, each only if the previous emitted nothing: an ordered
// selector walk, a heading-level stack, and finally the whole body as one
// section.
func (c *Chunker) Structural(doc *goquery.Document, pageURL string, depth int, language string, seen Registry) []Document {
	if doc == nil || extract.IsLoginPage(doc) || extract.IsErrorPage(doc) {
		return nil
	}
	pageTitle := extract.Title(doc)

	base := Metadata{
		Source:   pageURL,
		Title:    pageTitle,
		Depth:    depth,
		Language: language,
	}

	docs := c.structuralBySelectors(doc, base, seen)
	if len(docs) == 0 {
		docs = c.structuralByHeadings(doc, base, seen)
	}
	if len(docs) == 0 {
		docs = c.structuralWholeBody(doc, base, seen)
	}
	return docs
}

func (c *Chunker) structuralBySelectors(doc *goquery.Document, base Metadata, seen Registry) []Document {
	processed := make(map[*html.Node]bool)
	var docs []Document

	for _, sel := range sectionSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if processed[node] || ancestorProcessed(node, processed) {
				return
			}
			text := pattern.CollapseWhitespace(s.Text())
			if len(text) <= MinInitialChars {
				return
			}
			markSubtree(node, processed)

			title := base.Title
			if h := s.Find("h1, h2, h3, h4, h5, h6").First(); h.Length() > 0 {
				if t := pattern.CollapseWhitespace(h.Text()); t != "" {
					title = t
				}
			}
			meta := base
			meta.SectionTitle = title
			meta.SectionLevel = 1
			docs = append(docs, c.emitSection(&section{title: title, content: []string{text}, level: 1}, meta, seen)...)
		})
	}
	return docs
}

// structuralByHeadings builds sections from the heading hierarchy: each
// heading opens a slot at its level and flushes equal-or-deeper slots;
// paragraphs, list items, and cells append to the deepest open section.
func (c *Chunker) structuralByHeadings(doc *goquery.Document, base Metadata, seen Registry) []Document {
	active := make(map[int]*section)
	var docs []Document

	flush := func(level int) {
		sec := active[level]
		delete(active, level)
		if sec == nil {
			return
		}
		meta := base
		meta.SectionTitle = sec.title
		meta.SectionLevel = sec.level
		docs = append(docs, c.emitSection(sec, meta, seen)...)
	}

	doc.Find("h1, h2, h3, h4, h5, h6, p, li, td").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		text := pattern.CollapseWhitespace(s.Text())
		if text == "" {
			return
		}
		if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
			level := int(name[1] - '0')
			for i := level; i <= 6; i++ {
				flush(i)
			}
			active[level] = &section{title: text, level: level}
			return
		}
		if deepest := deepestLevel(active); deepest > 0 {
			active[deepest].content = append(active[deepest].content, text)
		}
	})

	levels := make([]int, 0, len(active))
	for l := range active {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	for _, l := range levels {
		flush(l)
	}
	return docs
}

func (c *Chunker) structuralWholeBody(doc *goquery.Document, base Metadata, seen Registry) []Document {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}
	text := pattern.CollapseWhitespace(body.Text())
	if text == "" {
		return nil
	}
	meta := base
	meta.SectionTitle = base.Title
	meta.SectionLevel = 0
	return c.chunks(text, meta, TypeStructural, seen)
}

// emitSection cleans a section's joined text and windows it through the
// character splitter as structural chunks.
func (c *Chunker) emitSection(sec *section, meta Metadata, seen Registry) []Document {
	if len(sec.content) == 0 {
		return nil
	}
	text := strings.TrimSpace(strings.Join(sec.content, "\n"))
	full := text
	if sec.title != "" {
		full = sec.title + "\n\n" + text
	}
	if len(full) < MinChunkChars {
		return nil
	}
	cleanedFull := cleaner.Clean(full)
	if cleanedFull == "" {
		return nil
	}
	docs := c.chunks(cleanedFull, meta, TypeStructural, seen)
	kept := docs[:0]
	for _, d := range docs {
		if len(d.Content) >= MinChunkChars {
			kept = append(kept, d)
		}
	}
	return kept
}

func deepestLevel(active map[int]*section) int {
	max := 0
	for l := range active {
		if l > max {
			max = l
		}
	}
	return max
}

func ancestorProcessed(n *html.Node, processed map[*html.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if processed[p] {
			return true
		}
	}
	return false
}

func markSubtree(n *html.Node, processed map[*html.Node]bool) {
	processed[n] = true
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			markSubtree(c, processed)
		}
	}
}
