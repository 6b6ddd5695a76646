package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/webchunk/pattern"
)

var bibliographicKeywords = []string{
	"author", "title", "journal", "doi", "isbn", "vol", "pp", "year", "20",
}

var tableKeywords = []string{
	"author", "title", "journal", "publication", "presenter", "date", "conference",
}

// ListMetadata recovers publication-list entries that the generic block pass
// would merge: items from lists classed publication-list/pub-list that carry
// bibliographic keywords, one entry per line.
func ListMetadata(doc *goquery.Document) string {
	var parts []string
	doc.Find("ul.publication-list, ol.publication-list, dl.publication-list, ul.pub-list, ol.pub-list, dl.pub-list").
		Each(func(_ int, list *goquery.Selection) {
			items := list.Find("li, dt, dd")
			if items.Length() <= 1 {
				return
			}
			var entries []string
			items.Each(func(_ int, item *goquery.Selection) {
				text := pattern.CollapseWhitespace(item.Text())
				if len(text) <= 10 {
					return
				}
				lower := strings.ToLower(text)
				for _, kw := range bibliographicKeywords {
					if strings.Contains(lower, kw) {
						entries = append(entries, text)
						return
					}
				}
			})
			if len(entries) > 2 {
				parts = append(parts, entries...)
			}
		})
	return strings.Join(parts, "\n")
}

// TableMetadata recovers table rows as "cell | cell | cell" lines.
// Tables with bibliographic wording keep every multi-cell row; other tables
// keep only rows with substantial cell text.
func TableMetadata(doc *goquery.Document) string {
	var parts []string
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}
		tableText := strings.ToLower(table.Text())
		bibliographic := false
		for _, kw := range tableKeywords {
			if strings.Contains(tableText, kw) {
				bibliographic = true
				break
			}
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() <= 1 {
				return
			}
			var texts []string
			long := false
			cells.Each(func(_ int, cell *goquery.Selection) {
				t := pattern.CollapseWhitespace(cell.Text())
				if t == "" {
					return
				}
				if bibliographic && len(t) <= 3 {
					return
				}
				if len(t) > 15 {
					long = true
				}
				texts = append(texts, t)
			})
			if len(texts) == 0 {
				return
			}
			if bibliographic || (len(texts) > 1 && long) {
				parts = append(parts, strings.Join(texts, " | "))
			}
		})
	})
	return strings.Join(parts, "\n")
}
