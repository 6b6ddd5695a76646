package extract

import (
	"strings"
	"testing"
)

func TestListMetadata(t *testing.T) {
	doc := mustDoc(t, `<body><ul class="publication-list">
		<li>Author: A. Example, Journal of Beams, vol 12, 2021</li>
		<li>Author: B. Example, Journal of Beams, vol 13, 2022</li>
		<li>Author: C. Example, Journal of Beams, vol 14, 2023</li>
		<li>short</li>
	</ul></body>`)
	got := ListMetadata(doc)
	if n := strings.Count(got, "Journal of Beams"); n != 3 {
		t.Errorf("entries = %d, want 3:\n%s", n, got)
	}
	if strings.Contains(got, "short") {
		t.Errorf("short item kept: %q", got)
	}
}

func TestListMetadataNeedsSeveralEntries(t *testing.T) {
	doc := mustDoc(t, `<body><ul class="pub-list">
		<li>Author: A. Example, Journal of Beams, 2021</li>
		<li>Author: B. Example, Journal of Beams, 2022</li>
	</ul></body>`)
	if got := ListMetadata(doc); got != "" {
		t.Errorf("two-entry list should yield nothing, got %q", got)
	}
}

func TestTableMetadataBibliographic(t *testing.T) {
	doc := mustDoc(t, `<body><table>
		<tr><th>Title</th><th>Presenter</th></tr>
		<tr><td>Beam dynamics overview</td><td>A. Example</td></tr>
	</table></body>`)
	got := TableMetadata(doc)
	if !strings.Contains(got, "Beam dynamics overview | A. Example") {
		t.Errorf("row missing:\n%s", got)
	}
}

func TestTableMetadataPlainTableNeedsSubstance(t *testing.T) {
	doc := mustDoc(t, `<body><table>
		<tr><td>a</td><td>b</td></tr>
		<tr><td>c</td><td>d</td></tr>
	</table></body>`)
	if got := TableMetadata(doc); got != "" {
		t.Errorf("layout table should yield nothing, got %q", got)
	}
}
