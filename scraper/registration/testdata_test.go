package registration

import (
	"fmt"
	"strings"
)

const searchFormHTML = `<html><body>
<form>
  <select id="selectedTermCode">
    <option value="">-- choose a term --</option>
    <option value="1040">Fall 2024</option>
    <option value="1045"> Spring
        2025 </option>
  </select>
  <select id="selectedSubjects" multiple>
    <option value="CS">Computer   Science</option>
    <option value="MATH">Mathematics</option>
    <option value="">All</option>
  </select>
</form>
</body></html>`

type sectionRow struct {
	subject, number, title string
}

func sectionsPageHTML(rows []sectionRow, hasNext bool) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="classTable"><tr><th>Subject</th></tr>`)
	for _, r := range rows {
		fmt.Fprintf(&b,
			`<tr class="classRow"><td class="classSubject">%s</td><td class="classNumber">%s</td><td class="classTitle">%s</td></tr>`,
			r.subject, r.number, r.title)
	}
	b.WriteString(`</table>`)
	if hasNext {
		b.WriteString(`<a class="nextPage" href="#">Next</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
