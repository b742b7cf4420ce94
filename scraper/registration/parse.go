package registration

import (
	"github.com/PuerkitoBio/goquery"

	"classconnect-scraper/models"
)

const (
	termOptionSelector    = "select#selectedTermCode option"
	subjectOptionSelector = "select#selectedSubjects option"
	sectionRowSelector    = "table.classTable tr.classRow"
	nextPageSelector      = "a.nextPage"
)

// parseTerms extracts every term offered on the search form.
func parseTerms(doc *goquery.Document) []models.TermRecord {
	var terms []models.TermRecord
	doc.Find(termOptionSelector).Each(func(_ int, opt *goquery.Selection) {
		id := models.NormaliseText(opt.AttrOr("value", ""))
		if id == "" {
			return
		}
		terms = append(terms, models.TermRecord{
			ID:    id,
			Title: models.NormaliseText(opt.Text()),
		})
	})
	return terms
}

// parseSubjects extracts every subject area offered on the search form.
func parseSubjects(doc *goquery.Document) []models.SubjectRecord {
	var subjects []models.SubjectRecord
	doc.Find(subjectOptionSelector).Each(func(_ int, opt *goquery.Selection) {
		id := models.NormaliseText(opt.AttrOr("value", ""))
		if id == "" {
			return
		}
		subjects = append(subjects, models.SubjectRecord{
			ID:   id,
			Name: models.NormaliseText(opt.Text()),
		})
	})
	return subjects
}

// parseSections extracts one course record per section row on a results page, and
// whether the page links to another one.
func parseSections(doc *goquery.Document) ([]models.CourseRecord, bool) {
	var courses []models.CourseRecord
	doc.Find(sectionRowSelector).Each(func(_ int, row *goquery.Selection) {
		course := models.CourseRecord{
			Subject:      models.NormaliseText(row.Find("td.classSubject").Text()),
			Abbreviation: models.NormaliseText(row.Find("td.classNumber").Text()),
			Name:         models.NormaliseText(row.Find("td.classTitle").Text()),
		}
		if course.Subject == "" || course.Abbreviation == "" {
			return
		}
		courses = append(courses, course)
	})

	hasNext := doc.Find(nextPageSelector).Length() > 0
	return courses, hasNext
}
