package models

import "strings"

// IDLength is the length of every stable record identifier.
const IDLength = 15

// CourseRecord is a course as streamed by the registration system. The same course
// appears once per section, so the feed repeats it.
type CourseRecord struct {
	Subject      string `json:"subject"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}

// Key is the natural key: subject plus course number, whitespace-normalised the same way
// as the canonical fields.
func (r CourseRecord) Key() string {
	return NormaliseText(r.Subject) + "|" + NormaliseText(r.Abbreviation)
}

// SubjectRecord is a subject area as streamed by the registration system.
type SubjectRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r SubjectRecord) Key() string { return NormaliseText(r.ID) }

// TermRecord is an academic term as streamed by the registration system.
type TermRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (r TermRecord) Key() string { return NormaliseText(r.ID) }

// Course is the canonical, persisted course.
type Course struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}

func (c Course) RecordID() string    { return c.ID }
func (c Course) DisplayName() string { return c.Name }

// Subject is the canonical, persisted subject. ExternalID is the registration code the
// identifier was derived from.
type Subject struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"-"`
}

func (s Subject) RecordID() string    { return s.ID }
func (s Subject) DisplayName() string { return s.Name }

// Term is the canonical, persisted term.
type Term struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ExternalID string `json:"-"`
}

func (t Term) RecordID() string    { return t.ID }
func (t Term) DisplayName() string { return t.Title }

// Canonical is implemented by every persisted record.
type Canonical interface {
	RecordID() string
	DisplayName() string
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
