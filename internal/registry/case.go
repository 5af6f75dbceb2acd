// Package registry owns missing-person case records and their lifecycle.
// Cases are created by police intake and transitioned only by authorized
// verification actions — never by the matching pipeline.
package registry

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a case.
type Status string

const (
	StatusActive Status = "active"
	StatusFound  Status = "found"
	StatusClosed Status = "closed"
)

// ParseStatus rejects unrecognized status values at the boundary.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusFound, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown case status %q", s)
}

// Category classifies a missing person for reporting and threshold tuning.
type Category string

const (
	CategoryChild   Category = "child"
	CategoryWoman   Category = "woman"
	CategoryMan     Category = "man"
	CategoryElderly Category = "elderly"
)

// ParseCategory rejects unrecognized category values at the boundary.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryChild, CategoryWoman, CategoryMan, CategoryElderly:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown case category %q", s)
}

// Case is a missing-person record. ReportNumber is assigned externally and
// immutable after creation. A case may own zero or more embeddings; their
// lifetime is bounded by the case lifetime (closed cases are purged).
type Case struct {
	ID               string
	ReportNumber     string
	FullName         string
	AgeAtMissing     int
	Gender           string
	LastSeenLocation string
	LastSeenDate     time.Time
	Description      string
	Category         Category
	Status           Status
	PoliceStation    string
	ContactNumber    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         time.Time
}
