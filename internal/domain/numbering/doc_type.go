// Package numbering provides gapless sequential document numbering.
//
// Every legal invoice number comes from here: a per-(organization, document
// type) counter advanced by a single atomic database operation, then formatted
// according to the document type's rule. Concurrent allocators never observe
// the same counter value because read-increment-write happens inside one
// statement, not as separate steps.
package numbering

import (
	"clinibill/internal/core/apperror"
)

// DocumentType identifies an independently numbered invoice series.
type DocumentType string

const (
	// TypeNormal is the standard invoice series: {prefix}{padded number}.
	TypeNormal DocumentType = "normal"

	// TypeRectificative corrects a previously issued invoice:
	// REC{year}{padded number}. Each year keeps the shared counter;
	// the year in the number reflects the issue date.
	TypeRectificative DocumentType = "rectificative"

	// TypeSimplified is the simplified-invoice series: SIMP{padded number}.
	TypeSimplified DocumentType = "simplified"
)

// ParseDocumentType validates a raw string against the known series.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case TypeNormal, TypeRectificative, TypeSimplified:
		return DocumentType(s), nil
	}
	return "", apperror.NewValidation("unknown document type").
		WithDetail("field", "documentType").
		WithDetail("value", s)
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeNormal, TypeRectificative, TypeSimplified:
		return true
	}
	return false
}

func (t DocumentType) String() string { return string(t) }
